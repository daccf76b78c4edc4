package memory

import (
	"context"
	"sync"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// UserRepository is an in-memory user store.
type UserRepository struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.UserRecord
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[domain.UserID]domain.UserRecord)}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) GetUser(_ context.Context, id domain.UserID) (*domain.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &record, nil
}

// PutUser inserts or replaces a user. Used by seeding and tests.
func (r *UserRepository) PutUser(record domain.UserRecord) {
	r.mu.Lock()
	r.users[record.UserID] = record
	r.mu.Unlock()
}
