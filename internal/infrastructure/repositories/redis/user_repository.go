package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/pkg/cache"
)

const (
	userKeyPrefix = "samvr:user:"

	// userCacheTTL bounds how stale a role change can be. Tokens outlive
	// it anyway, so a short window is enough.
	userCacheTTL = 30 * time.Second
)

// UserRepository reads user records stored as JSON blobs. Reads go
// through a short-lived in-process cache since every authenticated
// request resolves its user.
type UserRepository struct {
	client *redis.Client
	guard  *guard
	cache  *cache.Cache[*domain.UserRecord]
}

func NewUserRepository(client *redis.Client) *UserRepository {
	return &UserRepository{
		client: client,
		guard:  newGuard(),
		cache:  cache.New[*domain.UserRecord](userCacheTTL),
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func userKey(id domain.UserID) string { return userKeyPrefix + string(id) }

func (r *UserRepository) GetUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	if record, ok := r.cache.Get(string(id)); ok {
		return record, nil
	}

	var record domain.UserRecord
	err := r.guard.do(ctx, func() error {
		data, err := r.client.Get(ctx, userKey(id)).Result()
		if err == redis.Nil {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get user from redis: %w", err)
		}
		return json.Unmarshal([]byte(data), &record)
	})
	if err != nil {
		return nil, err
	}
	r.cache.Set(string(id), &record)
	return &record, nil
}

// PutUser inserts or replaces a user record.
func (r *UserRepository) PutUser(ctx context.Context, record *domain.UserRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	err = r.guard.do(ctx, func() error {
		if err := r.client.Set(ctx, userKey(record.UserID), data, 0).Err(); err != nil {
			return fmt.Errorf("failed to store user in redis: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.Delete(string(record.UserID))
	return nil
}
