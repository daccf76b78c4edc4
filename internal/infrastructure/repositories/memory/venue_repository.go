package memory

import (
	"context"
	"sync"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// VenueRepository is an in-memory venue store for development and tests.
type VenueRepository struct {
	mu     sync.RWMutex
	venues map[domain.VenueID]domain.VenueRecord
}

func NewVenueRepository() *VenueRepository {
	return &VenueRepository{venues: make(map[domain.VenueID]domain.VenueRecord)}
}

var _ ports.VenueRepository = (*VenueRepository)(nil)

func (r *VenueRepository) GetVenue(_ context.Context, id domain.VenueID) (*domain.VenueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.venues[id]
	if !ok {
		return nil, domain.ErrVenueNotFound
	}
	return &record, nil
}

func (r *VenueRepository) ListVenues(_ context.Context) ([]*domain.VenueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.VenueRecord, 0, len(r.venues))
	for _, record := range r.venues {
		record := record
		out = append(out, &record)
	}
	return out, nil
}

func (r *VenueRepository) ListVenuesByOwner(_ context.Context, owner domain.UserID) ([]*domain.VenueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.VenueRecord
	for _, record := range r.venues {
		if record.OwnerUserID == owner {
			record := record
			out = append(out, &record)
		}
	}
	return out, nil
}

func (r *VenueRepository) CreateVenue(_ context.Context, record *domain.VenueRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[record.VenueID] = *record
	return nil
}

func (r *VenueRepository) UpdateVenue(_ context.Context, record *domain.VenueRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.venues[record.VenueID]; !ok {
		return domain.ErrVenueNotFound
	}
	r.venues[record.VenueID] = *record
	return nil
}

func (r *VenueRepository) DeleteVenue(_ context.Context, id domain.VenueID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.venues[id]; !ok {
		return domain.ErrVenueNotFound
	}
	delete(r.venues, id)
	return nil
}
