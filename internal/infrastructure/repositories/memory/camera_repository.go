package memory

import (
	"context"
	"sync"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// CameraRepository is an in-memory camera store. Portal edges are stored
// inside their source camera's record; deleting a camera removes the
// edges pointing at it.
type CameraRepository struct {
	mu      sync.RWMutex
	cameras map[domain.CameraID]domain.CameraRecord
}

func NewCameraRepository() *CameraRepository {
	return &CameraRepository{cameras: make(map[domain.CameraID]domain.CameraRecord)}
}

var _ ports.CameraRepository = (*CameraRepository)(nil)

func cloneCamera(record domain.CameraRecord) *domain.CameraRecord {
	out := record
	out.Portals = make([]domain.CameraPortalRecord, len(record.Portals))
	copy(out.Portals, record.Portals)
	return &out
}

func (r *CameraRepository) GetCamera(_ context.Context, id domain.CameraID) (*domain.CameraRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.cameras[id]
	if !ok {
		return nil, domain.ErrCameraNotFound
	}
	return cloneCamera(record), nil
}

func (r *CameraRepository) ListCamerasForVenue(_ context.Context, venueID domain.VenueID) ([]*domain.CameraRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.CameraRecord
	for _, record := range r.cameras {
		if record.VenueID == venueID {
			out = append(out, cloneCamera(record))
		}
	}
	return out, nil
}

func (r *CameraRepository) CreateCamera(_ context.Context, record *domain.CameraRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cameras[record.CameraID] = *cloneCamera(*record)
	return nil
}

func (r *CameraRepository) UpdateCamera(_ context.Context, record *domain.CameraRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cameras[record.CameraID]; !ok {
		return domain.ErrCameraNotFound
	}
	r.cameras[record.CameraID] = *cloneCamera(*record)
	return nil
}

func (r *CameraRepository) DeleteCamera(_ context.Context, id domain.CameraID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cameras[id]; !ok {
		return domain.ErrCameraNotFound
	}
	delete(r.cameras, id)
	for camID, record := range r.cameras {
		kept := record.Portals[:0]
		for _, p := range record.Portals {
			if p.ToCameraID != id {
				kept = append(kept, p)
			}
		}
		record.Portals = kept
		r.cameras[camID] = record
	}
	return nil
}

func (r *CameraRepository) SetPortal(_ context.Context, portal *domain.CameraPortalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	from, ok := r.cameras[portal.FromCameraID]
	if !ok {
		return domain.ErrCameraNotFound
	}
	if _, ok := r.cameras[portal.ToCameraID]; !ok {
		return domain.ErrCameraNotFound
	}
	replaced := false
	for i, p := range from.Portals {
		if p.ToCameraID == portal.ToCameraID {
			from.Portals[i] = *portal
			replaced = true
			break
		}
	}
	if !replaced {
		from.Portals = append(from.Portals, *portal)
	}
	r.cameras[portal.FromCameraID] = from
	return nil
}

func (r *CameraRepository) DeletePortal(_ context.Context, fromID, toID domain.CameraID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	from, ok := r.cameras[fromID]
	if !ok {
		return domain.ErrCameraNotFound
	}
	kept := from.Portals[:0]
	for _, p := range from.Portals {
		if p.ToCameraID != toID {
			kept = append(kept, p)
		}
	}
	from.Portals = kept
	r.cameras[fromID] = from
	return nil
}

func (r *CameraRepository) ListCamerasWithPortalTo(_ context.Context, to domain.CameraID) ([]*domain.CameraRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.CameraRecord
	for _, record := range r.cameras {
		for _, p := range record.Portals {
			if p.ToCameraID == to {
				out = append(out, cloneCamera(record))
				break
			}
		}
	}
	return out, nil
}
