package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

const (
	cameraKeyPrefix     = "samvr:camera:"
	venueCamerasPrefix  = "samvr:venue-cameras:"
	portalTargetsPrefix = "samvr:portals-into:"
)

// CameraRepository stores camera records as JSON blobs. A per-venue set
// indexes cameras, and a reverse set per camera indexes the cameras
// holding portals into it.
type CameraRepository struct {
	client *redis.Client
	guard  *guard
}

func NewCameraRepository(client *redis.Client) *CameraRepository {
	return &CameraRepository{client: client, guard: newGuard()}
}

var _ ports.CameraRepository = (*CameraRepository)(nil)

func cameraKey(id domain.CameraID) string      { return cameraKeyPrefix + string(id) }
func venueCamerasKey(id domain.VenueID) string { return venueCamerasPrefix + string(id) }
func portalsIntoKey(id domain.CameraID) string { return portalTargetsPrefix + string(id) }

func (r *CameraRepository) GetCamera(ctx context.Context, id domain.CameraID) (*domain.CameraRecord, error) {
	var record domain.CameraRecord
	err := r.guard.do(ctx, func() error {
		data, err := r.client.Get(ctx, cameraKey(id)).Result()
		if err == redis.Nil {
			return domain.ErrCameraNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get camera from redis: %w", err)
		}
		return json.Unmarshal([]byte(data), &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *CameraRepository) ListCamerasForVenue(ctx context.Context, venueID domain.VenueID) ([]*domain.CameraRecord, error) {
	var out []*domain.CameraRecord
	err := r.guard.do(ctx, func() error {
		ids, err := r.client.SMembers(ctx, venueCamerasKey(venueID)).Result()
		if err != nil {
			return fmt.Errorf("failed to list venue cameras: %w", err)
		}
		out = out[:0]
		for _, id := range ids {
			data, err := r.client.Get(ctx, cameraKey(domain.CameraID(id))).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get camera %s: %w", id, err)
			}
			var record domain.CameraRecord
			if err := json.Unmarshal([]byte(data), &record); err != nil {
				return fmt.Errorf("failed to decode camera %s: %w", id, err)
			}
			out = append(out, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CameraRepository) CreateCamera(ctx context.Context, record *domain.CameraRecord) error {
	return r.write(ctx, record)
}

func (r *CameraRepository) UpdateCamera(ctx context.Context, record *domain.CameraRecord) error {
	err := r.guard.do(ctx, func() error {
		exists, err := r.client.Exists(ctx, cameraKey(record.CameraID)).Result()
		if err != nil {
			return fmt.Errorf("failed to check camera existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrCameraNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	return r.write(ctx, record)
}

func (r *CameraRepository) write(ctx context.Context, record *domain.CameraRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal camera: %w", err)
	}
	return r.guard.do(ctx, func() error {
		pipe := r.client.TxPipeline()
		pipe.Set(ctx, cameraKey(record.CameraID), data, 0)
		pipe.SAdd(ctx, venueCamerasKey(record.VenueID), string(record.CameraID))
		for _, portal := range record.Portals {
			pipe.SAdd(ctx, portalsIntoKey(portal.ToCameraID), string(record.CameraID))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to store camera in redis: %w", err)
		}
		return nil
	})
}

func (r *CameraRepository) DeleteCamera(ctx context.Context, id domain.CameraID) error {
	record, err := r.GetCamera(ctx, id)
	if err != nil {
		return err
	}

	// Strip portal edges into the deleted camera from their sources.
	sources, err := r.ListCamerasWithPortalTo(ctx, id)
	if err != nil {
		return err
	}
	for _, source := range sources {
		kept := source.Portals[:0]
		for _, p := range source.Portals {
			if p.ToCameraID != id {
				kept = append(kept, p)
			}
		}
		source.Portals = kept
		if err := r.write(ctx, source); err != nil {
			return err
		}
	}

	return r.guard.do(ctx, func() error {
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, cameraKey(id))
		pipe.Del(ctx, portalsIntoKey(id))
		pipe.SRem(ctx, venueCamerasKey(record.VenueID), string(id))
		for _, portal := range record.Portals {
			pipe.SRem(ctx, portalsIntoKey(portal.ToCameraID), string(id))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete camera from redis: %w", err)
		}
		return nil
	})
}

func (r *CameraRepository) SetPortal(ctx context.Context, portal *domain.CameraPortalRecord) error {
	from, err := r.GetCamera(ctx, portal.FromCameraID)
	if err != nil {
		return err
	}
	if _, err := r.GetCamera(ctx, portal.ToCameraID); err != nil {
		return err
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
	return r.write(ctx, from)
}

func (r *CameraRepository) DeletePortal(ctx context.Context, fromID, toID domain.CameraID) error {
	from, err := r.GetCamera(ctx, fromID)
	if err != nil {
		return err
	}
	kept := from.Portals[:0]
	for _, p := range from.Portals {
		if p.ToCameraID != toID {
			kept = append(kept, p)
		}
	}
	from.Portals = kept
	if err := r.write(ctx, from); err != nil {
		return err
	}
	return r.guard.do(ctx, func() error {
		if err := r.client.SRem(ctx, portalsIntoKey(toID), string(fromID)).Err(); err != nil {
			return fmt.Errorf("failed to update portal index: %w", err)
		}
		return nil
	})
}

func (r *CameraRepository) ListCamerasWithPortalTo(ctx context.Context, to domain.CameraID) ([]*domain.CameraRecord, error) {
	var sourceIDs []string
	err := r.guard.do(ctx, func() error {
		ids, err := r.client.SMembers(ctx, portalsIntoKey(to)).Result()
		if err != nil {
			return fmt.Errorf("failed to read portal index: %w", err)
		}
		sourceIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out []*domain.CameraRecord
	for _, id := range sourceIDs {
		record, err := r.GetCamera(ctx, domain.CameraID(id))
		if err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
