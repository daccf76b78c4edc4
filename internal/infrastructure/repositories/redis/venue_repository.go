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
	venueKeyPrefix = "samvr:venue:"
	venueIndexKey  = "samvr:venues"
)

// VenueRepository stores venue records as JSON blobs with a set index for
// listing.
type VenueRepository struct {
	client *redis.Client
	guard  *guard
}

func NewVenueRepository(client *redis.Client) *VenueRepository {
	return &VenueRepository{client: client, guard: newGuard()}
}

var _ ports.VenueRepository = (*VenueRepository)(nil)

func venueKey(id domain.VenueID) string {
	return venueKeyPrefix + string(id)
}

func (r *VenueRepository) GetVenue(ctx context.Context, id domain.VenueID) (*domain.VenueRecord, error) {
	var record domain.VenueRecord
	err := r.guard.do(ctx, func() error {
		data, err := r.client.Get(ctx, venueKey(id)).Result()
		if err == redis.Nil {
			return domain.ErrVenueNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get venue from redis: %w", err)
		}
		return json.Unmarshal([]byte(data), &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *VenueRepository) ListVenues(ctx context.Context) ([]*domain.VenueRecord, error) {
	var out []*domain.VenueRecord
	err := r.guard.do(ctx, func() error {
		ids, err := r.client.SMembers(ctx, venueIndexKey).Result()
		if err != nil {
			return fmt.Errorf("failed to list venues from redis: %w", err)
		}
		out = out[:0]
		for _, id := range ids {
			data, err := r.client.Get(ctx, venueKey(domain.VenueID(id))).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get venue %s: %w", id, err)
			}
			var record domain.VenueRecord
			if err := json.Unmarshal([]byte(data), &record); err != nil {
				return fmt.Errorf("failed to decode venue %s: %w", id, err)
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

func (r *VenueRepository) ListVenuesByOwner(ctx context.Context, owner domain.UserID) ([]*domain.VenueRecord, error) {
	all, err := r.ListVenues(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.VenueRecord
	for _, record := range all {
		if record.OwnerUserID == owner {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *VenueRepository) CreateVenue(ctx context.Context, record *domain.VenueRecord) error {
	return r.write(ctx, record)
}

func (r *VenueRepository) UpdateVenue(ctx context.Context, record *domain.VenueRecord) error {
	err := r.guard.do(ctx, func() error {
		exists, err := r.client.Exists(ctx, venueKey(record.VenueID)).Result()
		if err != nil {
			return fmt.Errorf("failed to check venue existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrVenueNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	return r.write(ctx, record)
}

func (r *VenueRepository) write(ctx context.Context, record *domain.VenueRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal venue: %w", err)
	}
	return r.guard.do(ctx, func() error {
		pipe := r.client.TxPipeline()
		pipe.Set(ctx, venueKey(record.VenueID), data, 0)
		pipe.SAdd(ctx, venueIndexKey, string(record.VenueID))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to store venue in redis: %w", err)
		}
		return nil
	})
}

func (r *VenueRepository) DeleteVenue(ctx context.Context, id domain.VenueID) error {
	return r.guard.do(ctx, func() error {
		pipe := r.client.TxPipeline()
		del := pipe.Del(ctx, venueKey(id))
		pipe.SRem(ctx, venueIndexKey, string(id))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete venue from redis: %w", err)
		}
		if del.Val() == 0 {
			return domain.ErrVenueNotFound
		}
		return nil
	})
}
