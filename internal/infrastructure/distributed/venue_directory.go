package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/pkg/distributed"
)

const (
	directoryEntryTTL = 5 * time.Minute
	loadLockTTL       = 30 * time.Second
)

// VenueDirectory records which instance holds each loaded venue. Entries
// expire unless refreshed, so a crashed instance's venues become loadable
// elsewhere after the TTL.
type VenueDirectory struct {
	client      *redis.Client
	lockManager *distributed.LockManager
	instanceID  string
	logger      *zap.SugaredLogger
}

type directoryEntry struct {
	InstanceID string         `json:"instance_id"`
	VenueID    domain.VenueID `json:"venue_id"`
	LoadedAt   time.Time      `json:"loaded_at"`
}

func NewVenueDirectory(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *VenueDirectory {
	return &VenueDirectory{
		client:      client,
		lockManager: distributed.NewLockManager(client, "samvr:lock:"),
		instanceID:  instanceID,
		logger:      logger,
	}
}

// ClaimVenue marks a venue as loaded on this instance.
func (d *VenueDirectory) ClaimVenue(ctx context.Context, venueID domain.VenueID) error {
	entry := directoryEntry{
		InstanceID: d.instanceID,
		VenueID:    venueID,
		LoadedAt:   time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal directory entry: %w", err)
	}

	key := d.venueKey(venueID)
	if err := d.client.Set(ctx, key, data, directoryEntryTTL).Err(); err != nil {
		return fmt.Errorf("failed to claim venue: %w", err)
	}
	instanceKey := d.instanceKey(d.instanceID)
	if err := d.client.SAdd(ctx, instanceKey, string(venueID)).Err(); err != nil {
		return fmt.Errorf("failed to index venue by instance: %w", err)
	}
	d.client.Expire(ctx, instanceKey, 2*directoryEntryTTL)
	return nil
}

// ReleaseVenue removes this instance's claim.
func (d *VenueDirectory) ReleaseVenue(ctx context.Context, venueID domain.VenueID) error {
	d.client.SRem(ctx, d.instanceKey(d.instanceID), string(venueID))
	return d.client.Del(ctx, d.venueKey(venueID)).Err()
}

// LookupVenue returns the instance currently holding a venue, or "" when
// no instance has it loaded.
func (d *VenueDirectory) LookupVenue(ctx context.Context, venueID domain.VenueID) (string, error) {
	data, err := d.client.Get(ctx, d.venueKey(venueID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up venue: %w", err)
	}
	var entry directoryEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return "", fmt.Errorf("failed to unmarshal directory entry: %w", err)
	}
	return entry.InstanceID, nil
}

// InstanceVenues lists venues claimed by an instance.
func (d *VenueDirectory) InstanceVenues(ctx context.Context, instanceID string) ([]domain.VenueID, error) {
	ids, err := d.client.SMembers(ctx, d.instanceKey(instanceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instance venues: %w", err)
	}
	out := make([]domain.VenueID, len(ids))
	for i, id := range ids {
		out[i] = domain.VenueID(id)
	}
	return out, nil
}

// RefreshClaims extends the TTL of every claim this instance still holds.
// Run on a ticker while the instance is healthy.
func (d *VenueDirectory) RefreshClaims(ctx context.Context) {
	venues, err := d.InstanceVenues(ctx, d.instanceID)
	if err != nil {
		d.logger.Warnw("failed to refresh venue claims", "error", err)
		return
	}
	for _, id := range venues {
		d.client.Expire(ctx, d.venueKey(id), directoryEntryTTL)
	}
	d.client.Expire(ctx, d.instanceKey(d.instanceID), 2*directoryEntryTTL)
}

// ReleaseAll drops every claim held by this instance. Call on shutdown.
func (d *VenueDirectory) ReleaseAll(ctx context.Context) error {
	venues, err := d.InstanceVenues(ctx, d.instanceID)
	if err != nil {
		return err
	}
	for _, id := range venues {
		if err := d.ReleaseVenue(ctx, id); err != nil {
			d.logger.Warnw("failed to release venue claim", "venueId", id, "error", err)
		}
	}
	return d.client.Del(ctx, d.instanceKey(d.instanceID)).Err()
}

// AcquireLoadLock takes the cross-instance lock guarding a venue's load,
// so two instances racing to load the same venue serialize. The caller
// must invoke the returned release function once the load has resolved.
func (d *VenueDirectory) AcquireLoadLock(ctx context.Context, venueID domain.VenueID) (func(), error) {
	lock := d.lockManager.AcquireLock(fmt.Sprintf("venue-load:%s", venueID), loadLockTTL)
	if err := lock.Lock(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire venue load lock: %w", err)
	}
	return func() {
		if err := lock.Unlock(context.Background()); err != nil && !errors.Is(err, distributed.ErrNotHeld) {
			d.logger.Warnw("failed to release venue load lock", "venueId", venueID, "error", err)
		}
	}, nil
}

func (d *VenueDirectory) venueKey(venueID domain.VenueID) string {
	return fmt.Sprintf("samvr:directory:venue:%s", venueID)
}

func (d *VenueDirectory) instanceKey(instanceID string) string {
	return fmt.Sprintf("samvr:directory:instance:%s", instanceID)
}
