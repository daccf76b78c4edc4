package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/pkg/backup"
)

// RestoreService repopulates the record stores from a snapshot archive.
type RestoreService struct {
	service    *backup.Service
	venueRepo  ports.VenueRepository
	cameraRepo ports.CameraRepository
	logger     *zap.SugaredLogger
}

func NewRestoreService(
	service *backup.Service,
	venueRepo ports.VenueRepository,
	cameraRepo ports.CameraRepository,
	logger *zap.SugaredLogger,
) *RestoreService {
	return &RestoreService{
		service:    service,
		venueRepo:  venueRepo,
		cameraRepo: cameraRepo,
		logger:     logger,
	}
}

type RestoreOptions struct {
	OverwriteExisting bool
	RestoreVenues     bool
	RestoreCameras    bool
}

func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{
		OverwriteExisting: false,
		RestoreVenues:     true,
		RestoreCameras:    true,
	}
}

// RestoreFromSnapshot loads the named archive and writes its records
// back. Venues are restored before cameras so camera venue references
// resolve.
func (rs *RestoreService) RestoreFromSnapshot(ctx context.Context, name string, options RestoreOptions) error {
	rs.logger.Infow("Starting restore", "name", name)

	snap, err := rs.service.LoadSnapshot(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap.Version == "" {
		return fmt.Errorf("invalid snapshot: missing version")
	}

	if options.RestoreVenues {
		if err := rs.restoreVenues(ctx, snap.Venues, options); err != nil {
			return fmt.Errorf("failed to restore venues: %w", err)
		}
	}
	if options.RestoreCameras {
		if err := rs.restoreCameras(ctx, snap.Cameras, options); err != nil {
			return fmt.Errorf("failed to restore cameras: %w", err)
		}
	}

	rs.logger.Infow("Restore completed", "name", name,
		"venues", len(snap.Venues), "cameras", len(snap.Cameras))
	return nil
}

func (rs *RestoreService) restoreVenues(ctx context.Context, venues map[string]interface{}, options RestoreOptions) error {
	for id, raw := range venues {
		record, err := decodeRecord[domain.VenueRecord](raw)
		if err != nil {
			return fmt.Errorf("venue %s: %w", id, err)
		}

		_, getErr := rs.venueRepo.GetVenue(ctx, record.VenueID)
		switch {
		case getErr == nil:
			if !options.OverwriteExisting {
				rs.logger.Debugw("Skipping existing venue", "venue_id", record.VenueID)
				continue
			}
			if err := rs.venueRepo.UpdateVenue(ctx, record); err != nil {
				return fmt.Errorf("failed to update venue %s: %w", id, err)
			}
		case errors.Is(getErr, domain.ErrVenueNotFound):
			if err := rs.venueRepo.CreateVenue(ctx, record); err != nil {
				return fmt.Errorf("failed to create venue %s: %w", id, err)
			}
		default:
			return fmt.Errorf("failed to check venue %s: %w", id, getErr)
		}
		rs.logger.Debugw("Restored venue", "venue_id", record.VenueID)
	}
	return nil
}

func (rs *RestoreService) restoreCameras(ctx context.Context, cameras map[string]interface{}, options RestoreOptions) error {
	for id, raw := range cameras {
		record, err := decodeRecord[domain.CameraRecord](raw)
		if err != nil {
			return fmt.Errorf("camera %s: %w", id, err)
		}

		_, getErr := rs.cameraRepo.GetCamera(ctx, record.CameraID)
		switch {
		case getErr == nil:
			if !options.OverwriteExisting {
				rs.logger.Debugw("Skipping existing camera", "camera_id", record.CameraID)
				continue
			}
			if err := rs.cameraRepo.UpdateCamera(ctx, record); err != nil {
				return fmt.Errorf("failed to update camera %s: %w", id, err)
			}
		case errors.Is(getErr, domain.ErrCameraNotFound):
			if err := rs.cameraRepo.CreateCamera(ctx, record); err != nil {
				return fmt.Errorf("failed to create camera %s: %w", id, err)
			}
		default:
			return fmt.Errorf("failed to check camera %s: %w", id, getErr)
		}
		rs.logger.Debugw("Restored camera", "camera_id", record.CameraID)
	}
	return nil
}

// FindSnapshotByTime returns the newest snapshot taken at or before the
// target time.
func (rs *RestoreService) FindSnapshotByTime(ctx context.Context, target time.Time) (string, error) {
	names, err := rs.service.ListSnapshots(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list snapshots: %w", err)
	}

	var best string
	var bestTime time.Time
	for _, name := range names {
		ts, err := backup.ParseSnapshotTime(name)
		if err != nil {
			continue
		}
		if !ts.After(target) && (best == "" || ts.After(bestTime)) {
			best = name
			bestTime = ts
		}
	}
	if best == "" {
		return "", fmt.Errorf("no snapshot found at or before %v", target)
	}
	return best, nil
}

// decodeRecord round-trips an untyped snapshot value into a concrete
// record type.
func decodeRecord[T any](raw interface{}) (*T, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}
