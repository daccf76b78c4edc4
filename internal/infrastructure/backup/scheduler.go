package backup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/pkg/backup"
)

// Scheduler periodically snapshots venue and camera records so a wiped
// datastore can be repopulated. Live session state is deliberately not
// captured; clients re-join after a restore.
type Scheduler struct {
	service       *backup.Service
	venueRepo     ports.VenueRepository
	cameraRepo    ports.CameraRepository
	interval      time.Duration
	retentionDays int
	logger        *zap.SugaredLogger
	stopChan      chan struct{}
}

type Config struct {
	Interval      time.Duration
	RetentionDays int
}

func NewScheduler(
	service *backup.Service,
	venueRepo ports.VenueRepository,
	cameraRepo ports.CameraRepository,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		service:       service,
		venueRepo:     venueRepo,
		cameraRepo:    cameraRepo,
		interval:      cfg.Interval,
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start runs an initial snapshot and then one per interval until the
// context ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSnapshot(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSnapshot(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) runSnapshot(ctx context.Context) {
	snap, err := s.collect(ctx)
	if err != nil {
		s.logger.Errorw("Failed to collect snapshot data", "error", err)
		return
	}

	name, err := s.service.CreateSnapshot(ctx, snap)
	if err != nil {
		s.logger.Errorw("Failed to create snapshot", "error", err)
		return
	}
	s.logger.Infow("Snapshot created",
		"name", name,
		"venues", len(snap.Venues),
		"cameras", len(snap.Cameras),
	)

	if err := s.pruneOldSnapshots(ctx); err != nil {
		s.logger.Warnw("Failed to prune old snapshots", "error", err)
	}
}

func (s *Scheduler) collect(ctx context.Context) (*backup.Snapshot, error) {
	snap := &backup.Snapshot{
		Venues:   make(map[string]interface{}),
		Cameras:  make(map[string]interface{}),
		Metadata: make(map[string]interface{}),
	}

	venues, err := s.venueRepo.ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	for _, venue := range venues {
		snap.Venues[string(venue.VenueID)] = venue

		cameras, err := s.cameraRepo.ListCamerasForVenue(ctx, venue.VenueID)
		if err != nil {
			s.logger.Warnw("Failed to list cameras for venue",
				"venue_id", venue.VenueID, "error", err)
			continue
		}
		for _, camera := range cameras {
			snap.Cameras[string(camera.CameraID)] = camera
		}
	}

	snap.Metadata["venue_count"] = len(snap.Venues)
	snap.Metadata["camera_count"] = len(snap.Cameras)
	snap.Metadata["snapshot_type"] = "scheduled"
	return snap, nil
}

func (s *Scheduler) pruneOldSnapshots(ctx context.Context) error {
	names, err := s.service.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	for _, name := range names {
		ts, err := backup.ParseSnapshotTime(name)
		if err != nil {
			s.logger.Warnw("Skipping unrecognized snapshot", "name", name, "error", err)
			continue
		}
		if ts.Before(cutoff) {
			if err := s.service.DeleteSnapshot(ctx, name); err != nil {
				s.logger.Warnw("Failed to delete old snapshot", "name", name, "error", err)
				continue
			}
			s.logger.Infow("Deleted old snapshot", "name", name, "age", time.Since(ts))
		}
	}
	return nil
}
