package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/infrastructure/repositories/memory"
	"github.com/Muab01/samVR/pkg/backup"
)

func newSnapshotService(t *testing.T) *backup.Service {
	t.Helper()
	storage, err := backup.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return backup.NewService(storage, "test")
}

func seedRecords(t *testing.T, venueRepo *memory.VenueRepository, cameraRepo *memory.CameraRepository) (*domain.VenueRecord, *domain.CameraRecord) {
	t.Helper()
	ctx := context.Background()

	venueRecord := &domain.VenueRecord{
		VenueID:     domain.NewVenueID(),
		Name:        "main hall",
		Visibility:  domain.VisibilityPublic,
		OwnerUserID: "u1",
	}
	require.NoError(t, venueRepo.CreateVenue(ctx, venueRecord))

	cameraRecord := &domain.CameraRecord{
		CameraID:   domain.NewCameraID(),
		VenueID:    venueRecord.VenueID,
		Name:       "stage-left",
		CameraType: domain.CameraTypePanoramic,
	}
	require.NoError(t, cameraRepo.CreateCamera(ctx, cameraRecord))
	return venueRecord, cameraRecord
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	svc := newSnapshotService(t)

	sourceVenues := memory.NewVenueRepository()
	sourceCameras := memory.NewCameraRepository()
	venueRecord, cameraRecord := seedRecords(t, sourceVenues, sourceCameras)

	scheduler := NewScheduler(svc, sourceVenues, sourceCameras, Config{
		Interval:      time.Hour,
		RetentionDays: 7,
	}, log)
	snap, err := scheduler.collect(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Venues, 1)
	assert.Len(t, snap.Cameras, 1)

	name, err := svc.CreateSnapshot(ctx, snap)
	require.NoError(t, err)

	targetVenues := memory.NewVenueRepository()
	targetCameras := memory.NewCameraRepository()
	restorer := NewRestoreService(svc, targetVenues, targetCameras, log)
	require.NoError(t, restorer.RestoreFromSnapshot(ctx, name, DefaultRestoreOptions()))

	restoredVenue, err := targetVenues.GetVenue(ctx, venueRecord.VenueID)
	require.NoError(t, err)
	assert.Equal(t, "main hall", restoredVenue.Name)

	restoredCamera, err := targetCameras.GetCamera(ctx, cameraRecord.CameraID)
	require.NoError(t, err)
	assert.Equal(t, "stage-left", restoredCamera.Name)
}

func TestRestoreSkipsExistingWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	svc := newSnapshotService(t)

	venueRepo := memory.NewVenueRepository()
	cameraRepo := memory.NewCameraRepository()
	venueRecord, _ := seedRecords(t, venueRepo, cameraRepo)

	scheduler := NewScheduler(svc, venueRepo, cameraRepo, Config{Interval: time.Hour, RetentionDays: 7}, log)
	snap, err := scheduler.collect(ctx)
	require.NoError(t, err)
	name, err := svc.CreateSnapshot(ctx, snap)
	require.NoError(t, err)

	// Rename the live record; a non-overwriting restore must not undo it.
	venueRecord.Name = "renamed hall"
	require.NoError(t, venueRepo.UpdateVenue(ctx, venueRecord))

	restorer := NewRestoreService(svc, venueRepo, cameraRepo, log)
	require.NoError(t, restorer.RestoreFromSnapshot(ctx, name, DefaultRestoreOptions()))

	current, err := venueRepo.GetVenue(ctx, venueRecord.VenueID)
	require.NoError(t, err)
	assert.Equal(t, "renamed hall", current.Name)

	// Overwriting restore rolls it back to the snapshot.
	opts := DefaultRestoreOptions()
	opts.OverwriteExisting = true
	require.NoError(t, restorer.RestoreFromSnapshot(ctx, name, opts))
	current, err = venueRepo.GetVenue(ctx, venueRecord.VenueID)
	require.NoError(t, err)
	assert.Equal(t, "main hall", current.Name)
}

func TestFindSnapshotByTime(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	svc := newSnapshotService(t)

	venueRepo := memory.NewVenueRepository()
	cameraRepo := memory.NewCameraRepository()
	restorer := NewRestoreService(svc, venueRepo, cameraRepo, log)

	_, err := restorer.FindSnapshotByTime(ctx, time.Now())
	assert.Error(t, err)

	name, err := svc.CreateSnapshot(ctx, &backup.Snapshot{})
	require.NoError(t, err)

	found, err := restorer.FindSnapshotByTime(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, name, found)

	_, err = restorer.FindSnapshotByTime(ctx, time.Now().Add(-time.Hour))
	assert.Error(t, err)
}
