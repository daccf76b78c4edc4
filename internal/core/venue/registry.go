package venue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// RegistryConfig wires the registry's dependencies. Metrics and
// Coordinator are optional.
type RegistryConfig struct {
	Engine                 ports.MediaEngine
	VenueRepo              ports.VenueRepository
	CameraRepo             ports.CameraRepository
	Logger                 *zap.SugaredLogger
	Metrics                ports.MetricsSink
	Coordinator            ports.VenueCoordinator
	TransformFlushInterval time.Duration
	MaxIncomingBitrate     int
}

// Registry holds every loaded venue. Loading is idempotent: concurrent
// loads of the same venue converge on a single instance, with one caller
// doing the work and the rest waiting for it.
type Registry struct {
	engine             ports.MediaEngine
	venueRepo          ports.VenueRepository
	cameraRepo         ports.CameraRepository
	log                *zap.SugaredLogger
	metrics            ports.MetricsSink
	coord              ports.VenueCoordinator
	flushInterval      time.Duration
	maxIncomingBitrate int

	mu      sync.Mutex
	venues  map[domain.VenueID]*Venue
	loading map[domain.VenueID]chan struct{}
}

func NewRegistry(cfg RegistryConfig) *Registry {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		engine:             cfg.Engine,
		venueRepo:          cfg.VenueRepo,
		cameraRepo:         cfg.CameraRepo,
		log:                log,
		metrics:            cfg.Metrics,
		coord:              cfg.Coordinator,
		flushInterval:      cfg.TransformFlushInterval,
		maxIncomingBitrate: cfg.MaxIncomingBitrate,
		venues:             make(map[domain.VenueID]*Venue),
		loading:            make(map[domain.VenueID]chan struct{}),
	}
}

// GetVenue returns an already-loaded venue.
func (r *Registry) GetVenue(id domain.VenueID) (*Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.venues[id]
	if !ok {
		return nil, domain.ErrVenueNotLoaded
	}
	return v, nil
}

// GetVenueRecord fetches a venue's persisted record whether or not the
// venue is loaded.
func (r *Registry) GetVenueRecord(ctx context.Context, id domain.VenueID) (*domain.VenueRecord, error) {
	return r.venueRepo.GetVenue(ctx, id)
}

// LoadedVenues returns every currently loaded venue.
func (r *Registry) LoadedVenues() []*Venue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Venue, 0, len(r.venues))
	for _, v := range r.venues {
		out = append(out, v)
	}
	return out
}

// LoadVenue brings a venue into memory, or returns the loaded instance.
// Non-owners may only load a venue whose scheduled start time has passed;
// admins may load anything.
func (r *Registry) LoadVenue(ctx context.Context, id domain.VenueID, requester *domain.UserRecord) (*Venue, error) {
	for {
		r.mu.Lock()
		if v, ok := r.venues[id]; ok {
			r.mu.Unlock()
			return v, nil
		}
		inFlight, loadingNow := r.loading[id]
		if !loadingNow {
			inFlight = make(chan struct{})
			r.loading[id] = inFlight
		}
		r.mu.Unlock()

		if !loadingNow {
			v, err := r.loadCoordinated(ctx, id, requester)
			r.mu.Lock()
			delete(r.loading, id)
			if err == nil {
				r.venues[id] = v
			}
			r.mu.Unlock()
			close(inFlight)
			if err == nil && r.metrics != nil {
				r.metrics.RecordVenueLoaded(id)
			}
			return v, err
		}

		select {
		case <-inFlight:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// loadCoordinated wraps doLoad with the cross-instance load lock and
// directory claim when a coordinator is configured.
func (r *Registry) loadCoordinated(ctx context.Context, id domain.VenueID, requester *domain.UserRecord) (*Venue, error) {
	if r.coord == nil {
		return r.doLoad(ctx, id, requester)
	}
	release, err := r.coord.AcquireLoadLock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := r.doLoad(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if err := r.coord.ClaimVenue(ctx, id); err != nil {
		r.log.Warnw("failed to claim venue in directory", "venueId", id, "error", err)
	}
	return v, nil
}

func (r *Registry) doLoad(ctx context.Context, id domain.VenueID, requester *domain.UserRecord) (*Venue, error) {
	record, err := r.venueRepo.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester != nil && !r.mayLoad(record, requester) {
		return nil, domain.ErrVenueNotStarted
	}

	rc, err := r.engine.CreateRoutingContext(ctx, id)
	if err != nil {
		return nil, err
	}
	cameras, err := r.cameraRepo.ListCamerasForVenue(ctx, id)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}

	v := newVenue(r, rc, *record, r.flushInterval)
	v.mu.Lock()
	for _, cam := range cameras {
		if _, err := v.loadCameraLocked(*cam); err != nil {
			r.log.Warnw("failed to load camera", "venueId", id, "cameraId", cam.CameraID, "error", err)
		}
	}
	v.mu.Unlock()

	r.log.Infow("venue loaded", "venueId", id, "cameras", len(cameras))
	return v, nil
}

func (r *Registry) mayLoad(record *domain.VenueRecord, requester *domain.UserRecord) bool {
	if record.OwnerUserID == requester.UserID {
		return true
	}
	if domain.HasAtLeastSecurityLevel(requester.Role, domain.RoleAdmin) {
		return true
	}
	return record.StartTimePassed(time.Now())
}

// CreateVenue persists a new venue owned by the given user. Every venue
// gets its own vr space.
func (r *Registry) CreateVenue(ctx context.Context, owner domain.UserID, name string) (*domain.VenueRecord, error) {
	vrSpaceID := domain.NewVrSpaceID()
	record := &domain.VenueRecord{
		VenueID:     domain.NewVenueID(),
		Name:        name,
		Visibility:  domain.VisibilityUnlisted,
		OwnerUserID: owner,
		VrSpaceID:   &vrSpaceID,
	}
	if err := r.venueRepo.CreateVenue(ctx, record); err != nil {
		return nil, err
	}
	r.log.Infow("venue created", "venueId", record.VenueID, "owner", owner)
	return record, nil
}

// UpdateVenueRecord persists edits to a venue record and, when the venue
// is loaded, applies them to the running instance.
func (r *Registry) UpdateVenueRecord(ctx context.Context, record *domain.VenueRecord) error {
	if err := r.venueRepo.UpdateVenue(ctx, record); err != nil {
		return err
	}
	r.mu.Lock()
	v, loaded := r.venues[record.VenueID]
	r.mu.Unlock()
	if loaded {
		v.mu.Lock()
		v.record = *record
		v.notifyStateLocked(nil, "venue updated")
		v.mu.Unlock()
	}
	return nil
}

// DeleteVenue unloads the venue if needed, then removes it and its
// cameras from persistence.
func (r *Registry) DeleteVenue(ctx context.Context, id domain.VenueID) error {
	r.mu.Lock()
	v, loaded := r.venues[id]
	r.mu.Unlock()
	if loaded {
		v.Unload("venue deleted")
	}

	cameras, err := r.cameraRepo.ListCamerasForVenue(ctx, id)
	if err != nil {
		return err
	}
	for _, cam := range cameras {
		if err := r.cameraRepo.DeleteCamera(ctx, cam.CameraID); err != nil {
			r.log.Warnw("failed to delete camera of deleted venue", "cameraId", cam.CameraID, "error", err)
		}
	}
	if err := r.venueRepo.DeleteVenue(ctx, id); err != nil {
		return err
	}
	r.log.Infow("venue deleted", "venueId", id)
	return nil
}

// ListVenues returns discovery summaries subject to visibility: public
// venues are listed for everyone, the rest only for their owner and for
// moderators.
func (r *Registry) ListVenues(ctx context.Context, requester *domain.UserRecord) ([]domain.VenueSummary, error) {
	records, err := r.venueRepo.ListVenues(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]domain.VenueSummary, 0, len(records))
	for _, rec := range records {
		if !r.mayList(rec, requester) {
			continue
		}
		summary := domain.VenueSummary{
			VenueID:      rec.VenueID,
			Name:         rec.Name,
			Visibility:   rec.Visibility,
			StreamActive: rec.StreamIsActive(now),
		}
		r.mu.Lock()
		if v, loaded := r.venues[rec.VenueID]; loaded {
			summary.Loaded = true
			summary.ClientCount = v.ClientCount()
		}
		r.mu.Unlock()
		out = append(out, summary)
	}
	return out, nil
}

func (r *Registry) mayList(record *domain.VenueRecord, requester *domain.UserRecord) bool {
	if record.Visibility == domain.VisibilityPublic {
		return true
	}
	if requester == nil {
		return false
	}
	return record.OwnerUserID == requester.UserID ||
		domain.HasAtLeastSecurityLevel(requester.Role, domain.RoleModerator)
}

// removeVenue drops an unloaded venue from the registry. Called by the
// venue itself at the end of its unload sequence.
func (r *Registry) removeVenue(id domain.VenueID) {
	r.mu.Lock()
	delete(r.venues, id)
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.RecordVenueUnloaded(id)
	}
	if r.coord != nil {
		if err := r.coord.ReleaseVenue(context.Background(), id); err != nil {
			r.log.Warnw("failed to release venue claim", "venueId", id, "error", err)
		}
	}
}
