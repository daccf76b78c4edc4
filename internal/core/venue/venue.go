package venue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// Venue is the aggregate root for one loaded venue: its clients, cameras
// and vr space, plus the media routing context they all share. One mutex
// guards the whole aggregate; notifier calls may happen while it is held
// because notifiers are required to be non-blocking.
type Venue struct {
	registry   *Registry
	rc         ports.RoutingContext
	venueRepo  ports.VenueRepository
	cameraRepo ports.CameraRepository
	log        *zap.SugaredLogger

	maxIncomingBitrate int

	mu                   sync.Mutex
	record               domain.VenueRecord
	clients              map[domain.ConnectionID]*Client
	senders              map[domain.ConnectionID]*Client
	cameras              map[domain.CameraID]*Camera
	vrSpace              *VrSpace
	mainAudioCameraID    *domain.CameraID
	detachedSendersDirty bool
	unloaded             bool
}

func newVenue(registry *Registry, rc ports.RoutingContext, record domain.VenueRecord, flushInterval time.Duration) *Venue {
	v := &Venue{
		registry:           registry,
		rc:                 rc,
		venueRepo:          registry.venueRepo,
		cameraRepo:         registry.cameraRepo,
		log:                registry.log.With("venueId", record.VenueID),
		maxIncomingBitrate: registry.maxIncomingBitrate,
		record:             record,
		clients:            make(map[domain.ConnectionID]*Client),
		senders:            make(map[domain.ConnectionID]*Client),
		cameras:            make(map[domain.CameraID]*Camera),
	}
	if record.VrSpaceID != nil {
		v.vrSpace = newVrSpace(*record.VrSpaceID, record.VenueID, flushInterval, registry.metrics, v.log)
	}
	return v
}

func (v *Venue) ID() domain.VenueID { return v.record.VenueID }

// Record returns a copy of the venue's persisted record.
func (v *Venue) Record() domain.VenueRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.record
}

// ClientCount returns the number of connected clients, senders included.
func (v *Venue) ClientCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clients) + len(v.senders)
}

// AddClient joins a connected client to the venue. A second sender with an
// already-connected senderId is rejected. Senders are matched against
// cameras persisted with their senderId.
func (v *Venue) AddClient(c *Client) error {
	if c.venueRef() != nil {
		return domain.ErrVenueAlreadyJoined
	}

	v.mu.Lock()
	if v.unloaded {
		v.mu.Unlock()
		return domain.ErrVenueNotLoaded
	}
	switch c.clientType {
	case domain.ClientTypeSender:
		if c.senderID == "" {
			v.mu.Unlock()
			return domain.ErrSenderWithoutID
		}
		for _, other := range v.senders {
			if other.senderID == c.senderID {
				v.mu.Unlock()
				return domain.ErrDuplicateSender
			}
		}
		v.senders[c.connectionID] = c
	default:
		v.clients[c.connectionID] = c
	}
	c.setVenue(v, v.onClientProducersChanged)
	v.detachedSendersDirty = true

	if c.clientType == domain.ClientTypeSender {
		v.tryMatchCameraLocked(c)
	}
	v.notifyStateLocked(c, "client joined venue")
	v.notifySelfLocked(c, "joined venue")
	v.mu.Unlock()

	v.log.Infow("client joined venue", "connectionId", c.connectionID, "clientType", c.clientType)
	return nil
}

// RemoveClient disconnects a client from the venue: camera and vr space
// membership are dropped, all media is torn down, and the venue unloads
// itself once the last client is gone.
func (v *Venue) RemoveClient(c *Client) {
	v.mu.Lock()
	if _, isViewer := v.clients[c.connectionID]; !isViewer {
		if _, isSender := v.senders[c.connectionID]; !isSender {
			v.mu.Unlock()
			return
		}
	}

	if c.currentCamera != nil {
		c.currentCamera.removeClient(c)
	}
	if v.vrSpace != nil && c.inVrSpace {
		c.inVrSpace = false
		v.vrSpace.removeClient(c)
	}
	if c.attachedCamera != nil {
		c.attachedCamera.unsetSender()
	}
	delete(v.clients, c.connectionID)
	delete(v.senders, c.connectionID)
	v.detachedSendersDirty = true

	producerIDs := c.producerIDs()
	for id := range producerIDs {
		v.closeAllConsumersOfProducerLocked(id)
	}
	empty := len(v.clients) == 0 && len(v.senders) == 0
	if !empty {
		v.notifyStateLocked(nil, "client left venue")
	}
	v.mu.Unlock()

	c.setVenue(nil, nil)
	c.CloseAllMedia()
	v.log.Infow("client left venue", "connectionId", c.connectionID)

	if empty {
		v.unload("last client left")
	}
}

// closeAllConsumersOfProducerLocked closes every consumer in the venue fed
// by the given producer.
func (v *Venue) closeAllConsumersOfProducerLocked(producerID domain.ProducerID) {
	ids := map[domain.ProducerID]struct{}{producerID: {}}
	for _, viewer := range v.clients {
		viewer.closeConsumersOfProducers(ids)
	}
	for _, sender := range v.senders {
		sender.closeConsumersOfProducers(ids)
	}
}

// unload tears the venue down and removes it from the registry. Clients
// still connected are notified and detached.
func (v *Venue) unload(reason string) {
	v.mu.Lock()
	if v.unloaded {
		v.mu.Unlock()
		return
	}
	v.unloaded = true

	remaining := make([]*Client, 0, len(v.clients)+len(v.senders))
	for _, c := range v.clients {
		remaining = append(remaining, c)
	}
	for _, c := range v.senders {
		remaining = append(remaining, c)
	}
	v.clients = make(map[domain.ConnectionID]*Client)
	v.senders = make(map[domain.ConnectionID]*Client)
	for _, cam := range v.cameras {
		cam.close()
	}
	v.cameras = make(map[domain.CameraID]*Camera)
	vs := v.vrSpace
	v.mu.Unlock()

	if vs != nil {
		vs.close()
	}
	for _, c := range remaining {
		c.setVenue(nil, nil)
		c.CloseAllMedia()
		if c.notifier != nil {
			c.notifier.VenueWasUnloaded(v.record.VenueID)
		}
	}
	if err := v.rc.Close(); err != nil {
		v.log.Warnw("failed to close routing context", "error", err)
	}
	v.registry.removeVenue(v.record.VenueID)
	v.log.Infow("venue unloaded", "reason", reason)
}

// Unload force-unloads the venue regardless of connected clients.
func (v *Venue) Unload(reason string) {
	v.unload(reason)
}

// onClientProducersChanged rebroadcasts whatever state the changed
// producer feeds into: the attached camera for senders, the vr space for
// members, and the venue state when the camera is the main camera or
// carries the venue's main audio.
func (v *Venue) onClientProducersChanged(c *Client) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unloaded {
		return
	}
	if cam := c.attachedCamera; cam != nil {
		cam.notifyState("producers changed")
		v.updateMainAudioLocked(cam)
		isMain := v.record.MainCameraID != nil && *v.record.MainCameraID == cam.record.CameraID
		isMainAudio := v.mainAudioCameraID != nil && *v.mainAudioCameraID == cam.record.CameraID
		if isMain || isMainAudio {
			v.notifyStateLocked(nil, "main camera producers changed")
		}
	}
	if c.inVrSpace && v.vrSpace != nil {
		v.vrSpace.notifyState("producers changed")
	}
	v.notifySelfLocked(c, "producers changed")
}

// updateMainAudioLocked promotes a camera to the venue's main audio
// source once its sender is producing audio. Whichever camera last
// started audio wins.
func (v *Venue) updateMainAudioLocked(cam *Camera) {
	if cam.sender == nil || cam.sender.publicProducers().Audio == nil {
		return
	}
	if v.mainAudioCameraID != nil && *v.mainAudioCameraID == cam.record.CameraID {
		return
	}
	id := cam.record.CameraID
	v.mainAudioCameraID = &id
}

// CreateMediaTransport creates a transport for the client on the venue's
// routing context.
func (v *Venue) CreateMediaTransport(ctx context.Context, c *Client, direction domain.TransportDirection) (ports.TransportInfo, error) {
	transport, err := c.CreateTransport(ctx, v.rc, direction, v.maxIncomingBitrate)
	if err != nil {
		return ports.TransportInfo{}, err
	}
	return transport.Info(), nil
}

// CreateConsumer creates (or finds) the client's consumer for a producer
// that lives somewhere in the venue.
func (v *Venue) CreateConsumer(ctx context.Context, c *Client, producerID domain.ProducerID, paused bool) (*ConsumeResult, error) {
	v.mu.Lock()
	owner := v.findProducerOwnerLocked(producerID)
	v.mu.Unlock()
	if owner == nil {
		return nil, domain.ErrProducerNotFound
	}
	return c.CreateConsumer(ctx, v.rc, producerID, paused)
}

func (v *Venue) findProducerOwnerLocked(producerID domain.ProducerID) *Client {
	for _, c := range v.clients {
		if c.hasProducer(producerID) {
			return c
		}
	}
	for _, c := range v.senders {
		if c.hasProducer(producerID) {
			return c
		}
	}
	return nil
}

// JoinCamera places a viewer into a loaded camera and returns the camera's
// state so the caller can start consuming.
func (v *Venue) JoinCamera(viewer *Client, cameraID domain.CameraID) (*domain.CameraState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cam, ok := v.cameras[cameraID]
	if !ok {
		return nil, domain.ErrCameraNotFound
	}
	cam.addClient(viewer)
	return cam.state(), nil
}

// LeaveCamera removes a viewer from its current camera.
func (v *Venue) LeaveCamera(viewer *Client) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	cam := viewer.currentCamera
	if cam == nil {
		return domain.ErrClientNotInCamera
	}
	cam.removeClient(viewer)
	return nil
}

// JoinVrSpace places a viewer inside the venue's vr space. Sender
// devices have no presence there and are rejected.
func (v *Venue) JoinVrSpace(viewer *Client) (*domain.VrSpaceState, error) {
	if viewer.clientType == domain.ClientTypeSender {
		return nil, domain.ErrSenderInVrSpace
	}
	v.mu.Lock()
	if v.vrSpace == nil {
		v.mu.Unlock()
		return nil, domain.ErrVrSpaceNotFound
	}
	viewer.inVrSpace = true
	vs := v.vrSpace
	v.mu.Unlock()

	vs.addClient(viewer)
	return vs.state(), nil
}

// LeaveVrSpace removes a viewer from the vr space. Leaving twice is a
// no-op.
func (v *Venue) LeaveVrSpace(viewer *Client) {
	v.mu.Lock()
	if v.vrSpace == nil || !viewer.inVrSpace {
		v.mu.Unlock()
		return
	}
	viewer.inVrSpace = false
	vs := v.vrSpace
	v.mu.Unlock()

	vs.removeClient(viewer)
}

// SubmitTransform records a vr space member's pose for the next coalesced
// broadcast. Non-members are ignored.
func (v *Venue) SubmitTransform(c *Client, transform domain.Transform) {
	v.mu.Lock()
	vs := v.vrSpace
	member := vs != nil && c.inVrSpace
	v.mu.Unlock()
	if !member {
		return
	}
	c.setTransform(transform)
	vs.SubmitTransform(c.connectionID, transform)
}

// tryMatchCameraLocked attaches a freshly joined sender to the camera that
// was persisted with its senderId, if that camera is loaded and free.
func (v *Venue) tryMatchCameraLocked(sender *Client) {
	for _, cam := range v.cameras {
		if cam.record.SenderID != "" && cam.record.SenderID == sender.senderID {
			if err := cam.setSender(sender); err != nil {
				v.log.Warnw("could not attach matched sender", "cameraId", cam.record.CameraID, "error", err)
			}
			return
		}
	}
}

// loadCameraLocked instantiates a camera from its record and matches it
// against already-connected senders.
func (v *Venue) loadCameraLocked(record domain.CameraRecord) (*Camera, error) {
	if _, exists := v.cameras[record.CameraID]; exists {
		return nil, domain.ErrCameraAlreadyLoaded
	}
	cam := newCamera(v, record)
	v.cameras[record.CameraID] = cam
	if record.SenderID != "" {
		for _, sender := range v.senders {
			if sender.senderID == record.SenderID && sender.attachedCamera == nil {
				if err := cam.setSender(sender); err != nil {
					v.log.Warnw("could not attach sender to loaded camera", "cameraId", record.CameraID, "error", err)
				}
				break
			}
		}
	}
	return cam, nil
}

// CreateCamera persists a new camera and loads it into the venue.
func (v *Venue) CreateCamera(ctx context.Context, name string, cameraType domain.CameraType, senderID domain.SenderID) (*domain.CameraState, error) {
	if cameraType == "" {
		cameraType = domain.CameraTypeNormal
	}
	record := domain.CameraRecord{
		CameraID:   domain.NewCameraID(),
		VenueID:    v.record.VenueID,
		Name:       name,
		SenderID:   senderID,
		CameraType: cameraType,
		FOVStart:   0,
		FOVEnd:     360,
	}
	if err := v.cameraRepo.CreateCamera(ctx, &record); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	cam, err := v.loadCameraLocked(record)
	if err != nil {
		return nil, err
	}
	v.notifyStateLocked(nil, "camera created")
	return cam.state(), nil
}

// DeleteCamera removes a camera from persistence and the running venue.
// Cameras holding portals into the deleted one are reloaded so their
// dangling edges disappear.
func (v *Venue) DeleteCamera(ctx context.Context, cameraID domain.CameraID) error {
	affected, err := v.cameraRepo.ListCamerasWithPortalTo(ctx, cameraID)
	if err != nil {
		return err
	}
	if err := v.cameraRepo.DeleteCamera(ctx, cameraID); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if cam, ok := v.cameras[cameraID]; ok {
		cam.close()
		delete(v.cameras, cameraID)
	}
	if v.record.MainCameraID != nil && *v.record.MainCameraID == cameraID {
		v.record.MainCameraID = nil
		if err := v.venueRepo.UpdateVenue(ctx, &v.record); err != nil {
			v.log.Warnw("failed to clear main camera", "error", err)
		}
	}
	if v.mainAudioCameraID != nil && *v.mainAudioCameraID == cameraID {
		v.mainAudioCameraID = nil
	}
	for _, rec := range affected {
		if rec.CameraID == cameraID {
			continue
		}
		fresh, err := v.cameraRepo.GetCamera(ctx, rec.CameraID)
		if err != nil {
			v.log.Warnw("failed to reload camera after portal removal", "cameraId", rec.CameraID, "error", err)
			continue
		}
		if cam, ok := v.cameras[rec.CameraID]; ok {
			cam.record = *fresh
			cam.notifyState("portal target deleted")
		}
	}
	v.notifyStateLocked(nil, "camera deleted")
	return nil
}

// UpdateCamera persists edits to a camera's view metadata and rebroadcasts
// its state.
func (v *Venue) UpdateCamera(ctx context.Context, record domain.CameraRecord) (*domain.CameraState, error) {
	v.mu.Lock()
	cam, ok := v.cameras[record.CameraID]
	if !ok {
		v.mu.Unlock()
		return nil, domain.ErrCameraNotFound
	}
	record.VenueID = v.record.VenueID
	record.SenderID = cam.record.SenderID
	record.Portals = cam.record.Portals
	v.mu.Unlock()

	if err := v.cameraRepo.UpdateCamera(ctx, &record); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	cam.record = record
	cam.notifyState("camera updated")
	return cam.state(), nil
}

// SetPortal creates or updates a directed portal between two loaded
// cameras.
func (v *Venue) SetPortal(ctx context.Context, portal domain.CameraPortalRecord) error {
	v.mu.Lock()
	from, fromOK := v.cameras[portal.FromCameraID]
	_, toOK := v.cameras[portal.ToCameraID]
	v.mu.Unlock()
	if !fromOK || !toOK {
		return domain.ErrCameraNotFound
	}
	if err := v.cameraRepo.SetPortal(ctx, &portal); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	replaced := false
	for i, p := range from.record.Portals {
		if p.ToCameraID == portal.ToCameraID {
			from.record.Portals[i] = portal
			replaced = true
			break
		}
	}
	if !replaced {
		from.record.Portals = append(from.record.Portals, portal)
	}
	from.notifyState("portal updated")
	return nil
}

// DeletePortal removes a portal edge.
func (v *Venue) DeletePortal(ctx context.Context, fromID, toID domain.CameraID) error {
	v.mu.Lock()
	from, ok := v.cameras[fromID]
	v.mu.Unlock()
	if !ok {
		return domain.ErrCameraNotFound
	}
	if err := v.cameraRepo.DeletePortal(ctx, fromID, toID); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	portals := from.record.Portals[:0]
	for _, p := range from.record.Portals {
		if p.ToCameraID != toID {
			portals = append(portals, p)
		}
	}
	from.record.Portals = portals
	from.notifyState("portal deleted")
	return nil
}

// SetSenderForCamera attaches a connected sender (found by its stable
// senderId) to a camera and persists the pairing so future connections
// auto-match.
func (v *Venue) SetSenderForCamera(ctx context.Context, cameraID domain.CameraID, senderID domain.SenderID) error {
	v.mu.Lock()
	cam, ok := v.cameras[cameraID]
	if !ok {
		v.mu.Unlock()
		return domain.ErrCameraNotFound
	}
	var sender *Client
	for _, s := range v.senders {
		if s.senderID == senderID {
			sender = s
			break
		}
	}
	if sender == nil {
		v.mu.Unlock()
		return domain.ErrSenderNotFound
	}
	if err := cam.setSender(sender); err != nil {
		v.mu.Unlock()
		return err
	}
	cam.record.SenderID = senderID
	record := cam.record
	v.mu.Unlock()

	return v.cameraRepo.UpdateCamera(ctx, &record)
}

// DetachSenderFromCamera detaches a camera's sender and clears the
// persisted pairing.
func (v *Venue) DetachSenderFromCamera(ctx context.Context, cameraID domain.CameraID) error {
	v.mu.Lock()
	cam, ok := v.cameras[cameraID]
	if !ok {
		v.mu.Unlock()
		return domain.ErrCameraNotFound
	}
	cam.unsetSender()
	cam.record.SenderID = ""
	record := cam.record
	v.mu.Unlock()

	return v.cameraRepo.UpdateCamera(ctx, &record)
}

// RequestStartProduce asks the camera's attached sender to start its
// producers. A sender also gets this nudge automatically on attach; this
// re-sends it for senders that missed or ignored it.
func (v *Venue) RequestStartProduce(cameraID domain.CameraID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	cam, ok := v.cameras[cameraID]
	if !ok {
		return domain.ErrCameraNotFound
	}
	if cam.sender == nil {
		return domain.ErrSenderNotFound
	}
	if cam.sender.notifier != nil {
		cam.sender.notifier.StartProduceRequested(cameraID)
	}
	return nil
}

// SetMainCamera marks one loaded camera as the venue's main camera.
func (v *Venue) SetMainCamera(ctx context.Context, cameraID domain.CameraID) error {
	v.mu.Lock()
	if _, ok := v.cameras[cameraID]; !ok {
		v.mu.Unlock()
		return domain.ErrCameraNotFound
	}
	id := cameraID
	v.record.MainCameraID = &id
	record := v.record
	v.notifyStateLocked(nil, "main camera changed")
	v.mu.Unlock()

	return v.venueRepo.UpdateVenue(ctx, &record)
}

// Rename changes the venue's display name.
func (v *Venue) Rename(ctx context.Context, name string) error {
	v.mu.Lock()
	v.record.Name = name
	record := v.record
	v.notifyStateLocked(nil, "venue renamed")
	v.mu.Unlock()

	return v.venueRepo.UpdateVenue(ctx, &record)
}

// SetStreamActive manually starts or ends the venue's stream.
func (v *Venue) SetStreamActive(ctx context.Context, active bool) error {
	v.mu.Lock()
	if active {
		v.record.StreamManuallyStarted = true
		v.record.StreamManuallyEnded = false
	} else {
		v.record.StreamManuallyEnded = true
	}
	record := v.record
	v.notifyStateLocked(nil, "stream state changed")
	v.mu.Unlock()

	return v.venueRepo.UpdateVenue(ctx, &record)
}

// clientStateLocked builds one client's projection.
func (v *Venue) clientStateLocked(c *Client) *domain.ClientState {
	state := &domain.ClientState{
		ConnectionID: c.connectionID,
		UserID:       c.user.UserID,
		Username:     c.user.Username,
		Role:         c.user.Role,
		ClientType:   c.clientType,
		Producers:    c.publicProducers(),
	}
	switch c.clientType {
	case domain.ClientTypeSender:
		id := c.senderID
		state.SenderID = &id
	default:
		if c.currentCamera != nil {
			id := c.currentCamera.record.CameraID
			state.CurrentCameraID = &id
		}
		if c.inVrSpace && v.vrSpace != nil {
			id := v.vrSpace.id
			state.CurrentVrSpaceID = &id
		}
		state.Transform = c.transformCopy()
	}
	return state
}

// stateLocked builds the public projection.
func (v *Venue) stateLocked() *domain.VenueState {
	clients := make(map[domain.ConnectionID]*domain.ClientState, len(v.clients))
	for id, c := range v.clients {
		clients[id] = v.clientStateLocked(c)
	}
	cameras := make(map[domain.CameraID]*domain.CameraState, len(v.cameras))
	for id, cam := range v.cameras {
		cameras[id] = cam.state()
	}
	return &domain.VenueState{
		VenueID:             v.record.VenueID,
		Name:                v.record.Name,
		Visibility:          v.record.Visibility,
		StreamActive:        v.record.StreamIsActive(time.Now()),
		MainCameraID:        v.record.MainCameraID,
		MainAudioProducerID: v.mainAudioProducerIDLocked(),
		VrSpaceID:           v.record.VrSpaceID,
		Clients:             clients,
		Cameras:             cameras,
	}
}

// mainAudioProducerIDLocked derives the live producer id behind the main
// audio camera. Nil whenever the camera is gone, detached or silent.
func (v *Venue) mainAudioProducerIDLocked() *domain.ProducerID {
	if v.mainAudioCameraID == nil {
		return nil
	}
	cam, ok := v.cameras[*v.mainAudioCameraID]
	if !ok || cam.sender == nil {
		return nil
	}
	audio := cam.sender.publicProducers().Audio
	if audio == nil {
		return nil
	}
	id := audio.ProducerID
	return &id
}

// adminStateLocked builds the moderator projection, adding senders not yet
// attached to a camera.
func (v *Venue) adminStateLocked() *domain.VenueAdminState {
	detached := make(map[domain.ConnectionID]*domain.ClientState)
	for id, sender := range v.senders {
		if sender.attachedCamera == nil {
			detached[id] = v.clientStateLocked(sender)
		}
	}
	v.detachedSendersDirty = false
	return &domain.VenueAdminState{
		VenueState:      *v.stateLocked(),
		DetachedSenders: detached,
	}
}

// PublicState returns the venue projection visible to every participant.
func (v *Venue) PublicState() *domain.VenueState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

// AdminState returns the moderator projection.
func (v *Venue) AdminState() *domain.VenueAdminState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.adminStateLocked()
}

// ClientState returns the given client's own projection.
func (v *Venue) ClientState(c *Client) *domain.ClientState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clientStateLocked(c)
}

// notifyStateLocked fans the venue state out to everyone connected.
// Moderators get the admin projection; the skipped client (usually the one
// whose request produced the change) gets nothing.
func (v *Venue) notifyStateLocked(skip *Client, reason string) {
	var public *domain.VenueState
	var admin *domain.VenueAdminState
	deliver := func(c *Client) {
		if c == skip || c.notifier == nil {
			return
		}
		if c.IsModerator() {
			if admin == nil {
				admin = v.adminStateLocked()
			}
			c.notifier.VenueStateUpdatedAdminOnly(admin, reason)
			return
		}
		if public == nil {
			public = v.stateLocked()
		}
		c.notifier.VenueStateUpdated(public, reason)
	}
	for _, c := range v.clients {
		deliver(c)
	}
	for _, c := range v.senders {
		deliver(c)
	}
}

func (v *Venue) notifySelfLocked(c *Client, reason string) {
	if c.notifier == nil {
		return
	}
	c.notifier.ClientStateUpdated(v.clientStateLocked(c), reason)
}
