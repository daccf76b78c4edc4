package venue

import (
	"github.com/Muab01/samVR/internal/core/domain"
)

// Camera is a loaded viewpoint inside a venue. All fields are guarded by
// the owning venue's mutex; every method below assumes it is held.
type Camera struct {
	record  domain.CameraRecord
	venue   *Venue
	sender  *Client
	clients map[domain.ConnectionID]*Client
}

func newCamera(v *Venue, record domain.CameraRecord) *Camera {
	return &Camera{
		record:  record,
		venue:   v,
		clients: make(map[domain.ConnectionID]*Client),
	}
}

func (cam *Camera) ID() domain.CameraID { return cam.record.CameraID }

// setSender attaches a sender to the camera. Attaching while a sender is
// already set is an invariant violation; the sender must be detached
// first.
func (cam *Camera) setSender(sender *Client) error {
	if cam.sender != nil {
		return domain.ErrCameraHasSender
	}
	cam.sender = sender
	sender.attachedCamera = cam
	cam.venue.detachedSendersDirty = true
	cam.notifyState("sender attached")
	if sender.notifier != nil {
		sender.notifier.StartProduceRequested(cam.record.CameraID)
	}
	return nil
}

// unsetSender detaches the current sender, if any.
func (cam *Camera) unsetSender() {
	if cam.sender == nil {
		return
	}
	cam.sender.attachedCamera = nil
	cam.sender = nil
	cam.venue.detachedSendersDirty = true
	cam.notifyState("sender detached")
}

// isStreaming reports whether the camera has an attached sender with a
// live video or audio producer.
func (cam *Camera) isStreaming() bool {
	if cam.sender == nil {
		return false
	}
	producers := cam.sender.publicProducers()
	return producers.Video != nil || producers.Audio != nil
}

// addClient moves a viewer into the camera, removing it from its previous
// camera first. The joining viewer is skipped in the resulting state
// notification since it receives the full payload as the call response.
func (cam *Camera) addClient(viewer *Client) {
	if prev := viewer.currentCamera; prev != nil && prev != cam {
		prev.removeClient(viewer)
	}
	cam.clients[viewer.connectionID] = viewer
	viewer.currentCamera = cam
	cam.notifyStateSkipping(viewer, "client joined camera")
}

// removeClient takes a viewer out of the camera and closes the viewer's
// consumers of this camera's producers.
func (cam *Camera) removeClient(viewer *Client) {
	if _, ok := cam.clients[viewer.connectionID]; !ok {
		return
	}
	delete(cam.clients, viewer.connectionID)
	viewer.currentCamera = nil
	if cam.sender != nil {
		viewer.closeConsumersOfProducers(cam.sender.producerIDs())
	}
	cam.notifyState("client left camera")
}

// producerFor returns the id of the camera's producer of the given kind,
// if the attached sender is producing one.
func (cam *Camera) producerFor(kind domain.MediaKind) (domain.ProducerID, bool) {
	if cam.sender == nil {
		return "", false
	}
	producers := cam.sender.publicProducers()
	var view *domain.ProducerView
	switch kind {
	case domain.MediaVideo:
		view = producers.Video
	case domain.MediaAudio:
		view = producers.Audio
	}
	if view == nil {
		return "", false
	}
	return view.ProducerID, true
}

// state builds the camera's public projection.
func (cam *Camera) state() *domain.CameraState {
	clients := make([]domain.ConnectionID, 0, len(cam.clients))
	for id := range cam.clients {
		clients = append(clients, id)
	}
	var producers domain.PublicProducers
	if cam.sender != nil {
		producers = cam.sender.publicProducers()
	}
	portals := make([]domain.CameraPortalRecord, len(cam.record.Portals))
	copy(portals, cam.record.Portals)
	return &domain.CameraState{
		CameraID:       cam.record.CameraID,
		VenueID:        cam.record.VenueID,
		Name:           cam.record.Name,
		CameraType:     cam.record.CameraType,
		ViewOriginX:    cam.record.ViewOriginX,
		ViewOriginY:    cam.record.ViewOriginY,
		FOVStart:       cam.record.FOVStart,
		FOVEnd:         cam.record.FOVEnd,
		Orientation:    cam.record.Orientation,
		SenderAttached: cam.sender != nil,
		IsStreaming:    cam.isStreaming(),
		Producers:      producers,
		Portals:        portals,
		Clients:        clients,
	}
}

func (cam *Camera) notifyState(reason string) {
	cam.notifyStateSkipping(nil, reason)
}

func (cam *Camera) notifyStateSkipping(skip *Client, reason string) {
	state := cam.state()
	for _, viewer := range cam.clients {
		if viewer == skip || viewer.notifier == nil {
			continue
		}
		viewer.notifier.CameraStateUpdated(state, reason)
	}
}

// close detaches everyone from the camera before it is dropped from the
// venue.
func (cam *Camera) close() {
	for _, viewer := range cam.clients {
		delete(cam.clients, viewer.connectionID)
		viewer.currentCamera = nil
		if cam.sender != nil {
			viewer.closeConsumersOfProducers(cam.sender.producerIDs())
		}
	}
	cam.unsetSender()
}
