package ports

import "github.com/Muab01/samVR/internal/core/domain"

// Notifier delivers server-initiated events to one connected client. Every
// method is fire-and-forget: implementations must not block the caller and
// must swallow delivery failures. The venue layer tolerates a nil Notifier
// on any client, in which case the event is silently dropped.
type Notifier interface {
	// VenueStateUpdated carries the public projection plus the reason the
	// state changed.
	VenueStateUpdated(state *domain.VenueState, reason string)
	// VenueStateUpdatedAdminOnly carries the admin projection. Only sent
	// to clients with moderator privileges or above.
	VenueStateUpdatedAdminOnly(state *domain.VenueAdminState, reason string)
	VenueWasUnloaded(venueID domain.VenueID)
	CameraStateUpdated(state *domain.CameraState, reason string)
	VrSpaceStateUpdated(state *domain.VrSpaceState, reason string)
	// ClientTransforms delivers a coalesced batch of vr space transforms.
	ClientTransforms(transforms domain.Transforms)
	// ClientStateUpdated informs a client about its own projection.
	ClientStateUpdated(state *domain.ClientState, reason string)
	// ObjectClosed reports that a server-side media object (transport,
	// producer or consumer) was closed outside a client request.
	ObjectClosed(objectType string, id string, reason string)
	ConsumerPausedOrResumed(consumerID domain.ConsumerID, paused bool)
	ProducerPausedOrResumed(producerID domain.ProducerID, paused bool)
	// StartProduceRequested nudges a sender to begin producing media for
	// the camera it was attached to.
	StartProduceRequested(cameraID domain.CameraID)
}
