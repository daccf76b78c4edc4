package domain

import "errors"

// Expected, recoverable-by-caller conditions. The transport boundary maps
// these onto the wire error taxonomy.
var (
	ErrVenueNotFound    = errors.New("venue not found")
	ErrVenueNotLoaded   = errors.New("venue is not loaded")
	ErrCameraNotFound   = errors.New("camera not found")
	ErrSenderNotFound   = errors.New("sender not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrProducerNotFound = errors.New("producer not found")
	ErrConsumerNotFound = errors.New("consumer not found")
	ErrVrSpaceNotFound  = errors.New("venue has no vr space")

	// ErrVenueNotStarted: a non-owner tried to load a venue before its
	// scheduled start time has passed.
	ErrVenueNotStarted = errors.New("venue has not started and requester is not the owner")

	// ErrDuplicateSender: a sender with the same senderId is already
	// connected to the venue.
	ErrDuplicateSender = errors.New("a sender with that senderId is already connected")

	// Precondition failures on media operations.
	ErrNoSendTransport      = errors.New("no send transport exists")
	ErrNoReceiveTransport   = errors.New("no receive transport exists")
	ErrTransportExists      = errors.New("a transport for that direction already exists")
	ErrProducerExists       = errors.New("a producer of that kind already exists")
	ErrCapabilitiesUnknown  = errors.New("client media capabilities are unknown")
	ErrCannotConsume        = errors.New("client capabilities rejected for that producer")
	ErrNotInVenue           = errors.New("client is not in a venue")
	ErrCameraAlreadyLoaded  = errors.New("a camera with that id is already loaded")
	ErrCameraHasSender      = errors.New("camera already has a sender attached")
	ErrSenderWithoutID      = errors.New("sender client has no senderId")
	ErrClientNotInCamera    = errors.New("client is not in a camera")
	ErrVenueAlreadyJoined   = errors.New("client is already in a venue")
	ErrSenderInVrSpace      = errors.New("sender clients cannot join the vr space")
	ErrVisibilityRestricted = errors.New("venue is not visible to the requesting user")
)
