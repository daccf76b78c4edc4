package signal

import (
	"encoding/json"
	"errors"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/services"
	apperrors "github.com/Muab01/samVR/pkg/errors"
)

// Request is a client-initiated call. RequestID correlates the eventual
// response; methods are dispatched by name.
type Request struct {
	RequestID string          `json:"requestId"`
	Method    string          `json:"method"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response answers exactly one request.
type Response struct {
	RequestID string      `json:"requestId"`
	Success   bool        `json:"success"`
	Payload   interface{} `json:"payload,omitempty"`
	Error     *WireError  `json:"error,omitempty"`
}

// Event is a server push outside any request/response pair.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// WireError is the client-facing error shape.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toWireError maps internal errors onto the wire taxonomy. Invariant
// violations and unknown errors are masked.
func toWireError(err error) *WireError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return &WireError{Code: string(appErr.Code), Message: appErr.PublicMessage()}
	}

	code := apperrors.ErrCodeInternal
	switch {
	case errors.Is(err, domain.ErrVenueNotFound),
		errors.Is(err, domain.ErrCameraNotFound),
		errors.Is(err, domain.ErrSenderNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProducerNotFound),
		errors.Is(err, domain.ErrConsumerNotFound),
		errors.Is(err, domain.ErrVrSpaceNotFound):
		code = apperrors.ErrCodeNotFound
	case errors.Is(err, domain.ErrVenueNotLoaded),
		errors.Is(err, domain.ErrNoSendTransport),
		errors.Is(err, domain.ErrNoReceiveTransport),
		errors.Is(err, domain.ErrCapabilitiesUnknown),
		errors.Is(err, domain.ErrCannotConsume),
		errors.Is(err, domain.ErrNotInVenue),
		errors.Is(err, domain.ErrClientNotInCamera),
		errors.Is(err, domain.ErrSenderWithoutID),
		errors.Is(err, domain.ErrSenderInVrSpace),
		errors.Is(err, domain.ErrVenueNotStarted):
		code = apperrors.ErrCodePrecondition
	case errors.Is(err, domain.ErrDuplicateSender),
		errors.Is(err, domain.ErrTransportExists),
		errors.Is(err, domain.ErrProducerExists),
		errors.Is(err, domain.ErrVenueAlreadyJoined),
		errors.Is(err, domain.ErrCameraAlreadyLoaded):
		code = apperrors.ErrCodeConflict
	case errors.Is(err, domain.ErrCameraHasSender):
		code = apperrors.ErrCodeInvariantViolation
	case errors.Is(err, domain.ErrVisibilityRestricted),
		errors.Is(err, services.ErrUnauthorized):
		code = apperrors.ErrCodeForbidden
	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrExpiredToken):
		code = apperrors.ErrCodeUnauthorized
	}

	message := err.Error()
	if code == apperrors.ErrCodeInternal || code == apperrors.ErrCodeInvariantViolation {
		message = "internal error"
	}
	return &WireError{Code: string(code), Message: message}
}

// Event names pushed by the server.
const (
	eventVenueStateUpdated      = "venueStateUpdated"
	eventVenueStateUpdatedAdmin = "venueStateUpdatedAdminOnly"
	eventVenueWasUnloaded       = "venueWasUnloaded"
	eventCameraStateUpdated     = "cameraStateUpdated"
	eventVrSpaceStateUpdated    = "vrSpaceStateUpdated"
	eventClientTransforms       = "clientTransforms"
	eventClientStateUpdated     = "clientStateUpdated"
	eventObjectClosed           = "objectClosed"
	eventConsumerPausedResumed  = "consumerPausedOrResumed"
	eventProducerPausedResumed  = "producerPausedOrResumed"
	eventStartProduceRequested  = "startProduceRequested"
)
