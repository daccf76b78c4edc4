package ports

import (
	"context"

	"github.com/Muab01/samVR/internal/core/domain"
)

// RtpCapabilities describes what a client endpoint can receive. The
// orchestration layer treats it as opaque apart from the codec list used
// for the consume compatibility check.
type RtpCapabilities struct {
	Codecs []RtpCodecCapability `json:"codecs"`
}

// RtpCodecCapability is a single negotiable codec.
type RtpCodecCapability struct {
	MimeType  string `json:"mimeType"`
	ClockRate uint32 `json:"clockRate"`
	Channels  uint16 `json:"channels,omitempty"`
}

// TransportConnectParams carries the client's answer for transport setup.
// The payload is engine-specific and forwarded verbatim.
type TransportConnectParams struct {
	DTLSParameters []byte `json:"dtlsParameters"`
}

// TransportInfo is returned to the client so it can connect its side.
type TransportInfo struct {
	TransportID    domain.TransportID `json:"transportId"`
	ICEParameters  []byte             `json:"iceParameters"`
	ICECandidates  []byte             `json:"iceCandidates"`
	DTLSParameters []byte             `json:"dtlsParameters"`
}

// ProduceParams carries everything the engine needs to create a producer.
type ProduceParams struct {
	Kind          domain.MediaKind `json:"kind"`
	RtpParameters []byte           `json:"rtpParameters"`
	Paused        bool             `json:"paused"`
}

// ConsumerInfo is returned to the client so it can attach the consumer.
type ConsumerInfo struct {
	ConsumerID    domain.ConsumerID `json:"consumerId"`
	ProducerID    domain.ProducerID `json:"producerId"`
	Kind          domain.MediaKind  `json:"kind"`
	RtpParameters []byte            `json:"rtpParameters"`
	Paused        bool              `json:"paused"`
}

// MediaEngine is the port to the media plane. One routing context is
// created per loaded venue; all transports of that venue's clients hang
// off it.
type MediaEngine interface {
	CreateRoutingContext(ctx context.Context, venueID domain.VenueID) (RoutingContext, error)
}

// RoutingContext is the media-plane scope of one venue.
type RoutingContext interface {
	CreateTransport(ctx context.Context, direction domain.TransportDirection) (Transport, error)
	// CanConsume reports whether a client with the given capabilities can
	// consume the given producer.
	CanConsume(producerID domain.ProducerID, capabilities *RtpCapabilities) bool
	Close() error
}

// Transport is a single client-facing media transport.
type Transport interface {
	ID() domain.TransportID
	Direction() domain.TransportDirection
	Info() TransportInfo
	Connect(ctx context.Context, params TransportConnectParams) error
	Produce(ctx context.Context, params ProduceParams) (Producer, error)
	Consume(ctx context.Context, producerID domain.ProducerID, capabilities *RtpCapabilities, paused bool) (Consumer, error)
	SetMaxIncomingBitrate(bitrate int) error
	// OnClosed registers a handler invoked when the engine closes the
	// transport from its side. Closing via Close does not fire it.
	OnClosed(fn func())
	Close() error
}

// Producer is one outbound media flow from a client into the engine.
type Producer interface {
	ID() domain.ProducerID
	Kind() domain.MediaKind
	Paused() bool
	Pause() error
	Resume() error
	OnClosed(fn func())
	Close() error
}

// Consumer is one inbound media flow from the engine to a client.
type Consumer interface {
	ID() domain.ConsumerID
	ProducerID() domain.ProducerID
	Kind() domain.MediaKind
	Info() ConsumerInfo
	Paused() bool
	Pause() error
	Resume() error
	OnClosed(fn func())
	// OnProducerClosed fires when the upstream producer goes away while
	// the consumer is still alive.
	OnProducerClosed(fn func())
	Close() error
}
