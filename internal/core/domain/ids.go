package domain

import "github.com/google/uuid"

// Branded identifier types. Each id is unique within its own namespace and
// must never be compared against ids from another namespace.
type (
	ConnectionID string
	UserID       string
	VenueID      string
	CameraID     string
	SenderID     string
	VrSpaceID    string
	ProducerID   string
	ConsumerID   string
	TransportID  string
)

func NewConnectionID() ConnectionID { return ConnectionID(uuid.NewString()) }
func NewVenueID() VenueID           { return VenueID(uuid.NewString()) }
func NewCameraID() CameraID         { return CameraID(uuid.NewString()) }
func NewSenderID() SenderID         { return SenderID(uuid.NewString()) }
func NewVrSpaceID() VrSpaceID       { return VrSpaceID(uuid.NewString()) }
func NewProducerID() ProducerID     { return ProducerID(uuid.NewString()) }
func NewConsumerID() ConsumerID     { return ConsumerID(uuid.NewString()) }
func NewTransportID() TransportID   { return TransportID(uuid.NewString()) }

// MediaKind is the media type of a producer or consumer.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// TransportDirection distinguishes a client's send and receive transports.
type TransportDirection string

const (
	DirectionSend    TransportDirection = "send"
	DirectionReceive TransportDirection = "receive"
)

// ClientType distinguishes viewer connections from sender devices.
type ClientType string

const (
	ClientTypeViewer ClientType = "client"
	ClientTypeSender ClientType = "sender"
)
