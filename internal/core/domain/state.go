package domain

// ProducerView is the per-producer slice of client state shared with other
// participants.
type ProducerView struct {
	ProducerID ProducerID `json:"producerId"`
	Paused     bool       `json:"paused"`
	Kind       MediaKind  `json:"kind"`
}

// PublicProducers lists at most one video and one audio producer per client.
type PublicProducers struct {
	Video *ProducerView `json:"videoProducer,omitempty"`
	Audio *ProducerView `json:"audioProducer,omitempty"`
}

// ClientState is the projection of a connected client shared with other
// participants. Sender-only fields are omitted for viewers and vice versa.
type ClientState struct {
	ConnectionID ConnectionID    `json:"connectionId"`
	UserID       UserID          `json:"userId"`
	Username     string          `json:"username"`
	Role         UserRole        `json:"role"`
	ClientType   ClientType      `json:"clientType"`
	Producers    PublicProducers `json:"producers"`

	// Viewer-only.
	CurrentCameraID  *CameraID  `json:"currentCameraId,omitempty"`
	CurrentVrSpaceID *VrSpaceID `json:"currentVrSpaceId,omitempty"`
	Transform        *Transform `json:"transform,omitempty"`

	// Sender-only.
	SenderID *SenderID `json:"senderId,omitempty"`
}

// CameraState is the public projection of a loaded camera.
type CameraState struct {
	CameraID       CameraID             `json:"cameraId"`
	VenueID        VenueID              `json:"venueId"`
	Name           string               `json:"name"`
	CameraType     CameraType           `json:"cameraType"`
	ViewOriginX    float64              `json:"viewOriginX"`
	ViewOriginY    float64              `json:"viewOriginY"`
	FOVStart       float64              `json:"fovStart"`
	FOVEnd         float64              `json:"fovEnd"`
	Orientation    float64              `json:"orientation"`
	SenderAttached bool                 `json:"senderAttached"`
	IsStreaming    bool                 `json:"isStreaming"`
	Producers      PublicProducers      `json:"producers"`
	Portals        []CameraPortalRecord `json:"portals"`
	Clients        []ConnectionID       `json:"clients"`
}

// VrSpaceState is the public projection of a venue's vr space. Each
// member entry carries the member's producers, role and last submitted
// transform.
type VrSpaceState struct {
	VrSpaceID VrSpaceID                     `json:"vrSpaceId"`
	VenueID   VenueID                       `json:"venueId"`
	Clients   map[ConnectionID]*ClientState `json:"clients"`
}

// VenueState is the projection of a loaded venue visible to every
// participant.
type VenueState struct {
	VenueID             VenueID                       `json:"venueId"`
	Name                string                        `json:"name"`
	Visibility          VenueVisibility               `json:"visibility"`
	StreamActive        bool                          `json:"streamActive"`
	MainCameraID        *CameraID                     `json:"mainCameraId,omitempty"`
	MainAudioProducerID *ProducerID                   `json:"mainAudioProducerId,omitempty"`
	VrSpaceID           *VrSpaceID                    `json:"vrSpaceId,omitempty"`
	Clients             map[ConnectionID]*ClientState `json:"clients"`
	Cameras             map[CameraID]*CameraState     `json:"cameras"`
}

// VenueAdminState extends the public venue state with data restricted to
// moderators and above.
type VenueAdminState struct {
	VenueState
	DetachedSenders map[ConnectionID]*ClientState `json:"detachedSenders"`
}

// VenueSummary is a lightweight listing entry for discovery endpoints.
type VenueSummary struct {
	VenueID      VenueID         `json:"venueId"`
	Name         string          `json:"name"`
	Visibility   VenueVisibility `json:"visibility"`
	Loaded       bool            `json:"loaded"`
	StreamActive bool            `json:"streamActive"`
	ClientCount  int             `json:"clientCount"`
}
