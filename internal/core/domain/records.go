package domain

import "time"

// VenueVisibility controls who can discover a venue.
type VenueVisibility string

const (
	VisibilityPublic   VenueVisibility = "public"
	VisibilityUnlisted VenueVisibility = "unlisted"
	VisibilityPrivate  VenueVisibility = "private"
)

// VenueRecord is the persisted shape of a venue.
type VenueRecord struct {
	VenueID               VenueID         `json:"venueId"`
	Name                  string          `json:"name"`
	Visibility            VenueVisibility `json:"visibility"`
	OwnerUserID           UserID          `json:"ownerUserId"`
	StreamStartTime       *time.Time      `json:"streamStartTime,omitempty"`
	StreamAutoStart       bool            `json:"streamAutoStart"`
	StreamManuallyStarted bool            `json:"streamManuallyStarted"`
	StreamManuallyEnded   bool            `json:"streamManuallyEnded"`
	MainCameraID          *CameraID       `json:"mainCameraId,omitempty"`
	VrSpaceID             *VrSpaceID      `json:"vrSpaceId,omitempty"`
}

// StreamIsActive reports whether the venue counts as started: either the
// auto-start time has passed or it was started manually, and it has not
// been manually ended.
func (r *VenueRecord) StreamIsActive(now time.Time) bool {
	started := r.StreamManuallyStarted
	if r.StreamAutoStart && r.StreamStartTime != nil {
		started = r.StreamStartTime.Before(now)
	}
	return started && !r.StreamManuallyEnded
}

// StartTimePassed reports whether a scheduled start time exists and is in
// the past. Used for the non-owner load check.
func (r *VenueRecord) StartTimePassed(now time.Time) bool {
	return r.StreamStartTime != nil && r.StreamStartTime.Before(now)
}

// CameraType distinguishes flat viewpoints from 360-degree panoramas.
type CameraType string

const (
	CameraTypeNormal    CameraType = "normal"
	CameraTypePanoramic CameraType = "360"
)

// CameraRecord is the persisted shape of a camera, including its outgoing
// portal edges.
type CameraRecord struct {
	CameraID    CameraID             `json:"cameraId"`
	VenueID     VenueID              `json:"venueId"`
	Name        string               `json:"name"`
	SenderID    SenderID             `json:"senderId,omitempty"`
	CameraType  CameraType           `json:"cameraType"`
	ViewOriginX float64              `json:"viewOriginX"`
	ViewOriginY float64              `json:"viewOriginY"`
	FOVStart    float64              `json:"fovStart"`
	FOVEnd      float64              `json:"fovEnd"`
	Orientation float64              `json:"orientation"`
	Portals     []CameraPortalRecord `json:"portals"`
}

// CameraPortalRecord is a directed edge from one camera to another, with
// its placement inside the source camera's view. The portal graph is an
// unconstrained directed graph; cycles are allowed.
type CameraPortalRecord struct {
	FromCameraID CameraID `json:"fromCameraId"`
	ToCameraID   CameraID `json:"toCameraId"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	Distance     float64  `json:"distance"`
}

// UserRecord is the persisted shape of a user as read by the orchestration
// layer.
type UserRecord struct {
	UserID   UserID   `json:"userId"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}
