package ports

import (
	"context"

	"github.com/Muab01/samVR/internal/core/domain"
)

// VenueRepository persists venue records.
type VenueRepository interface {
	GetVenue(ctx context.Context, id domain.VenueID) (*domain.VenueRecord, error)
	ListVenues(ctx context.Context) ([]*domain.VenueRecord, error)
	ListVenuesByOwner(ctx context.Context, owner domain.UserID) ([]*domain.VenueRecord, error)
	CreateVenue(ctx context.Context, record *domain.VenueRecord) error
	UpdateVenue(ctx context.Context, record *domain.VenueRecord) error
	DeleteVenue(ctx context.Context, id domain.VenueID) error
}

// CameraRepository persists camera records and their portal edges.
type CameraRepository interface {
	GetCamera(ctx context.Context, id domain.CameraID) (*domain.CameraRecord, error)
	ListCamerasForVenue(ctx context.Context, venueID domain.VenueID) ([]*domain.CameraRecord, error)
	CreateCamera(ctx context.Context, record *domain.CameraRecord) error
	UpdateCamera(ctx context.Context, record *domain.CameraRecord) error
	DeleteCamera(ctx context.Context, id domain.CameraID) error

	SetPortal(ctx context.Context, portal *domain.CameraPortalRecord) error
	DeletePortal(ctx context.Context, from, to domain.CameraID) error
	// ListCamerasWithPortalTo returns cameras having a portal edge into the
	// given camera. Used to reload them after the target is deleted.
	ListCamerasWithPortalTo(ctx context.Context, to domain.CameraID) ([]*domain.CameraRecord, error)
}

// UserRepository reads user records for authentication and state
// projection.
type UserRepository interface {
	GetUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error)
}
