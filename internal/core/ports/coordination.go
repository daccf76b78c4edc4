package ports

import (
	"context"

	"github.com/Muab01/samVR/internal/core/domain"
)

// VenueCoordinator serializes venue loads across instances and tracks
// which instance holds each loaded venue. Single-instance deployments
// run without one.
type VenueCoordinator interface {
	// AcquireLoadLock blocks until this instance may load the venue.
	// The returned release function must be called once the load has
	// resolved either way.
	AcquireLoadLock(ctx context.Context, venueID domain.VenueID) (release func(), err error)

	// ClaimVenue marks the venue as held by this instance.
	ClaimVenue(ctx context.Context, venueID domain.VenueID) error

	// ReleaseVenue drops this instance's claim on the venue.
	ReleaseVenue(ctx context.Context, venueID domain.VenueID) error
}
