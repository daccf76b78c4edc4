package distributed

import (
	"context"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// ClusterCoordinator pairs the venue directory with the event bus:
// claims are recorded in the directory and announced to the other
// instances in one step.
type ClusterCoordinator struct {
	directory *VenueDirectory
	bus       *EventBus
}

var _ ports.VenueCoordinator = (*ClusterCoordinator)(nil)

func NewClusterCoordinator(directory *VenueDirectory, bus *EventBus) *ClusterCoordinator {
	return &ClusterCoordinator{directory: directory, bus: bus}
}

func (c *ClusterCoordinator) AcquireLoadLock(ctx context.Context, venueID domain.VenueID) (func(), error) {
	return c.directory.AcquireLoadLock(ctx, venueID)
}

func (c *ClusterCoordinator) ClaimVenue(ctx context.Context, venueID domain.VenueID) error {
	if err := c.directory.ClaimVenue(ctx, venueID); err != nil {
		return err
	}
	if err := c.bus.PublishVenueLoaded(ctx, venueID); err != nil {
		c.directory.logger.Warnw("failed to announce venue load", "venueId", venueID, "error", err)
	}
	return nil
}

func (c *ClusterCoordinator) ReleaseVenue(ctx context.Context, venueID domain.VenueID) error {
	if err := c.directory.ReleaseVenue(ctx, venueID); err != nil {
		return err
	}
	if err := c.bus.PublishVenueUnloaded(ctx, venueID); err != nil {
		c.directory.logger.Warnw("failed to announce venue unload", "venueId", venueID, "error", err)
	}
	return nil
}
