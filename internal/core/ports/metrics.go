package ports

import "github.com/Muab01/samVR/internal/core/domain"

// MetricsSink receives domain-level telemetry. Implementations must be
// cheap and non-blocking; they may be called under venue locks.
type MetricsSink interface {
	RecordVenueLoaded(venueID domain.VenueID)
	RecordVenueUnloaded(venueID domain.VenueID)
	RecordTransformFlush(movers int)
}
