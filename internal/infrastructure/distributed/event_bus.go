package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
)

// EventType classifies cross-instance events.
type EventType string

const (
	EventVenueLoaded    EventType = "venue.loaded"
	EventVenueUnloaded  EventType = "venue.unloaded"
	EventVenueUpdated   EventType = "venue.updated"
	EventStreamStarted  EventType = "stream.started"
	EventStreamEnded    EventType = "stream.ended"
	EventSenderAttached EventType = "sender.attached"
)

// Event is one message on the coordination channel.
type Event struct {
	Type       EventType       `json:"type"`
	InstanceID string          `json:"instance_id"`
	Timestamp  time.Time       `json:"timestamp"`
	VenueID    domain.VenueID  `json:"venue_id,omitempty"`
	CameraID   domain.CameraID `json:"camera_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// EventBus broadcasts venue lifecycle events between media server
// instances over redis pub/sub. Instances use it to invalidate caches
// and to route viewers to the instance holding a loaded venue.
type EventBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.SugaredLogger
	pubsub     *redis.PubSub
	channel    string
}

func NewEventBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
		channel:    "samvr:events",
	}
}

// Publish sends an event to every subscribed instance.
func (eb *EventBus) Publish(ctx context.Context, event *Event) error {
	event.InstanceID = eb.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event", "type", event.Type, "venueId", event.VenueID)
	return nil
}

// Subscribe blocks, invoking handler for every event published by other
// instances. Events from this instance are skipped.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(*Event) error) error {
	if eb.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	eb.pubsub = eb.client.Subscribe(ctx, eb.channel)
	defer eb.pubsub.Close()

	ch := eb.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				eb.logger.Warnw("failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			if event.InstanceID == eb.instanceID {
				continue
			}
			if err := handler(&event); err != nil {
				eb.logger.Warnw("error handling event", "type", event.Type, "error", err)
			}
		}
	}
}

func (eb *EventBus) PublishVenueLoaded(ctx context.Context, venueID domain.VenueID) error {
	return eb.Publish(ctx, &Event{Type: EventVenueLoaded, VenueID: venueID})
}

func (eb *EventBus) PublishVenueUnloaded(ctx context.Context, venueID domain.VenueID) error {
	return eb.Publish(ctx, &Event{Type: EventVenueUnloaded, VenueID: venueID})
}

func (eb *EventBus) PublishVenueUpdated(ctx context.Context, venueID domain.VenueID) error {
	return eb.Publish(ctx, &Event{Type: EventVenueUpdated, VenueID: venueID})
}

func (eb *EventBus) PublishStreamStarted(ctx context.Context, venueID domain.VenueID) error {
	return eb.Publish(ctx, &Event{Type: EventStreamStarted, VenueID: venueID})
}

func (eb *EventBus) PublishStreamEnded(ctx context.Context, venueID domain.VenueID) error {
	return eb.Publish(ctx, &Event{Type: EventStreamEnded, VenueID: venueID})
}

func (eb *EventBus) PublishSenderAttached(ctx context.Context, venueID domain.VenueID, cameraID domain.CameraID) error {
	return eb.Publish(ctx, &Event{Type: EventSenderAttached, VenueID: venueID, CameraID: cameraID})
}

func (eb *EventBus) Close() error {
	if eb.pubsub != nil {
		return eb.pubsub.Close()
	}
	return nil
}
