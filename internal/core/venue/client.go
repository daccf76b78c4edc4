package venue

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// Client is one connected participant: a viewer watching cameras or a
// sender device feeding them. Navigation fields (venue, camera, vr space)
// are guarded by the owning venue's mutex; media handle maps are guarded
// by the client's own mutex. Lock order is always venue first, client
// second.
type Client struct {
	connectionID domain.ConnectionID
	user         domain.UserRecord
	clientType   domain.ClientType
	senderID     domain.SenderID
	notifier     ports.Notifier
	log          *zap.SugaredLogger

	mu           sync.Mutex
	capabilities *ports.RtpCapabilities
	transports   map[domain.TransportDirection]ports.Transport
	producers    map[domain.ProducerID]ports.Producer
	consumers    map[domain.ConsumerID]ports.Consumer

	// venue and transform are guarded by the client mutex so the vr space
	// can read them without the venue lock. The remaining navigation
	// fields are only ever touched while holding the owning venue's mutex.
	venue          *Venue
	transform      *domain.Transform
	currentCamera  *Camera
	inVrSpace      bool
	attachedCamera *Camera // senders only

	// Set by the venue when the client is added. Invoked after a producer
	// appears or disappears, never while holding the client mutex.
	onProducersChanged func(c *Client)
}

// NewViewerClient creates a viewer connection.
func NewViewerClient(connectionID domain.ConnectionID, user domain.UserRecord, notifier ports.Notifier, log *zap.SugaredLogger) *Client {
	return newClient(connectionID, user, domain.ClientTypeViewer, "", notifier, log)
}

// NewSenderClient creates a sender connection. The senderID is stable
// across reconnects of the same physical device.
func NewSenderClient(connectionID domain.ConnectionID, user domain.UserRecord, senderID domain.SenderID, notifier ports.Notifier, log *zap.SugaredLogger) *Client {
	return newClient(connectionID, user, domain.ClientTypeSender, senderID, notifier, log)
}

func newClient(connectionID domain.ConnectionID, user domain.UserRecord, clientType domain.ClientType, senderID domain.SenderID, notifier ports.Notifier, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		connectionID: connectionID,
		user:         user,
		clientType:   clientType,
		senderID:     senderID,
		notifier:     notifier,
		log:          log.With("connectionId", connectionID),
		transports:   make(map[domain.TransportDirection]ports.Transport),
		producers:    make(map[domain.ProducerID]ports.Producer),
		consumers:    make(map[domain.ConsumerID]ports.Consumer),
	}
}

func (c *Client) ConnectionID() domain.ConnectionID { return c.connectionID }
func (c *Client) UserID() domain.UserID             { return c.user.UserID }
func (c *Client) Username() string                  { return c.user.Username }
func (c *Client) Role() domain.UserRole             { return c.user.Role }
func (c *Client) ClientType() domain.ClientType     { return c.clientType }
func (c *Client) SenderID() domain.SenderID         { return c.senderID }

// IsModerator reports whether the client may see admin-only state.
func (c *Client) IsModerator() bool {
	return domain.HasAtLeastSecurityLevel(c.user.Role, domain.RoleModerator)
}

// Venue returns the venue the client currently belongs to, or nil.
func (c *Client) Venue() *Venue {
	return c.venueRef()
}

func (c *Client) venueRef() *Venue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.venue
}

func (c *Client) setVenue(v *Venue, hook func(*Client)) {
	c.mu.Lock()
	c.venue = v
	c.onProducersChanged = hook
	c.mu.Unlock()
}

func (c *Client) setTransform(t domain.Transform) {
	c.mu.Lock()
	c.transform = &t
	c.mu.Unlock()
}

func (c *Client) transformCopy() *domain.Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transform == nil {
		return nil
	}
	t := *c.transform
	return &t
}

// vrMemberState builds the projection the vr space shares per member:
// identity, producers and the last submitted transform. Camera membership
// is venue state and stays out of it.
func (c *Client) vrMemberState() *domain.ClientState {
	return &domain.ClientState{
		ConnectionID: c.connectionID,
		UserID:       c.user.UserID,
		Username:     c.user.Username,
		Role:         c.user.Role,
		ClientType:   c.clientType,
		Producers:    c.publicProducers(),
		Transform:    c.transformCopy(),
	}
}

// SetCapabilities records the client's receive capabilities. They must be
// known before any consumer can be created.
func (c *Client) SetCapabilities(capabilities *ports.RtpCapabilities) {
	c.mu.Lock()
	c.capabilities = capabilities
	c.mu.Unlock()
}

func (c *Client) notifyObjectClosed(objectType, id, reason string) {
	if c.notifier != nil {
		c.notifier.ObjectClosed(objectType, id, reason)
	}
}

// CreateTransport creates the client's transport for one direction. At most
// one transport per direction may exist.
func (c *Client) CreateTransport(ctx context.Context, rc ports.RoutingContext, direction domain.TransportDirection, maxIncomingBitrate int) (ports.Transport, error) {
	c.mu.Lock()
	if _, exists := c.transports[direction]; exists {
		c.mu.Unlock()
		return nil, domain.ErrTransportExists
	}
	c.mu.Unlock()

	transport, err := rc.CreateTransport(ctx, direction)
	if err != nil {
		return nil, err
	}
	if direction == domain.DirectionSend && maxIncomingBitrate > 0 {
		if err := transport.SetMaxIncomingBitrate(maxIncomingBitrate); err != nil {
			c.log.Warnw("failed to cap incoming bitrate", "transportId", transport.ID(), "error", err)
		}
	}

	c.mu.Lock()
	if _, exists := c.transports[direction]; exists {
		c.mu.Unlock()
		_ = transport.Close()
		return nil, domain.ErrTransportExists
	}
	c.transports[direction] = transport
	c.mu.Unlock()

	transport.OnClosed(func() {
		c.mu.Lock()
		if c.transports[direction] == transport {
			delete(c.transports, direction)
		}
		c.mu.Unlock()
		c.notifyObjectClosed("transport", string(transport.ID()), "transport closed by server")
	})
	return transport, nil
}

// ConnectTransport forwards the client's connect answer to its transport.
func (c *Client) ConnectTransport(ctx context.Context, direction domain.TransportDirection, params ports.TransportConnectParams) error {
	c.mu.Lock()
	transport, ok := c.transports[direction]
	c.mu.Unlock()
	if !ok {
		if direction == domain.DirectionSend {
			return domain.ErrNoSendTransport
		}
		return domain.ErrNoReceiveTransport
	}
	return transport.Connect(ctx, params)
}

// CreateProducer starts an outbound media flow. A client may hold at most
// one video and one audio producer.
func (c *Client) CreateProducer(ctx context.Context, params ports.ProduceParams) (ports.Producer, error) {
	c.mu.Lock()
	transport, ok := c.transports[domain.DirectionSend]
	if !ok {
		c.mu.Unlock()
		return nil, domain.ErrNoSendTransport
	}
	if c.producerOfKindLocked(params.Kind) != nil {
		c.mu.Unlock()
		return nil, domain.ErrProducerExists
	}
	c.mu.Unlock()

	producer, err := transport.Produce(ctx, params)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Revalidate after the engine call: a concurrent request may have won.
	if c.producerOfKindLocked(params.Kind) != nil || c.transports[domain.DirectionSend] != transport {
		c.mu.Unlock()
		_ = producer.Close()
		return nil, domain.ErrProducerExists
	}
	c.producers[producer.ID()] = producer
	c.mu.Unlock()

	producer.OnClosed(func() {
		c.mu.Lock()
		delete(c.producers, producer.ID())
		c.mu.Unlock()
		c.notifyObjectClosed("producer", string(producer.ID()), "producer closed by server")
		c.producersChanged()
	})
	c.producersChanged()
	return producer, nil
}

func (c *Client) producerOfKindLocked(kind domain.MediaKind) ports.Producer {
	for _, p := range c.producers {
		if p.Kind() == kind {
			return p
		}
	}
	return nil
}

func (c *Client) producersChanged() {
	c.mu.Lock()
	hook := c.onProducersChanged
	c.mu.Unlock()
	if hook != nil {
		hook(c)
	}
}

// CloseProducer closes one of the client's producers.
func (c *Client) CloseProducer(producerID domain.ProducerID) error {
	c.mu.Lock()
	producer, ok := c.producers[producerID]
	if ok {
		delete(c.producers, producerID)
	}
	c.mu.Unlock()
	if !ok {
		return domain.ErrProducerNotFound
	}
	if err := producer.Close(); err != nil {
		c.log.Warnw("failed to close producer", "producerId", producerID, "error", err)
	}
	c.producersChanged()
	return nil
}

// PauseProducer pauses or resumes one of the client's producers.
func (c *Client) PauseProducer(producerID domain.ProducerID, paused bool) error {
	c.mu.Lock()
	producer, ok := c.producers[producerID]
	c.mu.Unlock()
	if !ok {
		return domain.ErrProducerNotFound
	}
	var err error
	if paused {
		err = producer.Pause()
	} else {
		err = producer.Resume()
	}
	if err != nil {
		return err
	}
	if c.notifier != nil {
		c.notifier.ProducerPausedOrResumed(producerID, paused)
	}
	c.producersChanged()
	return nil
}

// ConsumeResult reports the consumer created (or found) for a producer.
type ConsumeResult struct {
	Consumer       ports.Consumer
	Info           ports.ConsumerInfo
	AlreadyExisted bool
}

// CreateConsumer creates a consumer for the given producer, or returns the
// existing one. Consumers are idempotent per producer id.
func (c *Client) CreateConsumer(ctx context.Context, rc ports.RoutingContext, producerID domain.ProducerID, paused bool) (*ConsumeResult, error) {
	c.mu.Lock()
	if existing := c.consumerForProducerLocked(producerID); existing != nil {
		c.mu.Unlock()
		return &ConsumeResult{Consumer: existing, Info: existing.Info(), AlreadyExisted: true}, nil
	}
	transport, hasTransport := c.transports[domain.DirectionReceive]
	capabilities := c.capabilities
	c.mu.Unlock()

	if capabilities == nil {
		return nil, domain.ErrCapabilitiesUnknown
	}
	if !hasTransport {
		return nil, domain.ErrNoReceiveTransport
	}
	if !rc.CanConsume(producerID, capabilities) {
		return nil, domain.ErrCannotConsume
	}

	consumer, err := transport.Consume(ctx, producerID, capabilities, paused)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing := c.consumerForProducerLocked(producerID); existing != nil {
		c.mu.Unlock()
		_ = consumer.Close()
		return &ConsumeResult{Consumer: existing, Info: existing.Info(), AlreadyExisted: true}, nil
	}
	c.consumers[consumer.ID()] = consumer
	c.mu.Unlock()

	removeAndNotify := func(reason string) {
		c.mu.Lock()
		delete(c.consumers, consumer.ID())
		c.mu.Unlock()
		c.notifyObjectClosed("consumer", string(consumer.ID()), reason)
	}
	consumer.OnClosed(func() { removeAndNotify("consumer closed by server") })
	consumer.OnProducerClosed(func() { removeAndNotify("producer was closed") })

	return &ConsumeResult{Consumer: consumer, Info: consumer.Info()}, nil
}

func (c *Client) consumerForProducerLocked(producerID domain.ProducerID) ports.Consumer {
	for _, consumer := range c.consumers {
		if consumer.ProducerID() == producerID {
			return consumer
		}
	}
	return nil
}

// CloseConsumer closes one of the client's consumers.
func (c *Client) CloseConsumer(consumerID domain.ConsumerID) error {
	c.mu.Lock()
	consumer, ok := c.consumers[consumerID]
	if ok {
		delete(c.consumers, consumerID)
	}
	c.mu.Unlock()
	if !ok {
		return domain.ErrConsumerNotFound
	}
	if err := consumer.Close(); err != nil {
		c.log.Warnw("failed to close consumer", "consumerId", consumerID, "error", err)
	}
	return nil
}

// PauseConsumer pauses or resumes one of the client's consumers.
func (c *Client) PauseConsumer(consumerID domain.ConsumerID, paused bool) error {
	c.mu.Lock()
	consumer, ok := c.consumers[consumerID]
	c.mu.Unlock()
	if !ok {
		return domain.ErrConsumerNotFound
	}
	var err error
	if paused {
		err = consumer.Pause()
	} else {
		err = consumer.Resume()
	}
	if err != nil {
		return err
	}
	if c.notifier != nil {
		c.notifier.ConsumerPausedOrResumed(consumerID, paused)
	}
	return nil
}

// closeConsumersOfProducers closes every consumer of the client whose
// producer id is in the given set. Never fails; close errors are logged.
func (c *Client) closeConsumersOfProducers(producerIDs map[domain.ProducerID]struct{}) {
	if len(producerIDs) == 0 {
		return
	}
	c.mu.Lock()
	var toClose []ports.Consumer
	for id, consumer := range c.consumers {
		if _, match := producerIDs[consumer.ProducerID()]; match {
			delete(c.consumers, id)
			toClose = append(toClose, consumer)
		}
	}
	c.mu.Unlock()
	for _, consumer := range toClose {
		if err := consumer.Close(); err != nil {
			c.log.Warnw("failed to close consumer", "consumerId", consumer.ID(), "error", err)
		}
		c.notifyObjectClosed("consumer", string(consumer.ID()), "producer left")
	}
}

// CloseAllMedia tears down every consumer, producer and transport of the
// client. Teardown never fails; individual close errors are logged.
func (c *Client) CloseAllMedia() {
	c.mu.Lock()
	consumers := make([]ports.Consumer, 0, len(c.consumers))
	for _, consumer := range c.consumers {
		consumers = append(consumers, consumer)
	}
	producers := make([]ports.Producer, 0, len(c.producers))
	for _, producer := range c.producers {
		producers = append(producers, producer)
	}
	transports := make([]ports.Transport, 0, len(c.transports))
	for _, transport := range c.transports {
		transports = append(transports, transport)
	}
	c.consumers = make(map[domain.ConsumerID]ports.Consumer)
	c.producers = make(map[domain.ProducerID]ports.Producer)
	c.transports = make(map[domain.TransportDirection]ports.Transport)
	c.mu.Unlock()

	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			c.log.Warnw("failed to close consumer", "consumerId", consumer.ID(), "error", err)
		}
	}
	for _, producer := range producers {
		if err := producer.Close(); err != nil {
			c.log.Warnw("failed to close producer", "producerId", producer.ID(), "error", err)
		}
	}
	for _, transport := range transports {
		if err := transport.Close(); err != nil {
			c.log.Warnw("failed to close transport", "transportId", transport.ID(), "error", err)
		}
	}
}

// producerIDs returns the ids of the client's current producers.
func (c *Client) producerIDs() map[domain.ProducerID]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make(map[domain.ProducerID]struct{}, len(c.producers))
	for id := range c.producers {
		ids[id] = struct{}{}
	}
	return ids
}

// hasProducer reports whether the client owns the given producer.
func (c *Client) hasProducer(producerID domain.ProducerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.producers[producerID]
	return ok
}

// publicProducers builds the per-kind producer projection.
func (c *Client) publicProducers() domain.PublicProducers {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out domain.PublicProducers
	for _, p := range c.producers {
		view := &domain.ProducerView{ProducerID: p.ID(), Paused: p.Paused(), Kind: p.Kind()}
		switch p.Kind() {
		case domain.MediaVideo:
			out.Video = view
		case domain.MediaAudio:
			out.Audio = view
		}
	}
	return out
}
