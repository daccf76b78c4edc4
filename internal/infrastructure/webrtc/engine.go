package webrtc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// Config holds the engine's transport settings.
type Config struct {
	ICEServers []webrtc.ICEServer
	PortRange  struct {
		Min uint16
		Max uint16
	}
	// PLIInterval is how often keyframes are requested from video
	// producers so late joiners get a decodable picture quickly.
	PLIInterval time.Duration
}

// Engine is the pion-backed media plane. Each venue gets its own routing
// context; producer tracks are fanned out to consumers through
// TrackLocalStaticRTP forwarding.
type Engine struct {
	api    *webrtc.API
	config Config
	log    *zap.SugaredLogger
}

var _ ports.MediaEngine = (*Engine)(nil)

func NewEngine(config Config, log *zap.SugaredLogger) (*Engine, error) {
	settingEngine := webrtc.SettingEngine{}
	if config.PortRange.Min > 0 && config.PortRange.Max > 0 {
		if err := settingEngine.SetEphemeralUDPPortRange(config.PortRange.Min, config.PortRange.Max); err != nil {
			return nil, fmt.Errorf("invalid udp port range: %w", err)
		}
	}
	if config.PLIInterval <= 0 {
		config.PLIInterval = 3 * time.Second
	}
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithMediaEngine(mediaEngine),
	)
	return &Engine{api: api, config: config, log: log}, nil
}

func (e *Engine) CreateRoutingContext(_ context.Context, venueID domain.VenueID) (ports.RoutingContext, error) {
	return &routingContext{
		engine:    e,
		venueID:   venueID,
		log:       e.log.With("venueId", venueID),
		producers: make(map[domain.ProducerID]*producerEntry),
	}, nil
}

// producerEntry is a live inbound track plus the local track consumers
// attach to.
type producerEntry struct {
	producer *engineProducer
	local    *webrtc.TrackLocalStaticRTP
	codec    webrtc.RTPCodecCapability
}

type routingContext struct {
	engine  *Engine
	venueID domain.VenueID
	log     *zap.SugaredLogger

	mu        sync.RWMutex
	closed    bool
	producers map[domain.ProducerID]*producerEntry
}

func (rc *routingContext) CreateTransport(_ context.Context, direction domain.TransportDirection) (ports.Transport, error) {
	rc.mu.RLock()
	closed := rc.closed
	rc.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("routing context for venue %s is closed", rc.venueID)
	}

	pc, err := rc.engine.api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   rc.engine.config.ICEServers,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlanWithFallback,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	t := &transport{
		id:        domain.NewTransportID(),
		direction: direction,
		rc:        rc,
		pc:        pc,
		log:       rc.log,
		pending:   make(map[domain.MediaKind]*engineProducer),
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			t.fireClosed()
		}
	})
	if direction == domain.DirectionSend {
		pc.OnTrack(t.handleRemoteTrack)
	}
	return t, nil
}

func (rc *routingContext) CanConsume(producerID domain.ProducerID, capabilities *ports.RtpCapabilities) bool {
	if capabilities == nil {
		return false
	}
	rc.mu.RLock()
	entry, ok := rc.producers[producerID]
	rc.mu.RUnlock()
	if !ok {
		return false
	}
	if len(capabilities.Codecs) == 0 {
		// Clients that never declared codecs can consume anything the
		// default codec set covers.
		return true
	}
	for _, codec := range capabilities.Codecs {
		if codec.MimeType == entry.codec.MimeType {
			return true
		}
	}
	return false
}

func (rc *routingContext) Close() error {
	rc.mu.Lock()
	rc.closed = true
	rc.producers = make(map[domain.ProducerID]*producerEntry)
	rc.mu.Unlock()
	return nil
}

func (rc *routingContext) registerProducer(entry *producerEntry) {
	rc.mu.Lock()
	rc.producers[entry.producer.id] = entry
	rc.mu.Unlock()
}

func (rc *routingContext) unregisterProducer(id domain.ProducerID) {
	rc.mu.Lock()
	delete(rc.producers, id)
	rc.mu.Unlock()
}

func (rc *routingContext) lookupProducer(id domain.ProducerID) (*producerEntry, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	entry, ok := rc.producers[id]
	return entry, ok
}

type transport struct {
	id        domain.TransportID
	direction domain.TransportDirection
	rc        *routingContext
	pc        *webrtc.PeerConnection
	log       *zap.SugaredLogger

	mu       sync.Mutex
	closed   bool
	onClosed func()
	// pending holds producers announced via Produce that are waiting for
	// their remote track to arrive.
	pending map[domain.MediaKind]*engineProducer
}

var _ ports.Transport = (*transport)(nil)

func (t *transport) ID() domain.TransportID               { return t.id }
func (t *transport) Direction() domain.TransportDirection { return t.direction }

func (t *transport) Info() ports.TransportInfo {
	info := ports.TransportInfo{TransportID: t.id}
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		t.log.Errorw("failed to create offer", "transportId", t.id, "error", err)
		return info
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		t.log.Errorw("failed to set local description", "transportId", t.id, "error", err)
		return info
	}
	if sdp, err := json.Marshal(t.pc.LocalDescription()); err == nil {
		info.DTLSParameters = sdp
	}
	return info
}

// Connect applies the client's answer. The DTLS payload carries the full
// session description.
func (t *transport) Connect(_ context.Context, params ports.TransportConnectParams) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(params.DTLSParameters, &answer); err != nil {
		return fmt.Errorf("decode session description: %w", err)
	}
	return t.pc.SetRemoteDescription(answer)
}

// Produce announces an inbound media flow. The producer becomes live once
// the matching remote track arrives over the peer connection.
func (t *transport) Produce(_ context.Context, params ports.ProduceParams) (ports.Producer, error) {
	if t.direction != domain.DirectionSend {
		return nil, fmt.Errorf("transport %s cannot produce", t.id)
	}
	producer := &engineProducer{
		id:        domain.NewProducerID(),
		kind:      params.Kind,
		paused:    params.Paused,
		transport: t,
	}
	t.mu.Lock()
	t.pending[params.Kind] = producer
	t.mu.Unlock()
	return producer, nil
}

// handleRemoteTrack binds an arriving remote track to its announced
// producer and starts forwarding its packets.
func (t *transport) handleRemoteTrack(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	kind := domain.MediaAudio
	if remote.Kind() == webrtc.RTPCodecTypeVideo {
		kind = domain.MediaVideo
	}
	t.mu.Lock()
	producer := t.pending[kind]
	delete(t.pending, kind)
	t.mu.Unlock()
	if producer == nil {
		t.log.Warnw("remote track without announced producer", "transportId", t.id, "kind", kind)
		return
	}

	local, err := webrtc.NewTrackLocalStaticRTP(remote.Codec().RTPCodecCapability, remote.ID(), remote.StreamID())
	if err != nil {
		t.log.Errorw("failed to create forwarding track", "producerId", producer.id, "error", err)
		return
	}
	entry := &producerEntry{producer: producer, local: local, codec: remote.Codec().RTPCodecCapability}
	t.rc.registerProducer(entry)

	if kind == domain.MediaVideo {
		go t.requestKeyframes(remote.SSRC(), producer)
	}
	go t.forward(remote, producer, local)
	go t.drainRTCP(receiver)
}

// drainRTCP keeps the receiver's RTCP stream flowing so interceptors run.
func (t *transport) drainRTCP(receiver *webrtc.RTPReceiver) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := receiver.Read(buf); err != nil {
			return
		}
	}
}

func (t *transport) forward(remote *webrtc.TrackRemote, producer *engineProducer, local *webrtc.TrackLocalStaticRTP) {
	buf := make([]byte, 1500)
	packet := &rtp.Packet{}
	for {
		n, _, err := remote.Read(buf)
		if err != nil {
			t.rc.unregisterProducer(producer.id)
			producer.fireClosed()
			return
		}
		if producer.Paused() {
			continue
		}
		if err := packet.Unmarshal(buf[:n]); err != nil {
			t.log.Warnw("bad rtp packet", "producerId", producer.id, "error", err)
			continue
		}
		if err := local.WriteRTP(packet); err != nil {
			t.log.Warnw("failed to forward rtp packet", "producerId", producer.id, "error", err)
		}
	}
}

func (t *transport) requestKeyframes(ssrc webrtc.SSRC, producer *engineProducer) {
	ticker := time.NewTicker(t.rc.engine.config.PLIInterval)
	defer ticker.Stop()
	for range ticker.C {
		if producer.isClosed() || t.isClosed() {
			return
		}
		err := t.pc.WriteRTCP([]rtcp.Packet{
			&rtcp.PictureLossIndication{MediaSSRC: uint32(ssrc)},
		})
		if err != nil {
			return
		}
	}
}

// Consume attaches a producer's forwarding track to this receive
// transport.
func (t *transport) Consume(_ context.Context, producerID domain.ProducerID, _ *ports.RtpCapabilities, paused bool) (ports.Consumer, error) {
	if t.direction != domain.DirectionReceive {
		return nil, fmt.Errorf("transport %s cannot consume", t.id)
	}
	entry, ok := t.rc.lookupProducer(producerID)
	if !ok {
		return nil, domain.ErrProducerNotFound
	}
	sender, err := t.pc.AddTrack(entry.local)
	if err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	consumer := &engineConsumer{
		id:         domain.NewConsumerID(),
		producerID: producerID,
		kind:       entry.producer.kind,
		paused:     paused,
		transport:  t,
		sender:     sender,
	}
	entry.producer.addConsumer(consumer)
	return consumer, nil
}

func (t *transport) SetMaxIncomingBitrate(bitrate int) error {
	// pion exposes no router-level bitrate cap; REMB feedback is the
	// closest mechanism. Accepted so callers can still express intent.
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport %s is closed", t.id)
	}
	return nil
}

func (t *transport) OnClosed(fn func()) {
	t.mu.Lock()
	t.onClosed = fn
	t.mu.Unlock()
}

func (t *transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *transport) fireClosed() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	fn := t.onClosed
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.pc.Close()
}

type engineProducer struct {
	id        domain.ProducerID
	kind      domain.MediaKind
	transport *transport

	mu        sync.Mutex
	paused    bool
	closed    bool
	onClosed  func()
	consumers []*engineConsumer
}

var _ ports.Producer = (*engineProducer)(nil)

func (p *engineProducer) ID() domain.ProducerID  { return p.id }
func (p *engineProducer) Kind() domain.MediaKind { return p.kind }

func (p *engineProducer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *engineProducer) Pause() error {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	return nil
}

func (p *engineProducer) Resume() error {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	return nil
}

func (p *engineProducer) OnClosed(fn func()) {
	p.mu.Lock()
	p.onClosed = fn
	p.mu.Unlock()
}

func (p *engineProducer) addConsumer(c *engineConsumer) {
	p.mu.Lock()
	p.consumers = append(p.consumers, c)
	p.mu.Unlock()
}

func (p *engineProducer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fireClosed marks the producer dead and tells downstream consumers their
// source is gone.
func (p *engineProducer) fireClosed() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	fn := p.onClosed
	consumers := p.consumers
	p.consumers = nil
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
	for _, c := range consumers {
		c.fireProducerClosed()
	}
}

func (p *engineProducer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	consumers := p.consumers
	p.consumers = nil
	p.mu.Unlock()
	p.transport.rc.unregisterProducer(p.id)
	for _, c := range consumers {
		c.fireProducerClosed()
	}
	return nil
}

type engineConsumer struct {
	id         domain.ConsumerID
	producerID domain.ProducerID
	kind       domain.MediaKind
	transport  *transport
	sender     *webrtc.RTPSender

	mu               sync.Mutex
	paused           bool
	closed           bool
	onClosed         func()
	onProducerClosed func()
}

var _ ports.Consumer = (*engineConsumer)(nil)

func (c *engineConsumer) ID() domain.ConsumerID         { return c.id }
func (c *engineConsumer) ProducerID() domain.ProducerID { return c.producerID }
func (c *engineConsumer) Kind() domain.MediaKind        { return c.kind }

func (c *engineConsumer) Info() ports.ConsumerInfo {
	return ports.ConsumerInfo{
		ConsumerID: c.id,
		ProducerID: c.producerID,
		Kind:       c.kind,
		Paused:     c.Paused(),
	}
}

func (c *engineConsumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *engineConsumer) Pause() error {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
	return nil
}

func (c *engineConsumer) Resume() error {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	return nil
}

func (c *engineConsumer) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *engineConsumer) OnProducerClosed(fn func()) {
	c.mu.Lock()
	c.onProducerClosed = fn
	c.mu.Unlock()
}

func (c *engineConsumer) fireProducerClosed() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fn := c.onProducerClosed
	c.mu.Unlock()
	c.detach()
	if fn != nil {
		fn()
	}
}

func (c *engineConsumer) detach() {
	if err := c.transport.pc.RemoveTrack(c.sender); err != nil {
		c.transport.log.Debugw("failed to remove consumer track", "consumerId", c.id, "error", err)
	}
}

func (c *engineConsumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.detach()
	return nil
}
