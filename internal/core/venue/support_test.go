package venue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/internal/infrastructure/repositories/memory"
)

// fakeEngine is an in-process media engine double. Producers and consumers
// are bookkeeping objects; no media flows.
type fakeEngine struct {
	mu       sync.Mutex
	contexts []*fakeRoutingContext
}

func newFakeEngine() *fakeEngine { return &fakeEngine{} }

func (e *fakeEngine) CreateRoutingContext(_ context.Context, venueID domain.VenueID) (ports.RoutingContext, error) {
	rc := &fakeRoutingContext{venueID: venueID, consumable: true}
	e.mu.Lock()
	e.contexts = append(e.contexts, rc)
	e.mu.Unlock()
	return rc, nil
}

type fakeRoutingContext struct {
	venueID    domain.VenueID
	mu         sync.Mutex
	closed     bool
	consumable bool
}

func (rc *fakeRoutingContext) CreateTransport(_ context.Context, direction domain.TransportDirection) (ports.Transport, error) {
	return &fakeTransport{id: domain.NewTransportID(), direction: direction, rc: rc}, nil
}

func (rc *fakeRoutingContext) CanConsume(domain.ProducerID, *ports.RtpCapabilities) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.consumable
}

func (rc *fakeRoutingContext) Close() error {
	rc.mu.Lock()
	rc.closed = true
	rc.mu.Unlock()
	return nil
}

func (rc *fakeRoutingContext) isClosed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.closed
}

type fakeTransport struct {
	id        domain.TransportID
	direction domain.TransportDirection
	rc        *fakeRoutingContext

	mu         sync.Mutex
	closed     bool
	maxBitrate int
	onClosed   func()
}

func (t *fakeTransport) ID() domain.TransportID { return t.id }
func (t *fakeTransport) Direction() domain.TransportDirection { return t.direction }
func (t *fakeTransport) Info() ports.TransportInfo { return ports.TransportInfo{TransportID: t.id} }
func (t *fakeTransport) Connect(context.Context, ports.TransportConnectParams) error { return nil }

func (t *fakeTransport) Produce(_ context.Context, params ports.ProduceParams) (ports.Producer, error) {
	return &fakeProducer{id: domain.NewProducerID(), kind: params.Kind, paused: params.Paused}, nil
}

func (t *fakeTransport) Consume(_ context.Context, producerID domain.ProducerID, _ *ports.RtpCapabilities, paused bool) (ports.Consumer, error) {
	return &fakeConsumer{id: domain.NewConsumerID(), producerID: producerID, kind: domain.MediaVideo, paused: paused}, nil
}

func (t *fakeTransport) SetMaxIncomingBitrate(bitrate int) error {
	t.mu.Lock()
	t.maxBitrate = bitrate
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) OnClosed(fn func()) {
	t.mu.Lock()
	t.onClosed = fn
	t.mu.Unlock()
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// serverClose simulates the engine closing the transport from its side.
func (t *fakeTransport) serverClose() {
	t.mu.Lock()
	t.closed = true
	fn := t.onClosed
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeProducer struct {
	id   domain.ProducerID
	kind domain.MediaKind

	mu       sync.Mutex
	paused   bool
	closed   bool
	onClosed func()
}

func (p *fakeProducer) ID() domain.ProducerID { return p.id }
func (p *fakeProducer) Kind() domain.MediaKind { return p.kind }

func (p *fakeProducer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *fakeProducer) Pause() error {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	return nil
}

func (p *fakeProducer) Resume() error {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	return nil
}

func (p *fakeProducer) OnClosed(fn func()) {
	p.mu.Lock()
	p.onClosed = fn
	p.mu.Unlock()
}

func (p *fakeProducer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakeProducer) serverClose() {
	p.mu.Lock()
	p.closed = true
	fn := p.onClosed
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeConsumer struct {
	id         domain.ConsumerID
	producerID domain.ProducerID
	kind       domain.MediaKind

	mu               sync.Mutex
	paused           bool
	closed           bool
	onClosed         func()
	onProducerClosed func()
}

func (c *fakeConsumer) ID() domain.ConsumerID { return c.id }
func (c *fakeConsumer) ProducerID() domain.ProducerID { return c.producerID }
func (c *fakeConsumer) Kind() domain.MediaKind { return c.kind }

func (c *fakeConsumer) Info() ports.ConsumerInfo {
	return ports.ConsumerInfo{ConsumerID: c.id, ProducerID: c.producerID, Kind: c.kind, Paused: c.Paused()}
}

func (c *fakeConsumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *fakeConsumer) Pause() error {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConsumer) Resume() error {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	return nil
}

func (c *fakeConsumer) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *fakeConsumer) OnProducerClosed(fn func()) {
	c.mu.Lock()
	c.onProducerClosed = fn
	c.mu.Unlock()
}

func (c *fakeConsumer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConsumer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recordingNotifier captures every delivered event for assertions.
type recordingNotifier struct {
	mu               sync.Mutex
	venueReasons     []string
	adminReasons     []string
	unloaded         []domain.VenueID
	cameraStates     []*domain.CameraState
	vrReasons        []string
	vrStates         []*domain.VrSpaceState
	transformBatches []domain.Transforms
	clientStates     []*domain.ClientState
	objectsClosed    []string
	startProduce     []domain.CameraID
	consumerPauses   []bool
	producerPauses   []bool
}

var _ ports.Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) VenueStateUpdated(_ *domain.VenueState, reason string) {
	n.mu.Lock()
	n.venueReasons = append(n.venueReasons, reason)
	n.mu.Unlock()
}

func (n *recordingNotifier) VenueStateUpdatedAdminOnly(_ *domain.VenueAdminState, reason string) {
	n.mu.Lock()
	n.adminReasons = append(n.adminReasons, reason)
	n.mu.Unlock()
}

func (n *recordingNotifier) VenueWasUnloaded(venueID domain.VenueID) {
	n.mu.Lock()
	n.unloaded = append(n.unloaded, venueID)
	n.mu.Unlock()
}

func (n *recordingNotifier) CameraStateUpdated(state *domain.CameraState, _ string) {
	n.mu.Lock()
	n.cameraStates = append(n.cameraStates, state)
	n.mu.Unlock()
}

func (n *recordingNotifier) VrSpaceStateUpdated(state *domain.VrSpaceState, reason string) {
	n.mu.Lock()
	n.vrReasons = append(n.vrReasons, reason)
	n.vrStates = append(n.vrStates, state)
	n.mu.Unlock()
}

func (n *recordingNotifier) ClientTransforms(transforms domain.Transforms) {
	n.mu.Lock()
	n.transformBatches = append(n.transformBatches, transforms)
	n.mu.Unlock()
}

func (n *recordingNotifier) ClientStateUpdated(state *domain.ClientState, _ string) {
	n.mu.Lock()
	n.clientStates = append(n.clientStates, state)
	n.mu.Unlock()
}

func (n *recordingNotifier) ObjectClosed(objectType, id, _ string) {
	n.mu.Lock()
	n.objectsClosed = append(n.objectsClosed, objectType+":"+id)
	n.mu.Unlock()
}

func (n *recordingNotifier) ConsumerPausedOrResumed(_ domain.ConsumerID, paused bool) {
	n.mu.Lock()
	n.consumerPauses = append(n.consumerPauses, paused)
	n.mu.Unlock()
}

func (n *recordingNotifier) ProducerPausedOrResumed(_ domain.ProducerID, paused bool) {
	n.mu.Lock()
	n.producerPauses = append(n.producerPauses, paused)
	n.mu.Unlock()
}

func (n *recordingNotifier) StartProduceRequested(cameraID domain.CameraID) {
	n.mu.Lock()
	n.startProduce = append(n.startProduce, cameraID)
	n.mu.Unlock()
}

func (n *recordingNotifier) transformCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.transformBatches)
}

func (n *recordingNotifier) lastTransforms() domain.Transforms {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.transformBatches) == 0 {
		return nil
	}
	return n.transformBatches[len(n.transformBatches)-1]
}

func (n *recordingNotifier) lastVrState() *domain.VrSpaceState {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.vrStates) == 0 {
		return nil
	}
	return n.vrStates[len(n.vrStates)-1]
}

func (n *recordingNotifier) startProduceCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.startProduce)
}

func (n *recordingNotifier) unloadedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.unloaded)
}

// testHarness bundles a registry with its backing fakes.
type testHarness struct {
	engine     *fakeEngine
	venueRepo  *memory.VenueRepository
	cameraRepo *memory.CameraRepository
	registry   *Registry
}

func newTestHarness() *testHarness {
	engine := newFakeEngine()
	venueRepo := memory.NewVenueRepository()
	cameraRepo := memory.NewCameraRepository()
	registry := NewRegistry(RegistryConfig{
		Engine:                 engine,
		VenueRepo:              venueRepo,
		CameraRepo:             cameraRepo,
		Logger:                 zap.NewNop().Sugar(),
		TransformFlushInterval: 20 * time.Millisecond,
		MaxIncomingBitrate:     8_000_000,
	})
	return &testHarness{engine: engine, venueRepo: venueRepo, cameraRepo: cameraRepo, registry: registry}
}

// seedVenue persists a started venue with a vr space and returns its
// record.
func (h *testHarness) seedVenue(owner domain.UserID) domain.VenueRecord {
	vrSpaceID := domain.NewVrSpaceID()
	start := time.Now().Add(-time.Hour)
	record := domain.VenueRecord{
		VenueID:         domain.NewVenueID(),
		Name:            "test venue",
		Visibility:      domain.VisibilityPublic,
		OwnerUserID:     owner,
		StreamStartTime: &start,
		StreamAutoStart: true,
		VrSpaceID:       &vrSpaceID,
	}
	_ = h.venueRepo.CreateVenue(context.Background(), &record)
	return record
}

func (h *testHarness) seedCamera(venueID domain.VenueID, name string, senderID domain.SenderID) domain.CameraRecord {
	record := domain.CameraRecord{
		CameraID:   domain.NewCameraID(),
		VenueID:    venueID,
		Name:       name,
		SenderID:   senderID,
		CameraType: domain.CameraTypeNormal,
	}
	_ = h.cameraRepo.CreateCamera(context.Background(), &record)
	return record
}

func testUser(role domain.UserRole) domain.UserRecord {
	return domain.UserRecord{
		UserID:   domain.UserID("user-" + string(domain.NewConnectionID())),
		Username: "tester",
		Role:     role,
	}
}

func newViewer(notifier ports.Notifier) *Client {
	return NewViewerClient(domain.NewConnectionID(), testUser(domain.RoleUser), notifier, zap.NewNop().Sugar())
}

func newSender(senderID domain.SenderID, notifier ports.Notifier) *Client {
	return NewSenderClient(domain.NewConnectionID(), testUser(domain.RoleSender), senderID, notifier, zap.NewNop().Sugar())
}

func joinedVenue(h *testHarness, record domain.VenueRecord, clients ...*Client) (*Venue, error) {
	v, err := h.registry.LoadVenue(context.Background(), record.VenueID, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if err := v.AddClient(c); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// fakeCoordinator records coordinator traffic for assertions.
type fakeCoordinator struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	claimed  []domain.VenueID
	released []domain.VenueID
}

func (c *fakeCoordinator) AcquireLoadLock(_ context.Context, _ domain.VenueID) (func(), error) {
	c.mu.Lock()
	c.locks++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.unlocks++
		c.mu.Unlock()
	}, nil
}

func (c *fakeCoordinator) ClaimVenue(_ context.Context, id domain.VenueID) error {
	c.mu.Lock()
	c.claimed = append(c.claimed, id)
	c.mu.Unlock()
	return nil
}

func (c *fakeCoordinator) ReleaseVenue(_ context.Context, id domain.VenueID) error {
	c.mu.Lock()
	c.released = append(c.released, id)
	c.mu.Unlock()
	return nil
}
