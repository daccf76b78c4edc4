package signal

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/internal/core/services"
	"github.com/Muab01/samVR/internal/core/venue"
	"github.com/Muab01/samVR/internal/infrastructure/repositories/memory"
)

// stubEngine is just enough media engine for exercising the wire layer.
type stubEngine struct{}

func (e *stubEngine) CreateRoutingContext(ctx context.Context, venueID domain.VenueID) (ports.RoutingContext, error) {
	return &stubRoutingContext{}, nil
}

type stubRoutingContext struct{}

func (rc *stubRoutingContext) CreateTransport(ctx context.Context, direction domain.TransportDirection) (ports.Transport, error) {
	return &stubTransport{id: domain.NewTransportID(), direction: direction}, nil
}

func (rc *stubRoutingContext) CanConsume(producerID domain.ProducerID, capabilities *ports.RtpCapabilities) bool {
	return true
}

func (rc *stubRoutingContext) Close() error { return nil }

type stubTransport struct {
	id        domain.TransportID
	direction domain.TransportDirection
	onClosed  func()
}

func (t *stubTransport) ID() domain.TransportID                  { return t.id }
func (t *stubTransport) Direction() domain.TransportDirection    { return t.direction }
func (t *stubTransport) Info() ports.TransportInfo               { return ports.TransportInfo{TransportID: t.id} }
func (t *stubTransport) SetMaxIncomingBitrate(bitrate int) error { return nil }
func (t *stubTransport) OnClosed(fn func())                      { t.onClosed = fn }
func (t *stubTransport) Close() error                            { return nil }

func (t *stubTransport) Connect(ctx context.Context, params ports.TransportConnectParams) error {
	return nil
}

func (t *stubTransport) Produce(ctx context.Context, params ports.ProduceParams) (ports.Producer, error) {
	return &stubProducer{id: domain.NewProducerID(), kind: params.Kind, paused: params.Paused}, nil
}

func (t *stubTransport) Consume(ctx context.Context, producerID domain.ProducerID, paused bool) (ports.Consumer, error) {
	return &stubConsumer{id: domain.NewConsumerID(), producerID: producerID, paused: paused}, nil
}

type stubProducer struct {
	id       domain.ProducerID
	kind     domain.MediaKind
	paused   bool
	onClosed func()
}

func (p *stubProducer) ID() domain.ProducerID  { return p.id }
func (p *stubProducer) Kind() domain.MediaKind { return p.kind }
func (p *stubProducer) Paused() bool           { return p.paused }
func (p *stubProducer) Pause() error           { p.paused = true; return nil }
func (p *stubProducer) Resume() error          { p.paused = false; return nil }
func (p *stubProducer) OnClosed(fn func())     { p.onClosed = fn }
func (p *stubProducer) Close() error           { return nil }

type stubConsumer struct {
	id         domain.ConsumerID
	producerID domain.ProducerID
	paused     bool
}

func (c *stubConsumer) ID() domain.ConsumerID         { return c.id }
func (c *stubConsumer) ProducerID() domain.ProducerID { return c.producerID }
func (c *stubConsumer) Kind() domain.MediaKind        { return domain.MediaVideo }
func (c *stubConsumer) Paused() bool                  { return c.paused }
func (c *stubConsumer) Pause() error                  { c.paused = true; return nil }
func (c *stubConsumer) Resume() error                 { c.paused = false; return nil }
func (c *stubConsumer) OnClosed(fn func())            {}
func (c *stubConsumer) OnProducerClosed(fn func())    {}
func (c *stubConsumer) Close() error                  { return nil }

func (c *stubConsumer) Info() ports.ConsumerInfo {
	return ports.ConsumerInfo{ConsumerID: c.id, ProducerID: c.producerID, Kind: domain.MediaVideo, Paused: c.paused}
}

// dropNotifier discards events; dispatch tests assert on return values, not
// pushes.
type dropNotifier struct{}

func (dropNotifier) VenueStateUpdated(*domain.VenueState, string)               {}
func (dropNotifier) VenueStateUpdatedAdminOnly(*domain.VenueAdminState, string) {}
func (dropNotifier) VenueWasUnloaded(domain.VenueID)                            {}
func (dropNotifier) CameraStateUpdated(*domain.CameraState, string)             {}
func (dropNotifier) VrSpaceStateUpdated(*domain.VrSpaceState, string)           {}
func (dropNotifier) ClientTransforms(domain.Transforms)                         {}
func (dropNotifier) ClientStateUpdated(*domain.ClientState, string)             {}
func (dropNotifier) ObjectClosed(objectType, id, reason string)                 {}
func (dropNotifier) ConsumerPausedOrResumed(domain.ConsumerID, bool)            {}
func (dropNotifier) ProducerPausedOrResumed(domain.ProducerID, bool)            {}
func (dropNotifier) StartProduceRequested(domain.CameraID)                      {}

type signalHarness struct {
	server *Server
	users  *memory.UserRepository
	auth   services.AuthService
}

func newSignalHarness() *signalHarness {
	log := zap.NewNop().Sugar()
	users := memory.NewUserRepository()
	auth := services.NewAuthService("signal-test-secret", time.Hour, users)
	registry := venue.NewRegistry(venue.RegistryConfig{
		Engine:                 &stubEngine{},
		VenueRepo:              memory.NewVenueRepository(),
		CameraRepo:             memory.NewCameraRepository(),
		Logger:                 log,
		TransformFlushInterval: 20 * time.Millisecond,
	})
	return &signalHarness{
		server: NewServer(registry, auth, Config{}, log),
		users:  users,
		auth:   auth,
	}
}

// viewerSession builds an authenticated session without a websocket; the
// dispatch path never touches the connection.
func (h *signalHarness) viewerSession(user domain.UserRecord) *session {
	h.users.PutUser(user)
	client := venue.NewViewerClient(domain.NewConnectionID(), user, dropNotifier{}, h.server.log)
	claims := &services.Claims{
		UserID:     user.UserID,
		Username:   user.Username,
		Role:       user.Role,
		ClientType: domain.ClientTypeViewer,
	}
	return &session{client: client, claims: claims}
}

func (h *signalHarness) senderSession(user domain.UserRecord, senderID domain.SenderID) *session {
	h.users.PutUser(user)
	client := venue.NewSenderClient(domain.NewConnectionID(), user, senderID, dropNotifier{}, h.server.log)
	claims := &services.Claims{
		UserID:     user.UserID,
		Username:   user.Username,
		Role:       user.Role,
		ClientType: domain.ClientTypeSender,
		SenderID:   senderID,
	}
	return &session{client: client, claims: claims}
}

func (h *signalHarness) call(sess *session, method string, payload interface{}) (interface{}, error) {
	req := &Request{RequestID: "r1", Method: method}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req.Payload = raw
	}
	return h.server.dispatch(context.Background(), sess, req)
}
