package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/services"
	"github.com/Muab01/samVR/internal/core/venue"
	apperrors "github.com/Muab01/samVR/pkg/errors"
)

// Config tunes the websocket endpoint. MessagesPerSecond of zero
// disables per-connection rate limiting.
type Config struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	SendBuffer        int
	AllowedOrigins    []string
	MessagesPerSecond float64
	MessageBurst      int
}

// Metrics receives connection and request telemetry. Nil disables
// collection.
type Metrics interface {
	RecordConnectionOpened()
	RecordConnectionClosed()
	RecordSignalRequest(method string, duration time.Duration, err error)
}

// Server terminates client websockets: it authenticates the handshake,
// dispatches requests into the venue layer and pushes venue events back
// out.
type Server struct {
	registry *venue.Registry
	auth     services.AuthService
	config   Config
	log      *zap.SugaredLogger
	metrics  Metrics
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[domain.ConnectionID]*session
}

type session struct {
	conn   *connection
	client *venue.Client
	claims *services.Claims
}

func NewServer(registry *venue.Registry, auth services.AuthService, config Config, log *zap.SugaredLogger) *Server {
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = 60 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	s := &Server{
		registry: registry,
		auth:     auth,
		config:   config,
		log:      log,
		sessions: make(map[domain.ConnectionID]*session),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetMetrics attaches a telemetry sink. Call before serving traffic.
func (s *Server) SetMetrics(m Metrics) { s.metrics = m }

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ConnectionCount returns the number of live sessions.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// HandleWebSocket authenticates and serves one client connection. The
// handshake carries the connection token as a query parameter because
// browsers cannot set websocket headers.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	user, err := s.auth.ResolveUser(r.Context(), claims)
	if err != nil {
		http.Error(w, "failed to resolve user", http.StatusInternalServerError)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("websocket upgrade failed", "error", err)
		return
	}

	connectionID := domain.NewConnectionID()
	conn := newConnection(connectionID, wsConn, s.config.SendBuffer, s.config.WriteTimeout, s.log)
	n := &notifier{conn: conn}

	var client *venue.Client
	if claims.ClientType == domain.ClientTypeSender {
		client = venue.NewSenderClient(connectionID, *user, claims.SenderID, n, s.log)
	} else {
		client = venue.NewViewerClient(connectionID, *user, n, s.log)
	}
	sess := &session{conn: conn, client: client, claims: claims}

	s.mu.Lock()
	s.sessions[connectionID] = sess
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordConnectionOpened()
	}
	s.log.Infow("client connected",
		"connectionId", connectionID,
		"userId", user.UserID,
		"clientType", claims.ClientType,
	)

	go conn.writePump(s.config.PingInterval)
	s.readLoop(sess)

	s.mu.Lock()
	delete(s.sessions, connectionID)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
	}
	if v := client.Venue(); v != nil {
		v.RemoveClient(client)
	}
	conn.close()
	s.log.Infow("client disconnected", "connectionId", connectionID)
}

func (s *Server) readLoop(sess *session) {
	conn := sess.conn
	_ = conn.conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	})

	var limiter *rate.Limiter
	if s.config.MessagesPerSecond > 0 {
		burst := s.config.MessageBurst
		if burst <= 0 {
			burst = int(s.config.MessagesPerSecond)
		}
		limiter = rate.NewLimiter(rate.Limit(s.config.MessagesPerSecond), burst)
	}

	for {
		var req Request
		if err := conn.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.log.Infow("read failed", "error", err)
			}
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))

		if req.Method == "" {
			conn.sendErrorResponse(req.RequestID, apperrors.NewInvalidInput("method is required"))
			continue
		}
		if limiter != nil && !limiter.Allow() {
			conn.sendErrorResponse(req.RequestID, apperrors.NewRateLimit())
			continue
		}
		start := time.Now()
		payload, err := s.dispatch(context.Background(), sess, &req)
		if s.metrics != nil {
			s.metrics.RecordSignalRequest(req.Method, time.Since(start), err)
		}
		if err != nil {
			conn.log.Infow("request failed", "method", req.Method, "error", err)
			conn.sendErrorResponse(req.RequestID, err)
			continue
		}
		conn.sendResponse(req.RequestID, payload)
	}
}
