package signal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

// connection owns one websocket. All writes funnel through a buffered
// channel drained by a single writer goroutine; notifier pushes that would
// block are dropped rather than stalling venue code.
type connection struct {
	id   domain.ConnectionID
	conn *websocket.Conn
	log  *zap.SugaredLogger

	send         chan interface{}
	writeTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(id domain.ConnectionID, conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration, log *zap.SugaredLogger) *connection {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &connection{
		id:           id,
		conn:         conn,
		log:          log.With("connectionId", id),
		send:         make(chan interface{}, sendBuffer),
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// enqueue hands a message to the writer. Returns false when the buffer is
// full or the connection is closing.
func (c *connection) enqueue(message interface{}) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		c.log.Warnw("send buffer full, dropping message")
		return false
	}
}

// writePump drains the send channel and emits pings. Runs until close.
func (c *connection) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Infow("write failed, closing connection", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *connection) sendEvent(name string, payload interface{}) {
	c.enqueue(Event{Event: name, Payload: payload})
}

func (c *connection) sendResponse(requestID string, payload interface{}) {
	c.enqueue(Response{RequestID: requestID, Success: true, Payload: payload})
}

func (c *connection) sendErrorResponse(requestID string, err error) {
	c.enqueue(Response{RequestID: requestID, Success: false, Error: toWireError(err)})
}

// notifier adapts a connection to the venue notification port.
type notifier struct {
	conn *connection
}

var _ ports.Notifier = (*notifier)(nil)

func (n *notifier) VenueStateUpdated(state *domain.VenueState, reason string) {
	n.conn.sendEvent(eventVenueStateUpdated, map[string]interface{}{"state": state, "reason": reason})
}

func (n *notifier) VenueStateUpdatedAdminOnly(state *domain.VenueAdminState, reason string) {
	n.conn.sendEvent(eventVenueStateUpdatedAdmin, map[string]interface{}{"state": state, "reason": reason})
}

func (n *notifier) VenueWasUnloaded(venueID domain.VenueID) {
	n.conn.sendEvent(eventVenueWasUnloaded, map[string]interface{}{"venueId": venueID})
}

func (n *notifier) CameraStateUpdated(state *domain.CameraState, reason string) {
	n.conn.sendEvent(eventCameraStateUpdated, map[string]interface{}{"state": state, "reason": reason})
}

func (n *notifier) VrSpaceStateUpdated(state *domain.VrSpaceState, reason string) {
	n.conn.sendEvent(eventVrSpaceStateUpdated, map[string]interface{}{"state": state, "reason": reason})
}

func (n *notifier) ClientTransforms(transforms domain.Transforms) {
	n.conn.sendEvent(eventClientTransforms, map[string]interface{}{"transforms": transforms})
}

func (n *notifier) ClientStateUpdated(state *domain.ClientState, reason string) {
	n.conn.sendEvent(eventClientStateUpdated, map[string]interface{}{"state": state, "reason": reason})
}

func (n *notifier) ObjectClosed(objectType, id, reason string) {
	n.conn.sendEvent(eventObjectClosed, map[string]interface{}{
		"objectType": objectType,
		"id":         id,
		"reason":     reason,
	})
}

func (n *notifier) ConsumerPausedOrResumed(consumerID domain.ConsumerID, paused bool) {
	n.conn.sendEvent(eventConsumerPausedResumed, map[string]interface{}{"consumerId": consumerID, "paused": paused})
}

func (n *notifier) ProducerPausedOrResumed(producerID domain.ProducerID, paused bool) {
	n.conn.sendEvent(eventProducerPausedResumed, map[string]interface{}{"producerId": producerID, "paused": paused})
}

func (n *notifier) StartProduceRequested(cameraID domain.CameraID) {
	n.conn.sendEvent(eventStartProduceRequested, map[string]interface{}{"cameraId": cameraID})
}
