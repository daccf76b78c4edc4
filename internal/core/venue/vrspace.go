package venue

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/pkg/batch"
)

// VrSpace is a venue's shared 3d room. Incoming transforms are coalesced
// per connection and fanned out to every member at most once per flush
// interval, so a fast-moving headset cannot flood slower viewers.
//
// Membership is guarded by its own mutex (not the venue's) because the
// coalescer flush runs on a timer goroutine.
type VrSpace struct {
	id      domain.VrSpaceID
	venueID domain.VenueID
	log     *zap.SugaredLogger
	metrics ports.MetricsSink

	mu      sync.Mutex
	clients map[domain.ConnectionID]*Client

	pending *batch.Coalescer[domain.ConnectionID, domain.Transform]
}

func newVrSpace(id domain.VrSpaceID, venueID domain.VenueID, flushInterval time.Duration, metrics ports.MetricsSink, log *zap.SugaredLogger) *VrSpace {
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	vs := &VrSpace{
		id:      id,
		venueID: venueID,
		log:     log,
		metrics: metrics,
		clients: make(map[domain.ConnectionID]*Client),
	}
	vs.pending = batch.NewCoalescer[domain.ConnectionID, domain.Transform](flushInterval, vs.broadcastTransforms)
	return vs
}

func (vs *VrSpace) ID() domain.VrSpaceID { return vs.id }

// addClient places a viewer inside the space.
func (vs *VrSpace) addClient(viewer *Client) {
	vs.mu.Lock()
	vs.clients[viewer.connectionID] = viewer
	vs.mu.Unlock()
	vs.notifyState("client entered vr space")
}

// removeClient takes a viewer out of the space and drops any transform it
// still had pending.
func (vs *VrSpace) removeClient(viewer *Client) {
	vs.mu.Lock()
	_, wasMember := vs.clients[viewer.connectionID]
	delete(vs.clients, viewer.connectionID)
	vs.mu.Unlock()
	if wasMember {
		vs.notifyState("client left vr space")
	}
}

func (vs *VrSpace) hasClient(id domain.ConnectionID) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	_, ok := vs.clients[id]
	return ok
}

// SubmitTransform records a member's latest pose. Transforms from
// connections that are not members are dropped silently; a racing leave
// must not surface as an error to the sender.
func (vs *VrSpace) SubmitTransform(connectionID domain.ConnectionID, transform domain.Transform) {
	if !vs.hasClient(connectionID) {
		return
	}
	vs.pending.Put(connectionID, transform)
}

// broadcastTransforms fans a coalesced batch out to every current member,
// including the ones whose own transforms are in it.
func (vs *VrSpace) broadcastTransforms(pending map[domain.ConnectionID]domain.Transform) {
	if vs.metrics != nil {
		vs.metrics.RecordTransformFlush(len(pending))
	}
	transforms := make(domain.Transforms, len(pending))
	for id, t := range pending {
		transforms[id] = t
	}

	vs.mu.Lock()
	targets := make([]*Client, 0, len(vs.clients))
	for _, member := range vs.clients {
		if member.notifier != nil {
			targets = append(targets, member)
		}
	}
	vs.mu.Unlock()

	for _, member := range targets {
		member.notifier.ClientTransforms(transforms)
	}
}

// state builds the space's public projection with one entry per member.
// Member entries are built outside the space's own lock from fields each
// client guards itself.
func (vs *VrSpace) state() *domain.VrSpaceState {
	vs.mu.Lock()
	members := make([]*Client, 0, len(vs.clients))
	for _, member := range vs.clients {
		members = append(members, member)
	}
	vs.mu.Unlock()

	clients := make(map[domain.ConnectionID]*domain.ClientState, len(members))
	for _, member := range members {
		clients[member.connectionID] = member.vrMemberState()
	}
	return &domain.VrSpaceState{VrSpaceID: vs.id, VenueID: vs.venueID, Clients: clients}
}

func (vs *VrSpace) notifyState(reason string) {
	state := vs.state()
	vs.mu.Lock()
	targets := make([]*Client, 0, len(vs.clients))
	for _, member := range vs.clients {
		if member.notifier != nil {
			targets = append(targets, member)
		}
	}
	vs.mu.Unlock()
	for _, member := range targets {
		member.notifier.VrSpaceStateUpdated(state, reason)
	}
}

// close flushes anything pending and clears membership.
func (vs *VrSpace) close() {
	vs.pending.Stop()
	vs.mu.Lock()
	vs.clients = make(map[domain.ConnectionID]*Client)
	vs.mu.Unlock()
}
