package venue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

func transformAt(x float64) domain.Transform {
	return domain.Transform{Position: [3]float64{x, 0, 0}, Orientation: [4]float64{0, 0, 0, 1}}
}

func TestTransformsAreCoalescedLatestWins(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	notifier := &recordingNotifier{}
	mover := newViewer(&recordingNotifier{})
	watcher := newViewer(notifier)
	v, err := joinedVenue(h, record, mover, watcher)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(mover)
	require.NoError(t, err)
	_, err = v.JoinVrSpace(watcher)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		v.SubmitTransform(mover, transformAt(float64(i)))
	}

	require.Eventually(t, func() bool {
		return notifier.transformCount() > 0
	}, time.Second, 5*time.Millisecond)

	// Every submission landed inside one window, so exactly one batch
	// arrives and it carries only the newest pose.
	assert.Equal(t, 1, notifier.transformCount())
	batch := notifier.lastTransforms()
	require.Contains(t, batch, mover.ConnectionID())
	assert.Equal(t, float64(49), batch[mover.ConnectionID()].Position[0])
}

func TestTransformBatchCarriesAllMovers(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	notifier := &recordingNotifier{}
	a := newViewer(nil)
	b := newViewer(nil)
	watcher := newViewer(notifier)
	v, err := joinedVenue(h, record, a, b, watcher)
	require.NoError(t, err)

	for _, viewer := range []*Client{a, b, watcher} {
		_, err = v.JoinVrSpace(viewer)
		require.NoError(t, err)
	}

	v.SubmitTransform(a, transformAt(1))
	v.SubmitTransform(b, transformAt(2))

	require.Eventually(t, func() bool {
		return notifier.transformCount() > 0
	}, time.Second, 5*time.Millisecond)

	batch := notifier.lastTransforms()
	assert.Len(t, batch, 2)
	assert.Contains(t, batch, a.ConnectionID())
	assert.Contains(t, batch, b.ConnectionID())
}

func TestTransformFromNonMemberIsDropped(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	notifier := &recordingNotifier{}
	outsider := newViewer(nil)
	watcher := newViewer(notifier)
	v, err := joinedVenue(h, record, outsider, watcher)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(watcher)
	require.NoError(t, err)

	v.SubmitTransform(outsider, transformAt(7))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, notifier.transformCount())
}

func TestLeaveVrSpaceStopsDelivery(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	notifier := &recordingNotifier{}
	mover := newViewer(nil)
	watcher := newViewer(notifier)
	v, err := joinedVenue(h, record, mover, watcher)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(mover)
	require.NoError(t, err)
	_, err = v.JoinVrSpace(watcher)
	require.NoError(t, err)

	v.LeaveVrSpace(watcher)
	before := notifier.transformCount()
	v.SubmitTransform(mover, transformAt(3))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, before, notifier.transformCount())
}

func TestVenueWithoutVrSpaceRejectsJoin(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	record.VrSpaceID = nil
	require.NoError(t, h.venueRepo.UpdateVenue(t.Context(), &record))

	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(viewer)
	assert.ErrorIs(t, err, domain.ErrVrSpaceNotFound)
}

func TestClientStateReportsVrSpaceMembership(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(viewer)
	require.NoError(t, err)
	v.SubmitTransform(viewer, transformAt(5))

	state := v.ClientState(viewer)
	require.NotNil(t, state.CurrentVrSpaceID)
	require.NotNil(t, state.Transform)
	assert.Equal(t, float64(5), state.Transform.Position[0])
}

func TestVrSpaceStateCarriesMemberDetails(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	mover := newViewer(nil)
	watcher := newViewer(nil)
	v, err := joinedVenue(h, record, mover, watcher)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(mover)
	require.NoError(t, err)
	_, err = v.CreateMediaTransport(context.Background(), mover, domain.DirectionSend)
	require.NoError(t, err)
	producer, err := mover.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaAudio})
	require.NoError(t, err)
	v.SubmitTransform(mover, transformAt(4))

	state, err := v.JoinVrSpace(watcher)
	require.NoError(t, err)

	require.Contains(t, state.Clients, mover.ConnectionID())
	entry := state.Clients[mover.ConnectionID()]
	assert.Equal(t, mover.UserID(), entry.UserID)
	assert.Equal(t, mover.Username(), entry.Username)
	assert.Equal(t, domain.RoleUser, entry.Role)
	require.NotNil(t, entry.Producers.Audio)
	assert.Equal(t, producer.ID(), entry.Producers.Audio.ProducerID)
	require.NotNil(t, entry.Transform)
	assert.Equal(t, float64(4), entry.Transform.Position[0])
}
