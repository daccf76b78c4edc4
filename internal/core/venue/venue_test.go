package venue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

func TestAddClientRejectsDuplicateSenderID(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()

	v, err := joinedVenue(h, record, newSender(senderID, nil))
	require.NoError(t, err)

	err = v.AddClient(newSender(senderID, nil))
	assert.ErrorIs(t, err, domain.ErrDuplicateSender)
}

func TestAddClientRejectsSecondVenue(t *testing.T) {
	h := newTestHarness()
	first := h.seedVenue("owner")
	second := h.seedVenue("owner")

	viewer := newViewer(nil)
	_, err := joinedVenue(h, first, viewer)
	require.NoError(t, err)

	v2, err := h.registry.LoadVenue(context.Background(), second.VenueID, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, v2.AddClient(viewer), domain.ErrVenueAlreadyJoined)
}

func TestSenderAutoMatchesPersistedCamera(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	cam := h.seedCamera(record.VenueID, "stage", senderID)

	notifier := &recordingNotifier{}
	sender := newSender(senderID, notifier)
	v, err := joinedVenue(h, record, sender)
	require.NoError(t, err)

	state := v.PublicState()
	require.Contains(t, state.Cameras, cam.CameraID)
	assert.True(t, state.Cameras[cam.CameraID].SenderAttached)
	assert.Equal(t, 1, notifier.startProduceCount())
}

func TestSetSenderWhileOccupiedFails(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	cam := h.seedCamera(record.VenueID, "stage", "")

	first := newSender(domain.NewSenderID(), nil)
	second := newSender(domain.NewSenderID(), nil)
	v, err := joinedVenue(h, record, first, second)
	require.NoError(t, err)

	require.NoError(t, v.SetSenderForCamera(context.Background(), cam.CameraID, first.SenderID()))
	err = v.SetSenderForCamera(context.Background(), cam.CameraID, second.SenderID())
	assert.ErrorIs(t, err, domain.ErrCameraHasSender)
}

func TestSetSenderPersistsPairing(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	cam := h.seedCamera(record.VenueID, "stage", "")

	sender := newSender(domain.NewSenderID(), nil)
	v, err := joinedVenue(h, record, sender)
	require.NoError(t, err)
	require.NoError(t, v.SetSenderForCamera(context.Background(), cam.CameraID, sender.SenderID()))

	stored, err := h.cameraRepo.GetCamera(context.Background(), cam.CameraID)
	require.NoError(t, err)
	assert.Equal(t, sender.SenderID(), stored.SenderID)
}

func TestProducerCapOnePerKind(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	sender := newSender(domain.NewSenderID(), nil)
	v, err := joinedVenue(h, record, sender)
	require.NoError(t, err)

	_, err = v.CreateMediaTransport(context.Background(), sender, domain.DirectionSend)
	require.NoError(t, err)

	_, err = sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaVideo})
	require.NoError(t, err)
	_, err = sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaAudio})
	require.NoError(t, err)

	_, err = sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaVideo})
	assert.ErrorIs(t, err, domain.ErrProducerExists)
}

func TestProducerRequiresSendTransport(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	sender := newSender(domain.NewSenderID(), nil)
	_, err := joinedVenue(h, record, sender)
	require.NoError(t, err)

	_, err = sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaVideo})
	assert.ErrorIs(t, err, domain.ErrNoSendTransport)
}

func TestTransportPerDirectionIsUnique(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)

	_, err = v.CreateMediaTransport(context.Background(), viewer, domain.DirectionReceive)
	require.NoError(t, err)
	_, err = v.CreateMediaTransport(context.Background(), viewer, domain.DirectionReceive)
	assert.ErrorIs(t, err, domain.ErrTransportExists)
}

func setupProducingSender(t *testing.T, h *testHarness, v *Venue, sender *Client) ports.Producer {
	t.Helper()
	_, err := v.CreateMediaTransport(context.Background(), sender, domain.DirectionSend)
	require.NoError(t, err)
	producer, err := sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaVideo})
	require.NoError(t, err)
	return producer
}

func setupReceivingViewer(t *testing.T, v *Venue, viewer *Client) {
	t.Helper()
	viewer.SetCapabilities(&ports.RtpCapabilities{})
	_, err := v.CreateMediaTransport(context.Background(), viewer, domain.DirectionReceive)
	require.NoError(t, err)
}

func TestConsumerIdempotentPerProducer(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	sender := newSender(domain.NewSenderID(), nil)
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, sender, viewer)
	require.NoError(t, err)

	producer := setupProducingSender(t, h, v, sender)
	setupReceivingViewer(t, v, viewer)

	first, err := v.CreateConsumer(context.Background(), viewer, producer.ID(), false)
	require.NoError(t, err)
	assert.False(t, first.AlreadyExisted)

	second, err := v.CreateConsumer(context.Background(), viewer, producer.ID(), false)
	require.NoError(t, err)
	assert.True(t, second.AlreadyExisted)
	assert.Equal(t, first.Info.ConsumerID, second.Info.ConsumerID)
}

func TestConsumerRequiresCapabilities(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	sender := newSender(domain.NewSenderID(), nil)
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, sender, viewer)
	require.NoError(t, err)

	producer := setupProducingSender(t, h, v, sender)
	_, err = v.CreateMediaTransport(context.Background(), viewer, domain.DirectionReceive)
	require.NoError(t, err)

	_, err = v.CreateConsumer(context.Background(), viewer, producer.ID(), false)
	assert.ErrorIs(t, err, domain.ErrCapabilitiesUnknown)
}

func TestConsumerUnknownProducer(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)
	setupReceivingViewer(t, v, viewer)

	_, err = v.CreateConsumer(context.Background(), viewer, domain.NewProducerID(), false)
	assert.ErrorIs(t, err, domain.ErrProducerNotFound)
}

func TestLeavingCameraClosesItsConsumers(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	cam := h.seedCamera(record.VenueID, "stage", senderID)

	sender := newSender(senderID, nil)
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, sender, viewer)
	require.NoError(t, err)

	producer := setupProducingSender(t, h, v, sender)
	setupReceivingViewer(t, v, viewer)

	_, err = v.JoinCamera(viewer, cam.CameraID)
	require.NoError(t, err)
	result, err := v.CreateConsumer(context.Background(), viewer, producer.ID(), false)
	require.NoError(t, err)

	require.NoError(t, v.LeaveCamera(viewer))
	assert.True(t, result.Consumer.(*fakeConsumer).isClosed())
}

func TestJoinCameraMovesBetweenCameras(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	camA := h.seedCamera(record.VenueID, "a", "")
	camB := h.seedCamera(record.VenueID, "b", "")

	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)

	_, err = v.JoinCamera(viewer, camA.CameraID)
	require.NoError(t, err)
	stateB, err := v.JoinCamera(viewer, camB.CameraID)
	require.NoError(t, err)

	assert.Contains(t, stateB.Clients, viewer.ConnectionID())
	full := v.PublicState()
	assert.Empty(t, full.Cameras[camA.CameraID].Clients)
	require.NotNil(t, full.Clients[viewer.ConnectionID()].CurrentCameraID)
	assert.Equal(t, camB.CameraID, *full.Clients[viewer.ConnectionID()].CurrentCameraID)
}

func TestRemoveClientDetachesSenderFromCamera(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	cam := h.seedCamera(record.VenueID, "stage", senderID)

	sender := newSender(senderID, nil)
	keeper := newViewer(nil)
	v, err := joinedVenue(h, record, sender, keeper)
	require.NoError(t, err)

	v.RemoveClient(sender)
	state := v.PublicState()
	assert.False(t, state.Cameras[cam.CameraID].SenderAttached)
	assert.Nil(t, sender.Venue())
}

func TestVenueAutoUnloadsWhenEmpty(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	viewer := newViewer(nil)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)

	v.RemoveClient(viewer)

	_, err = h.registry.GetVenue(record.VenueID)
	assert.ErrorIs(t, err, domain.ErrVenueNotLoaded)
	assert.True(t, h.engine.contexts[0].isClosed())
}

func TestForcedUnloadNotifiesClients(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	notifier := &recordingNotifier{}
	viewer := newViewer(notifier)
	v, err := joinedVenue(h, record, viewer)
	require.NoError(t, err)

	v.Unload("maintenance")

	assert.Equal(t, 1, notifier.unloadedCount())
	assert.Nil(t, viewer.Venue())
	_, err = h.registry.GetVenue(record.VenueID)
	assert.ErrorIs(t, err, domain.ErrVenueNotLoaded)
}

func TestAdminStateListsDetachedSenders(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	h.seedCamera(record.VenueID, "stage", senderID)

	matched := newSender(senderID, nil)
	detached := newSender(domain.NewSenderID(), nil)
	v, err := joinedVenue(h, record, matched, detached)
	require.NoError(t, err)

	admin := v.AdminState()
	assert.Len(t, admin.DetachedSenders, 1)
	assert.Contains(t, admin.DetachedSenders, detached.ConnectionID())

	public := v.PublicState()
	assert.NotContains(t, public.Clients, detached.ConnectionID())
}

func TestDeleteCameraReloadsPortalSources(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	camA := h.seedCamera(record.VenueID, "a", "")
	camB := h.seedCamera(record.VenueID, "b", "")

	v, err := joinedVenue(h, record, newViewer(nil))
	require.NoError(t, err)

	require.NoError(t, v.SetPortal(context.Background(), domain.CameraPortalRecord{
		FromCameraID: camA.CameraID,
		ToCameraID:   camB.CameraID,
		X:            0.5, Y: 0.5, Distance: 2,
	}))
	require.NoError(t, v.DeleteCamera(context.Background(), camB.CameraID))

	state := v.PublicState()
	assert.NotContains(t, state.Cameras, camB.CameraID)
	assert.Empty(t, state.Cameras[camA.CameraID].Portals)

	stored, err := h.cameraRepo.GetCamera(context.Background(), camA.CameraID)
	require.NoError(t, err)
	assert.Empty(t, stored.Portals)
}

func TestDeleteMainCameraClearsVenueRecord(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	cam := h.seedCamera(record.VenueID, "stage", "")

	v, err := joinedVenue(h, record, newViewer(nil))
	require.NoError(t, err)
	require.NoError(t, v.SetMainCamera(context.Background(), cam.CameraID))
	require.NoError(t, v.DeleteCamera(context.Background(), cam.CameraID))

	assert.Nil(t, v.Record().MainCameraID)
	stored, err := h.venueRepo.GetVenue(context.Background(), record.VenueID)
	require.NoError(t, err)
	assert.Nil(t, stored.MainCameraID)
}

func TestServerSideProducerCloseUpdatesCameraState(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	cam := h.seedCamera(record.VenueID, "stage", senderID)

	sender := newSender(senderID, nil)
	v, err := joinedVenue(h, record, sender, newViewer(nil))
	require.NoError(t, err)

	producer := setupProducingSender(t, h, v, sender)
	state := v.PublicState()
	require.True(t, state.Cameras[cam.CameraID].IsStreaming)

	producer.(*fakeProducer).serverClose()
	state = v.PublicState()
	assert.False(t, state.Cameras[cam.CameraID].IsStreaming)
}

func TestPauseProducerNotifiesOwner(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	notifier := &recordingNotifier{}
	sender := newSender(domain.NewSenderID(), notifier)
	v, err := joinedVenue(h, record, sender)
	require.NoError(t, err)

	producer := setupProducingSender(t, h, v, sender)
	require.NoError(t, sender.PauseProducer(producer.ID(), true))

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.producerPauses, 1)
	assert.True(t, notifier.producerPauses[0])
}

func TestAudioOnlySenderMarksCameraStreaming(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	cam := h.seedCamera(record.VenueID, "stage", senderID)

	sender := newSender(senderID, nil)
	v, err := joinedVenue(h, record, sender)
	require.NoError(t, err)

	_, err = v.CreateMediaTransport(context.Background(), sender, domain.DirectionSend)
	require.NoError(t, err)
	_, err = sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaAudio})
	require.NoError(t, err)

	state := v.PublicState()
	require.Contains(t, state.Cameras, cam.CameraID)
	assert.True(t, state.Cameras[cam.CameraID].IsStreaming)
	assert.NotNil(t, state.Cameras[cam.CameraID].Producers.Audio)
}

func TestAudioProducerPromotesMainAudio(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	h.seedCamera(record.VenueID, "stage", senderID)

	notifier := &recordingNotifier{}
	sender := newSender(senderID, nil)
	watcher := newViewer(notifier)
	v, err := joinedVenue(h, record, sender, watcher)
	require.NoError(t, err)

	_, err = v.CreateMediaTransport(context.Background(), sender, domain.DirectionSend)
	require.NoError(t, err)
	producer, err := sender.CreateProducer(context.Background(), ports.ProduceParams{Kind: domain.MediaAudio})
	require.NoError(t, err)

	state := v.PublicState()
	require.NotNil(t, state.MainAudioProducerID)
	assert.Equal(t, producer.ID(), *state.MainAudioProducerID)

	notifier.mu.Lock()
	assert.Contains(t, notifier.venueReasons, "main camera producers changed")
	notifier.mu.Unlock()

	require.NoError(t, sender.CloseProducer(producer.ID()))
	assert.Nil(t, v.PublicState().MainAudioProducerID)
}

func TestRemoveClientClearsCameraAndVrSpaceMembership(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	senderID := domain.NewSenderID()
	cam := h.seedCamera(record.VenueID, "stage", senderID)

	watcherNotifier := &recordingNotifier{}
	sender := newSender(senderID, nil)
	viewer := newViewer(nil)
	watcher := newViewer(watcherNotifier)
	v, err := joinedVenue(h, record, sender, viewer, watcher)
	require.NoError(t, err)

	producer := setupProducingSender(t, h, v, sender)
	setupReceivingViewer(t, v, viewer)

	_, err = v.JoinCamera(viewer, cam.CameraID)
	require.NoError(t, err)
	_, err = v.JoinVrSpace(viewer)
	require.NoError(t, err)
	_, err = v.JoinVrSpace(watcher)
	require.NoError(t, err)
	result, err := v.CreateConsumer(context.Background(), viewer, producer.ID(), false)
	require.NoError(t, err)

	v.RemoveClient(viewer)

	state := v.PublicState()
	assert.Empty(t, state.Cameras[cam.CameraID].Clients)
	vrState := watcherNotifier.lastVrState()
	require.NotNil(t, vrState)
	assert.NotContains(t, vrState.Clients, viewer.ConnectionID())
	assert.True(t, result.Consumer.(*fakeConsumer).isClosed())
}

func TestSenderCannotJoinVrSpace(t *testing.T) {
	h := newTestHarness()
	record := h.seedVenue("owner")
	sender := newSender(domain.NewSenderID(), nil)
	v, err := joinedVenue(h, record, sender)
	require.NoError(t, err)

	_, err = v.JoinVrSpace(sender)
	assert.ErrorIs(t, err, domain.ErrSenderInVrSpace)
}
