package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/internal/core/venue"
	apperrors "github.com/Muab01/samVR/pkg/errors"
)

func decode[T any](payload json.RawMessage) (T, error) {
	var out T
	if len(payload) == 0 {
		return out, apperrors.NewInvalidInput("payload is required")
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, apperrors.NewInvalidInput(fmt.Sprintf("malformed payload: %v", err))
	}
	return out, nil
}

func (s *Server) dispatch(ctx context.Context, sess *session, req *Request) (interface{}, error) {
	switch req.Method {
	// Venue lifecycle and discovery.
	case "createVenue":
		return s.handleCreateVenue(ctx, sess, req.Payload)
	case "listVenues":
		return s.handleListVenues(ctx, sess)
	case "joinVenue":
		return s.handleJoinVenue(ctx, sess, req.Payload)
	case "leaveVenue":
		return s.handleLeaveVenue(sess)
	case "venueState":
		return s.handleVenueState(sess)
	case "updateVenue":
		return s.handleUpdateVenue(ctx, sess, req.Payload)
	case "deleteVenue":
		return s.handleDeleteVenue(ctx, sess, req.Payload)
	case "setStreamActive":
		return s.handleSetStreamActive(ctx, sess, req.Payload)
	case "setMainCamera":
		return s.handleSetMainCamera(ctx, sess, req.Payload)

	// Cameras and portals.
	case "createCamera":
		return s.handleCreateCamera(ctx, sess, req.Payload)
	case "updateCamera":
		return s.handleUpdateCamera(ctx, sess, req.Payload)
	case "deleteCamera":
		return s.handleDeleteCamera(ctx, sess, req.Payload)
	case "setSenderForCamera":
		return s.handleSetSenderForCamera(ctx, sess, req.Payload)
	case "detachSenderFromCamera":
		return s.handleDetachSender(ctx, sess, req.Payload)
	case "requestStartProduce":
		return s.handleRequestStartProduce(sess, req.Payload)
	case "setPortal":
		return s.handleSetPortal(ctx, sess, req.Payload)
	case "deletePortal":
		return s.handleDeletePortal(ctx, sess, req.Payload)
	case "joinCamera":
		return s.handleJoinCamera(sess, req.Payload)
	case "leaveCamera":
		return s.handleLeaveCamera(sess)

	// Vr space.
	case "joinVrSpace":
		return s.handleJoinVrSpace(sess)
	case "leaveVrSpace":
		return s.handleLeaveVrSpace(sess)
	case "submitTransform":
		return s.handleSubmitTransform(sess, req.Payload)

	// Media.
	case "setRtpCapabilities":
		return s.handleSetCapabilities(sess, req.Payload)
	case "createTransport":
		return s.handleCreateTransport(ctx, sess, req.Payload)
	case "connectTransport":
		return s.handleConnectTransport(ctx, sess, req.Payload)
	case "produce":
		return s.handleProduce(ctx, sess, req.Payload)
	case "closeProducer":
		return s.handleCloseProducer(sess, req.Payload)
	case "pauseProducer":
		return s.handlePauseProducer(sess, req.Payload)
	case "consume":
		return s.handleConsume(ctx, sess, req.Payload)
	case "closeConsumer":
		return s.handleCloseConsumer(sess, req.Payload)
	case "pauseConsumer":
		return s.handlePauseConsumer(sess, req.Payload)

	default:
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) requireVenue(sess *session) (*venue.Venue, error) {
	v := sess.client.Venue()
	if v == nil {
		return nil, domain.ErrNotInVenue
	}
	return v, nil
}

// requireVenueManager allows the venue owner and moderators to administer
// a venue.
func (s *Server) requireVenueManager(sess *session, v *venue.Venue) error {
	if v.Record().OwnerUserID == sess.client.UserID() {
		return nil
	}
	return s.auth.RequireRole(sess.claims, domain.RoleModerator)
}

func (s *Server) handleCreateVenue(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Name string `json:"name"`
	}](payload)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, apperrors.NewInvalidInput("venue name is required")
	}
	if err := s.auth.RequireRole(sess.claims, domain.RoleUser); err != nil {
		return nil, err
	}
	return s.registry.CreateVenue(ctx, sess.client.UserID(), p.Name)
}

func (s *Server) handleListVenues(ctx context.Context, sess *session) (interface{}, error) {
	user := domain.UserRecord{UserID: sess.client.UserID(), Username: sess.client.Username(), Role: sess.client.Role()}
	return s.registry.ListVenues(ctx, &user)
}

func (s *Server) handleJoinVenue(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		VenueID domain.VenueID `json:"venueId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	user := domain.UserRecord{UserID: sess.client.UserID(), Username: sess.client.Username(), Role: sess.client.Role()}
	v, err := s.registry.LoadVenue(ctx, p.VenueID, &user)
	if err != nil {
		return nil, err
	}
	if err := v.AddClient(sess.client); err != nil {
		// This join may have been what loaded the venue; don't leave it
		// lingering with nobody inside.
		if v.ClientCount() == 0 {
			v.Unload("no clients after failed join")
		}
		return nil, err
	}
	if sess.client.IsModerator() {
		return v.AdminState(), nil
	}
	return v.PublicState(), nil
}

func (s *Server) handleLeaveVenue(sess *session) (interface{}, error) {
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	v.RemoveClient(sess.client)
	return nil, nil
}

func (s *Server) handleVenueState(sess *session) (interface{}, error) {
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if sess.client.IsModerator() {
		return v.AdminState(), nil
	}
	return v.PublicState(), nil
}

func (s *Server) handleUpdateVenue(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Name       *string                 `json:"name,omitempty"`
		Visibility *domain.VenueVisibility `json:"visibility,omitempty"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	record := v.Record()
	if p.Name != nil {
		record.Name = *p.Name
	}
	if p.Visibility != nil {
		record.Visibility = *p.Visibility
	}
	if err := s.registry.UpdateVenueRecord(ctx, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Server) handleDeleteVenue(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		VenueID domain.VenueID `json:"venueId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	record, err := s.registry.GetVenueRecord(ctx, p.VenueID)
	if err != nil {
		return nil, err
	}
	if record.OwnerUserID != sess.client.UserID() {
		if err := s.auth.RequireRole(sess.claims, domain.RoleAdmin); err != nil {
			return nil, err
		}
	}
	return nil, s.registry.DeleteVenue(ctx, p.VenueID)
}

func (s *Server) handleSetStreamActive(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Active bool `json:"active"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.SetStreamActive(ctx, p.Active)
}

func (s *Server) handleSetMainCamera(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		CameraID domain.CameraID `json:"cameraId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.SetMainCamera(ctx, p.CameraID)
}

func (s *Server) handleCreateCamera(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Name       string            `json:"name"`
		CameraType domain.CameraType `json:"cameraType,omitempty"`
		SenderID   domain.SenderID   `json:"senderId,omitempty"`
	}](payload)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, apperrors.NewInvalidInput("camera name is required")
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return v.CreateCamera(ctx, p.Name, p.CameraType, p.SenderID)
}

func (s *Server) handleUpdateCamera(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[domain.CameraRecord](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return v.UpdateCamera(ctx, p)
}

func (s *Server) handleDeleteCamera(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		CameraID domain.CameraID `json:"cameraId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.DeleteCamera(ctx, p.CameraID)
}

func (s *Server) handleSetSenderForCamera(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		CameraID domain.CameraID `json:"cameraId"`
		SenderID domain.SenderID `json:"senderId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.SetSenderForCamera(ctx, p.CameraID, p.SenderID)
}

func (s *Server) handleRequestStartProduce(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		CameraID domain.CameraID `json:"cameraId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.RequestStartProduce(p.CameraID)
}

func (s *Server) handleDetachSender(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		CameraID domain.CameraID `json:"cameraId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.DetachSenderFromCamera(ctx, p.CameraID)
}

func (s *Server) handleSetPortal(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[domain.CameraPortalRecord](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.SetPortal(ctx, p)
}

func (s *Server) handleDeletePortal(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		FromCameraID domain.CameraID `json:"fromCameraId"`
		ToCameraID   domain.CameraID `json:"toCameraId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	if err := s.requireVenueManager(sess, v); err != nil {
		return nil, err
	}
	return nil, v.DeletePortal(ctx, p.FromCameraID, p.ToCameraID)
}

func (s *Server) handleJoinCamera(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		CameraID domain.CameraID `json:"cameraId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	return v.JoinCamera(sess.client, p.CameraID)
}

func (s *Server) handleLeaveCamera(sess *session) (interface{}, error) {
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	return nil, v.LeaveCamera(sess.client)
}

func (s *Server) handleJoinVrSpace(sess *session) (interface{}, error) {
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	return v.JoinVrSpace(sess.client)
}

func (s *Server) handleLeaveVrSpace(sess *session) (interface{}, error) {
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	v.LeaveVrSpace(sess.client)
	return nil, nil
}

func (s *Server) handleSubmitTransform(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[domain.Transform](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	v.SubmitTransform(sess.client, p)
	return nil, nil
}

func (s *Server) handleSetCapabilities(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[ports.RtpCapabilities](payload)
	if err != nil {
		return nil, err
	}
	sess.client.SetCapabilities(&p)
	return nil, nil
}

func (s *Server) handleCreateTransport(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Direction domain.TransportDirection `json:"direction"`
	}](payload)
	if err != nil {
		return nil, err
	}
	if p.Direction != domain.DirectionSend && p.Direction != domain.DirectionReceive {
		return nil, apperrors.NewInvalidInput("direction must be send or receive")
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	return v.CreateMediaTransport(ctx, sess.client, p.Direction)
}

func (s *Server) handleConnectTransport(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Direction      domain.TransportDirection `json:"direction"`
		DTLSParameters json.RawMessage           `json:"dtlsParameters"`
	}](payload)
	if err != nil {
		return nil, err
	}
	return nil, sess.client.ConnectTransport(ctx, p.Direction, ports.TransportConnectParams{DTLSParameters: p.DTLSParameters})
}

func (s *Server) handleProduce(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		Kind          domain.MediaKind `json:"kind"`
		RtpParameters json.RawMessage  `json:"rtpParameters"`
		Paused        bool             `json:"paused"`
	}](payload)
	if err != nil {
		return nil, err
	}
	if p.Kind != domain.MediaVideo && p.Kind != domain.MediaAudio {
		return nil, apperrors.NewInvalidInput("kind must be video or audio")
	}
	if _, err := s.requireVenue(sess); err != nil {
		return nil, err
	}
	producer, err := sess.client.CreateProducer(ctx, ports.ProduceParams{
		Kind:          p.Kind,
		RtpParameters: p.RtpParameters,
		Paused:        p.Paused,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"producerId": producer.ID()}, nil
}

func (s *Server) handleCloseProducer(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		ProducerID domain.ProducerID `json:"producerId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	return nil, sess.client.CloseProducer(p.ProducerID)
}

func (s *Server) handlePauseProducer(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		ProducerID domain.ProducerID `json:"producerId"`
		Paused     bool              `json:"paused"`
	}](payload)
	if err != nil {
		return nil, err
	}
	return nil, sess.client.PauseProducer(p.ProducerID, p.Paused)
}

func (s *Server) handleConsume(ctx context.Context, sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		ProducerID domain.ProducerID `json:"producerId"`
		Paused     bool              `json:"paused"`
	}](payload)
	if err != nil {
		return nil, err
	}
	v, err := s.requireVenue(sess)
	if err != nil {
		return nil, err
	}
	result, err := v.CreateConsumer(ctx, sess.client, p.ProducerID, p.Paused)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"consumer":       result.Info,
		"alreadyExisted": result.AlreadyExisted,
	}, nil
}

func (s *Server) handleCloseConsumer(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		ConsumerID domain.ConsumerID `json:"consumerId"`
	}](payload)
	if err != nil {
		return nil, err
	}
	return nil, sess.client.CloseConsumer(p.ConsumerID)
}

func (s *Server) handlePauseConsumer(sess *session, payload json.RawMessage) (interface{}, error) {
	p, err := decode[struct {
		ConsumerID domain.ConsumerID `json:"consumerId"`
		Paused     bool              `json:"paused"`
	}](payload)
	if err != nil {
		return nil, err
	}
	return nil, sess.client.PauseConsumer(p.ConsumerID, p.Paused)
}
