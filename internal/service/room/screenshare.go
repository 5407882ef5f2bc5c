package room

import (
	"context"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
)

type ScreenShareParams struct {
	Sender *connection.Conn
}

type ScreenShareResponse struct {
	SharerID string
	Conns    []*connection.Conn
}

func (s service) StartScreenShare(ctx context.Context, params *ScreenShareParams) (ScreenShareResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return ScreenShareResponse{}, err
	}

	if v.sender.Role != domain.RoleHost && !s.connRepo.IsShareGranted(params.Sender.RoomID, v.sender.UserID) {
		return ScreenShareResponse{}, ErrScreenShareNotAllowed
	}

	if err := s.connRepo.SetSharer(params.Sender.RoomID, params.Sender.ID); err != nil {
		return ScreenShareResponse{}, err
	}

	return ScreenShareResponse{
		SharerID: v.sender.UserID,
		Conns:    v.others(params.Sender.ID),
	}, nil
}

func (s service) StopScreenShare(ctx context.Context, params *ScreenShareParams) (ScreenShareResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return ScreenShareResponse{}, err
	}

	if !s.connRepo.ClearSharer(params.Sender.RoomID, params.Sender.ID) {
		return ScreenShareResponse{}, ErrNotSharing
	}

	return ScreenShareResponse{
		SharerID: v.sender.UserID,
		Conns:    v.others(params.Sender.ID),
	}, nil
}

type RequestScreenShareResponse struct {
	Host              *connection.Conn
	RequesterID       string
	RequesterUsername string
}

// RequestScreenShare forwards a participant's request to the host. Only one
// request per user may be pending.
func (s service) RequestScreenShare(ctx context.Context, params *ScreenShareParams) (RequestScreenShareResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return RequestScreenShareResponse{}, err
	}

	if v.sender.Role == domain.RoleHost {
		return RequestScreenShareResponse{}, ErrPermissionDenied
	}

	host, ok := v.members.Host()
	if !ok {
		return RequestScreenShareResponse{}, ErrHostNotConnected
	}

	hostConn, err := s.connRepo.Get(host.SocketID)
	if err != nil {
		return RequestScreenShareResponse{}, ErrHostNotConnected
	}

	if err := s.connRepo.AddShareRequest(params.Sender.RoomID, v.sender.UserID); err != nil {
		return RequestScreenShareResponse{}, err
	}

	return RequestScreenShareResponse{
		Host:              hostConn,
		RequesterID:       v.sender.UserID,
		RequesterUsername: v.sender.Username,
	}, nil
}

type RespondScreenShareParams struct {
	Sender      *connection.Conn
	RequesterID string
	Accepted    bool
}

type RespondScreenShareResponse struct {
	// Requester is nil when the requester has disconnected.
	Requester *connection.Conn
	Granted   bool
}

func (s service) RespondScreenShare(ctx context.Context, params *RespondScreenShareParams) (RespondScreenShareResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return RespondScreenShareResponse{}, err
	}

	if v.sender.Role != domain.RoleHost {
		return RespondScreenShareResponse{}, ErrPermissionDenied
	}

	if err := s.connRepo.ResolveShareRequest(params.Sender.RoomID, params.RequesterID, params.Accepted); err != nil {
		return RespondScreenShareResponse{}, err
	}

	requester, _ := s.connRepo.GetByUser(params.Sender.RoomID, params.RequesterID)

	return RespondScreenShareResponse{
		Requester: requester,
		Granted:   params.Accepted,
	}, nil
}

type ResolvePeerParams struct {
	Sender         *connection.Conn
	TargetSocketID string
}

// ResolvePeer finds the signaling target, which must share the sender's room.
func (s service) ResolvePeer(_ context.Context, params *ResolvePeerParams) (*connection.Conn, error) {
	if registered, err := s.connRepo.Get(params.Sender.ID); err != nil || registered != params.Sender {
		return nil, ErrNotJoined
	}

	target, err := s.connRepo.Get(params.TargetSocketID)
	if err != nil || target.RoomID != params.Sender.RoomID || target == params.Sender {
		return nil, ErrMemberNotFound
	}

	return target, nil
}
