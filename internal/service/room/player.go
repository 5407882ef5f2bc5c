package room

import (
	"context"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type RequestInitialStateParams struct {
	Sender *connection.Conn
}

// RequestInitialStateResponse either names a live controller to ask for the
// current state or carries the stored state directly.
type RequestInitialStateResponse struct {
	Controller *connection.Conn
	State      domain.PlayerState
	VideoURL   string
}

func (s service) RequestInitialState(ctx context.Context, params *RequestInitialStateParams) (RequestInitialStateResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return RequestInitialStateResponse{}, err
	}

	for _, member := range v.members {
		if member.UserID == v.sender.UserID || !v.members.IsController(member.UserID) {
			continue
		}

		if conn, err := s.connRepo.Get(member.SocketID); err == nil {
			return RequestInitialStateResponse{Controller: conn}, nil
		}
	}

	return RequestInitialStateResponse{
		State:    s.storedPlayerState(v.state.Player),
		VideoURL: v.state.Room.VideoURL,
	}, nil
}

// storedPlayerState advances a playing position by the time elapsed since
// it was stored.
func (s service) storedPlayerState(player room.Player) domain.PlayerState {
	state := domain.PlayerState{
		Time:   player.Time,
		Status: domain.Status(player.Status),
	}

	if state.Status == domain.StatusPlaying && player.UpdatedAt > 0 {
		elapsed := s.now().Sub(time.UnixMilli(player.UpdatedAt))
		if elapsed > 0 {
			state.Time += elapsed.Seconds()
		}
	}

	return state
}

type AnswerControllerStateParams struct {
	Sender      *connection.Conn
	RequesterID string
	State       domain.PlayerState
}

type AnswerControllerStateResponse struct {
	Requester *connection.Conn
	State     domain.PlayerState
	VideoURL  string
}

func (s service) AnswerControllerState(ctx context.Context, params *AnswerControllerStateParams) (AnswerControllerStateResponse, error) {
	v, err := s.viewAsController(ctx, params.Sender)
	if err != nil {
		return AnswerControllerStateResponse{}, err
	}

	if !params.State.Status.Valid() || params.State.Time < 0 {
		return AnswerControllerStateResponse{}, ErrInvalidPlayerState
	}

	requester, err := s.connRepo.Get(params.RequesterID)
	if err != nil || requester.RoomID != params.Sender.RoomID {
		return AnswerControllerStateResponse{}, ErrMemberNotFound
	}

	return AnswerControllerStateResponse{
		Requester: requester,
		State:     params.State,
		VideoURL:  v.state.Room.VideoURL,
	}, nil
}

type UpdatePlayerStateParams struct {
	Sender *connection.Conn
	State  domain.PlayerState
}

type UpdatePlayerStateResponse struct {
	Conns    []*connection.Conn
	State    domain.PlayerState
	VideoURL string
}

func (s service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (UpdatePlayerStateResponse, error) {
	v, err := s.viewAsController(ctx, params.Sender)
	if err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	if !params.State.Status.Valid() || params.State.Time < 0 {
		return UpdatePlayerStateResponse{}, ErrInvalidPlayerState
	}

	if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{
		RoomID:    params.Sender.RoomID,
		Time:      params.State.Time,
		Status:    int(params.State.Status),
		UpdatedAt: s.now(),
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set player", "error", err)
		return UpdatePlayerStateResponse{}, s.mapRepoErr(err)
	}

	return UpdatePlayerStateResponse{
		Conns:    v.others(params.Sender.ID),
		State:    params.State,
		VideoURL: v.state.Room.VideoURL,
	}, nil
}
