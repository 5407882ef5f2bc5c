package room

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

// roomView is the state an operation sees: the persisted room, the live
// roster and the member performing the operation.
type roomView struct {
	state   room.State
	conns   []*connection.Conn
	members domain.Members
	sender  domain.Member
}

func (v roomView) others(senderSocketID string) []*connection.Conn {
	others := make([]*connection.Conn, 0, len(v.conns))
	for _, conn := range v.conns {
		if conn.ID != senderSocketID {
			others = append(others, conn)
		}
	}

	return others
}

func (v roomView) isController() bool {
	return v.members.IsController(v.sender.UserID)
}

// roleOf derives a user's role from the persisted room.
func roleOf(state room.State, userID string) domain.Role {
	switch {
	case userID == state.Room.HostID:
		return domain.RoleHost
	case slices.Contains(state.Moderators, userID):
		return domain.RoleModerator
	}
	return domain.RoleParticipant
}

func buildMembers(state room.State, conns []*connection.Conn) domain.Members {
	members := make(domain.Members, 0, len(conns))
	for _, conn := range conns {
		members = append(members, domain.Member{
			UserID:   conn.UserID,
			Username: state.Users[conn.UserID],
			Role:     roleOf(state, conn.UserID),
			SocketID: conn.ID,
		})
	}
	members.SortByRole()

	return members
}

func (s service) mapRepoErr(err error) error {
	if errors.Is(err, room.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if errors.Is(err, room.ErrUserNotFound) {
		return ErrMemberNotFound
	}
	return err
}

// getState loads a room, treating an expired room as missing.
func (s service) getState(ctx context.Context, roomID string) (room.State, error) {
	state, err := s.roomRepo.GetState(ctx, roomID)
	if err != nil {
		return room.State{}, s.mapRepoErr(err)
	}

	if !s.now().Before(state.Room.ExpiresAtTime()) {
		return room.State{}, ErrRoomNotFound
	}

	return state, nil
}

func (s service) viewRoom(ctx context.Context, roomID string) (roomView, error) {
	state, err := s.getState(ctx, roomID)
	if err != nil {
		return roomView{}, err
	}

	conns := s.connRepo.RoomConns(roomID)

	return roomView{
		state:   state,
		conns:   conns,
		members: buildMembers(state, conns),
	}, nil
}

// viewAs loads the room as seen by a registered connection.
func (s service) viewAs(ctx context.Context, conn *connection.Conn) (roomView, error) {
	registered, err := s.connRepo.Get(conn.ID)
	if err != nil || registered != conn {
		return roomView{}, ErrNotJoined
	}

	v, err := s.viewRoom(ctx, conn.RoomID)
	if err != nil {
		return roomView{}, err
	}

	sender, ok := v.members.Find(conn.UserID)
	if !ok {
		return roomView{}, ErrNotJoined
	}
	v.sender = sender

	return v, nil
}

func (s service) viewAsController(ctx context.Context, conn *connection.Conn) (roomView, error) {
	v, err := s.viewAs(ctx, conn)
	if err != nil {
		return roomView{}, err
	}

	if !v.isController() {
		return roomView{}, ErrNotController
	}

	return v, nil
}

func (s service) systemMessage(format string, args ...any) *domain.ChatMessage {
	msg := domain.NewSystemMessage(uuid.NewString(), fmt.Sprintf(format, args...), s.now())
	return &msg
}
