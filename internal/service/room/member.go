package room

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/validator"
)

type ConnectMemberParams struct {
	Conn     *connection.Conn
	Username string
}

type ConnectMemberResponse struct {
	Members domain.Members
	Conns   []*connection.Conn
	// Replaced is the previous connection of the same user, if any.
	Replaced      *connection.Conn
	Sharer        *connection.Conn
	SharerID      string
	SystemMessage *domain.ChatMessage
	ShareStopped  bool
	// DroppedRequests are requesters whose pending screen share request
	// died with the host's previous connection.
	DroppedRequests []*connection.Conn
}

func (s service) ConnectMember(ctx context.Context, params *ConnectMemberParams) (ConnectMemberResponse, error) {
	conn := params.Conn

	state, err := s.getState(ctx, conn.RoomID)
	if err != nil {
		return ConnectMemberResponse{}, err
	}

	if slices.Contains(state.Banned, conn.UserID) {
		return ConnectMemberResponse{}, ErrUserBanned
	}

	if state.Users == nil {
		state.Users = make(map[string]string)
	}

	if _, ok := state.Users[conn.UserID]; !ok {
		username := strings.TrimSpace(params.Username)
		if !validator.ValidUsername(username) {
			return ConnectMemberResponse{}, ErrInvalidUsername
		}

		if err := s.roomRepo.SetUser(ctx, &room.SetUserParams{
			RoomID:   conn.RoomID,
			UserID:   conn.UserID,
			Username: username,
		}); err != nil {
			return ConnectMemberResponse{}, s.mapRepoErr(err)
		}
		state.Users[conn.UserID] = username
	}

	// a repeated joinRoom on the same socket only refreshes the roster
	if existing, err := s.connRepo.Get(conn.ID); err == nil && existing == conn {
		conns := s.connRepo.RoomConns(conn.RoomID)
		return ConnectMemberResponse{Members: buildMembers(state, conns), Conns: conns}, nil
	}

	live := 0
	for _, c := range s.connRepo.RoomConns(conn.RoomID) {
		if c.UserID != conn.UserID {
			live++
		}
	}
	if s.membersLimit > 0 && live >= s.membersLimit {
		return ConnectMemberResponse{}, ErrMembersLimitReached
	}

	replaced, err := s.connRepo.Add(conn)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to add connection", "error", err)
		return ConnectMemberResponse{}, err
	}

	var resp ConnectMemberResponse
	resp.Replaced = replaced
	if replaced != nil {
		resp.ShareStopped = s.connRepo.ClearSharer(conn.RoomID, replaced.ID)
		if roleOf(state, conn.UserID) == domain.RoleHost {
			resp.DroppedRequests = s.dropShareRequests(conn.RoomID)
		}
	} else {
		resp.SystemMessage = s.systemMessage("%s joined the room", state.Users[conn.UserID])
	}

	resp.Conns = s.connRepo.RoomConns(conn.RoomID)
	resp.Members = buildMembers(state, resp.Conns)

	if sharer, ok := s.connRepo.Sharer(conn.RoomID); ok && sharer != conn {
		resp.Sharer = sharer
		resp.SharerID = sharer.UserID
	}

	return resp, nil
}

type DisconnectMemberParams struct {
	Conn *connection.Conn
}

type DisconnectMemberResponse struct {
	Members         domain.Members
	Conns           []*connection.Conn
	SystemMessage   *domain.ChatMessage
	ShareStopped    bool
	DroppedRequests []*connection.Conn
}

// DisconnectMember handles both leaveRoom and a closed socket. A replaced or
// already removed connection yields ErrNotJoined.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	conn := params.Conn

	if _, err := s.connRepo.Remove(conn.ID); err != nil {
		return DisconnectMemberResponse{}, ErrNotJoined
	}

	var resp DisconnectMemberResponse
	resp.ShareStopped = s.connRepo.ClearSharer(conn.RoomID, conn.ID)

	v, err := s.viewRoom(ctx, conn.RoomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			resp.Conns = s.connRepo.RoomConns(conn.RoomID)
			return resp, nil
		}
		return DisconnectMemberResponse{}, err
	}

	resp.Members = v.members
	resp.Conns = v.conns
	resp.SystemMessage = s.systemMessage("%s left the room", v.state.Users[conn.UserID])
	if roleOf(v.state, conn.UserID) == domain.RoleHost {
		resp.DroppedRequests = s.dropShareRequests(conn.RoomID)
	}

	return resp, nil
}

// dropShareRequests forgets the host's unanswered requests, which only ever
// lived in the host's inbox, and returns the requesters still connected.
func (s service) dropShareRequests(roomID string) []*connection.Conn {
	var conns []*connection.Conn
	for _, userID := range s.connRepo.ClearShareRequests(roomID) {
		if c, err := s.connRepo.GetByUser(roomID, userID); err == nil {
			conns = append(conns, c)
		}
	}

	return conns
}

type UpdateRoleParams struct {
	Sender       *connection.Conn
	TargetUserID string
}

type MembersChangedResponse struct {
	Members       domain.Members
	Conns         []*connection.Conn
	SystemMessage *domain.ChatMessage
}

func (s service) membersChanged(ctx context.Context, roomID string, msg *domain.ChatMessage) (MembersChangedResponse, error) {
	v, err := s.viewRoom(ctx, roomID)
	if err != nil {
		return MembersChangedResponse{}, err
	}

	return MembersChangedResponse{
		Members:       v.members,
		Conns:         v.conns,
		SystemMessage: msg,
	}, nil
}

func (s service) MakeModerator(ctx context.Context, params *UpdateRoleParams) (MembersChangedResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return MembersChangedResponse{}, err
	}

	if v.sender.Role != domain.RoleHost {
		return MembersChangedResponse{}, ErrPermissionDenied
	}

	username, ok := v.state.Users[params.TargetUserID]
	if !ok {
		return MembersChangedResponse{}, ErrMemberNotFound
	}

	if roleOf(v.state, params.TargetUserID) != domain.RoleParticipant {
		return MembersChangedResponse{}, ErrAlreadyModerator
	}

	if err := s.roomRepo.AddModerator(ctx, params.Sender.RoomID, params.TargetUserID); err != nil {
		s.logger.InfoContext(ctx, "failed to add moderator", "error", err)
		return MembersChangedResponse{}, s.mapRepoErr(err)
	}

	return s.membersChanged(ctx, params.Sender.RoomID, s.systemMessage("%s is now a moderator", username))
}

func (s service) RemoveModerator(ctx context.Context, params *UpdateRoleParams) (MembersChangedResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return MembersChangedResponse{}, err
	}

	if v.sender.Role != domain.RoleHost {
		return MembersChangedResponse{}, ErrPermissionDenied
	}

	username, ok := v.state.Users[params.TargetUserID]
	if !ok {
		return MembersChangedResponse{}, ErrMemberNotFound
	}

	if roleOf(v.state, params.TargetUserID) != domain.RoleModerator {
		return MembersChangedResponse{}, ErrNotModerator
	}

	if err := s.roomRepo.RemoveModerator(ctx, params.Sender.RoomID, params.TargetUserID); err != nil {
		s.logger.InfoContext(ctx, "failed to remove moderator", "error", err)
		return MembersChangedResponse{}, s.mapRepoErr(err)
	}

	return s.membersChanged(ctx, params.Sender.RoomID, s.systemMessage("%s is no longer a moderator", username))
}

type RemoveUserParams struct {
	Sender       *connection.Conn
	TargetUserID string
}

type RemoveUserResponse struct {
	// Target is the removed user's connection; nil when they were offline.
	Target        *connection.Conn
	Members       domain.Members
	Conns         []*connection.Conn
	SystemMessage *domain.ChatMessage
	ShareStopped  bool
}

func (s service) removeUser(ctx context.Context, params *RemoveUserParams, ban bool) (RemoveUserResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return RemoveUserResponse{}, err
	}

	username, ok := v.state.Users[params.TargetUserID]
	if !ok {
		return RemoveUserResponse{}, ErrMemberNotFound
	}

	target := domain.Member{
		UserID:   params.TargetUserID,
		Username: username,
		Role:     roleOf(v.state, params.TargetUserID),
	}
	if !domain.CanManage(v.sender, target) {
		return RemoveUserResponse{}, ErrPermissionDenied
	}

	targetConn, err := s.connRepo.GetByUser(params.Sender.RoomID, params.TargetUserID)
	if err != nil && !ban {
		return RemoveUserResponse{}, ErrMemberNotFound
	}

	action := "kicked"
	if ban {
		action = "banned"
		if err := s.roomRepo.BanUser(ctx, params.Sender.RoomID, params.TargetUserID); err != nil {
			s.logger.InfoContext(ctx, "failed to ban user", "error", err)
			return RemoveUserResponse{}, s.mapRepoErr(err)
		}
	}

	var resp RemoveUserResponse
	if targetConn != nil {
		if _, err := s.connRepo.Remove(targetConn.ID); err == nil {
			resp.Target = targetConn
			resp.ShareStopped = s.connRepo.ClearSharer(targetConn.RoomID, targetConn.ID)
		}
	}

	changed, err := s.membersChanged(ctx, params.Sender.RoomID, s.systemMessage("%s was %s", username, action))
	if err != nil {
		return RemoveUserResponse{}, err
	}

	resp.Members = changed.Members
	resp.Conns = changed.Conns
	resp.SystemMessage = changed.SystemMessage

	return resp, nil
}

func (s service) KickUser(ctx context.Context, params *RemoveUserParams) (RemoveUserResponse, error) {
	return s.removeUser(ctx, params, false)
}

func (s service) BanUser(ctx context.Context, params *RemoveUserParams) (RemoveUserResponse, error) {
	return s.removeUser(ctx, params, true)
}

type UpdateUsernameParams struct {
	Sender      *connection.Conn
	NewUsername string
}

func (s service) UpdateUsername(ctx context.Context, params *UpdateUsernameParams) (MembersChangedResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return MembersChangedResponse{}, err
	}

	username := strings.TrimSpace(params.NewUsername)
	if !validator.ValidUsername(username) {
		return MembersChangedResponse{}, ErrInvalidUsername
	}

	if username == v.sender.Username {
		return s.membersChanged(ctx, params.Sender.RoomID, nil)
	}

	if err := s.roomRepo.SetUser(ctx, &room.SetUserParams{
		RoomID:   params.Sender.RoomID,
		UserID:   params.Sender.UserID,
		Username: username,
	}); err != nil {
		return MembersChangedResponse{}, s.mapRepoErr(err)
	}

	return s.membersChanged(ctx, params.Sender.RoomID, s.systemMessage("%s is now known as %s", v.sender.Username, username))
}
