package room

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/randstr"
	"github.com/sharetube/watchparty/pkg/validator"
)

const createRoomAttempts = 3

type RoomWithTokenResponse struct {
	Room  domain.Room
	Token string
}

func (s service) snapshot(state room.State, roomID string) domain.Room {
	user := func(id string) domain.RoomUser {
		return domain.RoomUser{UserID: id, Username: state.Users[id]}
	}

	snap := domain.Room{
		RoomID:       roomID,
		RoomName:     state.Room.Name,
		Host:         user(state.Room.HostID),
		Moderators:   []domain.RoomUser{},
		Participants: []domain.RoomUser{},
		VideoURL:     state.Room.VideoURL,
		Queue:        state.Playlist,
		History:      state.History,
		BannedUsers:  state.Banned,
		Duration:     state.Room.Duration,
		CreatedAt:    state.Room.CreatedAtTime(),
		ExpiresAt:    state.Room.ExpiresAtTime(),
	}
	snap.IsActive = !snap.Expired(s.now())

	for userID := range state.Users {
		switch roleOf(state, userID) {
		case domain.RoleModerator:
			snap.Moderators = append(snap.Moderators, user(userID))
		case domain.RoleParticipant:
			snap.Participants = append(snap.Participants, user(userID))
		}
	}

	byName := func(a, b domain.RoomUser) int { return strings.Compare(a.Username, b.Username) }
	slices.SortFunc(snap.Moderators, byName)
	slices.SortFunc(snap.Participants, byName)

	if snap.Queue == nil {
		snap.Queue = []string{}
	}
	if snap.History == nil {
		snap.History = []string{}
	}
	if snap.BannedUsers == nil {
		snap.BannedUsers = []string{}
	}

	return snap
}

type CreateRoomParams struct {
	HostID   string
	Username string
	RoomName string
	// Duration is in minutes; zero selects the default duration.
	Duration int
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (RoomWithTokenResponse, error) {
	username := strings.TrimSpace(params.Username)
	if !validator.ValidUsername(username) {
		return RoomWithTokenResponse{}, ErrInvalidUsername
	}

	roomName := strings.TrimSpace(params.RoomName)
	if !validator.ValidRoomName(roomName) {
		return RoomWithTokenResponse{}, ErrInvalidRoomName
	}

	duration := s.defaultRoomDuration
	if params.Duration != 0 {
		duration = time.Duration(params.Duration) * time.Minute
	}
	if duration <= 0 || duration > s.maxRoomDuration {
		return RoomWithTokenResponse{}, ErrInvalidDuration
	}

	now := s.now()
	var roomID string
	for attempt := 0; ; attempt++ {
		roomID = s.generator.Generate(randstr.RoomIDLength)
		err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
			RoomID:    roomID,
			Name:      roomName,
			HostID:    params.HostID,
			HostName:  username,
			Duration:  int(duration / time.Minute),
			CreatedAt: now,
			ExpiresAt: now.Add(duration),
		})
		if err == nil {
			break
		}

		if !errors.Is(err, room.ErrRoomAlreadyExists) || attempt+1 >= createRoomAttempts {
			s.logger.InfoContext(ctx, "failed to create room", "error", err)
			return RoomWithTokenResponse{}, err
		}
	}

	return s.roomWithToken(ctx, roomID, params.HostID)
}

func (s service) roomWithToken(ctx context.Context, roomID, userID string) (RoomWithTokenResponse, error) {
	state, err := s.getState(ctx, roomID)
	if err != nil {
		return RoomWithTokenResponse{}, err
	}

	token, err := s.generateJWT(roomID, userID, state.Room.ExpiresAtTime())
	if err != nil {
		s.logger.InfoContext(ctx, "failed to generate token", "error", err)
		return RoomWithTokenResponse{}, err
	}

	return RoomWithTokenResponse{
		Room:  s.snapshot(state, roomID),
		Token: token,
	}, nil
}

func (s service) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	state, err := s.getState(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}

	return s.snapshot(state, roomID), nil
}

type JoinRoomParams struct {
	RoomID   string
	UserID   string
	Username string
}

// JoinRoom registers the user in the room and issues a socket token.
// Joining again with the same user id is idempotent.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (RoomWithTokenResponse, error) {
	username := strings.TrimSpace(params.Username)
	if !validator.ValidUsername(username) {
		return RoomWithTokenResponse{}, ErrInvalidUsername
	}

	state, err := s.getState(ctx, params.RoomID)
	if err != nil {
		return RoomWithTokenResponse{}, err
	}

	if slices.Contains(state.Banned, params.UserID) {
		return RoomWithTokenResponse{}, ErrUserBanned
	}

	if err := s.roomRepo.SetUser(ctx, &room.SetUserParams{
		RoomID:   params.RoomID,
		UserID:   params.UserID,
		Username: username,
	}); err != nil {
		return RoomWithTokenResponse{}, s.mapRepoErr(err)
	}

	return s.roomWithToken(ctx, params.RoomID, params.UserID)
}

type GetMessagesParams struct {
	RoomID string
	Before int64
	Limit  int
}

type GetMessagesResponse struct {
	Messages   []domain.ChatMessage
	NextBefore int64
}

func (s service) GetMessages(ctx context.Context, params *GetMessagesParams) (GetMessagesResponse, error) {
	if _, err := s.getState(ctx, params.RoomID); err != nil {
		return GetMessagesResponse{}, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultMessagesLimit
	}
	limit = min(limit, MaxMessagesLimit)

	page, err := s.roomRepo.GetMessages(ctx, &room.GetMessagesParams{
		RoomID: params.RoomID,
		Before: params.Before,
		Limit:  limit,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get messages", "error", err)
		return GetMessagesResponse{}, err
	}

	messages := make([]domain.ChatMessage, 0, len(page.Messages))
	for _, m := range page.Messages {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(m.Data), &msg); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed chat message", "seq", m.Seq, "error", err)
			continue
		}
		messages = append(messages, msg)
	}

	return GetMessagesResponse{
		Messages:   messages,
		NextBefore: page.NextBefore,
	}, nil
}

type ExpiredRoom struct {
	RoomID string
	Conns  []*connection.Conn
}

// ExpireRooms unregisters every live connection of rooms that are past
// their expiry or already gone from storage.
func (s service) ExpireRooms(ctx context.Context) ([]ExpiredRoom, error) {
	var expired []ExpiredRoom
	for _, roomID := range s.connRepo.RoomIDs() {
		rm, err := s.roomRepo.GetRoom(ctx, roomID)
		if err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "failed to get room", "room_id", roomID, "error", err)
			continue
		}

		if err == nil && s.now().Before(rm.ExpiresAtTime()) {
			continue
		}

		conns := s.connRepo.RoomConns(roomID)
		for _, conn := range conns {
			_, _ = s.connRepo.Remove(conn.ID)
		}

		expired = append(expired, ExpiredRoom{RoomID: roomID, Conns: conns})
	}

	return expired, nil
}
