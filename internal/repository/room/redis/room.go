package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	roomKey := r.getRoomKey(params.RoomID)

	return r.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, roomKey).Result()
		if err != nil {
			return err
		}

		if exists > 0 {
			return room.ErrRoomAlreadyExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, roomKey, room.Room{
				Name:      params.Name,
				HostID:    params.HostID,
				Duration:  params.Duration,
				CreatedAt: params.CreatedAt.Unix(),
				ExpiresAt: params.ExpiresAt.Unix(),
			})
			pipe.ExpireAt(ctx, roomKey, params.ExpiresAt)

			usersKey := r.getUsersKey(params.RoomID)
			pipe.HSet(ctx, usersKey, params.HostID, params.HostName)
			pipe.ExpireAt(ctx, usersKey, params.ExpiresAt)

			playerKey := r.getPlayerKey(params.RoomID)
			pipe.HSet(ctx, playerKey, room.Player{
				Status:    int(domain.StatusUnstarted),
				UpdatedAt: params.CreatedAt.UnixMilli(),
			})
			pipe.ExpireAt(ctx, playerKey, params.ExpiresAt)

			return nil
		})

		return err
	}, roomKey)
}

func (r repo) GetRoom(ctx context.Context, roomID string) (room.Room, error) {
	cmd := r.rc.HGetAll(ctx, r.getRoomKey(roomID))
	res, err := cmd.Result()
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if len(res) == 0 {
		return room.Room{}, room.ErrRoomNotFound
	}

	var rm room.Room
	if err := cmd.Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to scan room: %w", err)
	}

	return rm, nil
}

func (r repo) GetState(ctx context.Context, roomID string) (room.State, error) {
	pipe := r.rc.Pipeline()
	roomCmd := pipe.HGetAll(ctx, r.getRoomKey(roomID))
	usersCmd := pipe.HGetAll(ctx, r.getUsersKey(roomID))
	moderatorsCmd := pipe.SMembers(ctx, r.getModeratorsKey(roomID))
	bannedCmd := pipe.SMembers(ctx, r.getBannedKey(roomID))
	playlistCmd := pipe.LRange(ctx, r.getPlaylistKey(roomID), 0, -1)
	historyCmd := pipe.LRange(ctx, r.getHistoryKey(roomID), 0, -1)
	playerCmd := pipe.HGetAll(ctx, r.getPlayerKey(roomID))

	if err := r.executePipe(ctx, pipe); err != nil {
		return room.State{}, fmt.Errorf("failed to get room state: %w", err)
	}

	if len(roomCmd.Val()) == 0 {
		return room.State{}, room.ErrRoomNotFound
	}

	var state room.State
	if err := roomCmd.Scan(&state.Room); err != nil {
		return room.State{}, fmt.Errorf("failed to scan room: %w", err)
	}

	if err := playerCmd.Scan(&state.Player); err != nil {
		return room.State{}, fmt.Errorf("failed to scan player: %w", err)
	}

	state.Users = usersCmd.Val()
	state.Moderators = moderatorsCmd.Val()
	state.Banned = bannedCmd.Val()
	state.Playlist = playlistCmd.Val()
	state.History = historyCmd.Val()

	return state, nil
}

func (r repo) GetUsers(ctx context.Context, roomID string) (map[string]string, error) {
	users, err := r.rc.HGetAll(ctx, r.getUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	return users, nil
}

func (r repo) GetUsername(ctx context.Context, roomID, userID string) (string, error) {
	username, err := r.rc.HGet(ctx, r.getUsersKey(roomID), userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get username: %w", err)
	}

	return username, nil
}
