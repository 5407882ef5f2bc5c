package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) GetPlayer(ctx context.Context, roomID string) (room.Player, error) {
	cmd := r.rc.HGetAll(ctx, r.getPlayerKey(roomID))
	res, err := cmd.Result()
	if err != nil {
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if len(res) == 0 {
		return room.Player{}, room.ErrRoomNotFound
	}

	var player room.Player
	if err := cmd.Scan(&player); err != nil {
		return room.Player{}, fmt.Errorf("failed to scan player: %w", err)
	}

	return player, nil
}

func (r repo) SetPlayer(ctx context.Context, params *room.SetPlayerParams) error {
	expiresAt, err := r.roomExpiry(ctx, r.rc, params.RoomID)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	playerKey := r.getPlayerKey(params.RoomID)
	pipe.HSet(ctx, playerKey, room.Player{
		Time:      params.Time,
		Status:    params.Status,
		UpdatedAt: params.UpdatedAt.UnixMilli(),
	})
	pipe.ExpireAt(ctx, playerKey, expiresAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

// ChangeVideo makes videoURL current, pushing the previous video onto the
// history and resetting the player.
func (r repo) ChangeVideo(ctx context.Context, params *room.ChangeVideoParams) (room.VideoChange, error) {
	roomKey := r.getRoomKey(params.RoomID)
	historyKey := r.getHistoryKey(params.RoomID)
	playerKey := r.getPlayerKey(params.RoomID)

	change := room.VideoChange{VideoURL: params.VideoURL}
	err := r.watch(ctx, func(tx *redis.Tx) error {
		expiresAt, err := r.roomExpiry(ctx, tx, params.RoomID)
		if err != nil {
			return err
		}

		previous, err := tx.HGet(ctx, roomKey, "video_url").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		change.Previous = previous

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if previous != "" && previous != params.VideoURL {
				pipe.RPush(ctx, historyKey, previous)
				pipe.ExpireAt(ctx, historyKey, expiresAt)
			}
			pipe.HSet(ctx, roomKey, "video_url", params.VideoURL)
			pipe.HSet(ctx, playerKey, room.Player{
				Status:    int(domain.StatusUnstarted),
				UpdatedAt: params.UpdatedAt.UnixMilli(),
			})
			pipe.ExpireAt(ctx, playerKey, expiresAt)
			return nil
		})

		return err
	}, roomKey)
	if err != nil {
		return room.VideoChange{}, err
	}

	if change.History, err = r.GetHistory(ctx, params.RoomID); err != nil {
		return room.VideoChange{}, err
	}

	return change, nil
}

// AdvancePlaylist pops the next queued video and makes it current.
func (r repo) AdvancePlaylist(ctx context.Context, params *room.AdvancePlaylistParams) (room.VideoChange, error) {
	pick := ""
	if params.Shuffle {
		pick = strconv.FormatFloat(params.Pick, 'f', -1, 64)
	}

	res, err := r.advanceScript.Run(ctx, r.rc,
		[]string{
			r.getPlaylistKey(params.RoomID),
			r.getHistoryKey(params.RoomID),
			r.getRoomKey(params.RoomID),
			r.getPlayerKey(params.RoomID),
		},
		pick, params.UpdatedAt.UnixMilli(),
	).StringSlice()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			return room.VideoChange{}, domain.ErrPlaylistEmpty
		case err.Error() == "room not found":
			return room.VideoChange{}, room.ErrRoomNotFound
		}
		return room.VideoChange{}, fmt.Errorf("failed to advance playlist: %w", err)
	}

	change := room.VideoChange{VideoURL: res[0], Previous: res[1]}

	pipe := r.rc.Pipeline()
	historyCmd := pipe.LRange(ctx, r.getHistoryKey(params.RoomID), 0, -1)
	playlistCmd := pipe.LRange(ctx, r.getPlaylistKey(params.RoomID), 0, -1)
	if err := r.executePipe(ctx, pipe); err != nil {
		return room.VideoChange{}, fmt.Errorf("failed to read playlist: %w", err)
	}

	change.History = historyCmd.Val()
	change.Playlist = playlistCmd.Val()

	return change, nil
}
