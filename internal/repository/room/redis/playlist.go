package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) GetPlaylist(ctx context.Context, roomID string) ([]string, error) {
	playlist, err := r.rc.LRange(ctx, r.getPlaylistKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	return playlist, nil
}

func (r repo) GetHistory(ctx context.Context, roomID string) ([]string, error) {
	history, err := r.rc.LRange(ctx, r.getHistoryKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	return history, nil
}

// updatePlaylist rewrites the playlist with the result of apply inside an
// optimistic transaction.
func (r repo) updatePlaylist(ctx context.Context, roomID string, apply func([]string) ([]string, error)) ([]string, error) {
	playlistKey := r.getPlaylistKey(roomID)

	var updated []string
	err := r.watch(ctx, func(tx *redis.Tx) error {
		expiresAt, err := r.roomExpiry(ctx, tx, roomID)
		if err != nil {
			return err
		}

		current, err := tx.LRange(ctx, playlistKey, 0, -1).Result()
		if err != nil {
			return err
		}

		updated, err = apply(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, playlistKey)
			if len(updated) > 0 {
				items := make([]any, len(updated))
				for i, url := range updated {
					items[i] = url
				}
				pipe.RPush(ctx, playlistKey, items...)
				pipe.ExpireAt(ctx, playlistKey, expiresAt)
			}
			return nil
		})

		return err
	}, playlistKey, r.getRoomKey(roomID))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r repo) AddToPlaylist(ctx context.Context, params *room.AddToPlaylistParams) ([]string, error) {
	return r.updatePlaylist(ctx, params.RoomID, func(queue []string) ([]string, error) {
		return domain.AddItem(queue, params.VideoURL, params.Limit)
	})
}

func (r repo) RemoveFromPlaylist(ctx context.Context, params *room.RemoveFromPlaylistParams) ([]string, error) {
	return r.updatePlaylist(ctx, params.RoomID, func(queue []string) ([]string, error) {
		return domain.RemoveItem(queue, params.VideoURL)
	})
}

func (r repo) MovePlaylistItem(ctx context.Context, params *room.MovePlaylistItemParams) ([]string, error) {
	return r.updatePlaylist(ctx, params.RoomID, func(queue []string) ([]string, error) {
		moved, _, err := domain.MoveItem(queue, params.VideoURL, params.Direction)
		return moved, err
	})
}
