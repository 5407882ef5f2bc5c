package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

const maxTxRetries = 8

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (r repo) getRoomKey(roomID string) string {
	return "room:" + roomID
}

func (r repo) getUsersKey(roomID string) string {
	return "room:" + roomID + ":users"
}

func (r repo) getModeratorsKey(roomID string) string {
	return "room:" + roomID + ":moderators"
}

func (r repo) getBannedKey(roomID string) string {
	return "room:" + roomID + ":banned"
}

func (r repo) getPlaylistKey(roomID string) string {
	return "room:" + roomID + ":playlist"
}

func (r repo) getHistoryKey(roomID string) string {
	return "room:" + roomID + ":history"
}

func (r repo) getPlayerKey(roomID string) string {
	return "room:" + roomID + ":player"
}

func (r repo) getMessagesKey(roomID string) string {
	return "room:" + roomID + ":messages"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}

		if errors.Is(err, redis.Nil) {
			return nil
		}

		return err
	}

	return nil
}

// watch runs fn as an optimistic transaction over keys, retrying when a
// watched key changes underneath it.
func (r repo) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := r.rc.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			r.logger.DebugContext(ctx, "transaction failed", "keys", keys, "error", err)
		}

		return err
	}

	return room.ErrTxConflict
}

// roomExpiry reads the room deadline, failing with ErrRoomNotFound when the
// room hash is gone.
func (r repo) roomExpiry(ctx context.Context, c hashGetter, roomID string) (time.Time, error) {
	raw, err := c.HGet(ctx, r.getRoomKey(roomID), "expires_at").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, room.ErrRoomNotFound
		}
		return time.Time{}, fmt.Errorf("failed to get room expiry: %w", err)
	}

	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse room expiry: %w", err)
	}

	return time.Unix(sec, 0), nil
}
