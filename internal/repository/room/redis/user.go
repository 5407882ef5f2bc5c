package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/room"
)

// SetUser registers or renames a user. Usernames are unique within a room,
// compared after trimming.
func (r repo) SetUser(ctx context.Context, params *room.SetUserParams) error {
	usersKey := r.getUsersKey(params.RoomID)
	username := strings.TrimSpace(params.Username)

	return r.watch(ctx, func(tx *redis.Tx) error {
		expiresAt, err := r.roomExpiry(ctx, tx, params.RoomID)
		if err != nil {
			return err
		}

		users, err := tx.HGetAll(ctx, usersKey).Result()
		if err != nil {
			return err
		}

		for userID, name := range users {
			if userID != params.UserID && strings.TrimSpace(name) == username {
				return domain.ErrUsernameTaken
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, usersKey, params.UserID, username)
			pipe.ExpireAt(ctx, usersKey, expiresAt)
			return nil
		})

		return err
	}, usersKey, r.getRoomKey(params.RoomID))
}

func (r repo) IsBanned(ctx context.Context, roomID, userID string) (bool, error) {
	banned, err := r.rc.SIsMember(ctx, r.getBannedKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}

	return banned, nil
}

func (r repo) IsModerator(ctx context.Context, roomID, userID string) (bool, error) {
	ok, err := r.rc.SIsMember(ctx, r.getModeratorsKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check moderator: %w", err)
	}

	return ok, nil
}

func (r repo) GetModerators(ctx context.Context, roomID string) ([]string, error) {
	ids, err := r.rc.SMembers(ctx, r.getModeratorsKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get moderators: %w", err)
	}

	return ids, nil
}

func (r repo) AddModerator(ctx context.Context, roomID, userID string) error {
	expiresAt, err := r.roomExpiry(ctx, r.rc, roomID)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	moderatorsKey := r.getModeratorsKey(roomID)
	pipe.SAdd(ctx, moderatorsKey, userID)
	pipe.ExpireAt(ctx, moderatorsKey, expiresAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add moderator: %w", err)
	}

	return nil
}

func (r repo) RemoveModerator(ctx context.Context, roomID, userID string) error {
	if err := r.rc.SRem(ctx, r.getModeratorsKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("failed to remove moderator: %w", err)
	}

	return nil
}

// BanUser bans userID and drops it from the users and moderators of the room.
func (r repo) BanUser(ctx context.Context, roomID, userID string) error {
	expiresAt, err := r.roomExpiry(ctx, r.rc, roomID)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	bannedKey := r.getBannedKey(roomID)
	pipe.SAdd(ctx, bannedKey, userID)
	pipe.ExpireAt(ctx, bannedKey, expiresAt)
	pipe.HDel(ctx, r.getUsersKey(roomID), userID)
	pipe.SRem(ctx, r.getModeratorsKey(roomID), userID)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}

	return nil
}
