package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

// AddMessage appends a chat message and returns its sequence number.
func (r repo) AddMessage(ctx context.Context, params *room.AddMessageParams) (int64, error) {
	expiresAt, err := r.roomExpiry(ctx, r.rc, params.RoomID)
	if err != nil {
		return 0, err
	}

	seq, err := r.addMessageScript.Run(ctx, r.rc,
		[]string{r.getMessagesKey(params.RoomID)},
		string(params.Data), params.Limit, expiresAt.Unix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to add message: %w", err)
	}

	return seq, nil
}

// GetMessages returns up to Limit messages older than Before, oldest first.
// A zero Before starts from the newest message.
func (r repo) GetMessages(ctx context.Context, params *room.GetMessagesParams) (room.MessagePage, error) {
	max := "+inf"
	if params.Before > 0 {
		max = "(" + strconv.FormatInt(params.Before, 10)
	}

	res, err := r.rc.ZRevRangeByScoreWithScores(ctx, r.getMessagesKey(params.RoomID), &redis.ZRangeBy{
		Max:   max,
		Min:   "-inf",
		Count: int64(params.Limit),
	}).Result()
	if err != nil {
		return room.MessagePage{}, fmt.Errorf("failed to get messages: %w", err)
	}

	page := room.MessagePage{Messages: make([]room.Message, 0, len(res))}
	for _, z := range res {
		data, _ := z.Member.(string)
		page.Messages = append(page.Messages, room.Message{Seq: int64(z.Score), Data: data})
	}
	slices.Reverse(page.Messages)

	if len(page.Messages) == params.Limit && params.Limit > 0 {
		page.NextBefore = page.Messages[0].Seq
	}

	return page, nil
}
