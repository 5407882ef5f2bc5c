package redis

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc               *redis.Client
	logger           *slog.Logger
	addMessageScript *redis.Script
	advanceScript    *redis.Script
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
		// KEYS[1] messages zset. ARGV: message, limit, expire-at unix seconds.
		addMessageScript: redis.NewScript(`
			local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
			local limit = tonumber(ARGV[2])
			if limit > 0 then
				redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -(limit + 1))
			end
			redis.call('EXPIREAT', KEYS[1], ARGV[3])
			return nextScore
		`),
		// KEYS: playlist, history, room, player. ARGV: pick ('' for the
		// head of the queue), updated-at unix ms.
		advanceScript: redis.NewScript(`
			local expiresAt = redis.call('HGET', KEYS[3], 'expires_at')
			if not expiresAt then
				return redis.error_reply('room not found')
			end
			local n = redis.call('LLEN', KEYS[1])
			if n == 0 then
				return false
			end
			local idx = 0
			if ARGV[1] ~= '' then
				idx = math.floor(tonumber(ARGV[1]) * n)
				if idx >= n then
					idx = n - 1
				end
			end
			local nextURL = redis.call('LINDEX', KEYS[1], idx)
			redis.call('LSET', KEYS[1], idx, '__advanced__')
			redis.call('LREM', KEYS[1], 1, '__advanced__')
			local prev = redis.call('HGET', KEYS[3], 'video_url')
			if prev and prev ~= '' then
				redis.call('RPUSH', KEYS[2], prev)
			end
			redis.call('HSET', KEYS[3], 'video_url', nextURL)
			redis.call('HSET', KEYS[4], 'time', 0, 'status', -1, 'updated_at', ARGV[2])
			for i = 1, 4 do
				redis.call('EXPIREAT', KEYS[i], expiresAt)
			end
			if not prev then
				prev = ''
			end
			return {nextURL, prev}
		`),
	}
}
