package controller

import (
	"context"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"golang.org/x/time/rate"
)

type contextKey int

const (
	connCtxKey contextKey = iota
	limiterCtxKey
)

func (c controller) getConnFromCtx(ctx context.Context) *connection.Conn {
	conn, ok := ctx.Value(connCtxKey).(*connection.Conn)
	if !ok {
		return nil
	}

	return conn
}

func (c controller) getLimiterFromCtx(ctx context.Context) *rate.Limiter {
	limiter, ok := ctx.Value(limiterCtxKey).(*rate.Limiter)
	if !ok {
		return nil
	}

	return limiter
}
