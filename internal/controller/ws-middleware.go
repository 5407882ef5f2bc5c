package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/wsrouter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (c controller) wsRequestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, conn, payload)
		}
	}
}

func (c controller) rateLimitWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			if limiter := c.getLimiterFromCtx(ctx); limiter != nil && !limiter.Allow() {
				return ErrRateLimited
			}
			return next(ctx, conn, payload)
		}
	}
}

func (c controller) tracingWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			messageType := wsrouter.GetMessageTypeFromCtx(ctx)

			ctx, span := c.tracer.Start(ctx, "ws "+messageType, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			if sender := c.getConnFromCtx(ctx); sender != nil {
				span.SetAttributes(
					attribute.String("room.id", sender.RoomID),
					attribute.String("socket.id", sender.ID),
				)
			}

			err := next(ctx, conn, payload)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return err
		}
	}
}

func (c controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.DebugContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()

			err := next(ctx, conn, payload)
			if err == nil {
				c.metrics.RecordEvent(wsrouter.GetMessageTypeFromCtx(ctx), nil)
			}

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"ok", err == nil,
			)

			return err
		}
	}
}

// handleWSError answers the sender with a single error event. Rejections
// are counted here so that payload validation failures are included.
func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	messageType := wsrouter.GetMessageTypeFromCtx(ctx)
	c.metrics.RecordEvent(messageType, err)

	_, public := classify(err)
	if public == ErrInternal {
		c.logger.ErrorContext(ctx, "websocket message failed", "message_type", messageType, "error", err)
	} else {
		c.logger.InfoContext(ctx, "websocket message rejected", "message_type", messageType, "error", err)
	}

	sender := c.getConnFromCtx(ctx)
	if sender == nil {
		return
	}

	_ = c.writeToConn(ctx, sender, protocol.ErrorEvent{Message: public.Error()})
}
