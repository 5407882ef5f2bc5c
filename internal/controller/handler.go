package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"golang.org/x/time/rate"
)

const (
	CloseRemoved  = protocol.CloseRemoved
	CloseReplaced = protocol.CloseReplaced
	CloseExpired  = protocol.CloseExpired
)

// connectRoom upgrades a socket for the room named in the path. The token
// issued by create/join must belong to that room.
func (c controller) connectRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")

	claims, err := c.roomService.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	if claims.RoomID != roomID {
		c.writeError(w, r, ErrTokenMismatch)
		return
	}

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	conn := connection.NewConn(uuid.NewString(), roomID, claims.UserID, ws)
	c.metrics.ConnectionOpened()
	defer c.metrics.ConnectionClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("socket_id", conn.ID))
	ctx = context.WithValue(ctx, connCtxKey, conn)
	ctx = context.WithValue(ctx, limiterCtxKey, rate.NewLimiter(c.wsRateLimit, c.wsRateBurst))

	defer c.disconnect(context.WithoutCancel(ctx), conn)
	defer ws.Close()

	ws.SetReadLimit(maxBodyBytes)
	_ = ws.SetReadDeadline(time.Now().Add(c.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	go c.keepAlive(ctx, conn)

	if err := c.wsmux.ServeConn(ctx, ws); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, CloseRemoved, CloseReplaced, CloseExpired) {
			c.logger.InfoContext(ctx, "connection closed", "error", err)
		}
	}
}

func (c controller) keepAlive(ctx context.Context, conn *connection.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WritePing(); err != nil {
				c.logger.DebugContext(ctx, "failed to ping", "error", err)
				return
			}
		}
	}
}

// disconnect removes conn from its room unless it was already removed or
// replaced, then tells the rest of the room.
func (c controller) disconnect(ctx context.Context, conn *connection.Conn) {
	resp, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{Conn: conn})
	if err != nil {
		if !errors.Is(err, room.ErrNotJoined) {
			c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		}
		return
	}

	c.announceLeave(ctx, resp.Conns, resp.Members, resp.SystemMessage, resp.ShareStopped)
	c.denyShareRequests(ctx, resp.DroppedRequests)
}

// denyShareRequests answers requests the host can no longer see.
func (c controller) denyShareRequests(ctx context.Context, conns []*connection.Conn) {
	_ = c.broadcast(ctx, conns, protocol.ScreenSharePermissionEvent{Granted: false})
}

func (c controller) announceLeave(ctx context.Context, conns []*connection.Conn, members domain.Members, msg *domain.ChatMessage, shareStopped bool) {
	if shareStopped {
		_ = c.broadcast(ctx, conns, protocol.ScreenShareStoppedEvent{})
	}
	if members != nil {
		_ = c.broadcast(ctx, conns, protocol.MembersUpdateEvent{Members: members})
	}
	if msg != nil {
		_ = c.broadcast(ctx, conns, protocol.ChatMessageEvent{ChatMessage: *msg})
	}
}

// SweepExpiredRooms notifies and closes every socket of an expired room.
func (c controller) SweepExpiredRooms(ctx context.Context) {
	expired, err := c.roomService.ExpireRooms(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to expire rooms", "error", err)
		return
	}

	for _, rm := range expired {
		_ = c.broadcast(ctx, rm.Conns, protocol.RoomExpiredEvent{Message: "this room has expired"})
		for _, conn := range rm.Conns {
			_ = conn.Close(CloseExpired, "room expired")
		}
		c.logger.InfoContext(ctx, "room expired", "room_id", rm.RoomID, "conns", len(rm.Conns))
	}

	c.metrics.RecordRoomsExpired(len(expired))
}
