package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/sharetube/watchparty/internal/protocol"
)

var errClosing = errors.New("channel is closing")

type ChannelConfig struct {
	URL              string
	Join             protocol.JoinRoomPayload
	WriteTimeout     time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	MaxReconnectTime time.Duration
}

func (cfg *ChannelConfig) withDefaults() {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.MaxReconnectTime <= 0 {
		cfg.MaxReconnectTime = 5 * time.Minute
	}
}

// HandlerFunc receives every server event in arrival order. Returning a
// *TerminatedError stops the channel.
type HandlerFunc func(ctx context.Context, ev protocol.ServerEvent) error

// Channel is the realtime connection to one room. It rejoins and asks for
// the current state after every reconnect.
type Channel struct {
	cfg     ChannelConfig
	dialer  *websocket.Dialer
	logger  *slog.Logger
	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
}

func NewChannel(cfg ChannelConfig, logger *slog.Logger) *Channel {
	cfg.withDefaults()
	return &Channel{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Run connects and feeds server events to handle until ctx is done, Close is
// called, reconnecting gives up or handle terminates the session.
func (c *Channel) Run(ctx context.Context, handle HandlerFunc) error {
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if errors.Is(err, errClosing) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to connect: %w", err)
		}

		err = c.serve(ctx, conn, handle)
		c.detach(conn)

		var terminated *TerminatedError
		switch {
		case errors.As(err, &terminated):
			return err
		case c.isClosing() || ctx.Err() != nil:
			return nil
		}
		c.logger.WarnContext(ctx, "connection lost, reconnecting", "error", err)
	}
}

// connect dials and announces membership, backing off between attempts
// until one of them is attached.
func (c *Channel) connect(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff

	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		if c.isClosing() {
			return nil, backoff.Permanent(errClosing)
		}

		conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if resp != nil && resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(fmt.Errorf("room refused connection: %s", resp.Status))
			}
			return nil, err
		}

		if err := c.attach(ctx, conn); err != nil {
			c.detach(conn)
			if errors.Is(err, errClosing) {
				return nil, backoff.Permanent(err)
			}
			return nil, fmt.Errorf("failed to announce membership: %w", err)
		}
		return conn, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.cfg.MaxReconnectTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.DebugContext(ctx, "connect failed", "error", err, "retry_in", next)
		}),
	)
}

// attach makes conn the live connection and announces membership on it.
func (c *Channel) attach(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		_ = conn.Close()
		return errClosing
	}
	c.conn = conn

	join := c.cfg.Join
	if err := c.writeLocked(ctx, join); err != nil {
		return err
	}
	return c.writeLocked(ctx, protocol.RequestInitialStatePayload{RoomID: join.RoomID})
}

func (c *Channel) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	_ = conn.Close()
}

func (c *Channel) serve(ctx context.Context, conn *websocket.Conn, handle HandlerFunc) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return closeError(err)
		}

		ev, err := protocol.DecodeServerEvent(env)
		if err != nil {
			c.logger.DebugContext(ctx, "skipping server event", "type", env.Type, "error", err)
			continue
		}

		if err := handle(ctx, ev); err != nil {
			var terminated *TerminatedError
			if errors.As(err, &terminated) {
				return err
			}
			c.logger.InfoContext(ctx, "failed to handle server event", "type", env.Type, "error", err)
		}
	}
}

func closeError(err error) error {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return err
	}

	switch closeErr.Code {
	case protocol.CloseRemoved:
		return &TerminatedError{Reason: ReasonKicked, Message: closeErr.Text}
	case protocol.CloseReplaced:
		return &TerminatedError{Reason: ReasonReplaced, Message: closeErr.Text}
	case protocol.CloseExpired:
		return &TerminatedError{Reason: ReasonExpired, Message: closeErr.Text}
	}
	return err
}

// Emit sends ev on the live connection. Nothing is queued while
// disconnected.
func (c *Channel) Emit(ctx context.Context, ev protocol.ClientEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	return c.writeLocked(ctx, ev)
}

func (c *Channel) writeLocked(ctx context.Context, ev protocol.ClientEvent) error {
	env, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to send %s: %w", ev.EventType(), err)
	}
	return nil
}

// Close leaves the room and closes the connection once the leave
// notification has been written.
func (c *Channel) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return nil
	}
	c.closing = true
	if c.conn == nil {
		return nil
	}

	err := c.writeLocked(ctx, protocol.LeaveRoomPayload{RoomID: c.cfg.Join.RoomID, UserID: c.cfg.Join.UserID})
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second),
	)
	_ = c.conn.Close()
	c.conn = nil

	return err
}

// SetUsername changes the name announced on the next reconnect.
func (c *Channel) SetUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.Join.Username = username
}

func (c *Channel) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closing
}
