package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/protocol"
)

// scriptedServer accepts room sockets and hands each one to the test.
type scriptedServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newScriptedServer(t *testing.T) *scriptedServer {
	t.Helper()

	s := &scriptedServer{conns: make(chan *websocket.Conn, 4)}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "good" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *scriptedServer) url(token string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/v1/ws/room/r1?token=" + token
}

func (s *scriptedServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-s.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func readClientEvent(t *testing.T, conn *websocket.Conn) protocol.ClientEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env protocol.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	ev, err := protocol.DecodeClientEvent(env)
	require.NoError(t, err)
	return ev
}

func writeServerEvent(t *testing.T, conn *websocket.Conn, ev protocol.ServerEvent) {
	t.Helper()

	env, err := protocol.Encode(ev)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))
}

func newTestChannel(url string) *Channel {
	return NewChannel(ChannelConfig{
		URL:              url,
		Join:             protocol.JoinRoomPayload{RoomID: "r1", UserID: "u1", Username: "neo"},
		InitialBackoff:   10 * time.Millisecond,
		MaxBackoff:       50 * time.Millisecond,
		MaxReconnectTime: 2 * time.Second,
	}, discardLogger())
}

func runChannel(ctx context.Context, ch *Channel, handle HandlerFunc) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- ch.Run(ctx, handle) }()
	return errc
}

func TestChannel_RejoinsAfterReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := newScriptedServer(t)
	ch := newTestChannel(server.url("good"))

	received := make(chan protocol.ServerEvent, 4)
	errc := runChannel(ctx, ch, func(_ context.Context, ev protocol.ServerEvent) error {
		received <- ev
		return nil
	})

	first := server.accept(t)
	assert.Equal(t, protocol.JoinRoomPayload{RoomID: "r1", UserID: "u1", Username: "neo"}, readClientEvent(t, first))
	assert.Equal(t, protocol.RequestInitialStatePayload{RoomID: "r1"}, readClientEvent(t, first))

	writeServerEvent(t, first, protocol.ConnectedEvent{SocketID: "s1"})
	assert.Equal(t, protocol.ConnectedEvent{SocketID: "s1"}, <-received)

	ch.SetUsername("trinity")
	first.Close()

	second := server.accept(t)
	assert.Equal(t, protocol.JoinRoomPayload{RoomID: "r1", UserID: "u1", Username: "trinity"}, readClientEvent(t, second))
	assert.Equal(t, protocol.RequestInitialStatePayload{RoomID: "r1"}, readClientEvent(t, second))

	require.NoError(t, ch.Emit(ctx, protocol.ChatMessagePayload{RoomID: "r1", Text: "back"}))
	assert.Equal(t, protocol.EventChatMessage, readClientEvent(t, second).EventType())

	require.NoError(t, ch.Close(ctx))
	assert.Equal(t, protocol.LeaveRoomPayload{RoomID: "r1", UserID: "u1"}, readClientEvent(t, second))

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not stop")
	}

	assert.ErrorIs(t, ch.Emit(ctx, protocol.LeaveRoomPayload{}), ErrNotConnected)
}

func TestChannel_TerminalCloseCode(t *testing.T) {
	server := newScriptedServer(t)
	ch := newTestChannel(server.url("good"))
	errc := runChannel(context.Background(), ch, func(context.Context, protocol.ServerEvent) error { return nil })

	conn := server.accept(t)
	readClientEvent(t, conn)
	readClientEvent(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(protocol.CloseExpired, "room expired")))

	err := <-errc
	var terminated *TerminatedError
	require.ErrorAs(t, err, &terminated)
	assert.Equal(t, ReasonExpired, terminated.Reason)
}

func TestChannel_HandlerTerminates(t *testing.T) {
	server := newScriptedServer(t)
	ch := newTestChannel(server.url("good"))
	errc := runChannel(context.Background(), ch, func(_ context.Context, ev protocol.ServerEvent) error {
		if kicked, ok := ev.(protocol.KickedEvent); ok {
			return &TerminatedError{Reason: ReasonKicked, Message: kicked.Message}
		}
		return nil
	})

	conn := server.accept(t)
	readClientEvent(t, conn)
	readClientEvent(t, conn)
	writeServerEvent(t, conn, protocol.KickedEvent{Message: "bye"})

	err := <-errc
	var terminated *TerminatedError
	require.ErrorAs(t, err, &terminated)
	assert.Equal(t, ReasonKicked, terminated.Reason)
}

func TestChannel_RefusedTokenIsPermanent(t *testing.T) {
	server := newScriptedServer(t)
	ch := newTestChannel(server.url("bad"))

	start := time.Now()
	err := ch.Run(context.Background(), func(context.Context, protocol.ServerEvent) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Less(t, time.Since(start), time.Second)
}

func TestChannel_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := newScriptedServer(t)
	ch := newTestChannel(server.url("good"))
	errc := runChannel(ctx, ch, func(context.Context, protocol.ServerEvent) error { return nil })

	conn := server.accept(t)
	readClientEvent(t, conn)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not stop")
	}
}

// handshakeOnlyConn lets the upgrade request through and fails every write
// after it.
type handshakeOnlyConn struct {
	net.Conn
	writes atomic.Int32
}

func (c *handshakeOnlyConn) Write(p []byte) (int, error) {
	if c.writes.Add(1) > 1 {
		return 0, errors.New("write refused")
	}
	return c.Conn.Write(p)
}

func TestChannel_FailedJoinBacksOff(t *testing.T) {
	server := newScriptedServer(t)
	go func() {
		for conn := range server.conns {
			conn.Close()
		}
	}()

	ch := NewChannel(ChannelConfig{
		URL:              server.url("good"),
		Join:             protocol.JoinRoomPayload{RoomID: "r1", UserID: "u1", Username: "neo"},
		InitialBackoff:   10 * time.Millisecond,
		MaxBackoff:       50 * time.Millisecond,
		MaxReconnectTime: 300 * time.Millisecond,
	}, discardLogger())

	var dials atomic.Int32
	ch.dialer = &websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dials.Add(1)
			conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &handshakeOnlyConn{Conn: conn}, nil
		},
	}

	select {
	case err := <-runChannel(context.Background(), ch, func(context.Context, protocol.ServerEvent) error { return nil }):
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to announce membership")
	case <-time.After(5 * time.Second):
		t.Fatal("channel kept reconnecting")
	}

	assert.GreaterOrEqual(t, dials.Load(), int32(2))
	assert.LessOrEqual(t, dials.Load(), int32(30))
}
