package wsrouter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/pkg/wsrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Text string `json:"text"`
}

func serve(t *testing.T, r *wsrouter.WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = r.ServeConn(context.Background(), conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	return conn
}

func TestWSRouter_TypedHandlerAndMiddleware(t *testing.T) {
	t.Parallel()

	var order []string
	r := wsrouter.New()
	r.Use(func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			order = append(order, "mw:"+wsrouter.GetMessageTypeFromCtx(ctx))
			return next(ctx, conn, payload)
		}
	})
	wsrouter.Handle(r, "echo", func(_ context.Context, conn *websocket.Conn, p echoPayload) error {
		order = append(order, "handler")
		return conn.WriteJSON(map[string]string{"type": "echo", "text": p.Text})
	})

	conn := serve(t, r)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "echo", "payload": map[string]string{"text": "hi"}}))

	var resp map[string]string
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "hi", resp["text"])
	assert.Equal(t, []string{"mw:echo", "handler"}, order)
}

func TestWSRouter_Errors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	r := wsrouter.New(
		wsrouter.WithValidator(func(v any) error {
			if p, ok := v.(echoPayload); ok && p.Text == "" {
				return errors.New("text is required")
			}
			return nil
		}),
		wsrouter.WithErrorHandler(func(_ context.Context, conn *websocket.Conn, err error) {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		}),
	)
	wsrouter.Handle(r, "echo", func(context.Context, *websocket.Conn, echoPayload) error {
		return errBoom
	})

	conn := serve(t, r)

	tests := []struct {
		name string
		msg  map[string]any
		want string
	}{
		{"unknown type", map[string]any{"type": "nope"}, "unknown message type"},
		{"bad payload", map[string]any{"type": "echo", "payload": map[string]int{"text": 1}}, "invalid payload"},
		{"validation", map[string]any{"type": "echo", "payload": map[string]string{}}, "text is required"},
		{"handler error", map[string]any{"type": "echo", "payload": map[string]string{"text": "x"}}, "boom"},
	}

	for _, tt := range tests {
		require.NoError(t, conn.WriteJSON(tt.msg), tt.name)

		var resp map[string]string
		require.NoError(t, conn.ReadJSON(&resp), tt.name)
		assert.Contains(t, resp["error"], tt.want, tt.name)
	}
}
