package ctxlogger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(ctxlogger.ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)}).With("app", "test")

	parent := ctxlogger.AppendCtx(context.Background(), slog.String("request_id", "r1"))
	child := ctxlogger.AppendCtx(parent, slog.String("room_id", "room"))
	logger.InfoContext(child, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "r1", record["request_id"])
	assert.Equal(t, "room", record["room_id"])
	assert.Equal(t, "test", record["app"])

	buf.Reset()
	logger.InfoContext(parent, "parent")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, buf.String(), "room_id")
}
