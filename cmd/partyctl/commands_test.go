package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/client"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

type sentEvents struct {
	mu     sync.Mutex
	events []protocol.ClientEvent
}

func (s *sentEvents) Emit(_ context.Context, ev protocol.ClientEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	return nil
}

func (s *sentEvents) SetUsername(string) {}

func (s *sentEvents) last() protocol.ClientEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

func newTestConsole(t *testing.T) (*console, *sentEvents) {
	t.Helper()

	sent := &sentEvents{}
	clk := clock.NewMock()
	player := client.NewVirtualPlayer(clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := client.NewSession(client.SessionConfig{
		RoomID:   "room",
		UserID:   "host",
		Username: "hosty",
		Clock:    clk,
		Player:   player,
	}, sent, logger)

	ctx := context.Background()
	require.NoError(t, session.Handle(ctx, protocol.MembersUpdateEvent{Members: []domain.Member{
		{UserID: "host", Username: "hosty", Role: domain.RoleHost},
		{UserID: "guest", Username: "guesty", Role: domain.RoleParticipant},
	}}))
	require.NoError(t, session.Handle(ctx, protocol.PlaylistUpdateEvent{Playlist: []string{
		"https://youtu.be/a", "https://youtu.be/b",
	}}))

	store, err := client.NewIdentityStore(filepath.Join(t.TempDir(), "identity.yaml"))
	require.NoError(t, err)

	return &console{session: session, player: player, store: store, out: &bytes.Buffer{}}, sent
}

func TestConsole_Exec(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text is chat", func(t *testing.T) {
		c, sent := newTestConsole(t)
		require.NoError(t, c.exec(ctx, "hello there"))
		msg, ok := sent.last().(protocol.ChatMessagePayload)
		require.True(t, ok)
		assert.Equal(t, "hello there", msg.Text)
	})

	t.Run("queue position resolves to url", func(t *testing.T) {
		c, sent := newTestConsole(t)
		require.NoError(t, c.exec(ctx, "/down 1"))
		assert.Equal(t, protocol.MovePlaylistItemPayload{
			RoomID: "room", VideoURL: "https://youtu.be/a", Direction: domain.DirectionDown,
		}, sent.last())
	})

	t.Run("username resolves to user id", func(t *testing.T) {
		c, sent := newTestConsole(t)
		require.NoError(t, c.exec(ctx, "/kick guesty"))
		assert.Equal(t, protocol.KickUserPayload{TargetUser: protocol.TargetUser{RoomID: "room", TargetUserID: "guest"}}, sent.last())
		assert.Error(t, c.exec(ctx, "/ban nobody"))
	})

	t.Run("rename is remembered", func(t *testing.T) {
		c, _ := newTestConsole(t)
		require.NoError(t, c.exec(ctx, "/name new name"))
		assert.Equal(t, "new name", c.store.Username())
		assert.Equal(t, "new name", c.session.Roster().PendingRename())
	})

	t.Run("usage and unknown commands", func(t *testing.T) {
		c, sent := newTestConsole(t)
		assert.ErrorContains(t, c.exec(ctx, "/video"), "usage: /video <url>")
		assert.ErrorContains(t, c.exec(ctx, "/dance"), "unknown command")
		assert.ErrorContains(t, c.exec(ctx, "/mode random"), "unknown mode")
		assert.Nil(t, sent.last())
	})

	t.Run("quit", func(t *testing.T) {
		c, _ := newTestConsole(t)
		assert.ErrorIs(t, c.exec(ctx, "/quit"), errQuit)
	})
}
