package redis

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.Default()), s
}

func createTestRoom(t *testing.T, r *repo, roomID string) {
	t.Helper()

	now := time.Now()
	err := r.CreateRoom(context.Background(), &room.CreateRoomParams{
		RoomID:    roomID,
		Name:      "movies",
		HostID:    "host",
		HostName:  "alice",
		Duration:  20,
		CreatedAt: now,
		ExpiresAt: now.Add(20 * time.Minute),
	})
	require.NoError(t, err)
}

func TestRepo_CreateRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	createTestRoom(t, r, "r1")

	state, err := r.GetState(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "movies", state.Room.Name)
	assert.Equal(t, "host", state.Room.HostID)
	assert.Equal(t, map[string]string{"host": "alice"}, state.Users)
	assert.Equal(t, int(domain.StatusUnstarted), state.Player.Status)
	assert.Positive(t, s.TTL("room:r1"))

	err = r.CreateRoom(ctx, &room.CreateRoomParams{RoomID: "r1", ExpiresAt: time.Now().Add(time.Minute)})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists)

	_, err = r.GetState(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRepo_SetUser(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "r1")

	require.NoError(t, r.SetUser(ctx, &room.SetUserParams{RoomID: "r1", UserID: "u1", Username: " bob "}))

	name, err := r.GetUsername(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	err = r.SetUser(ctx, &room.SetUserParams{RoomID: "r1", UserID: "u2", Username: "bob"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	// renaming to your own name is fine
	require.NoError(t, r.SetUser(ctx, &room.SetUserParams{RoomID: "r1", UserID: "u1", Username: "bob"}))

	err = r.SetUser(ctx, &room.SetUserParams{RoomID: "nope", UserID: "u1", Username: "bob"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRepo_ModeratorsAndBans(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "r1")
	require.NoError(t, r.SetUser(ctx, &room.SetUserParams{RoomID: "r1", UserID: "u1", Username: "bob"}))

	require.NoError(t, r.AddModerator(ctx, "r1", "u1"))
	ok, err := r.IsModerator(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.BanUser(ctx, "r1", "u1"))

	banned, err := r.IsBanned(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, banned)

	ok, err = r.IsModerator(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.GetUsername(ctx, "r1", "u1")
	assert.ErrorIs(t, err, room.ErrUserNotFound)
}

func TestRepo_Playlist(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "r1")

	for _, url := range []string{"a", "b", "c"} {
		_, err := r.AddToPlaylist(ctx, &room.AddToPlaylistParams{RoomID: "r1", VideoURL: url, Limit: 3})
		require.NoError(t, err)
	}

	_, err := r.AddToPlaylist(ctx, &room.AddToPlaylistParams{RoomID: "r1", VideoURL: "d", Limit: 3})
	assert.ErrorIs(t, err, domain.ErrPlaylistLimitReached)

	playlist, err := r.MovePlaylistItem(ctx, &room.MovePlaylistItemParams{RoomID: "r1", VideoURL: "b", Direction: domain.DirectionUp})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, playlist)

	playlist, err = r.MovePlaylistItem(ctx, &room.MovePlaylistItemParams{RoomID: "r1", VideoURL: "c", Direction: domain.DirectionDown})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, playlist)

	playlist, err = r.RemoveFromPlaylist(ctx, &room.RemoveFromPlaylistParams{RoomID: "r1", VideoURL: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, playlist)

	_, err = r.RemoveFromPlaylist(ctx, &room.RemoveFromPlaylistParams{RoomID: "r1", VideoURL: "a"})
	assert.ErrorIs(t, err, domain.ErrVideoNotFound)

	stored, err := r.GetPlaylist(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, stored)
}

func TestRepo_ChangeVideoAndAdvance(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "r1")

	change, err := r.ChangeVideo(ctx, &room.ChangeVideoParams{RoomID: "r1", VideoURL: "v1", UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, change.History)

	require.NoError(t, r.SetPlayer(ctx, &room.SetPlayerParams{RoomID: "r1", Time: 42, Status: int(domain.StatusPlaying), UpdatedAt: time.Now()}))

	_, err = r.AdvancePlaylist(ctx, &room.AdvancePlaylistParams{RoomID: "r1", UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrPlaylistEmpty)

	for _, url := range []string{"q1", "q2", "q3"} {
		_, err := r.AddToPlaylist(ctx, &room.AddToPlaylistParams{RoomID: "r1", VideoURL: url})
		require.NoError(t, err)
	}

	change, err = r.AdvancePlaylist(ctx, &room.AdvancePlaylistParams{RoomID: "r1", UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "q1", change.VideoURL)
	assert.Equal(t, "v1", change.Previous)
	assert.Equal(t, []string{"v1"}, change.History)
	assert.Equal(t, []string{"q2", "q3"}, change.Playlist)

	player, err := r.GetPlayer(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int(domain.StatusUnstarted), player.Status)
	assert.Zero(t, player.Time)

	change, err = r.AdvancePlaylist(ctx, &room.AdvancePlaylistParams{RoomID: "r1", Shuffle: true, Pick: 0.99, UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "q3", change.VideoURL)
	assert.Equal(t, []string{"v1", "q1"}, change.History)
	assert.Equal(t, []string{"q2"}, change.Playlist)

	rm, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "q3", rm.VideoURL)
}

func TestRepo_Messages(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "r1")

	for i := 1; i <= 5; i++ {
		seq, err := r.AddMessage(ctx, &room.AddMessageParams{
			RoomID: "r1",
			Data:   []byte(fmt.Sprintf(`{"id":"m%d"}`, i)),
			Limit:  4,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
	}

	page, err := r.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, `{"id":"m4"}`, page.Messages[0].Data)
	assert.Equal(t, `{"id":"m5"}`, page.Messages[1].Data)
	assert.Equal(t, int64(4), page.NextBefore)

	page, err = r.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1", Before: page.NextBefore, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, `{"id":"m2"}`, page.Messages[0].Data)

	// m1 was trimmed by the cap
	page, err = r.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1", Before: 2, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Zero(t, page.NextBefore)

	_, err = r.AddMessage(ctx, &room.AddMessageParams{RoomID: "nope", Data: []byte(`{}`)})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
