package room

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/pkg/randstr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *service {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewService(
		roomRedis.NewRepo(rc, slog.Default()),
		inmemory.NewRepo(slog.Default()),
		randstr.New(),
		&Config{
			Secret:              "secret",
			MembersLimit:        3,
			PlaylistLimit:       5,
			ChatHistoryLimit:    100,
			DefaultRoomDuration: domain.DefaultRoomDuration,
			MaxRoomDuration:     time.Hour,
		},
		slog.Default(),
	)
}

type testRoom struct {
	id    string
	conns map[string]*connection.Conn
}

// setupRoom creates a room hosted by "host" and connects every listed user.
func setupRoom(t *testing.T, s *service, users ...string) testRoom {
	t.Helper()
	ctx := context.Background()

	created, err := s.CreateRoom(ctx, &CreateRoomParams{HostID: "host", Username: "hosty", RoomName: "movies"})
	require.NoError(t, err)

	tr := testRoom{id: created.Room.RoomID, conns: make(map[string]*connection.Conn)}
	for _, userID := range append([]string{"host"}, users...) {
		if userID != "host" {
			_, err := s.JoinRoom(ctx, &JoinRoomParams{RoomID: tr.id, UserID: userID, Username: "name-" + userID})
			require.NoError(t, err)
		}

		conn := connection.NewConn("sock-"+userID, tr.id, userID, nil)
		_, err := s.ConnectMember(ctx, &ConnectMemberParams{Conn: conn})
		require.NoError(t, err)
		tr.conns[userID] = conn
	}

	return tr
}

func TestService_CreateAndJoinRoom(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	created, err := s.CreateRoom(ctx, &CreateRoomParams{HostID: "host", Username: " alice ", RoomName: "movies", Duration: 30})
	require.NoError(t, err)
	assert.Len(t, created.Room.RoomID, randstr.RoomIDLength)
	assert.Equal(t, "alice", created.Room.Host.Username)
	assert.Equal(t, 30, created.Room.Duration)
	assert.True(t, created.Room.IsActive)

	claims, err := s.ParseToken(created.Token)
	require.NoError(t, err)
	assert.Equal(t, "host", claims.UserID)
	assert.Equal(t, created.Room.RoomID, claims.RoomID)

	_, err = s.CreateRoom(ctx, &CreateRoomParams{HostID: "h", Username: "alice", RoomName: "two words"})
	assert.ErrorIs(t, err, ErrInvalidRoomName)

	_, err = s.CreateRoom(ctx, &CreateRoomParams{HostID: "h", Username: "alice", RoomName: "r", Duration: 61})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	joined, err := s.JoinRoom(ctx, &JoinRoomParams{RoomID: created.Room.RoomID, UserID: "u1", Username: "bob"})
	require.NoError(t, err)
	require.Len(t, joined.Room.Participants, 1)
	assert.Equal(t, "bob", joined.Room.Participants[0].Username)

	// rejoining with the same id is idempotent
	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomID: created.Room.RoomID, UserID: "u1", Username: "bob"})
	require.NoError(t, err)

	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomID: created.Room.RoomID, UserID: "u2", Username: "bob"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomID: "missing", UserID: "u2", Username: "carol"})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = s.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ConnectMember(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	t.Run("reconnect replaces the old socket", func(t *testing.T) {
		fresh := connection.NewConn("sock-u1-b", tr.id, "u1", nil)
		resp, err := s.ConnectMember(ctx, &ConnectMemberParams{Conn: fresh})
		require.NoError(t, err)
		assert.Same(t, tr.conns["u1"], resp.Replaced)
		assert.Nil(t, resp.SystemMessage)
		assert.Len(t, resp.Members, 2)
		tr.conns["u1"] = fresh

		_, err = s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: resp.Replaced})
		assert.ErrorIs(t, err, ErrNotJoined)
	})

	t.Run("members limit", func(t *testing.T) {
		for _, id := range []string{"u2", "u3"} {
			_, err := s.JoinRoom(ctx, &JoinRoomParams{RoomID: tr.id, UserID: id, Username: "name-" + id})
			require.NoError(t, err)
		}

		_, err := s.ConnectMember(ctx, &ConnectMemberParams{Conn: connection.NewConn("sock-u2", tr.id, "u2", nil)})
		require.NoError(t, err)

		_, err = s.ConnectMember(ctx, &ConnectMemberParams{Conn: connection.NewConn("sock-u3", tr.id, "u3", nil)})
		assert.ErrorIs(t, err, ErrMembersLimitReached)
	})

	t.Run("roster lists host first", func(t *testing.T) {
		resp, err := s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: tr.conns["u1"]})
		require.NoError(t, err)
		require.NotNil(t, resp.SystemMessage)
		assert.Equal(t, "name-u1 left the room", resp.SystemMessage.Content)
		require.Len(t, resp.Members, 2)
		assert.Equal(t, domain.RoleHost, resp.Members[0].Role)
	})
}

func TestService_ControllerRule(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "mod", "part")

	_, err := s.MakeModerator(ctx, &UpdateRoleParams{Sender: tr.conns["host"], TargetUserID: "mod"})
	require.NoError(t, err)

	state := domain.PlayerState{Time: 10, Status: domain.StatusPlaying}

	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{Sender: tr.conns["mod"], State: state})
	assert.ErrorIs(t, err, ErrNotController)

	resp, err := s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{Sender: tr.conns["host"], State: state})
	require.NoError(t, err)
	assert.Len(t, resp.Conns, 2)

	_, err = s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: tr.conns["host"]})
	require.NoError(t, err)

	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{Sender: tr.conns["mod"], State: state})
	require.NoError(t, err)

	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{Sender: tr.conns["part"], State: state})
	assert.ErrorIs(t, err, ErrNotController)

	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{Sender: tr.conns["mod"], State: domain.PlayerState{Status: 7}})
	assert.ErrorIs(t, err, ErrInvalidPlayerState)
}

func TestService_RequestInitialState(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	resp, err := s.RequestInitialState(ctx, &RequestInitialStateParams{Sender: tr.conns["u1"]})
	require.NoError(t, err)
	assert.Same(t, tr.conns["host"], resp.Controller)

	answer, err := s.AnswerControllerState(ctx, &AnswerControllerStateParams{
		Sender:      tr.conns["host"],
		RequesterID: tr.conns["u1"].ID,
		State:       domain.PlayerState{Time: 33, Status: domain.StatusPaused},
	})
	require.NoError(t, err)
	assert.Same(t, tr.conns["u1"], answer.Requester)

	_, err = s.AnswerControllerState(ctx, &AnswerControllerStateParams{
		Sender:      tr.conns["u1"],
		RequesterID: tr.conns["host"].ID,
	})
	assert.ErrorIs(t, err, ErrNotController)

	// the host asking falls back to the stored state
	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		Sender: tr.conns["host"],
		State:  domain.PlayerState{Time: 5, Status: domain.StatusPaused},
	})
	require.NoError(t, err)

	resp, err = s.RequestInitialState(ctx, &RequestInitialStateParams{Sender: tr.conns["host"]})
	require.NoError(t, err)
	assert.Nil(t, resp.Controller)
	assert.Equal(t, domain.PlayerState{Time: 5, Status: domain.StatusPaused}, resp.State)
}

func TestService_ReconnectRequestsInterleaveWithStateChange(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1", "u2")

	for _, id := range []string{"u1", "u2"} {
		fresh := connection.NewConn("sock-"+id+"-b", tr.id, id, nil)
		_, err := s.ConnectMember(ctx, &ConnectMemberParams{Conn: fresh})
		require.NoError(t, err)
		tr.conns[id] = fresh
	}

	for _, id := range []string{"u1", "u2"} {
		resp, err := s.RequestInitialState(ctx, &RequestInitialStateParams{Sender: tr.conns[id]})
		require.NoError(t, err)
		assert.Same(t, tr.conns["host"], resp.Controller)
	}

	before := domain.PlayerState{Time: 10, Status: domain.StatusPaused}
	after := domain.PlayerState{Time: 40, Status: domain.StatusPaused}

	first, err := s.AnswerControllerState(ctx, &AnswerControllerStateParams{
		Sender:      tr.conns["host"],
		RequesterID: tr.conns["u1"].ID,
		State:       before,
	})
	require.NoError(t, err)
	assert.Same(t, tr.conns["u1"], first.Requester)

	changed, err := s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{Sender: tr.conns["host"], State: after})
	require.NoError(t, err)
	assert.ElementsMatch(t, []*connection.Conn{tr.conns["u1"], tr.conns["u2"]}, changed.Conns)

	second, err := s.AnswerControllerState(ctx, &AnswerControllerStateParams{
		Sender:      tr.conns["host"],
		RequesterID: tr.conns["u2"].ID,
		State:       after,
	})
	require.NoError(t, err)
	assert.Same(t, tr.conns["u2"], second.Requester)
	assert.Equal(t, after, second.State)

	// with no controller left the stored state is the last one written
	_, err = s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: tr.conns["host"]})
	require.NoError(t, err)

	resp, err := s.RequestInitialState(ctx, &RequestInitialStateParams{Sender: tr.conns["u1"]})
	require.NoError(t, err)
	assert.Nil(t, resp.Controller)
	assert.Equal(t, after, resp.State)
}

func TestService_StoredPlayerStateAdvancesWhilePlaying(t *testing.T) {
	s := newTestService(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	state := s.storedPlayerState(roomPlayer(10, domain.StatusPlaying, now.Add(-3*time.Second)))
	assert.InDelta(t, 13, state.Time, 0.01)

	state = s.storedPlayerState(roomPlayer(10, domain.StatusPaused, now.Add(-3*time.Second)))
	assert.InDelta(t, 10, state.Time, 0.01)
}

func TestService_Playlist(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	for _, url := range []string{"https://youtu.be/a", "https://youtu.be/b"} {
		_, err := s.AddToPlaylist(ctx, &PlaylistItemParams{Sender: tr.conns["u1"], VideoURL: url})
		require.NoError(t, err)
	}

	_, err := s.RemovePlaylistItem(ctx, &PlaylistItemParams{Sender: tr.conns["u1"], VideoURL: "https://youtu.be/a"})
	assert.ErrorIs(t, err, ErrNotController)

	moved, err := s.MovePlaylistItem(ctx, &MovePlaylistItemParams{Sender: tr.conns["host"], VideoURL: "https://youtu.be/b", Direction: domain.DirectionUp})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/b", "https://youtu.be/a"}, moved.Playlist)

	_, err = s.PlayNext(ctx, &PlayNextParams{Sender: tr.conns["u1"]})
	assert.ErrorIs(t, err, ErrNotController)

	changed, err := s.ChangeVideo(ctx, &ChangeVideoParams{Sender: tr.conns["host"], VideoURL: "https://youtu.be/first"})
	require.NoError(t, err)
	assert.Empty(t, changed.History)

	next, err := s.PlayNext(ctx, &PlayNextParams{Sender: tr.conns["host"], Mode: domain.AdvanceList})
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/b", next.VideoURL)
	assert.Equal(t, []string{"https://youtu.be/first"}, next.History)
	assert.Equal(t, []string{"https://youtu.be/a"}, next.Playlist)
	assert.Len(t, next.Conns, 2)

	_, err = s.PlayNext(ctx, &PlayNextParams{Sender: tr.conns["host"]})
	require.NoError(t, err)

	_, err = s.PlayNext(ctx, &PlayNextParams{Sender: tr.conns["host"]})
	assert.ErrorIs(t, err, domain.ErrPlaylistEmpty)
}

func TestService_Moderation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "mod", "part")

	_, err := s.MakeModerator(ctx, &UpdateRoleParams{Sender: tr.conns["part"], TargetUserID: "mod"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	resp, err := s.MakeModerator(ctx, &UpdateRoleParams{Sender: tr.conns["host"], TargetUserID: "mod"})
	require.NoError(t, err)
	member, ok := resp.Members.Find("mod")
	require.True(t, ok)
	assert.Equal(t, domain.RoleModerator, member.Role)

	_, err = s.MakeModerator(ctx, &UpdateRoleParams{Sender: tr.conns["host"], TargetUserID: "mod"})
	assert.ErrorIs(t, err, ErrAlreadyModerator)

	_, err = s.KickUser(ctx, &RemoveUserParams{Sender: tr.conns["mod"], TargetUserID: "host"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	kicked, err := s.KickUser(ctx, &RemoveUserParams{Sender: tr.conns["mod"], TargetUserID: "part"})
	require.NoError(t, err)
	assert.Same(t, tr.conns["part"], kicked.Target)
	assert.Len(t, kicked.Members, 2)

	banned, err := s.BanUser(ctx, &RemoveUserParams{Sender: tr.conns["host"], TargetUserID: "mod"})
	require.NoError(t, err)
	assert.Same(t, tr.conns["mod"], banned.Target)
	assert.Equal(t, "name-mod was banned", banned.SystemMessage.Content)

	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomID: tr.id, UserID: "mod", Username: "again"})
	assert.ErrorIs(t, err, ErrUserBanned)

	rm, err := s.GetRoom(ctx, tr.id)
	require.NoError(t, err)
	assert.Equal(t, []string{"mod"}, rm.BannedUsers)
	assert.Empty(t, rm.Moderators)
}

func TestService_UpdateUsername(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	_, err := s.UpdateUsername(ctx, &UpdateUsernameParams{Sender: tr.conns["u1"], NewUsername: "hosty"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.UpdateUsername(ctx, &UpdateUsernameParams{Sender: tr.conns["u1"], NewUsername: "x"})
	assert.ErrorIs(t, err, ErrInvalidUsername)

	resp, err := s.UpdateUsername(ctx, &UpdateUsernameParams{Sender: tr.conns["u1"], NewUsername: "  neo "})
	require.NoError(t, err)
	member, ok := resp.Members.Find("u1")
	require.True(t, ok)
	assert.Equal(t, "neo", member.Username)
	assert.Equal(t, "name-u1 is now known as neo", resp.SystemMessage.Content)
}

func TestService_Chat(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	_, err := s.SendChatMessage(ctx, &SendChatMessageParams{Sender: tr.conns["u1"], Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	resp, err := s.SendChatMessage(ctx, &SendChatMessageParams{
		Sender:   tr.conns["u1"],
		Text:     " hello ",
		ClientID: "client-1",
		ReplyTo:  &domain.ReplyRef{MessageID: "m0", SenderName: "hosty", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Message.Content)
	assert.Equal(t, "client-1", resp.Message.ClientID)
	assert.Equal(t, domain.RoleParticipant, resp.Message.SenderRole)
	assert.Len(t, resp.Conns, 2)

	page, err := s.GetMessages(ctx, &GetMessagesParams{RoomID: tr.id})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, resp.Message.ID, page.Messages[0].ID)
	assert.Empty(t, page.Messages[0].ClientID)
	assert.Equal(t, "m0", page.Messages[0].ReplyTo.MessageID)
}

func TestService_ScreenShare(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	_, err := s.StartScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["u1"]})
	assert.ErrorIs(t, err, ErrScreenShareNotAllowed)

	req, err := s.RequestScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["u1"]})
	require.NoError(t, err)
	assert.Same(t, tr.conns["host"], req.Host)
	assert.Equal(t, "name-u1", req.RequesterUsername)

	_, err = s.RequestScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["u1"]})
	assert.ErrorIs(t, err, connection.ErrScreenShareRequestPending)

	_, err = s.RespondScreenShare(ctx, &RespondScreenShareParams{Sender: tr.conns["u1"], RequesterID: "u1", Accepted: true})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	granted, err := s.RespondScreenShare(ctx, &RespondScreenShareParams{Sender: tr.conns["host"], RequesterID: "u1", Accepted: true})
	require.NoError(t, err)
	assert.True(t, granted.Granted)
	assert.Same(t, tr.conns["u1"], granted.Requester)

	started, err := s.StartScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["u1"]})
	require.NoError(t, err)
	assert.Equal(t, "u1", started.SharerID)
	assert.Equal(t, []*connection.Conn{tr.conns["host"]}, started.Conns)

	_, err = s.StartScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["host"]})
	assert.ErrorIs(t, err, connection.ErrScreenShareActive)

	peer, err := s.ResolvePeer(ctx, &ResolvePeerParams{Sender: tr.conns["u1"], TargetSocketID: tr.conns["host"].ID})
	require.NoError(t, err)
	assert.Same(t, tr.conns["host"], peer)

	_, err = s.ResolvePeer(ctx, &ResolvePeerParams{Sender: tr.conns["u1"], TargetSocketID: "elsewhere"})
	assert.ErrorIs(t, err, ErrMemberNotFound)

	left, err := s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: tr.conns["u1"]})
	require.NoError(t, err)
	assert.True(t, left.ShareStopped)

	_, err = s.StopScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["host"]})
	assert.ErrorIs(t, err, ErrNotSharing)
}

func TestService_HostLossDropsShareRequests(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1", "u2")

	for _, id := range []string{"u1", "u2"} {
		_, err := s.RequestScreenShare(ctx, &ScreenShareParams{Sender: tr.conns[id]})
		require.NoError(t, err)
	}

	t.Run("participant leaving keeps the requests", func(t *testing.T) {
		_, err := s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: tr.conns["u2"]})
		require.NoError(t, err)

		conn := connection.NewConn("sock-u2-b", tr.id, "u2", nil)
		resp, err := s.ConnectMember(ctx, &ConnectMemberParams{Conn: conn})
		require.NoError(t, err)
		assert.Empty(t, resp.DroppedRequests)
		tr.conns["u2"] = conn

		_, err = s.RequestScreenShare(ctx, &ScreenShareParams{Sender: conn})
		assert.ErrorIs(t, err, connection.ErrScreenShareRequestPending)
	})

	t.Run("host reload drops them", func(t *testing.T) {
		fresh := connection.NewConn("sock-host-b", tr.id, "host", nil)
		resp, err := s.ConnectMember(ctx, &ConnectMemberParams{Conn: fresh})
		require.NoError(t, err)
		assert.Equal(t, []*connection.Conn{tr.conns["u1"], tr.conns["u2"]}, resp.DroppedRequests)
		tr.conns["host"] = fresh

		_, err = s.RequestScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["u1"]})
		require.NoError(t, err)
	})

	t.Run("host leaving drops them", func(t *testing.T) {
		resp, err := s.DisconnectMember(ctx, &DisconnectMemberParams{Conn: tr.conns["host"]})
		require.NoError(t, err)
		assert.Equal(t, []*connection.Conn{tr.conns["u1"]}, resp.DroppedRequests)

		_, err = s.RequestScreenShare(ctx, &ScreenShareParams{Sender: tr.conns["u1"]})
		assert.ErrorIs(t, err, ErrHostNotConnected)
	})
}

func TestService_ExpireRooms(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tr := setupRoom(t, s, "u1")

	expired, err := s.ExpireRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	now := time.Now().Add(domain.DefaultRoomDuration + time.Minute)
	s.now = func() time.Time { return now }

	expired, err = s.ExpireRooms(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, tr.id, expired[0].RoomID)
	assert.Len(t, expired[0].Conns, 2)

	_, err = s.GetRoom(ctx, tr.id)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
