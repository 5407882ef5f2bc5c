package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

func newTestChat() (*ChatLog, *recorder) {
	rec := &recorder{}
	return NewChatLog("room", rec, clock.NewMock()), rec
}

func serverCopy(echo domain.ChatMessage, id string) domain.ChatMessage {
	msg := echo
	msg.ID = id
	msg.SentAt = time.Unix(100, 0)
	return msg
}

func TestChatLog_EchoReconciliation(t *testing.T) {
	ctx := context.Background()
	chat, rec := newTestChat()
	self := member("u1", domain.RoleParticipant)

	echo, err := chat.Send(ctx, "  hello  ", nil, self)
	require.NoError(t, err)
	assert.Equal(t, "hello", echo.Content)
	assert.Equal(t, 1, chat.Pending())

	events := rec.ofType(protocol.EventChatMessage)
	require.Len(t, events, 1)
	payload := events[0].(protocol.ChatMessagePayload)
	assert.Equal(t, echo.ClientID, payload.ClientID)
	assert.Equal(t, "hello", payload.Text)

	other := domain.ChatMessage{ID: "m0", Type: domain.MessageUser, Content: "hi", SenderID: "u2"}
	assert.True(t, chat.Receive(other))

	confirmed := serverCopy(echo, "m1")
	assert.True(t, chat.Receive(confirmed))
	assert.False(t, chat.Receive(confirmed), "duplicate delivery")

	messages := chat.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID, "server copy replaces the echo in place")
	assert.Equal(t, "m0", messages[1].ID)
	assert.Zero(t, chat.Pending())
}

func TestChatLog_SeedSkipsKnownMessages(t *testing.T) {
	chat, _ := newTestChat()

	live := domain.ChatMessage{ID: "m3", Type: domain.MessageUser, Content: "live"}
	chat.Receive(live)
	chat.Seed([]domain.ChatMessage{
		{ID: "m1", Type: domain.MessageUser, Content: "one"},
		{ID: "m2", Type: domain.MessageUser, Content: "two"},
		live,
	})

	ids := make([]string, 0, 3)
	for _, m := range chat.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
}

func TestChatLog_SeedAfterSendKeepsPendingEcho(t *testing.T) {
	ctx := context.Background()
	chat, _ := newTestChat()

	echo, err := chat.Send(ctx, "early", nil, member("u1", domain.RoleHost))
	require.NoError(t, err)
	chat.Seed([]domain.ChatMessage{{ID: "m1", Type: domain.MessageUser, Content: "old"}})

	require.True(t, chat.Receive(serverCopy(echo, "m2")))
	messages := chat.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, []string{"m1", "m2"}, []string{messages[0].ID, messages[1].ID})
}

func TestChatLog_SendValidation(t *testing.T) {
	ctx := context.Background()
	chat, rec := newTestChat()
	self := member("u1", domain.RoleParticipant)

	_, err := chat.Send(ctx, "   ", nil, self)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	long, err := chat.Send(ctx, strings.Repeat("x", 600), nil, self)
	require.NoError(t, err)
	assert.Len(t, long.Content, maxMessageLength)

	rec.setFail(true)
	_, err = chat.Send(ctx, "lost", nil, self)
	assert.ErrorIs(t, err, errEmitFailed)
	assert.Len(t, chat.Messages(), 1, "failed sends leave no echo")
	assert.Equal(t, 1, chat.Pending())
}

func TestChatLog_ReplyRef(t *testing.T) {
	chat, _ := newTestChat()
	chat.Receive(domain.ChatMessage{ID: "m1", Type: domain.MessageUser, Content: "original", SenderName: "neo"})
	chat.Receive(domain.NewSystemMessage("s1", "neo joined", time.Unix(0, 0)))

	ref, ok := chat.ReplyRef("m1")
	require.True(t, ok)
	assert.Equal(t, domain.ReplyRef{MessageID: "m1", SenderName: "neo", Content: "original"}, *ref)

	_, ok = chat.ReplyRef("s1")
	assert.False(t, ok, "system messages cannot be replied to")
	_, ok = chat.ReplyRef("missing")
	assert.False(t, ok)
}
