package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerEvent(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"syncPlayerState","payload":{"time":12.5,"status":1,"videoUrl":"https://youtu.be/x"}}`)

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))

	ev, err := protocol.DecodeServerEvent(env)
	require.NoError(t, err)

	sync, ok := ev.(protocol.SyncPlayerStateEvent)
	require.True(t, ok)
	assert.Equal(t, 12.5, sync.Time)
	assert.Equal(t, domain.StatusPlaying, sync.Status)
	assert.Equal(t, "https://youtu.be/x", sync.VideoURL)
}

func TestDecodeServerEvent_EmptyPayload(t *testing.T) {
	t.Parallel()

	ev, err := protocol.DecodeServerEvent(protocol.Envelope{Type: protocol.EventScreenShareStopped})
	require.NoError(t, err)
	assert.IsType(t, protocol.ScreenShareStoppedEvent{}, ev)
}

func TestDecodeServerEvent_Errors(t *testing.T) {
	t.Parallel()

	_, err := protocol.DecodeServerEvent(protocol.Envelope{Type: "nope"})
	assert.ErrorIs(t, err, protocol.ErrUnknownEvent)

	_, err = protocol.DecodeServerEvent(protocol.Envelope{
		Type:    protocol.EventMembersUpdate,
		Payload: json.RawMessage(`{"members":"x"}`),
	})
	assert.ErrorIs(t, err, protocol.ErrInvalidPayload)
}

func TestEncode_ChatMessageIsFlat(t *testing.T) {
	t.Parallel()

	env, err := protocol.Encode(protocol.ChatMessageEvent{ChatMessage: domain.ChatMessage{
		ID:       "m1",
		Type:     domain.MessageUser,
		Content:  "hi",
		ClientID: "c1",
	}})
	require.NoError(t, err)
	assert.Equal(t, protocol.EventChatMessage, env.Type)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &flat))
	assert.Equal(t, "m1", flat["id"])
	assert.Equal(t, "c1", flat["clientId"])
}

func TestDecodeClientEvent_Moderation(t *testing.T) {
	t.Parallel()

	ev, err := protocol.DecodeClientEvent(protocol.Envelope{
		Type:    protocol.EventKickUser,
		Payload: json.RawMessage(`{"roomId":"r","targetUserId":"u"}`),
	})
	require.NoError(t, err)

	kick, ok := ev.(protocol.KickUserPayload)
	require.True(t, ok)
	assert.Equal(t, "u", kick.TargetUserID)
	assert.True(t, protocol.IsClientEvent(protocol.EventWebRTCOffer))
	assert.False(t, protocol.IsClientEvent(protocol.EventMembersUpdate))
}
