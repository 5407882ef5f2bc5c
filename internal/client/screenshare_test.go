package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

func newTestScreenShare() (*ScreenShare, *recorder, *fakeFactory) {
	rec := &recorder{}
	factory := &fakeFactory{}
	return NewScreenShare("room", rec, factory, discardLogger()), rec, factory
}

func candidate(s string) protocol.ICECandidate {
	return protocol.ICECandidate{Candidate: s}
}

func TestScreenShare_EarlyCandidatesAreQueued(t *testing.T) {
	ctx := context.Background()
	share, rec, factory := newTestScreenShare()

	for _, c := range []string{"c1", "c2"} {
		require.NoError(t, share.Candidate(ctx, protocol.WebRTCICECandidateEvent{
			Candidate:      candidate(c),
			SourceSocketID: "sock-sharer",
		}))
	}
	assert.Equal(t, 2, share.QueuedCandidates("sock-sharer"))
	assert.Empty(t, factory.created())

	require.NoError(t, share.Offer(ctx, protocol.WebRTCOfferEvent{
		Offer:          protocol.SessionDescription{Type: "offer", SDP: "v=0"},
		SharerSocketID: "sock-sharer",
	}))

	peers := factory.created()
	require.Len(t, peers, 1)
	assert.Equal(t, PeerViewer, peers[0].role)
	assert.Equal(t, []protocol.ICECandidate{candidate("c1"), candidate("c2")}, peers[0].candidates)
	assert.Zero(t, share.QueuedCandidates("sock-sharer"))

	answers := rec.ofType(protocol.EventWebRTCAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "sock-sharer", answers[0].(protocol.WebRTCAnswerPayload).SharerSocketID)

	require.NoError(t, share.Candidate(ctx, protocol.WebRTCICECandidateEvent{
		Candidate:      candidate("c3"),
		SourceSocketID: "sock-sharer",
	}))
	assert.Len(t, peers[0].candidates, 3)
	assert.True(t, share.State().Viewing)
}

func TestScreenShare_HostShares(t *testing.T) {
	ctx := context.Background()
	share, rec, factory := newTestScreenShare()
	members := domain.Members{
		member("h", domain.RoleHost),
		member("a", domain.RoleParticipant),
		member("b", domain.RoleParticipant),
	}

	require.NoError(t, share.Start(ctx, members, "sock-h", true))
	assert.Len(t, rec.ofType(protocol.EventStartScreenShare), 1)

	offers := rec.ofType(protocol.EventWebRTCOffer)
	require.Len(t, offers, 2)
	viewers := []string{
		offers[0].(protocol.WebRTCOfferPayload).ViewerSocketID,
		offers[1].(protocol.WebRTCOfferPayload).ViewerSocketID,
	}
	assert.ElementsMatch(t, []string{"sock-a", "sock-b"}, viewers)
	assert.Equal(t, []string{"sock-a", "sock-b"}, share.State().Peers)

	// the viewer's candidate overtakes its answer
	require.NoError(t, share.Candidate(ctx, protocol.WebRTCICECandidateEvent{Candidate: candidate("c1"), SourceSocketID: "sock-a"}))
	assert.Equal(t, 1, share.QueuedCandidates("sock-a"))
	require.NoError(t, share.Answer(ctx, protocol.WebRTCAnswerEvent{
		Answer:         protocol.SessionDescription{Type: "answer", SDP: "v=0"},
		ViewerSocketID: "sock-a",
	}))
	assert.Zero(t, share.QueuedCandidates("sock-a"))

	share.InitiatePeer(ctx, protocol.InitiateWebRTCPeerEvent{NewPeerSocketID: "sock-c"})
	assert.Len(t, rec.ofType(protocol.EventWebRTCOffer), 3)

	require.NoError(t, share.Stop(ctx))
	assert.Len(t, rec.ofType(protocol.EventStopScreenShare), 1)
	for _, p := range factory.created() {
		assert.True(t, p.closed)
	}
	assert.Empty(t, share.State().Peers)
	assert.ErrorIs(t, share.Stop(ctx), ErrNotSharing)
}

func TestScreenShare_FailedOfferClosesPeer(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	factory := &fakeFactory{failOffer: true}
	share := NewScreenShare("room", rec, factory, discardLogger())

	require.NoError(t, share.Start(ctx, domain.Members{member("h", domain.RoleHost), member("a", domain.RoleParticipant)}, "sock-h", true))
	assert.Empty(t, rec.ofType(protocol.EventWebRTCOffer))
	require.Len(t, factory.created(), 1)
	assert.True(t, factory.created()[0].closed)
	assert.True(t, share.State().Sharing, "sharing continues for other viewers")
}

func TestScreenShare_ViewerStopped(t *testing.T) {
	ctx := context.Background()
	share, _, factory := newTestScreenShare()

	share.Started(protocol.ScreenShareStartedEvent{SharerID: "h"})
	require.NoError(t, share.Offer(ctx, protocol.WebRTCOfferEvent{Offer: protocol.SessionDescription{Type: "offer"}, SharerSocketID: "sock-h"}))
	require.NoError(t, share.Candidate(ctx, protocol.WebRTCICECandidateEvent{Candidate: candidate("late"), SourceSocketID: "sock-other"}))

	state := share.State()
	assert.True(t, state.Viewing)
	assert.Equal(t, "h", state.SharerID)

	share.Stopped()
	assert.True(t, factory.created()[0].closed)
	assert.Zero(t, share.QueuedCandidates("sock-other"))
	assert.False(t, share.State().Viewing)
	assert.Empty(t, share.State().SharerID)
}

func TestScreenShare_RequestFlow(t *testing.T) {
	ctx := context.Background()
	share, rec, _ := newTestScreenShare()
	members := domain.Members{member("h", domain.RoleHost), member("p", domain.RoleParticipant)}

	assert.ErrorIs(t, share.Start(ctx, members, "sock-p", false), ErrNotPermitted)

	require.NoError(t, share.Request(ctx, false))
	assert.ErrorIs(t, share.Request(ctx, false), ErrRequestPending)
	assert.Len(t, rec.ofType(protocol.EventScreenShareRequest), 1)
	assert.True(t, share.State().Requested)

	share.Permission(protocol.ScreenSharePermissionEvent{Granted: false})
	assert.False(t, share.State().Permitted)
	assert.False(t, share.State().Requested)

	require.NoError(t, share.Request(ctx, false))
	share.Permission(protocol.ScreenSharePermissionEvent{Granted: true})
	assert.True(t, share.State().Permitted)

	require.NoError(t, share.Start(ctx, members, "sock-p", false))
	offers := rec.ofType(protocol.EventWebRTCOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "sock-h", offers[0].(protocol.WebRTCOfferPayload).ViewerSocketID)
}

func TestScreenShare_HostInbox(t *testing.T) {
	ctx := context.Background()
	share, rec, _ := newTestScreenShare()

	share.Requested(protocol.ScreenShareRequestEvent{RequesterID: "p1", RequesterUsername: "one"})
	share.Requested(protocol.ScreenShareRequestEvent{RequesterID: "p2", RequesterUsername: "two"})
	share.Requested(protocol.ScreenShareRequestEvent{RequesterID: "p1", RequesterUsername: "one"})
	require.Len(t, share.Requests(), 2)

	assert.ErrorIs(t, share.Respond(ctx, "p1", true, false), ErrNotPermitted)
	require.NoError(t, share.Respond(ctx, "p1", true, true))

	responses := rec.ofType(protocol.EventScreenShareResponse)
	require.Len(t, responses, 1)
	assert.Equal(t, protocol.ScreenShareResponsePayload{RoomID: "room", RequesterID: "p1", Accepted: true}, responses[0])

	remaining := share.Requests()
	require.Len(t, remaining, 1)
	assert.Equal(t, "p2", remaining[0].RequesterID)
}
