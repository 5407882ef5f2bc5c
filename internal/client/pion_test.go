package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/protocol"
)

func TestPionFactory_OfferAnswer(t *testing.T) {
	factory, err := NewPionFactory(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, factory.Track())

	ignore := func(protocol.ICECandidate) {}

	sharer, err := factory.NewPeer(PeerSharer, ignore)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sharer.Close() })

	viewer, err := factory.NewPeer(PeerViewer, ignore)
	require.NoError(t, err)
	t.Cleanup(func() { _ = viewer.Close() })

	offer, err := sharer.CreateOffer()
	require.NoError(t, err)
	assert.Equal(t, "offer", offer.Type)
	assert.Contains(t, offer.SDP, "VP8")

	require.NoError(t, viewer.SetRemoteDescription(offer))
	answer, err := viewer.CreateAnswer()
	require.NoError(t, err)
	assert.Equal(t, "answer", answer.Type)

	require.NoError(t, sharer.SetRemoteDescription(answer))
}
