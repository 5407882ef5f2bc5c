package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

var errEmitFailed = errors.New("emit failed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is an in-memory channel that keeps every emitted event.
type recorder struct {
	mu       sync.Mutex
	events   []protocol.ClientEvent
	fail     bool
	username string
}

func (r *recorder) Emit(_ context.Context, ev protocol.ClientEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail {
		return errEmitFailed
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) SetUsername(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.username = username
}

func (r *recorder) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fail = fail
}

func (r *recorder) all() []protocol.ClientEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]protocol.ClientEvent(nil), r.events...)
}

func (r *recorder) ofType(eventType string) []protocol.ClientEvent {
	var out []protocol.ClientEvent
	for _, ev := range r.all() {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

func member(userID string, role domain.Role) domain.Member {
	return domain.Member{UserID: userID, Username: "name-" + userID, Role: role, SocketID: "sock-" + userID}
}

// fakePeer records what the screen-share engine does with a connection.
type fakePeer struct {
	mu         sync.Mutex
	role       PeerRole
	remote     *protocol.SessionDescription
	candidates []protocol.ICECandidate
	closed     bool
	failOffer  bool
}

func (p *fakePeer) CreateOffer() (protocol.SessionDescription, error) {
	if p.failOffer {
		return protocol.SessionDescription{}, errors.New("no media")
	}
	return protocol.SessionDescription{Type: "offer", SDP: "v=0 offer"}, nil
}

func (p *fakePeer) CreateAnswer() (protocol.SessionDescription, error) {
	return protocol.SessionDescription{Type: "answer", SDP: "v=0 answer"}, nil
}

func (p *fakePeer) SetRemoteDescription(desc protocol.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.remote = &desc
	return nil
}

func (p *fakePeer) AddICECandidate(candidate protocol.ICECandidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.remote == nil {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, candidate)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}

type fakeFactory struct {
	mu        sync.Mutex
	peers     []*fakePeer
	failOffer bool
}

func (f *fakeFactory) NewPeer(role PeerRole, _ func(protocol.ICECandidate)) (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &fakePeer{role: role, failOffer: f.failOffer}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *fakeFactory) created() []*fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*fakePeer(nil), f.peers...)
}
