package client

import (
	"log/slog"

	"golang.org/x/exp/maps"

	"github.com/sharetube/watchparty/internal/protocol"
)

// PeerConnection is one side of a screen-share media session.
type PeerConnection interface {
	// CreateOffer creates an offer and sets it as the local description.
	CreateOffer() (protocol.SessionDescription, error)
	// CreateAnswer creates an answer and sets it as the local description.
	CreateAnswer() (protocol.SessionDescription, error)
	SetRemoteDescription(desc protocol.SessionDescription) error
	AddICECandidate(candidate protocol.ICECandidate) error
	Close() error
}

type PeerRole int

const (
	PeerSharer PeerRole = iota
	PeerViewer
)

// PeerFactory opens peer connections. onCandidate receives every locally
// gathered ICE candidate.
type PeerFactory interface {
	NewPeer(role PeerRole, onCandidate func(protocol.ICECandidate)) (PeerConnection, error)
}

type peerSession struct {
	conn      PeerConnection
	remoteSet bool
}

// peerSessions owns the peer connections of one client, keyed by the remote
// socket id, along with ICE candidates that arrived before their peer could
// take them.
type peerSessions struct {
	factory PeerFactory
	logger  *slog.Logger
	peers   map[string]*peerSession
	queued  map[string][]protocol.ICECandidate
}

func newPeerSessions(factory PeerFactory, logger *slog.Logger) *peerSessions {
	return &peerSessions{
		factory: factory,
		logger:  logger,
		peers:   make(map[string]*peerSession),
		queued:  make(map[string][]protocol.ICECandidate),
	}
}

func (s *peerSessions) get(peerID string) (*peerSession, bool) {
	p, ok := s.peers[peerID]
	return p, ok
}

// getOrCreate returns the session for peerID, replacing nothing.
func (s *peerSessions) getOrCreate(peerID string, role PeerRole, onCandidate func(protocol.ICECandidate)) (*peerSession, error) {
	if p, ok := s.peers[peerID]; ok {
		return p, nil
	}

	conn, err := s.factory.NewPeer(role, onCandidate)
	if err != nil {
		return nil, err
	}
	p := &peerSession{conn: conn}
	s.peers[peerID] = p

	return p, nil
}

// remoteReady marks peerID's remote description as set and replays the
// candidates queued for it. It returns how many were applied.
func (s *peerSessions) remoteReady(peerID string) int {
	p, ok := s.peers[peerID]
	if !ok {
		return 0
	}
	p.remoteSet = true

	applied := 0
	for _, candidate := range s.queued[peerID] {
		if err := p.conn.AddICECandidate(candidate); err != nil {
			s.logger.Info("failed to add queued ice candidate", "peer", peerID, "error", err)
			continue
		}
		applied++
	}
	delete(s.queued, peerID)

	return applied
}

// addCandidate applies candidate when its peer is ready and queues it
// otherwise. It reports whether the candidate was applied now.
func (s *peerSessions) addCandidate(peerID string, candidate protocol.ICECandidate) (bool, error) {
	p, ok := s.peers[peerID]
	if !ok || !p.remoteSet {
		s.queued[peerID] = append(s.queued[peerID], candidate)
		return false, nil
	}
	return true, p.conn.AddICECandidate(candidate)
}

func (s *peerSessions) queuedFor(peerID string) int {
	return len(s.queued[peerID])
}

func (s *peerSessions) close(peerID string) {
	if p, ok := s.peers[peerID]; ok {
		if err := p.conn.Close(); err != nil {
			s.logger.Debug("failed to close peer", "peer", peerID, "error", err)
		}
		delete(s.peers, peerID)
	}
	delete(s.queued, peerID)
}

func (s *peerSessions) closeAll() {
	for _, peerID := range maps.Keys(s.peers) {
		s.close(peerID)
	}
	clear(s.queued)
}

func (s *peerSessions) ids() []string {
	return maps.Keys(s.peers)
}
