package client

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

// ScreenShare negotiates screen-share peers over the room channel and keeps
// the request and grant state of the local user.
type ScreenShare struct {
	mu      sync.Mutex
	emitter emitter
	logger  *slog.Logger
	roomID  string
	peers   *peerSessions
	sharing bool
	viewing bool
	// sharerID is the sharing user, sharerSocket the peer offering to us.
	sharerID     string
	sharerSocket string
	permitted    bool
	requested    bool
	inbox        []protocol.ScreenShareRequestEvent
}

func NewScreenShare(roomID string, em emitter, factory PeerFactory, logger *slog.Logger) *ScreenShare {
	return &ScreenShare{
		emitter: em,
		logger:  logger,
		roomID:  roomID,
		peers:   newPeerSessions(factory, logger),
	}
}

// Start begins sharing and sends an offer to every other member. The host
// may always share; anyone else needs a granted request.
func (s *ScreenShare) Start(ctx context.Context, members domain.Members, selfSocketID string, isHost bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !isHost && !s.permitted {
		return ErrNotPermitted
	}
	if s.sharing {
		return nil
	}

	if err := s.emitter.Emit(ctx, protocol.StartScreenSharePayload{RoomID: s.roomID}); err != nil {
		return err
	}
	s.sharing = true

	for _, m := range members {
		if m.SocketID == "" || m.SocketID == selfSocketID {
			continue
		}
		s.offerLocked(ctx, m.SocketID)
	}

	return nil
}

// Stop closes every viewer connection and announces the end of the share.
func (s *ScreenShare) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sharing {
		return ErrNotSharing
	}
	s.sharing = false
	s.peers.closeAll()

	return s.emitter.Emit(ctx, protocol.StopScreenSharePayload{RoomID: s.roomID})
}

// InitiatePeer offers the running share to a member who joined after it
// started.
func (s *ScreenShare) InitiatePeer(ctx context.Context, ev protocol.InitiateWebRTCPeerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sharing {
		return
	}
	s.offerLocked(ctx, ev.NewPeerSocketID)
}

func (s *ScreenShare) offerLocked(ctx context.Context, viewerID string) {
	p, err := s.peers.getOrCreate(viewerID, PeerSharer, s.candidateSender(ctx, viewerID))
	if err != nil {
		s.logger.InfoContext(ctx, "failed to create peer", "viewer", viewerID, "error", err)
		return
	}

	offer, err := p.conn.CreateOffer()
	if err == nil {
		err = s.emitter.Emit(ctx, protocol.WebRTCOfferPayload{Offer: offer, ViewerSocketID: viewerID})
	}
	if err != nil {
		s.logger.InfoContext(ctx, "failed to offer screen share", "viewer", viewerID, "error", err)
		s.peers.close(viewerID)
	}
}

// Offer answers a sharer's offer and replays candidates that beat it here.
func (s *ScreenShare) Offer(ctx context.Context, ev protocol.WebRTCOfferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sharerID := ev.SharerSocketID
	if err := s.answerLocked(ctx, sharerID, ev.Offer); err != nil {
		s.peers.close(sharerID)
		return fmt.Errorf("failed to answer screen share offer: %w", err)
	}

	s.viewing = true
	s.sharerSocket = sharerID
	return nil
}

func (s *ScreenShare) answerLocked(ctx context.Context, sharerID string, offer protocol.SessionDescription) error {
	p, err := s.peers.getOrCreate(sharerID, PeerViewer, s.candidateSender(ctx, sharerID))
	if err != nil {
		return err
	}
	if err := p.conn.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := p.conn.CreateAnswer()
	if err != nil {
		return err
	}
	s.peers.remoteReady(sharerID)

	return s.emitter.Emit(ctx, protocol.WebRTCAnswerPayload{Answer: answer, SharerSocketID: sharerID})
}

// Answer completes the sharer side of a viewer's negotiation.
func (s *ScreenShare) Answer(ctx context.Context, ev protocol.WebRTCAnswerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.peers.get(ev.ViewerSocketID)
	if !ok {
		return nil
	}
	if err := p.conn.SetRemoteDescription(ev.Answer); err != nil {
		s.peers.close(ev.ViewerSocketID)
		return fmt.Errorf("failed to accept screen share answer: %w", err)
	}
	s.peers.remoteReady(ev.ViewerSocketID)

	return nil
}

// Candidate applies a remote ICE candidate, queueing it until its peer has a
// remote description.
func (s *ScreenShare) Candidate(ctx context.Context, ev protocol.WebRTCICECandidateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.peers.addCandidate(ev.SourceSocketID, ev.Candidate); err != nil {
		return fmt.Errorf("failed to add ice candidate: %w", err)
	}
	return nil
}

func (s *ScreenShare) Started(ev protocol.ScreenShareStartedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewing = true
	s.sharerID = ev.SharerID
}

// Stopped tears down the viewer side, queued candidates included.
func (s *ScreenShare) Stopped() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sharing {
		if s.sharerSocket != "" {
			s.peers.close(s.sharerSocket)
		}
	} else {
		s.peers.closeAll()
	}
	s.viewing = false
	s.sharerID = ""
	s.sharerSocket = ""
}

// Request asks the host for permission to share.
func (s *ScreenShare) Request(ctx context.Context, isHost bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isHost || s.permitted {
		return nil
	}
	if s.requested {
		return ErrRequestPending
	}
	if err := s.emitter.Emit(ctx, protocol.ScreenShareRequestPayload{RoomID: s.roomID}); err != nil {
		return err
	}
	s.requested = true

	return nil
}

// RequestFailed clears a request the server refused.
func (s *ScreenShare) RequestFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requested = false
}

func (s *ScreenShare) Permission(ev protocol.ScreenSharePermissionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requested = false
	s.permitted = ev.Granted
}

// Requested queues a request on the host side until it is answered.
func (s *ScreenShare) Requested(ev protocol.ScreenShareRequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inbox = slices.DeleteFunc(s.inbox, func(r protocol.ScreenShareRequestEvent) bool {
		return r.RequesterID == ev.RequesterID
	})
	s.inbox = append(s.inbox, ev)
}

// Respond answers a pending request as the host.
func (s *ScreenShare) Respond(ctx context.Context, requesterID string, accepted, isHost bool) error {
	if !isHost {
		return ErrNotPermitted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.emitter.Emit(ctx, protocol.ScreenShareResponsePayload{
		RoomID:      s.roomID,
		RequesterID: requesterID,
		Accepted:    accepted,
	}); err != nil {
		return err
	}
	s.inbox = slices.DeleteFunc(s.inbox, func(r protocol.ScreenShareRequestEvent) bool {
		return r.RequesterID == requesterID
	})

	return nil
}

func (s *ScreenShare) Requests() []protocol.ScreenShareRequestEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.inbox)
}

// ScreenShareState is a snapshot for display.
type ScreenShareState struct {
	Sharing   bool
	Viewing   bool
	SharerID  string
	Permitted bool
	Requested bool
	Peers     []string
}

func (s *ScreenShare) State() ScreenShareState {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := s.peers.ids()
	slices.Sort(peers)

	return ScreenShareState{
		Sharing:   s.sharing,
		Viewing:   s.viewing,
		SharerID:  s.sharerID,
		Permitted: s.permitted,
		Requested: s.requested,
		Peers:     peers,
	}
}

func (s *ScreenShare) QueuedCandidates(peerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.peers.queuedFor(peerID)
}

// Close drops every peer and all share state tied to the current socket
// without announcing anything.
func (s *ScreenShare) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sharing = false
	s.viewing = false
	s.sharerID = ""
	s.sharerSocket = ""
	s.inbox = nil
	s.peers.closeAll()
}

func (s *ScreenShare) candidateSender(ctx context.Context, peerID string) func(protocol.ICECandidate) {
	ctx = context.WithoutCancel(ctx)
	return func(candidate protocol.ICECandidate) {
		if err := s.emitter.Emit(ctx, protocol.WebRTCICECandidatePayload{
			Candidate:      candidate,
			TargetSocketID: peerID,
		}); err != nil {
			s.logger.DebugContext(ctx, "failed to send ice candidate", "peer", peerID, "error", err)
		}
	}
}
