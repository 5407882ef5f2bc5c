package client

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/protocol"
)

func (s *Session) onConnected(_ context.Context, ev protocol.ConnectedEvent) error {
	s.mu.Lock()
	previous := s.socketID
	s.socketID = ev.SocketID
	s.mu.Unlock()

	if previous != "" && previous != ev.SocketID {
		s.share.Close()
	}
	return nil
}

func (s *Session) onMembersUpdate(_ context.Context, ev protocol.MembersUpdateEvent) error {
	if s.roster.Replace(ev.Members) {
		self := s.self()
		s.channel.SetUsername(self.Username)
		s.notify(Update{Kind: UpdateNotice, Message: fmt.Sprintf("you are now known as %s", self.Username)})
	}
	return nil
}

func (s *Session) onChatMessage(_ context.Context, ev protocol.ChatMessageEvent) error {
	s.chat.Receive(ev.ChatMessage)
	return nil
}

func (s *Session) onHistoryUpdate(_ context.Context, ev protocol.HistoryUpdateEvent) error {
	s.playlist.SetHistory(ev.History)
	return nil
}

func (s *Session) onVideoUpdate(_ context.Context, ev protocol.VideoUpdateEvent) error {
	s.playlist.CancelAdvance()
	s.playback.VideoChanged(ev.VideoURL)
	return nil
}

func (s *Session) onPlaylistUpdate(_ context.Context, ev protocol.PlaylistUpdateEvent) error {
	s.playlist.SetQueue(ev.Playlist)
	return nil
}

func (s *Session) onSyncPlayerState(_ context.Context, ev protocol.SyncPlayerStateEvent) error {
	s.playlist.CancelAdvance()
	s.playback.Sync(ev.PlayerState, s.roster.IsController())
	return nil
}

func (s *Session) onInitialState(_ context.Context, ev protocol.InitialStateEvent) error {
	s.playback.ApplyInitial(ev.SyncState)
	return nil
}

func (s *Session) onGetControllerState(ctx context.Context, ev protocol.GetControllerStateEvent) error {
	return s.channel.Emit(ctx, protocol.ControllerStatePayload{
		RequesterID: ev.RequesterID,
		State:       s.playback.ControllerState(),
	})
}

func (s *Session) onKicked(_ context.Context, ev protocol.KickedEvent) error {
	return s.terminate(ReasonKicked, ev.Message)
}

func (s *Session) onBanned(_ context.Context, ev protocol.BannedEvent) error {
	return s.terminate(ReasonBanned, ev.Message)
}

func (s *Session) onRoomExpired(_ context.Context, ev protocol.RoomExpiredEvent) error {
	return s.terminate(ReasonExpired, ev.Message)
}

func (s *Session) onError(_ context.Context, ev protocol.ErrorEvent) error {
	switch ev.Message {
	case ErrUsernameTaken.Error(), ErrInvalidUsername.Error():
		s.roster.CancelRename()
	case ErrHostNotConnected.Error():
		s.share.RequestFailed()
	}
	s.notify(Update{Kind: UpdateWarning, Message: ev.Message})
	return nil
}

func (s *Session) onScreenShareStarted(_ context.Context, ev protocol.ScreenShareStartedEvent) error {
	s.share.Started(ev)
	return nil
}

func (s *Session) onScreenShareStopped(_ context.Context, _ protocol.ScreenShareStoppedEvent) error {
	s.share.Stopped()
	return nil
}

func (s *Session) onScreenShareRequest(_ context.Context, ev protocol.ScreenShareRequestEvent) error {
	s.share.Requested(ev)
	return nil
}

func (s *Session) onScreenSharePermission(_ context.Context, ev protocol.ScreenSharePermissionEvent) error {
	s.share.Permission(ev)
	msg := "the host declined your screen share request"
	if ev.Granted {
		msg = "the host allowed you to share your screen"
	}
	s.notify(Update{Kind: UpdateNotice, Message: msg})
	return nil
}

func (s *Session) onInitiateWebRTCPeer(ctx context.Context, ev protocol.InitiateWebRTCPeerEvent) error {
	s.share.InitiatePeer(ctx, ev)
	return nil
}

func (s *Session) onWebRTCOffer(ctx context.Context, ev protocol.WebRTCOfferEvent) error {
	return s.share.Offer(ctx, ev)
}

func (s *Session) onWebRTCAnswer(ctx context.Context, ev protocol.WebRTCAnswerEvent) error {
	return s.share.Answer(ctx, ev)
}

func (s *Session) onWebRTCICECandidate(ctx context.Context, ev protocol.WebRTCICECandidateEvent) error {
	return s.share.Candidate(ctx, ev)
}
