package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

// Play reports a local play. Controllers broadcast it, subject to the
// debounce window.
func (s *Session) Play(ctx context.Context) (bool, error) {
	return s.localState(ctx, domain.StatusPlaying)
}

func (s *Session) Pause(ctx context.Context) (bool, error) {
	return s.localState(ctx, domain.StatusPaused)
}

func (s *Session) localState(ctx context.Context, status domain.Status) (bool, error) {
	isController := s.roster.IsController()
	emitted, err := s.playback.LocalStateChange(ctx, status, isController)
	if emitted {
		s.playlist.CancelAdvance()
	}
	return emitted, err
}

// Ended reports that the local player reached the end of the video.
func (s *Session) Ended(ctx context.Context) {
	if !s.playback.LocalEnded(s.roster.IsController()) {
		s.notify(Update{Kind: UpdateNotice, Message: "waiting for the host to play the next video"})
		return
	}
	if s.playlist.ScheduleAdvance(ctx) {
		s.notify(Update{Kind: UpdateNotice, Message: fmt.Sprintf("next video starts in %s", AdvanceGracePeriod)})
	}
}

func (s *Session) ChangeVideo(ctx context.Context, videoURL string) error {
	if !s.roster.IsController() {
		return s.warn(ErrNotController)
	}
	s.playlist.CancelAdvance()
	return s.channel.Emit(ctx, protocol.ChangeVideoPayload{RoomID: s.cfg.RoomID, VideoURL: videoURL})
}

func (s *Session) PlayNext(ctx context.Context) error {
	if err := s.playlist.PlayNext(ctx, s.roster.IsController()); err != nil {
		if errors.Is(err, ErrNotController) {
			return s.warn(err)
		}
		return err
	}
	return nil
}

func (s *Session) AddToPlaylist(ctx context.Context, videoURL string) error {
	return s.playlist.Add(ctx, videoURL)
}

func (s *Session) RemoveFromPlaylist(ctx context.Context, videoURL string) error {
	if err := s.playlist.Remove(ctx, videoURL, s.roster.IsController()); err != nil {
		if errors.Is(err, ErrNotController) {
			return s.warn(err)
		}
		return err
	}
	return nil
}

func (s *Session) MovePlaylistItem(ctx context.Context, videoURL string, dir domain.Direction) (bool, error) {
	moved, err := s.playlist.Move(ctx, videoURL, dir, s.roster.IsController())
	if errors.Is(err, ErrNotController) {
		return false, s.warn(err)
	}
	return moved, err
}

func (s *Session) SetAdvanceMode(mode domain.AdvanceMode) {
	s.playlist.SetMode(mode)
}

func (s *Session) SendChat(ctx context.Context, text string) (domain.ChatMessage, error) {
	return s.chat.Send(ctx, text, nil, s.self())
}

// Reply sends text as a reply to messageID.
func (s *Session) Reply(ctx context.Context, messageID, text string) (domain.ChatMessage, error) {
	ref, ok := s.chat.ReplyRef(messageID)
	if !ok {
		return domain.ChatMessage{}, fmt.Errorf("message %s not found", messageID)
	}
	return s.chat.Send(ctx, text, ref, s.self())
}

func (s *Session) MakeModerator(ctx context.Context, targetUserID string) error {
	if !s.roster.IsHost() {
		return s.warn(ErrNotPermitted)
	}
	return s.channel.Emit(ctx, protocol.MakeModeratorPayload{TargetUser: s.target(targetUserID)})
}

func (s *Session) RemoveModerator(ctx context.Context, targetUserID string) error {
	if !s.roster.IsHost() {
		return s.warn(ErrNotPermitted)
	}
	return s.channel.Emit(ctx, protocol.RemoveModeratorPayload{TargetUser: s.target(targetUserID)})
}

func (s *Session) Kick(ctx context.Context, targetUserID string) error {
	if !s.roster.CanManage(targetUserID) {
		return s.warn(ErrNotPermitted)
	}
	return s.channel.Emit(ctx, protocol.KickUserPayload{TargetUser: s.target(targetUserID)})
}

func (s *Session) Ban(ctx context.Context, targetUserID string) error {
	if !s.roster.CanManage(targetUserID) {
		return s.warn(ErrNotPermitted)
	}
	return s.channel.Emit(ctx, protocol.BanUserPayload{TargetUser: s.target(targetUserID)})
}

func (s *Session) target(userID string) protocol.TargetUser {
	return protocol.TargetUser{RoomID: s.cfg.RoomID, TargetUserID: userID}
}

// Rename asks for a new username. The roster keeps the old name until the
// server confirms the change.
func (s *Session) Rename(ctx context.Context, username string) error {
	username, err := s.roster.RequestRename(username)
	if err != nil {
		return s.warn(err)
	}

	if err := s.channel.Emit(ctx, protocol.UpdateUsernamePayload{
		RoomID:      s.cfg.RoomID,
		UserID:      s.cfg.UserID,
		NewUsername: username,
	}); err != nil {
		s.roster.CancelRename()
		return err
	}
	return nil
}

func (s *Session) StartScreenShare(ctx context.Context) error {
	err := s.share.Start(ctx, s.roster.Members(), s.SocketID(), s.roster.IsHost())
	if errors.Is(err, ErrNotPermitted) {
		return s.warn(err)
	}
	return err
}

func (s *Session) StopScreenShare(ctx context.Context) error {
	return s.share.Stop(ctx)
}

func (s *Session) RequestScreenShare(ctx context.Context) error {
	err := s.share.Request(ctx, s.roster.IsHost())
	if errors.Is(err, ErrRequestPending) {
		return s.warn(err)
	}
	return err
}

func (s *Session) RespondScreenShare(ctx context.Context, requesterID string, accepted bool) error {
	return s.share.Respond(ctx, requesterID, accepted, s.roster.IsHost())
}

// State is a point-in-time view of the whole session.
type State struct {
	SocketID       string
	Members        domain.Members
	IsHost         bool
	IsController   bool
	VideoURL       string
	Player         domain.PlayerState
	WaitingForHost bool
	InputBlocked   bool
	Queue          []string
	History        []string
	AdvanceMode    domain.AdvanceMode
	Messages       []domain.ChatMessage
	ScreenShare    ScreenShareState
}

func (s *Session) Snapshot() State {
	return State{
		SocketID:       s.SocketID(),
		Members:        s.roster.Members(),
		IsHost:         s.roster.IsHost(),
		IsController:   s.roster.IsController(),
		VideoURL:       s.playback.VideoURL(),
		Player:         s.playback.ControllerState(),
		WaitingForHost: s.playback.WaitingForHost(),
		InputBlocked:   s.playback.InputBlocked(),
		Queue:          s.playlist.Queue(),
		History:        s.playlist.History(),
		AdvanceMode:    s.playlist.Mode(),
		Messages:       s.chat.Messages(),
		ScreenShare:    s.share.State(),
	}
}
