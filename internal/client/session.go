package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

type iChannel interface {
	Emit(ctx context.Context, ev protocol.ClientEvent) error
	SetUsername(username string)
}

type SessionConfig struct {
	RoomID      string
	UserID      string
	Username    string
	Clock       clock.Clock
	Player      Player
	PeerFactory PeerFactory
	EventBuffer int
}

type UpdateKind string

const (
	UpdateEvent   UpdateKind = "event"
	UpdateNotice  UpdateKind = "notice"
	UpdateWarning UpdateKind = "warning"
)

// Update tells a UI that state changed. Event is set for applied server
// events, Message for notices and warnings.
type Update struct {
	Kind    UpdateKind
	Event   protocol.ServerEvent
	Message string
}

type eventHandler func(ctx context.Context, ev protocol.ServerEvent) error

// on adapts a typed handler to the dispatch table.
func on[T protocol.ServerEvent](fn func(ctx context.Context, ev T) error) eventHandler {
	return func(ctx context.Context, ev protocol.ServerEvent) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", ev, ev.EventType())
		}
		return fn(ctx, typed)
	}
}

// Session is one user's participation in a room. Server events go in through
// Handle; user actions go out through its methods.
type Session struct {
	cfg      SessionConfig
	channel  iChannel
	logger   *slog.Logger
	roster   *Roster
	playback *Playback
	playlist *Playlist
	chat     *ChatLog
	share    *ScreenShare
	events   chan Update
	handlers map[string]eventHandler

	mu         sync.Mutex
	socketID   string
	terminated *TerminatedError
}

func NewSession(cfg SessionConfig, channel iChannel, logger *slog.Logger) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Player == nil {
		cfg.Player = NewVirtualPlayer(cfg.Clock)
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	s := &Session{
		cfg:      cfg,
		channel:  channel,
		logger:   logger,
		roster:   NewRoster(cfg.UserID),
		playback: NewPlayback(cfg.RoomID, cfg.Player, channel, cfg.Clock),
		playlist: NewPlaylist(cfg.RoomID, channel, cfg.Clock, logger),
		chat:     NewChatLog(cfg.RoomID, channel, cfg.Clock),
		share:    NewScreenShare(cfg.RoomID, channel, cfg.PeerFactory, logger),
		events:   make(chan Update, cfg.EventBuffer),
	}
	s.handlers = map[string]eventHandler{
		protocol.EventConnected:             on(s.onConnected),
		protocol.EventMembersUpdate:         on(s.onMembersUpdate),
		protocol.EventChatMessage:           on(s.onChatMessage),
		protocol.EventHistoryUpdate:         on(s.onHistoryUpdate),
		protocol.EventVideoUpdate:           on(s.onVideoUpdate),
		protocol.EventPlaylistUpdate:        on(s.onPlaylistUpdate),
		protocol.EventSyncPlayerState:       on(s.onSyncPlayerState),
		protocol.EventInitialState:          on(s.onInitialState),
		protocol.EventGetControllerState:    on(s.onGetControllerState),
		protocol.EventKicked:                on(s.onKicked),
		protocol.EventBanned:                on(s.onBanned),
		protocol.EventRoomExpired:           on(s.onRoomExpired),
		protocol.EventError:                 on(s.onError),
		protocol.EventScreenShareStarted:    on(s.onScreenShareStarted),
		protocol.EventScreenShareStopped:    on(s.onScreenShareStopped),
		protocol.EventScreenShareRequest:    on(s.onScreenShareRequest),
		protocol.EventScreenSharePermission: on(s.onScreenSharePermission),
		protocol.EventInitiateWebRTCPeer:    on(s.onInitiateWebRTCPeer),
		protocol.EventWebRTCOffer:           on(s.onWebRTCOffer),
		protocol.EventWebRTCAnswer:          on(s.onWebRTCAnswer),
		protocol.EventWebRTCICECandidate:    on(s.onWebRTCICECandidate),
	}

	return s
}

// Events streams updates for a UI. Updates are dropped while the buffer is
// full.
func (s *Session) Events() <-chan Update {
	return s.events
}

// Seed loads the REST snapshot taken before connecting.
func (s *Session) Seed(room domain.Room, history []domain.ChatMessage) {
	s.playlist.SetQueue(room.Queue)
	s.playlist.SetHistory(room.History)
	s.chat.Seed(history)
	if room.VideoURL != "" {
		s.playback.VideoChanged(room.VideoURL)
	}
}

// Handle applies one server event. It matches HandlerFunc.
func (s *Session) Handle(ctx context.Context, ev protocol.ServerEvent) error {
	if err := s.Terminated(); err != nil {
		return err
	}

	handler, ok := s.handlers[ev.EventType()]
	if !ok {
		return fmt.Errorf("no handler for %s", ev.EventType())
	}
	if err := handler(ctx, ev); err != nil {
		return err
	}

	s.notify(Update{Kind: UpdateEvent, Event: ev})
	return nil
}

func (s *Session) notify(u Update) {
	select {
	case s.events <- u:
	default:
		s.logger.Debug("dropping session update", "kind", u.Kind)
	}
}

func (s *Session) warn(err error) error {
	s.notify(Update{Kind: UpdateWarning, Message: err.Error()})
	return err
}

func (s *Session) Terminated() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated == nil {
		return nil
	}
	return s.terminated
}

func (s *Session) terminate(reason, message string) error {
	s.share.Close()
	s.playlist.CancelAdvance()

	s.mu.Lock()
	s.terminated = &TerminatedError{Reason: reason, Message: message}
	err := s.terminated
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateWarning, Message: err.Error()})
	return err
}

func (s *Session) SocketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.socketID
}

// Close drops local media state. The channel is closed by its owner.
func (s *Session) Close() {
	s.share.Close()
	s.playlist.CancelAdvance()
}

func (s *Session) Roster() *Roster           { return s.roster }
func (s *Session) Playback() *Playback       { return s.playback }
func (s *Session) Playlist() *Playlist       { return s.playlist }
func (s *Session) Chat() *ChatLog            { return s.chat }
func (s *Session) ScreenShare() *ScreenShare { return s.share }

func (s *Session) self() domain.Member {
	if m, ok := s.roster.Self(); ok {
		return m
	}
	return domain.Member{UserID: s.cfg.UserID, Username: s.cfg.Username, Role: domain.RoleParticipant}
}
