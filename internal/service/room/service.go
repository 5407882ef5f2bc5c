package room

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

var (
	ErrPermissionDenied      = errors.New("permission denied")
	ErrNotController         = errors.New("only the playback controller can do that")
	ErrNotJoined             = errors.New("join the room first")
	ErrRoomNotFound          = domain.ErrRoomNotFound
	ErrMemberNotFound        = domain.ErrMemberNotFound
	ErrMembersLimitReached   = domain.ErrMembersLimitReached
	ErrUsernameTaken         = domain.ErrUsernameTaken
	ErrUserBanned            = domain.ErrUserBanned
	ErrInvalidUsername       = errors.New("username must be 2-20 characters")
	ErrInvalidRoomName       = errors.New("room name must be 1-20 characters without spaces")
	ErrInvalidDuration       = errors.New("invalid room duration")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInvalidPlayerState    = errors.New("invalid player state")
	ErrEmptyMessage          = errors.New("message is empty")
	ErrMessageTooLong        = errors.New("message is too long")
	ErrAlreadyModerator      = errors.New("member is already a moderator")
	ErrNotModerator          = errors.New("member is not a moderator")
	ErrScreenShareNotAllowed = errors.New("screen sharing requires the host's permission")
	ErrNotSharing            = errors.New("you are not sharing your screen")
	ErrHostNotConnected      = errors.New("the host is not connected")
)

const (
	MessageMaxLength     = 500
	replyPreviewLength   = 200
	DefaultMessagesLimit = 50
	MaxMessagesLimit     = 200
)

type iRoomRepo interface {
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoom(ctx context.Context, roomID string) (room.Room, error)
	GetState(ctx context.Context, roomID string) (room.State, error)
	// user
	SetUser(context.Context, *room.SetUserParams) error
	GetUsername(ctx context.Context, roomID, userID string) (string, error)
	IsBanned(ctx context.Context, roomID, userID string) (bool, error)
	AddModerator(ctx context.Context, roomID, userID string) error
	RemoveModerator(ctx context.Context, roomID, userID string) error
	BanUser(ctx context.Context, roomID, userID string) error
	// playlist
	AddToPlaylist(context.Context, *room.AddToPlaylistParams) ([]string, error)
	RemoveFromPlaylist(context.Context, *room.RemoveFromPlaylistParams) ([]string, error)
	MovePlaylistItem(context.Context, *room.MovePlaylistItemParams) ([]string, error)
	// player
	SetPlayer(context.Context, *room.SetPlayerParams) error
	ChangeVideo(context.Context, *room.ChangeVideoParams) (room.VideoChange, error)
	AdvancePlaylist(context.Context, *room.AdvancePlaylistParams) (room.VideoChange, error)
	// chat
	AddMessage(context.Context, *room.AddMessageParams) (int64, error)
	GetMessages(context.Context, *room.GetMessagesParams) (room.MessagePage, error)
}

type iConnRepo interface {
	Add(*connection.Conn) (*connection.Conn, error)
	Remove(socketID string) (*connection.Conn, error)
	Get(socketID string) (*connection.Conn, error)
	GetByUser(roomID, userID string) (*connection.Conn, error)
	RoomConns(roomID string) []*connection.Conn
	RoomIDs() []string
	// screen share
	SetSharer(roomID, socketID string) error
	Sharer(roomID string) (*connection.Conn, bool)
	ClearSharer(roomID, socketID string) bool
	AddShareRequest(roomID, userID string) error
	ResolveShareRequest(roomID, userID string, granted bool) error
	IsShareGranted(roomID, userID string) bool
	ClearShareRequests(roomID string) []string
}

type iGenerator interface {
	Generate(n int) string
}

type Config struct {
	Secret              string
	MembersLimit        int
	PlaylistLimit       int
	ChatHistoryLimit    int
	DefaultRoomDuration time.Duration
	MaxRoomDuration     time.Duration
}

type service struct {
	roomRepo            iRoomRepo
	connRepo            iConnRepo
	generator           iGenerator
	logger              *slog.Logger
	secret              []byte
	membersLimit        int
	playlistLimit       int
	chatHistoryLimit    int
	defaultRoomDuration time.Duration
	maxRoomDuration     time.Duration
	now                 func() time.Time
	pick                func() float64
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, generator iGenerator, cfg *Config, logger *slog.Logger) *service {
	return &service{
		roomRepo:            roomRepo,
		connRepo:            connRepo,
		generator:           generator,
		logger:              logger,
		secret:              []byte(cfg.Secret),
		membersLimit:        cfg.MembersLimit,
		playlistLimit:       cfg.PlaylistLimit,
		chatHistoryLimit:    cfg.ChatHistoryLimit,
		defaultRoomDuration: cfg.DefaultRoomDuration,
		maxRoomDuration:     cfg.MaxRoomDuration,
		now:                 time.Now,
		pick:                rand.Float64,
	}
}
