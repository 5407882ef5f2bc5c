package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/tracing"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type iRoomService interface {
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) (room.RoomWithTokenResponse, error)
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.RoomWithTokenResponse, error)
	GetMessages(context.Context, *room.GetMessagesParams) (room.GetMessagesResponse, error)
	ParseToken(token string) (*room.Claims, error)
	ExpireRooms(context.Context) ([]room.ExpiredRoom, error)
	// member
	ConnectMember(context.Context, *room.ConnectMemberParams) (room.ConnectMemberResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error)
	MakeModerator(context.Context, *room.UpdateRoleParams) (room.MembersChangedResponse, error)
	RemoveModerator(context.Context, *room.UpdateRoleParams) (room.MembersChangedResponse, error)
	KickUser(context.Context, *room.RemoveUserParams) (room.RemoveUserResponse, error)
	BanUser(context.Context, *room.RemoveUserParams) (room.RemoveUserResponse, error)
	UpdateUsername(context.Context, *room.UpdateUsernameParams) (room.MembersChangedResponse, error)
	// player
	RequestInitialState(context.Context, *room.RequestInitialStateParams) (room.RequestInitialStateResponse, error)
	AnswerControllerState(context.Context, *room.AnswerControllerStateParams) (room.AnswerControllerStateResponse, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) (room.UpdatePlayerStateResponse, error)
	// video
	ChangeVideo(context.Context, *room.ChangeVideoParams) (room.VideoChangedResponse, error)
	PlayNext(context.Context, *room.PlayNextParams) (room.VideoChangedResponse, error)
	AddToPlaylist(context.Context, *room.PlaylistItemParams) (room.PlaylistResponse, error)
	RemovePlaylistItem(context.Context, *room.PlaylistItemParams) (room.PlaylistResponse, error)
	MovePlaylistItem(context.Context, *room.MovePlaylistItemParams) (room.PlaylistResponse, error)
	// chat
	SendChatMessage(context.Context, *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
	// screen share
	StartScreenShare(context.Context, *room.ScreenShareParams) (room.ScreenShareResponse, error)
	StopScreenShare(context.Context, *room.ScreenShareParams) (room.ScreenShareResponse, error)
	RequestScreenShare(context.Context, *room.ScreenShareParams) (room.RequestScreenShareResponse, error)
	RespondScreenShare(context.Context, *room.RespondScreenShareParams) (room.RespondScreenShareResponse, error)
	ResolvePeer(context.Context, *room.ResolvePeerParams) (*connection.Conn, error)
}

type iVideoService interface {
	GetVideos(ctx context.Context, urls []string) []domain.VideoItem
}

type Config struct {
	// WSRateLimit is the sustained number of events per second a socket may send.
	WSRateLimit  float64
	WSRateBurst  int
	PingInterval time.Duration
	PongWait     time.Duration
}

type controller struct {
	roomService  iRoomService
	videoService iVideoService
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	wsmux        *wsrouter.WSRouter
	tracer       trace.Tracer
	logger       *slog.Logger
	wsRateLimit  rate.Limit
	wsRateBurst  int
	pingInterval time.Duration
	pongWait     time.Duration
}

func NewController(roomService iRoomService, videoService iVideoService, m *metrics.Metrics, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:  roomService,
		videoService: videoService,
		metrics:      m,
		validate:     validator.NewValidator(),
		tracer:       tracing.Tracer("github.com/sharetube/watchparty/internal/controller"),
		logger:       logger,
		wsRateLimit:  rate.Limit(cfg.WSRateLimit),
		wsRateBurst:  cfg.WSRateBurst,
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PongWait,
	}
	c.wsmux = c.getWSRouter()

	return c
}
