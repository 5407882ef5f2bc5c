package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/internal/service/video"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/randstr"
	"github.com/sharetube/watchparty/pkg/redisclient"
	"github.com/sharetube/watchparty/pkg/tracing"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

const (
	serviceName      = "watchparty"
	generatedSecretN = 48
	pingInterval     = 30 * time.Second
	pongWait         = 70 * time.Second
)

type AppConfig struct {
	Secret              string        `json:"-"`
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	LogLevel            string        `json:"log_level"`
	Environment         string        `json:"environment"`
	MembersLimit        int           `json:"members_limit"`
	PlaylistLimit       int           `json:"playlist_limit"`
	ChatHistoryLimit    int           `json:"chat_history_limit"`
	DefaultRoomDuration time.Duration `json:"default_room_duration"`
	MaxRoomDuration     time.Duration `json:"max_room_duration"`
	ExpirySweepSpec     string        `json:"expiry_sweep_spec"`
	MetadataCacheSize   int           `json:"metadata_cache_size"`
	WSRateLimit         float64       `json:"ws_rate_limit"`
	WSRateBurst         int           `json:"ws_rate_burst"`
	RedisHost           string        `json:"redis_host"`
	RedisPort           int           `json:"redis_port"`
	RedisPassword       string        `json:"-"`
	OTLPEndpoint        string        `json:"otlp_endpoint"`
}

func (cfg *AppConfig) Validate() error {
	var errs []error
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535"))
	}
	if cfg.MembersLimit < 1 {
		errs = append(errs, fmt.Errorf("members limit must be greater than 0"))
	}
	if cfg.PlaylistLimit < 1 {
		errs = append(errs, fmt.Errorf("playlist limit must be greater than 0"))
	}
	if cfg.ChatHistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("chat history limit must be greater than 0"))
	}
	if cfg.DefaultRoomDuration < time.Minute {
		errs = append(errs, fmt.Errorf("default room duration must be at least a minute"))
	}
	if cfg.MaxRoomDuration < cfg.DefaultRoomDuration {
		errs = append(errs, fmt.Errorf("max room duration must not be less than the default"))
	}
	if _, err := cron.ParseStandard(cfg.ExpirySweepSpec); err != nil {
		errs = append(errs, fmt.Errorf("invalid expiry sweep spec: %w", err))
	}
	if cfg.MetadataCacheSize < 1 {
		errs = append(errs, fmt.Errorf("metadata cache size must be greater than 0"))
	}
	if cfg.WSRateLimit <= 0 || cfg.WSRateBurst < 1 {
		errs = append(errs, fmt.Errorf("websocket rate limit and burst must be positive"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %w", err))
	}

	return errors.Join(errs...)
}

type iController interface {
	GetMux() http.Handler
	SweepExpiredRooms(ctx context.Context)
}

type components struct {
	controller iController
	rc         *redis.Client
}

// newComponents wires repositories, services and the controller.
func newComponents(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (*components, error) {
	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	videoData, err := ytvideodata.NewClient(cfg.MetadataCacheSize)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to create video data client: %w", err)
	}

	roomRepo := roomRedis.NewRepo(rc, logger)
	connectionRepo := inmemory.NewRepo(logger)
	roomService := room.NewService(roomRepo, connectionRepo, randstr.New(), &room.Config{
		Secret:              cfg.Secret,
		MembersLimit:        cfg.MembersLimit,
		PlaylistLimit:       cfg.PlaylistLimit,
		ChatHistoryLimit:    cfg.ChatHistoryLimit,
		DefaultRoomDuration: cfg.DefaultRoomDuration,
		MaxRoomDuration:     cfg.MaxRoomDuration,
	}, logger)
	videoService := video.NewService(videoData, logger)

	ctrl := controller.NewController(roomService, videoService, metrics.New(), &controller.Config{
		WSRateLimit:  cfg.WSRateLimit,
		WSRateBurst:  cfg.WSRateBurst,
		PingInterval: pingInterval,
		PongWait:     pongWait,
	}, logger)

	return &components{controller: ctrl, rc: rc}, nil
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	_ = logLevel.UnmarshalText([]byte(strings.ToUpper(level)))

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h)
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.Secret == "" {
		cfg.Secret = randstr.New().Generate(generatedSecretN)
		logger.WarnContext(ctx, "no secret configured, tokens will not survive a restart")
	}

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.WarnContext(ctx, "failed to shut down tracer", "error", err)
		}
	}()

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.rc.Close()

	scheduler := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	if _, err := scheduler.AddFunc(cfg.ExpirySweepSpec, func() {
		c.controller.SweepExpiredRooms(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           c.controller.GetMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "failed to shut down server", "error", err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
