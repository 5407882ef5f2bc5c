package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
		usage:        "Secret used to sign connect tokens",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	environment = configVar[string]{
		envKey:       "SERVER_ENVIRONMENT",
		flagKey:      "environment",
		defaultValue: "development",
		usage:        "Deployment environment reported with traces",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
		usage:        "Maximum number of connected members in the room",
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 25,
		usage:        "Maximum number of videos in the playlist",
	}
	chatHistoryLimit = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_LIMIT",
		flagKey:      "chat-history-limit",
		defaultValue: 500,
		usage:        "Maximum number of chat messages kept per room",
	}
	defaultRoomDuration = configVar[time.Duration]{
		envKey:       "SERVER_DEFAULT_ROOM_DURATION",
		flagKey:      "default-room-duration",
		defaultValue: 20 * time.Minute,
		usage:        "Room lifetime when the video duration is unknown",
	}
	maxRoomDuration = configVar[time.Duration]{
		envKey:       "SERVER_MAX_ROOM_DURATION",
		flagKey:      "max-room-duration",
		defaultValue: 24 * time.Hour,
		usage:        "Upper bound for a room lifetime",
	}
	expirySweepSpec = configVar[string]{
		envKey:       "SERVER_EXPIRY_SWEEP_SPEC",
		flagKey:      "expiry-sweep-spec",
		defaultValue: "@every 15s",
		usage:        "Cron spec of the expired room sweep",
	}
	metadataCacheSize = configVar[int]{
		envKey:       "SERVER_METADATA_CACHE_SIZE",
		flagKey:      "metadata-cache-size",
		defaultValue: 1024,
		usage:        "Number of cached video metadata entries",
	}
	wsRateLimit = configVar[float64]{
		envKey:       "SERVER_WS_RATE_LIMIT",
		flagKey:      "ws-rate-limit",
		defaultValue: 20,
		usage:        "Websocket events per second allowed per socket",
	}
	wsRateBurst = configVar[int]{
		envKey:       "SERVER_WS_RATE_BURST",
		flagKey:      "ws-rate-burst",
		defaultValue: 40,
		usage:        "Websocket event burst allowed per socket",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	otlpEndpoint = configVar[string]{
		envKey:       "OTEL_EXPORTER_OTLP_ENDPOINT",
		flagKey:      "otlp-endpoint",
		defaultValue: "",
		usage:        "OTLP HTTP endpoint, tracing is disabled when empty",
	}
)

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.String(environment.flagKey, environment.defaultValue, environment.usage)
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, membersLimit.usage)
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, playlistLimit.usage)
	pflag.Int(chatHistoryLimit.flagKey, chatHistoryLimit.defaultValue, chatHistoryLimit.usage)
	pflag.Duration(defaultRoomDuration.flagKey, defaultRoomDuration.defaultValue, defaultRoomDuration.usage)
	pflag.Duration(maxRoomDuration.flagKey, maxRoomDuration.defaultValue, maxRoomDuration.usage)
	pflag.String(expirySweepSpec.flagKey, expirySweepSpec.defaultValue, expirySweepSpec.usage)
	pflag.Int(metadataCacheSize.flagKey, metadataCacheSize.defaultValue, metadataCacheSize.usage)
	pflag.Float64(wsRateLimit.flagKey, wsRateLimit.defaultValue, wsRateLimit.usage)
	pflag.Int(wsRateBurst.flagKey, wsRateBurst.defaultValue, wsRateBurst.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.String(otlpEndpoint.flagKey, otlpEndpoint.defaultValue, otlpEndpoint.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	bind(secret)
	bind(port)
	bind(host)
	bind(logLevel)
	bind(environment)
	bind(membersLimit)
	bind(playlistLimit)
	bind(chatHistoryLimit)
	bind(defaultRoomDuration)
	bind(maxRoomDuration)
	bind(expirySweepSpec)
	bind(metadataCacheSize)
	bind(wsRateLimit)
	bind(wsRateBurst)
	bind(redisPort)
	bind(redisHost)
	bind(redisPassword)
	bind(otlpEndpoint)

	return &app.AppConfig{
		Secret:              viper.GetString(secret.flagKey),
		Host:                viper.GetString(host.flagKey),
		Port:                viper.GetInt(port.flagKey),
		LogLevel:            viper.GetString(logLevel.flagKey),
		Environment:         viper.GetString(environment.flagKey),
		MembersLimit:        viper.GetInt(membersLimit.flagKey),
		PlaylistLimit:       viper.GetInt(playlistLimit.flagKey),
		ChatHistoryLimit:    viper.GetInt(chatHistoryLimit.flagKey),
		DefaultRoomDuration: viper.GetDuration(defaultRoomDuration.flagKey),
		MaxRoomDuration:     viper.GetDuration(maxRoomDuration.flagKey),
		ExpirySweepSpec:     viper.GetString(expirySweepSpec.flagKey),
		MetadataCacheSize:   viper.GetInt(metadataCacheSize.flagKey),
		WSRateLimit:         viper.GetFloat64(wsRateLimit.flagKey),
		WSRateBurst:         viper.GetInt(wsRateBurst.flagKey),
		RedisPort:           viper.GetInt(redisPort.flagKey),
		RedisHost:           viper.GetString(redisHost.flagKey),
		RedisPassword:       viper.GetString(redisPassword.flagKey),
		OTLPEndpoint:        viper.GetString(otlpEndpoint.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
