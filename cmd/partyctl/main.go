package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sharetube/watchparty/internal/client"
	"github.com/sharetube/watchparty/internal/protocol"
)

var rootCmd = &cobra.Command{
	Use:           "partyctl",
	Short:         "Join a watch party from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room and join it as host",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join an existing room",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

var (
	flagServerURL    string
	flagIdentityPath string
	flagUsername     string
	flagVerbose      bool
	flagRoomName     string
	flagDuration     time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server", envOr("WATCHPARTY_SERVER", "http://localhost:8080"), "watch party server URL (env WATCHPARTY_SERVER)")
	flags.StringVar(&flagIdentityPath, "identity", "", "identity file (defaults to the user config directory)")
	flags.StringVar(&flagUsername, "name", "", "username to join with; remembered for next time")
	flags.BoolVar(&flagVerbose, "verbose", false, "log connection details")

	createCmd.Flags().StringVar(&flagRoomName, "room-name", "", "room name, no spaces (defaults to the username)")
	createCmd.Flags().DurationVar(&flagDuration, "duration", 0, "room lifetime, rounded to minutes (server default if zero)")

	rootCmd.AddCommand(createCmd, joinCmd)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("partyctl")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// identity resolves who we are: the stored user id and the username from
// --name or the identity file.
func identity() (*client.IdentityStore, string, string, error) {
	path := flagIdentityPath
	if path == "" {
		var err error
		if path, err = client.DefaultIdentityPath(); err != nil {
			return nil, "", "", fmt.Errorf("failed to resolve identity path: %w", err)
		}
	}

	store, err := client.NewIdentityStore(path)
	if err != nil {
		return nil, "", "", err
	}

	userID, err := store.UserID()
	if err != nil {
		return nil, "", "", err
	}

	username := flagUsername
	if username == "" {
		username = store.Username()
	} else if err := store.SetUsername(username); err != nil {
		return nil, "", "", err
	}
	if username == "" {
		return nil, "", "", fmt.Errorf("no username stored, pass --name")
	}

	return store, userID, username, nil
}

func newAPI() *client.API {
	return client.NewAPI(flagServerURL, &http.Client{Timeout: 15 * time.Second})
}

func runCreate(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, userID, username, err := identity()
	if err != nil {
		return err
	}

	roomName := flagRoomName
	if roomName == "" {
		roomName = strings.Join(strings.Fields(username), "")
	}

	api := newAPI()
	resp, err := api.CreateRoom(ctx, protocol.CreateRoomRequest{
		HostID:   userID,
		Username: username,
		RoomName: roomName,
		Duration: int(flagDuration.Minutes()),
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	log.Info().Str("room", resp.Room.RoomID).Time("expires", resp.Room.ExpiresAt).Msg("room created")

	return runParty(ctx, api, store, resp, userID, username)
}

func runJoin(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, userID, username, err := identity()
	if err != nil {
		return err
	}

	api := newAPI()
	resp, err := api.JoinRoom(ctx, args[0], protocol.JoinRoomRequest{UserID: userID, Username: username})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return runParty(ctx, api, store, resp, userID, username)
}

func libLogger() *slog.Logger {
	if !flagVerbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
