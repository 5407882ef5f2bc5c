package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog/log"

	"github.com/sharetube/watchparty/internal/client"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

const (
	historyPageSize   = 50
	metadataCacheSize = 256
)

var errQuit = errors.New("quit")

// console ties a session to the terminal.
type console struct {
	session *client.Session
	player  *client.VirtualPlayer
	videos  *client.MetadataLookup
	store   *client.IdentityStore
	out     io.Writer
}

func runParty(ctx context.Context, api *client.API, store *client.IdentityStore, resp *protocol.RoomResponse, userID, username string) error {
	logger := libLogger()
	roomID := resp.Room.RoomID

	socketURL, err := api.SocketURL(roomID, resp.Token)
	if err != nil {
		return err
	}

	channel := client.NewChannel(client.ChannelConfig{
		URL:  socketURL,
		Join: protocol.JoinRoomPayload{RoomID: roomID, UserID: userID, Username: username},
	}, logger)

	peers, err := client.NewPionFactory(client.DefaultICEServers, logger, client.WithTrackHandler(func(track *webrtc.TrackRemote) {
		log.Info().Str("codec", track.Codec().MimeType).Msg("receiving screen share")
	}))
	if err != nil {
		return err
	}

	player := client.NewVirtualPlayer(clock.New())
	session := client.NewSession(client.SessionConfig{
		RoomID:      roomID,
		UserID:      userID,
		Username:    username,
		Player:      player,
		PeerFactory: peers,
	}, channel, logger)

	var history []domain.ChatMessage
	if page, err := api.GetMessages(ctx, roomID, 0, historyPageSize); err != nil {
		log.Warn().Err(err).Msg("failed to load chat history")
	} else {
		history = page.Messages
	}
	session.Seed(resp.Room, history)

	videos, err := client.NewMetadataLookup(api, metadataCacheSize)
	if err != nil {
		return err
	}

	c := &console{session: session, player: player, videos: videos, store: store, out: os.Stdout}
	for _, msg := range session.Chat().Messages() {
		c.printMessage(msg)
	}
	log.Info().Str("room", roomID).Str("name", resp.Room.RoomName).Msg("joined, type /help for commands")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- channel.Run(ctx, session.Handle) }()
	go c.printUpdates(ctx)
	go c.watchPlayer(ctx)

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return c.leave(channel)
		case err := <-done:
			session.Close()
			var terminated *client.TerminatedError
			if errors.As(err, &terminated) {
				log.Warn().Str("reason", terminated.Reason).Msg(terminated.Message)
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				return c.leave(channel)
			}
			if err := c.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return c.leave(channel)
				}
				log.Warn().Err(err).Msg(strings.Fields(line + " ")[0])
			}
		}
	}
}

func (c *console) leave(channel *client.Channel) error {
	c.session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := channel.Close(ctx); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}
	log.Info().Msg("left the room")
	return nil
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lines <- line
			}
		}
	}()
	return lines
}

// watchPlayer reports the end of a video once per video.
func (c *console) watchPlayer(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var reported string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := c.player.VideoURL()
			if c.player.Status() != domain.StatusEnded || current == reported {
				continue
			}
			reported = current
			c.session.Ended(ctx)
		}
	}
}

func (c *console) printUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-c.session.Events():
			switch u.Kind {
			case client.UpdateNotice:
				log.Info().Msg(u.Message)
			case client.UpdateWarning:
				log.Warn().Msg(u.Message)
			case client.UpdateEvent:
				c.printEvent(u.Event)
			}
		}
	}
}

func (c *console) printEvent(ev protocol.ServerEvent) {
	switch ev := ev.(type) {
	case protocol.ConnectedEvent:
		log.Debug().Str("socket", ev.SocketID).Msg("connected")
	case protocol.MembersUpdateEvent:
		names := make([]string, 0, len(ev.Members))
		for _, m := range ev.Members {
			names = append(names, fmt.Sprintf("%s (%s)", m.Username, m.Role))
		}
		log.Info().Msgf("members: %s", strings.Join(names, ", "))
	case protocol.ChatMessageEvent:
		c.printMessage(ev.ChatMessage)
	case protocol.VideoUpdateEvent:
		log.Info().Str("url", ev.VideoURL).Msg("now playing")
	case protocol.PlaylistUpdateEvent:
		log.Info().Int("videos", len(ev.Playlist)).Msg("queue changed")
	case protocol.SyncPlayerStateEvent:
		log.Debug().Stringer("status", ev.Status).Float64("time", ev.Time).Msg("synced")
	case protocol.ScreenShareStartedEvent:
		log.Info().Str("sharer", c.nameOf(ev.SharerID)).Msg("screen share started")
	case protocol.ScreenShareStoppedEvent:
		log.Info().Msg("screen share stopped")
	case protocol.ScreenShareRequestEvent:
		log.Info().Msgf("%s wants to share their screen: /allow %s or /deny %s",
			ev.RequesterUsername, ev.RequesterID, ev.RequesterID)
	}
}

func (c *console) printMessage(msg domain.ChatMessage) {
	at := msg.SentAt.Local().Format("15:04")
	if msg.Type == domain.MessageSystem {
		fmt.Fprintf(c.out, "%s * %s\n", at, msg.Content)
		return
	}
	if msg.ReplyTo != nil {
		fmt.Fprintf(c.out, "%s   > %s: %s\n", at, msg.ReplyTo.SenderName, msg.ReplyTo.Content)
	}
	fmt.Fprintf(c.out, "%s <%s> %s  [%s]\n", at, msg.SenderName, msg.Content, msg.ID)
}

func (c *console) nameOf(userID string) string {
	if m, ok := c.session.Roster().Find(userID); ok {
		return m.Username
	}
	return userID
}
