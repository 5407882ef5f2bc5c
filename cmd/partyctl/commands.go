package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sharetube/watchparty/internal/domain"
)

type command struct {
	args string
	help string
	min  int
	run  func(ctx context.Context, c *console, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"play":  {help: "resume playback", run: func(ctx context.Context, c *console, _ []string) error { return c.playPause(ctx, true) }},
		"pause": {help: "pause playback", run: func(ctx context.Context, c *console, _ []string) error { return c.playPause(ctx, false) }},
		"seek": {args: "<seconds>", help: "seek locally; followers catch up on the next play or pause", min: 1, run: func(_ context.Context, c *console, args []string) error {
			seconds, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid position %q", args[0])
			}
			c.player.Seek(seconds)
			return nil
		}},
		"length": {args: "<seconds>", help: "set the current video's length so its end is detected", min: 1, run: func(_ context.Context, c *console, args []string) error {
			seconds, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid length %q", args[0])
			}
			c.player.SetDuration(seconds)
			return nil
		}},
		"video": {args: "<url>", help: "play a video now", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.session.ChangeVideo(ctx, args[0])
		}},
		"add": {args: "<url>", help: "queue a video", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.session.AddToPlaylist(ctx, args[0])
		}},
		"remove": {args: "<url|#>", help: "remove a queued video", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.session.RemoveFromPlaylist(ctx, c.queued(args[0]))
		}},
		"up":   {args: "<url|#>", help: "move a queued video up", min: 1, run: func(ctx context.Context, c *console, args []string) error { return c.move(ctx, args[0], domain.DirectionUp) }},
		"down": {args: "<url|#>", help: "move a queued video down", min: 1, run: func(ctx context.Context, c *console, args []string) error { return c.move(ctx, args[0], domain.DirectionDown) }},
		"next": {help: "skip to the next queued video", run: func(ctx context.Context, c *console, _ []string) error { return c.session.PlayNext(ctx) }},
		"mode": {args: "list|shuffle", help: "how the next video is picked", min: 1, run: func(_ context.Context, c *console, args []string) error {
			mode := domain.AdvanceMode(args[0])
			if mode != domain.AdvanceList && mode != domain.AdvanceShuffle {
				return fmt.Errorf("unknown mode %q", args[0])
			}
			c.session.SetAdvanceMode(mode)
			return nil
		}},
		"queue":   {help: "list queued videos", run: func(ctx context.Context, c *console, _ []string) error { return c.listVideos(ctx, c.session.Playlist().Queue()) }},
		"history": {help: "list played videos, most recent first", run: func(ctx context.Context, c *console, _ []string) error { return c.listVideos(ctx, c.session.Playlist().History()) }},
		"who":     {help: "list members", run: func(_ context.Context, c *console, _ []string) error { c.listMembers(); return nil }},
		"mod": {args: "<user>", help: "make a moderator", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.withUser(args[0], func(id string) error { return c.session.MakeModerator(ctx, id) })
		}},
		"unmod": {args: "<user>", help: "demote a moderator", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.withUser(args[0], func(id string) error { return c.session.RemoveModerator(ctx, id) })
		}},
		"kick": {args: "<user>", help: "remove a member; they may rejoin", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.withUser(args[0], func(id string) error { return c.session.Kick(ctx, id) })
		}},
		"ban": {args: "<user>", help: "remove a member for good", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.withUser(args[0], func(id string) error { return c.session.Ban(ctx, id) })
		}},
		"name": {args: "<username>", help: "change your username", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			username := strings.Join(args, " ")
			if err := c.session.Rename(ctx, username); err != nil {
				return err
			}
			return c.store.SetUsername(strings.TrimSpace(username))
		}},
		"reply": {args: "<message-id> <text>", help: "reply to a message", min: 2, run: func(ctx context.Context, c *console, args []string) error {
			_, err := c.session.Reply(ctx, args[0], strings.Join(args[1:], " "))
			return err
		}},
		"share":     {help: "share your screen", run: func(ctx context.Context, c *console, _ []string) error { return c.session.StartScreenShare(ctx) }},
		"stopshare": {help: "stop sharing your screen", run: func(ctx context.Context, c *console, _ []string) error { return c.session.StopScreenShare(ctx) }},
		"request":   {help: "ask the host to let you share", run: func(ctx context.Context, c *console, _ []string) error { return c.session.RequestScreenShare(ctx) }},
		"allow": {args: "<requester>", help: "let a member share their screen", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.session.RespondScreenShare(ctx, args[0], true)
		}},
		"deny": {args: "<requester>", help: "decline a screen share request", min: 1, run: func(ctx context.Context, c *console, args []string) error {
			return c.session.RespondScreenShare(ctx, args[0], false)
		}},
		"state": {help: "show playback and share state", run: func(_ context.Context, c *console, _ []string) error { c.printState(); return nil }},
		"help":  {help: "show this list", run: func(_ context.Context, c *console, _ []string) error { c.printHelp(); return nil }},
		"quit":  {help: "leave the room", run: func(context.Context, *console, []string) error { return errQuit }},
	}
}

// exec runs a slash command or sends the line as a chat message.
func (c *console) exec(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		_, err := c.session.SendChat(ctx, line)
		return err
	}

	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return fmt.Errorf("unknown command, try /help")
	}
	if len(fields)-1 < cmd.min {
		return fmt.Errorf("usage: /%s %s", fields[0], cmd.args)
	}
	return cmd.run(ctx, c, fields[1:])
}

func (c *console) playPause(ctx context.Context, play bool) error {
	var (
		emitted bool
		err     error
	)
	if play {
		emitted, err = c.session.Play(ctx)
	} else {
		emitted, err = c.session.Pause(ctx)
	}
	if err != nil {
		return err
	}
	if !emitted && c.session.Roster().IsController() {
		log.Debug().Msg("state change not broadcast")
	}
	return nil
}

// queued accepts either a url or a 1-based queue position.
func (c *console) queued(arg string) string {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg
	}
	queue := c.session.Playlist().Queue()
	if n < 1 || n > len(queue) {
		return arg
	}
	return queue[n-1]
}

func (c *console) move(ctx context.Context, arg string, dir domain.Direction) error {
	moved, err := c.session.MovePlaylistItem(ctx, c.queued(arg), dir)
	if err != nil {
		return err
	}
	if !moved {
		log.Info().Msgf("cannot move %s", dir)
	}
	return nil
}

// withUser resolves a username or user id from the roster.
func (c *console) withUser(arg string, fn func(userID string) error) error {
	for _, m := range c.session.Roster().Members() {
		if m.UserID == arg || m.Username == arg {
			return fn(m.UserID)
		}
	}
	return fmt.Errorf("no member %q", arg)
}

func (c *console) listVideos(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		fmt.Fprintln(c.out, "(empty)")
		return nil
	}
	items, err := c.videos.Lookup(ctx, urls)
	if err != nil {
		return err
	}
	for i, item := range items {
		fmt.Fprintf(c.out, "%2d. %s  %s\n", i+1, item.Title, item.VideoURL)
	}
	return nil
}

func (c *console) listMembers() {
	self, _ := c.session.Roster().Self()
	for _, m := range c.session.Roster().Members() {
		marker := " "
		if m.UserID == self.UserID {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %-20s %-12s %s\n", marker, m.Username, m.Role, m.UserID)
	}
}

func (c *console) printState() {
	state := c.session.Snapshot()
	fmt.Fprintf(c.out, "video:      %s\n", state.VideoURL)
	fmt.Fprintf(c.out, "player:     %s at %.1fs\n", state.Player.Status, state.Player.Time)
	fmt.Fprintf(c.out, "controller: %t (host: %t)\n", state.IsController, state.IsHost)
	fmt.Fprintf(c.out, "queue:      %d videos, %s mode\n", len(state.Queue), state.AdvanceMode)
	if state.WaitingForHost {
		fmt.Fprintln(c.out, "waiting for the host to pick the next video")
	}
	share := state.ScreenShare
	switch {
	case share.Sharing:
		fmt.Fprintf(c.out, "sharing to %d viewers\n", len(share.Peers))
	case share.Viewing:
		fmt.Fprintf(c.out, "watching %s's screen\n", c.nameOf(share.SharerID))
	}
}

func (c *console) printHelp() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.out, "type a line to chat, or:")
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(c.out, "  /%-10s %-22s %s\n", name, cmd.args, cmd.help)
	}
}
