package client

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

const (
	DebounceWindow = 500 * time.Millisecond
	// ResumeGuard swallows a play that follows a local pause this closely,
	// which is how seeking through a paused video is reported by players.
	ResumeGuard = time.Second
)

type emitter interface {
	Emit(ctx context.Context, ev protocol.ClientEvent) error
}

// emitGate is Idle until an emission opens it and Emitting until the
// debounce window has passed.
type emitGate struct {
	until time.Time
}

func (g *emitGate) emitting(now time.Time) bool {
	return now.Before(g.until)
}

func (g *emitGate) open(now time.Time) {
	g.until = now.Add(DebounceWindow)
}

// Playback runs the controller and follower halves of playback sync for the
// local player.
type Playback struct {
	mu             sync.Mutex
	clock          clock.Clock
	player         Player
	emitter        emitter
	roomID         string
	gate           emitGate
	lastPause      time.Time
	waitingForHost bool
	videoURL       string
}

func NewPlayback(roomID string, player Player, em emitter, clk clock.Clock) *Playback {
	return &Playback{
		clock:   clk,
		player:  player,
		emitter: em,
		roomID:  roomID,
	}
}

// LocalStateChange reports a play or pause made on the local player. Only a
// controller emits, at most once per debounce window.
func (p *Playback) LocalStateChange(ctx context.Context, status domain.Status, isController bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch status {
	case domain.StatusPlaying:
		p.player.Play()
	case domain.StatusPaused:
		p.player.Pause()
	default:
		return false, nil
	}

	if !isController {
		return false, nil
	}

	now := p.clock.Now()
	if status == domain.StatusPaused {
		p.lastPause = now
	}
	if p.gate.emitting(now) {
		return false, nil
	}
	if status == domain.StatusPlaying && now.Sub(p.lastPause) < ResumeGuard {
		return false, nil
	}

	state := domain.PlayerState{Time: p.player.CurrentTime(), Status: status}
	if err := p.emitter.Emit(ctx, protocol.PlayerStateChangePayload{RoomID: p.roomID, State: state}); err != nil {
		return false, err
	}
	p.gate.open(now)

	return true, nil
}

// InputBlocked reports whether an emitted transition is still in flight.
func (p *Playback) InputBlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.gate.emitting(p.clock.Now())
}

// Sync applies a broadcast state on a follower. It reports whether the
// player had to seek.
func (p *Playback) Sync(state domain.PlayerState, isController bool) bool {
	if isController {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.apply(state)
}

// ApplyInitial adopts the room state on join or reconnect, controller or not.
func (p *Playback) ApplyInitial(state protocol.SyncState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state.VideoURL != "" && state.VideoURL != p.videoURL {
		p.load(state.VideoURL)
	}
	return p.apply(state.PlayerState)
}

func (p *Playback) apply(state domain.PlayerState) bool {
	switch state.Status {
	case domain.StatusPlaying:
		p.player.Play()
	case domain.StatusPaused, domain.StatusEnded, domain.StatusCued, domain.StatusUnstarted:
		p.player.Pause()
	}

	if domain.NeedsSeek(p.player.CurrentTime(), state.Time) {
		p.player.Seek(state.Time)
		return true
	}
	return false
}

// ControllerState is the live state a controller reports on request.
func (p *Playback) ControllerState() domain.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.PlayerState{Time: p.player.CurrentTime(), Status: p.player.Status()}
}

// LocalEnded handles the local player reaching the end. A controller gets
// true and decides what plays next; a follower waits for the host.
func (p *Playback) LocalEnded(isController bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isController {
		return true
	}
	p.waitingForHost = true
	return false
}

func (p *Playback) WaitingForHost() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.waitingForHost
}

// VideoChanged loads a newly selected video and clears the waiting state.
func (p *Playback) VideoChanged(videoURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.load(videoURL)
}

func (p *Playback) load(videoURL string) {
	p.videoURL = videoURL
	p.waitingForHost = false
	p.player.Load(videoURL)
}

func (p *Playback) VideoURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoURL
}
