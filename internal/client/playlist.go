package client

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

// AdvanceGracePeriod is how long an ended video stays up before the next
// queued one is requested.
const AdvanceGracePeriod = 10 * time.Second

// Playlist mirrors the server's queue and history. Local edits are only
// requests; the view changes when the server echoes the new state.
type Playlist struct {
	mu       sync.Mutex
	clock    clock.Clock
	emitter  emitter
	logger   *slog.Logger
	roomID   string
	queue    []string
	history  []string
	mode     domain.AdvanceMode
	timer    *clock.Timer
	deadline time.Time
	// generation invalidates timers that were stopped after they fired.
	generation uint64
}

func NewPlaylist(roomID string, em emitter, clk clock.Clock, logger *slog.Logger) *Playlist {
	return &Playlist{
		clock:   clk,
		emitter: em,
		logger:  logger,
		roomID:  roomID,
		mode:    domain.AdvanceList,
	}
}

func (p *Playlist) SetQueue(queue []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = slices.Clone(queue)
}

func (p *Playlist) SetHistory(history []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = slices.Clone(history)
}

func (p *Playlist) Queue() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.queue)
}

// History is most recently played first.
func (p *Playlist) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.RecentFirst(p.history)
}

func (p *Playlist) Mode() domain.AdvanceMode {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.mode
}

func (p *Playlist) SetMode(mode domain.AdvanceMode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mode = mode
}

func (p *Playlist) Add(ctx context.Context, videoURL string) error {
	return p.emitter.Emit(ctx, protocol.AddToPlaylistPayload{RoomID: p.roomID, VideoURL: videoURL})
}

func (p *Playlist) Remove(ctx context.Context, videoURL string, isController bool) error {
	if !isController {
		return ErrNotController
	}
	return p.emitter.Emit(ctx, protocol.RemovePlaylistItemPayload{RoomID: p.roomID, VideoURL: videoURL})
}

// Move asks to shift videoURL one slot. A move past either end of the queue
// is dropped without emitting.
func (p *Playlist) Move(ctx context.Context, videoURL string, dir domain.Direction, isController bool) (bool, error) {
	if !isController {
		return false, ErrNotController
	}

	p.mu.Lock()
	movable := domain.CanMove(p.queue, videoURL, dir)
	p.mu.Unlock()
	if !movable {
		return false, nil
	}

	err := p.emitter.Emit(ctx, protocol.MovePlaylistItemPayload{RoomID: p.roomID, VideoURL: videoURL, Direction: dir})
	return err == nil, err
}

func (p *Playlist) PlayNext(ctx context.Context, isController bool) error {
	if !isController {
		return ErrNotController
	}

	p.mu.Lock()
	p.cancelLocked()
	mode := p.mode
	p.mu.Unlock()

	return p.emitter.Emit(ctx, protocol.PlayNextInQueuePayload{RoomID: p.roomID, Mode: mode})
}

// ScheduleAdvance arms the grace-period timer after the controller's video
// ended. It reports false when the queue is empty.
func (p *Playlist) ScheduleAdvance(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return false
	}

	p.cancelLocked()
	gen := p.generation
	p.deadline = p.clock.Now().Add(AdvanceGracePeriod)
	p.timer = p.clock.AfterFunc(AdvanceGracePeriod, func() {
		p.fire(context.WithoutCancel(ctx), gen)
	})

	return true
}

// CancelAdvance stops a pending advance.
func (p *Playlist) CancelAdvance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
}

// AdvanceDeadline reports when a pending advance fires.
func (p *Playlist) AdvanceDeadline() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.deadline, p.timer != nil
}

func (p *Playlist) cancelLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.deadline = time.Time{}
	p.generation++
}

func (p *Playlist) fire(ctx context.Context, gen uint64) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.deadline = time.Time{}
	p.generation++
	mode := p.mode
	p.mu.Unlock()

	if err := p.emitter.Emit(ctx, protocol.PlayNextInQueuePayload{RoomID: p.roomID, Mode: mode}); err != nil {
		p.logger.InfoContext(ctx, "failed to request next video", "error", err)
	}
}
