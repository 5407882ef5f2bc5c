package client

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/watchparty/internal/domain"
)

// Player is the local media player the playback engine drives.
type Player interface {
	Load(videoURL string)
	CurrentTime() float64
	Status() domain.Status
	Play()
	Pause()
	Seek(seconds float64)
}

// VirtualPlayer is a clock-driven stand-in for a real player: its position
// advances while playing and stops at the video duration.
type VirtualPlayer struct {
	mu        sync.Mutex
	clock     clock.Clock
	videoURL  string
	duration  float64
	status    domain.Status
	position  float64
	updatedAt time.Time
}

func NewVirtualPlayer(clk clock.Clock) *VirtualPlayer {
	return &VirtualPlayer{clock: clk, status: domain.StatusUnstarted}
}

func (p *VirtualPlayer) Load(videoURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.videoURL = videoURL
	p.status = domain.StatusCued
	p.position = 0
	p.updatedAt = p.clock.Now()
}

// SetDuration bounds playback; zero means unbounded.
func (p *VirtualPlayer) SetDuration(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.duration = seconds
}

func (p *VirtualPlayer) VideoURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoURL
}

func (p *VirtualPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	return p.position
}

func (p *VirtualPlayer) Status() domain.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	return p.status
}

func (p *VirtualPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	p.status = domain.StatusPlaying
}

func (p *VirtualPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	p.status = domain.StatusPaused
}

func (p *VirtualPlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	p.position = max(seconds, 0)
	if p.duration > 0 {
		p.position = min(p.position, p.duration)
	}
}

func (p *VirtualPlayer) advance() {
	now := p.clock.Now()
	if p.status == domain.StatusPlaying {
		p.position += now.Sub(p.updatedAt).Seconds()
		if p.duration > 0 && p.position >= p.duration {
			p.position = p.duration
			p.status = domain.StatusEnded
		}
	}
	p.updatedAt = now
}
