package domain

import "math"

// Status mirrors the embedded player's numeric state codes.
type Status int

const (
	StatusUnstarted Status = -1
	StatusEnded     Status = 0
	StatusPlaying   Status = 1
	StatusPaused    Status = 2
	StatusBuffering Status = 3
	StatusCued      Status = 5
)

// DriftTolerance is how far, in seconds, a follower may lag or lead the
// controller before it seeks.
const DriftTolerance = 2.0

func (s Status) Valid() bool {
	switch s {
	case StatusUnstarted, StatusEnded, StatusPlaying, StatusPaused, StatusBuffering, StatusCued:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusUnstarted:
		return "unstarted"
	case StatusEnded:
		return "ended"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusBuffering:
		return "buffering"
	case StatusCued:
		return "cued"
	}
	return "unknown"
}

type PlayerState struct {
	Time   float64 `json:"time"`
	Status Status  `json:"status"`
}

// NeedsSeek reports whether a local position has drifted from the remote one
// by more than DriftTolerance.
func NeedsSeek(local, remote float64) bool {
	return math.Abs(local-remote) > DriftTolerance
}
