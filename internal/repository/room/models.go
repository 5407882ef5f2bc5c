package room

import "time"

type Room struct {
	Name      string `redis:"name"`
	HostID    string `redis:"host_id"`
	VideoURL  string `redis:"video_url"`
	Duration  int    `redis:"duration"`
	CreatedAt int64  `redis:"created_at"`
	ExpiresAt int64  `redis:"expires_at"`
}

func (r Room) ExpiresAtTime() time.Time {
	return time.Unix(r.ExpiresAt, 0)
}

func (r Room) CreatedAtTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

type Player struct {
	Time      float64 `redis:"time"`
	Status    int     `redis:"status"`
	UpdatedAt int64   `redis:"updated_at"`
}

// State is every persisted part of a room read in one round trip.
type State struct {
	Room       Room
	Users      map[string]string
	Moderators []string
	Banned     []string
	Playlist   []string
	History    []string
	Player     Player
}

type Message struct {
	Seq  int64
	Data string
}

type MessagePage struct {
	Messages   []Message
	NextBefore int64
}

type VideoChange struct {
	VideoURL string
	Previous string
	History  []string
	Playlist []string
}
