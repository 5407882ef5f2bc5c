package domain

import (
	"errors"
	"time"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExpired    = errors.New("room expired")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrUserBanned     = errors.New("user is banned")
	ErrInvalidRoomID  = errors.New("invalid room id")
	ErrInvalidName    = errors.New("invalid username")
	ErrInvalidSetting = errors.New("invalid room settings")
)

const (
	DefaultRoomDuration = 20 * time.Minute
	AnonymousIDPrefix   = "anon-"
)

// Room is the REST snapshot of a room.
type Room struct {
	RoomID       string     `json:"roomId"`
	RoomName     string     `json:"roomName"`
	Host         RoomUser   `json:"host"`
	Moderators   []RoomUser `json:"moderators"`
	Participants []RoomUser `json:"participants"`
	VideoURL     string     `json:"videoUrl,omitempty"`
	Queue        []string   `json:"queue"`
	History      []string   `json:"history"`
	BannedUsers  []string   `json:"bannedUsers"`
	Duration     int        `json:"duration"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

func (r Room) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
