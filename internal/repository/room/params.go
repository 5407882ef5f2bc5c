package room

import (
	"time"

	"github.com/sharetube/watchparty/internal/domain"
)

type CreateRoomParams struct {
	RoomID    string
	Name      string
	HostID    string
	HostName  string
	Duration  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

type SetUserParams struct {
	RoomID   string
	UserID   string
	Username string
}

type AddToPlaylistParams struct {
	RoomID   string
	VideoURL string
	Limit    int
}

type RemoveFromPlaylistParams struct {
	RoomID   string
	VideoURL string
}

type MovePlaylistItemParams struct {
	RoomID    string
	VideoURL  string
	Direction domain.Direction
}

type ChangeVideoParams struct {
	RoomID    string
	VideoURL  string
	UpdatedAt time.Time
}

// AdvancePlaylistParams selects the next video. With Shuffle set the
// queue index is floor(Pick * len(queue)), Pick in [0, 1).
type AdvancePlaylistParams struct {
	RoomID    string
	Shuffle   bool
	Pick      float64
	UpdatedAt time.Time
}

type SetPlayerParams struct {
	RoomID    string
	Time      float64
	Status    int
	UpdatedAt time.Time
}

type AddMessageParams struct {
	RoomID string
	Data   []byte
	Limit  int
}

type GetMessagesParams struct {
	RoomID string
	Before int64
	Limit  int
}
