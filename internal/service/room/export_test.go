package room

import (
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/room"
)

func roomPlayer(at float64, status domain.Status, updatedAt time.Time) room.Player {
	return room.Player{Time: at, Status: int(status), UpdatedAt: updatedAt.UnixMilli()}
}
