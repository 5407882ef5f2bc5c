package protocol

import "github.com/sharetube/watchparty/internal/domain"

type CreateRoomRequest struct {
	HostID   string `json:"hostId" validate:"required,max=64"`
	Username string `json:"username" validate:"required"`
	RoomName string `json:"roomName" validate:"required"`
	Duration int    `json:"duration,omitempty" validate:"omitempty,min=1"`
}

type JoinRoomRequest struct {
	UserID   string `json:"userId" validate:"required,max=64"`
	Username string `json:"username" validate:"required"`
}

// RoomResponse carries the room snapshot and, on create and join, the
// token used to open the room socket.
type RoomResponse struct {
	Room  domain.Room `json:"room"`
	Token string      `json:"token,omitempty"`
}

type MessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	NextBefore int64                `json:"nextBefore,omitempty"`
}

type VideosRequest struct {
	URLs []string `json:"urls" validate:"required,max=50,dive,required"`
}

type VideosResponse struct {
	Videos []domain.VideoItem `json:"videos"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
