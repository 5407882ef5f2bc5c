package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrTxConflict        = errors.New("too many concurrent updates")
)
