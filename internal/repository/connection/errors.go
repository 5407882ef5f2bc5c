package connection

import "errors"

var (
	ErrNotFound                  = errors.New("connection not found")
	ErrAlreadyExists             = errors.New("connection already exists")
	ErrScreenShareActive         = errors.New("someone is already sharing their screen")
	ErrScreenShareRequestPending = errors.New("a screen share request is already pending")
	ErrScreenShareRequestMissing = errors.New("no pending screen share request")
)
