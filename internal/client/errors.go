// Package client is a headless watch-party participant: it keeps the room
// roster, playback, playlist, chat and screen share in step with the server
// over one realtime channel.
package client

import (
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
)

var (
	ErrNotController    = errors.New("only the playback controller can do that")
	ErrNotPermitted     = errors.New("you are not allowed to do that")
	ErrNotConnected     = errors.New("not connected to the room")
	ErrInvalidUsername  = errors.New("username must be 2-20 characters")
	ErrUsernameTaken    = domain.ErrUsernameTaken
	ErrRequestPending   = errors.New("a screen share request is already pending")
	ErrHostNotConnected = errors.New("the host is not connected")
	ErrNotSharing       = errors.New("not sharing")
	ErrStaleResult      = errors.New("result superseded by a newer request")
	ErrEmptyMessage     = errors.New("message is empty")
)

// TerminatedError ends a session for good: the user was kicked or banned, the
// room expired or another connection took over.
type TerminatedError struct {
	Reason  string
	Message string
}

func (e *TerminatedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session terminated: %s", e.Reason)
	}
	return fmt.Sprintf("session terminated: %s: %s", e.Reason, e.Message)
}

const (
	ReasonKicked   = "kicked"
	ReasonBanned   = "banned"
	ReasonExpired  = "expired"
	ReasonReplaced = "replaced"
)
