package controller

import (
	"errors"
	"net/http"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/internal/service/video"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

var (
	ErrRateLimited   = errors.New("too many messages, slow down")
	ErrTokenMismatch = errors.New("token does not match this room")
	ErrInternal      = errors.New("something went wrong")
)

type statusError struct {
	err    error
	status int
}

// knownErrors is checked in order; the first match decides both the
// user-facing message and the REST status.
var knownErrors = []statusError{
	{room.ErrRoomNotFound, http.StatusNotFound},
	{room.ErrMemberNotFound, http.StatusNotFound},
	{domain.ErrVideoNotFound, http.StatusNotFound},
	{room.ErrUserBanned, http.StatusForbidden},
	{room.ErrPermissionDenied, http.StatusForbidden},
	{room.ErrNotController, http.StatusForbidden},
	{room.ErrScreenShareNotAllowed, http.StatusForbidden},
	{room.ErrInvalidToken, http.StatusUnauthorized},
	{ErrTokenMismatch, http.StatusUnauthorized},
	{room.ErrNotJoined, http.StatusConflict},
	{room.ErrUsernameTaken, http.StatusConflict},
	{room.ErrMembersLimitReached, http.StatusConflict},
	{room.ErrAlreadyModerator, http.StatusConflict},
	{room.ErrNotModerator, http.StatusConflict},
	{room.ErrNotSharing, http.StatusConflict},
	{room.ErrHostNotConnected, http.StatusConflict},
	{domain.ErrVideoAlreadyExists, http.StatusConflict},
	{domain.ErrPlaylistLimitReached, http.StatusConflict},
	{domain.ErrPlaylistEmpty, http.StatusConflict},
	{connection.ErrScreenShareActive, http.StatusConflict},
	{connection.ErrScreenShareRequestPending, http.StatusConflict},
	{connection.ErrScreenShareRequestMissing, http.StatusConflict},
	{room.ErrInvalidUsername, http.StatusBadRequest},
	{room.ErrInvalidRoomName, http.StatusBadRequest},
	{room.ErrInvalidDuration, http.StatusBadRequest},
	{room.ErrInvalidPlayerState, http.StatusBadRequest},
	{room.ErrEmptyMessage, http.StatusBadRequest},
	{room.ErrMessageTooLong, http.StatusBadRequest},
	{video.ErrInvalidURL, http.StatusBadRequest},
	{wsrouter.ErrInvalidPayload, http.StatusBadRequest},
	{wsrouter.ErrUnknownMessageType, http.StatusBadRequest},
	{ErrRateLimited, http.StatusTooManyRequests},
}

// classify reduces err to its REST status and the sentinel shown to users.
// Unrecognized errors are reported as ErrInternal.
func classify(err error) (int, error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, validationErrs
	}

	for _, known := range knownErrors {
		if errors.Is(err, known.err) {
			return known.status, known.err
		}
	}

	return http.StatusInternalServerError, ErrInternal
}
