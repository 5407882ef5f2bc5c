package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/pkg/validator"
)

const maxBodyBytes = 1 << 20

func (c controller) readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func (c controller) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Warn("failed to write response", "error", err)
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, public := classify(err)
	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "error", err)
	}

	resp := protocol.ErrorResponse{Message: public.Error()}

	var validationErrs validator.ValidationErrors
	if errors.As(public, &validationErrs) {
		resp.Errors = make([]protocol.ValidationError, 0, len(validationErrs))
		for _, e := range validationErrs {
			resp.Errors = append(resp.Errors, protocol.ValidationError{
				Field:   e.Field,
				Code:    e.Code,
				Message: e.Message,
			})
		}
	}

	c.writeJSON(w, status, resp)
}

func (c controller) writeToConn(ctx context.Context, conn *connection.Conn, ev protocol.ServerEvent) error {
	env, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	if err := conn.WriteJSON(env); err != nil {
		c.logger.WarnContext(ctx, "failed to write to conn", "socket_id", conn.ID, "type", env.Type, "error", err)
		return fmt.Errorf("failed to write %s: %w", env.Type, err)
	}

	return nil
}

// broadcast writes ev to every conn. A failing socket does not stop the
// fan-out; its read loop will notice and disconnect it.
func (c controller) broadcast(ctx context.Context, conns []*connection.Conn, ev protocol.ServerEvent) error {
	env, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	for _, conn := range conns {
		if err := conn.WriteJSON(env); err != nil {
			c.logger.WarnContext(ctx, "failed to broadcast", "socket_id", conn.ID, "type", env.Type, "error", err)
		}
	}

	return nil
}

func except(conns []*connection.Conn, socketID string) []*connection.Conn {
	others := make([]*connection.Conn, 0, len(conns))
	for _, conn := range conns {
		if conn.ID != socketID {
			others = append(others, conn)
		}
	}

	return others
}
