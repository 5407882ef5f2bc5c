package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/service/room"
)

const maxVideosPerRequest = 50

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateRoomRequest
	if err := c.readJSON(r, &req); err != nil {
		c.writeJSON(w, http.StatusUnprocessableEntity, protocol.ErrorResponse{Message: err.Error()})
		return
	}

	if err := c.validate.Struct(req); err != nil {
		c.writeError(w, r, err)
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		HostID:   req.HostID,
		Username: req.Username,
		RoomName: req.RoomName,
		Duration: req.Duration,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, http.StatusCreated, protocol.RoomResponse{Room: resp.Room, Token: resp.Token})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, http.StatusOK, protocol.RoomResponse{Room: rm})
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req protocol.JoinRoomRequest
	if err := c.readJSON(r, &req); err != nil {
		c.writeJSON(w, http.StatusUnprocessableEntity, protocol.ErrorResponse{Message: err.Error()})
		return
	}

	if err := c.validate.Struct(req); err != nil {
		c.writeError(w, r, err)
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomID:   chi.URLParam(r, "room-id"),
		UserID:   req.UserID,
		Username: req.Username,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, http.StatusOK, protocol.RoomResponse{Room: resp.Room, Token: resp.Token})
}

func (c controller) getMessages(w http.ResponseWriter, r *http.Request) {
	params := room.GetMessagesParams{RoomID: chi.URLParam(r, "room-id")}

	query := r.URL.Query()
	if raw := query.Get("before"); raw != "" {
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || before < 0 {
			c.writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Message: "before must be a non-negative integer"})
			return
		}
		params.Before = before
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Message: "limit must be a positive integer"})
			return
		}
		params.Limit = limit
	}

	resp, err := c.roomService.GetMessages(r.Context(), &params)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, http.StatusOK, protocol.MessagesResponse{
		Messages:   resp.Messages,
		NextBefore: resp.NextBefore,
	})
}

func (c controller) getVideos(w http.ResponseWriter, r *http.Request) {
	urls := r.URL.Query()["url"]
	if len(urls) == 0 || len(urls) > maxVideosPerRequest {
		c.writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{
			Message: "url must be given 1-" + strconv.Itoa(maxVideosPerRequest) + " times",
		})
		return
	}

	c.writeJSON(w, http.StatusOK, protocol.VideosResponse{
		Videos: c.videoService.GetVideos(r.Context(), urls),
	})
}
