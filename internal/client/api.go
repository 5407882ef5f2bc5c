package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

// APIError is a non-2xx answer from the room API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is lets callers match API failures against the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == domain.ErrRoomNotFound
	case http.StatusForbidden:
		return target == domain.ErrUserBanned
	case http.StatusConflict:
		return target == domain.ErrUsernameTaken && strings.Contains(e.Message, domain.ErrUsernameTaken.Error())
	}
	return false
}

// API fetches room snapshots, chat history and video metadata over REST.
type API struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (a *API) CreateRoom(ctx context.Context, req protocol.CreateRoomRequest) (*protocol.RoomResponse, error) {
	var resp protocol.RoomResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/rooms", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &resp, nil
}

func (a *API) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var resp protocol.RoomResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/rooms/"+url.PathEscape(roomID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &resp.Room, nil
}

func (a *API) JoinRoom(ctx context.Context, roomID string, req protocol.JoinRoomRequest) (*protocol.RoomResponse, error) {
	var resp protocol.RoomResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/rooms/"+url.PathEscape(roomID)+"/join", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}
	return &resp, nil
}

// GetMessages fetches one page of chat history, oldest first. A zero before
// asks for the newest page.
func (a *API) GetMessages(ctx context.Context, roomID string, before int64, limit int) (*protocol.MessagesResponse, error) {
	query := url.Values{}
	if before > 0 {
		query.Set("before", strconv.FormatInt(before, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/v1/rooms/" + url.PathEscape(roomID) + "/messages"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp protocol.MessagesResponse
	if err := a.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return &resp, nil
}

func (a *API) GetVideos(ctx context.Context, urls []string) ([]domain.VideoItem, error) {
	query := url.Values{}
	for _, u := range urls {
		query.Add("url", u)
	}

	var resp protocol.VideosResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/videos?"+query.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get videos: %w", err)
	}
	return resp.Videos, nil
}

// SocketURL is the websocket address of a room for the given connect token.
func (a *API) SocketURL(roomID, token string) (string, error) {
	u, err := url.Parse(a.baseURL + "/api/v1/ws/room/" + url.PathEscape(roomID))
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {token}}.Encode()

	return u.String(), nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp protocol.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
