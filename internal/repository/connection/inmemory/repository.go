package inmemory

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type screenShare struct {
	sharerSocketID string
	pending        map[string]struct{}
	granted        map[string]struct{}
}

type repo struct {
	mu     sync.RWMutex
	conns  map[string]*connection.Conn
	rooms  map[string]map[string]*connection.Conn
	shares map[string]*screenShare
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:  make(map[string]*connection.Conn),
		rooms:  make(map[string]map[string]*connection.Conn),
		shares: make(map[string]*screenShare),
		logger: logger,
	}
}

// Add registers conn as the live connection of its user. A previous
// connection of the same user in the room is unregistered and returned.
func (r *repo) Add(conn *connection.Conn) (*connection.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; ok {
		return nil, connection.ErrAlreadyExists
	}

	members, ok := r.rooms[conn.RoomID]
	if !ok {
		members = make(map[string]*connection.Conn)
		r.rooms[conn.RoomID] = members
	}

	replaced := members[conn.UserID]
	if replaced != nil {
		delete(r.conns, replaced.ID)
		r.logger.Debug("connection replaced", "room_id", conn.RoomID, "user_id", conn.UserID, "old_socket_id", replaced.ID)
	}

	members[conn.UserID] = conn
	r.conns[conn.ID] = conn

	return replaced, nil
}

// Remove unregisters the socket. It reports ErrNotFound when the socket
// was never registered or has been replaced.
func (r *repo) Remove(socketID string) (*connection.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[socketID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.conns, socketID)
	if members := r.rooms[conn.RoomID]; members != nil {
		if members[conn.UserID] == conn {
			delete(members, conn.UserID)
		}
		if len(members) == 0 {
			delete(r.rooms, conn.RoomID)
			delete(r.shares, conn.RoomID)
		}
	}

	return conn, nil
}

func (r *repo) Get(socketID string) (*connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[socketID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetByUser(roomID, userID string) (*connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.rooms[roomID][userID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

// RoomConns lists the live connections of a room in join order.
func (r *repo) RoomConns(roomID string) []*connection.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := maps.Values(r.rooms[roomID])
	slices.SortFunc(conns, func(a, b *connection.Conn) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})

	return conns
}

func (r *repo) RoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := maps.Keys(r.rooms)
	slices.Sort(ids)

	return ids
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

func (r *repo) share(roomID string) *screenShare {
	s, ok := r.shares[roomID]
	if !ok {
		s = &screenShare{
			pending: make(map[string]struct{}),
			granted: make(map[string]struct{}),
		}
		r.shares[roomID] = s
	}

	return s
}

// SetSharer marks socketID as the room's sharer. Only one sharer may exist.
func (r *repo) SetSharer(roomID, socketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.share(roomID)
	if s.sharerSocketID != "" && s.sharerSocketID != socketID {
		return connection.ErrScreenShareActive
	}
	s.sharerSocketID = socketID

	return nil
}

// Sharer returns the live sharer connection of a room.
func (r *repo) Sharer(roomID string) (*connection.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shares[roomID]
	if !ok || s.sharerSocketID == "" {
		return nil, false
	}

	conn, ok := r.conns[s.sharerSocketID]
	return conn, ok
}

// ClearSharer stops the share if socketID is the sharer.
func (r *repo) ClearSharer(roomID, socketID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shares[roomID]
	if !ok || s.sharerSocketID != socketID {
		return false
	}
	s.sharerSocketID = ""

	return true
}

func (r *repo) AddShareRequest(roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.share(roomID)
	if _, ok := s.pending[userID]; ok {
		return connection.ErrScreenShareRequestPending
	}
	s.pending[userID] = struct{}{}

	return nil
}

// ResolveShareRequest consumes a pending request and records the grant.
func (r *repo) ResolveShareRequest(roomID, userID string, granted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.share(roomID)
	if _, ok := s.pending[userID]; !ok {
		return connection.ErrScreenShareRequestMissing
	}
	delete(s.pending, userID)

	if granted {
		s.granted[userID] = struct{}{}
	}

	return nil
}

// ClearShareRequests drops every pending request of a room and returns the
// requesting user ids in sorted order.
func (r *repo) ClearShareRequests(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shares[roomID]
	if !ok || len(s.pending) == 0 {
		return nil
	}
	userIDs := maps.Keys(s.pending)
	slices.Sort(userIDs)
	clear(s.pending)

	return userIDs
}

func (r *repo) IsShareGranted(roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shares[roomID]
	if !ok {
		return false
	}
	_, granted := s.granted[userID]

	return granted
}
