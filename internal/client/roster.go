package client

import (
	"slices"
	"strings"
	"sync"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/pkg/validator"
)

// Roster mirrors the last membersUpdate broadcast and derives the local
// user's authority from it.
type Roster struct {
	mu          sync.RWMutex
	self        string
	members     domain.Members
	pendingName string
}

func NewRoster(selfUserID string) *Roster {
	return &Roster{self: selfUserID}
}

// Replace swaps in a new roster wholesale. It reports whether a pending
// rename was confirmed by it.
func (r *Roster) Replace(members []domain.Member) (renamed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members = slices.Clone(members)
	if r.pendingName == "" {
		return false
	}
	if self, ok := r.members.Find(r.self); ok && self.Username == r.pendingName {
		r.pendingName = ""
		return true
	}
	return false
}

func (r *Roster) Members() domain.Members {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.members)
}

func (r *Roster) Self() (domain.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.members.Find(r.self)
}

func (r *Roster) Find(userID string) (domain.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.members.Find(userID)
}

func (r *Roster) IsController() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.members.IsController(r.self)
}

func (r *Roster) IsHost() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.members.IsHost(r.self)
}

// CanManage reports whether the local user may promote, demote, kick or ban
// targetUserID.
func (r *Roster) CanManage(targetUserID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	self, ok := r.members.Find(r.self)
	if !ok {
		return false
	}
	target, ok := r.members.Find(targetUserID)
	if !ok {
		return false
	}
	return domain.CanManage(self, target)
}

// RequestRename validates a new username against the current roster and
// records it as pending. The displayed name only changes once a roster
// broadcast carries it.
func (r *Roster) RequestRename(username string) (string, error) {
	username = strings.TrimSpace(username)
	if !validator.ValidUsername(username) {
		return "", ErrInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.UserID != r.self && m.Username == username {
			return "", ErrUsernameTaken
		}
	}
	r.pendingName = username

	return username, nil
}

// CancelRename drops a pending rename, e.g. after the server rejected it.
func (r *Roster) CancelRename() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pendingName = ""
}

func (r *Roster) PendingRename() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.pendingName
}
