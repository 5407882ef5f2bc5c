package domain

import (
	"errors"
	"slices"
)

var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrMembersLimitReached = errors.New("members limit reached")
)

type Role string

const (
	RoleHost        Role = "Host"
	RoleModerator   Role = "Moderator"
	RoleParticipant Role = "Participant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleModerator, RoleParticipant:
		return true
	}
	return false
}

// rank orders roles from least to most privileged.
func (r Role) rank() int {
	switch r {
	case RoleHost:
		return 2
	case RoleModerator:
		return 1
	}
	return 0
}

type RoomUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Member is a connected user as seen in the live roster.
type Member struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	SocketID string `json:"socketId"`
}

type Members []Member

func (m Members) Find(userID string) (Member, bool) {
	i := slices.IndexFunc(m, func(member Member) bool { return member.UserID == userID })
	if i < 0 {
		return Member{}, false
	}
	return m[i], true
}

func (m Members) Host() (Member, bool) {
	i := slices.IndexFunc(m, func(member Member) bool { return member.Role == RoleHost })
	if i < 0 {
		return Member{}, false
	}
	return m[i], true
}

// IsHost reports whether userID is the connected host.
func (m Members) IsHost(userID string) bool {
	member, ok := m.Find(userID)
	return ok && member.Role == RoleHost
}

// IsController reports whether userID drives playback. The host controls
// playback whenever connected; otherwise every moderator does.
func (m Members) IsController(userID string) bool {
	member, ok := m.Find(userID)
	if !ok {
		return false
	}
	if _, hostPresent := m.Host(); hostPresent {
		return member.Role == RoleHost
	}
	return member.Role == RoleModerator
}

// SortByRole orders members host first, then moderators, then participants,
// keeping connection order within a role.
func (m Members) SortByRole() {
	slices.SortStableFunc(m, func(a, b Member) int {
		return b.Role.rank() - a.Role.rank()
	})
}

// CanManage reports whether actor may promote, demote, kick or ban target.
// Nobody manages themselves or the host, the host manages everyone else and
// moderators manage participants only.
func CanManage(actor, target Member) bool {
	if actor.UserID == target.UserID || target.Role == RoleHost {
		return false
	}
	switch actor.Role {
	case RoleHost:
		return true
	case RoleModerator:
		return target.Role == RoleParticipant
	}
	return false
}
