package domain

import (
	"errors"
	"slices"
)

var (
	ErrVideoNotFound        = errors.New("video not found")
	ErrVideoAlreadyExists   = errors.New("video already in playlist")
	ErrPlaylistLimitReached = errors.New("playlist limit reached")
	ErrPlaylistEmpty        = errors.New("playlist is empty")
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type AdvanceMode string

const (
	AdvanceList    AdvanceMode = "list"
	AdvanceShuffle AdvanceMode = "shuffle"
)

// VideoItem is display metadata for a queued video.
type VideoItem struct {
	VideoID         string `json:"videoId"`
	VideoURL        string `json:"videoUrl"`
	Title           string `json:"title"`
	ChannelTitle    string `json:"channelTitle"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	IsAgeRestricted bool   `json:"isAgeRestricted,omitempty"`
}

// AddItem appends url to the end of the queue. A url already queued is
// rejected with ErrVideoAlreadyExists.
func AddItem(queue []string, url string, limit int) ([]string, error) {
	if slices.Contains(queue, url) {
		return queue, ErrVideoAlreadyExists
	}
	if limit > 0 && len(queue) >= limit {
		return queue, ErrPlaylistLimitReached
	}
	return append(slices.Clone(queue), url), nil
}

// RemoveItem removes the first occurrence of url.
func RemoveItem(queue []string, url string) ([]string, error) {
	i := slices.Index(queue, url)
	if i < 0 {
		return queue, ErrVideoNotFound
	}
	return slices.Delete(slices.Clone(queue), i, i+1), nil
}

// CanMove reports whether url can be shifted one slot in dir.
func CanMove(queue []string, url string, dir Direction) bool {
	i := slices.Index(queue, url)
	switch {
	case i < 0:
		return false
	case dir == DirectionUp:
		return i > 0
	case dir == DirectionDown:
		return i < len(queue)-1
	}
	return false
}

// MoveItem swaps url with its neighbour in dir. Moving past either end
// leaves the queue unchanged and reports false.
func MoveItem(queue []string, url string, dir Direction) ([]string, bool, error) {
	i := slices.Index(queue, url)
	if i < 0 {
		return queue, false, ErrVideoNotFound
	}
	if !CanMove(queue, url, dir) {
		return queue, false, nil
	}
	j := i + 1
	if dir == DirectionUp {
		j = i - 1
	}
	moved := slices.Clone(queue)
	moved[i], moved[j] = moved[j], moved[i]
	return moved, true, nil
}

// RecentFirst returns history with the most recently played url first.
func RecentFirst(history []string) []string {
	reversed := slices.Clone(history)
	slices.Reverse(reversed)
	return reversed
}
