package video

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

var ErrInvalidURL = errors.New("invalid video url")

type Provider string

const (
	ProviderYouTube Provider = "youtube"
	ProviderTwitch  Provider = "twitch"
	ProviderUnknown Provider = "unknown"
)

type iVideoDataClient interface {
	Get(ctx context.Context, videoID string) (*ytvideodata.VideoData, error)
}

type service struct {
	client iVideoDataClient
	logger *slog.Logger
}

func NewService(client iVideoDataClient, logger *slog.Logger) *service {
	return &service{
		client: client,
		logger: logger,
	}
}

// ParseURL extracts the provider and its video (or channel) id from a
// playable url.
func ParseURL(raw string) (Provider, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", ErrInvalidURL
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if id := u.Query().Get("v"); id != "" {
			return ProviderYouTube, id, nil
		}
		if len(segments) == 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live") {
			return ProviderYouTube, segments[1], nil
		}
	case "youtu.be":
		if segments[0] != "" {
			return ProviderYouTube, segments[0], nil
		}
	case "twitch.tv":
		if len(segments) == 2 && segments[0] == "videos" {
			return ProviderTwitch, segments[1], nil
		}
		if len(segments) == 1 && segments[0] != "" {
			return ProviderTwitch, segments[0], nil
		}
	default:
		return ProviderUnknown, "", nil
	}

	return "", "", ErrInvalidURL
}

// GetVideos resolves display metadata for every url, in order. Lookups that
// fail degrade to an item carrying only the url.
func (s service) GetVideos(ctx context.Context, urls []string) []domain.VideoItem {
	videos := make([]domain.VideoItem, 0, len(urls))
	for _, raw := range urls {
		videos = append(videos, s.getVideo(ctx, raw))
	}

	return videos
}

func (s service) getVideo(ctx context.Context, raw string) domain.VideoItem {
	item := domain.VideoItem{VideoURL: raw, Title: raw}

	provider, id, err := ParseURL(raw)
	if err != nil {
		return item
	}
	item.VideoID = id

	switch provider {
	case ProviderYouTube:
		data, err := s.client.Get(ctx, id)
		if err != nil {
			s.logger.InfoContext(ctx, "failed to get video data", "video_id", id, "error", err)
			return item
		}

		item.Title = data.Title
		item.ChannelTitle = data.AuthorName
		item.ThumbnailURL = data.ThumbnailUrl
		item.IsAgeRestricted = !data.Embeddable
	case ProviderTwitch:
		item.Title = id
		item.ChannelTitle = "Twitch"
	}

	return item
}
