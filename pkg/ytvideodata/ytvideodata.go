// Package ytvideodata fetches public YouTube video metadata, first through
// oEmbed and then by scraping the watch page when embedding is disabled.
package ytvideodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
)

const (
	DefaultOEmbedURL = "https://www.youtube.com/oembed"
	DefaultPageURL   = "https://www.youtube.com/watch"
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
	// Embeddable is false when the data came from the watch page.
	Embeddable bool `json:"-"`
}

type Client struct {
	http      *http.Client
	oembedURL string
	pageURL   string
	cache     *lru.Cache
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBaseURLs overrides the oEmbed and watch page endpoints.
func WithBaseURLs(oembedURL, pageURL string) Option {
	return func(cl *Client) {
		cl.oembedURL = oembedURL
		cl.pageURL = pageURL
	}
}

// NewClient returns a client caching up to cacheSize lookups.
func NewClient(cacheSize int, opts ...Option) (*Client, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	c := &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		oembedURL: DefaultOEmbedURL,
		pageURL:   DefaultPageURL,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Get(ctx context.Context, videoID string) (*VideoData, error) {
	if cached, ok := c.cache.Get(videoID); ok {
		data := cached.(VideoData)
		return &data, nil
	}

	videoData, err := c.getWithEmbed(ctx, videoID)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	c.cache.Add(videoID, *videoData)
	return videoData, nil
}

func (c *Client) getWithEmbed(ctx context.Context, videoID string) (*VideoData, error) {
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+videoID)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, ErrVideoNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrVideoNotEmbeddable
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result VideoData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode oembed response: %w", err)
	}
	result.Embeddable = true

	return &result, nil
}
