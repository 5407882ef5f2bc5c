package client

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/sharetube/watchparty/internal/domain"
)

type iVideoFetcher interface {
	GetVideos(ctx context.Context, urls []string) ([]domain.VideoItem, error)
}

// MetadataLookup resolves video URLs to display metadata. Items are cached by
// URL, and an answer that arrives after a newer lookup started is discarded
// with ErrStaleResult.
type MetadataLookup struct {
	fetcher    iVideoFetcher
	cache      *lru.Cache
	mu         sync.Mutex
	generation uint64
}

func NewMetadataLookup(fetcher iVideoFetcher, cacheSize int) (*MetadataLookup, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	return &MetadataLookup{fetcher: fetcher, cache: cache}, nil
}

// Lookup returns one item per url, in order.
func (m *MetadataLookup) Lookup(ctx context.Context, urls []string) ([]domain.VideoItem, error) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	items := make([]domain.VideoItem, len(urls))
	var missing []string
	for i, u := range urls {
		if cached, ok := m.cache.Get(u); ok {
			items[i] = cached.(domain.VideoItem)
			continue
		}
		missing = append(missing, u)
	}

	if len(missing) > 0 {
		fetched, err := m.fetcher.GetVideos(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, item := range fetched {
			m.cache.Add(item.VideoURL, item)
		}
		for i, u := range urls {
			if items[i].VideoURL != "" {
				continue
			}
			if cached, ok := m.cache.Get(u); ok {
				items[i] = cached.(domain.VideoItem)
			} else {
				items[i] = domain.VideoItem{VideoURL: u, Title: u}
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return nil, ErrStaleResult
	}

	return items, nil
}
