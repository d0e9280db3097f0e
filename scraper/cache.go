package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flight-sniper/models"
	"flight-sniper/utils"
)

// Cache is the small key/value surface the candidate cache needs.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, expiration time.Duration) error
}

type cachedPage struct {
	Blocks []models.CandidateBlock `json:"blocks"`
	Link   string                  `json:"link"`
}

// CachedFetcher serves recently fetched result pages from a cache so that
// repeated scans of the same window inside the TTL do not hit the site again.
type CachedFetcher struct {
	next   Fetcher
	cache  Cache
	ttl    time.Duration
	logger *utils.Logger
}

// NewCachedFetcher wraps next. A zero ttl or nil cache disables caching.
func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, logger *utils.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedFetcher) Open(ctx context.Context) (Session, error) {
	if c.cache == nil || c.ttl <= 0 {
		return c.next.Open(ctx)
	}
	return &cachedSession{parent: c, ctx: ctx}, nil
}

// cachedSession opens the underlying session lazily, on the first cache miss.
type cachedSession struct {
	parent *CachedFetcher
	ctx    context.Context

	mu    sync.Mutex
	inner Session
}

func cacheKey(route models.Route, date time.Time) string {
	return fmt.Sprintf("fs:%s:%s:%s", route.Origin, route.Destination, date.Format(models.DateLayout))
}

func (s *cachedSession) FetchCandidates(ctx context.Context, route models.Route, date time.Time) ([]models.CandidateBlock, string, error) {
	key := cacheKey(route, date)

	if raw, err := s.parent.cache.Get(key); err == nil {
		var page cachedPage
		if err := json.Unmarshal(raw, &page); err == nil {
			s.parent.logger.Debug("[cache] hit %s", key)
			return page.Blocks, page.Link, nil
		}
	}

	inner, err := s.session()
	if err != nil {
		return nil, "", &FetchError{Route: route, Date: date, Fatal: true, Err: err}
	}

	blocks, link, err := inner.FetchCandidates(ctx, route, date)
	if err != nil {
		return nil, link, err
	}

	if raw, err := json.Marshal(cachedPage{Blocks: blocks, Link: link}); err == nil {
		if err := s.parent.cache.Set(key, raw, s.parent.ttl); err != nil {
			s.parent.logger.Warn("[cache] set %s failed: %v", key, err)
		}
	}
	return blocks, link, nil
}

func (s *cachedSession) session() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inner == nil {
		inner, err := s.parent.next.Open(s.ctx)
		if err != nil {
			return nil, err
		}
		s.inner = inner
	}
	return s.inner, nil
}

func (s *cachedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inner == nil {
		return nil
	}
	return s.inner.Close()
}
