package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/dualstore"
	"github.com/unsentboard/unsent-backend/internal/repository"
	"github.com/unsentboard/unsent-backend/pkg/logger"
)

const persistPrefix = "listing:"

// Query identifies one cacheable listing request. The cache key is the full
// tuple.
type Query struct {
	Page     int
	PageSize int
	Status   string
	Search   string
	OrderBy  string
	Asc      bool
}

// Key serializes the full query tuple
func (q Query) Key() string {
	dir := "desc"
	if q.Asc {
		dir = "asc"
	}
	return fmt.Sprintf("p=%d&size=%d&status=%s&q=%s&order=%s&dir=%s",
		q.Page, q.PageSize, q.Status, q.Search, q.OrderBy, dir)
}

// Page is one served listing page
type Page struct {
	Data       []domain.Memory `json:"data"`
	TotalCount int64           `json:"totalCount"`
	TotalPages int             `json:"totalPages"`
	FromCache  bool            `json:"fromCache,omitempty"`
}

// Source is the read path under the cache (the dual-store gateway)
type Source interface {
	Fetch(ctx context.Context, q dualstore.FetchQuery) ([]domain.Memory, error)
}

// Config tunes cache freshness and size
type Config struct {
	// MaxAge: entries younger than this serve without a backend call.
	MaxAge time.Duration
	// StaleWhileRevalidate: entries older than MaxAge but younger than
	// this serve immediately while a background refetch updates them.
	StaleWhileRevalidate time.Duration
	MaxEntries           int
	PrefetchDepth        int
	// Persist mirrors entries to Redis so a restarted process starts
	// warm. Purely an optimization; correctness holds with it off.
	Persist bool
}

type cacheEntry struct {
	Query     Query     `json:"query"`
	Page      Page      `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache is the paginated, filterable, searchable read path with
// stale-while-revalidate semantics, in-flight deduplication, neighbor
// prefetch and bounded least-recently-updated eviction.
type Cache struct {
	source Source
	cfg    Config
	rdb    *redis.Client

	mu      sync.Mutex
	entries map[string]*cacheEntry

	group singleflight.Group
	now   func() time.Time
	log   zerolog.Logger
}

// NewCache creates a Cache. rdb may be nil; persistence is then disabled.
func NewCache(source Source, cfg Config, rdb *redis.Client) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Second
	}
	if cfg.StaleWhileRevalidate <= cfg.MaxAge {
		cfg.StaleWhileRevalidate = cfg.MaxAge * 10
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 200
	}
	if !cfg.Persist {
		rdb = nil
	}
	return &Cache{
		source:  source,
		cfg:     cfg,
		rdb:     rdb,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
		log:     logger.WithComponent("listing-cache"),
	}
}

// Get serves a listing page, consulting the cache first. Freshness tiers:
// fresh entries serve directly, stale-but-usable entries serve while a
// background refetch runs, expired entries force a synchronous fetch.
func (c *Cache) Get(ctx context.Context, q Query) (Page, error) {
	q = normalize(q)
	key := q.Key()
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		age := now.Sub(e.UpdatedAt)
		switch {
		case age < c.cfg.MaxAge:
			cacheHitsTotal.WithLabelValues("fresh").Inc()
			page := e.Page
			page.FromCache = true
			c.schedulePrefetch(q, page.TotalPages)
			return page, nil
		case age < c.cfg.StaleWhileRevalidate:
			cacheHitsTotal.WithLabelValues("stale").Inc()
			go c.refresh(q)
			page := e.Page
			page.FromCache = true
			c.schedulePrefetch(q, page.TotalPages)
			return page, nil
		}
	}

	cacheMissesTotal.Inc()
	page, err := c.fetchShared(ctx, q)
	if err != nil {
		return Page{}, err
	}
	c.schedulePrefetch(q, page.TotalPages)
	return page, nil
}

// InvalidateAll drops every cache entry
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	c.unpersist(keys)
}

// InvalidateSearch drops only entries whose search term contains term.
// Unrelated cached pages stay servable.
func (c *Cache) InvalidateSearch(term string) {
	c.mu.Lock()
	var keys []string
	for k, e := range c.entries {
		if term == "" || containsFold(e.Query.Search, term) {
			delete(c.entries, k)
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()
	c.unpersist(keys)
}

// Restore loads persisted entries from Redis, dropping anything older than
// the stale threshold. Called once at startup.
func (c *Cache) Restore(ctx context.Context) int {
	if c.rdb == nil {
		return 0
	}
	restored := 0
	iter := c.rdb.Scan(ctx, 0, persistPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := c.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var e cacheEntry
		if json.Unmarshal(data, &e) != nil {
			continue
		}
		if c.now().Sub(e.UpdatedAt) >= c.cfg.StaleWhileRevalidate {
			continue
		}
		c.mu.Lock()
		c.entries[e.Query.Key()] = &e
		c.mu.Unlock()
		restored++
	}
	if restored > 0 {
		c.log.Info().Int("entries", restored).Msg("restored listing cache from redis")
	}
	return restored
}

// fetchShared deduplicates concurrent fetches for the identical key: callers
// share the single pending call rather than issuing duplicate backend reads.
func (c *Cache) fetchShared(ctx context.Context, q Query) (Page, error) {
	v, err, _ := c.group.Do(q.Key(), func() (interface{}, error) {
		return c.fetch(ctx, q)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// fetch reads the full filtered set through the gateway, paginates
// in-process and stores the page.
func (c *Cache) fetch(ctx context.Context, q Query) (Page, error) {
	all, err := c.source.Fetch(ctx, dualstore.FetchQuery{
		Filter: repository.MemoryFilter{Status: q.Status},
		Search: q.Search,
		Asc:    q.Asc,
	})
	if err != nil {
		return Page{}, err
	}

	total := int64(len(all))
	totalPages := int(math.Ceil(float64(total) / float64(q.PageSize)))

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	var data []domain.Memory
	if start < len(all) {
		if end > len(all) {
			end = len(all)
		}
		data = all[start:end]
	} else {
		data = []domain.Memory{}
	}

	page := Page{Data: data, TotalCount: total, TotalPages: totalPages}
	c.store(q, page)
	return page, nil
}

// store records the page unless a fresher entry already exists (a slow
// prefetch must not clobber a newer refresh)
func (c *Cache) store(q Query, page Page) {
	now := c.now()
	key := q.Key()
	e := &cacheEntry{Query: q, Page: page, UpdatedAt: now}

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok && existing.UpdatedAt.After(now) {
		c.mu.Unlock()
		return
	}
	c.entries[key] = e
	c.evictLocked()
	c.mu.Unlock()

	c.persist(key, e)
}

// evictLocked removes least-recently-updated entries past MaxEntries.
// Caller holds c.mu.
func (c *Cache) evictLocked() {
	for len(c.entries) > c.cfg.MaxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.UpdatedAt.Before(oldest) {
				oldestKey = k
				oldest = e.UpdatedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// refresh refetches one key in the background (stale-while-revalidate path)
func (c *Cache) refresh(q Query) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := c.fetchShared(ctx, q); err != nil {
		c.log.Debug().Err(err).Str("key", q.Key()).Msg("background refresh failed")
	}
}

// schedulePrefetch warms the neighboring pages of q so sequential pagination
// stays instant. Prefetches skip keys that are already fresh and never
// overwrite a fresher entry.
func (c *Cache) schedulePrefetch(q Query, totalPages int) {
	if c.cfg.PrefetchDepth <= 0 {
		return
	}
	for d := 1; d <= c.cfg.PrefetchDepth; d++ {
		for _, page := range []int{q.Page - d, q.Page + d} {
			if page < 1 || (totalPages > 0 && page > totalPages) {
				continue
			}
			neighbor := q
			neighbor.Page = page
			if c.isFresh(neighbor.Key()) {
				continue
			}
			go c.refresh(neighbor)
		}
	}
}

func (c *Cache) isFresh(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && c.now().Sub(e.UpdatedAt) < c.cfg.MaxAge
}

func (c *Cache) persist(key string, e *cacheEntry) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rdb.Set(ctx, persistPrefix+key, data, c.cfg.StaleWhileRevalidate).Err(); err != nil {
		c.log.Debug().Err(err).Msg("cache persist failed")
	}
}

func (c *Cache) unpersist(keys []string) {
	if c.rdb == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = persistPrefix + k
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.rdb.Del(ctx, full...).Err()
}

func normalize(q Query) Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	if q.OrderBy == "" {
		q.OrderBy = "created_at"
	}
	return q
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
