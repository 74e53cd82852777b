package service

import (
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sakif/hypeshelf/internal/model"
)

// Defaults used when the configured cache size or TTL is not positive.
const (
	DefaultFeedCacheSize = 16
	DefaultFeedCacheTTL  = 5 * time.Second
)

type feedEntry struct {
	items     []model.RecommendationWithUser
	expiresAt time.Time
}

// FeedCache holds recent public-feed snapshots keyed by limit.
//
// Entries expire after ttl and the whole cache is purged by Invalidate, which
// every mutation calls. Each Invalidate also bumps a generation counter: a
// reader takes Generation before querying the store and passes it to Set, and
// Set drops the snapshot if a mutation happened in between. A read that
// overlaps a mutation is therefore never cached.
type FeedCache struct {
	entries *lru.Cache[string, feedEntry]
	ttl     time.Duration
	now     func() time.Time

	mu  sync.Mutex // orders Set against Invalidate
	gen uint64
}

// NewFeedCache creates a cache holding at most size snapshots.
func NewFeedCache(size int, ttl time.Duration) *FeedCache {
	if size <= 0 {
		size = DefaultFeedCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultFeedCacheTTL
	}
	// lru.New only fails for a non-positive size, which is ruled out above.
	entries, _ := lru.New[string, feedEntry](size)
	return &FeedCache{entries: entries, ttl: ttl, now: time.Now}
}

// Get returns a copy of the snapshot for limit if one is present and fresh.
func (c *FeedCache) Get(limit int) ([]model.RecommendationWithUser, bool) {
	if c == nil {
		return nil, false
	}
	key := strconv.Itoa(limit)
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	return cloneFeed(entry.items), true
}

// Generation identifies the current cache epoch. Read it before loading the
// snapshot that will be passed to Set.
func (c *FeedCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Set stores a copy of items under limit if no Invalidate has run since gen
// was read. It reports whether the snapshot was stored.
func (c *FeedCache) Set(limit int, items []model.RecommendationWithUser, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries.Add(strconv.Itoa(limit), feedEntry{
		items:     cloneFeed(items),
		expiresAt: c.now().Add(c.ttl),
	})
	return true
}

// Invalidate drops every snapshot and starts a new generation.
func (c *FeedCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Purge()
}

// Len reports how many snapshots are held, expired ones included.
func (c *FeedCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func cloneFeed(items []model.RecommendationWithUser) []model.RecommendationWithUser {
	out := make([]model.RecommendationWithUser, len(items))
	copy(out, items)
	return out
}
