package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PreviewCache caches occurrence previews keyed by rule, anchor and sizing
type PreviewCache struct {
	items      *gocache.Cache
	maxEntries int

	// serializes eviction so concurrent Sets do not both purge
	evictMu sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheConfig holds configuration for the preview cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction (0 = unlimited)
	CleanupInterval time.Duration // How often expired entries are purged
}

// DefaultCacheConfig provides sensible defaults for preview caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute, // Cache results for 15 minutes
	MaxEntries:      1000,             // Keep up to 1000 cached results
	CleanupInterval: 5 * time.Minute,  // Cleanup every 5 minutes
}

// NewPreviewCache creates a new preview cache with the given configuration
func NewPreviewCache(config CacheConfig) *PreviewCache {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &PreviewCache{
		items:      gocache.New(ttl, config.CleanupInterval),
		maxEntries: config.MaxEntries,
	}
}

// cacheKey hashes everything the projection depends on. The rule is hashed
// field by field from its Spec so end dates keep their full precision. The
// anchor's location is part of the key because calendar arithmetic happens in it.
func cacheKey(rule Rule, anchor, since time.Time, maxCount, alreadyEmitted int) string {
	spec := rule.Spec()
	hasher := sha256.New()

	fmt.Fprintf(hasher, "%s\x00%d\x00%v\x00%d\x00", spec.Frequency, spec.Interval, spec.DaysOfWeek, spec.DayOfMonth)
	if spec.EndDate != nil {
		hasher.Write([]byte(spec.EndDate.Format(time.RFC3339Nano)))
	}
	hasher.Write([]byte{0})
	if spec.OccurrenceCount != nil {
		hasher.Write([]byte(strconv.Itoa(*spec.OccurrenceCount)))
	}
	hasher.Write([]byte{0})
	hasher.Write([]byte(anchor.Format(time.RFC3339Nano)))
	hasher.Write([]byte(anchor.Location().String()))
	hasher.Write([]byte{0})
	if !since.IsZero() {
		hasher.Write([]byte(since.Format(time.RFC3339Nano)))
	}
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(maxCount)))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(alreadyEmitted)))

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached preview if it exists and hasn't expired. The returned
// slice is a copy.
func (c *PreviewCache) Get(rule Rule, anchor time.Time, maxCount, alreadyEmitted int) ([]time.Time, bool) {
	return c.get(cacheKey(rule, anchor, time.Time{}, maxCount, alreadyEmitted))
}

// Set stores a copy of a preview in the cache
func (c *PreviewCache) Set(rule Rule, anchor time.Time, maxCount, alreadyEmitted int, occurrences []time.Time) {
	c.set(cacheKey(rule, anchor, time.Time{}, maxCount, alreadyEmitted), occurrences)
}

func (c *PreviewCache) get(key string) ([]time.Time, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	occurrences, ok := v.([]time.Time)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return slices.Clone(occurrences), true
}

func (c *PreviewCache) set(key string, occurrences []time.Time) {
	c.items.SetDefault(key, slices.Clone(occurrences))

	if c.maxEntries > 0 && c.items.ItemCount() > c.maxEntries {
		c.evict()
	}
}

// evict drops expired entries, then the entries closest to expiring until the
// cache is back under its limit.
func (c *PreviewCache) evict() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	c.items.DeleteExpired()
	excess := c.items.ItemCount() - c.maxEntries
	if excess <= 0 {
		return
	}

	type keyExpiry struct {
		key       string
		expiresAt int64
	}
	items := c.items.Items()
	byExpiry := make([]keyExpiry, 0, len(items))
	for key, item := range items {
		byExpiry = append(byExpiry, keyExpiry{key: key, expiresAt: item.Expiration})
	}
	slices.SortFunc(byExpiry, func(a, b keyExpiry) int {
		switch {
		case a.expiresAt < b.expiresAt:
			return -1
		case a.expiresAt > b.expiresAt:
			return 1
		}
		return 0
	})

	for i := 0; i < excess && i < len(byExpiry); i++ {
		c.items.Delete(byExpiry[i].key)
	}
}

// Close clears the cache. The janitor goroutine exits once the cache is
// garbage collected.
func (c *PreviewCache) Close() {
	c.items.Flush()
}

// Stats returns cache statistics
func (c *PreviewCache) Stats() CacheStats {
	total := c.items.ItemCount()
	active := len(c.items.Items())

	return CacheStats{
		TotalEntries:   total,
		ExpiredEntries: total - active,
		ActiveEntries:  active,
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int64
	Misses         int64
}
