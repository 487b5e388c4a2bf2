package geoip

import (
	"fmt"
	"sync"

	"github.com/viktordanov/golang-lru/simplelru"
)

// locationCache is the cache of lookup results keyed by the numeric IPv4
// address.  A nil location is a valid value and means that the address isn't
// in the database.
type locationCache interface {
	// get returns the cached location for ip and whether it was found.
	get(ip uint32) (l *Location, ok bool)

	// set caches l for ip.
	set(ip uint32, l *Location)

	// clear removes all items from the cache.
	clear()

	// enabled returns true if the cache stores anything.
	enabled() (ok bool)
}

// emptyCache is a [locationCache] that does nothing.
type emptyCache struct{}

// type check
var _ locationCache = emptyCache{}

// get implements the [locationCache] interface for emptyCache.
func (emptyCache) get(_ uint32) (l *Location, ok bool) { return nil, false }

// set implements the [locationCache] interface for emptyCache.
func (emptyCache) set(_ uint32, _ *Location) {}

// clear implements the [locationCache] interface for emptyCache.
func (emptyCache) clear() {}

// enabled implements the [locationCache] interface for emptyCache.
func (emptyCache) enabled() (ok bool) { return false }

// lruCache is a thread-safe, fixed size LRU [locationCache].
type lruCache struct {
	// mu protects cache.
	mu *sync.Mutex

	cache *simplelru.LRU[uint32, *Location]
}

// newLocationCache returns a new cache with the given maximum number of items.
// count must not be negative, zero means no caching.
func newLocationCache(count int) (c locationCache, err error) {
	if count == 0 {
		return emptyCache{}, nil
	}

	lru, err := simplelru.NewLRU[uint32, *Location](count, nil)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}

	return &lruCache{
		mu:    &sync.Mutex{},
		cache: lru,
	}, nil
}

// type check
var _ locationCache = (*lruCache)(nil)

// get implements the [locationCache] interface for *lruCache.
func (c *lruCache) get(ip uint32) (l *Location, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cache.Get(ip)
}

// set implements the [locationCache] interface for *lruCache.
func (c *lruCache) set(ip uint32, l *Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(ip, l)
}

// clear implements the [locationCache] interface for *lruCache.
func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
}

// enabled implements the [locationCache] interface for *lruCache.
func (c *lruCache) enabled() (ok bool) { return true }
