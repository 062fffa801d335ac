// Package cache keeps recent conversion results in memory, keyed by the
// BLAKE3 digest of the source document.
package cache

import (
	"container/list"
	"sync"
)

// Conversion is a cached conversion result.
type Conversion struct {
	Output     string // Fountain text
	Paragraphs int    // Paragraph elements in the source
}

// Stats contains cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Size       int
	MaxSize    int
	TotalBytes int64
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// MaxBytes bounds the total size of cached output (0 = unlimited).
	// The most recent entry is kept even when it alone exceeds the bound.
	MaxBytes int64

	// OnEvict is called, outside the cache lock, for each evicted entry.
	OnEvict func(digest string, conv Conversion)
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:  256,
		MaxBytes: 64 << 20,
	}
}

type entry struct {
	digest string
	conv   Conversion
}

// OutputCache is a thread-safe LRU cache of conversions.
type OutputCache struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	stats   Stats
	bytes   int64
}

// NewOutputCache creates an output cache with the given configuration.
func NewOutputCache(config Config) *OutputCache {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	if config.MaxBytes < 0 {
		config.MaxBytes = 0
	}
	return &OutputCache{
		config:  config,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// NewDefaultOutputCache creates an output cache with DefaultConfig.
func NewDefaultOutputCache() *OutputCache {
	return NewOutputCache(DefaultConfig())
}

// Get retrieves the conversion of the document with the given digest.
func (c *OutputCache) Get(digest string) (Conversion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[digest]
	if !ok {
		c.stats.Misses++
		return Conversion{}, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*entry).conv, true
}

// Put stores a conversion under its source digest, replacing any previous
// conversion of the same document.
func (c *OutputCache) Put(digest string, conv Conversion) {
	c.mu.Lock()
	if el, ok := c.entries[digest]; ok {
		e := el.Value.(*entry)
		c.bytes += int64(len(conv.Output)) - int64(len(e.conv.Output))
		e.conv = conv
		c.order.MoveToFront(el)
	} else {
		c.entries[digest] = c.order.PushFront(&entry{digest: digest, conv: conv})
		c.bytes += int64(len(conv.Output))
	}
	evicted := c.evict()
	c.mu.Unlock()

	if c.config.OnEvict != nil {
		for _, e := range evicted {
			c.config.OnEvict(e.digest, e.conv)
		}
	}
}

// evict drops least recently used entries until the cache is within its
// bounds. The caller holds mu.
func (c *OutputCache) evict() []*entry {
	var evicted []*entry
	for c.order.Len() > 1 && c.over() {
		el := c.order.Back()
		e := el.Value.(*entry)
		c.order.Remove(el)
		delete(c.entries, e.digest)
		c.bytes -= int64(len(e.conv.Output))
		c.stats.Evictions++
		evicted = append(evicted, e)
	}
	return evicted
}

func (c *OutputCache) over() bool {
	if c.config.MaxSize > 0 && c.order.Len() > c.config.MaxSize {
		return true
	}
	return c.config.MaxBytes > 0 && c.bytes > c.config.MaxBytes
}

// Len returns the number of cached conversions.
func (c *OutputCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all conversions. Cleared entries are not counted as
// evictions.
func (c *OutputCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.bytes = 0
}

// Stats returns cache statistics.
func (c *OutputCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.order.Len()
	s.MaxSize = c.config.MaxSize
	s.TotalBytes = c.bytes
	return s
}
