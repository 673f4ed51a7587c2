package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/logger"
)

// CacheStats counts cache lookups. Values are read atomically and may be mutually out of date.
type CacheStats struct {
	Hits     uint64
	Misses   uint64
	Builds   uint64
	Failures uint64
}

// Cache deduplicates render pipelines by structural Key.
type Cache interface {
	// GetOrCreate returns the pipeline cached under key or builds it. Concurrent callers for
	// the same key wait for a single build; a failed build is not cached and the next call retries.
	//
	// Parameters:
	//   - key: the structural pipeline key
	//   - build: constructs the pipeline, called at most once per successful key
	//
	// Returns:
	//   - Pipeline: the cached or new pipeline
	//   - error: the build error
	GetOrCreate(key Key, build func() (Pipeline, error)) (Pipeline, error)

	// Get returns the pipeline cached under key without building.
	//
	// Parameters:
	//   - key: the structural pipeline key
	//
	// Returns:
	//   - Pipeline: the pipeline, or nil
	//   - bool: true if a built pipeline is cached
	Get(key Key) (Pipeline, bool)

	// Len returns the number of built pipelines.
	Len() int

	// Stats returns the lookup counters.
	Stats() CacheStats

	// Release releases every cached pipeline and empties the cache. It must not run concurrently
	// with GetOrCreate.
	//
	// Returns:
	//   - error: joined release failures, or nil
	Release() error
}

type entry struct {
	once     sync.Once
	ready    atomic.Bool
	pipeline Pipeline
	err      error
}

type cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry

	hits, misses, builds, failures atomic.Uint64
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache.
func NewCache() Cache {
	return &cache{entries: make(map[Key]*entry)}
}

func (c *cache) GetOrCreate(key Key, build func() (Pipeline, error)) (Pipeline, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		if e, ok = c.entries[key]; !ok {
			e = &entry{}
			c.entries[key] = e
		}
		c.mu.Unlock()
	}

	built := false
	e.once.Do(func() {
		built = true
		c.misses.Add(1)
		e.pipeline, e.err = build()
		if e.err != nil {
			c.failures.Add(1)
			return
		}
		c.builds.Add(1)
		e.ready.Store(true)
		logger.Logger().Debug("pipeline: built", "key", key.String())
	})
	if e.err != nil {
		c.mu.Lock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, e.err
	}
	if !built {
		c.hits.Add(1)
	}
	return e.pipeline, nil
}

func (c *cache) Get(key Key) (Pipeline, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !e.ready.Load() {
		return nil, false
	}
	return e.pipeline, true
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if e.ready.Load() {
			n++
		}
	}
	return n
}

func (c *cache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Builds:   c.builds.Load(),
		Failures: c.failures.Load(),
	}
}

func (c *cache) Release() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if e.ready.Load() {
			errs = append(errs, e.pipeline.Release())
		}
	}
	return errors.Join(errs...)
}
