package muxer

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the resolution cache when no size is configured.
const DefaultCacheSize = 1024

// ResolutionCache remembers post URL to manifest URL mappings so repeat
// resolutions skip the upstream listing fetch. It is a pure optimization and
// never a source of truth: entries may be evicted at any time, and a miss
// simply forces re-resolution. A nil *ResolutionCache is valid and disables
// caching.
type ResolutionCache struct {
	entries *lru.Cache[string, string]
}

// NewResolutionCache returns a cache holding at most size entries, evicting
// least-recently-used mappings when full. A size <= 0 disables caching by
// returning nil.
func NewResolutionCache(size int) *ResolutionCache {
	if size <= 0 {
		return nil
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil
	}
	return &ResolutionCache{entries: entries}
}

// Get returns the cached manifest URL for postURL, if present.
func (c *ResolutionCache) Get(postURL string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.entries.Get(postURL)
}

// Put records a resolved mapping. Concurrent puts of the same key are
// harmless; last write wins and both carry the same value in practice.
func (c *ResolutionCache) Put(postURL, manifestURL string) {
	if c == nil {
		return
	}
	c.entries.Add(postURL, manifestURL)
}

// Len reports the number of cached resolutions, for metrics.
func (c *ResolutionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
