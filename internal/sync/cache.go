// File path: internal/sync/cache.go
package sync

// CacheResult is what a prior remote lookup established about an
// entity: whether it exists, its current parent, and any roles read
// back from it.
type CacheResult struct {
	Exists bool
	Parent string
	Roles  []string
}

// RunCache memoizes remote existence checks for the life of one run so
// repeated references to the same entity cost one lookup. It is
// additive: entries are never evicted before the run ends.
type RunCache struct {
	entries map[string]map[string]CacheResult
	checked map[string]map[string]struct{}
}

// NewRunCache returns an empty cache.
func NewRunCache() *RunCache {
	return &RunCache{
		entries: make(map[string]map[string]CacheResult),
		checked: make(map[string]map[string]struct{}),
	}
}

// Lookup returns the cached result for an entity key, if one was
// recorded this run.
func (c *RunCache) Lookup(entity, key string) (CacheResult, bool) {
	if c == nil {
		return CacheResult{}, false
	}
	result, ok := c.entries[entity][key]
	return result, ok
}

// Record stores the outcome of a remote lookup or write.
func (c *RunCache) Record(entity, key string, result CacheResult) {
	if c == nil {
		return
	}
	if c.entries[entity] == nil {
		c.entries[entity] = make(map[string]CacheResult)
	}
	c.entries[entity][key] = result
}

// Checked reports whether once-per-run work for the key has already
// happened.
func (c *RunCache) Checked(entity, key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.checked[entity][key]
	return ok
}

// MarkChecked records that once-per-run work for the key is done.
func (c *RunCache) MarkChecked(entity, key string) {
	if c == nil {
		return
	}
	if c.checked[entity] == nil {
		c.checked[entity] = make(map[string]struct{})
	}
	c.checked[entity][key] = struct{}{}
}
