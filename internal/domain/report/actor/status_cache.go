// SPDX-License-Identifier: MIT

package actor

import (
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// CacheEntry is the cached (owner, status) pair for a report. Owner is
// uuid.Nil only transiently; the actor always writes the owner of record.
type CacheEntry struct {
	Owner  uuid.UUID
	Status model.Status
}

// StatusCache is the actor's LRU of report statuses. It is not safe for
// concurrent use; only the actor goroutine touches it.
type StatusCache struct {
	lru       *simplelru.LRU[uuid.UUID, CacheEntry]
	evictions int64
}

// NewStatusCache returns a cache holding at most capacity reports. A
// capacity below one is raised to one.
func NewStatusCache(capacity int) *StatusCache {
	if capacity < 1 {
		capacity = 1
	}
	c := &StatusCache{}
	lru, err := simplelru.NewLRU[uuid.UUID, CacheEntry](capacity, func(uuid.UUID, CacheEntry) {
		c.evictions++
		metrics.StatusCacheEvictions.Inc()
	})
	if err != nil {
		// only a non-positive size fails, which is ruled out above
		panic(err)
	}
	c.lru = lru
	return c
}

// Get returns the entry for id and promotes it.
func (c *StatusCache) Get(id uuid.UUID) (CacheEntry, bool) {
	e, ok := c.lru.Get(id)
	metrics.IncCacheLookup(ok)
	return e, ok
}

// Peek returns the entry without promoting it or counting a lookup.
func (c *StatusCache) Peek(id uuid.UUID) (CacheEntry, bool) {
	return c.lru.Peek(id)
}

// Put inserts or overwrites the entry for id and marks it most recent.
func (c *StatusCache) Put(id, owner uuid.UUID, status model.Status) {
	c.lru.Add(id, CacheEntry{Owner: owner, Status: status})
}

// Len returns the number of cached reports.
func (c *StatusCache) Len() int { return c.lru.Len() }

// Evictions counts entries pushed out to stay within capacity.
func (c *StatusCache) Evictions() int64 { return c.evictions }
