package awareness

import (
	"context"
	"sync"
	"time"

	"github.com/33prime/aios-req-engine-sub007/metrics"
)

// DefaultTTL bounds snapshot staleness.
const DefaultTTL = 120 * time.Second

// Cache serves snapshots per project with TTL expiry. A hit refreshes only
// the display name in place; a miss rebuilds. Single-flight per project so
// concurrent misses share one rebuild.
type Cache struct {
	builder *Builder
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewCache creates a snapshot cache. A non-positive ttl falls back to
// DefaultTTL.
func NewCache(builder *Builder, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		builder: builder,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
	}
}

// Load returns the current snapshot for a project, rebuilding if the cached
// one expired.
func (c *Cache) Load(ctx context.Context, projectID, projectName string) *Snapshot {
	c.mu.Lock()
	entry, ok := c.entries[projectID]
	if !ok {
		entry = &cacheEntry{}
		c.entries[projectID] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.snap != nil && time.Since(entry.snap.BuiltAt) < c.ttl {
		metrics.SnapshotBuilds.WithLabelValues("hit").Inc()
		if projectName != "" {
			entry.snap.ProjectName = projectName
		}
		return entry.snap
	}

	metrics.SnapshotBuilds.WithLabelValues("miss").Inc()
	entry.snap = c.builder.Build(ctx, projectID, projectName)
	return entry.snap
}

// Invalidate drops the cached snapshot for a project so the next Load
// rebuilds it.
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, projectID)
}
