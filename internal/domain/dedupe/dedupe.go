// Package dedupe tracks client request IDs so retried submissions are
// recorded once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Deduper records seen request IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a submission that failed after being marked
	// seen can be retried.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of remembered IDs.
	Size() int64
}

// NewInMemoryDeduper returns a Deduper kept in process memory.
// Bounded instances evict the oldest recorded ID once full.
func NewInMemoryDeduper(opts ...Option) Deduper {
	o := options{maxSize: 10_000}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxSize <= 0 {
		return &unboundedDeduper{seen: make(map[string]struct{})}
	}
	cache, err := lru.New[string, struct{}](o.maxSize)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &boundedDeduper{cache: cache}
}

type boundedDeduper struct {
	cache *lru.Cache[string, struct{}]
}

func (d *boundedDeduper) SeenAndRecord(_ context.Context, id string) bool {
	seen, _ := d.cache.ContainsOrAdd(id, struct{}{})
	return seen
}

func (d *boundedDeduper) Unrecord(_ context.Context, id string) {
	d.cache.Remove(id)
}

func (d *boundedDeduper) Size() int64 {
	return int64(d.cache.Len())
}

type unboundedDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *unboundedDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *unboundedDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *unboundedDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
