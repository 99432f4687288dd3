package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUProvider is an in-process Provider bounded to a fixed number of entries.
type LRUProvider struct {
	entries *lru.Cache[string, []byte]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewLRUProvider creates a cache holding at most size entries.
func NewLRUProvider(size int) (*LRUProvider, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LRUProvider{entries: entries}, nil
}

// Get returns a copy of the cached value or ErrCacheMiss.
func (p *LRUProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := p.entries.Get(key)
	if !ok {
		p.misses.Add(1)
		return nil, ErrCacheMiss
	}
	p.hits.Add(1)
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value, evicting the least recently used entry when full.
func (p *LRUProvider) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.entries.Add(key, append([]byte(nil), value...))
	return nil
}

// Len returns the number of cached entries.
func (p *LRUProvider) Len() int {
	return p.entries.Len()
}

// Stats returns hit and miss counters.
func (p *LRUProvider) Stats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}

// Close drops all entries.
func (p *LRUProvider) Close() error {
	p.entries.Purge()
	return nil
}
