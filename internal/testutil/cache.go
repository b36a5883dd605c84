package testutil

import (
	"context"
	"time"
)

// BrokenCache is a cache.Store whose backend is permanently down:
// every read misses and every write is dropped, silently. It exercises
// the degradation contract end to end.
type BrokenCache struct {
	// Ops counts operations attempted against the dead backend.
	Ops int
}

func (c *BrokenCache) Get(_ context.Context, _ string) ([]byte, bool) {
	c.Ops++
	return nil, false
}

func (c *BrokenCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) {
	c.Ops++
}

func (c *BrokenCache) Delete(_ context.Context, _ string) {
	c.Ops++
}

func (c *BrokenCache) DeleteByPattern(_ context.Context, _ string) (int, error) {
	c.Ops++
	return 0, nil
}
