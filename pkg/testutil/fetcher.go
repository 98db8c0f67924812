package testutil

import (
	"context"
	"sync/atomic"

	"github.com/arthur-debert/dopkg/pkg/fetch"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// CountingFetcher wraps a Fetcher and counts Fetch calls
type CountingFetcher struct {
	Fetcher fetch.Fetcher
	calls   atomic.Int64
}

// NewCountingFetcher wraps f
func NewCountingFetcher(f fetch.Fetcher) *CountingFetcher {
	return &CountingFetcher{Fetcher: f}
}

// Fetch implements fetch.Fetcher
func (c *CountingFetcher) Fetch(ctx context.Context, src types.Source) (string, error) {
	c.calls.Add(1)
	return c.Fetcher.Fetch(ctx, src)
}

// Calls returns how many times Fetch was called
func (c *CountingFetcher) Calls() int {
	return int(c.calls.Load())
}
