// Package content resolves the full textual body behind a notice's detail
// URL. Two strategies exist: a paged document-code API and structural HTML
// extraction. Failures degrade to empty content so the caller can fall back
// to the notice title.
package content

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
)

// Resolver fetches the textual body for one detail URL. Empty string on any
// failure, never an error.
type Resolver interface {
	Resolve(ctx context.Context, detailURL string) string
}

// BatchResolver runs a Resolver over many URLs with a bounded worker pool.
// URLs are deduplicated first so notices sharing a detail page cost one
// fetch, with the result fanned out through the returned map.
type BatchResolver struct {
	resolver      Resolver
	maxConcurrent int
	logger        arbor.ILogger
}

// NewBatchResolver creates a bounded batch resolver
func NewBatchResolver(resolver Resolver, cfg common.ContentConfig, logger arbor.ILogger) *BatchResolver {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 20
	}
	return &BatchResolver{
		resolver:      resolver,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// ResolveBatch resolves every URL in the slice and returns a map keyed by
// URL. Duplicate and empty entries are collapsed before fetching; every
// non-empty input URL has an entry in the result, empty-valued when
// resolution failed.
func (b *BatchResolver) ResolveBatch(ctx context.Context, urls []string) map[string]string {
	unique := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	results := make(map[string]string, len(unique))
	if len(unique) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, b.maxConcurrent)

	for _, u := range unique {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(detailURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			text := b.resolver.Resolve(ctx, detailURL)

			mu.Lock()
			results[detailURL] = text
			mu.Unlock()
		}(u)
	}

	wg.Wait()

	resolved := 0
	for _, text := range results {
		if text != "" {
			resolved++
		}
	}
	b.logger.Info().
		Int("urls", len(unique)).
		Int("resolved", resolved).
		Msg("Resolved notice content batch")

	return results
}
