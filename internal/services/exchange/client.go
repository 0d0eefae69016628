// Package exchange implements the wire clients for the three Chinese
// exchange disclosure services. Each client speaks its source's bespoke
// protocol (JSONP envelopes, multi-field form posts, JSON POST bodies) and
// paginates until the source signals no more data.
package exchange

import (
	"context"
	"time"

	"github.com/liuyingduo/stock-news/internal/models"
)

// Client fetches raw notices from one disclosure source.
type Client interface {
	// Name returns the source label used on persisted events.
	Name() string

	// FetchAll paginates through every page in the window. Page-1 failures
	// yield an empty list, not an error; failures on later pages end the
	// pagination and the partial results are returned.
	FetchAll(ctx context.Context, window models.DateWindow) ([]models.Notice, error)
}

// publishTimeFormats is the ordered list tried when parsing a source's
// publish timestamp. Total failure falls back to the query date.
var publishTimeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
	"2006/01/02",
}

// parsePublishTime tries each known layout in order, falling back to def.
func parsePublishTime(s string, def time.Time) time.Time {
	for _, layout := range publishTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return def
}

// resolveURL prefixes relative paths with the source's static host.
func resolveURL(base, path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '/' {
		return base + path
	}
	return path
}
