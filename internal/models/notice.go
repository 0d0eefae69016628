package models

import "time"

// Notice is a raw disclosure record as reported by an exchange, before
// normalization into an Event. Notices live only within a fetch cycle.
type Notice struct {
	Title       string    `json:"title"`
	DetailURL   string    `json:"detail_url"`
	StockCode   string    `json:"stock_code,omitempty"`
	StockName   string    `json:"stock_name,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	// RawType is the source's own category label, preserved verbatim for the
	// per-source classifier.
	RawType string `json:"raw_type"`
	Source  string `json:"source"`
}

// DateWindow bounds a fetch cycle. Both ends are inclusive.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow builds a window covering the last n days up to now.
func NewDateWindow(days int, now time.Time) DateWindow {
	return DateWindow{
		Start: now.AddDate(0, 0, -days),
		End:   now,
	}
}
