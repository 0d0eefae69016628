package classify

import "time"

var dateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
	"2006/01/02",
}

// ParseDate tries each known layout in order and falls back to def when none
// match.
func ParseDate(s string, def time.Time) time.Time {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return def
}
