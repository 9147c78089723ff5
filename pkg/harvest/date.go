package harvest

import (
	"strings"
	"time"
)

// dateLayouts are tried in order against whatever date string a source
// exposed: ISO timestamps from structured data, RFC dates from feeds, and
// the textual forms listing pages render.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
}

// ParseWhen normalizes a raw date string to ISO-8601 UTC
// (YYYY-MM-DDTHH:MM:SSZ). The second return is false when nothing parsed;
// callers keep the record regardless, since under-filtering is safer than
// silently losing content.
func ParseWhen(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05Z"), true
		}
	}
	return "", false
}
