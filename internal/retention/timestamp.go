package retention

import (
	"path"
	"regexp"
	"time"
)

const (
	// Example: 2026-02-18T12-00-00Z
	compactLayout = "2006-01-02T15-04-05Z"
	// Example: 2026-02-18T12-00-00.123Z
	compactMillisLayout = "2006-01-02T15-04-05.000Z"
)

var embeddedTimestamp = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}(?:[.-]\d{3})?Z`)

// ExtractTimestamp returns the timestamp embedded in the basename of key. The
// boolean is false when the key carries no parsable timestamp; a parsed Unix
// epoch is still reported as found.
func ExtractTimestamp(key string) (time.Time, bool) {
	base := path.Base(key)
	if base == "." || base == "/" {
		return time.Time{}, false
	}

	for _, m := range embeddedTimestamp.FindAllString(base, -1) {
		if t, ok := parseCompact(m); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCompact(s string) (time.Time, bool) {
	layout := compactLayout
	if len(s) == len(compactMillisLayout) {
		layout = compactMillisLayout
		// Writers use either '.' or '-' before the milliseconds.
		b := []byte(s)
		b[19] = '.'
		s = string(b)
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
