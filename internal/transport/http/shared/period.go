package shared

import (
	"net/url"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339. Empty input yields the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if len(value) == len(dateLayout) {
		return time.Parse(dateLayout, value)
	}
	return time.Parse(time.RFC3339, value)
}

// Period reads an optional from/to pair out of the query and records an
// issue for unparsable dates or a reversed range.
func (v *Validator) Period(query url.Values, fromKey, toKey string) (time.Time, time.Time) {
	var from, to time.Time
	if raw := strings.TrimSpace(query.Get(fromKey)); raw != "" {
		from, _ = v.Date(fromKey, raw)
	}
	if raw := strings.TrimSpace(query.Get(toKey)); raw != "" {
		to, _ = v.Date(toKey, raw)
	}
	v.DateOrder(fromKey, from, toKey, to)
	return from, to
}
