package shared

import "time"

const dateOnly = "2006-01-02"

// ParseDate accepts RFC3339 or a bare YYYY-MM-DD date, the two forms clients
// send for cycle timelines and employee start dates. Empty input parses to
// the zero time so optional fields can be passed through unchecked.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(dateOnly, value)
}
