// internal/domain/delivery/clock.go
package delivery

import (
	"fmt"
	"strings"
	"time"
)

// Clock supplies the reference instant for callers that schedule "from now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Used by tests and admin previews.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseReferenceTimestamp parses an RFC3339 timestamp, or a zone-less local
// timestamp interpreted in loc.
func ParseReferenceTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		if loc != nil {
			t = t.In(loc)
		}
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}
