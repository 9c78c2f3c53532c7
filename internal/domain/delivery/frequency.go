// internal/domain/delivery/frequency.go
package delivery

import (
	"fmt"
	"strings"
)

// Frequency is the delivery cadence of a subscription plan.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyCustomized Frequency = "customized"
)

// ParseFrequency maps a stored or user supplied literal to a Frequency.
// Only the four known literals are accepted (case and surrounding spaces are ignored).
func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(raw)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustomized:
		return true
	default:
		return false
	}
}

// stepDays returns the calendar distance between consecutive candidates.
func (f Frequency) stepDays() (int, error) {
	switch f {
	case FrequencyDaily:
		return 1, nil
	case FrequencyWeekly, FrequencyMonthly, FrequencyCustomized:
		return 2, nil // one day gap
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
}
