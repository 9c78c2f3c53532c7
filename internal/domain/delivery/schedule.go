// internal/domain/delivery/schedule.go
package delivery

import (
	"fmt"
	"time"
)

// DeliveryDate is one slot of a generated schedule.
type DeliveryDate struct {
	Date            time.Time
	SequenceIndex   int // 1-based
	IsSundayShifted bool
}

// GenerateSchedule expands a subscription cadence into exactly total delivery
// dates starting at baseline. Daily plans advance one calendar day per slot,
// every other frequency advances two. Each candidate is moved off Sunday on its
// own; when that shift lands on the day the next candidate would use, the
// progression moves on a day so dates stay strictly increasing.
//
// A non-positive total yields an empty schedule; a total above MaxDeliveries
// is ErrInvalidBound.
func GenerateSchedule(baseline time.Time, frequency Frequency, total int) ([]DeliveryDate, error) {
	step, err := frequency.stepDays()
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return []DeliveryDate{}, nil
	}
	if total > MaxDeliveries {
		return nil, fmt.Errorf("%w: total=%d exceeds %d", ErrInvalidBound, total, MaxDeliveries)
	}

	dates := make([]DeliveryDate, 0, total)
	candidate := baseline
	var last time.Time
	for len(dates) < total {
		date, shifted := AvoidSunday(candidate)
		if len(dates) > 0 && !date.After(last) {
			candidate = AddDays(candidate, 1)
			continue
		}
		dates = append(dates, DeliveryDate{
			Date:            date,
			SequenceIndex:   len(dates) + 1,
			IsSundayShifted: shifted,
		})
		last = date
		candidate = AddDays(candidate, step)
	}
	return dates, nil
}
