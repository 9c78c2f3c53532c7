// internal/domain/delivery/cutoff.go
package delivery

import "time"

const (
	// CutoffHour is the local hour from which an order misses next-day delivery.
	CutoffHour = 18

	DeliveryStartHour   = 8
	DeliveryStartMinute = 0
)

// CutoffDecision is the outcome of applying the 6 PM cutoff to a reference time.
type CutoffDecision struct {
	IsAfterCutoff bool
	BaselineDate  time.Time
}

// ResolveCutoff picks the first possible delivery day for an order or
// reactivation placed at ref. The result is not corrected for Sundays.
func ResolveCutoff(ref time.Time) CutoffDecision {
	after := ref.Hour() >= CutoffHour
	days := 1
	if after {
		days = 2
	}
	return CutoffDecision{
		IsAfterCutoff: after,
		BaselineDate:  AtHour(AddDays(ref, days), DeliveryStartHour, DeliveryStartMinute),
	}
}
