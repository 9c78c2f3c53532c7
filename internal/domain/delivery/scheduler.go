// internal/domain/delivery/scheduler.go
package delivery

import (
	"fmt"
	"time"
)

// DaysPerMonth is the month length used to turn a plan duration into a span.
const DaysPerMonth = 30

// Upper bounds on a single schedule. Three years of daily drops covers every plan sold.
const (
	MaxDurationMonths = 36
	MaxDeliveries     = MaxDurationMonths * DaysPerMonth
)

// SchedulingRequest describes what to schedule. Exactly one of DeliveryCount
// and DurationMonths must be set (a zero value means "not supplied").
type SchedulingRequest struct {
	ReferenceTimestamp time.Time
	Frequency          Frequency
	DeliveryCount      int
	DurationMonths     int
}

func (r SchedulingRequest) Validate() error {
	if r.ReferenceTimestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, string(r.Frequency))
	}
	if r.DeliveryCount < 0 || r.DurationMonths < 0 {
		return fmt.Errorf("%w: got count=%d months=%d", ErrInvalidBound, r.DeliveryCount, r.DurationMonths)
	}
	if (r.DeliveryCount > 0) == (r.DurationMonths > 0) {
		return fmt.Errorf("%w: got count=%d months=%d", ErrInvalidBound, r.DeliveryCount, r.DurationMonths)
	}
	if r.DeliveryCount > MaxDeliveries || r.DurationMonths > MaxDurationMonths {
		return fmt.Errorf("%w: at most %d deliveries or %d months, got count=%d months=%d",
			ErrInvalidBound, MaxDeliveries, MaxDurationMonths, r.DeliveryCount, r.DurationMonths)
	}
	return nil
}

// TotalDeliveries converts a plan duration into a delivery count. The span is
// months*DaysPerMonth calendar days from baseline. Daily plans get one delivery
// per non-Sunday day of the span, gap plans one per two-day step.
func TotalDeliveries(baseline time.Time, frequency Frequency, months int) (int, error) {
	if months <= 0 || months > MaxDurationMonths {
		return 0, fmt.Errorf("%w: months=%d", ErrInvalidBound, months)
	}
	step, err := frequency.stepDays()
	if err != nil {
		return 0, err
	}

	span := months * DaysPerMonth
	if step > 1 {
		return (span + step - 1) / step, nil
	}

	total := 0
	for i := 0; i < span; i++ {
		if !IsSunday(AddDays(baseline, i)) {
			total++
		}
	}
	return total, nil
}

// ComputeDeliverySchedule answers "which days will this subscription be
// delivered on" for an order or reactivation placed at ReferenceTimestamp.
// It performs no I/O; callers persist the result.
func ComputeDeliverySchedule(req SchedulingRequest) ([]DeliveryDate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	decision := ResolveCutoff(req.ReferenceTimestamp)
	baseline, shifted := AvoidSunday(decision.BaselineDate)

	total := req.DeliveryCount
	if req.DurationMonths > 0 {
		var err error
		total, err = TotalDeliveries(baseline, req.Frequency, req.DurationMonths)
		if err != nil {
			return nil, err
		}
	}

	dates, err := GenerateSchedule(baseline, req.Frequency, total)
	if err != nil {
		return nil, err
	}
	if shifted && len(dates) > 0 {
		dates[0].IsSundayShifted = true
	}
	return dates, nil
}
