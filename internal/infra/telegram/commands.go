package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"juice_subscription_bot/internal/app"
	"juice_subscription_bot/internal/domain/delivery"
	"juice_subscription_bot/internal/domain/subscription"
	idb "juice_subscription_bot/internal/infra/database"
)

const (
	defaultPlanName  = "Fruit Bowl"
	maxListedEntries = 40 // keeps replies under Telegram's message size limit
)

// bound is the parsed months=N / count=N argument.
type bound struct {
	months int
	count  int
}

func parseBound(arg string) (bound, error) {
	key, value, ok := strings.Cut(strings.ToLower(arg), "=")
	if !ok {
		return bound{}, fmt.Errorf("expected months=N or count=N, got %q", arg)
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return bound{}, fmt.Errorf("%q must be a positive number", arg)
	}
	switch key {
	case "months", "m":
		return bound{months: n}, nil
	case "count", "c":
		return bound{count: n}, nil
	default:
		return bound{}, fmt.Errorf("expected months=N or count=N, got %q", arg)
	}
}

// parsePreviewArgs handles `/preview <timestamp> <frequency> <months=N|count=N>`.
// The timestamp may be split in two ("2025-07-16 14:00").
func parsePreviewArgs(args []string, loc *time.Location) (delivery.SchedulingRequest, error) {
	if len(args) == 4 {
		args = append([]string{args[0] + " " + args[1]}, args[2:]...)
	}
	if len(args) != 3 {
		return delivery.SchedulingRequest{}, errors.New("usage: /preview <YYYY-MM-DD HH:MM> <frequency> <months=N|count=N>")
	}

	ref, err := delivery.ParseReferenceTimestamp(args[0], loc)
	if err != nil {
		return delivery.SchedulingRequest{}, err
	}
	freq, err := delivery.ParseFrequency(args[1])
	if err != nil {
		return delivery.SchedulingRequest{}, err
	}
	b, err := parseBound(args[2])
	if err != nil {
		return delivery.SchedulingRequest{}, err
	}
	return delivery.SchedulingRequest{
		ReferenceTimestamp: ref,
		Frequency:          freq,
		DeliveryCount:      b.count,
		DurationMonths:     b.months,
	}, nil
}

// parseSubscribeArgs handles `/subscribe <telegram_id> <name> <frequency> <months=N|count=N> [plan name]`.
func parseSubscribeArgs(args []string) (app.CreateSubscriptionInput, error) {
	if len(args) < 4 {
		return app.CreateSubscriptionInput{}, errors.New("usage: /subscribe <TelegramID> <Name> <frequency> <months=N|count=N> [plan name]")
	}

	customerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return app.CreateSubscriptionInput{}, errors.New("telegram ID must be a number")
	}
	name := strings.TrimSpace(args[1])
	if name == "" {
		return app.CreateSubscriptionInput{}, errors.New("name must not be empty")
	}
	freq, err := delivery.ParseFrequency(args[2])
	if err != nil {
		return app.CreateSubscriptionInput{}, err
	}
	b, err := parseBound(args[3])
	if err != nil {
		return app.CreateSubscriptionInput{}, err
	}

	plan := defaultPlanName
	if len(args) > 4 {
		plan = strings.Join(args[4:], " ")
	}

	return app.CreateSubscriptionInput{
		CustomerTelegramID: customerID,
		CustomerName:       name,
		PlanName:           plan,
		Frequency:          freq,
		DurationMonths:     b.months,
		DeliveryCount:      b.count,
	}, nil
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid ID", args[0])
	}
	return id, nil
}

func formatSchedule(req delivery.SchedulingRequest, dates []delivery.DeliveryDate) string {
	var b strings.Builder
	decision := delivery.ResolveCutoff(req.ReferenceTimestamp)
	fmt.Fprintf(&b, "Reference: %s\n", req.ReferenceTimestamp.Format("2006-01-02 15:04 MST"))
	if decision.IsAfterCutoff {
		b.WriteString("After the 6 PM cutoff: first slot is the day after tomorrow.\n")
	} else {
		b.WriteString("Before the 6 PM cutoff: first slot is tomorrow.\n")
	}
	fmt.Fprintf(&b, "Frequency: %s, deliveries: %d\n\n", req.Frequency, len(dates))
	writeLimited(&b, len(dates), func(i int) string {
		d := dates[i]
		line := fmt.Sprintf("%d. %s", d.SequenceIndex, d.Date.Format(app.DateLayout))
		if d.IsSundayShifted {
			line += " (moved from Sunday)"
		}
		return line
	})
	return b.String()
}

func formatDeliveries(sub *subscription.Subscription, deliveries []*subscription.Delivery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subscription #%d: %s, %s (%s), %s\n", sub.ID, sub.CustomerName, sub.PlanName, sub.Frequency, sub.Status)
	fmt.Fprintf(&b, "Total deliveries: %d\n\n", sub.DeliveryCount)
	if len(deliveries) == 0 {
		b.WriteString("No deliveries on record.")
		return b.String()
	}
	writeLimited(&b, len(deliveries), func(i int) string {
		d := deliveries[i]
		return fmt.Sprintf("#%d  %d. %s  %s", d.ID, d.SequenceIndex, d.DeliveryDate.Format(app.DateLayout), d.Status)
	})
	return b.String()
}

func writeLimited(b *strings.Builder, n int, line func(i int) string) {
	for i := 0; i < n && i < maxListedEntries; i++ {
		b.WriteString(line(i))
		b.WriteString("\n")
	}
	if n > maxListedEntries {
		fmt.Fprintf(b, "... and %d more\n", n-maxListedEntries)
	}
}

// userMessage maps service errors to replies; unknown errors get a generic text.
func userMessage(err error) string {
	if msg, ok := knownErrorMessage(err); ok {
		return msg
	}
	return "Something went wrong. Please try again later."
}

// argumentError is the reply for a command that failed to parse.
func argumentError(err error) string {
	if msg, ok := knownErrorMessage(err); ok {
		return msg
	}
	return "Invalid arguments: " + err.Error()
}

func knownErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, delivery.ErrInvalidFrequency):
		return "Unknown frequency. Use daily, weekly, monthly or customized.", true
	case errors.Is(err, delivery.ErrInvalidBound):
		return fmt.Sprintf("Give exactly one positive bound: months=N (up to %d) or count=N (up to %d).", delivery.MaxDurationMonths, delivery.MaxDeliveries), true
	case errors.Is(err, delivery.ErrInvalidTimestamp):
		return "Could not read the timestamp. Use YYYY-MM-DD HH:MM.", true
	case errors.Is(err, idb.ErrSubscriptionNotFound):
		return "Subscription not found.", true
	case errors.Is(err, idb.ErrDeliveryNotFound):
		return "Delivery not found.", true
	case errors.Is(err, app.ErrSubscriptionNotActive):
		return "Only active subscriptions can be paused.", true
	case errors.Is(err, app.ErrSubscriptionNotPaused):
		return "Only paused subscriptions can be reactivated.", true
	case errors.Is(err, app.ErrDeliveryNotScheduled):
		return "That delivery is no longer scheduled.", true
	case errors.Is(err, app.ErrDeliveryNotOwned):
		return "That delivery is not part of your subscription.", true
	default:
		return "", false
	}
}
