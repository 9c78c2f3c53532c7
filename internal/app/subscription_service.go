// internal/app/subscription_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"juice_subscription_bot/internal/domain/delivery"
	"juice_subscription_bot/internal/domain/notify"
	"juice_subscription_bot/internal/domain/subscription"
	"juice_subscription_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Application-level errors for subscription workflows
var ErrSubscriptionNotActive = errors.New("subscription is not active")
var ErrSubscriptionNotPaused = errors.New("subscription is not paused")
var ErrDeliveryNotScheduled = errors.New("delivery is not in SCHEDULED state")
var ErrDeliveryNotOwned = errors.New("delivery belongs to another customer")

// DateLayout formats delivery days in every customer and operator message.
const DateLayout = "Mon, 02 Jan 2006"

// CreateSubscriptionInput is what an order handler knows when a plan is bought.
// Exactly one of DurationMonths and DeliveryCount must be set.
type CreateSubscriptionInput struct {
	CustomerTelegramID int64
	CustomerName       string
	PlanName           string
	Frequency          delivery.Frequency
	DurationMonths     int
	DeliveryCount      int
}

type SubscriptionService struct {
	repo     subscription.Repository
	notifier notify.Notifier
	clock    delivery.Clock
	metrics  metrics.Sink
	log      *logrus.Entry
}

func NewSubscriptionService(
	repo subscription.Repository,
	notifier notify.Notifier,
	clock delivery.Clock,
	sink metrics.Sink,
	log *logrus.Entry,
) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		metrics:  sink,
		log:      log,
	}
}

// PreviewSchedule computes a schedule without persisting anything.
func (s *SubscriptionService) PreviewSchedule(ctx context.Context, req delivery.SchedulingRequest) ([]delivery.DeliveryDate, error) {
	return s.computeSchedule(req)
}

// CreateSubscription schedules a new plan from the current instant and stores
// one subscription_deliveries row per scheduled day.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*subscription.Subscription, []*subscription.Delivery, error) {
	logCtx := s.log.WithFields(logrus.Fields{
		"customer_telegram_id": in.CustomerTelegramID,
		"frequency":            in.Frequency,
	})

	dates, err := s.computeSchedule(delivery.SchedulingRequest{
		ReferenceTimestamp: s.clock.Now(),
		Frequency:          in.Frequency,
		DeliveryCount:      in.DeliveryCount,
		DurationMonths:     in.DurationMonths,
	})
	if err != nil {
		logCtx.WithError(err).Warn("Rejected subscription request")
		return nil, nil, err
	}

	sub := &subscription.Subscription{
		CustomerTelegramID: in.CustomerTelegramID,
		CustomerName:       in.CustomerName,
		PlanName:           in.PlanName,
		Frequency:          in.Frequency,
		DurationMonths:     in.DurationMonths,
		DeliveryCount:      len(dates),
		Status:             subscription.StatusActive,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	logCtx = logCtx.WithField("subscription_id", sub.ID)

	deliveries, err := s.persistSchedule(ctx, sub.ID, 0, dates)
	if err != nil {
		logCtx.WithError(err).Error("Failed to persist delivery schedule, cancelling subscription")
		sub.Status = subscription.StatusCancelled
		if errUpdate := s.repo.Update(ctx, sub); errUpdate != nil {
			logCtx.WithError(errUpdate).Error("Failed to cancel subscription after schedule failure")
		}
		return nil, nil, err
	}
	s.metrics.SubscriptionTransition(string(subscription.StatusActive))
	logCtx.WithField("deliveries", len(deliveries)).Info("Subscription created")

	s.sendScheduleConfirmation(ctx, sub, deliveries, "Your subscription is confirmed")
	return sub, deliveries, nil
}

// PauseSubscription stops an active plan and cancels every pending delivery.
func (s *SubscriptionService) PauseSubscription(ctx context.Context, subscriptionID int64) (*subscription.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscription.StatusActive {
		return sub, ErrSubscriptionNotActive
	}

	cancelled, err := s.repo.CancelPendingDeliveries(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel pending deliveries: %w", err)
	}

	sub.Status = subscription.StatusPaused
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to pause subscription: %w", err)
	}
	s.metrics.SubscriptionTransition(string(subscription.StatusPaused))
	s.log.WithFields(logrus.Fields{
		"subscription_id":      sub.ID,
		"cancelled_deliveries": cancelled,
	}).Info("Subscription paused")
	return sub, nil
}

// ReactivateSubscription resumes a paused plan. The deliveries not yet used are
// scheduled afresh from the current instant; old rows are never moved.
func (s *SubscriptionService) ReactivateSubscription(ctx context.Context, subscriptionID int64) (*subscription.Subscription, []*subscription.Delivery, error) {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if sub.Status != subscription.StatusPaused {
		return sub, nil, ErrSubscriptionNotPaused
	}
	logCtx := s.log.WithField("subscription_id", sub.ID)

	if _, err := s.repo.CancelPendingDeliveries(ctx, sub.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to clear pending deliveries: %w", err)
	}
	used, err := s.repo.ListDeliveries(ctx, sub.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list used deliveries: %w", err)
	}
	lastIndex := 0
	for _, d := range used {
		if d.SequenceIndex > lastIndex {
			lastIndex = d.SequenceIndex
		}
	}

	now := s.clock.Now()
	remaining := sub.DeliveryCount - len(used)
	if remaining <= 0 {
		sub.Status = subscription.StatusCompleted
		if err := s.repo.Update(ctx, sub); err != nil {
			return nil, nil, fmt.Errorf("failed to complete subscription: %w", err)
		}
		s.metrics.SubscriptionTransition(string(subscription.StatusCompleted))
		logCtx.Info("Nothing left to deliver, subscription completed instead of reactivated")
		return sub, []*subscription.Delivery{}, nil
	}

	dates, err := s.computeSchedule(delivery.SchedulingRequest{
		ReferenceTimestamp: now,
		Frequency:          sub.Frequency,
		DeliveryCount:      remaining,
	})
	if err != nil {
		return nil, nil, err
	}
	deliveries, err := s.persistSchedule(ctx, sub.ID, lastIndex, dates)
	if err != nil {
		return nil, nil, err
	}

	sub.Status = subscription.StatusActive
	sub.ReactivatedAt = sql.NullTime{Time: now, Valid: true}
	if err := s.repo.Update(ctx, sub); err != nil {
		// The plan stays PAUSED, so the rows just written must not stay SCHEDULED.
		if _, errCancel := s.repo.CancelPendingDeliveries(ctx, sub.ID); errCancel != nil {
			logCtx.WithError(errCancel).Error("Failed to cancel deliveries after reactivation failure")
		}
		return nil, nil, fmt.Errorf("failed to reactivate subscription: %w", err)
	}
	s.metrics.SubscriptionTransition(string(subscription.StatusActive))
	logCtx.WithField("deliveries", len(deliveries)).Info("Subscription reactivated")

	s.sendScheduleConfirmation(ctx, sub, deliveries, "Welcome back! Your subscription is active again")
	return sub, deliveries, nil
}

// MarkDelivered records a completed drop-off and completes the subscription
// once nothing is left scheduled.
func (s *SubscriptionService) MarkDelivered(ctx context.Context, deliveryID int64) (*subscription.Delivery, error) {
	return s.closeDelivery(ctx, deliveryID, subscription.DeliveryDelivered)
}

// SkipDelivery records a drop-off that did not happen. The slot is used up.
func (s *SubscriptionService) SkipDelivery(ctx context.Context, deliveryID int64) (*subscription.Delivery, error) {
	return s.closeDelivery(ctx, deliveryID, subscription.DeliverySkipped)
}

// SkipDeliveryForCustomer lets a customer skip one of their own upcoming deliveries.
func (s *SubscriptionService) SkipDeliveryForCustomer(ctx context.Context, customerTelegramID, deliveryID int64) (*subscription.Delivery, error) {
	d, err := s.repo.GetDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetByID(ctx, d.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerTelegramID != customerTelegramID {
		return nil, ErrDeliveryNotOwned
	}
	return s.closeDelivery(ctx, deliveryID, subscription.DeliverySkipped)
}

// UpcomingForCustomer returns the SCHEDULED deliveries of a customer's active plans.
func (s *SubscriptionService) UpcomingForCustomer(ctx context.Context, customerTelegramID int64) ([]*subscription.Subscription, map[int64][]*subscription.Delivery, error) {
	subs, err := s.repo.ListByCustomer(ctx, customerTelegramID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list customer subscriptions: %w", err)
	}
	active := make([]*subscription.Subscription, 0, len(subs))
	upcoming := make(map[int64][]*subscription.Delivery)
	for _, sub := range subs {
		if sub.Status != subscription.StatusActive {
			continue
		}
		deliveries, err := s.repo.ListDeliveries(ctx, sub.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list deliveries for subscription %d: %w", sub.ID, err)
		}
		for _, d := range deliveries {
			if d.Status == subscription.DeliveryScheduled {
				upcoming[sub.ID] = append(upcoming[sub.ID], d)
			}
		}
		active = append(active, sub)
	}
	return active, upcoming, nil
}

func (s *SubscriptionService) ListDeliveries(ctx context.Context, subscriptionID int64) (*subscription.Subscription, []*subscription.Delivery, error) {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	deliveries, err := s.repo.ListDeliveries(ctx, subscriptionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return sub, deliveries, nil
}

func (s *SubscriptionService) closeDelivery(ctx context.Context, deliveryID int64, status subscription.DeliveryStatus) (*subscription.Delivery, error) {
	d, err := s.repo.GetDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d.Status != subscription.DeliveryScheduled {
		return d, ErrDeliveryNotScheduled
	}
	if err := s.repo.UpdateDeliveryStatus(ctx, d.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update delivery status: %w", err)
	}
	d.Status = status

	pending, err := s.repo.CountDeliveriesByStatus(ctx, d.SubscriptionID, subscription.DeliveryScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending deliveries: %w", err)
	}
	if pending > 0 {
		return d, nil
	}

	sub, err := s.repo.GetByID(ctx, d.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == subscription.StatusActive {
		sub.Status = subscription.StatusCompleted
		if err := s.repo.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to complete subscription: %w", err)
		}
		s.metrics.SubscriptionTransition(string(subscription.StatusCompleted))
		s.log.WithField("subscription_id", sub.ID).Info("Last delivery closed, subscription completed")
	}
	return d, nil
}

func (s *SubscriptionService) computeSchedule(req delivery.SchedulingRequest) ([]delivery.DeliveryDate, error) {
	dates, err := delivery.ComputeDeliverySchedule(req)
	if err != nil {
		s.metrics.ScheduleRejected(rejectReason(err))
		return nil, err
	}
	s.metrics.ScheduleComputed(string(req.Frequency), len(dates))
	return dates, nil
}

func (s *SubscriptionService) persistSchedule(ctx context.Context, subscriptionID int64, indexOffset int, dates []delivery.DeliveryDate) ([]*subscription.Delivery, error) {
	deliveries := make([]*subscription.Delivery, 0, len(dates))
	for _, d := range dates {
		deliveries = append(deliveries, &subscription.Delivery{
			SubscriptionID:  subscriptionID,
			SequenceIndex:   indexOffset + d.SequenceIndex,
			DeliveryDate:    d.Date,
			IsSundayShifted: d.IsSundayShifted,
			Status:          subscription.DeliveryScheduled,
		})
	}
	if err := s.repo.BulkCreateDeliveries(ctx, deliveries); err != nil {
		return nil, fmt.Errorf("failed to store delivery schedule: %w", err)
	}
	s.metrics.DeliveriesPersisted(len(deliveries))
	return deliveries, nil
}

func (s *SubscriptionService) sendScheduleConfirmation(ctx context.Context, sub *subscription.Subscription, deliveries []*subscription.Delivery, greeting string) {
	if len(deliveries) == 0 {
		return
	}
	first := deliveries[0]
	last := deliveries[len(deliveries)-1]

	var text strings.Builder
	fmt.Fprintf(&text, "%s, %s!\n\n", greeting, sub.CustomerName)
	fmt.Fprintf(&text, "Plan: %s (%s)\n", sub.PlanName, sub.Frequency)
	fmt.Fprintf(&text, "Deliveries: %d\n", len(deliveries))
	fmt.Fprintf(&text, "First delivery: %s from %s\n", first.DeliveryDate.Format(DateLayout), first.DeliveryDate.Format("3:04 PM"))
	fmt.Fprintf(&text, "Last delivery: %s\n", last.DeliveryDate.Format(DateLayout))
	text.WriteString("\nWe never deliver on Sundays; those days move to Monday.")

	if err := s.notifier.Notify(ctx, sub.CustomerTelegramID, text.String()); err != nil {
		s.metrics.NotificationFailed(metrics.KindScheduleConfirmation)
		s.log.WithError(err).WithField("subscription_id", sub.ID).Warn("Failed to send schedule confirmation")
		return
	}
	s.metrics.NotificationSent(metrics.KindScheduleConfirmation)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, delivery.ErrInvalidFrequency):
		return "invalid_frequency"
	case errors.Is(err, delivery.ErrInvalidBound):
		return "invalid_bound"
	case errors.Is(err, delivery.ErrInvalidTimestamp):
		return "invalid_timestamp"
	default:
		return "other"
	}
}
