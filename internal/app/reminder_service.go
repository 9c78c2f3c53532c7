// internal/app/reminder_service.go
package app

import (
	"context"
	"fmt"
	"strings"

	"juice_subscription_bot/internal/domain/delivery"
	"juice_subscription_bot/internal/domain/notify"
	"juice_subscription_bot/internal/domain/subscription"
	"juice_subscription_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// ReminderService sends the recurring delivery messages triggered by cron.
type ReminderService struct {
	repo              subscription.Repository
	notifier          notify.Notifier
	clock             delivery.Clock
	metrics           metrics.Sink
	log               *logrus.Entry
	managerTelegramID int64
}

func NewReminderService(
	repo subscription.Repository,
	notifier notify.Notifier,
	clock delivery.Clock,
	sink metrics.Sink,
	log *logrus.Entry,
	managerID int64,
) *ReminderService {
	return &ReminderService{
		repo:              repo,
		notifier:          notifier,
		clock:             clock,
		metrics:           sink,
		log:               log,
		managerTelegramID: managerID,
	}
}

// SendNextDayReminders tells every customer with a delivery tomorrow when to
// expect it. A failed message is logged and counted; the run continues.
func (s *ReminderService) SendNextDayReminders(ctx context.Context) (int, error) {
	tomorrow := delivery.AddDays(s.clock.Now(), 1)
	logCtx := s.log.WithField("delivery_day", tomorrow.Format("2006-01-02"))

	due, err := s.repo.ListDeliveriesOn(ctx, tomorrow, []subscription.DeliveryStatus{subscription.DeliveryScheduled})
	if err != nil {
		return 0, fmt.Errorf("failed to list tomorrow's deliveries: %w", err)
	}
	if len(due) == 0 {
		logCtx.Info("No deliveries tomorrow, no reminders to send")
		return 0, nil
	}

	subs := make(map[int64]*subscription.Subscription)
	sent := 0
	for _, d := range due {
		sub, ok := subs[d.SubscriptionID]
		if !ok {
			sub, err = s.repo.GetByID(ctx, d.SubscriptionID)
			if err != nil {
				logCtx.WithError(err).WithField("subscription_id", d.SubscriptionID).Error("Could not load subscription for reminder")
				continue
			}
			subs[d.SubscriptionID] = sub
		}

		text := fmt.Sprintf("Hi %s! Your %s delivery %d of %d arrives tomorrow, %s, from %s.",
			sub.CustomerName, sub.PlanName, d.SequenceIndex, sub.DeliveryCount,
			d.DeliveryDate.Format(DateLayout), d.DeliveryDate.Format("3:04 PM"))
		if d.IsSundayShifted {
			text += " (Moved from Sunday.)"
		}

		if err := s.notifier.Notify(ctx, sub.CustomerTelegramID, text); err != nil {
			s.metrics.NotificationFailed(metrics.KindNextDayReminder)
			logCtx.WithError(err).WithFields(logrus.Fields{
				"subscription_id": sub.ID,
				"delivery_id":     d.ID,
			}).Warn("Failed to send next-day reminder")
			continue
		}
		s.metrics.NotificationSent(metrics.KindNextDayReminder)
		sent++
	}

	logCtx.WithFields(logrus.Fields{"due": len(due), "sent": sent}).Info("Next-day reminders processed")
	return sent, nil
}

// SendDispatchSummary sends the manager today's delivery run sheet.
func (s *ReminderService) SendDispatchSummary(ctx context.Context) error {
	today := s.clock.Now()

	due, err := s.repo.ListDeliveriesOn(ctx, today, []subscription.DeliveryStatus{subscription.DeliveryScheduled})
	if err != nil {
		return fmt.Errorf("failed to list today's deliveries: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Dispatch for %s: %d deliveries\n", today.Format(DateLayout), len(due))
	for _, d := range due {
		sub, err := s.repo.GetByID(ctx, d.SubscriptionID)
		if err != nil {
			s.log.WithError(err).WithField("subscription_id", d.SubscriptionID).Error("Could not load subscription for dispatch summary")
			fmt.Fprintf(&text, "- #%d subscription %d (details unavailable)\n", d.ID, d.SubscriptionID)
			continue
		}
		fmt.Fprintf(&text, "- #%d %s, %s, %d/%d\n", d.ID, sub.CustomerName, sub.PlanName, d.SequenceIndex, sub.DeliveryCount)
	}

	if err := s.notifier.Notify(ctx, s.managerTelegramID, text.String()); err != nil {
		s.metrics.NotificationFailed(metrics.KindDispatchSummary)
		return fmt.Errorf("failed to send dispatch summary: %w", err)
	}
	s.metrics.NotificationSent(metrics.KindDispatchSummary)
	s.log.WithField("deliveries", len(due)).Info("Dispatch summary sent")
	return nil
}
