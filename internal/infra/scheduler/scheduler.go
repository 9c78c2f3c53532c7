package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	nextDayReminderTimeout = 5 * time.Minute
	dispatchSummaryTimeout = 1 * time.Minute
)

// ReminderRunner is the work the cron jobs trigger. *app.ReminderService implements it.
type ReminderRunner interface {
	SendNextDayReminders(ctx context.Context) (int, error)
	SendDispatchSummary(ctx context.Context) error
}

type DeliveryScheduler struct {
	cronEngine              *cron.Cron
	reminders               ReminderRunner
	logger                  *logrus.Entry
	cronSpecNextDayReminder string
	cronSpecDispatchSummary string
}

// NewDeliveryScheduler runs jobs in loc, the zone delivery days are counted in.
func NewDeliveryScheduler(
	reminders ReminderRunner,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpecNextDayReminder string, // e.g. "0 19 * * *"
	cronSpecDispatchSummary string, // e.g. "30 6 * * *"
) *DeliveryScheduler {
	return &DeliveryScheduler{
		cronEngine:              cron.New(cron.WithLocation(loc)),
		reminders:               reminders,
		logger:                  logger,
		cronSpecNextDayReminder: cronSpecNextDayReminder,
		cronSpecDispatchSummary: cronSpecDispatchSummary,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *DeliveryScheduler) Start() error {
	s.logger.Info("Starting delivery scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecNextDayReminder, s.runNextDayReminders); err != nil {
		return fmt.Errorf("could not add next-day reminder cron job %q: %w", s.cronSpecNextDayReminder, err)
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecDispatchSummary, s.runDispatchSummary); err != nil {
		return fmt.Errorf("could not add dispatch summary cron job %q: %w", s.cronSpecDispatchSummary, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Delivery scheduler started")
	return nil
}

func (s *DeliveryScheduler) runNextDayReminders() {
	logCtx := s.logger.WithField("job", "next_day_reminders")
	logCtx.Info("Cron job triggered")

	ctx, cancel := context.WithTimeout(context.Background(), nextDayReminderTimeout)
	defer cancel()
	sent, err := s.reminders.SendNextDayReminders(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Next-day reminder run failed")
		return
	}
	logCtx.WithField("sent", sent).Info("Next-day reminder run finished")
}

func (s *DeliveryScheduler) runDispatchSummary() {
	logCtx := s.logger.WithField("job", "dispatch_summary")
	logCtx.Info("Cron job triggered")

	ctx, cancel := context.WithTimeout(context.Background(), dispatchSummaryTimeout)
	defer cancel()
	if err := s.reminders.SendDispatchSummary(ctx); err != nil {
		logCtx.WithError(err).Error("Dispatch summary run failed")
	}
}

// Stop waits for running jobs to finish.
func (s *DeliveryScheduler) Stop() {
	s.logger.Info("Stopping delivery scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Delivery scheduler gracefully stopped")
}
