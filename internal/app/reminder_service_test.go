package app

import (
	"context"
	"testing"

	"juice_subscription_bot/internal/domain/delivery"
	"juice_subscription_bot/internal/infra/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const managerID int64 = 77

func newReminderFixture(t *testing.T) (*ReminderService, *subscriptionFixture) {
	t.Helper()
	f := newSubscriptionFixture()
	ctx := context.Background()

	for _, in := range []CreateSubscriptionInput{
		{CustomerTelegramID: 1, CustomerName: "Asha", PlanName: "Tropical Bowl", Frequency: delivery.FrequencyDaily, DeliveryCount: 3},
		{CustomerTelegramID: 2, CustomerName: "Ravi", PlanName: "Green Juice", Frequency: delivery.FrequencyWeekly, DeliveryCount: 3},
		{CustomerTelegramID: 3, CustomerName: "Meera", PlanName: "Citrus Bowl", Frequency: delivery.FrequencyMonthly, DeliveryCount: 3},
	} {
		_, _, err := f.svc.CreateSubscription(ctx, in)
		require.NoError(t, err)
	}
	// The third customer pauses; paused plans get no reminders.
	_, err := f.svc.PauseSubscription(ctx, 3)
	require.NoError(t, err)

	svc := NewReminderService(f.repo, f.notifier, f.clock, metrics.NewNoopSink(), quietLogger(), managerID)
	return svc, f
}

func TestSendNextDayReminders(t *testing.T) {
	svc, f := newReminderFixture(t)
	f.clock.Set(at(2025, 7, 16, 19, 0))

	sent, err := svc.SendNextDayReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	asha := f.notifier.messagesTo(1)
	require.Len(t, asha, 2) // confirmation + reminder
	assert.Contains(t, asha[1], "delivery 1 of 3 arrives tomorrow, Thu, 17 Jul 2025, from 8:00 AM")
	assert.Len(t, f.notifier.messagesTo(2), 2)
	assert.Len(t, f.notifier.messagesTo(3), 1)
}

func TestSendNextDayReminders_OnlyPlansDueTomorrow(t *testing.T) {
	svc, f := newReminderFixture(t)
	// Sunday evening: only Ravi's weekly plan (17, 19, 21) delivers on Monday.
	f.clock.Set(at(2025, 7, 20, 19, 0))

	sent, err := svc.SendNextDayReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	ravi := f.notifier.messagesTo(2)
	require.Len(t, ravi, 2)
	assert.Contains(t, ravi[1], "delivery 3 of 3 arrives tomorrow, Mon, 21 Jul 2025")
	assert.NotContains(t, ravi[1], "Moved from Sunday")
	assert.Len(t, f.notifier.messagesTo(1), 1)
}

func TestSendNextDayReminders_SundayShiftedNote(t *testing.T) {
	svc, f := newReminderFixture(t)
	ctx := context.Background()

	// Ordered Friday afternoon: Saturday, then Sunday's slot moves to Monday.
	f.clock.Set(at(2025, 7, 18, 14, 0))
	_, deliveries, err := f.svc.CreateSubscription(ctx, CreateSubscriptionInput{
		CustomerTelegramID: 4, CustomerName: "Kiran", PlanName: "Berry Bowl", Frequency: delivery.FrequencyDaily, DeliveryCount: 2,
	})
	require.NoError(t, err)
	require.True(t, deliveries[1].IsSundayShifted)

	f.clock.Set(at(2025, 7, 20, 19, 0))
	_, err = svc.SendNextDayReminders(ctx)
	require.NoError(t, err)

	kiran := f.notifier.messagesTo(4)
	require.Len(t, kiran, 2)
	assert.Contains(t, kiran[1], "delivery 2 of 2 arrives tomorrow, Mon, 21 Jul 2025")
	assert.Contains(t, kiran[1], "(Moved from Sunday.)")
}

func TestSendNextDayReminders_FailedSendIsCountedNotFatal(t *testing.T) {
	svc, f := newReminderFixture(t)
	f.clock.Set(at(2025, 7, 16, 19, 0))
	f.notifier.failFor[1] = true

	sent, err := svc.SendNextDayReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSendNextDayReminders_NothingDue(t *testing.T) {
	svc, f := newReminderFixture(t)
	f.clock.Set(at(2025, 9, 1, 19, 0))

	sent, err := svc.SendNextDayReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSendDispatchSummary(t *testing.T) {
	svc, f := newReminderFixture(t)
	f.clock.Set(at(2025, 7, 17, 6, 30))

	require.NoError(t, svc.SendDispatchSummary(context.Background()))

	msgs := f.notifier.messagesTo(managerID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Dispatch for Thu, 17 Jul 2025: 2 deliveries")
	assert.Contains(t, msgs[0], "Asha, Tropical Bowl, 1/3")
	assert.Contains(t, msgs[0], "Ravi, Green Juice, 1/3")
	assert.NotContains(t, msgs[0], "Meera")
}

func TestSendDispatchSummary_ManagerUnreachable(t *testing.T) {
	svc, f := newReminderFixture(t)
	f.clock.Set(at(2025, 7, 17, 6, 30))
	f.notifier.failFor[managerID] = true

	err := svc.SendDispatchSummary(context.Background())
	assert.Error(t, err)
}
