package metrics

// Sink records delivery scheduling metrics.
// All methods are fire-and-forget: implementations must not block or return errors.
type Sink interface {
	ScheduleComputed(frequency string, deliveries int)
	ScheduleRejected(reason string)
	DeliveriesPersisted(count int)
	SubscriptionTransition(status string)
	NotificationSent(kind string)
	NotificationFailed(kind string)
}

// Notification kinds.
const (
	KindScheduleConfirmation = "schedule_confirmation"
	KindNextDayReminder      = "next_day_reminder"
	KindDispatchSummary      = "dispatch_summary"
)
