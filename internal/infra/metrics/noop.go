package metrics

// NoopSink is used when metrics are disabled and in tests.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) ScheduleComputed(frequency string, deliveries int) {}
func (n *NoopSink) ScheduleRejected(reason string)                    {}
func (n *NoopSink) DeliveriesPersisted(count int)                     {}
func (n *NoopSink) SubscriptionTransition(status string)              {}
func (n *NoopSink) NotificationSent(kind string)                      {}
func (n *NoopSink) NotificationFailed(kind string)                    {}
