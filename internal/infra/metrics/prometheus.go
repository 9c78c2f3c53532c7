package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// PrometheusSink implements Sink with the Prometheus client library.
// Registration errors are logged and never propagated.
type PrometheusSink struct {
	schedulesComputed   *prometheus.CounterVec
	scheduleLength      *prometheus.HistogramVec
	schedulesRejected   *prometheus.CounterVec
	deliveriesPersisted prometheus.Counter
	subscriptionStatus  *prometheus.CounterVec
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	log                 *logrus.Entry
}

func NewPrometheusSink(reg prometheus.Registerer, log *logrus.Entry) *PrometheusSink {
	s := &PrometheusSink{log: log}

	s.schedulesComputed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "juicebot_schedules_computed_total",
		Help: "Delivery schedules computed, by subscription frequency.",
	}, []string{"frequency"})
	s.scheduleLength = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "juicebot_schedule_deliveries",
		Help:    "Number of deliveries in each computed schedule.",
		Buckets: []float64{1, 5, 10, 15, 30, 45, 90, 180},
	}, []string{"frequency"})
	s.schedulesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "juicebot_schedules_rejected_total",
		Help: "Scheduling requests rejected as invalid, by reason.",
	}, []string{"reason"})
	s.deliveriesPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "juicebot_deliveries_persisted_total",
		Help: "Delivery rows written to subscription_deliveries.",
	})
	s.subscriptionStatus = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "juicebot_subscription_transitions_total",
		Help: "Subscription status transitions, by target status.",
	}, []string{"status"})
	s.notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "juicebot_notifications_sent_total",
		Help: "Customer and staff messages sent, by kind.",
	}, []string{"kind"})
	s.notificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "juicebot_notifications_failed_total",
		Help: "Customer and staff messages that failed to send, by kind.",
	}, []string{"kind"})

	s.register(reg, s.schedulesComputed, "juicebot_schedules_computed_total")
	s.register(reg, s.scheduleLength, "juicebot_schedule_deliveries")
	s.register(reg, s.schedulesRejected, "juicebot_schedules_rejected_total")
	s.register(reg, s.deliveriesPersisted, "juicebot_deliveries_persisted_total")
	s.register(reg, s.subscriptionStatus, "juicebot_subscription_transitions_total")
	s.register(reg, s.notificationsSent, "juicebot_notifications_sent_total")
	s.register(reg, s.notificationsFailed, "juicebot_notifications_failed_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.log.WithError(err).WithField("metric", name).Warn("Failed to register metric")
	}
}

func (s *PrometheusSink) ScheduleComputed(frequency string, deliveries int) {
	s.schedulesComputed.WithLabelValues(frequency).Inc()
	s.scheduleLength.WithLabelValues(frequency).Observe(float64(deliveries))
}

func (s *PrometheusSink) ScheduleRejected(reason string) {
	s.schedulesRejected.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) DeliveriesPersisted(count int) {
	s.deliveriesPersisted.Add(float64(count))
}

func (s *PrometheusSink) SubscriptionTransition(status string) {
	s.subscriptionStatus.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) NotificationSent(kind string) {
	s.notificationsSent.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) NotificationFailed(kind string) {
	s.notificationsFailed.WithLabelValues(kind).Inc()
}
