// internal/domain/subscription/delivery.go
package subscription

import "time"

// DeliveryStatus tracks a single scheduled drop-off.
type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "SCHEDULED"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliverySkipped   DeliveryStatus = "SKIPPED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

// Delivery is one persisted slot of a subscription's schedule.
// Corresponds to the 'subscription_deliveries' table.
type Delivery struct {
	ID              int64
	SubscriptionID  int64
	SequenceIndex   int
	DeliveryDate    time.Time
	IsSundayShifted bool
	Status          DeliveryStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
