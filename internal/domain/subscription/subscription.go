// internal/domain/subscription/subscription.go
package subscription

import (
	"database/sql"
	"time"

	"juice_subscription_bot/internal/domain/delivery"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Subscription is a customer's recurring fruit-bowl or juice plan.
// Corresponds to the 'subscriptions' table.
type Subscription struct {
	ID                 int64
	CustomerTelegramID int64
	CustomerName       string
	PlanName           string
	Frequency          delivery.Frequency
	DurationMonths     int // 0 when the plan is bought as a fixed number of deliveries
	DeliveryCount      int // total deliveries resolved when the subscription was created
	Status             Status
	ReactivatedAt      sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
