// internal/domain/subscription/repository.go
package subscription

import (
	"context"
	"time"
)

// Repository defines persistence for subscriptions and their deliveries.
type Repository interface {
	// Subscription methods
	Create(ctx context.Context, s *Subscription) error
	GetByID(ctx context.Context, id int64) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	ListByCustomer(ctx context.Context, customerTelegramID int64) ([]*Subscription, error)

	// Delivery methods
	BulkCreateDeliveries(ctx context.Context, deliveries []*Delivery) error
	GetDeliveryByID(ctx context.Context, id int64) (*Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, id int64, status DeliveryStatus) error
	ListDeliveries(ctx context.Context, subscriptionID int64) ([]*Delivery, error)
	// ListDeliveriesOn returns deliveries of ACTIVE subscriptions whose date falls on day.
	ListDeliveriesOn(ctx context.Context, day time.Time, statuses []DeliveryStatus) ([]*Delivery, error)
	// CancelPendingDeliveries marks every SCHEDULED delivery of the subscription CANCELLED
	// and returns how many rows changed.
	CancelPendingDeliveries(ctx context.Context, subscriptionID int64) (int64, error)
	CountDeliveriesByStatus(ctx context.Context, subscriptionID int64, status DeliveryStatus) (int, error)
}
