// internal/infra/database/postgres_subscription_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"juice_subscription_bot/internal/domain/subscription"

	"github.com/lib/pq" // For pq.Array
)

// Custom errors
var ErrSubscriptionNotFound = errors.New("subscription not found")
var ErrDeliveryNotFound = errors.New("subscription delivery not found")
var ErrDuplicateDelivery = errors.New("duplicate live delivery (subscription_id, sequence_index)")

const subscriptionColumns = `id, customer_telegram_id, customer_name, plan_name, frequency, duration_months,
               delivery_count, status, reactivated_at, created_at, updated_at`

const deliveryColumns = `id, subscription_id, sequence_index, delivery_date, is_sunday_shifted, status, created_at, updated_at`

type PostgresSubscriptionRepository struct {
	db *sql.DB
}

func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

// --- Subscription Methods ---

func (r *PostgresSubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `INSERT INTO subscriptions (customer_telegram_id, customer_name, plan_name, frequency, duration_months, delivery_count, status)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		s.CustomerTelegramID, s.CustomerName, s.PlanName, s.Frequency, s.DurationMonths, s.DeliveryCount, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating subscription: %w", err)
	}
	return nil
}

func scanSubscription(row interface{ Scan(...any) error }) (*subscription.Subscription, error) {
	s := &subscription.Subscription{}
	err := row.Scan(
		&s.ID, &s.CustomerTelegramID, &s.CustomerName, &s.PlanName, &s.Frequency, &s.DurationMonths,
		&s.DeliveryCount, &s.Status, &s.ReactivatedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *PostgresSubscriptionRepository) GetByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("error getting subscription by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `UPDATE subscriptions
               SET status = $1, delivery_count = $2, reactivated_at = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Status, s.DeliveryCount, s.ReactivatedAt, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("error updating subscription: %w", err)
	}
	return nil
}

func (r *PostgresSubscriptionRepository) ListByCustomer(ctx context.Context, customerTelegramID int64) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE customer_telegram_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, customerTelegramID)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions by customer: %w", err)
	}
	defer rows.Close()

	subs := make([]*subscription.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscription row: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}
	return subs, nil
}

// --- Delivery Methods ---

// BulkCreateDeliveries inserts a whole schedule in one transaction and fills in the generated IDs.
func (r *PostgresSubscriptionRepository) BulkCreateDeliveries(ctx context.Context, deliveries []*subscription.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for bulk delivery insert: %w", err)
	}
	defer txn.Rollback() // no-op once committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO subscription_deliveries (subscription_id, sequence_index, delivery_date, is_sunday_shifted, status)
                                         VALUES ($1, $2, $3, $4, $5)
                                         RETURNING id, created_at, updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for bulk delivery insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range deliveries {
		err := stmt.QueryRowContext(ctx, d.SubscriptionID, d.SequenceIndex, d.DeliveryDate, d.IsSundayShifted, d.Status).
			Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			if strings.Contains(err.Error(), "subscription_deliveries_live_seq_key") {
				return fmt.Errorf("error in bulk delivery insert (S:%d, seq:%d): %w", d.SubscriptionID, d.SequenceIndex, ErrDuplicateDelivery)
			}
			return fmt.Errorf("error inserting delivery (S:%d, seq:%d): %w", d.SubscriptionID, d.SequenceIndex, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk delivery insert: %w", err)
	}
	return nil
}

func scanDeliveries(rows *sql.Rows) ([]*subscription.Delivery, error) {
	deliveries := make([]*subscription.Delivery, 0)
	for rows.Next() {
		d := subscription.Delivery{}
		if err := rows.Scan(
			&d.ID, &d.SubscriptionID, &d.SequenceIndex, &d.DeliveryDate, &d.IsSundayShifted,
			&d.Status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning delivery row: %w", err)
		}
		deliveries = append(deliveries, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery rows: %w", err)
	}
	return deliveries, nil
}

func (r *PostgresSubscriptionRepository) GetDeliveryByID(ctx context.Context, id int64) (*subscription.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM subscription_deliveries WHERE id = $1`
	d := subscription.Delivery{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.SubscriptionID, &d.SequenceIndex, &d.DeliveryDate, &d.IsSundayShifted,
		&d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("error getting delivery by ID: %w", err)
	}
	return &d, nil
}

func (r *PostgresSubscriptionRepository) UpdateDeliveryStatus(ctx context.Context, id int64, status subscription.DeliveryStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subscription_deliveries SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("error updating delivery status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for delivery status update: %w", err)
	}
	if n == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func (r *PostgresSubscriptionRepository) ListDeliveries(ctx context.Context, subscriptionID int64) ([]*subscription.Delivery, error) {
	query := `SELECT ` + deliveryColumns + `
               FROM subscription_deliveries
               WHERE subscription_id = $1 AND status <> $2
               ORDER BY sequence_index`
	rows, err := r.db.QueryContext(ctx, query, subscriptionID, subscription.DeliveryCancelled)
	if err != nil {
		return nil, fmt.Errorf("error querying deliveries by subscription: %w", err)
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func (r *PostgresSubscriptionRepository) ListDeliveriesOn(ctx context.Context, day time.Time, statuses []subscription.DeliveryStatus) ([]*subscription.Delivery, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	query := `SELECT d.id, d.subscription_id, d.sequence_index, d.delivery_date, d.is_sunday_shifted, d.status, d.created_at, d.updated_at
               FROM subscription_deliveries d
               JOIN subscriptions s ON s.id = d.subscription_id
               WHERE d.delivery_date >= $1 AND d.delivery_date < $2
                 AND d.status = ANY($3::varchar[])
                 AND s.status = $4
               ORDER BY d.delivery_date, d.subscription_id`
	rows, err := r.db.QueryContext(ctx, query, start, end, pq.Array(statusStrings), subscription.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("error querying deliveries on %s: %w", start.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func (r *PostgresSubscriptionRepository) CancelPendingDeliveries(ctx context.Context, subscriptionID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscription_deliveries SET status = $1, updated_at = NOW() WHERE subscription_id = $2 AND status = $3`,
		subscription.DeliveryCancelled, subscriptionID, subscription.DeliveryScheduled,
	)
	if err != nil {
		return 0, fmt.Errorf("error cancelling pending deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows for cancelled deliveries: %w", err)
	}
	return n, nil
}

func (r *PostgresSubscriptionRepository) CountDeliveriesByStatus(ctx context.Context, subscriptionID int64, status subscription.DeliveryStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscription_deliveries WHERE subscription_id = $1 AND status = $2`,
		subscriptionID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting deliveries by status: %w", err)
	}
	return count, nil
}
