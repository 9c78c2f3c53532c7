package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"juice_subscription_bot/internal/domain/subscription"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresSubscriptionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresSubscriptionRepository(db), mock
}

func TestCreateSubscription(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 7, 16, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO subscriptions").
		WithArgs(int64(555), "Asha", "Fruit Bowl", "weekly", 1, 15, "ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

	s := &subscription.Subscription{
		CustomerTelegramID: 555,
		CustomerName:       "Asha",
		PlanName:           "Fruit Bowl",
		Frequency:          "weekly",
		DurationMonths:     1,
		DeliveryCount:      15,
		Status:             subscription.StatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), s))

	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, now, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubscriptionByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 7, 16, 14, 0, 0, 0, time.UTC)

	cols := []string{"id", "customer_telegram_id", "customer_name", "plan_name", "frequency", "duration_months",
		"delivery_count", "status", "reactivated_at", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 555, "Asha", "Fruit Bowl", "daily", 0, 12, "PAUSED", nil, now, now))

	s, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "daily", string(s.Frequency))
	assert.Equal(t, subscription.StatusPaused, s.Status)
	assert.Equal(t, 12, s.DeliveryCount)
	assert.False(t, s.ReactivatedAt.Valid)

	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE id = \\$1").
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateDeliveries(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 7, 16, 14, 0, 0, 0, time.UTC)
	first := time.Date(2025, 7, 17, 8, 0, 0, 0, time.UTC)

	deliveries := []*subscription.Delivery{
		{SubscriptionID: 7, SequenceIndex: 1, DeliveryDate: first, Status: subscription.DeliveryScheduled},
		{SubscriptionID: 7, SequenceIndex: 2, DeliveryDate: first.AddDate(0, 0, 2), Status: subscription.DeliveryScheduled},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO subscription_deliveries")
	prep.ExpectQuery().
		WithArgs(int64(7), 1, sqlmock.AnyArg(), false, "SCHEDULED").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(100, now, now))
	prep.ExpectQuery().
		WithArgs(int64(7), 2, sqlmock.AnyArg(), false, "SCHEDULED").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(101, now, now))
	mock.ExpectCommit()

	require.NoError(t, repo.BulkCreateDeliveries(context.Background(), deliveries))
	assert.Equal(t, int64(100), deliveries[0].ID)
	assert.Equal(t, int64(101), deliveries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateDeliveries_DuplicateRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO subscription_deliveries")
	prep.ExpectQuery().
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "subscription_deliveries_live_seq_key"`))
	mock.ExpectRollback()

	err := repo.BulkCreateDeliveries(context.Background(), []*subscription.Delivery{
		{SubscriptionID: 7, SequenceIndex: 1, DeliveryDate: time.Now(), Status: subscription.DeliveryScheduled},
	})
	assert.ErrorIs(t, err, ErrDuplicateDelivery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateDeliveries_EmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.BulkCreateDeliveries(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDeliveryStatus_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE subscription_deliveries SET status").
		WithArgs("DELIVERED", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDeliveryStatus(context.Background(), 42, subscription.DeliveryDelivered)
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDeliveriesOn(t *testing.T) {
	repo, mock := newMockRepo(t)
	loc := time.FixedZone("IST", 5*3600+1800)
	day := time.Date(2025, 7, 17, 19, 0, 0, 0, loc)
	slot := time.Date(2025, 7, 17, 8, 0, 0, 0, loc)

	cols := []string{"id", "subscription_id", "sequence_index", "delivery_date", "is_sunday_shifted", "status", "created_at", "updated_at"}
	mock.ExpectQuery("FROM subscription_deliveries d").
		WithArgs(
			time.Date(2025, 7, 17, 0, 0, 0, 0, loc),
			time.Date(2025, 7, 18, 0, 0, 0, 0, loc),
			sqlmock.AnyArg(),
			"ACTIVE",
		).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(100, 7, 1, slot, false, "SCHEDULED", slot, slot).
			AddRow(205, 9, 4, slot, true, "SCHEDULED", slot, slot))

	got, err := repo.ListDeliveriesOn(context.Background(), day, []subscription.DeliveryStatus{subscription.DeliveryScheduled})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(9), got[1].SubscriptionID)
	assert.True(t, got[1].IsSundayShifted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelPendingDeliveries(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE subscription_deliveries SET status").
		WithArgs("CANCELLED", int64(7), "SCHEDULED").
		WillReturnResult(sqlmock.NewResult(0, 9))

	n, err := repo.CancelPendingDeliveries(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDeliveriesByStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM subscription_deliveries").
		WithArgs(int64(7), "DELIVERED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountDeliveriesByStatus(context.Background(), 7, subscription.DeliveryDelivered)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
