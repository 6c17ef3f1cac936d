package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{"id", "requester_id", "owner_id", "items", "payment_method", "total_amount", "deposit_amount", "personal_info", "receipt_reference", "status", "created_at", "updated_at"}

const (
	itemsJSON    = `[{"equipment_id":2,"equipment_name":"Wheelchair","quantity":1,"rental_days":28,"unit_price":"300","period_unit":"day","discount_rate":"0","line_total":"8400","deposit":"210"}]`
	personalJSON = `{"first_name":"Amina","last_name":"Idrissi","national_id":"AB123456","address":"12 Rue Atlas","city":"Rabat","phone":"0612345678"}`
	orderID      = "6f1c2a9e-8a8b-4c1e-9b3f-3c4d5e6f7a8b"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func orderRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderCols).
		AddRow(orderID, 3, 10, []byte(itemsJSON), "bank", "8400.00", "210.00", []byte(personalJSON), "receipts/r.pdf", status, now, now)
}

func TestOrderRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	receipt := "receipts/r.pdf"
	order := &domain.Order{
		ID:               orderID,
		RequesterID:      3,
		OwnerID:          10,
		Items:            []domain.OrderItem{{EquipmentID: 2, Quantity: 1, RentalDays: 28, UnitPrice: decimal.NewFromInt(300), LineTotal: decimal.NewFromInt(8400)}},
		PaymentMethod:    domain.PaymentMethodBank,
		TotalAmount:      decimal.NewFromInt(8400),
		DepositAmount:    decimal.NewFromInt(210),
		ReceiptReference: &receipt,
		Status:           domain.OrderStatusPending,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO rental_orders").
			WithArgs(orderID, int32(3), int32(10), sqlmock.AnyArg(), domain.PaymentMethodBank, order.TotalAmount, order.DepositAmount, sqlmock.AnyArg(), receipt, domain.OrderStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(ctx, order)
		assert.NoError(t, err)
		assert.False(t, order.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Foreign key violation", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO rental_orders").
			WillReturnError(&pq.Error{Code: "23503", Detail: "owner missing"})

		err := repo.Create(ctx, order)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Database failure", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO rental_orders").WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, order)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestOrderRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rental_orders WHERE id = \\$1").
			WithArgs(orderID).
			WillReturnRows(orderRow("pending"))

		o, err := repo.GetByID(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, orderID, o.ID)
		assert.Equal(t, domain.OrderStatusPending, o.Status)
		assert.Equal(t, "8400", o.TotalAmount.String())
		require.Len(t, o.Items, 1)
		assert.Equal(t, 28, o.Items[0].RentalDays)
		assert.Equal(t, "0612345678", o.PersonalInfo.Phone)
		require.NotNil(t, o.ReceiptReference)
		assert.Equal(t, "receipts/r.pdf", *o.ReceiptReference)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rental_orders WHERE id = \\$1").
			WithArgs(orderID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, orderID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrderRepository_UpdateStatusIfPending(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE rental_orders SET status = \\$1, updated_at = \\$2\\s+WHERE id = \\$3 AND status = 'pending'").
			WithArgs(domain.OrderStatusApproved, sqlmock.AnyArg(), orderID).
			WillReturnRows(orderRow("approved"))

		o, err := repo.UpdateStatusIfPending(ctx, orderID, domain.OrderStatusApproved)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusApproved, o.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost race", func(t *testing.T) {
		mock.ExpectQuery("UPDATE rental_orders").
			WithArgs(domain.OrderStatusRejected, sqlmock.AnyArg(), orderID).
			WillReturnRows(sqlmock.NewRows(orderCols))
		mock.ExpectQuery("SELECT status FROM rental_orders WHERE id = \\$1").
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

		_, err := repo.UpdateStatusIfPending(ctx, orderID, domain.OrderStatusRejected)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("UPDATE rental_orders").
			WillReturnRows(sqlmock.NewRows(orderCols))
		mock.ExpectQuery("SELECT status FROM rental_orders").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateStatusIfPending(ctx, orderID, domain.OrderStatusApproved)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrderRepository_ListByOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("With status filter", func(t *testing.T) {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM \\(SELECT (.+) FROM rental_orders WHERE owner_id = \\$1 AND status = \\$2\\) as sub").
			WithArgs(int32(10), domain.OrderStatusPending).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM rental_orders WHERE owner_id = \\$1 AND status = \\$2 ORDER BY created_at DESC LIMIT \\$3 OFFSET \\$4").
			WithArgs(int32(10), domain.OrderStatusPending, int32(20), int32(0)).
			WillReturnRows(orderRow("pending"))

		orders, count, err := repo.ListByOwner(ctx, 10, domain.OrderStatusPending, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int32(1), count)
		assert.Len(t, orders, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Requester without filter", func(t *testing.T) {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM \\(SELECT (.+) FROM rental_orders WHERE requester_id = \\$1\\) as sub").
			WithArgs(int32(3)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("ORDER BY created_at DESC LIMIT \\$2 OFFSET \\$3").
			WithArgs(int32(3), int32(10), int32(10)).
			WillReturnRows(sqlmock.NewRows(orderCols))

		orders, count, err := repo.ListByRequester(ctx, 3, "", 2, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(0), count)
		assert.Empty(t, orders)
	})
}

func TestOrderRepository_Stats(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT status, count\\(\\*\\) FROM rental_orders WHERE owner_id = \\$1 GROUP BY status").
		WithArgs(int32(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("approved", 5).
			AddRow("rejected", 1))

	stats, err := repo.CountByStatus(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStats{Pending: 2, Approved: 5, Rejected: 1}, *stats)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(total_amount\\), 0\\) FROM rental_orders").
		WithArgs(int32(10)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("12500.50"))

	revenue, err := repo.ApprovedRevenue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "12500.5", revenue.String())
}

func TestOrderRepository_ReferencedReceipts(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Empty input skips query", func(t *testing.T) {
		found, err := repo.ReferencedReceipts(ctx, nil)
		assert.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("Returns referenced subset", func(t *testing.T) {
		mock.ExpectQuery("SELECT receipt_reference FROM rental_orders WHERE receipt_reference = ANY\\(\\$1\\)").
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"receipt_reference"}).AddRow("receipts/a.pdf"))

		found, err := repo.ReferencedReceipts(ctx, []string{"receipts/a.pdf", "receipts/b.pdf"})
		require.NoError(t, err)
		assert.True(t, found["receipts/a.pdf"])
		assert.False(t, found["receipts/b.pdf"])
	})
}

func TestOrderRepository_SharesOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM rental_orders").
		WithArgs(int32(3), int32(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int32(3), int32(11)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	shared, err := repo.SharesOrder(ctx, 3, 10)
	require.NoError(t, err)
	assert.True(t, shared)

	shared, err = repo.SharesOrder(ctx, 3, 11)
	require.NoError(t, err)
	assert.False(t, shared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListPendingCreatedBefore(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewOrderRepository(db)
	cutoff := time.Now().Add(-48 * time.Hour)

	mock.ExpectQuery("WHERE status = 'pending' AND created_at < \\$1").
		WithArgs(cutoff).
		WillReturnRows(orderRow("pending"))

	orders, err := repo.ListPendingCreatedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
