package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, requester_id, owner_id, items, payment_method, total_amount, deposit_amount, personal_info, receipt_reference, status, created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var items, personal []byte
	var receipt sql.NullString
	err := row.Scan(&o.ID, &o.RequesterID, &o.OwnerID, &items, &o.PaymentMethod, &o.TotalAmount, &o.DepositAmount, &personal, &receipt, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(personal, &o.PersonalInfo); err != nil {
		return nil, fmt.Errorf("decode personal info of order %s: %w", o.ID, err)
	}
	if receipt.Valid {
		o.ReceiptReference = &receipt.String
	}
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	personal, err := json.Marshal(o.PersonalInfo)
	if err != nil {
		return fmt.Errorf("encode personal info: %w", err)
	}

	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt

	query := `INSERT INTO rental_orders (id, requester_id, owner_id, items, payment_method, total_amount, deposit_amount, personal_info, receipt_reference, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	logger.DatabaseCall("insert order", query, "order_id", o.ID)
	res, err := r.db.ExecContext(ctx, query, o.ID, o.RequesterID, o.OwnerID, items, o.PaymentMethod, o.TotalAmount, o.DepositAmount, personal, o.ReceiptReference, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("insert order", 0, err)
		return mapError(err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("insert order", n, nil)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM rental_orders WHERE id = $1`
	logger.DatabaseCall("get order", query, "order_id", id)
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return o, nil
}

func (r *orderRepository) UpdateStatusIfPending(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	query := `UPDATE rental_orders SET status = $1, updated_at = $2
	          WHERE id = $3 AND status = 'pending'
	          RETURNING ` + orderColumns
	logger.DatabaseCall("transition order", query, "order_id", id, "status", status)
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, status, time.Now().UTC(), id))
	if err == nil {
		logger.DatabaseResult("transition order", 1, nil)
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("transition order", 0, err)
		return nil, mapError(err)
	}

	// Nothing matched: either the order is gone or someone else moved it first.
	var current domain.OrderStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM rental_orders WHERE id = $1`, id).Scan(&current)
	if err != nil {
		return nil, mapError(err)
	}
	return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidTransition, id, current)
}

func (r *orderRepository) ListByOwner(ctx context.Context, ownerID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	return r.list(ctx, "owner_id", ownerID, status, page, pageSize)
}

func (r *orderRepository) ListByRequester(ctx context.Context, requesterID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	return r.list(ctx, "requester_id", requesterID, status, page, pageSize)
}

// list pages over orders filtered by one party column. column is never user input.
func (r *orderRepository) list(ctx context.Context, column string, userID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	offset := (page - 1) * pageSize
	sql := `SELECT ` + orderColumns + ` FROM rental_orders WHERE ` + column + ` = $1`

	args := []interface{}{userID}
	argIdx := 2
	if status != "" {
		sql += " AND status = $2"
		args = append(args, status)
		argIdx++
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + sql + ") as sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, count, rows.Err()
}

func (r *orderRepository) CountByStatus(ctx context.Context, ownerID int32) (*domain.OrderStats, error) {
	query := `SELECT status, count(*) FROM rental_orders WHERE owner_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.OrderStats{}
	for rows.Next() {
		var status domain.OrderStatus
		var n int32
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		switch status {
		case domain.OrderStatusPending:
			stats.Pending = n
		case domain.OrderStatusApproved:
			stats.Approved = n
		case domain.OrderStatusRejected:
			stats.Rejected = n
		}
	}
	return stats, rows.Err()
}

func (r *orderRepository) ApprovedRevenue(ctx context.Context, ownerID int32) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(total_amount), 0) FROM rental_orders WHERE owner_id = $1 AND status = 'approved'`
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *orderRepository) ListPendingCreatedBefore(ctx context.Context, before time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM rental_orders WHERE status = 'pending' AND created_at < $1 ORDER BY owner_id, created_at`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) SharesOrder(ctx context.Context, a, b int32) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM rental_orders
		WHERE (requester_id = $1 AND owner_id = $2) OR (requester_id = $2 AND owner_id = $1))`
	var shared bool
	if err := r.db.QueryRowContext(ctx, query, a, b).Scan(&shared); err != nil {
		return false, err
	}
	return shared, nil
}

func (r *orderRepository) ReferencedReceipts(ctx context.Context, keys []string) (map[string]bool, error) {
	found := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	query := `SELECT receipt_reference FROM rental_orders WHERE receipt_reference = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		found[key] = true
	}
	return found, rows.Err()
}
