package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"

	"github.com/lib/pq"
)

type equipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) repository.EquipmentRepository {
	return &equipmentRepository{db: db}
}

const equipmentColumns = `id, owner_id, name, COALESCE(description, ''), category, price, rental_period_unit, stock, status, COALESCE(image_url, ''), created_on, deleted_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*domain.Equipment, error) {
	e := &domain.Equipment{}
	var deletedOn sql.NullTime
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Description, &e.Category, &e.Price, &e.RentalPeriodUnit, &e.Stock, &e.Status, &e.ImageURL, &e.CreatedOn, &deletedOn)
	if err != nil {
		return nil, err
	}
	if deletedOn.Valid {
		t := deletedOn.Time
		e.DeletedOn = &t
	}
	return e, nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id int32) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`
	logger.DatabaseCall("get equipment", query, "equipment_id", id)
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

func (r *equipmentRepository) GetByIDs(ctx context.Context, ids []int32) (map[int32]*domain.Equipment, error) {
	result := make(map[int32]*domain.Equipment, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = ANY($1)`
	logger.DatabaseCall("get equipment batch", query, "count", len(ids))
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		result[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("get equipment batch", int64(len(result)), nil)
	return result, nil
}

func (r *equipmentRepository) List(ctx context.Context, category string, page, pageSize int32) ([]domain.Equipment, int32, error) {
	offset := (page - 1) * pageSize
	sql := `SELECT ` + equipmentColumns + ` FROM equipment WHERE deleted_on IS NULL AND status = 'active'`

	args := []interface{}{}
	argIdx := 1
	if category != "" {
		sql += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, category)
		argIdx++
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + sql + ") as sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += fmt.Sprintf(" ORDER BY created_on DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *e)
	}
	return items, count, rows.Err()
}

func (r *equipmentRepository) CountByOwner(ctx context.Context, ownerID int32) (*domain.OwnerDashboard, error) {
	query := `SELECT count(*),
	                 count(*) FILTER (WHERE status = 'active'),
	                 count(*) FILTER (WHERE status = 'pending')
	          FROM equipment WHERE owner_id = $1 AND deleted_on IS NULL`
	d := &domain.OwnerDashboard{}
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&d.TotalEquipment, &d.Active, &d.Pending); err != nil {
		return nil, err
	}
	return d, nil
}
