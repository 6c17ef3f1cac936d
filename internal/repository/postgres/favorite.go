package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"
)

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) repository.FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) List(ctx context.Context, userID int32) ([]domain.Favorite, error) {
	query := `SELECT e.id, e.owner_id, e.name, COALESCE(e.description, ''), e.category, e.price,
		e.rental_period_unit, e.stock, e.status, COALESCE(e.image_url, ''), e.created_on, e.deleted_on, f.created_on
		FROM favorites f JOIN equipment e ON e.id = f.equipment_id
		WHERE f.user_id = $1 AND e.deleted_on IS NULL
		ORDER BY f.created_on DESC`
	logger.DatabaseCall("list favorites", query, "user_id", userID)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var favorites []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		var deletedOn sql.NullTime
		e := &f.Equipment
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Description, &e.Category, &e.Price, &e.RentalPeriodUnit, &e.Stock, &e.Status, &e.ImageURL, &e.CreatedOn, &deletedOn, &f.CreatedOn); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("list favorites", int64(len(favorites)), nil)
	return favorites, nil
}

func (r *favoriteRepository) Add(ctx context.Context, userID, equipmentID int32) error {
	query := `INSERT INTO favorites (user_id, equipment_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	logger.DatabaseCall("add favorite", query, "user_id", userID, "equipment_id", equipmentID)
	if _, err := r.db.ExecContext(ctx, query, userID, equipmentID); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, equipmentID int32) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND equipment_id = $2`
	logger.DatabaseCall("remove favorite", query, "user_id", userID, "equipment_id", equipmentID)
	res, err := r.db.ExecContext(ctx, query, userID, equipmentID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("remove favorite", n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: favorite %d of user %d", domain.ErrNotFound, equipmentID, userID)
	}
	return nil
}
