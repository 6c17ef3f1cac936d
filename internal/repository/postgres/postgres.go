package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/repository"

	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.EquipmentRepository
	repository.OrderRepository
	repository.FavoriteRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                  db,
		UserRepository:      NewUserRepository(db),
		EquipmentRepository: NewEquipmentRepository(db),
		OrderRepository:     NewOrderRepository(db),
		FavoriteRepository:  NewFavoriteRepository(db),
	}
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapError translates driver errors into domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Detail)
		case "check_violation", "not_null_violation":
			return fmt.Errorf("%w: %s", domain.ErrDataIntegrity, pqErr.Message)
		case "invalid_text_representation":
			return domain.ErrNotFound
		}
	}
	return err
}
