package repository

import (
	"context"
	"time"

	"medrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// EquipmentRepository is read-only: the catalog is owned by another service.
type EquipmentRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Equipment, error)
	GetByIDs(ctx context.Context, ids []int32) (map[int32]*domain.Equipment, error)
	List(ctx context.Context, category string, page, pageSize int32) ([]domain.Equipment, int32, error)
	CountByOwner(ctx context.Context, ownerID int32) (*domain.OwnerDashboard, error)
}

type FavoriteRepository interface {
	// List returns the user's favorites that are still in the catalog, newest first.
	List(ctx context.Context, userID int32) ([]domain.Favorite, error)
	// Add is idempotent.
	Add(ctx context.Context, userID, equipmentID int32) error
	// Remove fails with domain.ErrNotFound when the favorite does not exist.
	Remove(ctx context.Context, userID, equipmentID int32) error
}

type OrderRepository interface {
	// Create inserts the order in a single statement.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// UpdateStatusIfPending moves a pending order to status and returns the stored row.
	// It fails with domain.ErrInvalidTransition when the order is no longer pending
	// and domain.ErrNotFound when it does not exist.
	UpdateStatusIfPending(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)
	ListByRequester(ctx context.Context, requesterID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)
	CountByStatus(ctx context.Context, ownerID int32) (*domain.OrderStats, error)
	ApprovedRevenue(ctx context.Context, ownerID int32) (decimal.Decimal, error)
	ListPendingCreatedBefore(ctx context.Context, before time.Time) ([]domain.Order, error)
	// ReferencedReceipts returns the subset of keys that some order points at.
	ReferencedReceipts(ctx context.Context, keys []string) (map[string]bool, error)
	// SharesOrder reports whether a and b are requester and owner of a common order.
	SharesOrder(ctx context.Context, a, b int32) (bool, error)
}
