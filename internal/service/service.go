package service

import (
	"context"
	"io"
	"time"

	"medrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// GetContact returns userID's contact details to callerID, who must be
	// that user or share an order with them.
	GetContact(ctx context.Context, callerID, userID int32) (*domain.Contact, error)
}

type EquipmentService interface {
	GetEquipment(ctx context.Context, id int32) (*domain.Equipment, error)
	ListEquipment(ctx context.Context, category string, page, pageSize int32) ([]domain.Equipment, int32, error)
	OwnerDashboard(ctx context.Context, ownerID int32) (*domain.OwnerDashboard, error)
}

type FavoriteService interface {
	ListFavorites(ctx context.Context, userID int32) ([]domain.Favorite, error)
	AddFavorite(ctx context.Context, userID, equipmentID int32) error
	RemoveFavorite(ctx context.Context, userID, equipmentID int32) error
}

type OrderService interface {
	QuoteCart(ctx context.Context, requesterID int32, items []CartItem) (*CartQuote, error)
	CreateOrder(ctx context.Context, requesterID int32, req CheckoutRequest) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID string, requested domain.OrderStatus, actingOwnerID int32) (*domain.Order, error)
	GetOrder(ctx context.Context, userID int32, orderID string) (*domain.Order, error)
	ListOwnerOrders(ctx context.Context, ownerID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)
	ListMyOrders(ctx context.Context, requesterID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)
	OwnerOrderStats(ctx context.Context, ownerID int32) (*domain.OrderStats, error)
	OpenReceipt(ctx context.Context, userID int32, orderID string) (io.ReadCloser, string, error)
}

type EmailService interface {
	SendNewOrderNotification(ctx context.Context, ownerEmail, ownerName, requesterName string, order *domain.Order) error
	SendOrderStatusNotification(ctx context.Context, requesterEmail, requesterName string, order *domain.Order) error
	SendPendingOrdersReminder(ctx context.Context, ownerEmail, ownerName string, orders []domain.Order) error
}

type PushService interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// EventPublisher delivers order events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// OrderNotifier runs the best-effort side effects that follow a committed order change.
// Calls return immediately; Wait blocks until the queued side effects are done.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order *domain.Order)
	OrderStatusChanged(ctx context.Context, order *domain.Order)
	Wait()
}

type LoginResult struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        domain.Contact `json:"user"`
}

// CartItem is one line of the client cart. Price is what the client displayed
// and is only compared against the catalog, never used.
type CartItem struct {
	EquipmentID int32                `json:"equipment_id"`
	Quantity    int                  `json:"quantity"`
	RentalDays  int                  `json:"rental_days,omitempty"`
	Period      *domain.RentalPeriod `json:"period,omitempty"`
	Price       *decimal.Decimal     `json:"price,omitempty"`
}

// Receipt is the uploaded proof of payment.
type Receipt struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type CheckoutRequest struct {
	Items         []CartItem
	PaymentMethod domain.PaymentMethod
	PersonalInfo  domain.PersonalInfo
	Receipt       *Receipt
	// TotalAmount is the client-side total, logged when it disagrees with the computed one.
	TotalAmount *decimal.Decimal
}

type CartQuote struct {
	OwnerID       int32              `json:"owner_id"`
	Items         []domain.OrderItem `json:"items"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	DepositAmount decimal.Decimal    `json:"deposit_amount"`
}
