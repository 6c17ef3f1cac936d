package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusRejected OrderStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusApproved || s == OrderStatusRejected
}

func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s.Terminal()
}

type PaymentMethod string

const (
	PaymentMethodBank     PaymentMethod = "bank"
	PaymentMethodWafacash PaymentMethod = "wafacash"
	PaymentMethodCashplus PaymentMethod = "cashplus"
	PaymentMethodCash     PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentMethodBank, PaymentMethodWafacash, PaymentMethodCashplus, PaymentMethodCash:
		return true
	}
	return false
}

// RequiresReceipt is true for every method except cash on pickup.
func (p PaymentMethod) RequiresReceipt() bool {
	return p != PaymentMethodCash
}

type PersonalInfo struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	NationalID string `json:"national_id"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Phone      string `json:"phone"`
}

// OrderItem is a priced line, frozen at checkout.
type OrderItem struct {
	EquipmentID   int32           `json:"equipment_id"`
	EquipmentName string          `json:"equipment_name"`
	Quantity      int             `json:"quantity"`
	RentalDays    int             `json:"rental_days"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PeriodUnit    PeriodUnit      `json:"period_unit"`
	DiscountRate  decimal.Decimal `json:"discount_rate"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Deposit       decimal.Decimal `json:"deposit"`
}

type Order struct {
	ID               string          `json:"id"`
	RequesterID      int32           `json:"requester_id"`
	OwnerID          int32           `json:"owner_id"`
	Items            []OrderItem     `json:"items"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DepositAmount    decimal.Decimal `json:"deposit_amount"`
	PersonalInfo     PersonalInfo    `json:"personal_info"`
	ReceiptReference *string         `json:"receipt_reference,omitempty"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Visible reports whether userID is a party to the order.
func (o *Order) Visible(userID int32) bool {
	return o.RequesterID == userID || o.OwnerID == userID
}

type OrderStats struct {
	Pending  int32 `json:"pending"`
	Approved int32 `json:"approved"`
	Rejected int32 `json:"rejected"`
}

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent is published after an order is persisted or transitioned.
type OrderEvent struct {
	Type        OrderEventType  `json:"type"`
	OrderID     string          `json:"order_id"`
	RequesterID int32           `json:"requester_id"`
	OwnerID     int32           `json:"owner_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o *Order) OrderEvent {
	return OrderEvent{
		Type:        t,
		OrderID:     o.ID,
		RequesterID: o.RequesterID,
		OwnerID:     o.OwnerID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}
