package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EquipmentStatus string

const (
	EquipmentStatusActive      EquipmentStatus = "active"
	EquipmentStatusPending     EquipmentStatus = "pending"
	EquipmentStatusUnavailable EquipmentStatus = "unavailable"
)

// PeriodUnit is the unit a catalog price is quoted in.
type PeriodUnit string

const (
	PeriodUnitDay   PeriodUnit = "day"
	PeriodUnitWeek  PeriodUnit = "week"
	PeriodUnitMonth PeriodUnit = "month"
)

func (u PeriodUnit) Valid() bool {
	switch u {
	case PeriodUnitDay, PeriodUnitWeek, PeriodUnitMonth:
		return true
	}
	return false
}

type Equipment struct {
	ID               int32           `json:"id"`
	OwnerID          int32           `json:"owner_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Price            decimal.Decimal `json:"price"`
	RentalPeriodUnit PeriodUnit      `json:"rental_period_unit"`
	Stock            int32           `json:"stock"`
	Status           EquipmentStatus `json:"status"`
	ImageURL         string          `json:"image_url"`
	CreatedOn        time.Time       `json:"created_on"`
	DeletedOn        *time.Time      `json:"deleted_on,omitempty"`
}

// Rentable reports whether quantity units can be checked out right now.
func (e *Equipment) Rentable(quantity int) bool {
	return e.DeletedOn == nil && e.Status == EquipmentStatusActive && int(e.Stock) >= quantity
}

// RentalItem is the catalog snapshot a line item is priced from.
type RentalItem struct {
	EquipmentID      int32           `json:"equipment_id"`
	OwnerID          int32           `json:"owner_id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	RentalPeriodUnit PeriodUnit      `json:"rental_period_unit"`
	Quantity         int             `json:"quantity"`
}

// Snapshot captures the fields of e needed to price quantity units.
func (e *Equipment) Snapshot(quantity int) RentalItem {
	return RentalItem{
		EquipmentID:      e.ID,
		OwnerID:          e.OwnerID,
		Name:             e.Name,
		Price:            e.Price,
		RentalPeriodUnit: e.RentalPeriodUnit,
		Quantity:         quantity,
	}
}

type RentalPeriod struct {
	Quantity int        `json:"quantity"`
	Unit     PeriodUnit `json:"unit"`
}

type OwnerDashboard struct {
	TotalEquipment int32           `json:"total_equipment"`
	Active         int32           `json:"active"`
	Pending        int32           `json:"pending"`
	Revenue        decimal.Decimal `json:"revenue"`
}
