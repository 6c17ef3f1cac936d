package utils

import (
	"fmt"

	"medrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30

	shortRentalDays = 30
	longRentalDays  = 60

	// MaxRentalDays bounds a single rental to ten years of 365 days.
	MaxRentalDays = 3650
)

var (
	shortRentalDiscount = decimal.RequireFromString("0.05")
	longRentalDiscount  = decimal.RequireFromString("0.10")
	depositRatio        = decimal.RequireFromString("0.70")
)

// PricingResult is the computed cost of one line item for a given duration.
type PricingResult struct {
	Days         int
	DiscountRate decimal.Decimal
	LineTotal    decimal.Decimal
	Deposit      decimal.Decimal
}

// QuoteLine pairs a catalog snapshot with the number of days requested.
type QuoteLine struct {
	Item domain.RentalItem
	Days int
}

// Quote aggregates the priced lines of a cart.
type Quote struct {
	Lines         []PricingResult
	TotalAmount   decimal.Decimal
	DepositAmount decimal.Decimal
}

// NormalizeToDays converts a rental period into a day count.
// Weeks are 7 days and months are a flat 30 days.
func NormalizeToDays(quantity int, unit domain.PeriodUnit) (int, error) {
	if quantity <= 0 {
		return 0, domain.FieldError("period.quantity", "must be a positive integer")
	}

	var perUnit int
	switch unit {
	case domain.PeriodUnitDay:
		perUnit = 1
	case domain.PeriodUnitWeek:
		perUnit = daysPerWeek
	case domain.PeriodUnitMonth:
		perUnit = daysPerMonth
	default:
		return 0, domain.FieldError("period.unit", fmt.Sprintf("unknown period unit %q", unit))
	}

	// Compare before multiplying so huge quantities cannot wrap around.
	if quantity > MaxRentalDays/perUnit {
		return 0, domain.FieldError("period.quantity", fmt.Sprintf("rental cannot exceed %d days", MaxRentalDays))
	}
	return quantity * perUnit, nil
}

// CheckDays rejects durations outside 1..MaxRentalDays.
func CheckDays(days int) error {
	if days <= 0 {
		return domain.FieldError("rental_days", "must be a positive integer")
	}
	if days > MaxRentalDays {
		return domain.FieldError("rental_days", fmt.Sprintf("rental cannot exceed %d days", MaxRentalDays))
	}
	return nil
}

// DiscountRate returns the long-rental discount for a duration in days:
// 10% from 60 days, 5% from 30 days, nothing below.
func DiscountRate(days int) decimal.Decimal {
	switch {
	case days >= longRentalDays:
		return longRentalDiscount
	case days >= shortRentalDays:
		return shortRentalDiscount
	default:
		return decimal.Zero
	}
}

// LineTotal computes the cost of renting item for days.
//
// Day and week priced items are charged per day with the long-rental discount.
// Month priced items are billed in whole months and never discounted.
func LineTotal(item domain.RentalItem, days int) (decimal.Decimal, error) {
	if err := checkItem(item); err != nil {
		return decimal.Zero, err
	}
	if err := CheckDays(days); err != nil {
		return decimal.Zero, err
	}

	qty := decimal.NewFromInt(int64(item.Quantity))

	if item.RentalPeriodUnit == domain.PeriodUnitMonth {
		months := days / daysPerMonth
		if days%daysPerMonth != 0 {
			months++
		}
		return item.Price.Mul(qty).Mul(decimal.NewFromInt(int64(months))), nil
	}

	gross := item.Price.Mul(qty).Mul(decimal.NewFromInt(int64(days)))
	return gross.Mul(decimal.NewFromInt(1).Sub(DiscountRate(days))), nil
}

// Deposit is the guarantee held for item: 70% of price times quantity,
// independent of how long the item is rented.
func Deposit(item domain.RentalItem) (decimal.Decimal, error) {
	if err := checkItem(item); err != nil {
		return decimal.Zero, err
	}
	return depositRatio.Mul(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))), nil
}

// PriceLine computes the full pricing result for one line.
func PriceLine(item domain.RentalItem, days int) (PricingResult, error) {
	total, err := LineTotal(item, days)
	if err != nil {
		return PricingResult{}, err
	}
	deposit, err := Deposit(item)
	if err != nil {
		return PricingResult{}, err
	}

	rate := DiscountRate(days)
	if item.RentalPeriodUnit == domain.PeriodUnitMonth {
		rate = decimal.Zero
	}

	return PricingResult{
		Days:         days,
		DiscountRate: rate,
		LineTotal:    total,
		Deposit:      deposit,
	}, nil
}

// PriceQuote prices every line and sums totals and deposits.
func PriceQuote(lines []QuoteLine) (Quote, error) {
	q := Quote{
		Lines:         make([]PricingResult, 0, len(lines)),
		TotalAmount:   decimal.Zero,
		DepositAmount: decimal.Zero,
	}
	for _, l := range lines {
		res, err := PriceLine(l.Item, l.Days)
		if err != nil {
			return Quote{}, err
		}
		q.Lines = append(q.Lines, res)
		q.TotalAmount = q.TotalAmount.Add(res.LineTotal)
		q.DepositAmount = q.DepositAmount.Add(res.Deposit)
	}
	return q, nil
}

func checkItem(item domain.RentalItem) error {
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: equipment %d has negative price %s", domain.ErrDataIntegrity, item.EquipmentID, item.Price)
	}
	if item.Quantity <= 0 {
		return domain.FieldError("quantity", "must be a positive integer")
	}
	if !item.RentalPeriodUnit.Valid() {
		return domain.FieldError("rental_period_unit", fmt.Sprintf("unknown period unit %q", item.RentalPeriodUnit))
	}
	return nil
}
