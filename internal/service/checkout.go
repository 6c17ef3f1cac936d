package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/storage"
	"medrent-backend/internal/utils"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// validateCheckout checks the request shape before the catalog is consulted.
// A missing receipt is reported on its own so callers can tell it apart.
func validateCheckout(req CheckoutRequest, policy storage.ReceiptPolicy) error {
	v := domain.NewValidationError()

	checkItems(v, req.Items)

	if !req.PaymentMethod.Valid() {
		v.Add("payment_method", fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}

	p := req.PersonalInfo
	required := map[string]string{
		"personal_info.first_name":  p.FirstName,
		"personal_info.last_name":   p.LastName,
		"personal_info.national_id": p.NationalID,
		"personal_info.address":     p.Address,
		"personal_info.city":        p.City,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			v.Add(field, "is required")
		}
	}
	if !phonePattern.MatchString(strings.TrimSpace(p.Phone)) {
		v.Add("personal_info.phone", "must be exactly 10 digits")
	}

	if req.Receipt != nil {
		if err := policy.Check(req.Receipt.ContentType, req.Receipt.Size); err != nil {
			v.Add("receipt", err.Error())
		}
	}

	if err := v.Err(); err != nil {
		return err
	}
	if req.PaymentMethod.RequiresReceipt() && req.Receipt == nil {
		return fmt.Errorf("%w: %s", domain.ErrMissingReceipt, req.PaymentMethod)
	}
	return nil
}

// checkItems records a field error for every malformed cart line.
func checkItems(v *domain.ValidationError, items []CartItem) {
	if len(items) == 0 {
		v.Add("items", "cart is empty")
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			v.Add(fmt.Sprintf("items[%d].quantity", i), "must be a positive integer")
		}
		if _, err := resolveDays(item); err != nil {
			var fe *domain.ValidationError
			if !errors.As(err, &fe) {
				v.Add(fmt.Sprintf("items[%d].rental_days", i), err.Error())
				continue
			}
			for _, msg := range fe.Fields {
				v.Add(fmt.Sprintf("items[%d].rental_days", i), msg)
			}
		}
	}
}

// resolveDays returns the rental duration of a cart line in days.
// An explicit period wins when it agrees with RentalDays.
func resolveDays(item CartItem) (int, error) {
	if item.Period != nil {
		days, err := utils.NormalizeToDays(item.Period.Quantity, item.Period.Unit)
		if err != nil {
			return 0, err
		}
		if item.RentalDays != 0 && item.RentalDays != days {
			return 0, domain.FieldError("rental_days", fmt.Sprintf("period is %d days but rental_days is %d", days, item.RentalDays))
		}
		return days, nil
	}
	if err := utils.CheckDays(item.RentalDays); err != nil {
		return 0, err
	}
	return item.RentalDays, nil
}

func normalizePersonalInfo(p domain.PersonalInfo) domain.PersonalInfo {
	return domain.PersonalInfo{
		FirstName:  strings.TrimSpace(p.FirstName),
		LastName:   strings.TrimSpace(p.LastName),
		NationalID: strings.ToUpper(strings.TrimSpace(p.NationalID)),
		Address:    strings.TrimSpace(p.Address),
		City:       strings.TrimSpace(p.City),
		Phone:      strings.TrimSpace(p.Phone),
	}
}
