package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"
	"medrent-backend/internal/storage"
	"medrent-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type orderService struct {
	orderRepo     repository.OrderRepository
	equipmentRepo repository.EquipmentRepository
	store         storage.StorageInterface
	policy        storage.ReceiptPolicy
	notifier      OrderNotifier
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	equipmentRepo repository.EquipmentRepository,
	store storage.StorageInterface,
	policy storage.ReceiptPolicy,
	notifier OrderNotifier,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		equipmentRepo: equipmentRepo,
		store:         store,
		policy:        policy,
		notifier:      notifier,
	}
}

func (s *orderService) QuoteCart(ctx context.Context, requesterID int32, items []CartItem) (*CartQuote, error) {
	v := domain.NewValidationError()
	checkItems(v, items)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return s.priceCart(ctx, requesterID, items)
}

// priceCart re-reads every cart line from the catalog and prices it.
// Nothing the client sent about prices is trusted.
func (s *orderService) priceCart(ctx context.Context, requesterID int32, items []CartItem) (*CartQuote, error) {
	ids := make([]int32, 0, len(items))
	wanted := make(map[int32]int, len(items))
	for _, item := range items {
		if _, seen := wanted[item.EquipmentID]; !seen {
			ids = append(ids, item.EquipmentID)
		}
		wanted[item.EquipmentID] += item.Quantity
	}

	catalog, err := s.equipmentRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		e, ok := catalog[id]
		if !ok || e == nil {
			return nil, fmt.Errorf("%w: equipment %d no longer exists", domain.ErrStaleCart, id)
		}
		if !e.Rentable(wanted[id]) {
			return nil, fmt.Errorf("%w: equipment %d cannot supply %d units", domain.ErrStaleCart, id, wanted[id])
		}
	}

	ownerID := catalog[items[0].EquipmentID].OwnerID
	lines := make([]utils.QuoteLine, 0, len(items))
	for i, item := range items {
		e := catalog[item.EquipmentID]
		if e.OwnerID != ownerID {
			return nil, domain.FieldError("items", "all items must belong to the same owner")
		}
		if e.OwnerID == requesterID {
			return nil, domain.FieldError(fmt.Sprintf("items[%d]", i), "cannot rent your own equipment")
		}
		days, err := resolveDays(item)
		if err != nil {
			return nil, err
		}
		if item.Price != nil && !item.Price.Equal(e.Price) {
			logger.WarnContext(ctx, "Client price differs from catalog", "equipment_id", e.ID, "client", item.Price.String(), "catalog", e.Price.String())
		}
		lines = append(lines, utils.QuoteLine{Item: e.Snapshot(item.Quantity), Days: days})
	}

	q, err := utils.PriceQuote(lines)
	if err != nil {
		return nil, err
	}

	quote := &CartQuote{
		OwnerID:       ownerID,
		Items:         make([]domain.OrderItem, 0, len(lines)),
		TotalAmount:   decimal.Zero,
		DepositAmount: decimal.Zero,
	}
	for i, res := range q.Lines {
		item := lines[i].Item
		line := domain.OrderItem{
			EquipmentID:   item.EquipmentID,
			EquipmentName: item.Name,
			Quantity:      item.Quantity,
			RentalDays:    res.Days,
			UnitPrice:     item.Price,
			PeriodUnit:    item.RentalPeriodUnit,
			DiscountRate:  res.DiscountRate,
			LineTotal:     res.LineTotal.Round(2),
			Deposit:       res.Deposit.Round(2),
		}
		quote.Items = append(quote.Items, line)
		quote.TotalAmount = quote.TotalAmount.Add(line.LineTotal)
		quote.DepositAmount = quote.DepositAmount.Add(line.Deposit)
	}
	return quote, nil
}

func (s *orderService) CreateOrder(ctx context.Context, requesterID int32, req CheckoutRequest) (*domain.Order, error) {
	logger.EnterMethod("orderService.CreateOrder", "requester_id", requesterID, "items", len(req.Items), "payment_method", req.PaymentMethod)

	if err := validateCheckout(req, s.policy); err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err)
		return nil, err
	}

	receiptType, receiptBody, err := s.sniffReceipt(req.Receipt)
	if err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err)
		return nil, err
	}

	quote, err := s.priceCart(ctx, requesterID, req.Items)
	if err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err)
		return nil, err
	}
	if req.TotalAmount != nil && !req.TotalAmount.Equal(quote.TotalAmount) {
		logger.WarnContext(ctx, "Client total differs from computed total", "client", req.TotalAmount.String(), "computed", quote.TotalAmount.String())
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		RequesterID:   requesterID,
		OwnerID:       quote.OwnerID,
		Items:         quote.Items,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   quote.TotalAmount,
		DepositAmount: quote.DepositAmount,
		PersonalInfo:  normalizePersonalInfo(req.PersonalInfo),
		Status:        domain.OrderStatusPending,
	}

	if req.Receipt != nil {
		key := storage.NewReceiptKeyForType(receiptType, req.Receipt.Filename)
		if _, err := s.store.SaveFile(ctx, key, receiptBody); err != nil {
			logger.ExitMethodWithError("orderService.CreateOrder", err)
			return nil, fmt.Errorf("failed to store receipt: %w", err)
		}
		order.ReceiptReference = &key
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if order.ReceiptReference != nil {
			if delErr := s.store.DeleteFile(ctx, *order.ReceiptReference); delErr != nil {
				logger.ErrorContext(ctx, "Failed to remove receipt of unsaved order", "key", *order.ReceiptReference, "error", delErr)
			}
		}
		logger.ExitMethodWithError("orderService.CreateOrder", err)
		return nil, err
	}

	s.notifier.OrderCreated(ctx, order)

	logger.ExitMethod("orderService.CreateOrder", "order_id", order.ID, "total", order.TotalAmount.String())
	return order, nil
}

// sniffReceipt checks the receipt bytes against the policy, ignoring the
// content type the client declared.
func (s *orderService) sniffReceipt(r *Receipt) (string, io.Reader, error) {
	if r == nil {
		return "", nil, nil
	}
	contentType, body, err := storage.Sniff(r.Content)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	if err := s.policy.Check(contentType, r.Size); err != nil {
		return "", nil, domain.FieldError("receipt", err.Error())
	}
	if contentType != r.ContentType {
		logger.Warn("Receipt content type differs from declared", "declared", r.ContentType, "detected", contentType)
	}
	return contentType, body, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, orderID string, requested domain.OrderStatus, actingOwnerID int32) (*domain.Order, error) {
	logger.EnterMethod("orderService.TransitionStatus", "order_id", orderID, "status", requested, "owner_id", actingOwnerID)

	if _, err := s.pendingOrderOf(ctx, orderID, requested, actingOwnerID); err != nil {
		logger.ExitMethodWithError("orderService.TransitionStatus", err)
		return nil, err
	}

	updated, err := s.orderRepo.UpdateStatusIfPending(ctx, orderID, requested)
	if err != nil {
		logger.ExitMethodWithError("orderService.TransitionStatus", err)
		return nil, err
	}

	s.notifier.OrderStatusChanged(ctx, updated)

	logger.ExitMethod("orderService.TransitionStatus", "order_id", orderID, "status", updated.Status)
	return updated, nil
}

// pendingOrderOf loads the order and checks that actingOwnerID may still decide it.
func (s *orderService) pendingOrderOf(ctx context.Context, orderID string, requested domain.OrderStatus, actingOwnerID int32) (*domain.Order, error) {
	if !requested.Terminal() {
		return nil, domain.FieldError("status", "must be approved or rejected")
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("%w: order %q", domain.ErrNotFound, orderID)
	}

	current, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != actingOwnerID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrUnauthorized, orderID)
	}
	if current.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidTransition, orderID, current.Status)
	}
	return current, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID int32, orderID string) (*domain.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("%w: order %q", domain.ErrNotFound, orderID)
	}
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Visible(userID) {
		return nil, fmt.Errorf("%w: order %s", domain.ErrUnauthorized, orderID)
	}
	return o, nil
}

func (s *orderService) ListOwnerOrders(ctx context.Context, ownerID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.FieldError("status", fmt.Sprintf("unknown status %q", status))
	}
	page, pageSize = normalizePage(page, pageSize)
	return s.orderRepo.ListByOwner(ctx, ownerID, status, page, pageSize)
}

func (s *orderService) ListMyOrders(ctx context.Context, requesterID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.FieldError("status", fmt.Sprintf("unknown status %q", status))
	}
	page, pageSize = normalizePage(page, pageSize)
	return s.orderRepo.ListByRequester(ctx, requesterID, status, page, pageSize)
}

func (s *orderService) OwnerOrderStats(ctx context.Context, ownerID int32) (*domain.OrderStats, error) {
	return s.orderRepo.CountByStatus(ctx, ownerID)
}

// OpenReceipt returns the stored receipt of an order and its content type.
// The caller must close the reader.
func (s *orderService) OpenReceipt(ctx context.Context, userID int32, orderID string) (io.ReadCloser, string, error) {
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.ReceiptReference == nil {
		return nil, "", fmt.Errorf("%w: order %s has no receipt", domain.ErrNotFound, orderID)
	}

	rc, err := s.store.ReadFile(ctx, *o.ReceiptReference)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, "", fmt.Errorf("%w: receipt of order %s", domain.ErrNotFound, orderID)
		}
		return nil, "", err
	}

	contentType := mime.TypeByExtension(path.Ext(*o.ReceiptReference))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

func normalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
