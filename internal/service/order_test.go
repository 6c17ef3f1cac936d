package service_test

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/service"
	"medrent-backend/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	ownerID     = int32(10)
	requesterID = int32(3)
	testOrderID = "6f1c2a9e-8a8b-4c1e-9b3f-3c4d5e6f7a8b"
)

var receiptPolicy = storage.ReceiptPolicy{
	MaxBytes:     1 << 20,
	AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
}

func wheelchair() *domain.Equipment {
	return &domain.Equipment{
		ID:               2,
		OwnerID:          ownerID,
		Name:             "Wheelchair",
		Price:            decimal.NewFromInt(300),
		RentalPeriodUnit: domain.PeriodUnitDay,
		Stock:            3,
		Status:           domain.EquipmentStatusActive,
	}
}

func hospitalBed() *domain.Equipment {
	return &domain.Equipment{
		ID:               4,
		OwnerID:          ownerID,
		Name:             "Hospital bed",
		Price:            decimal.NewFromInt(1500),
		RentalPeriodUnit: domain.PeriodUnitMonth,
		Stock:            2,
		Status:           domain.EquipmentStatusActive,
	}
}

func personalInfo() domain.PersonalInfo {
	return domain.PersonalInfo{
		FirstName:  "Amina",
		LastName:   "Idrissi",
		NationalID: "ab123456",
		Address:    "12 Rue Atlas",
		City:       "Rabat",
		Phone:      "0612345678",
	}
}

func pdfReceipt() *service.Receipt {
	return &service.Receipt{
		Filename:    "virement.pdf",
		ContentType: "application/pdf",
		Size:        9,
		Content:     strings.NewReader("%PDF-1.4\n"),
	}
}

type orderFixture struct {
	orders    *MockOrderRepo
	equipment *MockEquipmentRepo
	store     *memStorage
	notifier  *MockNotifier
	svc       service.OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:    new(MockOrderRepo),
		equipment: new(MockEquipmentRepo),
		store:     newMemStorage(),
		notifier:  new(MockNotifier),
	}
	f.svc = service.NewOrderService(f.orders, f.equipment, f.store, receiptPolicy, f.notifier)
	return f
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success cash", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)
		f.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
		f.notifier.On("OrderCreated", ctx, mock.AnythingOfType("*domain.Order")).Return()

		order, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 28}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Equal(t, ownerID, order.OwnerID)
		assert.Equal(t, requesterID, order.RequesterID)
		assert.Equal(t, "8400", order.TotalAmount.String())
		assert.Equal(t, "210", order.DepositAmount.String())
		assert.Nil(t, order.ReceiptReference)
		assert.Equal(t, "AB123456", order.PersonalInfo.NationalID)
		assert.Len(t, order.ID, 36)
		f.orders.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("Success bank with receipt", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)
		f.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
		f.notifier.On("OrderCreated", ctx, mock.Anything).Return()

		order, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 2, RentalDays: 60}},
			PaymentMethod: domain.PaymentMethodBank,
			PersonalInfo:  personalInfo(),
			Receipt:       pdfReceipt(),
		})
		require.NoError(t, err)
		require.NotNil(t, order.ReceiptReference)
		assert.True(t, strings.HasPrefix(*order.ReceiptReference, storage.ReceiptPrefix))
		assert.True(t, strings.HasSuffix(*order.ReceiptReference, ".pdf"))
		exists, _, _ := f.store.FileExists(ctx, *order.ReceiptReference)
		assert.True(t, exists)
		// 300 x 2 x 60 x 0.90
		assert.Equal(t, "32400", order.TotalAmount.String())
		assert.Equal(t, "0.1", order.Items[0].DiscountRate.String())
	})

	t.Run("Client price ignored", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)
		f.orders.On("Create", ctx, mock.Anything).Return(nil)
		f.notifier.On("OrderCreated", ctx, mock.Anything).Return()

		cheap := decimal.NewFromInt(1)
		order, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 28, Price: &cheap}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
			TotalAmount:   &cheap,
		})
		require.NoError(t, err)
		assert.Equal(t, "8400", order.TotalAmount.String())
		assert.Equal(t, "300", order.Items[0].UnitPrice.String())
	})

	t.Run("Monthly period", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{4}).Return(map[int32]*domain.Equipment{4: hospitalBed()}, nil)
		f.orders.On("Create", ctx, mock.Anything).Return(nil)
		f.notifier.On("OrderCreated", ctx, mock.Anything).Return()

		order, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 4, Quantity: 1, Period: &domain.RentalPeriod{Quantity: 2, Unit: domain.PeriodUnitMonth}}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		require.NoError(t, err)
		assert.Equal(t, 60, order.Items[0].RentalDays)
		assert.Equal(t, "3000", order.TotalAmount.String())
		assert.True(t, order.Items[0].DiscountRate.IsZero())
	})

	t.Run("Missing receipt", func(t *testing.T) {
		f := newOrderFixture()

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodWafacash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrMissingReceipt)
		f.equipment.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Invalid fields", func(t *testing.T) {
		f := newOrderFixture()
		info := personalInfo()
		info.Phone = "06-12-34"
		info.City = "  "

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 0, RentalDays: 0}},
			PaymentMethod: "paypal",
			PersonalInfo:  info,
		})
		require.ErrorIs(t, err, domain.ErrValidation)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "personal_info.phone")
		assert.Contains(t, verr.Fields, "personal_info.city")
		assert.Contains(t, verr.Fields, "payment_method")
		assert.Contains(t, verr.Fields, "items[0].quantity")
		assert.Contains(t, verr.Fields, "items[0].rental_days")
	})

	t.Run("Empty cart", func(t *testing.T) {
		f := newOrderFixture()
		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Unsupported receipt type", func(t *testing.T) {
		f := newOrderFixture()
		receipt := pdfReceipt()
		receipt.ContentType = "application/zip"

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodBank,
			PersonalInfo:  personalInfo(),
			Receipt:       receipt,
		})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "receipt")
	})

	t.Run("Receipt bytes do not match declared type", func(t *testing.T) {
		f := newOrderFixture()
		receipt := pdfReceipt()
		receipt.Content = strings.NewReader("#!/bin/sh\nrm -rf /\n")

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodBank,
			PersonalInfo:  personalInfo(),
			Receipt:       receipt,
		})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "receipt")
		files, _ := f.store.ListFiles(ctx, storage.ReceiptPrefix)
		assert.Empty(t, files)
		f.equipment.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
	})

	t.Run("Receipt stored under its detected type", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)
		f.orders.On("Create", ctx, mock.Anything).Return(nil)
		f.notifier.On("OrderCreated", ctx, mock.Anything).Return()

		png := "\x89PNG\r\n\x1a\n" + strings.Repeat("p", 600)
		receipt := pdfReceipt()
		receipt.Content = strings.NewReader(png)
		receipt.Size = int64(len(png))

		order, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodBank,
			PersonalInfo:  personalInfo(),
			Receipt:       receipt,
		})
		require.NoError(t, err)
		require.NotNil(t, order.ReceiptReference)
		assert.True(t, strings.HasSuffix(*order.ReceiptReference, ".png"))

		rc, err := f.store.ReadFile(ctx, *order.ReceiptReference)
		require.NoError(t, err)
		defer rc.Close()
		stored, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, png, string(stored))
	})

	t.Run("Rental longer than allowed", func(t *testing.T) {
		f := newOrderFixture()

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items: []service.CartItem{
				{EquipmentID: 2, Quantity: 1, RentalDays: math.MaxInt},
				{EquipmentID: 4, Quantity: 1, Period: &domain.RentalPeriod{Quantity: math.MaxInt / 3, Unit: domain.PeriodUnitMonth}},
			},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "items[0].rental_days")
		assert.Contains(t, verr.Fields, "items[1].rental_days")
		f.equipment.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
	})

	t.Run("Stale cart", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{}, nil)

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrStaleCart)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Insufficient stock across lines", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items: []service.CartItem{
				{EquipmentID: 2, Quantity: 2, RentalDays: 3},
				{EquipmentID: 2, Quantity: 2, RentalDays: 10},
			},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrStaleCart)
	})

	t.Run("Inactive equipment", func(t *testing.T) {
		f := newOrderFixture()
		e := wheelchair()
		e.Status = domain.EquipmentStatusUnavailable
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: e}, nil)

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrStaleCart)
	})

	t.Run("Multiple owners", func(t *testing.T) {
		f := newOrderFixture()
		bed := hospitalBed()
		bed.OwnerID = 11
		f.equipment.On("GetByIDs", ctx, []int32{2, 4}).Return(map[int32]*domain.Equipment{2: wheelchair(), 4: bed}, nil)

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items: []service.CartItem{
				{EquipmentID: 2, Quantity: 1, RentalDays: 3},
				{EquipmentID: 4, Quantity: 1, RentalDays: 30},
			},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Own equipment", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)

		_, err := f.svc.CreateOrder(ctx, ownerID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Negative catalog price", func(t *testing.T) {
		f := newOrderFixture()
		e := wheelchair()
		e.Price = decimal.NewFromInt(-5)
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: e}, nil)

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodCash,
			PersonalInfo:  personalInfo(),
		})
		assert.ErrorIs(t, err, domain.ErrDataIntegrity)
	})

	t.Run("Insert failure removes receipt", func(t *testing.T) {
		f := newOrderFixture()
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)
		f.orders.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

		order, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodBank,
			PersonalInfo:  personalInfo(),
			Receipt:       pdfReceipt(),
		})
		assert.Error(t, err)
		assert.Nil(t, order)
		files, _ := f.store.ListFiles(ctx, storage.ReceiptPrefix)
		assert.Empty(t, files)
		f.notifier.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything)
	})

	t.Run("Receipt storage failure", func(t *testing.T) {
		f := newOrderFixture()
		f.store.saveErr = errors.New("disk full")
		f.equipment.On("GetByIDs", ctx, []int32{2}).Return(map[int32]*domain.Equipment{2: wheelchair()}, nil)

		_, err := f.svc.CreateOrder(ctx, requesterID, service.CheckoutRequest{
			Items:         []service.CartItem{{EquipmentID: 2, Quantity: 1, RentalDays: 3}},
			PaymentMethod: domain.PaymentMethodBank,
			PersonalInfo:  personalInfo(),
			Receipt:       pdfReceipt(),
		})
		assert.ErrorContains(t, err, "disk full")
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestOrderService_QuoteCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()
	f.equipment.On("GetByIDs", ctx, []int32{2, 4}).Return(map[int32]*domain.Equipment{2: wheelchair(), 4: hospitalBed()}, nil)

	q, err := f.svc.QuoteCart(ctx, requesterID, []service.CartItem{
		{EquipmentID: 2, Quantity: 1, RentalDays: 28},
		{EquipmentID: 4, Quantity: 2, RentalDays: 63},
	})
	require.NoError(t, err)
	assert.Equal(t, ownerID, q.OwnerID)
	// 8400 + 1500 x 2 x 3 months
	assert.Equal(t, "17400", q.TotalAmount.String())
	// 210 + 2100
	assert.Equal(t, "2310", q.DepositAmount.String())
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:          testOrderID,
		RequesterID: requesterID,
		OwnerID:     ownerID,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(8400),
	}
}

func TestOrderService_TransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newOrderFixture()
		approved := pendingOrder()
		approved.Status = domain.OrderStatusApproved
		f.orders.On("GetByID", ctx, testOrderID).Return(pendingOrder(), nil)
		f.orders.On("UpdateStatusIfPending", ctx, testOrderID, domain.OrderStatusApproved).Return(approved, nil)
		f.notifier.On("OrderStatusChanged", ctx, approved).Return()

		o, err := f.svc.TransitionStatus(ctx, testOrderID, domain.OrderStatusApproved, ownerID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusApproved, o.Status)
		f.notifier.AssertExpectations(t)
	})

	t.Run("Not the owner", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("GetByID", ctx, testOrderID).Return(pendingOrder(), nil)

		_, err := f.svc.TransitionStatus(ctx, testOrderID, domain.OrderStatusApproved, requesterID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		f.orders.AssertNotCalled(t, "UpdateStatusIfPending", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Already decided", func(t *testing.T) {
		f := newOrderFixture()
		rejected := pendingOrder()
		rejected.Status = domain.OrderStatusRejected
		f.orders.On("GetByID", ctx, testOrderID).Return(rejected, nil)

		_, err := f.svc.TransitionStatus(ctx, testOrderID, domain.OrderStatusApproved, ownerID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Back to pending", func(t *testing.T) {
		f := newOrderFixture()
		_, err := f.svc.TransitionStatus(ctx, testOrderID, domain.OrderStatusPending, ownerID)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Malformed id", func(t *testing.T) {
		f := newOrderFixture()
		_, err := f.svc.TransitionStatus(ctx, "42", domain.OrderStatusApproved, ownerID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Missing order", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("GetByID", ctx, testOrderID).Return(nil, domain.ErrNotFound)

		_, err := f.svc.TransitionStatus(ctx, testOrderID, domain.OrderStatusRejected, ownerID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrderService_TransitionStatus_LogsExitOnEveryFailure(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	decided := pendingOrder()
	decided.Status = domain.OrderStatusApproved

	tests := []struct {
		name      string
		orderID   string
		status    domain.OrderStatus
		actingID  int32
		stored    *domain.Order
		expectErr error
	}{
		{"Non terminal status", testOrderID, domain.OrderStatusPending, ownerID, nil, domain.ErrValidation},
		{"Malformed id", "42", domain.OrderStatusApproved, ownerID, nil, domain.ErrNotFound},
		{"Not the owner", testOrderID, domain.OrderStatusApproved, requesterID, pendingOrder(), domain.ErrUnauthorized},
		{"Already decided", testOrderID, domain.OrderStatusRejected, ownerID, decided, domain.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			f := newOrderFixture()
			if tt.stored != nil {
				f.orders.On("GetByID", ctx, testOrderID).Return(tt.stored, nil)
			}

			_, err := f.svc.TransitionStatus(ctx, tt.orderID, tt.status, tt.actingID)
			require.ErrorIs(t, err, tt.expectErr)

			events := map[string]int{}
			for _, entry := range logs.FilterField(zap.String("method", "orderService.TransitionStatus")).All() {
				events[entry.ContextMap()["event"].(string)]++
			}
			assert.Equal(t, 1, events["enter"])
			assert.Equal(t, 1, events["exit"])
		})
	}
}

func TestOrderService_TransitionStatus_ConcurrentDecisions(t *testing.T) {
	ctx := context.Background()
	repo := newCASOrderRepo(*pendingOrder())
	notifier := new(MockNotifier)
	notifier.On("OrderStatusChanged", mock.Anything, mock.Anything).Return()
	svc := service.NewOrderService(repo, new(MockEquipmentRepo), newMemStorage(), receiptPolicy, notifier)

	decisions := []domain.OrderStatus{domain.OrderStatusApproved, domain.OrderStatusRejected}
	errs := make([]error, len(decisions))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, status := range decisions {
		wg.Add(1)
		go func(i int, status domain.OrderStatus) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.TransitionStatus(ctx, testOrderID, status, ownerID)
		}(i, status)
	}
	close(start)
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrInvalidTransition):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	final, err := repo.GetByID(ctx, testOrderID)
	require.NoError(t, err)
	assert.True(t, final.Status.Terminal())
	notifier.AssertNumberOfCalls(t, "OrderStatusChanged", 1)
}

func TestOrderService_Reads(t *testing.T) {
	ctx := context.Background()

	t.Run("GetOrder hides foreign orders", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("GetByID", ctx, testOrderID).Return(pendingOrder(), nil)

		_, err := f.svc.GetOrder(ctx, 99, testOrderID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		o, err := f.svc.GetOrder(ctx, requesterID, testOrderID)
		require.NoError(t, err)
		assert.Equal(t, testOrderID, o.ID)
	})

	t.Run("ListOwnerOrders clamps paging", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("ListByOwner", ctx, ownerID, domain.OrderStatusPending, int32(1), int32(100)).Return([]domain.Order{*pendingOrder()}, int32(1), nil)

		orders, count, err := f.svc.ListOwnerOrders(ctx, ownerID, domain.OrderStatusPending, 0, 500)
		require.NoError(t, err)
		assert.Equal(t, int32(1), count)
		assert.Len(t, orders, 1)
	})

	t.Run("ListMyOrders rejects unknown status", func(t *testing.T) {
		f := newOrderFixture()
		_, _, err := f.svc.ListMyOrders(ctx, requesterID, "shipped", 1, 20)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("OpenReceipt", func(t *testing.T) {
		f := newOrderFixture()
		key := "receipts/abc.pdf"
		_, _ = f.store.SaveFile(ctx, key, strings.NewReader("%PDF"))
		o := pendingOrder()
		o.ReceiptReference = &key
		f.orders.On("GetByID", ctx, testOrderID).Return(o, nil)

		rc, contentType, err := f.svc.OpenReceipt(ctx, ownerID, testOrderID)
		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, "application/pdf", contentType)
	})

	t.Run("OpenReceipt without receipt", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("GetByID", ctx, testOrderID).Return(pendingOrder(), nil)

		_, _, err := f.svc.OpenReceipt(ctx, ownerID, testOrderID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
