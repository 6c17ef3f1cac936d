package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockEquipmentRepo
type MockEquipmentRepo struct {
	mock.Mock
}

func (m *MockEquipmentRepo) GetByID(ctx context.Context, id int32) (*domain.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}
func (m *MockEquipmentRepo) GetByIDs(ctx context.Context, ids []int32) (map[int32]*domain.Equipment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int32]*domain.Equipment), args.Error(1)
}
func (m *MockEquipmentRepo) List(ctx context.Context, category string, page, pageSize int32) ([]domain.Equipment, int32, error) {
	args := m.Called(ctx, category, page, pageSize)
	return args.Get(0).([]domain.Equipment), args.Get(1).(int32), args.Error(2)
}
func (m *MockEquipmentRepo) CountByOwner(ctx context.Context, ownerID int32) (*domain.OwnerDashboard, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OwnerDashboard), args.Error(1)
}

// MockOrderRepo
type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}
func (m *MockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
func (m *MockOrderRepo) UpdateStatusIfPending(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
func (m *MockOrderRepo) ListByOwner(ctx context.Context, ownerID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	args := m.Called(ctx, ownerID, status, page, pageSize)
	return args.Get(0).([]domain.Order), args.Get(1).(int32), args.Error(2)
}
func (m *MockOrderRepo) ListByRequester(ctx context.Context, requesterID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	args := m.Called(ctx, requesterID, status, page, pageSize)
	return args.Get(0).([]domain.Order), args.Get(1).(int32), args.Error(2)
}
func (m *MockOrderRepo) CountByStatus(ctx context.Context, ownerID int32) (*domain.OrderStats, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderStats), args.Error(1)
}
func (m *MockOrderRepo) ApprovedRevenue(ctx context.Context, ownerID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockOrderRepo) ListPendingCreatedBefore(ctx context.Context, before time.Time) ([]domain.Order, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]domain.Order), args.Error(1)
}
func (m *MockOrderRepo) ReferencedReceipts(ctx context.Context, keys []string) (map[string]bool, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockOrderRepo) SharesOrder(ctx context.Context, a, b int32) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

// MockFavoriteRepo
type MockFavoriteRepo struct {
	mock.Mock
}

func (m *MockFavoriteRepo) List(ctx context.Context, userID int32) ([]domain.Favorite, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Favorite), args.Error(1)
}
func (m *MockFavoriteRepo) Add(ctx context.Context, userID, equipmentID int32) error {
	return m.Called(ctx, userID, equipmentID).Error(0)
}
func (m *MockFavoriteRepo) Remove(ctx context.Context, userID, equipmentID int32) error {
	return m.Called(ctx, userID, equipmentID).Error(0)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderCreated(ctx context.Context, order *domain.Order) {
	m.Called(ctx, order)
}
func (m *MockNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order) {
	m.Called(ctx, order)
}
func (m *MockNotifier) Wait() {}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendNewOrderNotification(ctx context.Context, ownerEmail, ownerName, requesterName string, order *domain.Order) error {
	args := m.Called(ctx, ownerEmail, ownerName, requesterName, order)
	return args.Error(0)
}
func (m *MockEmailService) SendOrderStatusNotification(ctx context.Context, requesterEmail, requesterName string, order *domain.Order) error {
	args := m.Called(ctx, requesterEmail, requesterName, order)
	return args.Error(0)
}
func (m *MockEmailService) SendPendingOrdersReminder(ctx context.Context, ownerEmail, ownerName string, orders []domain.Order) error {
	args := m.Called(ctx, ownerEmail, ownerName, orders)
	return args.Error(0)
}

// MockPushService
type MockPushService struct {
	mock.Mock
}

func (m *MockPushService) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	args := m.Called(ctx, token, title, body, data)
	return args.Error(0)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// memStorage keeps files in memory.
type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) SaveFile(ctx context.Context, key string, reader io.Reader) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return int64(len(data)), nil
}
func (s *memStorage) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
func (s *memStorage) FileExists(ctx context.Context, key string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	return ok, int64(len(data)), nil
}
func (s *memStorage) DeleteFile(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}
func (s *memStorage) ListFiles(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.FileInfo
	for k, v := range s.files {
		out = append(out, storage.FileInfo{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

// casOrderRepo is an in-memory order store whose conditional update
// behaves like the SQL one: only a pending row can move.
type casOrderRepo struct {
	MockOrderRepo
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newCASOrderRepo(orders ...domain.Order) *casOrderRepo {
	r := &casOrderRepo{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *casOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (r *casOrderRepo) UpdateStatusIfPending(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidTransition, id, o.Status)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.orders[id] = o
	return &o, nil
}
