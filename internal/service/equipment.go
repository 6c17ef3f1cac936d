package service

import (
	"context"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/repository"
)

type equipmentService struct {
	equipmentRepo repository.EquipmentRepository
	orderRepo     repository.OrderRepository
}

func NewEquipmentService(equipmentRepo repository.EquipmentRepository, orderRepo repository.OrderRepository) EquipmentService {
	return &equipmentService{
		equipmentRepo: equipmentRepo,
		orderRepo:     orderRepo,
	}
}

func (s *equipmentService) GetEquipment(ctx context.Context, id int32) (*domain.Equipment, error) {
	return s.equipmentRepo.GetByID(ctx, id)
}

func (s *equipmentService) ListEquipment(ctx context.Context, category string, page, pageSize int32) ([]domain.Equipment, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.equipmentRepo.List(ctx, category, page, pageSize)
}

// OwnerDashboard summarizes an owner's catalog and the revenue of approved orders.
func (s *equipmentService) OwnerDashboard(ctx context.Context, ownerID int32) (*domain.OwnerDashboard, error) {
	d, err := s.equipmentRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orderRepo.ApprovedRevenue(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	d.Revenue = revenue
	return d, nil
}
