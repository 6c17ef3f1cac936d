package service

import (
	"context"
	"fmt"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"
)

type favoriteService struct {
	favoriteRepo  repository.FavoriteRepository
	equipmentRepo repository.EquipmentRepository
}

func NewFavoriteService(favoriteRepo repository.FavoriteRepository, equipmentRepo repository.EquipmentRepository) FavoriteService {
	return &favoriteService{
		favoriteRepo:  favoriteRepo,
		equipmentRepo: equipmentRepo,
	}
}

func (s *favoriteService) ListFavorites(ctx context.Context, userID int32) ([]domain.Favorite, error) {
	return s.favoriteRepo.List(ctx, userID)
}

// AddFavorite bookmarks catalog equipment that has not been deleted.
func (s *favoriteService) AddFavorite(ctx context.Context, userID, equipmentID int32) error {
	logger.EnterMethod("favoriteService.AddFavorite", "user_id", userID, "equipment_id", equipmentID)

	e, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("favoriteService.AddFavorite", err)
		return err
	}
	if e.DeletedOn != nil {
		err := fmt.Errorf("%w: equipment %d", domain.ErrNotFound, equipmentID)
		logger.ExitMethodWithError("favoriteService.AddFavorite", err)
		return err
	}

	if err := s.favoriteRepo.Add(ctx, userID, equipmentID); err != nil {
		logger.ExitMethodWithError("favoriteService.AddFavorite", err)
		return err
	}

	logger.ExitMethod("favoriteService.AddFavorite")
	return nil
}

func (s *favoriteService) RemoveFavorite(ctx context.Context, userID, equipmentID int32) error {
	return s.favoriteRepo.Remove(ctx, userID, equipmentID)
}
