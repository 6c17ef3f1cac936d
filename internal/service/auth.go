package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"
	"medrent-backend/internal/security"

	"golang.org/x/crypto/bcrypt"
)

type authService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	tokens    security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, orderRepo repository.OrderRepository, tokens security.TokenManager) AuthService {
	return &authService{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		tokens:    tokens,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	logger.EnterMethod("authService.Login", "email", email)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		logger.ExitMethodWithError("authService.Login", err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		logger.ExitMethodWithError("authService.Login", err)
		return nil, err
	}

	logger.ExitMethod("authService.Login", "user_id", user.ID)
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user.Contact(),
	}, nil
}

func (s *authService) GetContact(ctx context.Context, callerID, userID int32) (*domain.Contact, error) {
	if callerID != userID {
		shared, err := s.orderRepo.SharesOrder(ctx, callerID, userID)
		if err != nil {
			return nil, err
		}
		if !shared {
			return nil, fmt.Errorf("%w: contact of user %d", domain.ErrUnauthorized, userID)
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := user.Contact()
	return &c, nil
}
