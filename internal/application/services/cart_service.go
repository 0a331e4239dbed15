package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

type CartService struct {
	repo   ports.CartRepository
	logger *logrus.Logger
}

func NewCartService(repo ports.CartRepository, logger *logrus.Logger) ports.CartService {
	return &CartService{repo: repo, logger: logger}
}

func (s *CartService) StoreCart(ctx context.Context, req *cart.StoreCartRequest) (*cart.Cart, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" || len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: user id and items are required", cart.ErrInvalidCart)
	}
	stored, err := s.repo.Store(ctx, cart.New(req.UserID, req.Items))
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("user_id", req.UserID).WithError(err).Error("failed to store cart")
		}
		return nil, fmt.Errorf("failed to store cart: %w", err)
	}
	return stored, nil
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*cart.Cart, bool, error) {
	c, found, err := s.repo.Retrieve(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cart: %w", err)
	}
	return c, found, nil
}

func (s *CartService) DeleteCart(ctx context.Context, userID string) (bool, error) {
	existed, err := s.repo.Delete(ctx, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("user_id", userID).WithError(err).Error("failed to delete cart")
		}
		return false, fmt.Errorf("failed to delete cart: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "existed": existed}).Info("cart delete requested")
	}
	return existed, nil
}
