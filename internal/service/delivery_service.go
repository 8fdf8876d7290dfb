package service

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

type deliveryService struct {
	repo   repository.DeliveryMethodRepository
	logger zerolog.Logger
}

// NewDeliveryService creates a delivery service backed by repo.
func NewDeliveryService(repo repository.DeliveryMethodRepository, logger zerolog.Logger) DeliveryService {
	return &deliveryService{
		repo:   repo,
		logger: logger.With().Str("service", "delivery").Logger(),
	}
}

// List never fails: a broken or empty catalogue degrades to the default methods.
func (s *deliveryService) List(ctx context.Context) ([]model.DeliveryMethod, error) {
	methods, err := s.repo.GetActive(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load delivery methods, using defaults")
		return model.DefaultDeliveryMethods(), nil
	}
	if len(methods) == 0 {
		s.logger.Warn().Msg("no active delivery methods configured, using defaults")
		return model.DefaultDeliveryMethods(), nil
	}
	return methods, nil
}
