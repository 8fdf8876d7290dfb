package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// productService serves the storefront catalogue.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List returns one catalogue page. A non-positive limit means the default page size and
// larger limits are capped at MaxPageSize.
func (s *productService) List(ctx context.Context, q model.ProductQuery) ([]model.Product, error) {
	q.Category = strings.TrimSpace(q.Category)
	switch {
	case q.Limit <= 0:
		q.Limit = model.DefaultPageSize
	case q.Limit > model.MaxPageSize:
		q.Limit = model.MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	products, err := s.productRepo.List(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).
			Str("category", q.Category).
			Int("limit", q.Limit).
			Int("offset", q.Offset).
			Msg("failed to list catalogue")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Str("category", q.Category).
		Bool("in_stock_only", q.InStockOnly).
		Msg("listed catalogue page")

	return products, nil
}

// Get returns the product shown on a product page, which is also the price and stock
// ceiling a cart line starts from.
func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to load product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	return product, nil
}
