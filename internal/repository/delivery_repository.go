package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// deliveryMethodRepository implements DeliveryMethodRepository using PostgreSQL.
type deliveryMethodRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDeliveryMethodRepository creates a new PostgreSQL-backed delivery method repository.
func NewDeliveryMethodRepository(pool *pgxpool.Pool, logger zerolog.Logger) DeliveryMethodRepository {
	return &deliveryMethodRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "delivery_method").Logger(),
	}
}

func (r *deliveryMethodRepository) GetActive(ctx context.Context) ([]model.DeliveryMethod, error) {
	query := `
		SELECT id, name, description, price, min_days, max_days, active
		FROM delivery_methods
		WHERE active
		ORDER BY sort_order, price
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query delivery methods")
		return nil, fmt.Errorf("failed to query delivery methods: %w", err)
	}
	defer rows.Close()

	methods := []model.DeliveryMethod{}
	for rows.Next() {
		var m model.DeliveryMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.MinDays, &m.MaxDays, &m.Active); err != nil {
			return nil, fmt.Errorf("failed to scan delivery method: %w", err)
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery methods: %w", err)
	}

	return methods, nil
}

func (r *deliveryMethodRepository) GetByID(ctx context.Context, id string) (*model.DeliveryMethod, error) {
	query := `
		SELECT id, name, description, price, min_days, max_days, active
		FROM delivery_methods
		WHERE id = $1
	`

	var m model.DeliveryMethod
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.MinDays, &m.MaxDays, &m.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("delivery_method_id", id).Msg("failed to query delivery method")
		return nil, fmt.Errorf("failed to query delivery method: %w", err)
	}
	return &m, nil
}
