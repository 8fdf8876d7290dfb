package database

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedProducts upserts products in one transaction. Existing rows get the new name, price,
// image and category; their stock is only overwritten when resetStock is set.
func SeedProducts(ctx context.Context, pool *pgxpool.Pool, products []model.Product, resetStock bool) error {
	query := `
		INSERT INTO products (id, name, price, stock, image_url, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			category = EXCLUDED.category`
	if resetStock {
		query += `,
			stock = EXCLUDED.stock`
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(query, p.ID, p.Name, p.Price, p.Stock, p.ImageURL, p.Category)
		}

		results := tx.SendBatch(ctx, batch)
		for _, p := range products {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
			}
		}
		return results.Close()
	})
}
