package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/factoryledger/internal/domain"
)

// ItemRepository implements usecase.ItemRepository.
type ItemRepository struct {
	pool    dbtx
	retrier *Retrier
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(pool *pgxpool.Pool, retrier *Retrier) *ItemRepository {
	return newItemRepositoryWithPool(pool, retrier)
}

func newItemRepositoryWithPool(pool dbtx, retrier *Retrier) *ItemRepository {
	return &ItemRepository{pool: pool, retrier: retrier}
}

// GetByID retrieves an item by ID.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	var (
		item              domain.Item
		quantity, avgCost pgtype.Numeric
		updatedAt         pgtype.Timestamptz
	)

	err := r.retrier.Retry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, code, name, quantity, avg_cost, updated_at FROM items WHERE id = $1`, id,
		).Scan(&item.ID, &item.Code, &item.Name, &quantity, &avgCost, &updatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
		}
		return nil, err
	}

	item.Quantity = numericToDecimal(quantity)
	item.AvgCost = numericToDecimal(avgCost)
	item.UpdatedAt = updatedAt.Time

	return &item, nil
}

// Update stores the item's quantity and average cost.
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	return r.retrier.Retry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE items SET quantity = $2, avg_cost = $3, updated_at = $4 WHERE id = $1`,
			item.ID,
			decimalToNumeric(item.Quantity),
			decimalToNumeric(item.AvgCost),
			timeToPgTimestamptz(item.UpdatedAt),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, item.ID)
		}
		return nil
	})
}
