package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/factoryledger/internal/domain"
)

// EditLogRepository implements usecase.EditLogRepository. Each row keeps the captured
// original entries as JSON so a stuck transaction can be restored by hand.
type EditLogRepository struct {
	pool    dbtx
	retrier *Retrier
}

// NewEditLogRepository creates a new edit log repository.
func NewEditLogRepository(pool *pgxpool.Pool, retrier *Retrier) *EditLogRepository {
	return newEditLogRepositoryWithPool(pool, retrier)
}

func newEditLogRepositoryWithPool(pool dbtx, retrier *Retrier) *EditLogRepository {
	return &EditLogRepository{pool: pool, retrier: retrier}
}

// Create inserts a new edit log row.
func (r *EditLogRepository) Create(ctx context.Context, rec *domain.EditRecord) error {
	query := `
		INSERT INTO edit_log (
			id, transaction_id, kind, state, status, original, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return r.retrier.Retry(ctx, func() error {
		_, err := r.pool.Exec(ctx, query,
			rec.ID,
			rec.TransactionID,
			string(rec.Kind),
			string(rec.State),
			string(rec.Status),
			domain.MarshalEntries(rec.Original),
			rec.ErrorMessage,
			timeToPgTimestamptz(rec.CreatedAt),
		)
		return err
	})
}

// ListByStatus retrieves edit log rows with the given status, newest first.
func (r *EditLogRepository) ListByStatus(ctx context.Context, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, error) {
	query := `
		SELECT id, transaction_id, kind, state, status, original, error_message, created_at
		FROM edit_log
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT NULLIF($2, 0) OFFSET $3
	`

	var records []*domain.EditRecord
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var (
				rec                       domain.EditRecord
				kind, state, recordStatus string
				original                  []byte
				createdAt                 pgtype.Timestamptz
			)
			err := rows.Scan(
				&rec.ID,
				&rec.TransactionID,
				&kind,
				&state,
				&recordStatus,
				&original,
				&rec.ErrorMessage,
				&createdAt,
			)
			if err != nil {
				return err
			}

			rec.Kind = domain.VoucherKind(kind)
			rec.State = domain.EditState(state)
			rec.Status = domain.EditStatus(recordStatus)
			rec.CreatedAt = createdAt.Time

			rec.Original, err = domain.UnmarshalEntries(original)
			if err != nil {
				return fmt.Errorf("decode edit log %s: %w", rec.ID, err)
			}

			records = append(records, &rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
