package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// StockAdjustmentRepository implements usecase.StockAdjustmentRepository. Side-records
// draw their sequence from ledger_seq so they order with the entries they accompany.
type StockAdjustmentRepository struct {
	pool    dbtx
	retrier *Retrier
}

// NewStockAdjustmentRepository creates a new StockAdjustmentRepository.
func NewStockAdjustmentRepository(pool *pgxpool.Pool, retrier *Retrier) *StockAdjustmentRepository {
	return newStockAdjustmentRepositoryWithPool(pool, retrier)
}

func newStockAdjustmentRepositoryWithPool(pool dbtx, retrier *Retrier) *StockAdjustmentRepository {
	return &StockAdjustmentRepository{pool: pool, retrier: retrier}
}

// Create inserts one side-record. A preset Sequence is kept, otherwise one is drawn.
func (r *StockAdjustmentRepository) Create(ctx context.Context, tx usecase.Transaction, adj *domain.StockAdjustment) error {
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}

	return conn(r.pool, tx).QueryRow(ctx, `
		INSERT INTO stock_adjustments (
			transaction_id, line_no, direction, type_id, type_name, supplier_id, supplier_name,
			sub_supplier_id, product_id, weight, worth, target_weight, target_worth,
			set_to_zero, zero_worth, reason, narration, created_at, seq
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			COALESCE($19::bigint, nextval('ledger_seq')))
		RETURNING seq`,
		adj.TransactionID,
		adj.LineNo,
		string(adj.Direction),
		adj.TypeID,
		adj.TypeName,
		adj.SupplierID,
		adj.SupplierName,
		adj.SubSupplierID,
		adj.ProductID,
		decimalPtrToNumeric(adj.Weight),
		decimalToNumeric(adj.Worth),
		decimalPtrToNumeric(adj.TargetWeight),
		decimalPtrToNumeric(adj.TargetWorth),
		adj.SetToZero,
		adj.ZeroWorth,
		adj.Reason,
		adj.Narration,
		timeToPgTimestamptz(adj.CreatedAt),
		sequenceToInt8(adj.Sequence),
	).Scan(&adj.Sequence)
}

const adjustmentColumns = `seq, transaction_id, line_no, direction, type_id, type_name, supplier_id,
	supplier_name, sub_supplier_id, product_id, weight, worth, target_weight,
	target_worth, set_to_zero, zero_worth, reason, narration, created_at`

// ListAll returns every side-record in log order.
func (r *StockAdjustmentRepository) ListAll(ctx context.Context) ([]*domain.StockAdjustment, error) {
	return r.list(ctx, `SELECT `+adjustmentColumns+` FROM stock_adjustments ORDER BY seq, transaction_id, line_no`)
}

// ListByTransaction returns the side-records of one transaction by line.
func (r *StockAdjustmentRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.StockAdjustment, error) {
	return r.list(ctx,
		`SELECT `+adjustmentColumns+` FROM stock_adjustments WHERE transaction_id = $1 ORDER BY line_no`,
		transactionID,
	)
}

func (r *StockAdjustmentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.StockAdjustment, error) {
	var out []*domain.StockAdjustment

	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				a                                        domain.StockAdjustment
				direction                                string
				weight, worth, targetWeight, targetWorth pgtype.Numeric
				createdAt                                pgtype.Timestamptz
			)
			err := rows.Scan(
				&a.Sequence,
				&a.TransactionID,
				&a.LineNo,
				&direction,
				&a.TypeID,
				&a.TypeName,
				&a.SupplierID,
				&a.SupplierName,
				&a.SubSupplierID,
				&a.ProductID,
				&weight,
				&worth,
				&targetWeight,
				&targetWorth,
				&a.SetToZero,
				&a.ZeroWorth,
				&a.Reason,
				&a.Narration,
				&createdAt,
			)
			if err != nil {
				return err
			}
			a.Direction = domain.AdjustmentDirection(direction)
			a.Weight = numericToDecimalPtr(weight)
			a.Worth = numericToDecimal(worth)
			a.TargetWeight = numericToDecimalPtr(targetWeight)
			a.TargetWorth = numericToDecimalPtr(targetWorth)
			a.CreatedAt = createdAt.Time
			out = append(out, &a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// DeleteByTransaction removes the side-records of one transaction.
func (r *StockAdjustmentRepository) DeleteByTransaction(ctx context.Context, tx usecase.Transaction, transactionID string) error {
	_, err := conn(r.pool, tx).Exec(ctx, `DELETE FROM stock_adjustments WHERE transaction_id = $1`, transactionID)
	return err
}
