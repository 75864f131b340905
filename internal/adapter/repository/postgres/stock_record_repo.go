package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/factoryledger/internal/domain"
)

const purchaseColumns = `id, purchase_date, type_id, type_name, supplier_id, supplier_name,
	sub_supplier_id, sub_supplier_name, product_id, weight, amount`

// StockRecordRepository implements usecase.StockRecordRepository over the purchase,
// opening and direct-sale tables.
type StockRecordRepository struct {
	pool    dbtx
	retrier *Retrier
}

// NewStockRecordRepository creates a new StockRecordRepository.
func NewStockRecordRepository(pool *pgxpool.Pool, retrier *Retrier) *StockRecordRepository {
	return newStockRecordRepositoryWithPool(pool, retrier)
}

func newStockRecordRepositoryWithPool(pool dbtx, retrier *Retrier) *StockRecordRepository {
	return &StockRecordRepository{pool: pool, retrier: retrier}
}

// GetPurchase retrieves one purchase line.
func (r *StockRecordRepository) GetPurchase(ctx context.Context, id string) (*domain.PurchaseRecord, error) {
	var p *domain.PurchaseRecord
	err := r.retrier.Retry(ctx, func() error {
		var err error
		p, err = scanPurchase(r.pool.QueryRow(ctx,
			`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPurchaseNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// ListPurchases returns every purchase line by date.
func (r *StockRecordRepository) ListPurchases(ctx context.Context) ([]*domain.PurchaseRecord, error) {
	var out []*domain.PurchaseRecord
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+purchaseColumns+` FROM purchases ORDER BY purchase_date, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			p, err := scanPurchase(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// ListOpenings returns every opening by date.
func (r *StockRecordRepository) ListOpenings(ctx context.Context) ([]*domain.OpeningRecord, error) {
	var out []*domain.OpeningRecord
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, opening_date, type_id, supplier_id, weight FROM openings ORDER BY opening_date, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				o      domain.OpeningRecord
				date   pgtype.Timestamptz
				weight pgtype.Numeric
			)
			if err := rows.Scan(&o.ID, &date, &o.TypeID, &o.SupplierID, &weight); err != nil {
				return err
			}
			o.Date = date.Time.UTC()
			o.Weight = numericToDecimal(weight)
			out = append(out, &o)
		}
		return rows.Err()
	})
	return out, err
}

// ListDirectSales returns every direct-sale line by date.
func (r *StockRecordRepository) ListDirectSales(ctx context.Context) ([]*domain.DirectSaleRecord, error) {
	var out []*domain.DirectSaleRecord
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, sale_date, transaction_id, purchase_id, weight, posted
			 FROM direct_sales ORDER BY sale_date, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				s      domain.DirectSaleRecord
				date   pgtype.Timestamptz
				weight pgtype.Numeric
			)
			if err := rows.Scan(&s.ID, &date, &s.TransactionID, &s.PurchaseID, &weight, &s.Posted); err != nil {
				return err
			}
			s.Date = date.Time.UTC()
			s.Weight = numericToDecimal(weight)
			out = append(out, &s)
		}
		return rows.Err()
	})
	return out, err
}

// CreateDirectSale records one sale line.
func (r *StockRecordRepository) CreateDirectSale(ctx context.Context, sale *domain.DirectSaleRecord) error {
	return r.retrier.Retry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO direct_sales (id, sale_date, transaction_id, purchase_id, weight, posted)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sale.ID,
			timeToPgTimestamptz(sale.Date),
			sale.TransactionID,
			sale.PurchaseID,
			decimalToNumeric(sale.Weight),
			sale.Posted,
		)
		return err
	})
}

// DeleteDirectSales removes the sale lines of one transaction.
func (r *StockRecordRepository) DeleteDirectSales(ctx context.Context, transactionID string) error {
	return r.retrier.Retry(ctx, func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM direct_sales WHERE transaction_id = $1`, transactionID)
		return err
	})
}

func scanPurchase(row pgx.Row) (*domain.PurchaseRecord, error) {
	var (
		p              domain.PurchaseRecord
		date           pgtype.Timestamptz
		weight, amount pgtype.Numeric
	)
	err := row.Scan(
		&p.ID,
		&date,
		&p.TypeID,
		&p.TypeName,
		&p.SupplierID,
		&p.SupplierName,
		&p.SubSupplierID,
		&p.SubSupplierName,
		&p.ProductID,
		&weight,
		&amount,
	)
	if err != nil {
		return nil, err
	}
	p.Date = date.Time.UTC()
	p.Weight = numericToDecimal(weight)
	p.Amount = numericToDecimal(amount)
	return &p, nil
}
