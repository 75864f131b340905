package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

const entryColumns = `id, seq, transaction_id, entry_date, account_ref, account_name, kind,
	currency, rate, fcy_amount, debit, credit, narration, factory_id,
	reporting_only, is_adjustment, created_at`

// EntryRepository implements usecase.EntryStore. Entries are never updated; an edit
// deletes and re-appends a whole transaction.
type EntryRepository struct {
	pool    dbtx
	ids     usecase.IDGenerator
	retrier *Retrier
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool, ids usecase.IDGenerator, retrier *Retrier) *EntryRepository {
	return newEntryRepositoryWithPool(pool, ids, retrier)
}

func newEntryRepositoryWithPool(pool dbtx, ids usecase.IDGenerator, retrier *Retrier) *EntryRepository {
	return &EntryRepository{pool: pool, ids: ids, retrier: retrier}
}

// Append inserts entries in order. ID, Sequence and CreatedAt are assigned by the store
// unless already set; restored entries keep their original Sequence.
func (r *EntryRepository) Append(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error {
	q := conn(r.pool, tx)

	query := `
		INSERT INTO ledger_entries (
			id, transaction_id, entry_date, account_ref, account_name, kind,
			currency, rate, fcy_amount, debit, credit, narration, factory_id,
			reporting_only, is_adjustment, seq
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			COALESCE($16::bigint, nextval('ledger_seq')))
		RETURNING seq, created_at
	`

	for _, e := range entries {
		if e.ID == "" {
			e.ID = r.ids.Generate()
		}

		err := q.QueryRow(ctx, query,
			e.ID,
			e.TransactionID,
			timeToPgTimestamptz(e.Date),
			e.AccountRef,
			e.AccountName,
			string(e.Kind),
			e.Currency,
			decimalToNumeric(e.Rate),
			decimalToNumeric(e.FCYAmount),
			decimalToNumeric(e.Debit),
			decimalToNumeric(e.Credit),
			e.Narration,
			e.FactoryID,
			e.ReportingOnly,
			e.IsAdjustment,
			sequenceToInt8(e.Sequence),
		).Scan(&e.Sequence, &e.CreatedAt)
		if err != nil {
			return err
		}
	}

	return nil
}

// QueryByTransaction returns the entries of one transaction in append order.
func (r *EntryRepository) QueryByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	return r.list(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = $1 ORDER BY seq`,
		transactionID,
	)
}

// DeleteByTransaction removes every entry of a transaction.
func (r *EntryRepository) DeleteByTransaction(ctx context.Context, tx usecase.Transaction, transactionID string) (int64, error) {
	tag, err := conn(r.pool, tx).Exec(ctx, `DELETE FROM ledger_entries WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListAll returns the whole log in append order.
func (r *EntryRepository) ListAll(ctx context.Context) ([]*domain.LedgerEntry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM ledger_entries ORDER BY seq`)
}

// ListByAccount returns entries of accountRef, newest first. A zero limit returns all.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountRef string, limit, offset int) ([]*domain.LedgerEntry, error) {
	return r.list(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE account_ref = $1
		 ORDER BY seq DESC
		 LIMIT NULLIF($2, 0) OFFSET $3`,
		accountRef, limit, offset,
	)
}

// EarliestDate returns the earliest entry date of accountRef, or of the whole log.
func (r *EntryRepository) EarliestDate(ctx context.Context, accountRef string) (*time.Time, error) {
	var earliest pgtype.Timestamptz

	err := r.retrier.Retry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT MIN(entry_date) FROM ledger_entries WHERE $1 = '' OR account_ref = $1`,
			accountRef,
		).Scan(&earliest)
	})
	if err != nil {
		return nil, err
	}

	if !earliest.Valid {
		return nil, nil
	}
	t := earliest.Time.UTC()
	return &t, nil
}

func (r *EntryRepository) list(ctx context.Context, query string, args ...any) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry

	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e                        domain.LedgerEntry
		kind                     string
		date, createdAt          pgtype.Timestamptz
		rate, fcy, debit, credit pgtype.Numeric
	)

	err := row.Scan(
		&e.ID,
		&e.Sequence,
		&e.TransactionID,
		&date,
		&e.AccountRef,
		&e.AccountName,
		&kind,
		&e.Currency,
		&rate,
		&fcy,
		&debit,
		&credit,
		&e.Narration,
		&e.FactoryID,
		&e.ReportingOnly,
		&e.IsAdjustment,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = domain.VoucherKind(kind)
	e.Date = date.Time.UTC()
	e.CreatedAt = createdAt.Time
	e.Rate = numericToDecimal(rate)
	e.FCYAmount = numericToDecimal(fcy)
	e.Debit = numericToDecimal(debit)
	e.Credit = numericToDecimal(credit)

	return &e, nil
}
