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

// PartyRepository implements usecase.PartyRepository over the accounts and partners
// tables, which share one id namespace.
type PartyRepository struct {
	pool    dbtx
	retrier *Retrier
}

// NewPartyRepository creates a new PartyRepository.
func NewPartyRepository(pool *pgxpool.Pool, retrier *Retrier) *PartyRepository {
	return newPartyRepositoryWithPool(pool, retrier)
}

func newPartyRepositoryWithPool(pool dbtx, retrier *Retrier) *PartyRepository {
	return &PartyRepository{pool: pool, retrier: retrier}
}

// GetParty resolves ref to an account first, then to a partner.
func (r *PartyRepository) GetParty(ctx context.Context, ref string) (*domain.Party, error) {
	var account *domain.Account
	err := r.retrier.Retry(ctx, func() error {
		var err error
		account, err = scanAccount(r.pool.QueryRow(ctx,
			`SELECT id, code, name, type, factory_id, created_at FROM accounts WHERE id = $1`, ref))
		return err
	})
	if err == nil {
		return &domain.Party{Account: account}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var partner *domain.Partner
	err = r.retrier.Retry(ctx, func() error {
		var err error
		partner, err = scanPartner(r.pool.QueryRow(ctx,
			`SELECT id, name, type, parent_supplier_id, factory_id, created_at FROM partners WHERE id = $1`, ref))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPartyNotFound, ref)
		}
		return nil, err
	}

	return &domain.Party{Partner: partner}, nil
}

// ListAccounts returns the chart of accounts ordered by code.
func (r *PartyRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var accounts []*domain.Account

	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, code, name, type, factory_id, created_at FROM accounts ORDER BY code`)
		if err != nil {
			return err
		}
		defer rows.Close()

		accounts = accounts[:0]
		for rows.Next() {
			a, err := scanAccount(rows)
			if err != nil {
				return err
			}
			accounts = append(accounts, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a         domain.Account
		accType   string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &accType, &a.FactoryID, &createdAt); err != nil {
		return nil, err
	}
	a.Type = domain.AccountType(accType)
	a.CreatedAt = createdAt.Time
	return &a, nil
}

func scanPartner(row pgx.Row) (*domain.Partner, error) {
	var (
		p           domain.Partner
		partnerType string
		parent      pgtype.Text
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(&p.ID, &p.Name, &partnerType, &parent, &p.FactoryID, &createdAt); err != nil {
		return nil, err
	}
	p.Type = domain.PartnerType(partnerType)
	p.ParentSupplierID = parent.String
	p.CreatedAt = createdAt.Time
	return &p, nil
}
