package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
)

// PartyBalance is a party's live balance in its normal sign.
type PartyBalance struct {
	Party   *domain.Party
	Balance decimal.Decimal
	// Entries is the number of non-reporting entries that contributed.
	Entries int
}

// LedgerUseCase answers balance and transaction queries from the entry log.
type LedgerUseCase struct {
	entries EntryStore
	parties PartyRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(entries EntryStore, parties PartyRepository) *LedgerUseCase {
	return &LedgerUseCase{
		entries: entries,
		parties: parties,
	}
}

// Balance replays every entry of ref. Reporting-only entries are excluded.
func (uc *LedgerUseCase) Balance(ctx context.Context, ref string) (*PartyBalance, error) {
	party, err := uc.parties.GetParty(ctx, ref)
	if err != nil {
		return nil, err
	}

	entries, err := uc.entries.ListByAccount(ctx, ref, 0, 0)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query", Err: err}
	}

	count := 0
	for _, e := range entries {
		if !e.ReportingOnly {
			count++
		}
	}

	return &PartyBalance{
		Party:   party,
		Balance: domain.Balance(entries, ref, party.DebitNormal()),
		Entries: count,
	}, nil
}

// GetTransaction returns the entries of one transaction.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	entries, err := uc.entries.QueryByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query", TransactionID: transactionID, Err: err}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, transactionID)
	}
	return entries, nil
}

// ListByAccountInput represents input for listing a party's entries.
type ListByAccountInput struct {
	AccountRef string
	Limit      int
	Offset     int
}

// ListByAccount lists entries of a party, newest first.
func (uc *LedgerUseCase) ListByAccount(ctx context.Context, input ListByAccountInput) ([]*domain.LedgerEntry, error) {
	if _, err := uc.parties.GetParty(ctx, input.AccountRef); err != nil {
		return nil, err
	}

	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.entries.ListByAccount(ctx, input.AccountRef, limit, offset)
}
