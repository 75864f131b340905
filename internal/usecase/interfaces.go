package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/factoryledger/internal/domain"
)

// ErrCacheMiss is returned by SnapshotCache when no snapshot exists for a version.
var ErrCacheMiss = errors.New("cache miss")

// EntryStore is the append-only ledger entry log.
type EntryStore interface {
	Append(ctx context.Context, tx Transaction, entries []*domain.LedgerEntry) error
	QueryByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error)
	DeleteByTransaction(ctx context.Context, tx Transaction, transactionID string) (int64, error)
	ListAll(ctx context.Context) ([]*domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountRef string, limit, offset int) ([]*domain.LedgerEntry, error)
	// EarliestDate returns the date of the earliest entry for accountRef, or of the whole
	// ledger when accountRef is empty. It returns nil when no entry exists.
	EarliestDate(ctx context.Context, accountRef string) (*time.Time, error)
}

// PartyRepository resolves accounts and partners sharing the ledger reference namespace.
type PartyRepository interface {
	GetParty(ctx context.Context, ref string) (*domain.Party, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
}

// ItemRepository defines data access for finished-goods items.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
}

// StockRecordRepository provides the raw-material history replayed by the reconciler.
type StockRecordRepository interface {
	GetPurchase(ctx context.Context, id string) (*domain.PurchaseRecord, error)
	ListPurchases(ctx context.Context) ([]*domain.PurchaseRecord, error)
	ListOpenings(ctx context.Context) ([]*domain.OpeningRecord, error)
	ListDirectSales(ctx context.Context) ([]*domain.DirectSaleRecord, error)
	CreateDirectSale(ctx context.Context, sale *domain.DirectSaleRecord) error
	DeleteDirectSales(ctx context.Context, transactionID string) error
}

// StockAdjustmentRepository stores structured original-stock adjustment side-records.
type StockAdjustmentRepository interface {
	Create(ctx context.Context, tx Transaction, adj *domain.StockAdjustment) error
	ListAll(ctx context.Context) ([]*domain.StockAdjustment, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.StockAdjustment, error)
	DeleteByTransaction(ctx context.Context, tx Transaction, transactionID string) error
}

// EditLogRepository records edit outcomes that may need manual recovery.
type EditLogRepository interface {
	Create(ctx context.Context, rec *domain.EditRecord) error
	ListByStatus(ctx context.Context, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ProcessingGuard admits at most one posting or edit per transaction id.
type ProcessingGuard interface {
	// Acquire returns domain.ErrTransactionInFlight when key is already held.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SnapshotCache stores reconciled stock snapshots keyed by a version counter.
type SnapshotCache interface {
	Version(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
	// Load returns ErrCacheMiss when no snapshot exists for version.
	Load(ctx context.Context, version int64) ([]byte, error)
	Store(ctx context.Context, version int64, data []byte) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request failed so the client may retry it.
	Release(ctx context.Context, key string) error
}
