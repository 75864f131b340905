package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// MockEntryStore is an in-memory EntryStore. Func fields override the default behavior.
type MockEntryStore struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry
	seq     int64

	AppendFunc              func(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error
	QueryByTransactionFunc  func(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error)
	DeleteByTransactionFunc func(ctx context.Context, tx usecase.Transaction, transactionID string) (int64, error)
	ListAllFunc             func(ctx context.Context) ([]*domain.LedgerEntry, error)
}

func NewMockEntryStore() *MockEntryStore {
	return &MockEntryStore{}
}

func (m *MockEntryStore) Append(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, entries)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range domain.CloneEntries(entries) {
		if e.Sequence == 0 {
			m.seq++
			e.Sequence = m.seq
		} else if e.Sequence > m.seq {
			m.seq = e.Sequence
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("entry-%d", m.seq)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		m.entries = append(m.entries, e)
	}
	sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].Sequence < m.entries[j].Sequence })
	return nil
}

func (m *MockEntryStore) QueryByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	if m.QueryByTransactionFunc != nil {
		return m.QueryByTransactionFunc(ctx, transactionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return domain.CloneEntries(out), nil
}

func (m *MockEntryStore) DeleteByTransaction(ctx context.Context, tx usecase.Transaction, transactionID string) (int64, error) {
	if m.DeleteByTransactionFunc != nil {
		return m.DeleteByTransactionFunc(ctx, tx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var deleted int64
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

func (m *MockEntryStore) ListAll(ctx context.Context) ([]*domain.LedgerEntry, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.CloneEntries(m.entries), nil
}

func (m *MockEntryStore) ListByAccount(ctx context.Context, accountRef string, limit, offset int) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountRef == accountRef {
			out = append(out, m.entries[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return domain.CloneEntries(out), nil
}

func (m *MockEntryStore) EarliestDate(ctx context.Context, accountRef string) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var earliest *time.Time
	for _, e := range m.entries {
		if accountRef != "" && e.AccountRef != accountRef {
			continue
		}
		if earliest == nil || e.Date.Before(*earliest) {
			d := e.Date
			earliest = &d
		}
	}
	return earliest, nil
}

// Seed appends entries directly, bypassing AppendFunc.
func (m *MockEntryStore) Seed(entries ...*domain.LedgerEntry) {
	saved := m.AppendFunc
	m.AppendFunc = nil
	_ = m.Append(context.Background(), nil, entries)
	m.AppendFunc = saved
}

// Len returns the number of stored entries.
func (m *MockEntryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// MockPartyRepository is an in-memory PartyRepository.
type MockPartyRepository struct {
	mu       sync.RWMutex
	accounts []*domain.Account
	partners map[string]*domain.Partner

	GetPartyFunc func(ctx context.Context, ref string) (*domain.Party, error)
}

func NewMockPartyRepository() *MockPartyRepository {
	return &MockPartyRepository{
		partners: make(map[string]*domain.Partner),
	}
}

// AddAccount registers a chart-of-accounts account.
func (m *MockPartyRepository) AddAccount(a *domain.Account) *domain.Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, a)
	return &domain.Party{Account: a}
}

// AddPartner registers a partner.
func (m *MockPartyRepository) AddPartner(p *domain.Partner) *domain.Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partners[p.ID] = p
	return &domain.Party{Partner: p}
}

func (m *MockPartyRepository) GetParty(ctx context.Context, ref string) (*domain.Party, error) {
	if m.GetPartyFunc != nil {
		return m.GetPartyFunc(ctx, ref)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ID == ref {
			return &domain.Party{Account: a}, nil
		}
	}
	if p, ok := m.partners[ref]; ok {
		return &domain.Party{Partner: p}, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPartyNotFound, ref)
}

func (m *MockPartyRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Account, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

// MockItemRepository is an in-memory ItemRepository.
type MockItemRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Item

	UpdateFunc func(ctx context.Context, item *domain.Item) error
}

func NewMockItemRepository(items ...*domain.Item) *MockItemRepository {
	m := &MockItemRepository{items: make(map[string]domain.Item)}
	for _, it := range items {
		m.items[it.ID] = *it
	}
	return m
}

func (m *MockItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return &it, nil
}

func (m *MockItemRepository) Update(ctx context.Context, item *domain.Item) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = *item
	return nil
}

// MockStockRecordRepository is an in-memory StockRecordRepository.
type MockStockRecordRepository struct {
	mu        sync.RWMutex
	Purchases []*domain.PurchaseRecord
	Openings  []*domain.OpeningRecord
	Sales     []*domain.DirectSaleRecord

	CreateDirectSaleFunc func(ctx context.Context, sale *domain.DirectSaleRecord) error
}

func NewMockStockRecordRepository() *MockStockRecordRepository {
	return &MockStockRecordRepository{}
}

func (m *MockStockRecordRepository) GetPurchase(ctx context.Context, id string) (*domain.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.Purchases {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPurchaseNotFound, id)
}

func (m *MockStockRecordRepository) ListPurchases(ctx context.Context) ([]*domain.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.PurchaseRecord(nil), m.Purchases...), nil
}

func (m *MockStockRecordRepository) ListOpenings(ctx context.Context) ([]*domain.OpeningRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OpeningRecord(nil), m.Openings...), nil
}

func (m *MockStockRecordRepository) ListDirectSales(ctx context.Context) ([]*domain.DirectSaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.DirectSaleRecord(nil), m.Sales...), nil
}

func (m *MockStockRecordRepository) CreateDirectSale(ctx context.Context, sale *domain.DirectSaleRecord) error {
	if m.CreateDirectSaleFunc != nil {
		return m.CreateDirectSaleFunc(ctx, sale)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sales = append(m.Sales, sale)
	return nil
}

func (m *MockStockRecordRepository) DeleteDirectSales(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Sales[:0]
	for _, s := range m.Sales {
		if s.TransactionID != transactionID {
			kept = append(kept, s)
		}
	}
	m.Sales = kept
	return nil
}

// MockStockAdjustmentRepository is an in-memory StockAdjustmentRepository.
type MockStockAdjustmentRepository struct {
	mu          sync.RWMutex
	adjustments []*domain.StockAdjustment
	seq         int64

	CreateFunc func(ctx context.Context, tx usecase.Transaction, adj *domain.StockAdjustment) error
}

func NewMockStockAdjustmentRepository() *MockStockAdjustmentRepository {
	return &MockStockAdjustmentRepository{}
}

func (m *MockStockAdjustmentRepository) Create(ctx context.Context, tx usecase.Transaction, adj *domain.StockAdjustment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, adj)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *adj
	if c.Sequence == 0 {
		m.seq++
		c.Sequence = m.seq
	} else if c.Sequence > m.seq {
		m.seq = c.Sequence
	}
	m.adjustments = append(m.adjustments, &c)
	return nil
}

func (m *MockStockAdjustmentRepository) ListAll(ctx context.Context) ([]*domain.StockAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]*domain.StockAdjustment(nil), m.adjustments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *MockStockAdjustmentRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.StockAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.StockAdjustment
	for _, a := range m.adjustments {
		if a.TransactionID == transactionID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out, nil
}

func (m *MockStockAdjustmentRepository) DeleteByTransaction(ctx context.Context, tx usecase.Transaction, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.adjustments[:0]
	for _, a := range m.adjustments {
		if a.TransactionID != transactionID {
			kept = append(kept, a)
		}
	}
	m.adjustments = kept
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockStockReader returns a fixed reconciliation and counts invalidations.
type MockStockReader struct {
	mu          sync.Mutex
	Positions   []*domain.StockPosition
	Invalidated int

	ReconcileFunc func(ctx context.Context) (*domain.StockReconciliation, error)
}

func (m *MockStockReader) Reconcile(ctx context.Context) (*domain.StockReconciliation, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx)
	}
	return &domain.StockReconciliation{Positions: m.Positions}, nil
}

func (m *MockStockReader) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated++
	return nil
}
