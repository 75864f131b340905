package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending is stored under an idempotency key while its request runs.
	IdempotencyPending = "processing"

	// SnapshotTTL bounds how long an unused stock snapshot stays in the cache.
	SnapshotTTL = time.Hour
)

// AlignmentEpoch dates alignment transactions when the ledger has no entries yet.
var AlignmentEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
