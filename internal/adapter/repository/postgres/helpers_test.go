package postgres

import (
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumnNames = []string{
	"id", "seq", "transaction_id", "entry_date", "account_ref", "account_name", "kind",
	"currency", "rate", "fcy_amount", "debit", "credit", "narration", "factory_id",
	"reporting_only", "is_adjustment", "created_at",
}

func num(s string) pgtype.Numeric {
	return decimalToNumeric(decimal.RequireFromString(s))
}

func ts(t time.Time) pgtype.Timestamptz {
	return timeToPgTimestamptz(t)
}

func quote(query string) string {
	return regexp.QuoteMeta(query)
}

type fixedIDs struct{ next int }

func (g *fixedIDs) Generate() string {
	g.next++
	return "id-" + string(rune('0'+g.next))
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	assert.NoError(t, pool.ExpectationsWereMet(), "pgxmock expectations")
}
