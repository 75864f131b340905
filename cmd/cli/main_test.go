package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ledger/consistency", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":"inconsistent","consistent":false,"transactions":2,"entries":4,
			"total_debit":"200","total_credit":"190",
			"violations":[{"transaction_id":"tx-9","total_debit":"100","total_credit":"90","difference":"10","reason":"unbalanced"}]}`))
	})
	mux.HandleFunc("/api/v1/parties/acme/balance", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ref":"acme","name":"Acme Cotton","debit_normal":false,"balance":"250.5","entries":3}`))
	})
	mux.HandleFunc("/api/v1/parties/ghost/balance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"failed to get balance","message":"party not found: ghost"}`))
	})
	mux.HandleFunc("/api/v1/parties/bank/entries", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"entries":[{"date":"2024-02-01","account_name":"Bank","debit":"250","credit":"0","narration":"Receipt from Acme"}],"limit":5,"offset":0}`))
	})
	mux.HandleFunc("/api/v1/stock/positions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cotton", r.URL.Query().Get("type_id"))
		_, _ = w.Write([]byte(`{"positions":[{"type_name":"Cotton","supplier_name":"Acme Cotton","weight_in_hand":"100","worth":"500","avg_cost_per_kg":"5"}]}`))
	})
	mux.HandleFunc("/api/v1/transactions/tx-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transaction_id":"tx-1","kind":"RV","date":"2024-02-01","entries":[
			{"date":"2024-02-01","account_name":"Bank","debit":"250","credit":"0"},
			{"date":"2024-02-01","account_name":"Acme Cotton","debit":"0","credit":"250","reporting_only":true}]}`))
	})

	mux.HandleFunc("/api/v1/edits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stuck", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"status":"stuck","limit":50,"offset":0,"edits":[{"id":"e1","transaction_id":"tx-7",
			"kind":"PV","state":"verifying_deletion","status":"stuck","error":"entries still present",
			"original":[{"account_name":"Bank"},{"account_name":"Acme Cotton"}],"created_at":"2024-03-01T10:00:00Z"}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestBalanceCmd(t *testing.T) {
	srv := newTestAPI(t)

	out, err := execute(t, srv, "balance", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme Cotton (acme): 250.50 [credit-normal, 3 entries]")

	_, err = execute(t, srv, "balance", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "party not found: ghost")
	assert.Contains(t, err.Error(), "status 404")
}

func TestConsistencyCmdReportsViolations(t *testing.T) {
	out, err := execute(t, newTestAPI(t), "consistency")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 transaction(s) unbalanced")
	assert.Contains(t, out, "Status: inconsistent")
	assert.Contains(t, out, "tx-9")
	assert.Contains(t, out, "10.00")
}

func TestEntriesCmd(t *testing.T) {
	out, err := execute(t, newTestAPI(t), "entries", "bank", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Receipt from Acme")
	assert.Contains(t, out, "250.00")
}

func TestStockPositionsCmd(t *testing.T) {
	out, err := execute(t, newTestAPI(t), "stock", "positions", "--type", "cotton", "--supplier", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Cotton")
	assert.Contains(t, out, "5.0000")
}

func TestEditsCmd(t *testing.T) {
	out, err := execute(t, newTestAPI(t), "edits")
	require.NoError(t, err)
	assert.Contains(t, out, "tx-7")
	assert.Contains(t, out, "verifying_deletion")
	assert.Contains(t, out, "entries still present")
}

func TestTransactionCmd(t *testing.T) {
	srv := newTestAPI(t)

	out, err := execute(t, srv, "transaction", "tx-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction tx-1 (RV) 2024-02-01")
	assert.Contains(t, out, "Acme Cotton *", "reporting-only entries are marked")

	out, err = execute(t, srv, "--json", "transaction", "tx-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"transaction_id": "tx-1"`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("longerstring", 6))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
