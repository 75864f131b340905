package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
)

type options struct {
	baseURL string
	timeout time.Duration
	rawJSON bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "ledger",
		Short:        "Factory ledger CLI tool",
		Long:         `A command line interface for querying the factory ledger API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.rawJSON, "json", false, "Print the raw JSON response")

	rootCmd.AddCommand(
		consistencyCmd(opts),
		balanceCmd(opts),
		entriesCmd(opts),
		stockCmd(opts),
		transactionCmd(opts),
		editsCmd(opts),
	)

	return rootCmd
}

func consistencyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Check that every transaction balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ConsistencyResponse
			status, err := opts.get(cmd.Context(), "/api/v1/ledger/consistency", &report)
			if err != nil && status != http.StatusConflict {
				return err
			}
			if opts.rawJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", report.Status)
			fmt.Fprintf(out, "Transactions: %d  Entries: %d\n", report.Transactions, report.Entries)
			fmt.Fprintf(out, "Total debit: %s  Total credit: %s\n", report.TotalDebit.StringFixed(2), report.TotalCredit.StringFixed(2))

			if len(report.Violations) == 0 {
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRANSACTION\tDEBIT\tCREDIT\tDIFFERENCE\tREASON")
			for _, v := range report.Violations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.TransactionID,
					v.TotalDebit.StringFixed(2), v.TotalCredit.StringFixed(2), v.Difference.StringFixed(2), v.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("ledger is inconsistent: %d transaction(s) unbalanced", len(report.Violations))
		},
	}
}

func balanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <ref>",
		Short: "Show the live balance of an account or partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b dto.BalanceResponse
			if _, err := opts.get(cmd.Context(), "/api/v1/parties/"+url.PathEscape(args[0])+"/balance", &b); err != nil {
				return err
			}
			if opts.rawJSON {
				return printJSON(cmd.OutOrStdout(), b)
			}

			side := "credit"
			if b.DebitNormal {
				side = "debit"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s [%s-normal, %d entries]\n",
				b.Name, b.Ref, b.Balance.StringFixed(2), side, b.Entries)
			return nil
		},
	}
}

func entriesCmd(opts *options) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "entries <ref>",
		Short: "List the entries of an account or partner, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var resp dto.ListEntriesResponse
			path := "/api/v1/parties/" + url.PathEscape(args[0]) + "/entries?" + q.Encode()
			if _, err := opts.get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if opts.rawJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printEntries(cmd.OutOrStdout(), resp.Entries)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	return cmd
}

func stockCmd(opts *options) *cobra.Command {
	stock := &cobra.Command{
		Use:   "stock",
		Short: "Original stock queries",
	}

	var typeID, supplierID string
	positions := &cobra.Command{
		Use:   "positions",
		Short: "List reconciled stock positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/stock/positions"
			if typeID != "" && supplierID != "" {
				q := url.Values{}
				q.Set("type_id", typeID)
				q.Set("supplier_id", supplierID)
				path += "?" + q.Encode()
			}

			var resp dto.StockPositionsResponse
			if _, err := opts.get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if opts.rawJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tSUPPLIER\tWEIGHT\tWORTH\tAVG/KG")
			for _, p := range resp.Positions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.TypeName, p.SupplierName,
					p.WeightInHand.StringFixed(2), p.Worth.StringFixed(2), p.AvgCostPerKg.StringFixed(4))
			}
			return w.Flush()
		},
	}
	positions.Flags().StringVar(&typeID, "type", "", "Stock type id")
	positions.Flags().StringVar(&supplierID, "supplier", "", "Supplier id")

	stock.AddCommand(positions)
	return stock
}

func transactionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "transaction <id>",
		Short: "Show the entries of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tx dto.TransactionResponse
			if _, err := opts.get(cmd.Context(), "/api/v1/transactions/"+url.PathEscape(args[0]), &tx); err != nil {
				return err
			}
			if opts.rawJSON {
				return printJSON(cmd.OutOrStdout(), tx)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Transaction %s (%s) %s\n", tx.TransactionID, tx.Kind, tx.Date)
			return printEntries(cmd.OutOrStdout(), tx.Entries)
		},
	}
}

func editsCmd(opts *options) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "edits",
		Short: "List recorded transaction edits (stuck edits by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("status", status)
			q.Set("limit", strconv.Itoa(limit))

			var resp dto.EditLogResponse
			if _, err := opts.get(cmd.Context(), "/api/v1/edits?"+q.Encode(), &resp); err != nil {
				return err
			}
			if opts.rawJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tTRANSACTION\tKIND\tSTATE\tENTRIES\tERROR")
			for _, e := range resp.Edits {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", e.CreatedAt.Format(time.RFC3339),
					e.TransactionID, e.Kind, e.State, len(e.Original), truncate(e.Error, 60))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "stuck", "Edit status: completed, cancelled, restored or stuck")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of edits")
	return cmd
}

// get fetches path and decodes a JSON body into out. Non-2xx statuses are returned as
// errors carrying the API's message; the body is still decoded into out.
func (o *options) get(ctx context.Context, path string, out any) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
	if err != nil {
		return 0, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			_ = json.Unmarshal(body, out)
			return resp.StatusCode, fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		_ = json.Unmarshal(body, out)
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}

func printEntries(out io.Writer, entries []*dto.EntryResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tACCOUNT\tDEBIT\tCREDIT\tNARRATION")
	for _, e := range entries {
		account := e.AccountName
		if e.ReportingOnly {
			account += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Date, account,
			e.Debit.StringFixed(2), e.Credit.StringFixed(2), truncate(e.Narration, 60))
	}
	return w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
