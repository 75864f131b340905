package domain

import "github.com/shopspring/decimal"

// ValidateEntries checks a candidate transaction before anything is posted.
// Checks run in order: rates, one-sidedness of each line, presence of both sides,
// then |Σdebit − Σcredit| ≤ Tolerance.
func ValidateEntries(entries []*LedgerEntry) error {
	if len(entries) == 0 {
		return ErrEmptyTransaction
	}

	txID := entries[0].TransactionID
	for _, e := range entries {
		if e.TransactionID != txID {
			return ErrMixedTransaction
		}
	}

	for _, e := range entries {
		if !e.Rate.IsPositive() {
			return &InvalidRateError{AccountRef: e.AccountRef, AccountName: e.AccountName, Rate: e.Rate}
		}
	}

	for _, e := range entries {
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return NewValidationError(e.Kind, e.AccountName, "negative debit or credit")
		}
		if e.Debit.IsPositive() == e.Credit.IsPositive() {
			return NewValidationError(e.Kind, e.AccountName, "exactly one of debit or credit must be non-zero")
		}
	}

	debit, credit := Totals(entries)

	hasDebit, hasCredit := false, false
	for _, e := range entries {
		hasDebit = hasDebit || e.IsDebit()
		hasCredit = hasCredit || !e.IsDebit()
	}
	if !hasDebit || !hasCredit {
		return &UnbalancedTransactionError{TransactionID: txID, MissingSide: true, TotalDebit: debit, TotalCredit: credit}
	}

	if debit.Sub(credit).Abs().GreaterThan(Tolerance) {
		return &UnbalancedTransactionError{TransactionID: txID, TotalDebit: debit, TotalCredit: credit}
	}

	return nil
}

// Totals returns Σdebit and Σcredit of the entries.
func Totals(entries []*LedgerEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// GroupByTransaction groups entries by transaction id, preserving first-seen order.
func GroupByTransaction(entries []*LedgerEntry) ([]string, map[string][]*LedgerEntry) {
	var order []string
	groups := make(map[string][]*LedgerEntry)
	for _, e := range entries {
		if _, ok := groups[e.TransactionID]; !ok {
			order = append(order, e.TransactionID)
		}
		groups[e.TransactionID] = append(groups[e.TransactionID], e)
	}
	return order, groups
}
