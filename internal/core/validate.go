package core

import (
	"github.com/shopspring/decimal"
)

// roundMoney normalizes an amount to 2 decimal places, half-up.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// validateEntryLines is the single invariant gate for journal entries. It runs
// on resolved lines inside the create transaction, immediately before the
// insert, so no entry can be persisted without passing it. Lines that could
// not be resolved to an account arrive with AccountID == 0.
func validateEntryLines(lines []JournalLine) *ValidationError {
	if len(lines) < 2 {
		return &ValidationError{Reason: ReasonEmpty, Detail: "entry must have at least 2 lines"}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero

	for i, line := range lines {
		n := i + 1

		if line.AccountID == 0 {
			return &ValidationError{Reason: ReasonMissingAccount, Line: n, Detail: "line has no resolvable account reference"}
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return &ValidationError{Reason: ReasonNegative, Line: n, Detail: "amounts must not be negative"}
		}

		hasDebit := !line.Debit.IsZero()
		hasCredit := !line.Credit.IsZero()
		if hasDebit == hasCredit {
			return &ValidationError{Reason: ReasonMixedSide, Line: n, Detail: "line must have exactly one of debit or credit"}
		}

		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	totalDebit = roundMoney(totalDebit)
	totalCredit = roundMoney(totalCredit)

	if totalDebit.IsZero() && totalCredit.IsZero() {
		return &ValidationError{Reason: ReasonEmpty, Detail: "entry total is zero"}
	}
	if !totalDebit.Equal(totalCredit) {
		return &ValidationError{Reason: ReasonUnbalanced, TotalDebit: totalDebit, TotalCredit: totalCredit}
	}
	return nil
}
