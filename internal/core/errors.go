package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationReason identifies which entry invariant was violated.
type ValidationReason string

const (
	ReasonUnbalanced     ValidationReason = "UNBALANCED"
	ReasonEmpty          ValidationReason = "EMPTY"
	ReasonMixedSide      ValidationReason = "MIXED_SIDE"
	ReasonNegative       ValidationReason = "NEGATIVE"
	ReasonMissingAccount ValidationReason = "MISSING_ACCOUNT"
)

// ValidationError is returned when a candidate entry fails the invariant gate.
// Nothing is written when it is returned. TotalDebit and TotalCredit carry the
// computed sums so callers can see the exact imbalance.
type ValidationError struct {
	Reason      ValidationReason
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Line        int // 1-based offending line, 0 when the entry as a whole failed
	Detail      string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonUnbalanced:
		return fmt.Sprintf("%s: debits %s != credits %s", e.Reason, e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2))
	default:
		if e.Line > 0 {
			return fmt.Sprintf("%s: line %d: %s", e.Reason, e.Line, e.Detail)
		}
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
}

// NotFoundError reports a missing tenant, account or journal entry.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// AccountResolutionError is returned when an auto-posting rule cannot resolve a
// required system account. The posting is abandoned without writing anything.
type AccountResolutionError struct {
	TenantCode  string
	AccountCode string
	AccountName string
}

func (e *AccountResolutionError) Error() string {
	return fmt.Sprintf("system account %s (%s) not found for tenant %s — run EnsureSystemAccounts first",
		e.AccountName, e.AccountCode, e.TenantCode)
}

// ErrNoAmounts is returned by PostPayrollRun when every computed total is zero.
var ErrNoAmounts = errors.New("NO_AMOUNTS: payroll run has no nonzero totals to post")

// errDuplicateSourceDoc signals that the source-document unique index rejected
// an insert; the caller resolves it by returning the existing entry.
var errDuplicateSourceDoc = errors.New("duplicate source document")
