package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// TrialBalanceRow is one account's aggregated position. DebitBalance holds the
// absolute net when debits exceed credits, CreditBalance otherwise.
type TrialBalanceRow struct {
	AccountID     int64           `json:"account_id"`
	AccountCode   string          `json:"account_code"`
	AccountName   string          `json:"account_name"`
	AccountType   AccountType     `json:"account_type"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	DebitBalance  decimal.Decimal `json:"debit_balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}

type TrialBalance struct {
	TenantCode  string            `json:"tenant_code"`
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

// LedgerMovement is one entry's effect on an account, with the cumulative
// net-debit position after it.
type LedgerMovement struct {
	EntryID         int64           `json:"entry_id"`
	EntryDate       time.Time       `json:"entry_date"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	RunningBalance  decimal.Decimal `json:"running_balance"`
}

type AccountLedger struct {
	TenantCode     string           `json:"tenant_code"`
	AccountID      int64            `json:"account_id"`
	AccountCode    string           `json:"account_code"`
	AccountName    string           `json:"account_name"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
	Movements      []LedgerMovement `json:"movements"`
}

// ReportLine is one account row in a P&L or balance-sheet section, expressed
// in that section's natural sign (positive = normal balance).
type ReportLine struct {
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

type ProfitAndLoss struct {
	TenantCode     string          `json:"tenant_code"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	Income         []ReportLine    `json:"income"`
	Expenses       []ReportLine    `json:"expenses"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	NetProfit      decimal.Decimal `json:"net_profit"`
	GrossMarginPct decimal.Decimal `json:"gross_margin_pct"`
}

type BalanceSheet struct {
	TenantCode       string          `json:"tenant_code"`
	AsOf             time.Time       `json:"as_of"`
	Assets           []ReportLine    `json:"assets"`
	Liabilities      []ReportLine    `json:"liabilities"`
	Equity           []ReportLine    `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	Balanced         bool            `json:"balanced"`
}

// ── Service ───────────────────────────────────────────────────────────────────

// ReportingService derives reports purely from the posted entry log. All
// aggregation reads the account snapshots on journal lines, never the live
// accounts table, so historical reports survive renames.
type ReportingService struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewReportingService(pool *pgxpool.Pool, log zerolog.Logger) *ReportingService {
	return &ReportingService{pool: pool, log: log}
}

// balanceSheetTolerance absorbs independent 2dp rounding of section totals.
var balanceSheetTolerance = decimal.NewFromFloat(0.01)

// accountAggregate is one account's summed debit/credit with its latest
// snapshot identity.
type accountAggregate struct {
	accountID   int64
	code        string
	name        string
	accType     AccountType
	totalDebit  decimal.Decimal
	totalCredit decimal.Decimal
}

// aggregateByAccount sums posted lines per account for entries within the
// date bounds (either bound may be nil). The snapshot of the most recent line
// identifies the account.
func (s *ReportingService) aggregateByAccount(ctx context.Context, tenantID int64, from, to *time.Time, types []string) ([]accountAggregate, error) {
	q := `
		SELECT jl.account_id,
		       (ARRAY_AGG(jl.account_code ORDER BY jl.id DESC))[1],
		       (ARRAY_AGG(jl.account_name ORDER BY jl.id DESC))[1],
		       (ARRAY_AGG(jl.account_type ORDER BY jl.id DESC))[1],
		       COALESCE(SUM(jl.debit), 0),
		       COALESCE(SUM(jl.credit), 0)
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		WHERE je.tenant_id = $1
		  AND je.is_posted = TRUE`

	args := []any{tenantID}
	if from != nil {
		args = append(args, *from)
		q += fmt.Sprintf(" AND je.entry_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += fmt.Sprintf(" AND je.entry_date <= $%d", len(args))
	}
	if len(types) > 0 {
		args = append(args, types)
		q += fmt.Sprintf(" AND jl.account_type = ANY($%d)", len(args))
	}
	q += " GROUP BY jl.account_id ORDER BY 2"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate journal lines: %w", err)
	}
	defer rows.Close()

	var aggs []accountAggregate
	for rows.Next() {
		var a accountAggregate
		if err := rows.Scan(&a.accountID, &a.code, &a.name, &a.accType, &a.totalDebit, &a.totalCredit); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// ── Trial balance ─────────────────────────────────────────────────────────────

// GetTrialBalance aggregates all posted entries dated on or before asOf. The
// net balance lands in the debit column when positive and the credit column
// when negative, uniformly across account types. That single rule is the
// documented behavior this report preserves; it is not the conventional
// natural-side presentation.
func (s *ReportingService) GetTrialBalance(ctx context.Context, tenantCode string, asOf time.Time) (*TrialBalance, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	aggs, err := s.aggregateByAccount(ctx, tenantID, nil, &asOf, nil)
	if err != nil {
		return nil, err
	}

	report := &TrialBalance{TenantCode: tenantCode, AsOf: asOf}
	for _, a := range aggs {
		row := TrialBalanceRow{
			AccountID:   a.accountID,
			AccountCode: a.code,
			AccountName: a.name,
			AccountType: a.accType,
			TotalDebit:  a.totalDebit,
			TotalCredit: a.totalCredit,
		}
		net := a.totalDebit.Sub(a.totalCredit)
		if net.IsPositive() {
			row.DebitBalance = net
		} else {
			row.CreditBalance = net.Abs()
		}
		report.Rows = append(report.Rows, row)
		report.TotalDebit = report.TotalDebit.Add(row.DebitBalance)
		report.TotalCredit = report.TotalCredit.Add(row.CreditBalance)
	}
	report.Balanced = report.TotalDebit.Equal(report.TotalCredit)
	return report, nil
}

// ── Account ledger ────────────────────────────────────────────────────────────

// GetAccountLedger returns the account's movements in date order with a
// running balance. The opening balance is the signed sum of everything
// strictly before from; pass nil bounds for the full history.
func (s *ReportingService) GetAccountLedger(ctx context.Context, tenantCode string, accountID int64, from, to *time.Time) (*AccountLedger, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	var code, name string
	err = s.pool.QueryRow(ctx,
		"SELECT code, name FROM accounts WHERE tenant_id = $1 AND id = $2", tenantID, accountID,
	).Scan(&code, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "account", Key: strconv.FormatInt(accountID, 10)}
		}
		return nil, fmt.Errorf("failed to fetch account %d: %w", accountID, err)
	}

	ledger := &AccountLedger{
		TenantCode:     tenantCode,
		AccountID:      accountID,
		AccountCode:    code,
		AccountName:    name,
		OpeningBalance: decimal.Zero,
	}

	if from != nil {
		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(jl.debit - jl.credit), 0)
			FROM journal_lines jl
			JOIN journal_entries je ON je.id = jl.entry_id
			WHERE je.tenant_id = $1
			  AND je.is_posted = TRUE
			  AND jl.account_id = $2
			  AND je.entry_date < $3
		`, tenantID, accountID, *from).Scan(&ledger.OpeningBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to compute opening balance: %w", err)
		}
	}

	q := `
		SELECT je.id, je.entry_date, je.reference_number, je.description, jl.debit, jl.credit
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		WHERE je.tenant_id = $1
		  AND je.is_posted = TRUE
		  AND jl.account_id = $2`
	args := []any{tenantID, accountID}
	if from != nil {
		args = append(args, *from)
		q += fmt.Sprintf(" AND je.entry_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += fmt.Sprintf(" AND je.entry_date <= $%d", len(args))
	}
	q += " ORDER BY je.entry_date ASC, je.id ASC, jl.id ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account ledger: %w", err)
	}
	defer rows.Close()

	running := ledger.OpeningBalance
	for rows.Next() {
		var m LedgerMovement
		if err := rows.Scan(&m.EntryID, &m.EntryDate, &m.ReferenceNumber, &m.Description, &m.Debit, &m.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan ledger movement: %w", err)
		}
		running = running.Add(m.Debit).Sub(m.Credit)
		m.RunningBalance = running
		ledger.Movements = append(ledger.Movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger iteration error: %w", err)
	}

	ledger.ClosingBalance = running
	return ledger, nil
}

// ── Profit & loss ─────────────────────────────────────────────────────────────

// GetProfitAndLoss sums income accounts (credit − debit) and expense accounts
// (debit − credit) for entries in [from, to].
func (s *ReportingService) GetProfitAndLoss(ctx context.Context, tenantCode string, from, to time.Time) (*ProfitAndLoss, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	report := &ProfitAndLoss{TenantCode: tenantCode, From: from, To: to}
	if err := s.fillProfitAndLoss(ctx, tenantID, &from, &to, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportingService) fillProfitAndLoss(ctx context.Context, tenantID int64, from, to *time.Time, report *ProfitAndLoss) error {
	aggs, err := s.aggregateByAccount(ctx, tenantID, from, to,
		[]string{string(AccountTypeIncome), string(AccountTypeExpense)})
	if err != nil {
		return err
	}

	for _, a := range aggs {
		switch a.accType {
		case AccountTypeIncome:
			bal := a.totalCredit.Sub(a.totalDebit)
			report.Income = append(report.Income, ReportLine{AccountID: a.accountID, AccountCode: a.code, AccountName: a.name, Amount: bal})
			report.TotalIncome = report.TotalIncome.Add(bal)
		case AccountTypeExpense:
			bal := a.totalDebit.Sub(a.totalCredit)
			report.Expenses = append(report.Expenses, ReportLine{AccountID: a.accountID, AccountCode: a.code, AccountName: a.name, Amount: bal})
			report.TotalExpenses = report.TotalExpenses.Add(bal)
		}
	}

	report.NetProfit = report.TotalIncome.Sub(report.TotalExpenses)
	if !report.TotalIncome.IsZero() {
		report.GrossMarginPct = report.NetProfit.Div(report.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return nil
}

// ── Balance sheet ─────────────────────────────────────────────────────────────

// GetBalanceSheet sums asset (debit − credit), liability and equity
// (credit − debit) balances as of the date. Retained earnings is the all-time
// net profit through asOf, and the report checks
// Assets == Liabilities + Equity + RetainedEarnings within a rounding
// tolerance.
func (s *ReportingService) GetBalanceSheet(ctx context.Context, tenantCode string, asOf time.Time) (*BalanceSheet, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	aggs, err := s.aggregateByAccount(ctx, tenantID, nil, &asOf,
		[]string{string(AccountTypeAsset), string(AccountTypeLiability), string(AccountTypeEquity)})
	if err != nil {
		return nil, err
	}

	report := &BalanceSheet{TenantCode: tenantCode, AsOf: asOf}
	for _, a := range aggs {
		net := a.totalDebit.Sub(a.totalCredit)
		line := ReportLine{AccountID: a.accountID, AccountCode: a.code, AccountName: a.name}
		switch a.accType {
		case AccountTypeAsset:
			line.Amount = net
			report.Assets = append(report.Assets, line)
			report.TotalAssets = report.TotalAssets.Add(net)
		case AccountTypeLiability:
			line.Amount = net.Neg()
			report.Liabilities = append(report.Liabilities, line)
			report.TotalLiabilities = report.TotalLiabilities.Add(line.Amount)
		case AccountTypeEquity:
			line.Amount = net.Neg()
			report.Equity = append(report.Equity, line)
			report.TotalEquity = report.TotalEquity.Add(line.Amount)
		}
	}

	// Retained earnings: income and expense have no balance-sheet rows of
	// their own; their lifetime net is what keeps the identity closed.
	var pl ProfitAndLoss
	if err := s.fillProfitAndLoss(ctx, tenantID, nil, &asOf, &pl); err != nil {
		return nil, err
	}
	report.RetainedEarnings = pl.NetProfit

	diff := report.TotalAssets.Sub(report.TotalLiabilities).Sub(report.TotalEquity).Sub(report.RetainedEarnings)
	report.Balanced = diff.Abs().LessThanOrEqual(balanceSheetTolerance)
	return report, nil
}
