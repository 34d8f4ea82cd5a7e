package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"workshop-ledger/internal/core"
)

// seedTradingMonth posts a small but complete month of activity:
// one taxed sale, its collection, a purchase bill, its payment and a cash
// expense.
func seedTradingMonth(t *testing.T, posting *core.PostingService) {
	t.Helper()
	ctx := context.Background()

	if _, err := posting.PostSalesInvoice(ctx, core.SalesInvoiceDoc{
		TenantCode:    testTenant,
		InvoiceID:     "INV-1",
		InvoiceNumber: "INV-1",
		CustomerName:  "Sharma EV Rentals",
		InvoiceDate:   date(2026, time.January, 5),
		SubTotal:      amt("10000.00"),
		TaxTotal:      amt("1800.00"),
		Total:         amt("11800.00"),
	}); err != nil {
		t.Fatalf("Seed sale failed: %v", err)
	}
	if _, err := posting.PostPaymentReceived(ctx, core.PaymentDoc{
		TenantCode:  testTenant,
		PaymentID:   "RCPT-1",
		PaymentDate: date(2026, time.January, 12),
		Amount:      amt("11800.00"),
		PaymentMode: "bank",
	}); err != nil {
		t.Fatalf("Seed collection failed: %v", err)
	}
	if _, err := posting.PostPurchaseBill(ctx, core.PurchaseBillDoc{
		TenantCode: testTenant,
		BillID:     "BILL-1",
		BillNumber: "BILL-1",
		VendorName: "Bharat Battery House",
		BillDate:   date(2026, time.January, 8),
		SubTotal:   amt("4000.00"),
		TaxTotal:   amt("720.00"),
		Total:      amt("4720.00"),
	}); err != nil {
		t.Fatalf("Seed purchase failed: %v", err)
	}
	if _, err := posting.PostBillPayment(ctx, core.BillPaymentDoc{
		TenantCode:  testTenant,
		PaymentID:   "BP-1",
		BillNumber:  "BILL-1",
		VendorName:  "Bharat Battery House",
		PaymentDate: date(2026, time.January, 20),
		Amount:      amt("4720.00"),
		PaymentMode: "bank",
	}); err != nil {
		t.Fatalf("Seed bill payment failed: %v", err)
	}
	if _, err := posting.PostExpense(ctx, core.ExpenseDoc{
		TenantCode:  testTenant,
		ExpenseID:   "EXP-1",
		Category:    "Rent Expense",
		Description: "January rent",
		ExpenseDate: date(2026, time.January, 25),
		Amount:      amt("1500.00"),
		PaidThrough: "cash",
	}); err != nil {
		t.Fatalf("Seed expense failed: %v", err)
	}
}

func TestGetTrialBalance(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, _, posting, reporting := newServices(pool)
	seedTradingMonth(t, posting)

	tb, err := reporting.GetTrialBalance(context.Background(), testTenant, date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetTrialBalance failed: %v", err)
	}

	if !tb.Balanced {
		t.Errorf("Trial balance does not close: debit %s credit %s", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.TotalDebit.Equal(tb.TotalCredit) {
		t.Errorf("Totals differ: %s vs %s", tb.TotalDebit, tb.TotalCredit)
	}

	byCode := make(map[string]core.TrialBalanceRow)
	for _, row := range tb.Rows {
		byCode[row.AccountCode] = row
	}

	// AR was fully collected; its row nets to zero in both columns.
	ar := byCode["1100"]
	if !ar.DebitBalance.IsZero() || !ar.CreditBalance.IsZero() {
		t.Errorf("AR should net to zero, got D %s / C %s", ar.DebitBalance, ar.CreditBalance)
	}

	// Bank: +11800 -4720 = 7080 debit balance.
	bank := byCode["1200"]
	if !bank.DebitBalance.Equal(amt("7080.00")) {
		t.Errorf("Bank debit balance %s, want 7080.00", bank.DebitBalance)
	}

	// Sales revenue nets credit and therefore lands in the credit column.
	sales := byCode["4000"]
	if !sales.CreditBalance.Equal(amt("10000.00")) || !sales.DebitBalance.IsZero() {
		t.Errorf("Sales row wrong: D %s / C %s", sales.DebitBalance, sales.CreditBalance)
	}

	// Rent expense nets debit and lands in the debit column.
	rent := byCode["6300"]
	if !rent.DebitBalance.Equal(amt("1500.00")) {
		t.Errorf("Rent debit balance %s, want 1500.00", rent.DebitBalance)
	}
}

func TestGetTrialBalance_ExcludesLaterEntries(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, journal, posting, reporting := newServices(pool)
	seedTradingMonth(t, posting)
	ctx := context.Background()

	if _, err := journal.CreateJournalEntry(ctx, manualEntry("1000", "4200", "999.00", date(2026, time.February, 10))); err != nil {
		t.Fatalf("February entry failed: %v", err)
	}

	jan, err := reporting.GetTrialBalance(ctx, testTenant, date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetTrialBalance failed: %v", err)
	}
	for _, row := range jan.Rows {
		if row.AccountCode == "4200" {
			t.Error("January report includes a February entry")
		}
	}
	if !jan.Balanced {
		t.Error("January trial balance does not close")
	}
}

func TestGetAccountLedger(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	accounts, _, posting, reporting := newServices(pool)
	seedTradingMonth(t, posting)
	ctx := context.Background()

	bank, err := accounts.FindAccountByCode(ctx, testTenant, "1200")
	if err != nil || bank == nil {
		t.Fatalf("Bank lookup failed: %v", err)
	}

	ledger, err := reporting.GetAccountLedger(ctx, testTenant, bank.ID, nil, nil)
	if err != nil {
		t.Fatalf("GetAccountLedger failed: %v", err)
	}
	if len(ledger.Movements) != 2 {
		t.Fatalf("Expected 2 bank movements, got %d", len(ledger.Movements))
	}
	if !ledger.OpeningBalance.IsZero() {
		t.Errorf("Opening balance %s, want 0", ledger.OpeningBalance)
	}
	// Collection first, then the bill payment.
	if !ledger.Movements[0].RunningBalance.Equal(amt("11800.00")) {
		t.Errorf("Running balance after collection %s, want 11800.00", ledger.Movements[0].RunningBalance)
	}
	if !ledger.Movements[1].RunningBalance.Equal(amt("7080.00")) {
		t.Errorf("Running balance after payment %s, want 7080.00", ledger.Movements[1].RunningBalance)
	}
	if !ledger.ClosingBalance.Equal(amt("7080.00")) {
		t.Errorf("Closing balance %s, want 7080.00", ledger.ClosingBalance)
	}

	// A window starting mid-month carries the earlier activity as the
	// opening balance.
	from := date(2026, time.January, 15)
	windowed, err := reporting.GetAccountLedger(ctx, testTenant, bank.ID, &from, nil)
	if err != nil {
		t.Fatalf("Windowed ledger failed: %v", err)
	}
	if !windowed.OpeningBalance.Equal(amt("11800.00")) {
		t.Errorf("Windowed opening balance %s, want 11800.00", windowed.OpeningBalance)
	}
	if len(windowed.Movements) != 1 {
		t.Errorf("Expected 1 movement in window, got %d", len(windowed.Movements))
	}
	if !windowed.ClosingBalance.Equal(amt("7080.00")) {
		t.Errorf("Windowed closing balance %s, want 7080.00", windowed.ClosingBalance)
	}
}

func TestGetAccountLedger_UnknownAccount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, _, _, reporting := newServices(pool)

	_, err := reporting.GetAccountLedger(context.Background(), testTenant, 424242, nil, nil)
	if err == nil {
		t.Fatal("Expected unknown account to fail")
	}
}

func TestGetProfitAndLoss(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, _, posting, reporting := newServices(pool)
	seedTradingMonth(t, posting)

	pl, err := reporting.GetProfitAndLoss(context.Background(), testTenant,
		date(2026, time.January, 1), date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetProfitAndLoss failed: %v", err)
	}

	if !pl.TotalIncome.Equal(amt("10000.00")) {
		t.Errorf("Total income %s, want 10000.00", pl.TotalIncome)
	}
	// Purchases 4000 + rent 1500.
	if !pl.TotalExpenses.Equal(amt("5500.00")) {
		t.Errorf("Total expenses %s, want 5500.00", pl.TotalExpenses)
	}
	if !pl.NetProfit.Equal(amt("4500.00")) {
		t.Errorf("Net profit %s, want 4500.00", pl.NetProfit)
	}
	if !pl.GrossMarginPct.Equal(amt("45.00")) {
		t.Errorf("Margin %s, want 45.00", pl.GrossMarginPct)
	}

	// GST never shows up in the P&L: it is balance-sheet money.
	for _, l := range append(append([]core.ReportLine{}, pl.Income...), pl.Expenses...) {
		if l.AccountCode == "2101" || l.AccountCode == "1401" {
			t.Errorf("GST account %s leaked into the P&L", l.AccountCode)
		}
	}
}

func TestGetProfitAndLoss_ZeroIncome(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, _, posting, reporting := newServices(pool)
	ctx := context.Background()

	if _, err := posting.PostExpense(ctx, core.ExpenseDoc{
		TenantCode:  testTenant,
		ExpenseID:   "EXP-ONLY",
		Category:    "Rent Expense",
		Description: "Rent with no sales",
		ExpenseDate: date(2026, time.January, 5),
		Amount:      amt("2000.00"),
	}); err != nil {
		t.Fatalf("Seed expense failed: %v", err)
	}

	pl, err := reporting.GetProfitAndLoss(ctx, testTenant,
		date(2026, time.January, 1), date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetProfitAndLoss failed: %v", err)
	}
	if !pl.NetProfit.Equal(amt("-2000.00")) {
		t.Errorf("Net profit %s, want -2000.00", pl.NetProfit)
	}
	if !pl.GrossMarginPct.IsZero() {
		t.Errorf("Margin with zero income must be 0, got %s", pl.GrossMarginPct)
	}
}

func TestGetBalanceSheet(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, _, posting, reporting := newServices(pool)
	seedTradingMonth(t, posting)

	bs, err := reporting.GetBalanceSheet(context.Background(), testTenant, date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetBalanceSheet failed: %v", err)
	}

	if !bs.Balanced {
		t.Errorf("Balance sheet identity fails: assets %s liabilities %s equity %s retained %s",
			bs.TotalAssets, bs.TotalLiabilities, bs.TotalEquity, bs.RetainedEarnings)
	}
	if !bs.RetainedEarnings.Equal(amt("4500.00")) {
		t.Errorf("Retained earnings %s, want 4500.00", bs.RetainedEarnings)
	}

	// Assets: bank 7080 - cash 1500 spent... cash went negative (-1500),
	// bank 7080, GST input 720. Net assets = 6300.
	if !bs.TotalAssets.Equal(amt("6300.00")) {
		t.Errorf("Total assets %s, want 6300.00", bs.TotalAssets)
	}
	// Liabilities: GST payable 1800.
	if !bs.TotalLiabilities.Equal(amt("1800.00")) {
		t.Errorf("Total liabilities %s, want 1800.00", bs.TotalLiabilities)
	}

	identity := bs.TotalLiabilities.Add(bs.TotalEquity).Add(bs.RetainedEarnings)
	if bs.TotalAssets.Sub(identity).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
		t.Errorf("Identity off by more than a cent: %s vs %s", bs.TotalAssets, identity)
	}
}

func TestReversalRestoresReports(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	_, journal, posting, reporting := newServices(pool)
	ctx := context.Background()

	entry, err := posting.PostSalesInvoice(ctx, core.SalesInvoiceDoc{
		TenantCode:    testTenant,
		InvoiceID:     "INV-REV",
		InvoiceNumber: "INV-REV",
		CustomerName:  "Cancelled Customer",
		InvoiceDate:   date(2026, time.January, 5),
		SubTotal:      amt("10000.00"),
		TaxTotal:      amt("1800.00"),
		Total:         amt("11800.00"),
	})
	if err != nil {
		t.Fatalf("Sale failed: %v", err)
	}
	if _, err := journal.ReverseJournalEntry(ctx, testTenant, entry.ID, date(2026, time.January, 6), "tester", "order cancelled"); err != nil {
		t.Fatalf("Reversal failed: %v", err)
	}

	tb, err := reporting.GetTrialBalance(ctx, testTenant, date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetTrialBalance failed: %v", err)
	}
	if !tb.Balanced {
		t.Error("Trial balance does not close after reversal")
	}
	for _, row := range tb.Rows {
		if !row.DebitBalance.IsZero() || !row.CreditBalance.IsZero() {
			t.Errorf("Account %s not flat after reversal: D %s / C %s", row.AccountCode, row.DebitBalance, row.CreditBalance)
		}
	}

	pl, err := reporting.GetProfitAndLoss(ctx, testTenant, date(2026, time.January, 1), date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("GetProfitAndLoss failed: %v", err)
	}
	if !pl.NetProfit.IsZero() {
		t.Errorf("Net profit after reversal %s, want 0", pl.NetProfit)
	}
}
