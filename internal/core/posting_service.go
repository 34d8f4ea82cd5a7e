package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Source-document types used as idempotency-key components.
const (
	SourceDocSalesInvoice    = "sales_invoice"
	SourceDocInvoicePayment  = "invoice_payment"
	SourceDocPurchaseBill    = "purchase_bill"
	SourceDocBillPayment     = "bill_payment"
	SourceDocExpense         = "expense"
	SourceDocPayrollRun      = "payroll_run"
)

// PostingService translates business documents into balanced journal entries.
// Each rule builds a line set against the tenant's system accounts and
// delegates to the JournalService, which is where validation, numbering and
// idempotency live. Rules balance by construction; the entry validator is the
// final guard, not a substitute for correct arithmetic here.
type PostingService struct {
	journal  *JournalService
	accounts *AccountService
	log      zerolog.Logger
}

func NewPostingService(journal *JournalService, accounts *AccountService, log zerolog.Logger) *PostingService {
	return &PostingService{journal: journal, accounts: accounts, log: log}
}

// systemAccount resolves one seeded account by its well-known code. A miss is
// fatal for the posting and nothing is written.
func (s *PostingService) systemAccount(ctx context.Context, tenantCode, code string) (*Account, error) {
	acct, err := s.accounts.FindAccountByCode(ctx, tenantCode, code)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		name := code
		for _, def := range systemChart() {
			if def.Code == code {
				name = def.Name
				break
			}
		}
		return nil, &AccountResolutionError{TenantCode: tenantCode, AccountCode: code, AccountName: name}
	}
	return acct, nil
}

// gstSplit returns the CGST/SGST/IGST amounts for a document. When the
// document carries a tax total but no breakdown, the intra-state policy
// fallback applies: CGST is half the total (half-up), SGST the remainder, so
// the two always sum to the total. This is a documented default, not a guess
// at tax-engine output.
func gstSplit(taxTotal, cgst, sgst, igst decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	if cgst.IsZero() && sgst.IsZero() && igst.IsZero() && taxTotal.IsPositive() {
		half := taxTotal.DivRound(decimal.NewFromInt(2), 2)
		return half, taxTotal.Sub(half), decimal.Zero
	}
	return cgst, sgst, igst
}

// settlementAccountCode picks the cash or bank account by payment mode.
func settlementAccountCode(paymentMode string) string {
	if strings.EqualFold(strings.TrimSpace(paymentMode), "cash") {
		return codeCash
	}
	return codeBank
}

// ── Sales invoice ────────────────────────────────────────────────────────────

// SalesInvoiceDoc is the payload a sales-invoice producer hands to the engine.
// Tax amounts arrive pre-computed; CGST/SGST/IGST may be omitted when TaxTotal
// carries the combined figure.
type SalesInvoiceDoc struct {
	TenantCode     string
	InvoiceID      string
	InvoiceNumber  string
	CustomerName   string
	InvoiceDate    time.Time
	SubTotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	IGST           decimal.Decimal
	Total          decimal.Decimal
	ServiceInvoice bool // credit Service Revenue instead of Sales Revenue
	CreatedBy      string
}

// PostSalesInvoice books DR Accounts Receivable for the total against
// CR revenue and CR GST payable lines.
func (s *PostingService) PostSalesInvoice(ctx context.Context, doc SalesInvoiceDoc) (*JournalEntry, error) {
	ar, err := s.systemAccount(ctx, doc.TenantCode, codeAccountsReceivable)
	if err != nil {
		return nil, err
	}
	revenueCode := codeSalesRevenue
	if doc.ServiceInvoice {
		revenueCode = codeServiceRevenue
	}
	revenue, err := s.systemAccount(ctx, doc.TenantCode, revenueCode)
	if err != nil {
		return nil, err
	}

	cgst, sgst, igst := gstSplit(doc.TaxTotal, doc.CGST, doc.SGST, doc.IGST)

	lines := []LineInput{
		{AccountID: ar.ID, Debit: doc.Total, Description: fmt.Sprintf("Invoice %s — %s", doc.InvoiceNumber, doc.CustomerName)},
		{AccountID: revenue.ID, Credit: doc.SubTotal},
	}
	for _, gl := range []struct {
		code   string
		amount decimal.Decimal
	}{
		{codeGSTPayableCGST, cgst},
		{codeGSTPayableSGST, sgst},
		{codeGSTPayableIGST, igst},
	} {
		if gl.amount.IsZero() {
			continue
		}
		acct, err := s.systemAccount(ctx, doc.TenantCode, gl.code)
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineInput{AccountID: acct.ID, Credit: gl.amount})
	}

	return s.journal.CreateJournalEntry(ctx, EntryInput{
		TenantCode:    doc.TenantCode,
		EntryDate:     doc.InvoiceDate,
		Description:   fmt.Sprintf("Sales invoice %s — %s", doc.InvoiceNumber, doc.CustomerName),
		EntryType:     EntryTypeSales,
		SourceDocID:   doc.InvoiceID,
		SourceDocType: SourceDocSalesInvoice,
		CreatedBy:     doc.CreatedBy,
		Lines:         lines,
	})
}

// ── Payment received ─────────────────────────────────────────────────────────

// PaymentDoc records money received against an invoice.
type PaymentDoc struct {
	TenantCode   string
	PaymentID    string
	Reference    string
	CustomerName string
	PaymentDate  time.Time
	Amount       decimal.Decimal
	PaymentMode  string // "cash" settles to Cash, anything else to Bank
	CreatedBy    string
}

// PostPaymentReceived books DR Bank/Cash against CR Accounts Receivable.
func (s *PostingService) PostPaymentReceived(ctx context.Context, doc PaymentDoc) (*JournalEntry, error) {
	settle, err := s.systemAccount(ctx, doc.TenantCode, settlementAccountCode(doc.PaymentMode))
	if err != nil {
		return nil, err
	}
	ar, err := s.systemAccount(ctx, doc.TenantCode, codeAccountsReceivable)
	if err != nil {
		return nil, err
	}

	return s.journal.CreateJournalEntry(ctx, EntryInput{
		TenantCode:    doc.TenantCode,
		EntryDate:     doc.PaymentDate,
		Description:   fmt.Sprintf("Payment received from %s (%s)", doc.CustomerName, doc.Reference),
		EntryType:     EntryTypeReceipt,
		SourceDocID:   doc.PaymentID,
		SourceDocType: SourceDocInvoicePayment,
		CreatedBy:     doc.CreatedBy,
		Lines: []LineInput{
			{AccountID: settle.ID, Debit: doc.Amount},
			{AccountID: ar.ID, Credit: doc.Amount},
		},
	})
}

// ── Purchase bill ────────────────────────────────────────────────────────────

// PurchaseBillDoc is a vendor bill. ForResale routes the net amount to COGS
// instead of Purchases.
type PurchaseBillDoc struct {
	TenantCode string
	BillID     string
	BillNumber string
	VendorName string
	BillDate   time.Time
	SubTotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	CGST       decimal.Decimal
	SGST       decimal.Decimal
	IGST       decimal.Decimal
	Total      decimal.Decimal
	ForResale  bool
	CreatedBy  string
}

// PostPurchaseBill books DR Purchases/COGS and DR GST input against
// CR Accounts Payable for the total.
func (s *PostingService) PostPurchaseBill(ctx context.Context, doc PurchaseBillDoc) (*JournalEntry, error) {
	expenseCode := codePurchases
	if doc.ForResale {
		expenseCode = codeCOGS
	}
	expense, err := s.systemAccount(ctx, doc.TenantCode, expenseCode)
	if err != nil {
		return nil, err
	}
	ap, err := s.systemAccount(ctx, doc.TenantCode, codeAccountsPayable)
	if err != nil {
		return nil, err
	}

	cgst, sgst, igst := gstSplit(doc.TaxTotal, doc.CGST, doc.SGST, doc.IGST)

	lines := []LineInput{
		{AccountID: expense.ID, Debit: doc.SubTotal, Description: fmt.Sprintf("Bill %s — %s", doc.BillNumber, doc.VendorName)},
	}
	for _, gl := range []struct {
		code   string
		amount decimal.Decimal
	}{
		{codeGSTInputCGST, cgst},
		{codeGSTInputSGST, sgst},
		{codeGSTInputIGST, igst},
	} {
		if gl.amount.IsZero() {
			continue
		}
		acct, err := s.systemAccount(ctx, doc.TenantCode, gl.code)
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineInput{AccountID: acct.ID, Debit: gl.amount})
	}
	lines = append(lines, LineInput{AccountID: ap.ID, Credit: doc.Total})

	return s.journal.CreateJournalEntry(ctx, EntryInput{
		TenantCode:    doc.TenantCode,
		EntryDate:     doc.BillDate,
		Description:   fmt.Sprintf("Purchase bill %s — %s", doc.BillNumber, doc.VendorName),
		EntryType:     EntryTypePurchase,
		SourceDocID:   doc.BillID,
		SourceDocType: SourceDocPurchaseBill,
		CreatedBy:     doc.CreatedBy,
		Lines:         lines,
	})
}

// ── Bill payment ─────────────────────────────────────────────────────────────

// BillPaymentDoc records money paid against a vendor bill.
type BillPaymentDoc struct {
	TenantCode  string
	PaymentID   string
	BillNumber  string
	VendorName  string
	PaymentDate time.Time
	Amount      decimal.Decimal
	PaymentMode string
	CreatedBy   string
}

// PostBillPayment books DR Accounts Payable against CR Bank/Cash.
func (s *PostingService) PostBillPayment(ctx context.Context, doc BillPaymentDoc) (*JournalEntry, error) {
	ap, err := s.systemAccount(ctx, doc.TenantCode, codeAccountsPayable)
	if err != nil {
		return nil, err
	}
	settle, err := s.systemAccount(ctx, doc.TenantCode, settlementAccountCode(doc.PaymentMode))
	if err != nil {
		return nil, err
	}

	return s.journal.CreateJournalEntry(ctx, EntryInput{
		TenantCode:    doc.TenantCode,
		EntryDate:     doc.PaymentDate,
		Description:   fmt.Sprintf("Payment to %s for bill %s", doc.VendorName, doc.BillNumber),
		EntryType:     EntryTypePayment,
		SourceDocID:   doc.PaymentID,
		SourceDocType: SourceDocBillPayment,
		CreatedBy:     doc.CreatedBy,
		Lines: []LineInput{
			{AccountID: ap.ID, Debit: doc.Amount},
			{AccountID: settle.ID, Credit: doc.Amount},
		},
	})
}

// ── Generic expense ──────────────────────────────────────────────────────────

// ExpenseDoc is a standalone expense. Category names the expense account,
// which is created lazily if the tenant does not have it yet. PaidThrough is
// "cash", "bank" or "credit" (accounts payable); bank is the default.
type ExpenseDoc struct {
	TenantCode  string
	ExpenseID   string
	Category    string
	Description string
	ExpenseDate time.Time
	Amount      decimal.Decimal
	PaidThrough string
	CreatedBy   string
}

// PostExpense books DR the named expense account against CR the settlement
// account chosen by PaidThrough.
func (s *PostingService) PostExpense(ctx context.Context, doc ExpenseDoc) (*JournalEntry, error) {
	if strings.TrimSpace(doc.Category) == "" {
		return nil, fmt.Errorf("expense category is required")
	}

	expense, err := s.accounts.GetOrCreateAccount(ctx, doc.TenantCode, doc.Category, AccountTypeExpense)
	if err != nil {
		return nil, err
	}

	var creditCode string
	switch strings.ToLower(strings.TrimSpace(doc.PaidThrough)) {
	case "cash":
		creditCode = codeCash
	case "credit", "accounts_payable":
		creditCode = codeAccountsPayable
	default:
		creditCode = codeBank
	}
	credit, err := s.systemAccount(ctx, doc.TenantCode, creditCode)
	if err != nil {
		return nil, err
	}

	return s.journal.CreateJournalEntry(ctx, EntryInput{
		TenantCode:    doc.TenantCode,
		EntryDate:     doc.ExpenseDate,
		Description:   fmt.Sprintf("Expense: %s", doc.Description),
		EntryType:     EntryTypeExpense,
		SourceDocID:   doc.ExpenseID,
		SourceDocType: SourceDocExpense,
		CreatedBy:     doc.CreatedBy,
		Lines: []LineInput{
			{AccountID: expense.ID, Debit: doc.Amount, Description: doc.Description},
			{AccountID: credit.ID, Credit: doc.Amount},
		},
	})
}

// ── Payroll run ──────────────────────────────────────────────────────────────

// PayrollEmployee carries one employee's computed pay components for a period.
type PayrollEmployee struct {
	EmployeeID      string
	Name            string
	Gross           decimal.Decimal
	TDS             decimal.Decimal
	EmployeePF      decimal.Decimal
	EmployerPF      decimal.Decimal
	EmployeeESI     decimal.Decimal
	EmployerESI     decimal.Decimal
	ProfessionalTax decimal.Decimal
}

// PayrollRunDoc is a whole pay period for a tenant, posted as one entry.
type PayrollRunDoc struct {
	TenantCode  string
	RunID       string
	PeriodLabel string
	PayDate     time.Time
	Employees   []PayrollEmployee
	CreatedBy   string
}

// payrollTotals aggregates a run across employees. Net pay per employee is
// gross minus the employee-side deductions (PF, ESI, TDS, professional tax).
type payrollTotals struct {
	Gross       decimal.Decimal
	TDS         decimal.Decimal
	EmployeePF  decimal.Decimal
	EmployerPF  decimal.Decimal
	ESI         decimal.Decimal // employee + employer
	ProfTax     decimal.Decimal
	EmployerESI decimal.Decimal
	NetPay      decimal.Decimal
}

func sumPayroll(employees []PayrollEmployee) payrollTotals {
	var t payrollTotals
	for _, e := range employees {
		net := e.Gross.Sub(e.EmployeePF).Sub(e.EmployeeESI).Sub(e.TDS).Sub(e.ProfessionalTax)
		t.Gross = t.Gross.Add(e.Gross)
		t.TDS = t.TDS.Add(e.TDS)
		t.EmployeePF = t.EmployeePF.Add(e.EmployeePF)
		t.EmployerPF = t.EmployerPF.Add(e.EmployerPF)
		t.ESI = t.ESI.Add(e.EmployeeESI).Add(e.EmployerESI)
		t.EmployerESI = t.EmployerESI.Add(e.EmployerESI)
		t.ProfTax = t.ProfTax.Add(e.ProfessionalTax)
		t.NetPay = t.NetPay.Add(net)
	}
	return t
}

func (t payrollTotals) allZero() bool {
	return t.Gross.IsZero() && t.TDS.IsZero() && t.EmployeePF.IsZero() &&
		t.EmployerPF.IsZero() && t.ESI.IsZero() && t.ProfTax.IsZero()
}

// PostPayrollRun books one entry for the whole period: salary and employer
// contribution expenses against the payable accounts, with zero credit lines
// omitted. Fails with ErrNoAmounts when every total is zero.
func (s *PostingService) PostPayrollRun(ctx context.Context, doc PayrollRunDoc) (*JournalEntry, error) {
	totals := sumPayroll(doc.Employees)
	if totals.allZero() {
		return nil, ErrNoAmounts
	}

	specs := []struct {
		code   string
		amount decimal.Decimal
		debit  bool
	}{
		{codeSalaryExpense, totals.Gross, true},
		{codeEmployerPFExpense, totals.EmployerPF, true},
		{codeEmployerESIExpense, totals.EmployerESI, true},
		{codeSalaryPayable, totals.NetPay, false},
		{codeTDSPayable, totals.TDS, false},
		{codeEmployeePFPayable, totals.EmployeePF, false},
		{codeEmployerPFPayable, totals.EmployerPF, false},
		{codeESIPayable, totals.ESI, false},
		{codeProfessionalTaxPayable, totals.ProfTax, false},
	}

	var lines []LineInput
	for _, sp := range specs {
		if sp.amount.IsZero() {
			continue
		}
		acct, err := s.systemAccount(ctx, doc.TenantCode, sp.code)
		if err != nil {
			return nil, err
		}
		line := LineInput{AccountID: acct.ID}
		if sp.debit {
			line.Debit = sp.amount
		} else {
			line.Credit = sp.amount
		}
		lines = append(lines, line)
	}

	return s.journal.CreateJournalEntry(ctx, EntryInput{
		TenantCode:    doc.TenantCode,
		EntryDate:     doc.PayDate,
		Description:   fmt.Sprintf("Payroll for %s (%d employees)", doc.PeriodLabel, len(doc.Employees)),
		EntryType:     EntryTypePayroll,
		SourceDocID:   doc.RunID,
		SourceDocType: SourceDocPayrollRun,
		CreatedBy:     doc.CreatedBy,
		Lines:         lines,
	})
}
