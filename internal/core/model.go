package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid reports whether t is one of the five ledger account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

type Tenant struct {
	ID         int64     `json:"id"`
	TenantCode string    `json:"tenant_code"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

type Account struct {
	ID        int64       `json:"id"`
	TenantID  int64       `json:"tenant_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	IsSystem  bool        `json:"is_system"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

// EntryType classifies a journal entry by the business event that produced it.
type EntryType string

const (
	EntryTypeSales        EntryType = "sales"
	EntryTypePurchase     EntryType = "purchase"
	EntryTypePayment      EntryType = "payment"
	EntryTypeReceipt      EntryType = "receipt"
	EntryTypeExpense      EntryType = "expense"
	EntryTypeJournal      EntryType = "journal"
	EntryTypePayroll      EntryType = "payroll"
	EntryTypeDepreciation EntryType = "depreciation"
	EntryTypeOpening      EntryType = "opening"
	EntryTypeAdjustment   EntryType = "adjustment"
)

var entryTypePrefixes = map[EntryType]string{
	EntryTypeSales:        "SAL",
	EntryTypePurchase:     "PUR",
	EntryTypePayment:      "PAY",
	EntryTypeReceipt:      "RCP",
	EntryTypeExpense:      "EXP",
	EntryTypeJournal:      "JRN",
	EntryTypePayroll:      "PRL",
	EntryTypeDepreciation: "DEP",
	EntryTypeOpening:      "OPN",
	EntryTypeAdjustment:   "ADJ",
}

func (t EntryType) IsValid() bool {
	_, ok := entryTypePrefixes[t]
	return ok
}

// Prefix returns the short code used in reference numbers, e.g. "SAL" in
// SAL-202601-0001.
func (t EntryType) Prefix() string {
	if p, ok := entryTypePrefixes[t]; ok {
		return p
	}
	return "JRN"
}

// JournalEntry is one balanced, dated financial record. Entries are posted at
// creation and immutable afterwards; a reversal cancels an entry by posting a
// mirror entry and flagging the original.
type JournalEntry struct {
	ID                int64     `json:"id"`
	PublicID          uuid.UUID `json:"public_id"`
	TenantID          int64     `json:"tenant_id"`
	EntryDate         time.Time `json:"entry_date"`
	ReferenceNumber   string    `json:"reference_number"`
	Description       string    `json:"description"`
	EntryType         EntryType `json:"entry_type"`
	SourceDocID       *string   `json:"source_doc_id,omitempty"`
	SourceDocType     *string   `json:"source_doc_type,omitempty"`
	IsPosted          bool      `json:"is_posted"`
	IsReversed        bool      `json:"is_reversed"`
	ReversalEntryID   *int64    `json:"reversal_entry_id,omitempty"`
	ReversalOfEntryID *int64    `json:"reversal_of_entry_id,omitempty"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Lines             []JournalLine `json:"lines"`
}

// JournalLine is one account movement within an entry. AccountCode, AccountName
// and AccountType are snapshots taken at posting time.
type JournalLine struct {
	ID          int64           `json:"id"`
	EntryID     int64           `json:"entry_id"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// LineInput is one requested account movement. The account is referenced by ID
// when set, otherwise by code.
type LineInput struct {
	AccountID   int64           `json:"account_id,omitempty"`
	AccountCode string          `json:"account_code,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// EntryInput is a request to create one journal entry.
type EntryInput struct {
	TenantCode    string      `json:"tenant_code"`
	EntryDate     time.Time   `json:"entry_date"`
	Description   string      `json:"description"`
	EntryType     EntryType   `json:"entry_type"`
	SourceDocID   string      `json:"source_doc_id,omitempty"`
	SourceDocType string      `json:"source_doc_type,omitempty"`
	CreatedBy     string      `json:"created_by"`
	Lines         []LineInput `json:"lines"`

	// reversalOf links a reversal entry to the entry it cancels and excludes
	// it from the source-document idempotency index. Set only by
	// ReverseJournalEntry.
	reversalOf *int64
}

// EntryFilter narrows ListJournalEntries. Zero values mean "no filter".
type EntryFilter struct {
	EntryType     EntryType
	SourceDocType string
	From          *time.Time
	To            *time.Time
}

type Page struct {
	Limit  int
	Offset int
}

// EntryPage is one page of journal entries plus the unpaged total.
type EntryPage struct {
	Entries    []JournalEntry `json:"entries"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}
