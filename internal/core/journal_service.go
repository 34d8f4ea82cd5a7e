package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// JournalService creates, dedupes and reverses journal entries. Every create
// is one transaction: account resolution, the invariant gate, reference-number
// allocation and the entry+line inserts commit or roll back together.
type JournalService struct {
	pool     *pgxpool.Pool
	accounts *AccountService
	log      zerolog.Logger
}

func NewJournalService(pool *pgxpool.Pool, accounts *AccountService, log zerolog.Logger) *JournalService {
	return &JournalService{pool: pool, accounts: accounts, log: log}
}

// CreateJournalEntry validates and persists one entry. When the input names a
// source document that already has a live entry, the existing entry is
// returned unchanged — posting the same business event twice is not an error.
func (s *JournalService) CreateJournalEntry(ctx context.Context, input EntryInput) (*JournalEntry, error) {
	if input.TenantCode == "" {
		return nil, fmt.Errorf("tenant code is required")
	}
	if !input.EntryType.IsValid() {
		return nil, fmt.Errorf("invalid entry type %q", input.EntryType)
	}
	if (input.SourceDocID == "") != (input.SourceDocType == "") {
		return nil, fmt.Errorf("source doc id and source doc type must be set together")
	}
	if input.EntryDate.IsZero() {
		input.EntryDate = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entry, err := s.createInTx(ctx, tx, input)
	if err != nil {
		if errors.Is(err, errDuplicateSourceDoc) {
			// The winning insert has committed by the time ON CONFLICT
			// resolves, so the existing entry is visible here.
			existing, ferr := s.findBySourceDoc(ctx, input.TenantCode, input.SourceDocID, input.SourceDocType)
			if ferr != nil {
				return nil, ferr
			}
			s.log.Debug().
				Str("tenant", input.TenantCode).
				Str("source_doc_id", input.SourceDocID).
				Int64("entry_id", existing.ID).
				Msg("duplicate source document, returning existing entry")
			return existing, nil
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit journal entry: %w", err)
	}

	s.log.Info().
		Str("tenant", input.TenantCode).
		Str("reference", entry.ReferenceNumber).
		Str("type", string(entry.EntryType)).
		Int64("entry_id", entry.ID).
		Msg("journal entry posted")
	return entry, nil
}

// createInTx runs the whole create pipeline inside the caller's transaction.
// Returns errDuplicateSourceDoc when the idempotency index rejects the insert.
func (s *JournalService) createInTx(ctx context.Context, tx pgx.Tx, input EntryInput) (*JournalEntry, error) {
	tenantID, err := resolveTenantID(ctx, tx, input.TenantCode)
	if err != nil {
		return nil, err
	}

	// Resolve each line by account id, falling back to code. Unresolvable
	// references with no id and no code fall through to the validator.
	lines := make([]JournalLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		var acct *Account
		switch {
		case in.AccountID != 0:
			acct, err = s.accounts.findByID(ctx, tx, tenantID, in.AccountID)
			if err != nil {
				return nil, err
			}
			if acct == nil {
				return nil, &NotFoundError{Kind: "account", Key: strconv.FormatInt(in.AccountID, 10)}
			}
		case in.AccountCode != "":
			acct, err = s.accounts.findByCode(ctx, tx, tenantID, in.AccountCode)
			if err != nil {
				return nil, err
			}
			if acct == nil {
				return nil, &NotFoundError{Kind: "account", Key: in.AccountCode}
			}
		}

		line := JournalLine{
			Debit:       roundMoney(in.Debit),
			Credit:      roundMoney(in.Credit),
			Description: in.Description,
		}
		if acct != nil {
			line.AccountID = acct.ID
			line.AccountCode = acct.Code
			line.AccountName = acct.Name
			line.AccountType = acct.Type
		}
		lines = append(lines, line)
	}

	if verr := validateEntryLines(lines); verr != nil {
		return nil, verr
	}

	// Reference numbers come from a per-(tenant, month) counter row. The row
	// lock taken by this upsert serializes concurrent posting within the
	// tenant-month, and the increment rolls back with the entry, keeping the
	// sequence gapless.
	period := input.EntryDate.Format("200601")
	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO entry_sequences (tenant_id, period, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, period)
		DO UPDATE SET last_number = entry_sequences.last_number + 1
		RETURNING last_number
	`, tenantID, period).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate reference number: %w", err)
	}
	reference := fmt.Sprintf("%s-%s-%04d", input.EntryType.Prefix(), period, seq)

	var sourceDocID, sourceDocType *string
	if input.SourceDocID != "" {
		sourceDocID = &input.SourceDocID
		sourceDocType = &input.SourceDocType
	}

	entry := &JournalEntry{
		PublicID:          uuid.New(),
		TenantID:          tenantID,
		EntryDate:         input.EntryDate,
		ReferenceNumber:   reference,
		Description:       input.Description,
		EntryType:         input.EntryType,
		SourceDocID:       sourceDocID,
		SourceDocType:     sourceDocType,
		IsPosted:          true,
		CreatedBy:         input.CreatedBy,
		ReversalOfEntryID: input.reversalOf,
	}

	insert := `
		INSERT INTO journal_entries
			(public_id, tenant_id, entry_date, reference_number, description, entry_type,
			 source_doc_id, source_doc_type, is_posted, reversal_of_entry_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10)`
	if sourceDocID != nil && input.reversalOf == nil {
		insert += `
		ON CONFLICT (tenant_id, source_doc_id, source_doc_type)
			WHERE source_doc_id IS NOT NULL AND is_reversed = FALSE AND reversal_of_entry_id IS NULL
			DO NOTHING`
	}
	insert += `
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, insert,
		entry.PublicID, tenantID, input.EntryDate, reference, input.Description, string(input.EntryType),
		sourceDocID, sourceDocType, input.reversalOf, input.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errDuplicateSourceDoc
		}
		return nil, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	for i := range lines {
		line := &lines[i]
		line.EntryID = entry.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO journal_lines
				(entry_id, account_id, account_code, account_name, account_type, debit, credit, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, entry.ID, line.AccountID, line.AccountCode, line.AccountName, string(line.AccountType),
			line.Debit, line.Credit, line.Description,
		).Scan(&line.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert journal line: %w", err)
		}
	}

	entry.Lines = lines
	return entry, nil
}

// ReverseJournalEntry posts a mirror entry (debits and credits swapped) and
// marks the original reversed, atomically. The original row is retained for
// audit; its effect is cancelled by the reversal it now points to.
func (s *JournalService) ReverseJournalEntry(ctx context.Context, tenantCode string, entryID int64, reversalDate time.Time, createdBy, reason string) (*JournalEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tenantID, err := resolveTenantID(ctx, tx, tenantCode)
	if err != nil {
		return nil, err
	}

	var (
		reference     string
		entryType     EntryType
		sourceDocID   *string
		sourceDocType *string
		isPosted      bool
		isReversed    bool
	)
	err = tx.QueryRow(ctx, `
		SELECT reference_number, entry_type, source_doc_id, source_doc_type, is_posted, is_reversed
		FROM journal_entries
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, entryID).Scan(&reference, &entryType, &sourceDocID, &sourceDocType, &isPosted, &isReversed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "journal entry", Key: strconv.FormatInt(entryID, 10)}
		}
		return nil, fmt.Errorf("failed to fetch entry %d: %w", entryID, err)
	}
	if isReversed || !isPosted {
		return nil, &NotFoundError{Kind: "reversible journal entry", Key: strconv.FormatInt(entryID, 10)}
	}

	lines, err := fetchEntryLines(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}

	if reversalDate.IsZero() {
		reversalDate = time.Now()
	}

	input := EntryInput{
		TenantCode:  tenantCode,
		EntryDate:   reversalDate,
		Description: fmt.Sprintf("Reversal of %s: %s", reference, reason),
		EntryType:   entryType,
		CreatedBy:   createdBy,
		reversalOf:  &entryID,
	}
	if sourceDocID != nil {
		input.SourceDocID = *sourceDocID
		input.SourceDocType = *sourceDocType
	}
	for _, line := range lines {
		input.Lines = append(input.Lines, LineInput{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}

	reversal, err := s.createInTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE journal_entries
		SET is_reversed = TRUE, reversal_entry_id = $1, updated_at = NOW()
		WHERE id = $2
	`, reversal.ID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark entry %d reversed: %w", entryID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reversal: %w", err)
	}

	s.log.Info().
		Str("tenant", tenantCode).
		Int64("entry_id", entryID).
		Int64("reversal_id", reversal.ID).
		Str("reference", reversal.ReferenceNumber).
		Msg("journal entry reversed")
	return reversal, nil
}

// GetJournalEntry fetches one entry with its lines, scoped to the tenant.
func (s *JournalService) GetJournalEntry(ctx context.Context, tenantCode string, entryID int64) (*JournalEntry, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	entry, err := scanEntry(s.pool.QueryRow(ctx,
		"SELECT "+entryColumns+" FROM journal_entries WHERE tenant_id = $1 AND id = $2", tenantID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "journal entry", Key: strconv.FormatInt(entryID, 10)}
		}
		return nil, fmt.Errorf("failed to fetch entry %d: %w", entryID, err)
	}

	entry.Lines, err = fetchEntryLines(ctx, s.pool, entry.ID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// findBySourceDoc returns the live (non-reversed, non-reversal) entry for a
// source document.
func (s *JournalService) findBySourceDoc(ctx context.Context, tenantCode, sourceDocID, sourceDocType string) (*JournalEntry, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	entry, err := scanEntry(s.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM journal_entries
		WHERE tenant_id = $1 AND source_doc_id = $2 AND source_doc_type = $3
		  AND is_reversed = FALSE AND reversal_of_entry_id IS NULL
	`, tenantID, sourceDocID, sourceDocType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "journal entry for source document", Key: sourceDocID}
		}
		return nil, fmt.Errorf("failed to fetch entry for source doc %s: %w", sourceDocID, err)
	}

	entry.Lines, err = fetchEntryLines(ctx, s.pool, entry.ID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListJournalEntries returns one page of entries, newest first, with lines.
func (s *JournalService) ListJournalEntries(ctx context.Context, tenantCode string, filter EntryFilter, page Page) (*EntryPage, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	if page.Limit <= 0 || page.Limit > 500 {
		page.Limit = 50
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	where := " WHERE tenant_id = $1"
	args := []any{tenantID}
	if filter.EntryType != "" {
		args = append(args, string(filter.EntryType))
		where += fmt.Sprintf(" AND entry_type = $%d", len(args))
	}
	if filter.SourceDocType != "" {
		args = append(args, filter.SourceDocType)
		where += fmt.Sprintf(" AND source_doc_type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM journal_entries"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	query := "SELECT " + entryColumns + " FROM journal_entries" + where +
		fmt.Sprintf(" ORDER BY entry_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	var entryIDs []int64
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, *entry)
		entryIDs = append(entryIDs, entry.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal entry iteration error: %w", err)
	}

	if len(entryIDs) > 0 {
		linesByEntry, err := fetchLinesForEntries(ctx, s.pool, entryIDs)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			entries[i].Lines = linesByEntry[entries[i].ID]
		}
	}

	return &EntryPage{Entries: entries, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}

const entryColumns = `id, public_id, tenant_id, entry_date, reference_number, description, entry_type,
	source_doc_id, source_doc_type, is_posted, is_reversed, reversal_entry_id, reversal_of_entry_id,
	created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (*JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(
		&e.ID, &e.PublicID, &e.TenantID, &e.EntryDate, &e.ReferenceNumber, &e.Description, &e.EntryType,
		&e.SourceDocID, &e.SourceDocType, &e.IsPosted, &e.IsReversed, &e.ReversalEntryID, &e.ReversalOfEntryID,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type pgxRowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const lineColumns = "id, entry_id, account_id, account_code, account_name, account_type, debit, credit, description"

func fetchEntryLines(ctx context.Context, q pgxRowsQuerier, entryID int64) ([]JournalLine, error) {
	byEntry, err := fetchLinesForEntries(ctx, q, []int64{entryID})
	if err != nil {
		return nil, err
	}
	return byEntry[entryID], nil
}

func fetchLinesForEntries(ctx context.Context, q pgxRowsQuerier, entryIDs []int64) (map[int64][]JournalLine, error) {
	rows, err := q.Query(ctx,
		"SELECT "+lineColumns+" FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, id", entryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal lines: %w", err)
	}
	defer rows.Close()

	byEntry := make(map[int64][]JournalLine)
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.AccountCode, &l.AccountName, &l.AccountType,
			&l.Debit, &l.Credit, &l.Description); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		byEntry[l.EntryID] = append(byEntry[l.EntryID], l)
	}
	return byEntry, rows.Err()
}
