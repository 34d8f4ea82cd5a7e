package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"workshop-ledger/internal/core"
)

const testTenant = "WS1"

// setupTestDB connects to the dedicated test database, wipes the ledger
// tables and seeds one tenant with the system chart. Set TEST_DATABASE_URL to
// run these tests; without it they skip so a live database is never touched.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE journal_lines, journal_entries, entry_sequences, accounts, tenants CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	accounts := core.NewAccountService(pool, zerolog.Nop())
	if _, err := accounts.CreateTenant(ctx, testTenant, "Test Workshop"); err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	if err := accounts.EnsureSystemAccounts(ctx, testTenant); err != nil {
		t.Fatalf("Failed to seed system accounts: %v", err)
	}

	return pool
}

// newServices wires the full service stack against the test pool.
func newServices(pool *pgxpool.Pool) (*core.AccountService, *core.JournalService, *core.PostingService, *core.ReportingService) {
	log := zerolog.Nop()
	accounts := core.NewAccountService(pool, log)
	journal := core.NewJournalService(pool, accounts, log)
	posting := core.NewPostingService(journal, accounts, log)
	reporting := core.NewReportingService(pool, log)
	return accounts, journal, posting, reporting
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
