// verify-ledger runs a trial balance for every tenant and exits non-zero if
// any ledger fails to close. Intended for cron or a post-deploy check.
//
// Usage: go run ./cmd/verify-ledger
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"workshop-ledger/internal/config"
	"workshop-ledger/internal/core"
	"workshop-ledger/internal/db"
	"workshop-ledger/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New("verify-ledger", cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	accounts := core.NewAccountService(pool, log)
	reporting := core.NewReportingService(pool, log)

	tenants, err := accounts.ListTenants(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list tenants")
	}

	now := time.Now()
	failed := 0
	for _, t := range tenants {
		tb, err := reporting.GetTrialBalance(ctx, t.TenantCode, now)
		if err != nil {
			log.Error().Err(err).Str("tenant_code", t.TenantCode).Msg("trial balance failed")
			failed++
			continue
		}
		if !tb.Balanced {
			log.Error().
				Str("tenant_code", t.TenantCode).
				Str("total_debit", tb.TotalDebit.StringFixed(2)).
				Str("total_credit", tb.TotalCredit.StringFixed(2)).
				Msg("ledger does not balance")
			failed++
			continue
		}
		log.Info().
			Str("tenant_code", t.TenantCode).
			Int("accounts", len(tb.Rows)).
			Str("total_debit", tb.TotalDebit.StringFixed(2)).
			Msg("ledger balanced")
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("verification failed")
		os.Exit(1)
	}
	log.Info().Int("tenants", len(tenants)).Msg("all ledgers verified")
}
