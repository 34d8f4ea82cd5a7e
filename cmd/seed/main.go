// seed creates (or refreshes) a workshop tenant and its system chart of
// accounts. Safe to re-run: existing accounts are left untouched.
//
// Usage: go run ./cmd/seed <tenant-code> [tenant-name]
package main

import (
	"context"
	"fmt"
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

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: seed <tenant-code> [tenant-name]")
		os.Exit(2)
	}
	code := os.Args[1]
	name := code
	if len(os.Args) > 2 {
		name = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("seed", cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	accounts := core.NewAccountService(pool, log)

	tenant, err := accounts.CreateTenant(ctx, code, name)
	if err != nil {
		log.Fatal().Err(err).Str("tenant_code", code).Msg("failed to create tenant")
	}

	if err := accounts.EnsureSystemAccounts(ctx, tenant.TenantCode); err != nil {
		log.Fatal().Err(err).Str("tenant_code", tenant.TenantCode).Msg("failed to seed system accounts")
	}

	log.Info().Str("tenant_code", tenant.TenantCode).Str("tenant_name", tenant.Name).Msg("tenant seeded")
}
