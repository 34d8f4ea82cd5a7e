package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// AccountService is the chart-of-accounts directory: system-account seeding,
// lookups and lazy creation. Accounts are never deleted, only deactivated.
type AccountService struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewAccountService(pool *pgxpool.Pool, log zerolog.Logger) *AccountService {
	return &AccountService{pool: pool, log: log}
}

const accountColumns = "id, tenant_id, code, name, type, is_system, is_active, created_at"

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.IsSystem, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureSystemAccounts creates any missing system accounts for the tenant.
// Existing (tenant, code) pairs are skipped via ON CONFLICT, so the routine is
// safe to call repeatedly and from concurrent requests.
func (s *AccountService) EnsureSystemAccounts(ctx context.Context, tenantCode string) error {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return err
	}

	created := 0
	for _, def := range systemChart() {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO accounts (tenant_id, code, name, type, is_system)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (tenant_id, code) DO NOTHING
		`, tenantID, def.Code, def.Name, string(def.Type))
		if err != nil {
			return fmt.Errorf("failed to seed account %s (%s): %w", def.Name, def.Code, err)
		}
		created += int(tag.RowsAffected())
	}

	s.log.Info().Str("tenant", tenantCode).Int("created", created).Msg("system accounts ensured")
	return nil
}

// GetAccountByID fetches one account scoped to the tenant.
func (s *AccountService) GetAccountByID(ctx context.Context, tenantCode string, accountID int64) (*Account, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	a, err := scanAccount(s.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 AND id = $2", tenantID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "account", Key: strconv.FormatInt(accountID, 10)}
		}
		return nil, fmt.Errorf("failed to fetch account %d: %w", accountID, err)
	}
	return a, nil
}

// FindAccountByCode returns (nil, nil) when no account has the code.
func (s *AccountService) FindAccountByCode(ctx context.Context, tenantCode, code string) (*Account, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}
	return s.findByCode(ctx, s.pool, tenantID, code)
}

func (s *AccountService) findByID(ctx context.Context, q pgxQuerier, tenantID, accountID int64) (*Account, error) {
	a, err := scanAccount(q.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 AND id = $2", tenantID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch account %d: %w", accountID, err)
	}
	return a, nil
}

func (s *AccountService) findByCode(ctx context.Context, q pgxQuerier, tenantID int64, code string) (*Account, error) {
	a, err := scanAccount(q.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 AND code = $2", tenantID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch account by code %s: %w", code, err)
	}
	return a, nil
}

// FindAccountByName does a case-insensitive exact-name match and returns
// (nil, nil) on a miss.
func (s *AccountService) FindAccountByName(ctx context.Context, tenantCode, name string) (*Account, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	a, err := scanAccount(s.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 AND LOWER(name) = LOWER($2)", tenantID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch account by name %s: %w", name, err)
	}
	return a, nil
}

// GetOrCreateAccount returns the account matching name (case-insensitive) or
// creates it with the next free code in the type's numeric block. Concurrent
// creators racing for the same code retry on the unique violation.
func (s *AccountService) GetOrCreateAccount(ctx context.Context, tenantCode, name string, accType AccountType) (*Account, error) {
	if !accType.IsValid() {
		return nil, fmt.Errorf("invalid account type %q", accType)
	}

	existing, err := s.FindAccountByName(ctx, tenantCode, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	base := codeBlockBase(accType)
	for attempt := 0; attempt < 5; attempt++ {
		code, err := s.nextFreeCode(ctx, tenantID, base)
		if err != nil {
			return nil, err
		}

		a, err := scanAccount(s.pool.QueryRow(ctx, `
			INSERT INTO accounts (tenant_id, code, name, type)
			VALUES ($1, $2, $3, $4)
			RETURNING `+accountColumns,
			tenantID, code, name, string(accType)))
		if err == nil {
			s.log.Info().Str("tenant", tenantCode).Str("code", code).Str("name", name).Msg("account created")
			return a, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the code to a concurrent creator; the name may also have
			// been created by them.
			if existing, ferr := s.FindAccountByName(ctx, tenantCode, name); ferr == nil && existing != nil {
				return existing, nil
			}
			continue
		}
		return nil, fmt.Errorf("failed to create account %s: %w", name, err)
	}
	return nil, fmt.Errorf("failed to allocate a code for account %s after retries", name)
}

// nextFreeCode returns max numeric code inside [base, base+1000) plus one, or
// base+1 for an empty block.
func (s *AccountService) nextFreeCode(ctx context.Context, tenantID int64, base int) (string, error) {
	var maxCode int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(code::int), 0)
		FROM accounts
		WHERE tenant_id = $1
		  AND code ~ '^[0-9]+$'
		  AND code::int >= $2
		  AND code::int < $3
	`, tenantID, base, base+1000).Scan(&maxCode)
	if err != nil {
		return "", fmt.Errorf("failed to find next free account code: %w", err)
	}
	if maxCode == 0 {
		maxCode = base
	}
	return strconv.Itoa(maxCode + 1), nil
}

// DeactivateAccount soft-disables an account. System accounts refuse.
func (s *AccountService) DeactivateAccount(ctx context.Context, tenantCode string, accountID int64) error {
	a, err := s.GetAccountByID(ctx, tenantCode, accountID)
	if err != nil {
		return err
	}
	if a.IsSystem {
		return fmt.Errorf("account %s (%s) is a system account and cannot be deactivated", a.Name, a.Code)
	}

	_, err = s.pool.Exec(ctx, "UPDATE accounts SET is_active = FALSE WHERE id = $1", a.ID)
	if err != nil {
		return fmt.Errorf("failed to deactivate account %d: %w", accountID, err)
	}
	return nil
}

// ListAccounts returns the tenant's full chart ordered by code.
func (s *AccountService) ListAccounts(ctx context.Context, tenantCode string) ([]Account, error) {
	tenantID, err := resolveTenantID(ctx, s.pool, tenantCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 ORDER BY code", tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.IsSystem, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
