package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// lookup helpers inside and outside transactions.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// resolveTenantID looks up the internal tenant ID from a tenant code.
func resolveTenantID(ctx context.Context, q pgxQuerier, tenantCode string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, "SELECT id FROM tenants WHERE tenant_code = $1", tenantCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &NotFoundError{Kind: "tenant", Key: tenantCode}
		}
		return 0, fmt.Errorf("failed to resolve tenant %s: %w", tenantCode, err)
	}
	return id, nil
}

// CreateTenant registers a tenant, returning the existing row if the code is
// already taken.
func (s *AccountService) CreateTenant(ctx context.Context, tenantCode, name string) (*Tenant, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (tenant_code, name)
		VALUES ($1, $2)
		ON CONFLICT (tenant_code) DO NOTHING
	`, tenantCode, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant %s: %w", tenantCode, err)
	}
	return s.GetTenant(ctx, tenantCode)
}

func (s *AccountService) GetTenant(ctx context.Context, tenantCode string) (*Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		"SELECT id, tenant_code, name, created_at FROM tenants WHERE tenant_code = $1", tenantCode,
	).Scan(&t.ID, &t.TenantCode, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "tenant", Key: tenantCode}
		}
		return nil, fmt.Errorf("failed to fetch tenant %s: %w", tenantCode, err)
	}
	return &t, nil
}

func (s *AccountService) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, tenant_code, name, created_at FROM tenants ORDER BY tenant_code")
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.TenantCode, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
