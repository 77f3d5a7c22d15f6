package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// TenantStore reads the tenant registry. The registry itself is a shared
// resource: rows are looked up by explicit ID at boundaries (request binding,
// provisioning) before any ambient context exists.
type TenantStore struct {
	Base
}

// NewTenantStore creates a TenantStore.
func NewTenantStore(base Base) *TenantStore {
	return &TenantStore{Base: base}
}

// GetTenant returns one tenant registry row.
func (s *TenantStore) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var t models.Tenant
	var slug *string

	err := s.Pool.QueryRow(ctx,
		"SELECT id, name, slug, created_at FROM tenants WHERE id = $1", tenantID,
	).Scan(&t.ID, &t.Name, &slug, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching tenant: %w", err)
	}

	if slug != nil {
		t.Slug = *slug
	}

	return &t, nil
}
