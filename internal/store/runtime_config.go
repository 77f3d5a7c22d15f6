package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// RuntimeConfigStore reads per-tenant runtime configuration. Writes happen
// only inside ProvisioningStore.CompleteJob, so provisioning remains the sole
// owner of the row.
type RuntimeConfigStore struct {
	Base
}

// NewRuntimeConfigStore creates a RuntimeConfigStore.
func NewRuntimeConfigStore(base Base) *RuntimeConfigStore {
	return &RuntimeConfigStore{Base: base}
}

// Get returns the ambient tenant's runtime config.
func (s *RuntimeConfigStore) Get(ctx context.Context) (*models.RuntimeConfig, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, tc, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	var rc models.RuntimeConfig

	err = tx.QueryRow(ctx, `
		SELECT tenant_id, schema_name, last_verified_at, updated_at
		FROM tenant_runtime_config
		WHERE tenant_id = $1`, tc.TenantID,
	).Scan(&rc.TenantID, &rc.SchemaName, &rc.LastVerifiedAt, &rc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRuntimeConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching runtime config: %w", err)
	}

	return &rc, nil
}
