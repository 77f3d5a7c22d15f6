// Package store provides focused, single-concern data access stores for the
// tenantguard core.
//
// Each store owns one domain (audit log, provisioning, runtime config,
// tenants) and embeds shared helpers via the Base struct. Tenant-scoped
// access never takes an explicit tenant parameter: Base.beginTx derives the
// tenant from the ambient context and installs it as app.tenant_id for the
// row-level security policies, so provisioning and audit writes pass through
// the same isolation discipline as ordinary application writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/dbpool"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

const defaultQueryTimeout = 30 * time.Second

// Store-level sentinel errors.
var (
	// ErrJobInProgress is returned when a tenant already has a PENDING or
	// EXECUTING provisioning job.
	ErrJobInProgress = errors.New("a provisioning job is already in progress for this tenant")

	// ErrJobNotFound is returned when a provisioning job does not exist for
	// the ambient tenant.
	ErrJobNotFound = errors.New("provisioning job not found")

	// ErrInvalidTransition is returned when a job status update does not
	// match the expected current status.
	ErrInvalidTransition = errors.New("provisioning job is not in the expected status")

	// ErrTenantNotFound is returned when a tenant is not registered.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrRuntimeConfigNotFound is returned when a tenant has no runtime
	// config row yet.
	ErrRuntimeConfigNotFound = errors.New("tenant runtime config not found")
)

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// setTenant sets the tenant for RLS policies within a transaction.
func setTenant(ctx context.Context, tx pgx.Tx, tenantID string) error {
	if _, err := uuid.Parse(tenantID); err != nil {
		return fmt.Errorf("invalid tenant ID format: %w", err)
	}

	_, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID)
	if err != nil {
		return fmt.Errorf("setting tenant context: %w", err)
	}

	return nil
}

// beginTx starts a read-write transaction scoped to the ambient tenant.
func (b *Base) beginTx(ctx context.Context) (pgx.Tx, tenantctx.TenantContext, error) {
	tc, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, tenantctx.TenantContext{}, err
	}

	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, tenantctx.TenantContext{}, fmt.Errorf("beginning transaction: %w", err)
	}

	if err := setTenant(ctx, tx, tc.TenantID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, tenantctx.TenantContext{}, err
	}

	return tx, tc, nil
}

// beginReadTx starts a read-only transaction scoped to the ambient tenant.
func (b *Base) beginReadTx(ctx context.Context) (pgx.Tx, tenantctx.TenantContext, error) {
	tc, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, tenantctx.TenantContext{}, err
	}

	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, tenantctx.TenantContext{}, fmt.Errorf("beginning read transaction: %w", err)
	}

	if err := setTenant(ctx, tx, tc.TenantID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, tenantctx.TenantContext{}, err
	}

	return tx, tc, nil
}

// requireTenantMatch fails closed when a row names a tenant other than the
// ambient one.
func requireTenantMatch(tc tenantctx.TenantContext, rowTenantID, resourceType string) error {
	if rowTenantID == tc.TenantID {
		return nil
	}

	return &tenantctx.TenantIsolationError{
		Message:        fmt.Sprintf("attempted write on %s for tenant %s without matching context", resourceType, rowTenantID),
		TenantID:       tc.TenantID,
		TargetTenantID: rowTenantID,
	}
}
