package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/dbpool"
	"github.com/tenantguardhq/tenantguard/internal/store"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupTestBase creates a Base with a fresh test tenant, cleaned up after the test.
func setupTestBase(t *testing.T) (_ store.Base, _ string) {
	t.Helper()

	env := getTestEnv(t)
	tenantID := uuid.New().String()
	ctx := context.Background()

	// Insert test tenant directly (no RLS on the tenants registry).
	slug := "test-tenant-" + tenantID[:8]
	_, err := env.pool.Exec(ctx,
		"INSERT INTO tenants (id, name, slug) VALUES ($1, $2, $3)",
		tenantID, fmt.Sprintf("Test Tenant %s", tenantID[:8]), slug,
	)
	if err != nil {
		t.Fatalf("creating test tenant: %v", err)
	}

	t.Cleanup(func() {
		cleanCtx := context.Background()
		// Delete in dependency order: events, jobs, audit, config, tenant.
		env.pool.Exec(cleanCtx, "DELETE FROM tenant_provisioning_events WHERE tenant_id = $1", tenantID) //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM tenant_provisioning_jobs WHERE tenant_id = $1", tenantID)   //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM tenant_audit_log WHERE tenant_id = $1", tenantID)           //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM tenant_runtime_config WHERE tenant_id = $1", tenantID)      //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM tenants WHERE id = $1", tenantID)                           //nolint:errcheck // best-effort cleanup
	})

	base := store.Base{Pool: env.pool, Log: env.log}

	return base, tenantID
}

// scopedCtx returns a context carrying tenantID as the ambient tenant.
func scopedCtx(tenantID string) context.Context {
	return tenantctx.With(context.Background(), tenantctx.TenantContext{TenantID: tenantID})
}
