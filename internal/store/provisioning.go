package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// ProvisioningStore provides data access for provisioning jobs and their
// event trail. Jobs are mutated only through the orchestrator's state
// machine; events are append-only.
type ProvisioningStore struct {
	Base
}

// NewProvisioningStore creates a ProvisioningStore.
func NewProvisioningStore(base Base) *ProvisioningStore {
	return &ProvisioningStore{Base: base}
}

const jobColumns = "id, tenant_id, trigger, status, target_schema, started_at, completed_at, error_details, metadata, created_at"

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// CreateJob inserts a new provisioning job for the ambient tenant. A partial
// unique index allows at most one PENDING/EXECUTING job per tenant; a
// violation surfaces as ErrJobInProgress.
func (s *ProvisioningStore) CreateJob(ctx context.Context, job *models.ProvisioningJob) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, tc, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if err := requireTenantMatch(tc, job.TenantID, "TenantProvisioningJob"); err != nil {
		return err
	}

	metadataJSON, err := marshalJSONField(job.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling job metadata: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO tenant_provisioning_jobs (tenant_id, trigger, status, target_schema, started_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		job.TenantID, job.Trigger, job.Status, job.TargetSchema, job.StartedAt, metadataJSON,
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrJobInProgress
		}

		return fmt.Errorf("inserting provisioning job: %w", err)
	}

	return tx.Commit(ctx)
}

// HasActiveJob reports whether the ambient tenant already has a PENDING or
// EXECUTING job.
func (s *ProvisioningStore) HasActiveJob(ctx context.Context) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return false, err
	}

	var exists bool

	err = s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tenant_provisioning_jobs
			WHERE tenant_id = $1 AND status IN ('PENDING', 'EXECUTING')
		)`, tc.TenantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking active provisioning job: %w", err)
	}

	return exists, nil
}

// GetJob returns one of the ambient tenant's provisioning jobs.
func (s *ProvisioningStore) GetJob(ctx context.Context, jobID string) (*models.ProvisioningJob, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return nil, err
	}

	row := s.Pool.QueryRow(ctx,
		"SELECT "+jobColumns+" FROM tenant_provisioning_jobs WHERE id = $1 AND tenant_id = $2",
		jobID, tc.TenantID,
	)

	job, err := scanJob(row, s.Log)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching provisioning job: %w", err)
	}

	return job, nil
}

// ListJobs returns the ambient tenant's jobs, newest first, optionally
// filtered by status. Returns jobs, hasMore flag, and any error.
func (s *ProvisioningStore) ListJobs(
	ctx context.Context, status models.ProvisioningStatus, limit, offset int,
) ([]models.ProvisioningJob, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return nil, false, err
	}

	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + jobColumns + " FROM tenant_provisioning_jobs WHERE tenant_id = $1"
	args := []any{tc.TenantID}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit+1, offset)

	jobs, err := s.scanJobs(ctx, query, args)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
	}

	return jobs, hasMore, nil
}

// ListPendingJobs returns up to limit PENDING jobs across all tenants,
// oldest first. This is the provisioning worker's poll query and is the one
// deliberate cross-tenant read in the store; each returned job is then
// executed under its own tenant's context.
func (s *ProvisioningStore) ListPendingJobs(ctx context.Context, limit int) ([]models.ProvisioningJob, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 5
	}

	return s.scanJobs(ctx,
		"SELECT "+jobColumns+" FROM tenant_provisioning_jobs WHERE status = 'PENDING' ORDER BY created_at ASC LIMIT $1",
		[]any{limit},
	)
}

// MarkExecuting transitions one of the ambient tenant's jobs from PENDING to
// EXECUTING and starts the clock if the trigger didn't already. Returns
// ErrInvalidTransition if the job is not PENDING.
func (s *ProvisioningStore) MarkExecuting(ctx context.Context, jobID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return err
	}

	tag, err := s.Pool.Exec(ctx, `
		UPDATE tenant_provisioning_jobs
		SET status = 'EXECUTING', started_at = COALESCE(started_at, NOW())
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING'`,
		jobID, tc.TenantID,
	)
	if err != nil {
		return fmt.Errorf("marking job executing: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	return nil
}

// CompleteJob finishes a job atomically: the idempotent schema creation, the
// runtime-config upsert, and the COMPLETED status commit as one transaction.
// schemaName must already be normalized to a safe identifier.
func (s *ProvisioningStore) CompleteJob(ctx context.Context, jobID, schemaName string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, tc, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	// Safe to interpolate: schemaName is restricted to [a-z0-9_] by the
	// orchestrator's normalization, and quoted besides.
	if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schemaName)); err != nil {
		return fmt.Errorf("creating tenant schema: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO tenant_runtime_config (tenant_id, schema_name, last_verified_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET schema_name = EXCLUDED.schema_name, last_verified_at = NOW(), updated_at = NOW()`,
		tc.TenantID, schemaName,
	); err != nil {
		return fmt.Errorf("upserting runtime config: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE tenant_provisioning_jobs
		SET status = 'COMPLETED', completed_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'EXECUTING'`,
		jobID, tc.TenantID,
	)
	if err != nil {
		return fmt.Errorf("completing job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	return tx.Commit(ctx)
}

// FailJob transitions a job to FAILED with captured error details. FAILED is
// terminal; recovery happens through a fresh SYSTEM_RECOVERY job.
func (s *ProvisioningStore) FailJob(ctx context.Context, jobID string, errorDetails map[string]any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return err
	}

	detailsJSON, err := marshalJSONField(errorDetails)
	if err != nil {
		return fmt.Errorf("marshaling error details: %w", err)
	}

	tag, err := s.Pool.Exec(ctx, `
		UPDATE tenant_provisioning_jobs
		SET status = 'FAILED', completed_at = NOW(), error_details = $3
		WHERE id = $1 AND tenant_id = $2 AND status IN ('PENDING', 'EXECUTING')`,
		jobID, tc.TenantID, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failing job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	return nil
}

// InsertEvent appends one entry to a job's event trail.
func (s *ProvisioningStore) InsertEvent(ctx context.Context, ev models.ProvisioningEvent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return err
	}

	if err := requireTenantMatch(tc, ev.TenantID, "TenantProvisioningEvent"); err != nil {
		return err
	}

	payloadJSON, err := marshalJSONField(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO tenant_provisioning_events (job_id, tenant_id, action, status, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.JobID, ev.TenantID, ev.Action, ev.Status, payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting provisioning event: %w", err)
	}

	return nil
}

// ListEvents returns a job's event trail in creation order.
func (s *ProvisioningStore) ListEvents(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tc, err := requireAmbient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT id, job_id, tenant_id, action, status, payload, created_at
		FROM tenant_provisioning_events
		WHERE job_id = $1 AND tenant_id = $2
		ORDER BY created_at ASC, id ASC`,
		jobID, tc.TenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying provisioning events: %w", err)
	}
	defer rows.Close()

	var events []models.ProvisioningEvent
	for rows.Next() {
		var ev models.ProvisioningEvent
		var payloadJSON []byte

		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.TenantID, &ev.Action, &ev.Status, &payloadJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning provisioning event: %w", err)
		}
		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &ev.Payload); err != nil {
				s.Log.WithError(err).Warn("failed to unmarshal event payload")
			}
		}
		events = append(events, ev)
	}

	return events, nil
}

// scanJobs runs a job query and scans all rows.
func (s *ProvisioningStore) scanJobs(ctx context.Context, query string, args []any) ([]models.ProvisioningJob, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying provisioning jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ProvisioningJob
	for rows.Next() {
		job, err := scanJob(rows, s.Log)
		if err != nil {
			return nil, fmt.Errorf("scanning provisioning job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, nil
}
