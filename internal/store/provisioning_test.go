package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/store"
)

// newTestJob builds an unscheduled PENDING job for the given tenant.
func newTestJob(tenantID, schema string) *models.ProvisioningJob {
	return &models.ProvisioningJob{
		TenantID:     tenantID,
		Trigger:      models.TriggerManualOverride,
		Status:       models.StatusPending,
		TargetSchema: schema,
		Metadata:     map[string]any{"source": "test"},
	}
}

// testSchema derives a unique safe schema name and schedules its cleanup.
func testSchema(t *testing.T, base store.Base, tenantID string) string {
	t.Helper()
	schema := "tg_test_" + tenantID[:8]
	t.Cleanup(func() {
		base.Pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE") //nolint:errcheck // best-effort cleanup
	})
	return schema
}

func TestCreateJobAssignsIDAndTimestamps(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	ctx := scopedCtx(tenantID)

	job := newTestJob(tenantID, "tg_test_create")
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID == "" || job.CreatedAt.IsZero() {
		t.Errorf("job not populated: id=%q created_at=%v", job.ID, job.CreatedAt)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != models.StatusPending || got.Trigger != models.TriggerManualOverride {
		t.Errorf("job = %+v", got)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestCreateJobEnforcesOneActivePerTenant(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	ctx := scopedCtx(tenantID)

	if err := s.CreateJob(ctx, newTestJob(tenantID, "tg_test_dup")); err != nil {
		t.Fatalf("first CreateJob: %v", err)
	}

	err := s.CreateJob(ctx, newTestJob(tenantID, "tg_test_dup"))
	if !errors.Is(err, store.ErrJobInProgress) {
		t.Fatalf("expected ErrJobInProgress, got %v", err)
	}

	active, err := s.HasActiveJob(ctx)
	if err != nil {
		t.Fatalf("HasActiveJob: %v", err)
	}
	if !active {
		t.Error("HasActiveJob = false with a PENDING job")
	}
}

func TestJobLifecyclePendingToCompleted(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	cfgStore := store.NewRuntimeConfigStore(base)
	ctx := scopedCtx(tenantID)
	schema := testSchema(t, base, tenantID)

	job := newTestJob(tenantID, schema)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := s.MarkExecuting(ctx, job.ID); err != nil {
		t.Fatalf("MarkExecuting: %v", err)
	}

	// Second transition attempt loses: the job is no longer PENDING.
	if err := s.MarkExecuting(ctx, job.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := s.CompleteJob(ctx, job.ID, schema); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("timestamps missing: started=%v completed=%v", got.StartedAt, got.CompletedAt)
	}

	// Completion upserted the runtime config atomically.
	cfg, err := cfgStore.Get(ctx)
	if err != nil {
		t.Fatalf("runtime config Get: %v", err)
	}
	if cfg.SchemaName != schema {
		t.Errorf("schema_name = %q, want %q", cfg.SchemaName, schema)
	}
	if cfg.LastVerifiedAt == nil {
		t.Error("last_verified_at not set")
	}

	// The tenant can schedule again once the previous job is terminal.
	active, err := s.HasActiveJob(ctx)
	if err != nil {
		t.Fatalf("HasActiveJob: %v", err)
	}
	if active {
		t.Error("completed job still counted as active")
	}
}

func TestCompleteJobRequiresExecuting(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	ctx := scopedCtx(tenantID)
	schema := testSchema(t, base, tenantID)

	job := newTestJob(tenantID, schema)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Still PENDING: completing must fail and roll back the whole
	// transaction, leaving no runtime config behind.
	if err := s.CompleteJob(ctx, job.ID, schema); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	cfgStore := store.NewRuntimeConfigStore(base)
	if _, err := cfgStore.Get(ctx); !errors.Is(err, store.ErrRuntimeConfigNotFound) {
		t.Fatalf("config must not exist after rolled-back completion, got %v", err)
	}
}

func TestFailJobCapturesErrorDetails(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	ctx := scopedCtx(tenantID)

	job := newTestJob(tenantID, "tg_test_fail")
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	details := map[string]any{"message": "schema creation denied"}
	if err := s.FailJob(ctx, job.ID, details); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != models.StatusFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
	if got.ErrorDetails["message"] != "schema creation denied" {
		t.Errorf("error details = %v", got.ErrorDetails)
	}

	// FAILED is terminal.
	if err := s.FailJob(ctx, job.ID, details); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on terminal job, got %v", err)
	}
}

func TestGetJobScopedToAmbientTenant(t *testing.T) {
	base, tenantA := setupTestBase(t)
	_, tenantB := setupTestBase(t)
	s := store.NewProvisioningStore(base)

	job := newTestJob(tenantA, "tg_test_scope")
	if err := s.CreateJob(scopedCtx(tenantA), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if _, err := s.GetJob(scopedCtx(tenantB), job.ID); !errors.Is(err, store.ErrJobNotFound) {
		t.Fatalf("foreign tenant should see ErrJobNotFound, got %v", err)
	}
}

func TestListJobsStatusFilter(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	ctx := scopedCtx(tenantID)

	job := newTestJob(tenantID, "tg_test_list")
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := s.FailJob(ctx, job.ID, map[string]any{"message": "boom"}); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	failed, _, err := s.ListJobs(ctx, models.StatusFailed, 10, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed jobs = %d, want 1", len(failed))
	}

	pending, _, err := s.ListJobs(ctx, models.StatusPending, 10, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending jobs = %d, want 0", len(pending))
	}
}

func TestListPendingJobsSeesAllTenants(t *testing.T) {
	base, tenantA := setupTestBase(t)
	_, tenantB := setupTestBase(t)
	s := store.NewProvisioningStore(base)

	jobA := newTestJob(tenantA, "tg_test_poll_a")
	if err := s.CreateJob(scopedCtx(tenantA), jobA); err != nil {
		t.Fatalf("CreateJob A: %v", err)
	}
	jobB := newTestJob(tenantB, "tg_test_poll_b")
	if err := s.CreateJob(scopedCtx(tenantB), jobB); err != nil {
		t.Fatalf("CreateJob B: %v", err)
	}

	// The worker poll runs without ambient context and spans tenants.
	jobs, err := s.ListPendingJobs(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListPendingJobs: %v", err)
	}

	seen := map[string]bool{}
	for _, j := range jobs {
		seen[j.ID] = true
	}
	if !seen[jobA.ID] || !seen[jobB.ID] {
		t.Errorf("poll missed jobs: %v", seen)
	}
}

func TestEventTrailOrdering(t *testing.T) {
	base, tenantID := setupTestBase(t)
	s := store.NewProvisioningStore(base)
	ctx := scopedCtx(tenantID)

	job := newTestJob(tenantID, "tg_test_events")
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	actions := []string{"queued", "executing", "completed"}
	for _, action := range actions {
		if err := s.InsertEvent(ctx, models.ProvisioningEvent{
			JobID:    job.ID,
			TenantID: tenantID,
			Action:   action,
			Status:   models.StatusPending,
			Payload:  map[string]any{"step": action},
		}); err != nil {
			t.Fatalf("InsertEvent %s: %v", action, err)
		}
	}

	events, err := s.ListEvents(ctx, job.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for i, action := range actions {
		if events[i].Action != action {
			t.Errorf("event[%d] = %s, want %s", i, events[i].Action, action)
		}
	}
}
