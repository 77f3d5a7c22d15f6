package service

import (
	"context"
	"sync"

	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// mockProvisioningRepo records calls and returns configured responses.
type mockProvisioningRepo struct {
	mu    sync.Mutex
	calls []string

	createJob       func(ctx context.Context, job *models.ProvisioningJob) error
	hasActiveJob    func(ctx context.Context) (bool, error)
	getJob          func(ctx context.Context, jobID string) (*models.ProvisioningJob, error)
	listJobs        func(ctx context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error)
	listPendingJobs func(ctx context.Context, limit int) ([]models.ProvisioningJob, error)
	markExecuting   func(ctx context.Context, jobID string) error
	completeJob     func(ctx context.Context, jobID, schemaName string) error
	failJob         func(ctx context.Context, jobID string, errorDetails map[string]any) error
	insertEvent     func(ctx context.Context, ev models.ProvisioningEvent) error
	listEvents      func(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error)
}

func (m *mockProvisioningRepo) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockProvisioningRepo) calledOps() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockProvisioningRepo) CreateJob(ctx context.Context, job *models.ProvisioningJob) error {
	m.record("CreateJob")
	if m.createJob == nil {
		job.ID = "job-1"
		return nil
	}
	return m.createJob(ctx, job)
}

func (m *mockProvisioningRepo) HasActiveJob(ctx context.Context) (bool, error) {
	m.record("HasActiveJob")
	if m.hasActiveJob == nil {
		return false, nil
	}
	return m.hasActiveJob(ctx)
}

func (m *mockProvisioningRepo) GetJob(ctx context.Context, jobID string) (*models.ProvisioningJob, error) {
	m.record("GetJob")
	return m.getJob(ctx, jobID)
}

func (m *mockProvisioningRepo) ListJobs(ctx context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error) {
	m.record("ListJobs")
	return m.listJobs(ctx, status, limit, offset)
}

func (m *mockProvisioningRepo) ListPendingJobs(ctx context.Context, limit int) ([]models.ProvisioningJob, error) {
	m.record("ListPendingJobs")
	return m.listPendingJobs(ctx, limit)
}

func (m *mockProvisioningRepo) MarkExecuting(ctx context.Context, jobID string) error {
	m.record("MarkExecuting")
	if m.markExecuting == nil {
		return nil
	}
	return m.markExecuting(ctx, jobID)
}

func (m *mockProvisioningRepo) CompleteJob(ctx context.Context, jobID, schemaName string) error {
	m.record("CompleteJob")
	if m.completeJob == nil {
		return nil
	}
	return m.completeJob(ctx, jobID, schemaName)
}

func (m *mockProvisioningRepo) FailJob(ctx context.Context, jobID string, errorDetails map[string]any) error {
	m.record("FailJob")
	if m.failJob == nil {
		return nil
	}
	return m.failJob(ctx, jobID, errorDetails)
}

func (m *mockProvisioningRepo) InsertEvent(ctx context.Context, ev models.ProvisioningEvent) error {
	m.record("InsertEvent")
	if m.insertEvent == nil {
		return nil
	}
	return m.insertEvent(ctx, ev)
}

func (m *mockProvisioningRepo) ListEvents(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error) {
	m.record("ListEvents")
	return m.listEvents(ctx, jobID)
}

// mockTenantLookup resolves a fixed set of tenants.
type mockTenantLookup struct {
	tenants map[string]*models.Tenant
	err     error
}

func (m *mockTenantLookup) GetTenant(_ context.Context, tenantID string) (*models.Tenant, error) {
	if t, ok := m.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, m.err
}

// mockConfigRepo returns a fixed runtime config.
type mockConfigRepo struct {
	cfg *models.RuntimeConfig
	err error
}

func (m *mockConfigRepo) Get(_ context.Context) (*models.RuntimeConfig, error) {
	return m.cfg, m.err
}

// mockSink records inserted audit entries and the ambient tenant each write
// ran under.
type mockSink struct {
	mu           sync.Mutex
	entries      []models.AuditEntry
	writeTenants []string
	err          error
}

func (m *mockSink) InsertEntry(ctx context.Context, e models.AuditEntry) error {
	tc, _ := tenantctx.From(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	m.writeTenants = append(m.writeTenants, tc.TenantID)
	return m.err
}

func (m *mockSink) all() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditEntry(nil), m.entries...)
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockPublisher) Publish(_, eventType string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}
