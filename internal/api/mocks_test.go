package api_test

import (
	"context"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// mockProvisioningService returns configured responses.
type mockProvisioningService struct {
	schedule      func(ctx context.Context, tenantID string, trigger models.ProvisioningTrigger, metadata map[string]any, actorID string) (*models.ProvisioningJob, error)
	getJob        func(ctx context.Context, jobID string) (*models.ProvisioningJob, error)
	listJobs      func(ctx context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error)
	listEvents    func(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error)
	runtimeConfig func(ctx context.Context) (*models.RuntimeConfig, error)
}

func (m *mockProvisioningService) Schedule(ctx context.Context, tenantID string, trigger models.ProvisioningTrigger, metadata map[string]any, actorID string) (*models.ProvisioningJob, error) {
	return m.schedule(ctx, tenantID, trigger, metadata, actorID)
}

func (m *mockProvisioningService) GetJob(ctx context.Context, jobID string) (*models.ProvisioningJob, error) {
	return m.getJob(ctx, jobID)
}

func (m *mockProvisioningService) ListJobs(ctx context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error) {
	return m.listJobs(ctx, status, limit, offset)
}

func (m *mockProvisioningService) ListEvents(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error) {
	return m.listEvents(ctx, jobID)
}

func (m *mockProvisioningService) RuntimeConfig(ctx context.Context) (*models.RuntimeConfig, error) {
	return m.runtimeConfig(ctx)
}

// mockAuditService returns configured responses.
type mockAuditService struct {
	queryEntries    func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	purgeOldEntries func(ctx context.Context, retentionDays int) (int, error)
}

func (m *mockAuditService) QueryEntries(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return m.queryEntries(ctx, opts)
}

func (m *mockAuditService) PurgeOldEntries(ctx context.Context, retentionDays int) (int, error) {
	return m.purgeOldEntries(ctx, retentionDays)
}
