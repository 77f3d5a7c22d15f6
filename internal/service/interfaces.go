package service

import (
	"context"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// AuditSink accepts audit entries for persistence. Implemented by
// store.AuditStore for synchronous writes and by AuditWorker for
// write-behind buffering.
type AuditSink interface {
	InsertEntry(ctx context.Context, e models.AuditEntry) error
}

// AuditRepo is the data-access interface AuditService depends on.
type AuditRepo interface {
	AuditSink
	QueryEntries(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	PurgeOldEntries(ctx context.Context, retentionDays int) (int, error)
}

// ProvisioningRepo is the data-access interface the orchestrator depends on.
type ProvisioningRepo interface {
	CreateJob(ctx context.Context, job *models.ProvisioningJob) error
	HasActiveJob(ctx context.Context) (bool, error)
	GetJob(ctx context.Context, jobID string) (*models.ProvisioningJob, error)
	ListJobs(ctx context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error)
	ListPendingJobs(ctx context.Context, limit int) ([]models.ProvisioningJob, error)
	MarkExecuting(ctx context.Context, jobID string) error
	CompleteJob(ctx context.Context, jobID, schemaName string) error
	FailJob(ctx context.Context, jobID string, errorDetails map[string]any) error
	InsertEvent(ctx context.Context, ev models.ProvisioningEvent) error
	ListEvents(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error)
}

// TenantLookup resolves tenant registry rows.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// RuntimeConfigRepo reads per-tenant runtime configuration.
type RuntimeConfigRepo interface {
	Get(ctx context.Context) (*models.RuntimeConfig, error)
}

// EventPublisher pushes live events to connected clients. Optional; a nil
// publisher disables the stream without affecting durable writes.
type EventPublisher interface {
	Publish(tenantID, eventType string, data any)
}
