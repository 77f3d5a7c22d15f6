package api

import (
	"context"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// AuditService is the audit surface consumed by the audit handler.
type AuditService interface {
	QueryEntries(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	PurgeOldEntries(ctx context.Context, retentionDays int) (int, error)
}

// ProvisioningService is the provisioning surface consumed by the
// provisioning handler.
type ProvisioningService interface {
	Schedule(ctx context.Context, tenantID string, trigger models.ProvisioningTrigger, metadata map[string]any, actorID string) (*models.ProvisioningJob, error)
	GetJob(ctx context.Context, jobID string) (*models.ProvisioningJob, error)
	ListJobs(ctx context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error)
	ListEvents(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error)
	RuntimeConfig(ctx context.Context) (*models.RuntimeConfig, error)
}
