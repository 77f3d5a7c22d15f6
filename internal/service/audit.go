package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/isolation"
	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// Compile-time check: *TenantAuditLogger must satisfy isolation.AuditRecorder.
var _ isolation.AuditRecorder = (*TenantAuditLogger)(nil)

// TenantAuditLogger turns isolation decisions into durable audit entries.
// The entry is stored against the target tenant of the access, with the
// acting tenant recorded in metadata, so the tenant whose boundary was probed
// can see the attempt in its own audit trail.
type TenantAuditLogger struct {
	sink AuditSink
	log  *logrus.Logger
}

// NewTenantAuditLogger creates a TenantAuditLogger writing to sink.
func NewTenantAuditLogger(sink AuditSink, log *logrus.Logger) *TenantAuditLogger {
	return &TenantAuditLogger{sink: sink, log: log}
}

// RecordDecision appends one cross-tenant decision entry. The write happens
// under a context scoped to the target tenant: the audit row belongs to the
// probed tenant, and the store's own isolation check must see that tenant as
// ambient for the insert to pass.
func (l *TenantAuditLogger) RecordDecision(
	ctx context.Context, actor tenantctx.TenantContext, d isolation.Descriptor, outcome string,
) error {
	operation := d.Operation
	if operation == "" {
		operation = isolation.OpRead
	}

	metadata := map[string]any{
		"actor_tenant_id":     actor.TenantID,
		"requested_tenant_id": d.TargetTenantID,
		"operation":           string(operation),
		"outcome":             outcome,
	}
	for k, v := range d.Metadata {
		if v != nil {
			metadata[k] = v
		}
	}

	entry := models.AuditEntry{
		TenantID:     d.TargetTenantID,
		ActorID:      actor.ActorID,
		Action:       "cross-tenant-" + outcome,
		ResourceType: d.ResourceType,
		ResourceID:   d.ResourceID,
		Metadata:     metadata,
	}

	writeScope := tenantctx.TenantContext{
		TenantID:  d.TargetTenantID,
		ActorID:   actor.ActorID,
		ActorType: tenantctx.ActorSystem,
	}

	return tenantctx.Run(ctx, writeScope, func(ctx context.Context) error {
		return l.sink.InsertEntry(ctx, entry)
	})
}

// AuditService wraps AuditRepo with logging for destructive operations.
type AuditService struct {
	repo AuditRepo
	log  *logrus.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(repo AuditRepo, log *logrus.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// QueryEntries returns the ambient tenant's audit entries (pass-through).
func (s *AuditService) QueryEntries(
	ctx context.Context, opts models.AuditQueryOpts,
) ([]models.AuditEntry, bool, error) {
	return s.repo.QueryEntries(ctx, opts)
}

// PurgeOldEntries deletes audit entries older than retentionDays and logs the result.
func (s *AuditService) PurgeOldEntries(ctx context.Context, retentionDays int) (int, error) {
	deleted, err := s.repo.PurgeOldEntries(ctx, retentionDays)
	if err != nil {
		return 0, err
	}

	tc, _ := tenantctx.From(ctx)
	s.log.WithFields(logrus.Fields{
		"tenant_id":      tc.TenantID,
		"retention_days": retentionDays,
		"deleted":        deleted,
	}).Info("audit.purge")

	return deleted, nil
}
