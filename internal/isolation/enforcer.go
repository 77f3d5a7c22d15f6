// Package isolation implements the tenant-boundary decision point.
//
// Enforce compares the ambient tenant against the tenant an operation
// targets. Same tenant is the hot path and returns immediately with no audit
// entry. A mismatch is recorded as a "cross-tenant-blocked" audit entry and
// fails with *tenantctx.TenantIsolationError. There is no implicit
// cross-tenant allow: legitimate cross-tenant work must go through
// RunIsolated, which re-scopes explicitly and records that decision.
package isolation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/metrics"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// Operation names what kind of access is being attempted.
type Operation string

// Common operations. Custom operation names are allowed.
const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
	OpList   Operation = "list"
)

// Descriptor describes what is being attempted, independent of who is
// attempting it; identity comes from the ambient tenant context.
type Descriptor struct {
	TargetTenantID string
	ResourceType   string
	ResourceID     string
	Operation      Operation
	Metadata       map[string]any
}

// AuditRecorder persists cross-tenant access decisions.
type AuditRecorder interface {
	RecordDecision(ctx context.Context, actor tenantctx.TenantContext, d Descriptor, outcome string) error
}

// Enforcer is the tenant-boundary decision function. Audit is optional; when
// nil, decisions are still enforced but not recorded.
type Enforcer struct {
	Audit AuditRecorder
	Log   *logrus.Logger
}

// NewEnforcer creates an Enforcer.
func NewEnforcer(audit AuditRecorder, log *logrus.Logger) *Enforcer {
	return &Enforcer{Audit: audit, Log: log}
}

// Enforce fails with *tenantctx.TenantIsolationError when the ambient tenant
// differs from the descriptor's target tenant, and with
// *tenantctx.MissingTenantContextError when no ambient context is installed.
// The isolation error is raised regardless of whether the blocked-decision
// audit write succeeded.
func (e *Enforcer) Enforce(ctx context.Context, d Descriptor) error {
	tc, err := tenantctx.Require(ctx)
	if err != nil {
		return &tenantctx.MissingTenantContextError{Resource: d.ResourceType}
	}

	if tc.TenantID == d.TargetTenantID {
		return nil
	}

	op := d.Operation
	if op == "" {
		op = OpRead
	}

	metrics.IsolationBlocksTotal.WithLabelValues(d.ResourceType, string(op)).Inc()
	e.recordDecision(ctx, tc, d, "blocked")

	return &tenantctx.TenantIsolationError{
		Message:        fmt.Sprintf("attempted %s on %s for tenant %s without matching context", op, d.ResourceType, d.TargetTenantID),
		TenantID:       tc.TenantID,
		TargetTenantID: d.TargetTenantID,
	}
}

// RunIsolated executes fn scoped to the descriptor's target tenant. If an
// ambient context already exists it is kept, so a mismatched caller is still
// blocked by Enforce; only a context-free caller (worker entry point, CLI) is
// re-scoped to the target. The deliberate re-scope is recorded as a
// "cross-tenant-allowed" decision after fn succeeds.
func (e *Enforcer) RunIsolated(ctx context.Context, d Descriptor, fn func(ctx context.Context) error) error {
	tc, ok := tenantctx.From(ctx)
	if !ok && d.TargetTenantID == "" {
		return &tenantctx.MissingTenantContextError{Resource: d.ResourceType}
	}

	scope := tc
	rescoped := scope.TenantID == ""
	if rescoped {
		scope = tenantctx.TenantContext{TenantID: d.TargetTenantID, ActorType: tenantctx.ActorSystem}
	}

	return tenantctx.Run(ctx, scope, func(ctx context.Context) error {
		if err := e.Enforce(ctx, d); err != nil {
			return err
		}

		if err := fn(ctx); err != nil {
			return err
		}

		// Same-tenant callers stay on the unlogged fast path; only a
		// deliberate re-scope is worth an audit entry.
		if rescoped {
			e.recordDecision(ctx, scope, d, "allowed")
		}

		return nil
	})
}

// recordDecision persists an audit entry, best-effort. Persistence failures
// must never break the caller's primary operation; they are only logged.
func (e *Enforcer) recordDecision(ctx context.Context, actor tenantctx.TenantContext, d Descriptor, outcome string) {
	if e.Audit == nil {
		return
	}

	if err := e.Audit.RecordDecision(ctx, actor, d, outcome); err != nil && e.Log != nil {
		e.Log.WithError(err).WithFields(logrus.Fields{
			"tenant_id":        actor.TenantID,
			"target_tenant_id": d.TargetTenantID,
			"outcome":          outcome,
		}).Warn("failed to persist tenant audit entry")
	}
}
