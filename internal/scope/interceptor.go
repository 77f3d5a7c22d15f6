package scope

import (
	"context"
	"fmt"

	"github.com/tenantguardhq/tenantguard/internal/isolation"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// Interceptor wraps a Storage and scopes every operation against a
// tenant-owned model to the ambient tenant. Reads gain a tenant filter,
// writes are stamped with the ambient tenant, and any operation that names a
// different tenant fails closed before it reaches storage. Cross-tenant
// rejections are routed through the isolation enforcer so each one produces a
// blocked audit entry.
type Interceptor struct {
	next     Storage
	enforcer *isolation.Enforcer
}

// NewInterceptor creates an Interceptor in front of next.
func NewInterceptor(next Storage, enforcer *isolation.Enforcer) *Interceptor {
	return &Interceptor{next: next, enforcer: enforcer}
}

// Do applies tenant scoping to op and forwards it to the underlying storage.
// Unmapped models pass through untouched. Scoped models require an ambient
// tenant context and fail with *tenantctx.MissingTenantContextError without it.
func (i *Interceptor) Do(ctx context.Context, op Op) (Result, error) {
	field, scoped := TenantField(op.Model)
	if !scoped {
		return i.next.Do(ctx, op)
	}

	tc, err := tenantctx.Require(ctx)
	if err != nil {
		return Result{}, &tenantctx.MissingTenantContextError{
			Resource: fmt.Sprintf("%s.%s", op.Model, op.Action),
		}
	}

	if op.Action.IsRead() || hasWhere(op.Action) {
		where, target, ok := scopeWhere(op.Where, field, tc.TenantID)
		if !ok {
			return Result{}, i.reject(ctx, op, target)
		}
		op.Where = where
	}

	if op.Action.IsWrite() && len(op.Data) > 0 {
		stamped := make([]map[string]any, len(op.Data))
		for n, record := range op.Data {
			rec, target, ok := stampRecord(record, field, tc.TenantID)
			if !ok {
				return Result{}, i.reject(ctx, op, target)
			}
			stamped[n] = rec
		}
		op.Data = stamped
	}

	return i.next.Do(ctx, op)
}

// hasWhere reports whether a write-like action carries a filter that must be
// tenant-scoped as well.
func hasWhere(a Action) bool {
	switch a {
	case Update, UpdateMany, Upsert, Delete, DeleteMany:
		return true
	}
	return false
}

// reject routes a cross-tenant attempt through the enforcer, which records
// the blocked decision and returns the isolation error.
func (i *Interceptor) reject(ctx context.Context, op Op, targetTenantID string) error {
	d := isolation.Descriptor{
		TargetTenantID: targetTenantID,
		ResourceType:   string(op.Model),
		Operation:      operationFor(op.Action),
		Metadata:       map[string]any{"action": string(op.Action)},
	}

	if err := i.enforcer.Enforce(ctx, d); err != nil {
		return err
	}

	// Enforce only returns nil when ambient and target match, which cannot
	// happen on a rejection path.
	tc, _ := tenantctx.From(ctx)

	return &tenantctx.TenantIsolationError{
		TenantID:       tc.TenantID,
		TargetTenantID: targetTenantID,
	}
}

// scopeWhere merges the ambient tenant constraint into a read filter. An
// explicit equality filter naming a different tenant is a cross-tenant
// attempt; ok is false and target carries the offending tenant ID.
func scopeWhere(where map[string]any, field, tenantID string) (scoped map[string]any, target string, ok bool) {
	constraint := map[string]any{field: tenantID}

	if len(where) == 0 {
		return constraint, "", true
	}

	if existing, present := where[field]; present {
		switch v := existing.(type) {
		case string:
			if v != tenantID {
				return nil, v, false
			}
		case map[string]any:
			if eq, hasEq := v["equals"]; hasEq {
				if s, isStr := eq.(string); isStr && s != tenantID {
					return nil, s, false
				}
			}
		}
	}

	return map[string]any{"AND": []map[string]any{constraint, where}}, "", true
}

// stampRecord enforces and stamps the tenant field on one write payload
// record. A present value naming another tenant, or a nested relation
// connect targeting another tenant, is a cross-tenant attempt. Stamping an
// already-correct record is a no-op apart from the copy.
func stampRecord(record map[string]any, field, tenantID string) (stamped map[string]any, target string, ok bool) {
	out := make(map[string]any, len(record)+1)
	for k, v := range record {
		out[k] = v
	}

	switch existing := out[field].(type) {
	case string:
		if existing != tenantID {
			return nil, existing, false
		}
	case map[string]any:
		if connect, hasConnect := existing["connect"].(map[string]any); hasConnect {
			if id, hasID := connect["id"].(string); hasID && id != tenantID {
				return nil, id, false
			}
		}
	}

	out[field] = tenantID

	return out, "", true
}

// operationFor maps a storage action to the audit operation vocabulary.
func operationFor(a Action) isolation.Operation {
	switch a {
	case Delete, DeleteMany:
		return isolation.OpDelete
	case FindMany, Count, Aggregate:
		return isolation.OpList
	case FindOne:
		return isolation.OpRead
	default:
		return isolation.OpWrite
	}
}
