// Package tenantctx carries the ambient tenant identity for a logical
// operation through context.Context.
//
// Every tenant-scoped code path in tenantguard reads the active tenant from
// here rather than taking an explicit tenant parameter. The context value is
// immutable once installed; a nested With/Run shadows the enclosing scope for
// its own duration and the enclosing scope is restored when it returns.
// Because the carrier is context.Context, two concurrent requests can never
// observe each other's tenant.
package tenantctx

import "context"

// ActorType classifies who is acting on behalf of a tenant.
type ActorType string

// Actor types.
const (
	ActorUser    ActorType = "user"
	ActorService ActorType = "service"
	ActorSystem  ActorType = "system"
)

// TenantContext describes the active tenant and actor for one logical
// operation. It is a value type; callers receive copies and cannot mutate the
// installed context in place.
type TenantContext struct {
	TenantID   string
	ActorID    string
	TenantSlug string
	ActorType  ActorType
	Metadata   map[string]any
}

type ctxKey struct{}

// With returns a derived context carrying tc as the ambient tenant context.
// An empty ActorType defaults to ActorSystem.
func With(ctx context.Context, tc TenantContext) context.Context {
	if tc.ActorType == "" {
		tc.ActorType = ActorSystem
	}
	return context.WithValue(ctx, ctxKey{}, tc)
}

// From returns the ambient tenant context, if one is installed.
func From(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(ctxKey{}).(TenantContext)
	return tc, ok
}

// Require returns the ambient tenant context or a *MissingTenantContextError.
func Require(ctx context.Context) (TenantContext, error) {
	tc, ok := From(ctx)
	if !ok || tc.TenantID == "" {
		return TenantContext{}, &MissingTenantContextError{}
	}
	return tc, nil
}

// Run executes fn with tc installed as the ambient tenant context. The scope
// lasts exactly for the duration of fn; the caller's own context is untouched,
// so an enclosing scope is restored naturally when Run returns, including when
// fn fails.
func Run(ctx context.Context, tc TenantContext, fn func(ctx context.Context) error) error {
	return fn(With(ctx, tc))
}
