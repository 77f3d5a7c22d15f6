package isolation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/isolation"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

const (
	tenantAcme   = "11111111-1111-1111-1111-111111111111"
	tenantGlobex = "22222222-2222-2222-2222-222222222222"
)

// recordedDecision captures one RecordDecision call.
type recordedDecision struct {
	actor   tenantctx.TenantContext
	d       isolation.Descriptor
	outcome string
}

// mockRecorder records decisions and returns a configured error.
type mockRecorder struct {
	mu        sync.Mutex
	decisions []recordedDecision
	err       error
}

func (m *mockRecorder) RecordDecision(_ context.Context, actor tenantctx.TenantContext, d isolation.Descriptor, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, recordedDecision{actor: actor, d: d, outcome: outcome})
	return m.err
}

func (m *mockRecorder) all() []recordedDecision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedDecision(nil), m.decisions...)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func acmeContext() context.Context {
	return tenantctx.With(context.Background(), tenantctx.TenantContext{
		TenantID: tenantAcme,
		ActorID:  "user-1",
	})
}

func TestEnforceSameTenantIsSilent(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	err := e.Enforce(acmeContext(), isolation.Descriptor{
		TargetTenantID: tenantAcme,
		ResourceType:   "Dataset",
		Operation:      isolation.OpRead,
	})
	if err != nil {
		t.Fatalf("same-tenant access should pass, got %v", err)
	}

	if n := len(rec.all()); n != 0 {
		t.Fatalf("same-tenant access must not be audited, got %d entries", n)
	}
}

func TestEnforceMismatchBlocksAndAudits(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	err := e.Enforce(acmeContext(), isolation.Descriptor{
		TargetTenantID: tenantGlobex,
		ResourceType:   "Dataset",
		ResourceID:     "ds-42",
		Operation:      isolation.OpDelete,
	})
	if !tenantctx.IsIsolation(err) {
		t.Fatalf("expected isolation error, got %v", err)
	}

	var isoErr *tenantctx.TenantIsolationError
	if !errors.As(err, &isoErr) {
		t.Fatalf("expected *TenantIsolationError, got %T", err)
	}
	if isoErr.TenantID != tenantAcme || isoErr.TargetTenantID != tenantGlobex {
		t.Errorf("error tenants = (%s, %s), want (%s, %s)",
			isoErr.TenantID, isoErr.TargetTenantID, tenantAcme, tenantGlobex)
	}

	decisions := rec.all()
	if len(decisions) != 1 {
		t.Fatalf("expected exactly one audit decision, got %d", len(decisions))
	}
	d := decisions[0]
	if d.outcome != "blocked" {
		t.Errorf("outcome = %q, want blocked", d.outcome)
	}
	if d.actor.TenantID != tenantAcme {
		t.Errorf("actor tenant = %q, want %q", d.actor.TenantID, tenantAcme)
	}
	if d.d.TargetTenantID != tenantGlobex {
		t.Errorf("target tenant = %q, want %q", d.d.TargetTenantID, tenantGlobex)
	}
}

func TestEnforceMissingContextFailsClosed(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	err := e.Enforce(context.Background(), isolation.Descriptor{
		TargetTenantID: tenantAcme,
		ResourceType:   "Dataset",
	})
	if !tenantctx.IsMissingContext(err) {
		t.Fatalf("expected missing-context error, got %v", err)
	}

	if n := len(rec.all()); n != 0 {
		t.Fatalf("missing context should not produce audit entries, got %d", n)
	}
}

func TestEnforceBlocksEvenWhenAuditFails(t *testing.T) {
	rec := &mockRecorder{err: errors.New("sink down")}
	e := isolation.NewEnforcer(rec, testLogger())

	err := e.Enforce(acmeContext(), isolation.Descriptor{
		TargetTenantID: tenantGlobex,
		ResourceType:   "Connector",
		Operation:      isolation.OpWrite,
	})
	if !tenantctx.IsIsolation(err) {
		t.Fatalf("audit failure must not mask the isolation error, got %v", err)
	}
}

func TestRunIsolatedRescopesContextFreeCaller(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	var seen tenantctx.TenantContext
	err := e.RunIsolated(context.Background(), isolation.Descriptor{
		TargetTenantID: tenantAcme,
		ResourceType:   "TenantProvisioningJob",
		Operation:      isolation.OpWrite,
	}, func(ctx context.Context) error {
		tc, err := tenantctx.Require(ctx)
		if err != nil {
			return err
		}
		seen = tc
		return nil
	})
	if err != nil {
		t.Fatalf("RunIsolated: %v", err)
	}

	if seen.TenantID != tenantAcme {
		t.Errorf("fn saw tenant %q, want %q", seen.TenantID, tenantAcme)
	}
	if seen.ActorType != tenantctx.ActorSystem {
		t.Errorf("fn saw actor type %q, want system", seen.ActorType)
	}

	decisions := rec.all()
	if len(decisions) != 1 || decisions[0].outcome != "allowed" {
		t.Fatalf("expected one allowed decision, got %+v", decisions)
	}
}

func TestRunIsolatedKeepsMismatchedAmbientBlocked(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	called := false
	err := e.RunIsolated(acmeContext(), isolation.Descriptor{
		TargetTenantID: tenantGlobex,
		ResourceType:   "TenantProvisioningJob",
		Operation:      isolation.OpWrite,
	}, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !tenantctx.IsIsolation(err) {
		t.Fatalf("expected isolation error, got %v", err)
	}
	if called {
		t.Error("fn must not run when the ambient tenant mismatches the target")
	}

	decisions := rec.all()
	if len(decisions) != 1 || decisions[0].outcome != "blocked" {
		t.Fatalf("expected one blocked decision, got %+v", decisions)
	}
}

func TestRunIsolatedSameTenantStaysSilent(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	err := e.RunIsolated(acmeContext(), isolation.Descriptor{
		TargetTenantID: tenantAcme,
		ResourceType:   "TenantProvisioningJob",
		Operation:      isolation.OpWrite,
	}, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("RunIsolated: %v", err)
	}

	if n := len(rec.all()); n != 0 {
		t.Fatalf("same-tenant RunIsolated must not be audited, got %d entries", n)
	}
}

func TestRunIsolatedNoAllowedRecordWhenFnFails(t *testing.T) {
	rec := &mockRecorder{}
	e := isolation.NewEnforcer(rec, testLogger())

	boom := errors.New("boom")
	err := e.RunIsolated(context.Background(), isolation.Descriptor{
		TargetTenantID: tenantAcme,
		ResourceType:   "TenantProvisioningJob",
	}, func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	if n := len(rec.all()); n != 0 {
		t.Fatalf("failed fn must not produce an allowed entry, got %d", n)
	}
}
