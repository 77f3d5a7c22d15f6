package tenantctx

import (
	"errors"
	"fmt"
)

// MissingTenantContextError reports that no ambient tenant context was
// installed where one is required. This is always an integration error, never
// retried.
type MissingTenantContextError struct {
	// Resource optionally names what was being accessed.
	Resource string
}

// Error implements the error interface.
func (e *MissingTenantContextError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("tenant context is required while accessing %s", e.Resource)
	}
	return "tenant context is required for this operation"
}

// TenantIsolationError reports an operation whose target tenant differs from
// the ambient tenant. It carries both tenant IDs for diagnosis.
type TenantIsolationError struct {
	Message        string
	TenantID       string // ambient tenant
	TargetTenantID string // tenant the operation named
}

// Error implements the error interface.
func (e *TenantIsolationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("tenant %s attempted to access tenant %s", e.TenantID, e.TargetTenantID)
}

// IsMissingContext reports whether err is a *MissingTenantContextError.
func IsMissingContext(err error) bool {
	var target *MissingTenantContextError
	return errors.As(err, &target)
}

// IsIsolation reports whether err is a *TenantIsolationError.
func IsIsolation(err error) bool {
	var target *TenantIsolationError
	return errors.As(err, &target)
}
