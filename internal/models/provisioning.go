package models

import "time"

// ProvisioningTrigger says why a provisioning job was scheduled.
type ProvisioningTrigger string

// Provisioning triggers.
const (
	TriggerSubscriptionActivated ProvisioningTrigger = "SUBSCRIPTION_ACTIVATED"
	TriggerManualOverride        ProvisioningTrigger = "MANUAL_OVERRIDE"
	TriggerSystemRecovery        ProvisioningTrigger = "SYSTEM_RECOVERY"
)

// ValidTrigger reports whether t is a known provisioning trigger.
func ValidTrigger(t ProvisioningTrigger) bool {
	switch t {
	case TriggerSubscriptionActivated, TriggerManualOverride, TriggerSystemRecovery:
		return true
	}
	return false
}

// ProvisioningStatus is the lifecycle state of a provisioning job.
type ProvisioningStatus string

// Provisioning statuses. COMPLETED and FAILED are terminal; a FAILED job is
// superseded by a fresh SYSTEM_RECOVERY job, never resurrected.
const (
	StatusPending   ProvisioningStatus = "PENDING"
	StatusExecuting ProvisioningStatus = "EXECUTING"
	StatusCompleted ProvisioningStatus = "COMPLETED"
	StatusFailed    ProvisioningStatus = "FAILED"
)

// ProvisioningJob tracks bringing one tenant's isolated schema online. Only
// the provisioning orchestrator mutates it.
type ProvisioningJob struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenant_id"`
	Trigger      ProvisioningTrigger `json:"trigger"`
	Status       ProvisioningStatus  `json:"status"`
	TargetSchema string              `json:"target_schema"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	ErrorDetails map[string]any      `json:"error_details,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// ProvisioningEvent is one append-only entry in a job's event trail.
type ProvisioningEvent struct {
	ID        int64              `json:"id"`
	JobID     string             `json:"job_id"`
	TenantID  string             `json:"tenant_id"`
	Action    string             `json:"action"`
	Status    ProvisioningStatus `json:"status"`
	Payload   map[string]any     `json:"payload,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// RuntimeConfig records a tenant's resolved schema name and when it was last
// verified to exist.
type RuntimeConfig struct {
	TenantID       string     `json:"tenant_id"`
	SchemaName     string     `json:"schema_name"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
