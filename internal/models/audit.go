package models

import "time"

// Audit outcomes for cross-tenant access decisions.
const (
	AuditOutcomeAllowed = "allowed"
	AuditOutcomeBlocked = "blocked"

	ActionCrossTenantAllowed = "cross-tenant-allowed"
	ActionCrossTenantBlocked = "cross-tenant-blocked"
)

// AuditEntry is one recorded cross-tenant access decision. TenantID is the
// target tenant of the access; the ambient tenant that attempted it lives in
// Metadata under "actor_tenant_id". Entries are append-only.
type AuditEntry struct {
	ID           int64          `json:"id"`
	TenantID     string         `json:"-"`
	ActorID      string         `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditQueryOpts holds filters for querying the audit log.
type AuditQueryOpts struct {
	ResourceType string
	ResourceID   string
	Action       string
	Since        *time.Time
	Limit        int
	Offset       int
}
