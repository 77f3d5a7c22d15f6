package client

import "time"

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Connections   int64   `json:"ws_connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ProvisioningJob mirrors the API's provisioning job representation.
type ProvisioningJob struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	Trigger      string         `json:"trigger"`
	Status       string         `json:"status"`
	TargetSchema string         `json:"target_schema"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ProvisioningEvent is one entry in a job's event trail.
type ProvisioningEvent struct {
	ID        int64          `json:"id"`
	JobID     string         `json:"job_id"`
	TenantID  string         `json:"tenant_id"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// RuntimeConfig is a tenant's resolved schema configuration.
type RuntimeConfig struct {
	TenantID       string     `json:"tenant_id"`
	SchemaName     string     `json:"schema_name"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AuditEntry is one recorded cross-tenant access decision.
type AuditEntry struct {
	ID           int64          `json:"id"`
	ActorID      string         `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditQueryOptions filters an audit query.
type AuditQueryOptions struct {
	ResourceType string
	ResourceID   string
	Action       string
	Since        *time.Time
	Limit        int
	Offset       int
}

// ListJobsOptions filters a provisioning job listing.
type ListJobsOptions struct {
	Status string
	Limit  int
	Offset int
}
