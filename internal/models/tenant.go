// Package models defines the shared data types of the tenantguard core.
package models

import "time"

// Tenant is the registry row for one isolated customer boundary.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
