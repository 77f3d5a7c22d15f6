// Package scope transparently tenant-scopes every operation against a
// tenant-owned model before it reaches the storage API.
package scope

import "context"

// Action is the storage operation being performed.
type Action string

// Read-like actions.
const (
	FindOne   Action = "findOne"
	FindMany  Action = "findMany"
	Count     Action = "count"
	Aggregate Action = "aggregate"
)

// Write-like actions.
const (
	Create     Action = "create"
	CreateMany Action = "createMany"
	Update     Action = "update"
	UpdateMany Action = "updateMany"
	Upsert     Action = "upsert"
	Delete     Action = "delete"
	DeleteMany Action = "deleteMany"
)

// IsRead reports whether a is a read-like action.
func (a Action) IsRead() bool {
	switch a {
	case FindOne, FindMany, Count, Aggregate:
		return true
	}
	return false
}

// IsWrite reports whether a is a write-like action.
func (a Action) IsWrite() bool {
	switch a {
	case Create, CreateMany, Update, UpdateMany, Upsert, Delete, DeleteMany:
		return true
	}
	return false
}

// Op is one generic storage operation: an action against a named model with
// optional filter and payload. Data holds one record for singular writes and
// one per record for batch writes.
type Op struct {
	Model  Model
	Action Action
	Where  map[string]any
	Data   []map[string]any
}

// Result is the outcome of a storage operation.
type Result struct {
	Records []map[string]any
	Count   int64
}

// Storage is the generic CRUD interface of the underlying storage engine.
// tenantguard does not implement storage; it wraps this boundary.
type Storage interface {
	Do(ctx context.Context, op Op) (Result, error)
}
