package stockrelay

import (
	"context"
	"time"
)

// DefaultCacheTTL is how long a committed item state is remembered.
const DefaultCacheTTL = 24 * time.Hour

// StateStore remembers the last forwarded state of each item under its cache key.
type StateStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// AuditEntry is a row of the sync audit trail.
type AuditEntry struct {
	SupplierID string
	Identifier string
	Status     Status
	Message    string
}

// AuditLog appends status transitions. Appending an entry whose supplier, identifier
// and status already exist is a no-op.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}
