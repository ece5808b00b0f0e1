package backend

import (
	"context"

	"tally/internal/store"
)

// Backend bundles every storage port plus a reachability probe, so the
// HTTP server and the services can hold one value regardless of which
// backend the deployment picked.
type Backend interface {
	store.TransactionStore
	store.RuleStore
	store.CategoryStore
	store.ReportStore

	Ping(ctx context.Context) error
}

// CleanupFunc releases a backend's resources on shutdown.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// JSON file backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	JSONFileBackend BackendType = "jsonfile"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, JSONFileBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types.
func Types() []BackendType {
	return []BackendType{SQLiteBackend, JSONFileBackend}
}
