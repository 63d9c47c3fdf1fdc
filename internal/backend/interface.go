package backend

import (
	"context"

	"drivertrack/internal/core"
	"drivertrack/internal/kv"
)

// SnapshotStore keeps the last computed summary per month. Only the sqlite
// backend provides one.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, year, month int, s core.MonthSummary) error
	Snapshots(ctx context.Context, year int) (map[int]core.MonthSummary, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and optional extras of a backend
type BackendResult struct {
	Store     kv.Store
	Snapshots SnapshotStore // nil unless the backend has one
	Cleanup   CleanupFunc   // nil when nothing needs releasing
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File specific
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddress  string
	RedisPassword string
	RedisDB       int
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
