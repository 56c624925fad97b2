package route

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ComparisonLogEntry is the audit record kept for every comparison request.
// It carries no path geometry and never the credential.
type ComparisonLogEntry struct {
	ID                uuid.UUID
	StartAddress      string
	EndAddress        string
	Status            ComparisonStatus
	VariantsRequested int
	RoutesSucceeded   int
	ErrorCode         string
	ErrorCause        string
	ElapsedMs         int64
	CreatedAt         time.Time
}

// ComparisonLogRepository defines the persistence contract for comparison audit records.
type ComparisonLogRepository interface {
	// Save persists a new log entry.
	Save(ctx context.Context, entry *ComparisonLogEntry) error

	// FindByID retrieves a log entry by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*ComparisonLogEntry, error)

	// ListRecent retrieves log entries, newest first, with pagination.
	ListRecent(ctx context.Context, page, limit int) ([]*ComparisonLogEntry, int64, error)

	// CountByStatus returns log entry counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
