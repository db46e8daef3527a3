package repo

import (
	"context"
	"fmt"

	"github.com/hamed0406/pingmonitor/internal/domain"
)

// ResultStore is the port the session engine writes outcomes through and the
// history endpoints read from. Implementations must allow concurrent callers.
type ResultStore interface {
	// Append persists one outcome. A zero Timestamp is set to now.
	Append(ctx context.Context, o *domain.ProbeOutcome) error
	// Recent returns at most limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
}

// StorageError wraps any failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// ClampLimit keeps history reads within [1, domain.MaxHistory].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > domain.MaxHistory {
		return domain.MaxHistory
	}
	return limit
}
