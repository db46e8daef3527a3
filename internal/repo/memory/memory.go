package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/repo"
)

// Store keeps outcomes in process memory. Used by tests and throwaway runs.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	results []domain.HistoryRecord
}

func New() *Store {
	return &Store{results: make([]domain.HistoryRecord, 0, 128)}
}

func (m *Store) Append(ctx context.Context, o *domain.ProbeOutcome) error {
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.results = append(m.results, domain.HistoryRecord{
		ID:              m.nextID,
		Timestamp:       o.Timestamp,
		Host:            o.Host,
		ResponseTimeMS:  copyFloat(o.ResponseTimeMS),
		PacketSizeBytes: o.PacketSizeBytes,
		TimeoutMS:       o.TimeoutMS,
		Success:         o.Success,
		ErrorDetail:     copyString(o.ErrorDetail),
	})
	return nil
}

func (m *Store) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	limit = repo.ClampLimit(limit)

	m.mu.RLock()
	out := make([]domain.HistoryRecord, len(m.results))
	copy(out, m.results)
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many outcomes were appended.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
