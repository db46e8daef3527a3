package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/repo"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "data", "ping_monitor.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2025, 8, 18, 12, 0, 0, 123_000_000, time.UTC)
	older := &domain.ProbeOutcome{
		Timestamp: base, Host: "1.1.1.1", ResponseTimeMS: domain.Float64(23.4),
		PacketSizeBytes: 64, TimeoutMS: 1000, Success: true,
	}
	newer := &domain.ProbeOutcome{
		Timestamp: base.Add(time.Second), Host: "1.1.1.1",
		PacketSizeBytes: 64, TimeoutMS: 1000, ErrorDetail: domain.String("timeout after 1000ms"),
	}
	for _, o := range []*domain.ProbeOutcome{older, newer} {
		if err := s.Append(ctx, o); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 1000)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}

	n, o := got[0], got[1]
	if n.Success || n.ResponseTimeMS != nil || n.ErrorDetail == nil || *n.ErrorDetail != "timeout after 1000ms" {
		t.Fatalf("newest row wrong: %+v", n)
	}
	if !n.Timestamp.Equal(newer.Timestamp) {
		t.Fatalf("timestamp mismatch: want %v got %v", newer.Timestamp, n.Timestamp)
	}
	if !o.Success || o.Host != "1.1.1.1" || o.PacketSizeBytes != 64 || o.TimeoutMS != 1000 || o.ErrorDetail != nil {
		t.Fatalf("older row wrong: %+v", o)
	}
	if o.ResponseTimeMS == nil || math.Abs(*o.ResponseTimeMS-23.4) > 1e-9 {
		t.Fatalf("latency mismatch: %v", o.ResponseTimeMS)
	}
	if n.ID <= o.ID {
		t.Fatalf("ids should grow: %d <= %d", n.ID, o.ID)
	}
}

func TestSQLiteStore_RecentNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5000; i++ {
		o := &domain.ProbeOutcome{Timestamp: base.Add(time.Duration(i) * time.Millisecond), Host: "h", Success: true}
		if err := s.Append(ctx, o); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := s.Recent(ctx, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1000 {
		t.Fatalf("want 1000 rows, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(4999 * time.Millisecond)) {
		t.Fatalf("newest first expected, got %v", got[0].Timestamp)
	}

	got, _ = s.Recent(ctx, 50_000)
	if len(got) != 1000 {
		t.Fatalf("oversized limit should clamp to 1000, got %d", len(got))
	}
}

func TestSQLiteStore_ClosedStoreReturnsStorageError(t *testing.T) {
	s := openStore(t)
	_ = s.Close()

	err := s.Append(context.Background(), &domain.ProbeOutcome{Host: "h"})
	var se *repo.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("want StorageError, got %v", err)
	}
}
