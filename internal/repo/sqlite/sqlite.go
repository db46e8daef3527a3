package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/repo"
)

// timeLayout sorts lexically and matches the column default below.
const timeLayout = "2006-01-02T15:04:05.000Z"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ping_results (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp     TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		host          TEXT    NOT NULL,
		response_time REAL,
		packet_size   INTEGER,
		timeout       INTEGER,
		success       INTEGER NOT NULL,
		error         TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ping_results_timestamp ON ping_results (timestamp DESC)`,
}

// Store is the file-backed result store. All statements go through a single
// connection, which serializes concurrent sessions.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func New(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info("database_initialized", zap.String("driver", "sqlite"), zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Append(ctx context.Context, o *domain.ProbeOutcome) error {
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	}
	success := 0
	if o.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ping_results (timestamp, host, response_time, packet_size, timeout, success, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.Timestamp.UTC().Format(timeLayout), o.Host, o.ResponseTimeMS, o.PacketSizeBytes, o.TimeoutMS, success, o.ErrorDetail,
	)
	if err != nil {
		return &repo.StorageError{Op: "append", Err: err}
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, host, response_time, packet_size, timeout, success, error
		   FROM ping_results
		  ORDER BY timestamp DESC, id DESC
		  LIMIT ?`, repo.ClampLimit(limit))
	if err != nil {
		return nil, &repo.StorageError{Op: "recent", Err: err}
	}
	defer rows.Close()

	out := make([]domain.HistoryRecord, 0, 64)
	for rows.Next() {
		var (
			r        domain.HistoryRecord
			ts       string
			latency  sql.NullFloat64
			size     sql.NullInt64
			timeout  sql.NullInt64
			success  int
			errorTxt sql.NullString
		)
		if err := rows.Scan(&r.ID, &ts, &r.Host, &latency, &size, &timeout, &success, &errorTxt); err != nil {
			return nil, &repo.StorageError{Op: "scan", Err: err}
		}
		r.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, &repo.StorageError{Op: "scan", Err: fmt.Errorf("timestamp %q: %w", ts, err)}
		}
		if latency.Valid {
			r.ResponseTimeMS = domain.Float64(latency.Float64)
		}
		if errorTxt.Valid {
			r.ErrorDetail = domain.String(errorTxt.String)
		}
		r.PacketSizeBytes = int(size.Int64)
		r.TimeoutMS = int(timeout.Int64)
		r.Success = success != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &repo.StorageError{Op: "recent", Err: err}
	}
	return out, nil
}
