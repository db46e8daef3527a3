package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ping_results (
		id            BIGSERIAL PRIMARY KEY,
		timestamp     TIMESTAMPTZ NOT NULL DEFAULT now(),
		host          TEXT NOT NULL,
		response_time DOUBLE PRECISION NULL,
		packet_size   INTEGER,
		timeout       INTEGER,
		success       SMALLINT NOT NULL,
		error         TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ping_results_timestamp ON ping_results (timestamp DESC)`,
}

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info("database_initialized", zap.String("driver", "postgres"))
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Append(ctx context.Context, o *domain.ProbeOutcome) error {
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	}
	success := 0
	if o.Success {
		success = 1
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ping_results
		   (timestamp, host, response_time, packet_size, timeout, success, error)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7)`,
		o.Timestamp, o.Host, o.ResponseTimeMS, o.PacketSizeBytes, o.TimeoutMS, success, o.ErrorDetail,
	)
	if err != nil {
		return &repo.StorageError{Op: "append", Err: fmt.Errorf("insert result: %w", err)}
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, timestamp, host, response_time, packet_size, timeout, success, error
  FROM ping_results
 ORDER BY timestamp DESC, id DESC
 LIMIT $1`, repo.ClampLimit(limit))
	if err != nil {
		return nil, &repo.StorageError{Op: "recent", Err: err}
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var (
			r       domain.HistoryRecord
			size    *int32
			timeout *int32
			success int16
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Host, &r.ResponseTimeMS, &size, &timeout, &success, &r.ErrorDetail); err != nil {
			return nil, &repo.StorageError{Op: "scan", Err: err}
		}
		if size != nil {
			r.PacketSizeBytes = int(*size)
		}
		if timeout != nil {
			r.TimeoutMS = int(*timeout)
		}
		r.Success = success != 0
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &repo.StorageError{Op: "recent", Err: err}
	}
	return out, nil
}
