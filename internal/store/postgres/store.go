// Package postgres provides the Postgres-backed crawl state store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flbest/standards-crawler/internal/benchmark"
	"github.com/flbest/standards-crawler/internal/store"
)

// pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it, which keeps the store testable without a live database.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Store implements store.CrawlStore on Postgres.
type Store struct {
	pool pool
}

var _ store.CrawlStore = (*Store)(nil)

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS benchmarks (
		id TEXT PRIMARY KEY,
		grade_level TEXT,
		definition TEXT,
		subject TEXT DEFAULT 'Mathematics',
		cpalms_url TEXT,
		last_updated TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		benchmark_id TEXT REFERENCES benchmarks(id),
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS access_points (
		access_point_id TEXT PRIMARY KEY,
		benchmark_id TEXT REFERENCES benchmarks(id)
	)`,
	`CREATE TABLE IF NOT EXISTS scrape_status (
		benchmark_id TEXT PRIMARY KEY,
		status TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_attempt TIMESTAMPTZ,
		error_message TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_benchmark_id ON resources (benchmark_id)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_type ON resources (resource_type)`,
	`CREATE INDEX IF NOT EXISTS idx_access_points_benchmark_id ON access_points (benchmark_id)`,
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// UpsertBenchmark inserts or replaces a benchmark row.
func (s *Store) UpsertBenchmark(ctx context.Context, b benchmark.Benchmark) error {
	if b.ID == "" {
		return fmt.Errorf("benchmark id is required")
	}
	subject := b.Subject
	if subject == "" {
		subject = benchmark.DefaultSubject
	}
	query := `
		INSERT INTO benchmarks (id, grade_level, definition, subject, cpalms_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			grade_level = EXCLUDED.grade_level,
			definition = EXCLUDED.definition,
			subject = EXCLUDED.subject,
			cpalms_url = EXCLUDED.cpalms_url`
	if _, err := s.pool.Exec(ctx, query, b.ID, b.GradeLevel, b.Definition, subject, b.CPALMSURL); err != nil {
		return fmt.Errorf("upsert benchmark %s: %w", b.ID, err)
	}
	return nil
}

// TouchBenchmark refreshes cpalms_url and last_updated after a
// successful scrape.
func (s *Store) TouchBenchmark(ctx context.Context, id, url string, at time.Time) error {
	query := `UPDATE benchmarks SET cpalms_url = $2, last_updated = $3 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, id, url, at); err != nil {
		return fmt.Errorf("touch benchmark %s: %w", id, err)
	}
	return nil
}

// GetBenchmark returns one benchmark or store.ErrNotFound.
func (s *Store) GetBenchmark(ctx context.Context, id string) (benchmark.Benchmark, error) {
	query := `
		SELECT id, COALESCE(grade_level, ''), COALESCE(definition, ''), COALESCE(subject, ''), COALESCE(cpalms_url, '')
		FROM benchmarks WHERE id = $1`
	var b benchmark.Benchmark
	err := s.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.GradeLevel, &b.Definition, &b.Subject, &b.CPALMSURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return benchmark.Benchmark{}, store.ErrNotFound
	}
	if err != nil {
		return benchmark.Benchmark{}, fmt.Errorf("get benchmark %s: %w", id, err)
	}
	return b, nil
}

// ListBenchmarkIDs returns every known id in lexical order.
func (s *Store) ListBenchmarkIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM benchmarks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list benchmark ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// UpdateScrapeStatus writes the status row for id, incrementing
// attempt_count from its current value. Each call increments, so the
// counter is strictly monotonic per benchmark.
func (s *Store) UpdateScrapeStatus(ctx context.Context, id string, status store.Status, at time.Time, errMsg string) error {
	var current int
	err := s.pool.QueryRow(ctx, `SELECT attempt_count FROM scrape_status WHERE benchmark_id = $1`, id).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read attempt count for %s: %w", id, err)
	}

	query := `
		INSERT INTO scrape_status (benchmark_id, status, attempt_count, last_attempt, error_message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (benchmark_id) DO UPDATE SET
			status = EXCLUDED.status,
			attempt_count = EXCLUDED.attempt_count,
			last_attempt = EXCLUDED.last_attempt,
			error_message = EXCLUDED.error_message`
	if _, err := s.pool.Exec(ctx, query, id, string(status), current+1, at, errMsg); err != nil {
		return fmt.Errorf("update scrape status for %s: %w", id, err)
	}
	return nil
}

// GetScrapeStatus returns the status row for id or store.ErrNotFound.
func (s *Store) GetScrapeStatus(ctx context.Context, id string) (store.ScrapeStatus, error) {
	query := `
		SELECT benchmark_id, status, attempt_count, last_attempt, COALESCE(error_message, '')
		FROM scrape_status WHERE benchmark_id = $1`
	var st store.ScrapeStatus
	var raw string
	err := s.pool.QueryRow(ctx, query, id).Scan(&st.BenchmarkID, &raw, &st.AttemptCount, &st.LastAttempt, &st.ErrorMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ScrapeStatus{}, store.ErrNotFound
	}
	if err != nil {
		return store.ScrapeStatus{}, fmt.Errorf("get scrape status for %s: %w", id, err)
	}
	st.Status = store.Status(raw)
	return st, nil
}

// PendingBenchmarks returns ids whose latest status is absent, pending,
// or failed, in lexical order.
func (s *Store) PendingBenchmarks(ctx context.Context) ([]string, error) {
	query := `
		SELECT b.id FROM benchmarks b
		LEFT JOIN scrape_status s ON b.id = s.benchmark_id
		WHERE s.status IS NULL OR s.status = 'failed' OR s.status = 'pending'
		ORDER BY b.id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending benchmarks: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// AppendResource inserts a resource row. No uniqueness is enforced:
// repeated crawls of the same benchmark accumulate duplicate rows.
func (s *Store) AppendResource(ctx context.Context, benchmarkID string, r store.Resource) error {
	query := `
		INSERT INTO resources (benchmark_id, title, url, resource_type, description)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, benchmarkID, r.Title, r.URL, string(r.Type), r.Description); err != nil {
		return fmt.Errorf("append resource for %s: %w", benchmarkID, err)
	}
	return nil
}

// ResourcesByBenchmark lists resources for a benchmark, optionally
// filtered by type.
func (s *Store) ResourcesByBenchmark(ctx context.Context, benchmarkID string, typeFilter store.ResourceType) ([]store.Resource, error) {
	query := `
		SELECT title, url, resource_type, COALESCE(description, '')
		FROM resources
		WHERE benchmark_id = $1 AND ($2 = '' OR resource_type = $2)
		ORDER BY id`
	rows, err := s.pool.Query(ctx, query, benchmarkID, string(typeFilter))
	if err != nil {
		return nil, fmt.Errorf("list resources for %s: %w", benchmarkID, err)
	}
	defer rows.Close()

	var out []store.Resource
	for rows.Next() {
		var r store.Resource
		var raw string
		if err := rows.Scan(&r.Title, &r.URL, &raw, &r.Description); err != nil {
			return nil, fmt.Errorf("scan resource row: %w", err)
		}
		r.Type = store.ResourceType(raw)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resource rows: %w", err)
	}
	return out, nil
}

// UpsertAccessPoint inserts or replaces the cross-reference keyed by
// the access-point code.
func (s *Store) UpsertAccessPoint(ctx context.Context, accessPointID, benchmarkID string) error {
	query := `
		INSERT INTO access_points (access_point_id, benchmark_id)
		VALUES ($1, $2)
		ON CONFLICT (access_point_id) DO UPDATE SET benchmark_id = EXCLUDED.benchmark_id`
	if _, err := s.pool.Exec(ctx, query, accessPointID, benchmarkID); err != nil {
		return fmt.Errorf("upsert access point %s: %w", accessPointID, err)
	}
	return nil
}

// AccessPointsByBenchmark lists access-point codes for a benchmark.
func (s *Store) AccessPointsByBenchmark(ctx context.Context, benchmarkID string) ([]string, error) {
	query := `SELECT access_point_id FROM access_points WHERE benchmark_id = $1 ORDER BY access_point_id`
	rows, err := s.pool.Query(ctx, query, benchmarkID)
	if err != nil {
		return nil, fmt.Errorf("list access points for %s: %w", benchmarkID, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate id rows: %w", err)
	}
	return out, nil
}
