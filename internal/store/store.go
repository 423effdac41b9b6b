// Package store defines the persistence contracts for crawl state.
// The orchestrator and CLI only touch storage through these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/flbest/standards-crawler/internal/benchmark"
)

// ErrNotFound is returned by read operations when no record exists.
// A missing record is an expected condition, distinct from I/O failure.
var ErrNotFound = errors.New("record not found")

// Status is the lifecycle state of a benchmark scrape.
type Status string

// Scrape status values persisted in the scrape_status table.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ScrapeStatus is the per-benchmark crawl record. AttemptCount
// increases strictly on every status update and the record is never
// deleted.
type ScrapeStatus struct {
	BenchmarkID  string
	Status       Status
	AttemptCount int
	LastAttempt  time.Time
	ErrorMessage string
}

// ResourceType classifies a teaching resource.
type ResourceType string

// Resource type values as they appear on the source site.
const (
	TypeLessonPlan          ResourceType = "Lesson Plan"
	TypeFormativeAssessment ResourceType = "Formative Assessment"
	TypeOther               ResourceType = "Other"
)

// Resource is a teaching resource attached to one benchmark. Rows are
// append-only: re-scraping a benchmark inserts fresh rows with no
// uniqueness constraint.
type Resource struct {
	Title       string
	URL         string
	Type        ResourceType
	Description string
}

// Checkpoint is the durable resume pointer, overwritten after each
// successfully processed benchmark.
type Checkpoint struct {
	LastProcessed string    `json:"last_processed"`
	Timestamp     time.Time `json:"timestamp"`
}

// CrawlStore persists benchmarks, scrape results and scrape state.
type CrawlStore interface {
	// Migrate creates the schema when it does not exist yet.
	Migrate(ctx context.Context) error

	// UpsertBenchmark inserts or replaces a benchmark row. Idempotent.
	UpsertBenchmark(ctx context.Context, b benchmark.Benchmark) error
	// TouchBenchmark refreshes the source URL and last_updated stamp
	// after a successful scrape without clobbering ingested fields.
	TouchBenchmark(ctx context.Context, id, url string, at time.Time) error
	// GetBenchmark returns one benchmark or ErrNotFound.
	GetBenchmark(ctx context.Context, id string) (benchmark.Benchmark, error)
	// ListBenchmarkIDs returns every known id in lexical order.
	ListBenchmarkIDs(ctx context.Context) ([]string, error)

	// UpdateScrapeStatus writes the status row for id, incrementing
	// attempt_count from its current value (0 if absent). Every call
	// increments; the counter never repeats or decreases.
	UpdateScrapeStatus(ctx context.Context, id string, status Status, at time.Time, errMsg string) error
	// GetScrapeStatus returns the status row for id or ErrNotFound.
	GetScrapeStatus(ctx context.Context, id string) (ScrapeStatus, error)
	// PendingBenchmarks returns, in lexical order, every id whose
	// latest status is absent, pending, or failed.
	PendingBenchmarks(ctx context.Context) ([]string, error)

	// AppendResource inserts a resource row. No dedup key: repeated
	// crawls accumulate duplicate rows by design.
	AppendResource(ctx context.Context, benchmarkID string, r Resource) error
	// ResourcesByBenchmark lists resources for id, optionally filtered
	// by type (empty filter returns all).
	ResourcesByBenchmark(ctx context.Context, benchmarkID string, typeFilter ResourceType) ([]Resource, error)

	// UpsertAccessPoint inserts or replaces the cross-reference keyed
	// by the access-point code.
	UpsertAccessPoint(ctx context.Context, accessPointID, benchmarkID string) error
	// AccessPointsByBenchmark lists access-point codes for id.
	AccessPointsByBenchmark(ctx context.Context, benchmarkID string) ([]string, error)

	Close()
}

// CheckpointStore persists the resume pointer atomically.
type CheckpointStore interface {
	Save(id string) error
	Load() (Checkpoint, error)
}
