// Package crawl sequences the scrape of the full benchmark set.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flbest/standards-crawler/internal/benchmark"
	"github.com/flbest/standards-crawler/internal/extract"
	"github.com/flbest/standards-crawler/internal/fetch"
	"github.com/flbest/standards-crawler/internal/store"
)

// State is the lifecycle phase of a crawl run.
type State string

// Run states. A run moves idle -> loading -> resuming -> processing and
// ends in complete, interrupted, or failed.
const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateResuming    State = "resuming"
	StateProcessing  State = "processing"
	StateInterrupted State = "interrupted"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// Options selects the working set and pacing for one run.
type Options struct {
	// Resume starts strictly after the checkpointed id.
	Resume bool
	// StartFrom starts strictly after the given id. Takes precedence
	// over Resume.
	StartFrom string
	// RetryFailed restricts the run to ids not yet confirmed successful.
	RetryFailed bool
	// Delay is the politeness pause between items.
	Delay time.Duration
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID      string
	Processed  int
	Successful int
	Failed     int
	Skipped    int
}

// Extractor parses a fetched page into typed records.
type Extractor interface {
	Extract(markup []byte, benchmarkID string) (extract.Result, error)
}

// pauser abstracts the inter-item politeness wait.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// fatalError marks storage-layer failures that must abort the run, as
// opposed to per-item scrape failures which never do.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Orchestrator drives the sequential fetch/extract/persist loop.
// Execution is single-threaded by design: one in-flight request keeps
// the politeness and backoff reasoning simple. Cancellation is checked
// only at item boundaries, so an in-flight fetch always completes or
// times out first.
type Orchestrator struct {
	store      store.CrawlStore
	checkpoint store.CheckpointStore
	fetcher    fetch.Fetcher
	extractor  Extractor
	pause      pauser
	now        func() time.Time
	logger     *zap.Logger
	state      State
}

// New constructs an Orchestrator.
func New(
	crawlStore store.CrawlStore,
	checkpoint store.CheckpointStore,
	fetcher fetch.Fetcher,
	extractor Extractor,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:      crawlStore,
		checkpoint: checkpoint,
		fetcher:    fetcher,
		extractor:  extractor,
		pause:      timerPauser{},
		now:        time.Now,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run crawls the given benchmark set. Per-item scrape failures are
// recorded and the run continues; only storage failures abort it.
func (o *Orchestrator) Run(ctx context.Context, benchmarks map[string]benchmark.Benchmark, opts Options) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := o.logger.With(zap.String("run_id", summary.RunID))

	o.state = StateLoading
	for _, b := range benchmarks {
		if err := o.store.UpsertBenchmark(ctx, b); err != nil {
			o.state = StateFailed
			return summary, fmt.Errorf("load benchmark set: %w", err)
		}
	}
	log.Info("Benchmark set loaded", zap.Int("count", len(benchmarks)))

	o.state = StateResuming
	ids, err := o.workingSet(ctx, benchmarks, opts, log)
	if err != nil {
		o.state = StateFailed
		return summary, err
	}
	log.Info("Working set resolved", zap.Int("count", len(ids)))

	o.state = StateProcessing
	for _, id := range ids {
		if ctx.Err() != nil {
			o.state = StateInterrupted
			log.Warn("Crawl interrupted", zap.String("next_id", id))
			return summary, ctx.Err()
		}

		b := benchmarks[id]
		if b.CPALMSURL == "" {
			log.Warn("No CPALMS URL for benchmark", zap.String("benchmark_id", id))
			summary.Skipped++
			continue
		}

		summary.Processed++
		benchmarksProcessed.Inc()

		if err := o.processOne(ctx, b); err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				o.state = StateFailed
				return summary, fmt.Errorf("process %s: %w", id, fatal.err)
			}

			log.Error("Scrape failed", zap.String("benchmark_id", id), zap.Error(err))
			scrapeFailures.Inc()
			summary.Failed++
			if serr := o.store.UpdateScrapeStatus(ctx, id, store.StatusFailed, o.now(), err.Error()); serr != nil {
				o.state = StateFailed
				return summary, fmt.Errorf("record failure for %s: %w", id, serr)
			}
		} else {
			scrapeSuccesses.Inc()
			summary.Successful++
		}

		o.pause.Pause(ctx, opts.Delay)
	}

	o.state = StateComplete
	log.Info("Crawl complete",
		zap.Int("processed", summary.Processed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// workingSet orders the ids lexically and applies the retry-failed and
// resume filters. Resume is strictly-after: the checkpointed id itself
// already completed.
func (o *Orchestrator) workingSet(
	ctx context.Context,
	benchmarks map[string]benchmark.Benchmark,
	opts Options,
	log *zap.Logger,
) ([]string, error) {
	ids := make([]string, 0, len(benchmarks))
	for id := range benchmarks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if opts.RetryFailed {
		pending, err := o.store.PendingBenchmarks(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pending benchmarks: %w", err)
		}
		pendingSet := make(map[string]struct{}, len(pending))
		for _, id := range pending {
			pendingSet[id] = struct{}{}
		}
		filtered := ids[:0]
		for _, id := range ids {
			if _, ok := pendingSet[id]; ok {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
		log.Info("Retrying unconfirmed benchmarks", zap.Int("count", len(ids)))
	}

	startFrom := opts.StartFrom
	if startFrom == "" && opts.Resume {
		cp, err := o.checkpoint.Load()
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		startFrom = cp.LastProcessed
		if startFrom == "" {
			log.Info("No saved checkpoint, starting from the beginning")
		}
	}
	if startFrom != "" {
		after := ids[:0]
		for _, id := range ids {
			if id > startFrom {
				after = append(after, id)
			}
		}
		ids = after
		log.Info("Resuming crawl",
			zap.String("after", startFrom),
			zap.Int("remaining", len(ids)),
		)
	}

	return ids, nil
}

// processOne runs the full pipeline for a single benchmark. Storage
// failures come back wrapped in *fatalError; anything else is a
// per-item scrape failure.
func (o *Orchestrator) processOne(ctx context.Context, b benchmark.Benchmark) error {
	if err := o.store.UpdateScrapeStatus(ctx, b.ID, store.StatusPending, o.now(), ""); err != nil {
		return &fatalError{err}
	}

	o.logger.Info("Fetching benchmark page",
		zap.String("benchmark_id", b.ID),
		zap.String("url", b.CPALMSURL),
	)
	page, err := o.fetcher.Fetch(ctx, b.CPALMSURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", b.CPALMSURL, err)
	}

	result, err := o.extractor.Extract(page.Body, b.ID)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	for _, r := range result.Resources {
		if err := o.store.AppendResource(ctx, b.ID, r); err != nil {
			return &fatalError{err}
		}
	}
	for _, ap := range result.AccessPoints {
		if err := o.store.UpsertAccessPoint(ctx, ap, b.ID); err != nil {
			return &fatalError{err}
		}
	}

	now := o.now()
	if err := o.store.TouchBenchmark(ctx, b.ID, b.CPALMSURL, now); err != nil {
		return &fatalError{err}
	}
	if err := o.store.UpdateScrapeStatus(ctx, b.ID, store.StatusSuccess, now, ""); err != nil {
		return &fatalError{err}
	}
	if err := o.checkpoint.Save(b.ID); err != nil {
		return &fatalError{err}
	}

	o.logger.Info("Benchmark scraped",
		zap.String("benchmark_id", b.ID),
		zap.Int("resources", len(result.Resources)),
		zap.Int("access_points", len(result.AccessPoints)),
		zap.Int("discarded", result.Discarded),
	)
	return nil
}
