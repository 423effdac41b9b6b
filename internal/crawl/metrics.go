package crawl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// benchmarksProcessed tracks benchmarks attempted by the crawl loop.
	benchmarksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawl_benchmarks_processed_total",
		Help: "The total number of benchmarks attempted.",
	})
	// scrapeSuccesses tracks benchmarks scraped and persisted successfully.
	scrapeSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawl_scrape_success_total",
		Help: "The total number of benchmarks scraped successfully.",
	})
	// scrapeFailures tracks benchmarks whose scrape failed after retries.
	scrapeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawl_scrape_failures_total",
		Help: "The total number of benchmarks whose scrape failed.",
	})
)
