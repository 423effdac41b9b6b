package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal tracks the number of HTTP requests dispatched.
	requestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// requestErrorsTotal tracks requests that resulted in an error.
	requestErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_request_errors_total",
		Help: "The total number of failed HTTP requests.",
	})
	// retriesTotal tracks backoff retries performed.
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_retries_total",
		Help: "The total number of retried HTTP requests.",
	})
	// rateLimitHitsTotal tracks HTTP 429 responses.
	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_rate_limit_hits_total",
		Help: "The total number of times the scraper was rate limited.",
	})
)
