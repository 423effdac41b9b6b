// Package fetch retrieves CPALMS pages with bounded, jittered retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Page is the result of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Fetcher fetches a URL and returns the page body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Config controls the underlying HTTP client.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// CollyFetcher implements Fetcher using a Colly collector cloned per
// request, so retried URLs are never suppressed by visit tracking.
type CollyFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) (*CollyFetcher, error) {
	if cfg.UserAgent == "" {
		return nil, errors.New("user agent is required")
	}
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	if cfg.Timeout > 0 {
		base.SetRequestTimeout(cfg.Timeout)
	}
	return &CollyFetcher{base: base, logger: logger}, nil
}

// Fetch retrieves one page. Non-2xx responses surface as *StatusError.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		page := Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}
		send(fetchResult{page: page})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			send(fetchResult{err: &StatusError{Code: r.StatusCode}})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	requestsTotal.Inc()
	visitErr := collector.Visit(rawURL)
	collector.Wait()

	// The collector is synchronous, so on HTTP error statuses Visit
	// returns colly's plain synthesized error after the OnError handler
	// has already queued the typed one. The handler's result wins; the
	// Visit error only matters when no handler ever fired.
	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		if res.err != nil {
			requestErrorsTotal.Inc()
		}
		return res.page, res.err
	default:
		if visitErr != nil {
			requestErrorsTotal.Inc()
			return Page{}, visitErr
		}
		return Page{}, errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	page Page
	err  error
}
