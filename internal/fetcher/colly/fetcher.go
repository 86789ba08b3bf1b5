// Package collyfetcher implements insights.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	MaxBodyBytes  int
}

// Fetcher implements insights.Fetcher using the Colly collector. HTTP-level
// errors (4xx/5xx) are returned as results; only transport failures surface
// as errors, after the retry budget is exhausted.
type Fetcher struct {
	cfg           Config
	retry         *retryPolicy
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.MaxBodySize = cfg.MaxBodyBytes

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		retry:         newRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax),
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes an HTTP GET with the configured retry policy.
func (f *Fetcher) Fetch(ctx context.Context, request insights.FetchRequest) (insights.FetchResult, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := f.fetchOnce(ctx, request)
		switch {
		case err == nil && result.StatusCode < http.StatusInternalServerError:
			return result, nil
		case err == nil:
			// 5xx: retry if budget remains, otherwise hand back the result.
			if !f.retry.shouldRetry(nil, result.StatusCode, attempt) {
				return result, nil
			}
		default:
			lastErr = err
			if !f.retry.shouldRetry(err, 0, attempt) {
				return insights.FetchResult{URL: request.URL, Err: lastErr}, lastErr
			}
		}
		wait := f.retry.backoff(attempt)
		f.logger.Debug("retrying fetch",
			zap.String("url", request.URL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
		)
		select {
		case <-ctx.Done():
			err := fmt.Errorf("fetch canceled: %w", ctx.Err())
			return insights.FetchResult{URL: request.URL, Err: err}, err
		case <-time.After(wait):
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, request insights.FetchRequest) (insights.FetchResult, error) {
	var (
		result   insights.FetchResult
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(request, start, &result, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return insights.FetchResult{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		// A populated status code means the server answered; that is a valid
		// result regardless of what colly reports.
		if result.StatusCode > 0 {
			return result, nil
		}
		if err != nil {
			return insights.FetchResult{}, fmt.Errorf("colly visit failed: %w", err)
		}
		if fetchErr != nil {
			return insights.FetchResult{}, fmt.Errorf("colly response failed: %w", fetchErr)
		}
		return result, nil
	}
}

func (f *Fetcher) buildCollector(
	request insights.FetchRequest,
	start time.Time,
	result *insights.FetchResult,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.MaxBodySize = f.cfg.MaxBodyBytes
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		*result = newResult(r, start)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			*result = newResult(r, start)
			return
		}
		*fetchErr = err
	})
	return collector
}

func newResult(r *colly.Response, start time.Time) insights.FetchResult {
	return insights.FetchResult{
		URL:         r.Request.URL.String(),
		StatusCode:  r.StatusCode,
		Body:        append([]byte(nil), r.Body...),
		ContentType: r.Headers.Get("Content-Type"),
		Duration:    time.Since(start),
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
