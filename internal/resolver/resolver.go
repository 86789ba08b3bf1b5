// Package resolver validates that a root URL points at a real storefront.
package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/planner"
)

// Resolver probes the storefront's catalog endpoint and produces a StoreRef.
// This probe is the sole gate for the store-validity error: it runs before
// any other fetch is attempted.
type Resolver struct {
	fetcher insights.Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

// New constructs a Resolver.
func New(fetcher insights.Fetcher, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve normalizes the raw URL and classifies the catalog probe result.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (insights.StoreRef, error) {
	root, err := insights.NormalizeRootURL(rawURL)
	if err != nil {
		return insights.StoreRef{}, insights.NewInvalidStore(insights.ErrUnrecognized, "invalid root url", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.fetcher.Fetch(probeCtx, insights.FetchRequest{URL: planner.CatalogURL(root)})
	if err != nil {
		r.logger.Debug("catalog probe unreachable", zap.String("root", root), zap.Error(err))
		return insights.StoreRef{}, insights.NewInvalidStore(insights.ErrUnreachable, "storefront unreachable", err)
	}

	switch {
	case result.StatusCode == http.StatusOK && hasCatalogShape(result.Body):
		return insights.StoreRef{
			RootURL:   root,
			BrandHint: insights.BrandHintFromURL(root),
		}, nil
	case result.StatusCode == http.StatusNotFound || result.StatusCode == http.StatusUnauthorized:
		return insights.StoreRef{}, insights.NewInvalidStore(insights.ErrNotFound, "no storefront catalog at root", nil)
	default:
		r.logger.Debug("catalog probe unrecognized",
			zap.String("root", root),
			zap.Int("status", result.StatusCode),
		)
		return insights.StoreRef{}, insights.NewInvalidStore(insights.ErrUnrecognized, "catalog probe returned an unexpected payload", nil)
	}
}

// hasCatalogShape checks for the products feed envelope without decoding the
// listings themselves.
func hasCatalogShape(body []byte) bool {
	var envelope struct {
		Products json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Products != nil
}
