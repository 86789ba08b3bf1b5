// Package competitors enriches a run with insights from configured
// competitor storefronts.
package competitors

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Runner executes the insights pipeline for one root URL.
type Runner interface {
	Run(ctx context.Context, rawURL string) (insights.InsightsResult, error)
}

// Config controls competitor enrichment.
type Config struct {
	// Candidates is the operator-supplied list of competitor root URLs.
	Candidates []string
	// MaxResults caps how many competitors are analyzed per request.
	MaxResults int
	// PerStoreBudget bounds each competitor run. Competitor runs get a
	// tighter budget than the primary store.
	PerStoreBudget time.Duration
}

// Summary is the condensed view of one competitor storefront.
type Summary struct {
	Store        insights.StoreRef                  `json:"store"`
	Brand        insights.BrandContext              `json:"brand"`
	ProductCount int                                `json:"product_count"`
	HeroProducts []insights.Product                 `json:"hero_products,omitempty"`
	SocialLinks  map[insights.SocialPlatform]string `json:"social_links,omitempty"`
}

// Finder runs the pipeline against candidate competitors.
type Finder struct {
	runner Runner
	cfg    Config
	logger *zap.Logger
}

// NewFinder constructs a Finder.
func NewFinder(runner Runner, cfg Config, logger *zap.Logger) *Finder {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.PerStoreBudget <= 0 {
		cfg.PerStoreBudget = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{runner: runner, cfg: cfg, logger: logger}
}

// Find analyzes candidate competitors, skipping the store under analysis and
// any candidate whose run fails. Candidates run in configured order until
// MaxResults summaries are collected.
func (f *Finder) Find(ctx context.Context, excludeRootURL string) []Summary {
	var summaries []Summary
	for _, candidate := range f.cfg.Candidates {
		if len(summaries) >= f.cfg.MaxResults {
			break
		}
		if ctx.Err() != nil {
			break
		}
		normalized, err := insights.NormalizeRootURL(candidate)
		if err != nil {
			f.logger.Warn("skipping malformed competitor candidate", zap.String("candidate", candidate), zap.Error(err))
			continue
		}
		if normalized == excludeRootURL {
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, f.cfg.PerStoreBudget)
		result, err := f.runner.Run(runCtx, candidate)
		cancel()
		if err != nil {
			f.logger.Info("competitor run skipped", zap.String("candidate", candidate), zap.Error(err))
			continue
		}
		summaries = append(summaries, summarize(result))
	}
	return summaries
}

func summarize(result insights.InsightsResult) Summary {
	return Summary{
		Store:        result.Store,
		Brand:        result.Brand,
		ProductCount: len(result.Products),
		HeroProducts: result.HeroProducts,
		SocialLinks:  result.SocialLinks,
	}
}
