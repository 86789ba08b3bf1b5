// Package aggregator orchestrates the insights pipeline: resolve the store,
// plan its sub-resources, fetch them concurrently, and merge the parsed
// partial results into one InsightsResult under partial-failure semantics.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/metrics"
	"github.com/storesight/insights-crawler/internal/parse"
	"github.com/storesight/insights-crawler/internal/planner"
	"github.com/storesight/insights-crawler/internal/resolver"
)

// Config controls pipeline behavior.
type Config struct {
	Concurrency     int
	HeroLimit       int
	ResourceTimeout time.Duration
	RunBudget       time.Duration
}

// Aggregator runs the extraction pipeline. One Run owns its InsightsResult
// exclusively; the accumulator is only written during the single-threaded
// merge step after all fetch tasks rendezvous.
type Aggregator struct {
	resolver *resolver.Resolver
	fetcher  insights.Fetcher
	headless insights.Fetcher
	detector insights.HeadlessDetector
	archive  insights.BlobStore
	hasher   insights.Hasher
	ids      insights.IDGenerator
	clock    insights.Clock
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Aggregator. headless, detector, and archive are
// optional; hasher is required only when archive is set.
func New(
	res *resolver.Resolver,
	fetcher insights.Fetcher,
	headless insights.Fetcher,
	detector insights.HeadlessDetector,
	archive insights.BlobStore,
	hasher insights.Hasher,
	ids insights.IDGenerator,
	clock insights.Clock,
	cfg Config,
	logger *zap.Logger,
) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 6
	}
	if cfg.HeroLimit <= 0 {
		cfg.HeroLimit = parse.DefaultHeroLimit
	}
	if cfg.ResourceTimeout <= 0 {
		cfg.ResourceTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		resolver: res,
		fetcher:  fetcher,
		headless: headless,
		detector: detector,
		archive:  archive,
		hasher:   hasher,
		ids:      ids,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// taskResult is owned by exactly one fetch task until the merge barrier.
type taskResult struct {
	spec   insights.ResourceSpec
	result insights.FetchResult
	err    error
}

// Run executes the full pipeline for one root URL. The returned error is
// always a *insights.PipelineError: a resolver rejection or an internal
// fault. Resource-level problems are reported in PartialFailures instead.
func (a *Aggregator) Run(ctx context.Context, rawURL string) (result insights.InsightsResult, runErr error) {
	start := a.clock.Now()
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("pipeline panic recovered", zap.Any("panic", rec))
			runErr = insights.NewInternal("pipeline fault", fmt.Errorf("panic: %v", rec))
		}
		metrics.RecordRun(runStatus(runErr), a.clock.Now().Sub(start))
	}()

	if a.cfg.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RunBudget)
		defer cancel()
	}

	ref, err := a.resolver.Resolve(ctx, rawURL)
	if err != nil {
		var pe *insights.PipelineError
		if errors.As(err, &pe) {
			return insights.InsightsResult{}, pe
		}
		return insights.InsightsResult{}, insights.NewInternal("resolve store", err)
	}
	a.logger.Info("store resolved", zap.String("root", ref.RootURL))

	runID := a.newRunID()
	specs := planner.Plan(ref)
	tasks := a.fetchAll(ctx, runID, specs)
	return a.merge(ref, tasks), nil
}

// fetchAll dispatches one fetch task per spec, bounded by the concurrency
// limit. Dispatch follows plan order; completion order is unobserved since
// every task writes only its own slot and merge runs after the barrier.
func (a *Aggregator) fetchAll(ctx context.Context, runID string, specs []insights.ResourceSpec) []taskResult {
	tasks := make([]taskResult, len(specs))
	sem := make(chan struct{}, a.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec insights.ResourceSpec) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				tasks[i] = taskResult{spec: spec, err: ctx.Err()}
				return
			}
			result, err := a.fetchResource(ctx, runID, spec)
			tasks[i] = taskResult{spec: spec, result: result, err: err}
		}(i, spec)
	}
	wg.Wait()
	return tasks
}

func (a *Aggregator) fetchResource(ctx context.Context, runID string, spec insights.ResourceSpec) (insights.FetchResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.ResourceTimeout)
	defer cancel()

	result, err := a.fetcher.Fetch(fetchCtx, insights.FetchRequest{URL: spec.URL})
	if err != nil {
		return insights.FetchResult{}, err
	}
	if spec.Category == insights.ResourceHomepage {
		result = a.maybePromote(fetchCtx, spec, result)
	}
	a.archivePage(ctx, runID, spec, result)
	return result, nil
}

// maybePromote re-fetches a homepage that looks client-rendered with the
// headless browser. Promotion failures fall back to the plain result.
func (a *Aggregator) maybePromote(ctx context.Context, spec insights.ResourceSpec, result insights.FetchResult) insights.FetchResult {
	if a.headless == nil || a.detector == nil || !a.detector.ShouldPromote(result) {
		return result
	}
	promoted, err := a.headless.Fetch(ctx, insights.FetchRequest{URL: spec.URL, UseHeadless: true})
	if err != nil {
		a.logger.Warn("headless promotion failed", zap.String("url", spec.URL), zap.Error(err))
		return result
	}
	a.logger.Info("headless promotion applied", zap.String("url", spec.URL))
	return promoted
}

func (a *Aggregator) archivePage(ctx context.Context, runID string, spec insights.ResourceSpec, result insights.FetchResult) {
	if a.archive == nil || a.hasher == nil || result.StatusCode != http.StatusOK || len(result.Body) == 0 {
		return
	}
	hash, err := a.hasher.Hash(result.Body)
	if err != nil {
		a.logger.Warn("hash page failed", zap.String("url", spec.URL), zap.Error(err))
		return
	}
	path := fmt.Sprintf("%s/%s_%s.html", runID, spec.Category, hash[:16])
	if _, err := a.archive.PutObject(ctx, path, result.ContentType, result.Body); err != nil {
		a.logger.Warn("archive page failed", zap.String("url", spec.URL), zap.Error(err))
	}
}

// merge folds completed tasks into the final aggregate. It walks tasks in
// plan order, so the outcome is independent of completion order; failures
// are sorted by resource category for determinism.
func (a *Aggregator) merge(ref insights.StoreRef, tasks []taskResult) insights.InsightsResult {
	result := insights.InsightsResult{
		Store:     ref,
		FetchedAt: a.clock.Now(),
	}

	var homepage, faqPage, contactPage, aboutPage []byte
	for _, task := range tasks {
		body, failed := a.resolveTask(task, &result)
		if failed || body == nil {
			continue
		}
		switch task.spec.Category {
		case insights.ResourceCatalog:
			products, err := parse.Catalog(body, ref.RootURL)
			if err != nil {
				recordFailure(&result, task.spec.Category, parseReason(err))
				continue
			}
			result.Products = products
		case insights.ResourceHomepage:
			homepage = body
		case insights.ResourcePrivacyPolicy:
			a.mergePolicy(&result, body, insights.PolicyPrivacy, task)
		case insights.ResourceRefundPolicy:
			a.mergePolicy(&result, body, insights.PolicyRefund, task)
		case insights.ResourceFAQ:
			faqPage = body
		case insights.ResourceContact:
			contactPage = body
		case insights.ResourceAbout:
			aboutPage = body
		}
	}

	result.FAQs = parse.FAQ(faqPage)
	if homepage != nil {
		result.HeroProducts = a.heroProducts(homepage, ref, result.Products)
	}
	// The homepage anchors these parsers but is not required: they scan
	// whichever pages were fetched, and a missing page is just absent input.
	result.SocialLinks = parse.SocialLinks(homepage, contactPage)
	result.ImportantLinks = parse.ClassifyLinks(ref.RootURL, homepage, contactPage, aboutPage)
	result.Brand = parse.Brand(homepage, aboutPage, ref.BrandHint)
	result.Contact = parse.Contacts(homepage, contactPage)

	sort.SliceStable(result.PartialFailures, func(i, j int) bool {
		return result.PartialFailures[i].Resource < result.PartialFailures[j].Resource
	})
	return result
}

// resolveTask classifies one task outcome. A transport failure or deadline
// becomes a partial failure; a 404 on an optional page means the store does
// not publish it, which is absence, not failure.
func (a *Aggregator) resolveTask(task taskResult, result *insights.InsightsResult) (body []byte, failed bool) {
	category := task.spec.Category
	switch {
	case task.err != nil:
		reason := insights.ReasonFetchFailed
		if errors.Is(task.err, context.DeadlineExceeded) || errors.Is(task.err, context.Canceled) {
			reason = insights.ReasonTimeout
		}
		a.logger.Debug("resource failed",
			zap.String("resource", string(category)),
			zap.String("reason", reason),
			zap.Error(task.err),
		)
		recordFailure(result, category, reason)
		return nil, true
	case task.result.StatusCode == http.StatusOK:
		metrics.RecordResource(string(category), "ok")
		return task.result.Body, false
	case optionalResource(category) && clientError(task.result.StatusCode):
		metrics.RecordResource(string(category), "absent")
		return nil, false
	default:
		recordFailure(result, category, insights.ReasonFetchFailed)
		return nil, true
	}
}

func (a *Aggregator) mergePolicy(result *insights.InsightsResult, body []byte, kind insights.PolicyKind, task taskResult) {
	policy, err := parse.Policy(body, kind, task.spec.URL)
	if err != nil {
		recordFailure(result, task.spec.Category, parseReason(err))
		return
	}
	result.Policies = append(result.Policies, policy)
}

// heroProducts scans the homepage for cards and upgrades each card to its
// full catalog listing when the handles line up. Hero products are a
// selection of catalog products by homepage appearance, not a distinct type.
func (a *Aggregator) heroProducts(homepage []byte, ref insights.StoreRef, catalog []insights.Product) []insights.Product {
	cards := parse.Hero(homepage, ref.RootURL, a.cfg.HeroLimit)
	if len(cards) == 0 || len(catalog) == 0 {
		return cards
	}
	byHandle := make(map[string]insights.Product, len(catalog))
	for _, p := range catalog {
		if p.Handle != "" {
			byHandle[p.Handle] = p
		}
	}
	for i, card := range cards {
		if full, ok := byHandle[card.Handle]; ok {
			cards[i] = full
		}
	}
	return cards
}

func (a *Aggregator) newRunID() string {
	if a.ids == nil {
		return "run"
	}
	id, err := a.ids.NewID()
	if err != nil {
		return "run"
	}
	return id
}

func recordFailure(result *insights.InsightsResult, category insights.ResourceCategory, reason string) {
	metrics.RecordResource(string(category), reason)
	result.PartialFailures = append(result.PartialFailures, insights.PartialFailure{
		Resource: category,
		Reason:   reason,
	})
}

func parseReason(err error) string {
	var failure *parse.Failure
	if errors.As(err, &failure) {
		return failure.Reason
	}
	return insights.ReasonFetchFailed
}

// optionalResource reports whether a 4xx on this resource means "not
// published" rather than a failure. The catalog is gated by the resolver
// and the homepage is the anchor of half the parsers, so neither is
// optional.
func optionalResource(category insights.ResourceCategory) bool {
	switch category {
	case insights.ResourceCatalog, insights.ResourceHomepage:
		return false
	default:
		return true
	}
}

func clientError(status int) bool {
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case insights.IsInvalidStore(err):
		return "invalid_store"
	default:
		return "internal_error"
	}
}
