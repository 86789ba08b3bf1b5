package aggregator

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	archivememory "github.com/storesight/insights-crawler/internal/archive/memory"
	"github.com/storesight/insights-crawler/internal/clock/system"
	"github.com/storesight/insights-crawler/internal/hash/sha256"
	"github.com/storesight/insights-crawler/internal/id/uuid"
	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/resolver"
)

const testRoot = "https://shop.example.com"

const testCatalog = `{
	"products": [
		{
			"id": 1,
			"title": "Trail Pack",
			"handle": "trail-pack",
			"variants": [{"title": "Default Title", "price": "79.00", "available": true}],
			"images": [{"src": "https://cdn.example.com/trail-pack.jpg"}]
		},
		{
			"id": 2,
			"title": "Summit Bottle",
			"handle": "summit-bottle",
			"variants": [{"title": "500ml", "price": "24.00", "compare_at_price": "32.00", "available": true}]
		},
		{
			"id": 3,
			"title": "Basecamp Mug",
			"handle": "basecamp-mug",
			"variants": [{"title": "Default Title", "price": "18.00", "available": false}]
		}
	]
}`

const testHomepage = `<html><head><title>Trailgoods | Outdoor Gear</title></head><body>
<header><nav>
<a href="/pages/track-your-order">Track Order</a>
<a href="/blogs/news">Journal</a>
<a href="/pages/contact-us">Contact</a>
</nav></header>
<main>
<div class="product-card"><a href="/products/trail-pack">Trail Pack</a><span>$79.00</span></div>
<div class="product-card"><a href="/products/summit-bottle">Summit Bottle</a><span>$24.00</span></div>
</main>
<footer>
<a href="https://instagram.com/trailgoods">Instagram</a>
<a href="mailto:support@shop.example.com">support@shop.example.com</a>
</footer>
</body></html>`

const testPolicy = `<html><body><main>We collect only the order information needed to fulfill
your purchase and never sell personal data to third parties. Requests for data
deletion are honored within thirty days.</main></body></html>`

// stubFetcher serves canned results keyed by URL. Unknown URLs 404.
type stubFetcher struct {
	results map[string]insights.FetchResult
	errs    map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, req insights.FetchRequest) (insights.FetchResult, error) {
	if err, ok := f.errs[req.URL]; ok {
		return insights.FetchResult{}, err
	}
	if res, ok := f.results[req.URL]; ok {
		res.URL = req.URL
		return res, nil
	}
	return insights.FetchResult{URL: req.URL, StatusCode: http.StatusNotFound}, nil
}

func htmlResult(body string) insights.FetchResult {
	return insights.FetchResult{StatusCode: http.StatusOK, Body: []byte(body), ContentType: "text/html"}
}

func healthyStore() *stubFetcher {
	return &stubFetcher{
		results: map[string]insights.FetchResult{
			testRoot + "/products.json?limit=1": {
				StatusCode:  http.StatusOK,
				Body:        []byte(`{"products":[]}`),
				ContentType: "application/json",
			},
			testRoot + "/products.json": {
				StatusCode:  http.StatusOK,
				Body:        []byte(testCatalog),
				ContentType: "application/json",
			},
			testRoot + "/":                        htmlResult(testHomepage),
			testRoot + "/policies/privacy-policy": htmlResult(testPolicy),
		},
		errs: map[string]error{},
	}
}

func newAggregator(fetcher insights.Fetcher, archive insights.BlobStore) *Aggregator {
	res := resolver.New(fetcher, 5*time.Second, nil)
	return New(
		res,
		fetcher,
		nil,
		nil,
		archive,
		sha256.New(),
		uuid.NewUUIDGenerator(),
		system.New(),
		Config{Concurrency: 6, ResourceTimeout: 5 * time.Second},
		nil,
	)
}

func TestRunHealthyStore(t *testing.T) {
	t.Parallel()

	agg := newAggregator(healthyStore(), nil)
	result, err := agg.Run(context.Background(), testRoot)
	require.NoError(t, err)

	require.Equal(t, testRoot, result.Store.RootURL)
	require.Equal(t, "shop", result.Store.BrandHint)

	require.Len(t, result.Products, 3)
	require.Equal(t, "Trail Pack", result.Products[0].Title)
	require.Equal(t, "79.00", result.Products[0].Price)
	require.Equal(t, testRoot+"/products/trail-pack", result.Products[0].URL)

	// Hero cards should be upgraded to their full catalog listings.
	require.Len(t, result.HeroProducts, 2)
	require.Equal(t, int64(1), result.HeroProducts[0].ID)
	require.Equal(t, "Summit Bottle", result.HeroProducts[1].Title)
	require.Equal(t, "32.00", result.HeroProducts[1].CompareAtPrice)

	require.Len(t, result.Policies, 1)
	require.Equal(t, insights.PolicyPrivacy, result.Policies[0].Kind)
	require.Contains(t, result.Policies[0].Text, "never sell personal data")

	// Missing FAQ/contact/about pages are absences, not failures.
	require.Empty(t, result.FAQs)
	require.Empty(t, result.PartialFailures)

	require.Equal(t, "https://instagram.com/trailgoods", result.SocialLinks[insights.PlatformInstagram])
	require.Contains(t, result.Contact.Emails, "support@shop.example.com")
	require.Equal(t, testRoot+"/pages/track-your-order", result.ImportantLinks[insights.LinkOrderTracking])
	require.Equal(t, "Trailgoods", result.Brand.Name)
	require.False(t, result.FetchedAt.IsZero())
}

func TestRunInvalidStore(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		results: map[string]insights.FetchResult{
			testRoot + "/products.json?limit=1": {StatusCode: http.StatusNotFound},
		},
	}
	agg := newAggregator(fetcher, nil)

	_, err := agg.Run(context.Background(), testRoot)
	require.Error(t, err)
	require.True(t, insights.IsInvalidStore(err))

	var pe *insights.PipelineError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, insights.ErrNotFound, pe.Kind)
}

func TestRunUnreachableStore(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		errs: map[string]error{
			testRoot + "/products.json?limit=1": errors.New("dial tcp: connection refused"),
		},
	}
	agg := newAggregator(fetcher, nil)

	_, err := agg.Run(context.Background(), testRoot)
	require.Error(t, err)

	var pe *insights.PipelineError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, insights.ErrUnreachable, pe.Kind)
}

func TestRunResourceTimeoutIsPartialFailure(t *testing.T) {
	t.Parallel()

	fetcher := healthyStore()
	delete(fetcher.results, testRoot+"/policies/privacy-policy")
	fetcher.errs[testRoot+"/policies/privacy-policy"] = context.DeadlineExceeded

	agg := newAggregator(fetcher, nil)
	result, err := agg.Run(context.Background(), testRoot)
	require.NoError(t, err)

	require.Len(t, result.Products, 3)
	require.Len(t, result.PartialFailures, 1)
	require.Equal(t, insights.ResourcePrivacyPolicy, result.PartialFailures[0].Resource)
	require.Equal(t, insights.ReasonTimeout, result.PartialFailures[0].Reason)
}

func TestRunHomepageFailureKeepsSiblingPages(t *testing.T) {
	t.Parallel()

	fetcher := healthyStore()
	delete(fetcher.results, testRoot+"/")
	fetcher.errs[testRoot+"/"] = errors.New("connection reset")
	fetcher.results[testRoot+"/pages/contact-us"] = htmlResult(`<html><body>
<p>Reach us at help@shop.example.com or +1 (212) 555-0134.</p>
<a href="https://facebook.com/trailgoods">Facebook</a>
</body></html>`)

	agg := newAggregator(fetcher, nil)
	result, err := agg.Run(context.Background(), testRoot)
	require.NoError(t, err)

	require.Len(t, result.PartialFailures, 1)
	require.Equal(t, insights.ResourceHomepage, result.PartialFailures[0].Resource)

	// The contact page was fetched, so its parsers still run.
	require.Contains(t, result.Contact.Emails, "help@shop.example.com")
	require.Equal(t, "https://facebook.com/trailgoods", result.SocialLinks[insights.PlatformFacebook])
	require.Equal(t, "shop", result.Brand.Name, "brand name falls back to the host hint")
	require.Empty(t, result.HeroProducts, "hero products need the homepage")
}

func TestRunMalformedCatalogIsPartialFailure(t *testing.T) {
	t.Parallel()

	fetcher := healthyStore()
	fetcher.results[testRoot+"/products.json"] = insights.FetchResult{
		StatusCode:  http.StatusOK,
		Body:        []byte(`<html>not json</html>`),
		ContentType: "text/html",
	}

	agg := newAggregator(fetcher, nil)
	result, err := agg.Run(context.Background(), testRoot)
	require.NoError(t, err)

	require.Empty(t, result.Products)
	require.Len(t, result.PartialFailures, 1)
	require.Equal(t, insights.ResourceCatalog, result.PartialFailures[0].Resource)
	require.Equal(t, insights.ReasonMalformedCatalog, result.PartialFailures[0].Reason)

	// Hero cards survive without catalog enrichment.
	require.Len(t, result.HeroProducts, 2)
	require.Zero(t, result.HeroProducts[0].ID)
}

func TestRunPartialFailuresSorted(t *testing.T) {
	t.Parallel()

	fetcher := healthyStore()
	delete(fetcher.results, testRoot+"/policies/privacy-policy")
	fetcher.errs[testRoot+"/policies/privacy-policy"] = context.DeadlineExceeded
	fetcher.errs[testRoot+"/pages/contact-us"] = errors.New("connection reset")
	fetcher.results[testRoot+"/products.json"] = insights.FetchResult{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"products": null}`),
	}

	agg := newAggregator(fetcher, nil)
	result, err := agg.Run(context.Background(), testRoot)
	require.NoError(t, err)

	require.Len(t, result.PartialFailures, 3)
	require.True(t, sort.SliceIsSorted(result.PartialFailures, func(i, j int) bool {
		return result.PartialFailures[i].Resource < result.PartialFailures[j].Resource
	}))
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	for i := 0; i < 3; i++ {
		agg := newAggregator(healthyStore(), nil)
		first, err := agg.Run(context.Background(), testRoot)
		require.NoError(t, err)
		second, err := agg.Run(context.Background(), testRoot)
		require.NoError(t, err)

		first.FetchedAt = second.FetchedAt
		require.Equal(t, first, second)
	}
}

// recordingBlobStore wraps the memory archive and records object paths.
type recordingBlobStore struct {
	*archivememory.BlobStore
	mu    sync.Mutex
	paths []string
}

func (s *recordingBlobStore) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	return s.BlobStore.PutObject(ctx, path, contentType, data)
}

func TestRunArchivesFetchedPages(t *testing.T) {
	t.Parallel()

	blobStore := &recordingBlobStore{BlobStore: archivememory.NewBlobStore()}
	agg := newAggregator(healthyStore(), blobStore)

	_, err := agg.Run(context.Background(), testRoot)
	require.NoError(t, err)

	// Catalog, homepage, and privacy policy all came back 200.
	require.Len(t, blobStore.paths, 3)

	digest, err := sha256.New().Hash([]byte(testHomepage))
	require.NoError(t, err)

	var homepagePath string
	for _, path := range blobStore.paths {
		if strings.Contains(path, "homepage_"+digest[:16]) {
			homepagePath = path
		}
	}
	require.NotEmpty(t, homepagePath)

	body, ok := blobStore.Get(homepagePath)
	require.True(t, ok)
	require.Equal(t, testHomepage, string(body))
}
