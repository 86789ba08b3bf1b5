package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storesight/insights-crawler/internal/insights"
)

const sampleFeed = `{
	"products": [
		{
			"id": 101,
			"title": "Argan Hair Oil",
			"handle": "argan-hair-oil",
			"variants": [
				{"title": "50ml", "price": "499.00", "compare_at_price": "599.00", "available": true},
				{"title": "100ml", "price": "899.00", "available": false}
			],
			"images": [{"src": "https://cdn.example/argan-1.jpg"}, {"src": "https://cdn.example/argan-2.jpg"}]
		},
		{
			"id": 102,
			"title": "Silk Scrunchie",
			"handle": "silk-scrunchie",
			"variants": [{"title": "Default Title", "price": "199.00", "available": true}]
		},
		{"id": 103}
	]
}`

func TestCatalog_MapsListings(t *testing.T) {
	t.Parallel()

	products, err := Catalog([]byte(sampleFeed), "https://valid-store.example")
	require.NoError(t, err)
	require.Len(t, products, 2, "listing without title or handle is skipped")

	first := products[0]
	require.Equal(t, int64(101), first.ID)
	require.Equal(t, "Argan Hair Oil", first.Title)
	require.Equal(t, "499.00", first.Price)
	require.Equal(t, "599.00", first.CompareAtPrice)
	require.True(t, first.Available)
	require.Equal(t, "https://valid-store.example/products/argan-hair-oil", first.URL)
	require.Equal(t, []string{"https://cdn.example/argan-1.jpg", "https://cdn.example/argan-2.jpg"}, first.ImageURLs)
	require.Equal(t, []string{"50ml", "100ml"}, first.Variants)

	second := products[1]
	require.Empty(t, second.Variants, "Default Title variant is not a real option")
	require.Empty(t, second.ImageURLs)
}

func TestCatalog_ToleratesMissingFields(t *testing.T) {
	t.Parallel()

	products, err := Catalog([]byte(`{"products":[{"title":"Bare"}]}`), "https://s.example")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Empty(t, products[0].Price)
	require.Empty(t, products[0].URL, "no handle means no product URL")
}

func TestCatalog_SkipsTypeMismatchedListing(t *testing.T) {
	t.Parallel()

	feed := `{
		"products": [
			{"id": 201, "title": "Good One", "handle": "good-one"},
			{"id": "oops-string-id", "title": "Broken", "handle": "broken"},
			{"id": 202, "title": "Good Two", "handle": "good-two"}
		]
	}`
	products, err := Catalog([]byte(feed), "https://s.example")
	require.NoError(t, err, "one bad listing must not abort the feed")
	require.Len(t, products, 2)
	require.Equal(t, "Good One", products[0].Title)
	require.Equal(t, "Good Two", products[1].Title)
}

func TestCatalog_EmptyFeed(t *testing.T) {
	t.Parallel()

	products, err := Catalog([]byte(`{"products":[]}`), "https://s.example")
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestCatalog_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>products</html>"},
		{name: "wrong shape", body: `{"collections":[]}`},
		{name: "truncated", body: `{"products":[{"id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Catalog([]byte(tt.body), "https://s.example")
			var failure *Failure
			require.True(t, errors.As(err, &failure))
			require.Equal(t, insights.ResourceCatalog, failure.Resource)
			require.Equal(t, insights.ReasonMalformedCatalog, failure.Reason)
		})
	}
}
