// Package planner derives the fixed set of sub-resources to fetch for a
// resolved storefront. Planning is pure and deterministic: the same StoreRef
// always yields the same specs in the same order.
package planner

import (
	"github.com/storesight/insights-crawler/internal/insights"
)

// Conventional Shopify-style paths per resource category, in plan order.
// The homepage is always present: it feeds hero products, social links,
// brand context, contact scanning, and link classification.
var planPaths = []struct {
	category insights.ResourceCategory
	path     string
}{
	{insights.ResourceCatalog, "/products.json"},
	{insights.ResourceHomepage, "/"},
	{insights.ResourcePrivacyPolicy, "/policies/privacy-policy"},
	{insights.ResourceRefundPolicy, "/policies/refund-policy"},
	{insights.ResourceFAQ, "/pages/faq"},
	{insights.ResourceContact, "/pages/contact-us"},
	{insights.ResourceAbout, "/pages/about-us"},
}

// Plan computes the ordered resource specs for a store. No I/O.
func Plan(ref insights.StoreRef) []insights.ResourceSpec {
	specs := make([]insights.ResourceSpec, 0, len(planPaths))
	for _, p := range planPaths {
		url := ref.RootURL + p.path
		specs = append(specs, insights.ResourceSpec{
			Category: p.category,
			URL:      url,
		})
	}
	return specs
}

// CatalogURL returns the machine-readable catalog endpoint for a root URL.
// The resolver probes this endpoint before anything else is fetched.
func CatalogURL(rootURL string) string {
	return rootURL + "/products.json?limit=1"
}
