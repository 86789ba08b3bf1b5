package parse

import (
	"encoding/json"
	"fmt"

	"github.com/storesight/insights-crawler/internal/insights"
)

// catalogFeed holds the feed envelope. Listings stay raw so one
// type-mismatched listing cannot poison its siblings.
type catalogFeed struct {
	Products []json.RawMessage `json:"products"`
}

type catalogListing struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Variants []catalogVariant `json:"variants"`
	Images   []catalogImage   `json:"images"`
}

type catalogVariant struct {
	Title          string `json:"title"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compare_at_price"`
	Available      bool   `json:"available"`
}

type catalogImage struct {
	Src string `json:"src"`
}

// Catalog decodes a products feed into typed products. The decode is
// tolerant: missing fields default to empty and a bad listing is skipped,
// but a structurally invalid envelope fails the whole parse.
func Catalog(body []byte, rootURL string) ([]insights.Product, error) {
	var feed catalogFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &Failure{Resource: insights.ResourceCatalog, Reason: insights.ReasonMalformedCatalog}
	}
	if feed.Products == nil {
		return nil, &Failure{Resource: insights.ResourceCatalog, Reason: insights.ReasonMalformedCatalog}
	}

	products := make([]insights.Product, 0, len(feed.Products))
	for _, raw := range feed.Products {
		var listing catalogListing
		if err := json.Unmarshal(raw, &listing); err != nil {
			continue
		}
		if listing.Title == "" && listing.Handle == "" {
			continue
		}
		products = append(products, toProduct(listing, rootURL))
	}
	return products, nil
}

func toProduct(listing catalogListing, rootURL string) insights.Product {
	p := insights.Product{
		ID:     listing.ID,
		Title:  listing.Title,
		Handle: listing.Handle,
	}
	if listing.Handle != "" {
		p.URL = fmt.Sprintf("%s/products/%s", rootURL, listing.Handle)
	}
	if len(listing.Variants) > 0 {
		first := listing.Variants[0]
		p.Price = first.Price
		p.CompareAtPrice = first.CompareAtPrice
		p.Available = first.Available
	}
	for _, v := range listing.Variants {
		if v.Title == "" || v.Title == "Default Title" {
			continue
		}
		p.Variants = append(p.Variants, v.Title)
	}
	for _, img := range listing.Images {
		if img.Src != "" {
			p.ImageURLs = append(p.ImageURLs, img.Src)
		}
	}
	return p
}
