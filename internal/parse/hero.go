package parse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

// DefaultHeroLimit caps how many homepage product cards are kept.
const DefaultHeroLimit = 6

var priceToken = regexp.MustCompile(`(?:[$€£₹]|Rs\.?)\s*\d[\d,]*(?:\.\d{1,2})?`)

// Hero scans homepage markup for product-card patterns: anchors into the
// store's product URL space with a usable title, optionally with a
// co-located image and price. Cards are returned in document order, capped
// at limit. "Hero" means what a visitor sees first, not a ranking.
func Hero(body []byte, rootURL string, limit int) []insights.Product {
	if limit <= 0 {
		limit = DefaultHeroLimit
	}
	doc, err := newDoc(body)
	if err != nil {
		return nil
	}

	var cards []insights.Product
	seen := map[string]bool{}
	doc.Find(`a[href*="/products/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		productURL := absoluteURL(rootURL, href)
		if productURL == "" || seen[productURL] {
			return true
		}
		title := cardTitle(a)
		if title == "" {
			return true
		}
		seen[productURL] = true
		cards = append(cards, insights.Product{
			Title:     truncate(title, 100),
			Handle:    handleFromURL(productURL),
			URL:       productURL,
			Price:     cardPrice(a),
			ImageURLs: cardImages(a),
		})
		return len(cards) < limit
	})
	return cards
}

func cardTitle(a *goquery.Selection) string {
	if t := normalizeSpace(a.Text()); t != "" && !priceToken.MatchString(t) {
		return t
	}
	if alt, ok := a.Find("img").First().Attr("alt"); ok {
		return normalizeSpace(alt)
	}
	return ""
}

func cardPrice(a *goquery.Selection) string {
	// Look for a price in the surrounding card, not just the anchor text.
	scope := a.Closest(`[class*="card"], [class*="product"], li, article`)
	if scope.Length() == 0 {
		scope = a.Parent()
	}
	if m := priceToken.FindString(scope.Text()); m != "" {
		return normalizeSpace(m)
	}
	return ""
}

func cardImages(a *goquery.Selection) []string {
	var images []string
	a.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			src, _ = img.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src != "" {
			images = append(images, src)
		}
	})
	return images
}

func handleFromURL(productURL string) string {
	i := strings.LastIndex(productURL, "/products/")
	if i < 0 {
		return ""
	}
	handle := productURL[i+len("/products/"):]
	if j := strings.IndexAny(handle, "?#/"); j >= 0 {
		handle = handle[:j]
	}
	return handle
}
