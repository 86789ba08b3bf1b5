// Package detector decides when a page warrants a headless re-fetch.
package detector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Heuristic implements insights.HeadlessDetector using simple HTML signals:
// a body below a byte threshold, known JS-app keywords, or missing landmark
// selectors all suggest the page is client-rendered.
type Heuristic struct {
	minHTMLBytes int
	selectors    []string
	keywords     [][]byte
}

// New constructs a Heuristic with the configured thresholds.
func New(minBytes int, selectors, keywords []string) *Heuristic {
	lowerKeywords := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowerKeywords = append(lowerKeywords, bytes.ToLower([]byte(kw)))
	}
	return &Heuristic{
		minHTMLBytes: minBytes,
		selectors:    selectors,
		keywords:     lowerKeywords,
	}
}

// ShouldPromote inspects the fetched page for signals that indicate JS
// rendering is required.
func (d *Heuristic) ShouldPromote(result insights.FetchResult) bool {
	if d == nil {
		return false
	}
	switch {
	case d.bodyBelowThreshold(result.Body):
		return true
	case d.containsKeywords(result.Body):
		return true
	default:
		return d.missingSelectors(result.Body)
	}
}

func (d *Heuristic) bodyBelowThreshold(body []byte) bool {
	return d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes
}

func (d *Heuristic) containsKeywords(body []byte) bool {
	if len(body) == 0 || len(d.keywords) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if len(kw) == 0 {
			continue
		}
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}

func (d *Heuristic) missingSelectors(body []byte) bool {
	if len(d.selectors) == 0 || len(body) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	for _, sel := range d.selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return true
		}
	}
	return false
}
