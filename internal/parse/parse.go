// Package parse contains the per-category page parsers. Every parser is a
// pure transformation from fetched content to a typed partial result; none
// performs network I/O, and a parser failure never aborts its siblings.
package parse

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Failure is a local parse failure reported back to the aggregator.
type Failure struct {
	Resource insights.ResourceCategory
	Reason   string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return string(f.Resource) + ": " + f.Reason
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func newDoc(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// absoluteURL resolves href against root, returning "" for anchors that are
// not navigable HTTP links.
func absoluteURL(root, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "javascript:") {
		return ""
	}
	base, err := url.Parse(root)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// truncate caps s at max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
