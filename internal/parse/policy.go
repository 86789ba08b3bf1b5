package parse

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

const (
	minPolicyChars = 40
	maxPolicyChars = 4000
)

// Containers tried in order when isolating the policy body from the page
// chrome. The longest text block among the matches wins.
var policyContainers = []string{
	".shopify-policy__container",
	".policy-content",
	".page-content",
	".main-content",
	"#content",
	"main",
	"article",
	"body",
}

// Policy strips navigation and boilerplate from a policy page and returns
// the remaining text. An empty remainder is a soft failure, not a hard
// error: the page exists but carries no usable policy body.
func Policy(body []byte, kind insights.PolicyKind, sourceURL string) (insights.PolicyText, error) {
	resource := insights.ResourcePrivacyPolicy
	if kind == insights.PolicyRefund {
		resource = insights.ResourceRefundPolicy
	}

	text := extractMainText(body)
	if len(text) < minPolicyChars {
		return insights.PolicyText{}, &Failure{Resource: resource, Reason: insights.ReasonPolicyNotFound}
	}
	return insights.PolicyText{
		Kind:      kind,
		Text:      truncate(text, maxPolicyChars),
		SourceURL: sourceURL,
	}, nil
}

// extractMainText applies the longest-contiguous-text-block heuristic: strip
// script/style/nav chrome, then take the longest text among the candidate
// content containers.
func extractMainText(body []byte) string {
	doc, err := newDoc(body)
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, nav, header, footer, form, iframe").Remove()

	longest := ""
	for _, sel := range policyContainers {
		doc.Find(sel).Each(func(_ int, block *goquery.Selection) {
			text := normalizeSpace(block.Text())
			if len(text) > len(longest) {
				longest = text
			}
		})
		if longest != "" {
			break
		}
	}
	return longest
}
