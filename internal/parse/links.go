package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Keyword table for anchor classification. Order matters twice: categories
// are tried top to bottom per anchor (first match wins), and the first
// anchor seen for a category in page order keeps the slot.
var linkKeywords = []struct {
	category insights.LinkCategory
	words    []string
}{
	{insights.LinkOrderTracking, []string{"track", "order-status", "tracking", "shipping", "delivery"}},
	{insights.LinkBlogs, []string{"blog", "news", "journal", "article"}},
	{insights.LinkContactUs, []string{"contact", "support", "help"}},
	{insights.LinkAboutUs, []string{"about", "our-story", "story", "company"}},
	{insights.LinkCareers, []string{"career", "jobs", "hiring", "join-us"}},
}

// ClassifyLinks scans anchors across the given pages (in plan order) and
// buckets them by the keyword table. Social-platform links are excluded;
// unmatched /pages/ links feed the "other" bucket.
func ClassifyLinks(rootURL string, pages ...[]byte) map[insights.LinkCategory]string {
	links := map[insights.LinkCategory]string{}
	for _, page := range pages {
		doc, err := newDoc(page)
		if err != nil {
			continue
		}
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			target := absoluteURL(rootURL, href)
			if target == "" || isSocialURL(target) {
				return
			}
			haystack := strings.ToLower(normalizeSpace(a.Text()) + " " + target)
			for _, entry := range linkKeywords {
				if !matchesAny(haystack, entry.words) {
					continue
				}
				if _, taken := links[entry.category]; !taken {
					links[entry.category] = target
				}
				return
			}
			if _, taken := links[insights.LinkOther]; !taken && strings.Contains(target, "/pages/") {
				links[insights.LinkOther] = target
			}
		})
	}
	return links
}

func matchesAny(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}
