package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

const (
	minAboutChars = 50
	maxAboutChars = 800
)

var aboutSelectors = []string{
	".about",
	".about-us",
	".brand-story",
	".company-info",
	".hero-text",
	".intro",
}

// Brand derives best-effort brand context: the name from the homepage title
// and about text from common homepage sections, falling back to the
// dedicated about page.
func Brand(homepage, aboutPage []byte, brandHint string) insights.BrandContext {
	ctx := insights.BrandContext{Name: brandHint}

	doc, err := newDoc(homepage)
	if err == nil {
		if name := brandNameFromTitle(doc); name != "" {
			ctx.Name = name
		}
		ctx.AboutText = aboutFromHomepage(doc)
	}
	if ctx.AboutText == "" && len(aboutPage) > 0 {
		if text := extractMainText(aboutPage); len(text) >= minAboutChars {
			ctx.AboutText = truncate(text, maxAboutChars)
		}
	}
	return ctx
}

// brandNameFromTitle takes the first segment of the <title>, before the
// usual "Brand | tagline" separators.
func brandNameFromTitle(doc *goquery.Document) string {
	title := normalizeSpace(doc.Find("title").First().Text())
	for _, sep := range []string{"|", "–", "—", " - "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
			break
		}
	}
	return normalizeSpace(title)
}

func aboutFromHomepage(doc *goquery.Document) string {
	for _, sel := range aboutSelectors {
		text := normalizeSpace(doc.Find(sel).First().Text())
		if len(text) >= minAboutChars {
			return truncate(text, maxAboutChars)
		}
	}
	return ""
}
