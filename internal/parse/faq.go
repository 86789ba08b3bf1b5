package parse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

const (
	maxFAQEntries     = 15
	minQuestionLength = 10
	maxQuestionChars  = 200
	maxAnswerChars    = 500
)

var faqBlockClass = regexp.MustCompile(`(?i)accordion|faq|toggle|collaps|question`)

// FAQ extracts question/answer pairs from a page. Three structural
// heuristics are tried in order, stopping at the first that yields at least
// one entry. No heuristic matching is a valid outcome: the store simply
// publishes no FAQs, so the result is an empty sequence, never a failure.
func FAQ(body []byte) []insights.FAQEntry {
	doc, err := newDoc(body)
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript").Remove()

	for _, heuristic := range []func(*goquery.Document) []insights.FAQEntry{
		faqFromAccordions,
		faqFromHeadings,
		faqFromText,
	} {
		if entries := heuristic(doc); len(entries) > 0 {
			return capEntries(entries)
		}
	}
	return nil
}

// faqFromAccordions handles details/summary widgets and accordion-like
// repeating blocks.
func faqFromAccordions(doc *goquery.Document) []insights.FAQEntry {
	var entries []insights.FAQEntry

	doc.Find("details").Each(func(_ int, d *goquery.Selection) {
		question := normalizeSpace(d.Find("summary").First().Text())
		// Work on a clone so later heuristics still see the original doc.
		clone := d.Clone()
		clone.Find("summary").Remove()
		answer := normalizeSpace(clone.Text())
		if entry, ok := makeEntry(question, answer); ok {
			entries = append(entries, entry)
		}
	})
	if len(entries) > 0 {
		return entries
	}

	doc.Find("div, section, li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return faqBlockClass.MatchString(class)
	}).Each(func(_ int, block *goquery.Selection) {
		question := normalizeSpace(block.Find("h2, h3, h4, h5, .question, .faq-question").First().Text())
		answer := normalizeSpace(block.Find(".answer, .faq-answer, .accordion-content, p").First().Text())
		if entry, ok := makeEntry(question, answer); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

// faqFromHeadings pairs question-shaped headings with the text that follows.
func faqFromHeadings(doc *goquery.Document) []insights.FAQEntry {
	var entries []insights.FAQEntry
	doc.Find("h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		question := normalizeSpace(h.Text())
		if !strings.HasSuffix(question, "?") {
			return
		}
		answer := normalizeSpace(h.NextUntil("h1, h2, h3, h4").Text())
		if entry, ok := makeEntry(question, answer); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

// faqFromText is the fallback: lines ending in "?" paired with the block of
// text that follows them.
func faqFromText(doc *goquery.Document) []insights.FAQEntry {
	var entries []insights.FAQEntry
	lines := strings.Split(doc.Find("body").Text(), "\n")

	question := ""
	var answer []string
	flush := func() {
		if entry, ok := makeEntry(question, strings.Join(answer, " ")); ok {
			entries = append(entries, entry)
		}
		question = ""
		answer = nil
	}
	for _, line := range lines {
		line = normalizeSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "?") && len(line) > minQuestionLength {
			flush()
			question = line
			continue
		}
		if question != "" {
			answer = append(answer, line)
		}
	}
	flush()
	return entries
}

func makeEntry(question, answer string) (insights.FAQEntry, bool) {
	question = normalizeSpace(question)
	answer = normalizeSpace(answer)
	if len(question) < minQuestionLength || answer == "" {
		return insights.FAQEntry{}, false
	}
	return insights.FAQEntry{
		Question: truncate(question, maxQuestionChars),
		Answer:   truncate(answer, maxAnswerChars),
	}, true
}

func capEntries(entries []insights.FAQEntry) []insights.FAQEntry {
	if len(entries) > maxFAQEntries {
		return entries[:maxFAQEntries]
	}
	return entries
}
