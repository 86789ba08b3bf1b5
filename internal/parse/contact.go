package parse

import (
	"regexp"
	"sort"
	"strings"

	"github.com/storesight/insights-crawler/internal/insights"
)

var (
	emailToken = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneToken = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

// Asset filenames frequently look like emails ("logo@2x.png"); reject by
// suffix rather than attempting full address validation.
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// Contacts regex-scans raw page content for email-like and phone-like
// tokens and returns deduplicated, sorted sets. Validation is a lightweight
// format check, not RFC compliance.
func Contacts(pages ...[]byte) insights.ContactDetails {
	emails := map[string]bool{}
	phones := map[string]bool{}

	for _, page := range pages {
		for _, m := range emailToken.FindAllString(string(page), -1) {
			if email, ok := validEmail(m); ok {
				emails[email] = true
			}
		}
		for _, m := range phoneToken.FindAllString(string(page), -1) {
			if phone, ok := validPhone(m); ok {
				phones[phone] = true
			}
		}
	}
	return insights.ContactDetails{
		Emails: sortedKeys(emails),
		Phones: sortedKeys(phones),
	}
}

func validEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.Trim(raw, "."))
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(email, suffix) {
			return "", false
		}
	}
	if strings.Count(email, "@") != 1 {
		return "", false
	}
	return email, true
}

func validPhone(raw string) (string, bool) {
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 9 || digits > 15 {
		return "", false
	}
	return normalizeSpace(raw), true
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
