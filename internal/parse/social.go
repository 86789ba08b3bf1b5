package parse

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Known platform domains. Twitter and X map to the same platform key.
var socialDomains = map[string]insights.SocialPlatform{
	"instagram.com": insights.PlatformInstagram,
	"facebook.com":  insights.PlatformFacebook,
	"fb.com":        insights.PlatformFacebook,
	"tiktok.com":    insights.PlatformTikTok,
	"twitter.com":   insights.PlatformTwitter,
	"x.com":         insights.PlatformTwitter,
	"youtube.com":   insights.PlatformYouTube,
	"youtu.be":      insights.PlatformYouTube,
	"pinterest.com": insights.PlatformPinterest,
	"linkedin.com":  insights.PlatformLinkedIn,
}

// SocialLinks scans anchors whose host matches a known platform domain.
// At most one URL per platform is kept; the last seen on the page wins.
func SocialLinks(pages ...[]byte) map[insights.SocialPlatform]string {
	links := map[insights.SocialPlatform]string{}
	for _, page := range pages {
		doc, err := newDoc(page)
		if err != nil {
			continue
		}
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if platform, ok := platformFor(href); ok {
				links[platform] = strings.TrimSpace(href)
			}
		})
	}
	return links
}

func platformFor(href string) (insights.SocialPlatform, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for domain, platform := range socialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return platform, true
		}
	}
	return "", false
}

func isSocialURL(target string) bool {
	_, ok := platformFor(target)
	return ok
}
