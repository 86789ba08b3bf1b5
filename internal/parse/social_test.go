package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storesight/insights-crawler/internal/insights"
)

func TestSocialLinks(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><body>
	<a href="https://www.instagram.com/hairoriginals">IG</a>
	<a href="https://facebook.com/hairoriginals">FB</a>
	<a href="https://x.com/hairoriginals">X</a>
	<a href="https://www.youtube.com/@hairoriginals">YT</a>
	<a href="https://example.com/pages/about">not social</a>
	</body></html>`)

	links := SocialLinks(page)
	require.Equal(t, "https://www.instagram.com/hairoriginals", links[insights.PlatformInstagram])
	require.Equal(t, "https://facebook.com/hairoriginals", links[insights.PlatformFacebook])
	require.Equal(t, "https://x.com/hairoriginals", links[insights.PlatformTwitter])
	require.Equal(t, "https://www.youtube.com/@hairoriginals", links[insights.PlatformYouTube])
	require.Len(t, links, 4)
}

func TestSocialLinks_LastSeenWins(t *testing.T) {
	t.Parallel()

	page := []byte(`
	<a href="https://instagram.com/old-handle">old</a>
	<a href="https://instagram.com/new-handle">new</a>`)

	links := SocialLinks(page)
	require.Equal(t, "https://instagram.com/new-handle", links[insights.PlatformInstagram])
}

func TestSocialLinks_TwitterAndXShareAKey(t *testing.T) {
	t.Parallel()

	page := []byte(`
	<a href="https://twitter.com/brand">twitter</a>
	<a href="https://x.com/brand-x">x</a>`)

	links := SocialLinks(page)
	require.Len(t, links, 1)
	require.Equal(t, "https://x.com/brand-x", links[insights.PlatformTwitter])
}
