package parse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrand_NameFromTitle(t *testing.T) {
	t.Parallel()

	homepage := []byte(`<html><head><title>Hair Originals | 100% Human Hair Extensions</title></head><body></body></html>`)
	ctx := Brand(homepage, nil, "hairoriginals")
	require.Equal(t, "Hair Originals", ctx.Name)
}

func TestBrand_AboutFromHomepageSection(t *testing.T) {
	t.Parallel()

	homepage := []byte(`<html><body>
	<div class="brand-story">We started in a small workshop in 2015 and now craft hair products loved across the country.</div>
	</body></html>`)

	ctx := Brand(homepage, nil, "brand")
	require.Contains(t, ctx.AboutText, "small workshop in 2015")
}

func TestBrand_AboutPageFallback(t *testing.T) {
	t.Parallel()

	homepage := []byte(`<html><head><title>Brand</title></head><body><p>hi</p></body></html>`)
	aboutPage := []byte(`<html><body><main>
	Our brand exists to make everyday essentials that last. Every product is tested by the people who design it.
	</main></body></html>`)

	ctx := Brand(homepage, aboutPage, "brand")
	require.Contains(t, ctx.AboutText, "everyday essentials that last")
}

func TestBrand_HintFallback(t *testing.T) {
	t.Parallel()

	ctx := Brand([]byte("<html></html>"), nil, "hairoriginals")
	require.Equal(t, "hairoriginals", ctx.Name)
	require.Empty(t, ctx.AboutText)
}
