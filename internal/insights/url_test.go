package insights

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRootURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare host gets https", in: "example.com", want: "https://example.com"},
		{name: "trailing slash stripped", in: "https://example.com/", want: "https://example.com"},
		{name: "host lowercased", in: "https://Shop.Example.COM", want: "https://shop.example.com"},
		{name: "default https port removed", in: "https://example.com:443/", want: "https://example.com"},
		{name: "default http port removed", in: "http://example.com:80", want: "http://example.com"},
		{name: "query and fragment dropped", in: "https://example.com/?utm=x#top", want: "https://example.com"},
		{name: "path preserved", in: "https://example.com/store/", want: "https://example.com/store"},
		{name: "ftp rejected", in: "ftp://example.com", wantErr: true},
		{name: "empty rejected", in: "   ", wantErr: true},
		{name: "scheme only rejected", in: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRootURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBrandHintFromURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hairoriginals", BrandHintFromURL("https://www.hairoriginals.com"))
	require.Equal(t, "shop", BrandHintFromURL("https://shop.example.com"))
	require.Equal(t, "localhost", BrandHintFromURL("http://localhost:9090"))
}
