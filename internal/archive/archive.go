// Package archive provides helpers shared by the page archive backends.
package archive

import (
	"context"
	"strings"

	"github.com/storesight/insights-crawler/internal/insights"
)

// Prefixed wraps a BlobStore so every object lands under a fixed prefix.
type Prefixed struct {
	store  insights.BlobStore
	prefix string
}

// WithPrefix decorates store with a path prefix. An empty prefix returns the
// store unchanged.
func WithPrefix(store insights.BlobStore, prefix string) insights.BlobStore {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return store
	}
	return &Prefixed{store: store, prefix: prefix}
}

// PutObject prepends the prefix and delegates to the wrapped store.
func (p *Prefixed) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	return p.store.PutObject(ctx, p.prefix+"/"+strings.TrimPrefix(path, "/"), contentType, data)
}
