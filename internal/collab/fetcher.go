package collab

import (
	"context"
	"log/slog"

	"askrepo/internal/cache"
)

// CachedContentFetcher wraps a ContentFetcher with per-path caching under
// the file-content namespace. Only misses are forwarded to the inner
// fetcher; fetched values are written back best-effort.
type CachedContentFetcher struct {
	inner  ContentFetcher
	store  *cache.Store
	logger *slog.Logger
}

// NewCachedContentFetcher wraps fetcher with the shared cache store.
func NewCachedContentFetcher(fetcher ContentFetcher, store *cache.Store, logger *slog.Logger) *CachedContentFetcher {
	return &CachedContentFetcher{
		inner:  fetcher,
		store:  store,
		logger: logger.With(slog.String("component", "content-fetcher")),
	}
}

// FetchContents returns contents for paths in the given order, serving
// cached entries where available. A per-path miss that the inner fetcher
// also cannot resolve is returned with Found=false, never as an error.
func (f *CachedContentFetcher) FetchContents(ctx context.Context, scope cache.Scope, paths []string) ([]FileContent, error) {
	results := make(map[string]FileContent, len(paths))
	missing := make([]string, 0, len(paths))

	for _, path := range paths {
		key := cache.Key(cache.NamespaceFileContent, scope, path)
		if content, ok := f.store.Get(ctx, key); ok {
			results[path] = FileContent{Path: path, Content: content, Found: true}
			continue
		}
		missing = append(missing, path)
	}

	if len(missing) > 0 {
		fetched, err := f.inner.FetchContents(ctx, scope, missing)
		if err != nil {
			return nil, err
		}
		for _, fc := range fetched {
			results[fc.Path] = fc
			if fc.Found && fc.Content != "" {
				key := cache.Key(cache.NamespaceFileContent, scope, fc.Path)
				f.store.Set(ctx, key, fc.Content, cache.TTL(cache.NamespaceFileContent))
			}
		}
	}

	// Preserve request order; unresolved paths stay present with Found=false.
	out := make([]FileContent, 0, len(paths))
	for _, path := range paths {
		if fc, ok := results[path]; ok {
			out = append(out, fc)
		} else {
			out = append(out, FileContent{Path: path, Found: false})
		}
	}
	return out, nil
}
