package collab

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"askrepo/internal/cache"
	"askrepo/internal/slogutil"
)

// fakeFetcher records which paths reached the inner fetcher.
type fakeFetcher struct {
	contents map[string]string
	requests [][]string
}

func (f *fakeFetcher) FetchContents(ctx context.Context, scope cache.Scope, paths []string) ([]FileContent, error) {
	f.requests = append(f.requests, paths)
	out := make([]FileContent, 0, len(paths))
	for _, p := range paths {
		if c, ok := f.contents[p]; ok {
			out = append(out, FileContent{Path: p, Content: c, Found: true})
		} else {
			out = append(out, FileContent{Path: p, Found: false})
		}
	}
	return out, nil
}

func newCacheStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStoreWithClient(client, slogutil.NewDiscardLogger())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCachedFetcherServesHitsWithoutInnerCall(t *testing.T) {
	t.Parallel()

	store := newCacheStore(t)
	inner := &fakeFetcher{contents: map[string]string{"main.go": "package main"}}
	fetcher := NewCachedContentFetcher(inner, store, slogutil.NewDiscardLogger())
	scope := cache.Scope{Owner: "acme", Repo: "api"}
	ctx := context.Background()

	// First call fetches and populates the cache.
	first, err := fetcher.FetchContents(ctx, scope, []string{"main.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || !first[0].Found || first[0].Content != "package main" {
		t.Fatalf("unexpected first fetch: %+v", first)
	}

	// Second call must be served entirely from cache.
	second, err := fetcher.FetchContents(ctx, scope, []string{"main.go"})
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Content != "package main" {
		t.Errorf("cached content mismatch: %+v", second[0])
	}
	if len(inner.requests) != 1 {
		t.Errorf("inner fetcher called %d times, want 1", len(inner.requests))
	}
}

func TestCachedFetcherPreservesOrderAndMisses(t *testing.T) {
	t.Parallel()

	store := newCacheStore(t)
	inner := &fakeFetcher{contents: map[string]string{
		"a.go": "a",
		"c.go": "c",
	}}
	fetcher := NewCachedContentFetcher(inner, store, slogutil.NewDiscardLogger())
	scope := cache.Scope{Owner: "acme", Repo: "api"}

	got, err := fetcher.FetchContents(context.Background(), scope, []string{"a.go", "missing.go", "c.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].Path != "a.go" || got[1].Path != "missing.go" || got[2].Path != "c.go" {
		t.Errorf("request order not preserved: %+v", got)
	}
	if got[1].Found {
		t.Error("missing path must be reported with Found=false")
	}
}
