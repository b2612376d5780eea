package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
	"askrepo/internal/slogutil"
)

var testScope = cache.Scope{Owner: "acme", Repo: "api"}

type fakeFetcher struct {
	contents map[string]string
	calls    int
}

func (f *fakeFetcher) FetchContents(ctx context.Context, scope cache.Scope, paths []string) ([]collab.FileContent, error) {
	f.calls++
	out := make([]collab.FileContent, 0, len(paths))
	for _, p := range paths {
		if c, ok := f.contents[p]; ok {
			out = append(out, collab.FileContent{Path: p, Content: c, Found: true})
		} else {
			out = append(out, collab.FileContent{Path: p, Found: false})
		}
	}
	return out, nil
}

type fakeScanner struct {
	findings []collab.Finding
	calls    int
	lastSeen []string
}

func (f *fakeScanner) Scan(ctx context.Context, files []collab.FileContent) ([]collab.Finding, error) {
	f.calls++
	f.lastSeen = nil
	for _, fc := range files {
		f.lastSeen = append(f.lastSeen, fc.Path)
	}
	return f.findings, nil
}

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStoreWithClient(client, slogutil.NewDiscardLogger())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestScanMergesAndDeduplicates(t *testing.T) {
	t.Parallel()

	dup := collab.Finding{
		File: "src/auth.go", Line: 12, Title: "Hardcoded credential",
		Severity: collab.SeverityHigh, Confidence: collab.ConfidenceHigh,
	}
	pattern := &fakeScanner{findings: []collab.Finding{dup}}
	aiDup := dup
	aiDup.Source = "ai"
	aiDup.Severity = collab.SeverityCritical // AI disagrees; pattern wins
	ai := &fakeScanner{findings: []collab.Finding{
		aiDup,
		{File: "src/db.go", Line: 3, Title: "SQL injection", Severity: collab.SeverityCritical, Confidence: collab.ConfidenceMedium},
	}}

	content := strings.Join([]string{
		"package auth", "", "import \"os\"", "", "func init() {}", "",
		"var a = 1", "var b = 2", "var c = 3", "var d = 4", "var e = 5",
		"const apiKey = \"sk-123\"", "var f = 6",
	}, "\n")
	fetcher := &fakeFetcher{contents: map[string]string{
		"src/auth.go": content,
		"src/db.go":   "package db\nvar x = 1\nvar q = \"SELECT *\"\n",
	}}

	o := New(newStore(t), fetcher, pattern, ai, Caps{}, slogutil.NewDiscardLogger())
	res, err := o.Scan(context.Background(), testScope, []string{"src/auth.go", "src/db.go"}, Options{AIEnabled: true})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Findings) != 2 {
		t.Fatalf("expected 2 findings after dedup, got %d: %+v", len(res.Findings), res.Findings)
	}
	if res.Stages.Deduplicated != 1 {
		t.Errorf("expected 1 deduplicated finding, got %d", res.Stages.Deduplicated)
	}
	// Pattern finding wins the duplicate.
	if res.Findings[0].Severity != collab.SeverityHigh {
		t.Errorf("deterministic finding must win duplicates, got %s", res.Findings[0].Severity)
	}
}

func TestSnippetAttachment(t *testing.T) {
	t.Parallel()

	pattern := &fakeScanner{findings: []collab.Finding{
		{File: "src/auth.go", Line: 5, Title: "x", Severity: collab.SeverityHigh, Confidence: collab.ConfidenceHigh},
	}}
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	fetcher := &fakeFetcher{contents: map[string]string{"src/auth.go": strings.Join(lines, "\n")}}

	o := New(newStore(t), fetcher, pattern, nil, Caps{}, slogutil.NewDiscardLogger())
	res, err := o.Scan(context.Background(), testScope, []string{"src/auth.go"}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	snip := res.Findings[0].Snippet
	if !strings.Contains(snip, "5| line 5") {
		t.Errorf("snippet missing target line: %q", snip)
	}
	if !strings.HasPrefix(snip, "2| line 2") {
		t.Errorf("snippet should start 3 lines above target: %q", snip)
	}
	if !strings.HasSuffix(snip, "8| line 8") {
		t.Errorf("snippet should end 3 lines below target: %q", snip)
	}
}

func TestLowConfidenceDropped(t *testing.T) {
	t.Parallel()

	pattern := &fakeScanner{findings: []collab.Finding{
		{File: "a.go", Line: 1, Title: "noise", Severity: collab.SeverityLow, Confidence: collab.ConfidenceLow},
		{File: "a.go", Line: 2, Title: "real", Severity: collab.SeverityHigh, Confidence: collab.ConfidenceHigh},
	}}
	fetcher := &fakeFetcher{contents: map[string]string{"a.go": "package a\nvar x = 1\n"}}

	o := New(newStore(t), fetcher, pattern, nil, Caps{}, slogutil.NewDiscardLogger())
	res, err := o.Scan(context.Background(), testScope, []string{"a.go"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Title != "real" {
		t.Errorf("low-confidence finding not dropped: %+v", res.Findings)
	}
	if res.Stages.DroppedLowConf != 1 {
		t.Errorf("diagnostics miscounted drops: %d", res.Stages.DroppedLowConf)
	}
}

func TestFilterExtensionsIncludeExcludeAndCap(t *testing.T) {
	t.Parallel()

	candidates := []string{
		"src/auth.go",
		"src/auth_test.go",
		"logo.png",
		"package.json",
		"docs/readme.txt",
	}
	pattern := &fakeScanner{}
	fetcher := &fakeFetcher{contents: map[string]string{
		"src/auth.go":  "package auth",
		"package.json": "{}",
	}}

	o := New(newStore(t), fetcher, pattern, nil, Caps{}, slogutil.NewDiscardLogger())
	_, err := o.Scan(context.Background(), testScope, candidates, Options{
		Exclude: []string{"*_test.go"},
	})
	if err != nil {
		t.Fatal(err)
	}

	seen := strings.Join(pattern.lastSeen, ",")
	if strings.Contains(seen, "auth_test.go") {
		t.Error("excluded pattern leaked through")
	}
	if strings.Contains(seen, "logo.png") || strings.Contains(seen, "readme.txt") {
		t.Error("non-source file leaked through")
	}
	if !strings.Contains(seen, "package.json") {
		t.Error("manifest file must be scannable")
	}
}

func TestQuickDepthCapsFiles(t *testing.T) {
	t.Parallel()

	var candidates []string
	contents := make(map[string]string)
	for i := 0; i < 80; i++ {
		p := fmt.Sprintf("src/file%d.go", i)
		candidates = append(candidates, p)
		contents[p] = "package src"
	}
	pattern := &fakeScanner{}
	fetcher := &fakeFetcher{contents: contents}

	o := New(newStore(t), fetcher, pattern, nil, Caps{}, slogutil.NewDiscardLogger())
	res, err := o.Scan(context.Background(), testScope, candidates, Options{Depth: DepthQuick})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stages.FilesFiltered > 50 {
		t.Errorf("quick depth must cap at 50 files, got %d", res.Stages.FilesFiltered)
	}
}

func TestAIRankingPrioritizesPatternHitsThenRisk(t *testing.T) {
	t.Parallel()

	pattern := &fakeScanner{findings: []collab.Finding{
		{File: "src/util.go", Line: 1, Title: "hit", Severity: collab.SeverityMedium, Confidence: collab.ConfidenceHigh},
	}}
	ai := &fakeScanner{}
	fetcher := &fakeFetcher{contents: map[string]string{
		"src/util.go":    "package util",
		"src/auth.go":    "package auth",
		"src/readme.go":  "package readme",
		"src/payment.go": "package payment",
	}}

	caps := Caps{QuickMaxAIFiles: 3}
	o := New(newStore(t), fetcher, pattern, ai, caps, slogutil.NewDiscardLogger())
	_, err := o.Scan(context.Background(), testScope,
		[]string{"src/readme.go", "src/auth.go", "src/util.go", "src/payment.go"},
		Options{AIEnabled: true})
	if err != nil {
		t.Fatal(err)
	}

	if len(ai.lastSeen) != 3 {
		t.Fatalf("AI file cap not applied: %v", ai.lastSeen)
	}
	if ai.lastSeen[0] != "src/util.go" {
		t.Errorf("pattern-hit file must rank first, got %v", ai.lastSeen)
	}
	for _, p := range ai.lastSeen[1:] {
		if p == "src/readme.go" {
			t.Errorf("low-risk file ranked above risky ones: %v", ai.lastSeen)
		}
	}
}

func TestScanResultCached(t *testing.T) {
	t.Parallel()

	pattern := &fakeScanner{findings: []collab.Finding{
		{File: "a.go", Line: 1, Title: "t", Severity: collab.SeverityHigh, Confidence: collab.ConfidenceHigh},
	}}
	fetcher := &fakeFetcher{contents: map[string]string{"a.go": "package a"}}
	store := newStore(t)

	o := New(store, fetcher, pattern, nil, Caps{}, slogutil.NewDiscardLogger())
	opts := Options{Depth: DepthQuick}

	first, err := o.Scan(context.Background(), testScope, []string{"a.go"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Stages.CacheHit {
		t.Error("first run must not be a cache hit")
	}

	second, err := o.Scan(context.Background(), testScope, []string{"a.go"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Stages.CacheHit {
		t.Error("second identical run must hit the cache")
	}
	if fetcher.calls != 1 || pattern.calls != 1 {
		t.Errorf("cache hit must skip every stage: fetch=%d pattern=%d", fetcher.calls, pattern.calls)
	}
	if len(second.Findings) != len(first.Findings) {
		t.Error("cached result differs from original")
	}

	// A different depth is a different fingerprint.
	_, err = o.Scan(context.Background(), testScope, []string{"a.go"}, Options{Depth: DepthDeep})
	if err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 2 {
		t.Error("different depth must not share the cache entry")
	}
}

func TestSeverityGroupingAndCounts(t *testing.T) {
	t.Parallel()

	pattern := &fakeScanner{findings: []collab.Finding{
		{File: "a.go", Line: 1, Title: "one", Severity: collab.SeverityHigh, Confidence: collab.ConfidenceHigh},
		{File: "a.go", Line: 2, Title: "two", Severity: collab.SeverityHigh, Confidence: collab.ConfidenceHigh},
		{File: "a.go", Line: 3, Title: "three", Severity: collab.SeverityLow, Confidence: collab.ConfidenceHigh},
	}}
	fetcher := &fakeFetcher{contents: map[string]string{"a.go": "package a\n1\n2\n3\n"}}

	o := New(newStore(t), fetcher, pattern, nil, Caps{}, slogutil.NewDiscardLogger())
	res, err := o.Scan(context.Background(), testScope, []string{"a.go"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Counts[collab.SeverityHigh] != 2 || res.Counts[collab.SeverityLow] != 1 {
		t.Errorf("unexpected counts: %v", res.Counts)
	}
	if len(res.BySeverity[collab.SeverityHigh]) != 2 {
		t.Errorf("unexpected grouping: %v", res.BySeverity)
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "askrepo-scan.yaml")
	content := []byte("exclude:\n  - \"*_test.go\"\nriskKeywords:\n  - ledger\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatal(err)
	}
	opts := p.Apply(Options{Include: []string{"src/*"}})
	if len(opts.Exclude) != 1 || opts.Exclude[0] != "*_test.go" {
		t.Errorf("policy exclude not applied: %v", opts.Exclude)
	}
	if len(opts.Include) != 1 {
		t.Errorf("explicit include lost: %v", opts.Include)
	}
	if len(opts.ExtraRiskKeywords) != 1 || opts.ExtraRiskKeywords[0] != "ledger" {
		t.Errorf("risk keywords not applied: %v", opts.ExtraRiskKeywords)
	}

	// Missing file is an empty policy, not an error.
	empty, err := LoadPolicy(filepath.Join(dir, "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Exclude) != 0 {
		t.Error("missing policy must be empty")
	}
}
