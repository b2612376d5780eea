// Package scan orchestrates the hybrid security scan: deterministic pattern
// matching over every eligible file, plus an optional AI re-scan of the
// riskiest subset. It reuses the shared cache store so a repeated scan with
// the same configuration is a single cache read.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
)

// Result is the full outcome of one scan run, cached as a single unit.
type Result struct {
	Findings   []collab.Finding                     `json:"findings"`
	BySeverity map[collab.Severity][]collab.Finding `json:"bySeverity"`
	Counts     map[collab.Severity]int              `json:"counts"`
	Stages     Diagnostics                          `json:"stages"`
}

// Diagnostics records per-stage progress for one run.
type Diagnostics struct {
	RunID           string `json:"runId"`
	FilesConsidered int    `json:"filesConsidered"`
	FilesFiltered   int    `json:"filesFiltered"`
	FilesFetched    int    `json:"filesFetched"`
	PatternFindings int    `json:"patternFindings"`
	AIFilesScanned  int    `json:"aiFilesScanned"`
	AIFindings      int    `json:"aiFindings"`
	Deduplicated    int    `json:"deduplicated"`
	DroppedLowConf  int    `json:"droppedLowConfidence"`
	CacheHit        bool   `json:"cacheHit"`
	DurationMs      int64  `json:"durationMs"`
}

// Orchestrator runs the staged scan.
type Orchestrator struct {
	store   *cache.Store
	fetcher collab.ContentFetcher
	pattern collab.PatternScanner
	ai      collab.AIScanner
	caps    Caps
	logger  *slog.Logger
}

// New creates a scan orchestrator. The AI scanner may be nil when model
// assistance is not configured; AIEnabled runs are then pattern-only.
func New(store *cache.Store, fetcher collab.ContentFetcher, pattern collab.PatternScanner, ai collab.AIScanner, caps Caps, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		fetcher: fetcher,
		pattern: pattern,
		ai:      ai,
		caps:    caps,
		logger:  logger.With(slog.String("component", "scan")),
	}
}

// Scan runs the five stages over the repository's candidate paths. A cache
// hit for the same (scope, depth, aiEnabled, file list) skips every stage.
func (o *Orchestrator) Scan(ctx context.Context, scope cache.Scope, candidates []string, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Depth == "" {
		opts.Depth = DepthQuick
	}
	maxFiles, maxAIFiles := o.caps.limits(opts.Depth)

	// Stage 1 — filter.
	filtered := o.filter(candidates, opts, maxFiles)

	key := o.cacheKey(scope, opts, filtered)
	if raw, ok := o.store.Get(ctx, key); ok {
		var cached Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			cached.Stages.CacheHit = true
			o.logger.Debug("scan cache hit", slog.String("key", key))
			return &cached, nil
		}
	}

	diag := Diagnostics{
		RunID:           uuid.NewString(),
		FilesConsidered: len(candidates),
		FilesFiltered:   len(filtered),
	}

	// Stage 2 — fetch; unresolvable or empty files are silently dropped.
	fetched, err := o.fetcher.FetchContents(ctx, scope, filtered)
	if err != nil {
		return nil, fmt.Errorf("scan fetch failed: %w", err)
	}
	files := make([]collab.FileContent, 0, len(fetched))
	for _, fc := range fetched {
		if fc.Found && fc.Content != "" {
			files = append(files, fc)
		}
	}
	diag.FilesFetched = len(files)

	// Stage 3 — pattern scan, always.
	patternFindings, err := o.pattern.Scan(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("pattern scan failed: %w", err)
	}
	diag.PatternFindings = len(patternFindings)

	// Stage 4 — optional AI re-scan of the riskiest subset.
	var aiFindings []collab.Finding
	if opts.AIEnabled && o.ai != nil {
		targets := o.rankForAI(files, patternFindings, opts.ExtraRiskKeywords, maxAIFiles)
		diag.AIFilesScanned = len(targets)
		aiFindings, err = o.ai.Scan(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("ai scan failed: %w", err)
		}
		diag.AIFindings = len(aiFindings)
	}

	// Stage 5 — reconcile.
	merged := o.reconcile(patternFindings, aiFindings, files, &diag)

	result := &Result{
		Findings:   merged,
		BySeverity: groupBySeverity(merged),
		Counts:     countBySeverity(merged),
	}
	diag.DurationMs = time.Since(start).Milliseconds()
	result.Stages = diag

	if data, err := json.Marshal(result); err == nil {
		o.store.Set(ctx, key, string(data), cache.TTL(cache.NamespaceScan))
	}

	o.logger.Info("scan complete",
		slog.String("run", diag.RunID),
		slog.Int("findings", len(merged)),
		slog.Int("files", diag.FilesFetched))
	return result, nil
}

// cacheKey fingerprints the scan configuration: depth, AI flag, and a hash
// of the sorted file list.
func (o *Orchestrator) cacheKey(scope cache.Scope, opts Options, files []string) string {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	disc := string(opts.Depth) + ":" + strconv.FormatBool(opts.AIEnabled) + ":" + hex.EncodeToString(h[:8])
	return cache.Key(cache.NamespaceScan, scope, disc)
}

// filter applies the allow-set, source-extension check, include patterns,
// and exclude patterns, then caps the result.
func (o *Orchestrator) filter(candidates []string, opts Options, maxFiles int) []string {
	allowSet := make(map[string]bool, len(opts.Paths))
	for _, p := range opts.Paths {
		allowSet[p] = true
	}
	include := compilePatterns(opts.Include)
	exclude := compilePatterns(opts.Exclude)

	var out []string
	for _, c := range candidates {
		if len(allowSet) > 0 && !allowSet[c] {
			continue
		}
		if !scannable(c) {
			continue
		}
		if len(include) > 0 && !matchesAny(include, c) {
			continue
		}
		if matchesAny(exclude, c) {
			continue
		}
		out = append(out, c)
		if len(out) >= maxFiles {
			break
		}
	}
	return out
}

func scannable(p string) bool {
	if manifestFiles[path.Base(p)] {
		return true
	}
	return sourceExtensions[strings.ToLower(path.Ext(p))]
}

func matchesAny(patterns []*regexp.Regexp, p string) bool {
	for _, re := range patterns {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// rankForAI orders files for the AI scanner: files with a pattern hit
// first, then the rest by descending risk score, capped.
func (o *Orchestrator) rankForAI(files []collab.FileContent, patternFindings []collab.Finding, extraKeywords []string, limit int) []collab.FileContent {
	hit := make(map[string]bool)
	for _, f := range patternFindings {
		hit[f.File] = true
	}

	var flagged, rest []collab.FileContent
	for _, fc := range files {
		if hit[fc.Path] {
			flagged = append(flagged, fc)
		} else {
			rest = append(rest, fc)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return riskScore(rest[i].Path, extraKeywords) > riskScore(rest[j].Path, extraKeywords)
	})

	ranked := append(flagged, rest...)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// reconcile merges pattern and AI findings: dedupe by (file, line-or-zero,
// title), drop low-confidence findings, and attach a source snippet.
func (o *Orchestrator) reconcile(patternFindings, aiFindings []collab.Finding, files []collab.FileContent, diag *Diagnostics) []collab.Finding {
	contents := make(map[string]string, len(files))
	for _, fc := range files {
		contents[fc.Path] = fc.Content
	}

	seen := make(map[string]bool)
	var merged []collab.Finding
	// Pattern findings run first so deterministic results win duplicates.
	for _, f := range append(patternFindings, aiFindings...) {
		if f.Confidence == collab.ConfidenceLow {
			diag.DroppedLowConf++
			continue
		}
		id := f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Title
		if seen[id] {
			diag.Deduplicated++
			continue
		}
		seen[id] = true
		if f.Snippet == "" && f.Line > 0 {
			f.Snippet = snippet(contents[f.File], f.Line)
		}
		merged = append(merged, f)
	}
	return merged
}

// snippet extracts ±3 lines around a 1-indexed line, formatted "N| text".
func snippet(content string, line int) string {
	if content == "" || line <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if line > len(lines) {
		return ""
	}
	startIdx := line - 1 - 3
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := line - 1 + 3
	if endIdx > len(lines)-1 {
		endIdx = len(lines) - 1
	}

	var sb strings.Builder
	for i := startIdx; i <= endIdx; i++ {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("| ")
		sb.WriteString(lines[i])
		if i < endIdx {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func groupBySeverity(findings []collab.Finding) map[collab.Severity][]collab.Finding {
	grouped := make(map[collab.Severity][]collab.Finding)
	for _, f := range findings {
		grouped[f.Severity] = append(grouped[f.Severity], f)
	}
	return grouped
}

func countBySeverity(findings []collab.Finding) map[collab.Severity]int {
	counts := make(map[collab.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
