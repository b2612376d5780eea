// Package selector resolves a query plus a candidate path list to a bounded
// set of relevant files. Resolution is a three-step fallback chain: a
// deterministic mention bypass, a cache probe, and an AI collaborator as
// last resort. The selector never fails a request: an unusable AI answer
// degrades to a small fixed default set.
package selector

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"sort"
	"strings"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
)

// Source records which step of the fallback chain produced a selection.
type Source string

const (
	SourceMention Source = "mention"
	SourceCache   Source = "cache"
	SourceAI      Source = "ai"
	SourceDefault Source = "default"
)

// Result is the outcome of one selection.
type Result struct {
	Files  []string
	Source Source
}

// Caps bounds the selector's work.
type Caps struct {
	// MaxMentionFiles caps the mention-bypass result (default 10).
	MaxMentionFiles int
	// MaxSelectedFiles caps the AI selection result (default 50).
	MaxSelectedFiles int
	// MaxCandidatesForAI caps the list sent to the AI collaborator (default 300).
	MaxCandidatesForAI int
	// PrefilterThreshold triggers the directory pre-filter (default 1000).
	PrefilterThreshold int
}

func (c Caps) withDefaults() Caps {
	if c.MaxMentionFiles <= 0 {
		c.MaxMentionFiles = 10
	}
	if c.MaxSelectedFiles <= 0 {
		c.MaxSelectedFiles = 50
	}
	if c.MaxCandidatesForAI <= 0 {
		c.MaxCandidatesForAI = 300
	}
	if c.PrefilterThreshold <= 0 {
		c.PrefilterThreshold = 1000
	}
	return c
}

// importantRootFiles are conventionally high-signal files added to a
// mention-bypass selection and used as the safe default set.
var importantRootFiles = []string{
	"README.md",
	"readme.md",
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	"tsconfig.json",
}

// Selector resolves file selections with caching.
type Selector struct {
	store  *cache.Store
	ai     collab.FileSelector
	caps   Caps
	logger *slog.Logger
}

// New creates a selector.
func New(store *cache.Store, ai collab.FileSelector, caps Caps, logger *slog.Logger) *Selector {
	return &Selector{
		store:  store,
		ai:     ai,
		caps:   caps.withDefaults(),
		logger: logger.With(slog.String("component", "selector")),
	}
}

// Select resolves query and candidates to a bounded path set. Candidates
// are assumed to be pre-pruned by the caller's deny-list.
func (s *Selector) Select(ctx context.Context, query string, candidates []string, scope cache.Scope) (*Result, error) {
	// 1. Mention bypass: zero latency, no cache, no AI.
	if files := s.mentionBypass(query, candidates); len(files) > 0 {
		s.logger.Debug("mention bypass hit", slog.Int("files", len(files)))
		return &Result{Files: files, Source: SourceMention}, nil
	}

	// 2. Cache probe.
	key := cache.Key(cache.NamespaceSelection, scope, cache.NormalizeQuery(query))
	if cached, ok := s.store.Get(ctx, key); ok {
		var files []string
		if err := json.Unmarshal([]byte(cached), &files); err == nil && len(files) > 0 {
			return &Result{Files: files, Source: SourceCache}, nil
		}
	}

	// 3. AI fallback, degrading to the default set on any failure.
	files, err := s.selectWithAI(ctx, query, candidates, scope)
	if err != nil || len(files) == 0 {
		if err != nil {
			s.logger.Warn("ai selection failed, using defaults", slog.Any("error", err))
		}
		return &Result{Files: s.defaultSet(candidates), Source: SourceDefault}, nil
	}

	if data, err := json.Marshal(files); err == nil {
		// Selection answers for a fixed query are stable, hence the long TTL.
		s.store.Set(ctx, key, string(data), cache.TTL(cache.NamespaceSelection))
	}
	return &Result{Files: files, Source: SourceAI}, nil
}

// mentionBypass returns candidates whose file name literally appears in the
// query, plus conventionally important root files, capped.
func (s *Selector) mentionBypass(query string, candidates []string) []string {
	q := strings.ToLower(query)

	var matched []string
	for _, c := range candidates {
		name := strings.ToLower(path.Base(c))
		if name != "" && strings.Contains(q, name) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matched))
	for _, m := range matched {
		seen[m] = true
	}
	for _, root := range importantRootFiles {
		for _, c := range candidates {
			if c == root && !seen[c] {
				matched = append(matched, c)
				seen[c] = true
			}
		}
	}

	if len(matched) > s.caps.MaxMentionFiles {
		matched = matched[:s.caps.MaxMentionFiles]
	}
	return matched
}

func (s *Selector) selectWithAI(ctx context.Context, query string, candidates []string, scope cache.Scope) ([]string, error) {
	working := candidates

	// Hierarchical pre-filter for very large repositories: ask for 5-10
	// relevant top-two-level directories, then restrict candidates to them.
	if len(working) > s.caps.PrefilterThreshold {
		filtered, err := s.prefilterByDirectory(ctx, query, working, scope)
		if err != nil {
			s.logger.Warn("directory pre-filter failed, using full list", slog.Any("error", err))
		} else if len(filtered) > 0 {
			working = filtered
		}
	}

	if len(working) > s.caps.MaxCandidatesForAI {
		working = working[:s.caps.MaxCandidatesForAI]
	}

	files, err := s.ai.SelectFiles(ctx, query, working, scope)
	if err != nil {
		return nil, err
	}

	// Keep only paths that actually exist in the candidate list; an AI
	// answer full of invented paths counts as unparseable.
	valid := intersect(files, candidates)
	if len(valid) > s.caps.MaxSelectedFiles {
		valid = valid[:s.caps.MaxSelectedFiles]
	}
	return valid, nil
}

// prefilterByDirectory groups candidates by their top two path segments and
// restricts the list to the directories the collaborator names. Root-level
// files are always retained.
func (s *Selector) prefilterByDirectory(ctx context.Context, query string, candidates []string, scope cache.Scope) ([]string, error) {
	dirSet := make(map[string]bool)
	for _, c := range candidates {
		if d := topTwoDirs(c); d != "" {
			dirSet[d] = true
		}
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	chosen, err := s.ai.SelectDirectories(ctx, query, dirs, scope)
	if err != nil {
		return nil, err
	}
	chosenSet := make(map[string]bool, len(chosen))
	for _, d := range chosen {
		chosenSet[strings.Trim(d, "/")] = true
	}

	var filtered []string
	for _, c := range candidates {
		d := topTwoDirs(c)
		if d == "" || chosenSet[d] {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// defaultSet returns the readme/manifest files present in candidates. Never
// empty unless the repository has none of them.
func (s *Selector) defaultSet(candidates []string) []string {
	var files []string
	for _, root := range importantRootFiles {
		for _, c := range candidates {
			if c == root {
				files = append(files, c)
			}
		}
	}
	return files
}

// topTwoDirs returns the first two directory segments of a path, or "" for
// root-level files.
func topTwoDirs(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) <= 1 {
		return ""
	}
	if len(parts) == 2 {
		return parts[0]
	}
	return parts[0] + "/" + parts[1]
}

func intersect(selected, candidates []string) []string {
	candidateSet := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		candidateSet[c] = true
	}
	var out []string
	seen := make(map[string]bool, len(selected))
	for _, f := range selected {
		f = strings.TrimSpace(f)
		if candidateSet[f] && !seen[f] {
			out = append(out, f)
			seen[f] = true
		}
	}
	return out
}
