package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
)

// The offline collaborators let the CLI exercise the full pipeline against
// a local checkout without a model provider configured. They are simple
// lexical heuristics standing in behind the same interfaces a real
// provider implements.

// offlineSelector ranks candidates by query-keyword occurrences in the path.
type offlineSelector struct {
	maxFiles int
}

func (s *offlineSelector) SelectFiles(ctx context.Context, query string, candidates []string, scope cache.Scope) ([]string, error) {
	words := strings.Fields(strings.ToLower(query))

	type scored struct {
		path  string
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		lc := strings.ToLower(c)
		score := 0
		for _, w := range words {
			if len(w) >= 3 && strings.Contains(lc, w) {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{path: c, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	limit := s.maxFiles
	if limit <= 0 {
		limit = 10
	}
	out := make([]string, 0, limit)
	for _, r := range ranked {
		out = append(out, r.path)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *offlineSelector) SelectDirectories(ctx context.Context, query string, dirs []string, scope cache.Scope) ([]string, error) {
	words := strings.Fields(strings.ToLower(query))
	var out []string
	for _, d := range dirs {
		ld := strings.ToLower(d)
		for _, w := range words {
			if len(w) >= 3 && strings.Contains(ld, w) {
				out = append(out, d)
				break
			}
		}
		if len(out) >= 10 {
			break
		}
	}
	return out, nil
}

// offlineStreamer emits a context summary instead of a model answer.
type offlineStreamer struct{}

func (s *offlineStreamer) StreamAnswer(ctx context.Context, query, contextText string, scope cache.Scope, history []collab.Turn) (<-chan string, error) {
	ch := make(chan string, 4)
	go func() {
		defer close(ch)
		chunks := []string{
			fmt.Sprintf("No model provider is configured; showing the assembled context for %s/%s.\n\n", scope.Owner, scope.Repo),
			fmt.Sprintf("Query: %s\n\n", query),
			contextText,
		}
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
