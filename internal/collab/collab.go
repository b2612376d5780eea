// Package collab defines the narrow typed contracts for the external
// collaborators the pipeline depends on: file selection, content fetching,
// answer streaming, and the two vulnerability scanners. The core never
// implements these itself; it prepares their inputs and merges their
// outputs.
package collab

import (
	"context"

	"askrepo/internal/cache"
)

// FileContent is one fetched file. Found is false when the path could not
// be resolved; callers skip such entries rather than failing the batch.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Found   bool   `json:"found"`
}

// Turn is one prior exchange in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FileSelector picks relevant paths for a query.
type FileSelector interface {
	// SelectFiles returns a minimum sufficient subset of candidates.
	SelectFiles(ctx context.Context, query string, candidates []string, scope cache.Scope) ([]string, error)
	// SelectDirectories names the most relevant directories from a
	// pre-grouped list. Used to pre-filter very large repositories.
	SelectDirectories(ctx context.Context, query string, dirs []string, scope cache.Scope) ([]string, error)
}

// ContentFetcher batch-fetches file contents for a scope.
type ContentFetcher interface {
	FetchContents(ctx context.Context, scope cache.Scope, paths []string) ([]FileContent, error)
}

// AnswerStreamer produces an answer as a lazy finite sequence of text
// chunks. The returned channel is closed when the answer is complete.
type AnswerStreamer interface {
	StreamAnswer(ctx context.Context, query, contextText string, scope cache.Scope, history []Turn) (<-chan string, error)
}

// Severity classifies the risk of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Confidence qualifies how certain a scanner is about a finding.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Finding is a single reported vulnerability. Findings are identified by
// (File, Line-or-zero, Title) when merged across scanners.
type Finding struct {
	File       string     `json:"file"`
	Line       int        `json:"line,omitempty"`
	Title      string     `json:"title"`
	Severity   Severity   `json:"severity"`
	Confidence Confidence `json:"confidence"`
	Detail     string     `json:"detail,omitempty"`
	Snippet    string     `json:"snippet,omitempty"`
	Source     string     `json:"source,omitempty"` // "pattern" or "ai"
}

// PatternScanner runs deterministic rule-based detection over file contents.
type PatternScanner interface {
	Scan(ctx context.Context, files []FileContent) ([]Finding, error)
}

// AIScanner runs model-assisted detection over a prioritized file subset.
type AIScanner interface {
	Scan(ctx context.Context, files []FileContent) ([]Finding, error)
}
