// Package pipeline drives a query from file selection through context
// assembly to a streamed answer, emitting a uniform sequence of typed
// events. The run is modeled as a lazy finite sequence: a goroutine writes
// to a bounded channel and every send honors consumer cancellation, so an
// abandoned consumer stops the run. That is the entire cancellation
// mechanism.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
	"askrepo/internal/selector"
	"askrepo/internal/tokens"
)

// Request describes one pipeline run.
type Request struct {
	Query      string
	Scope      cache.Scope
	Candidates []string
	History    []collab.Turn
}

// cachedAnswer is the stored form of a completed run.
type cachedAnswer struct {
	Answer string   `json:"answer"`
	Files  []string `json:"files"`
}

// Pipeline orchestrates selection, fetching, assembly, and streaming.
type Pipeline struct {
	store     *cache.Store
	selector  *selector.Selector
	fetcher   collab.ContentFetcher
	streamer  collab.AnswerStreamer
	assembler *tokens.Assembler
	logger    *slog.Logger
}

// New creates a pipeline over the given collaborators.
func New(store *cache.Store, sel *selector.Selector, fetcher collab.ContentFetcher, streamer collab.AnswerStreamer, assembler *tokens.Assembler, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		selector:  sel,
		fetcher:   fetcher,
		streamer:  streamer,
		assembler: assembler,
		logger:    logger.With(slog.String("component", "pipeline")),
	}
}

// Run starts a pipeline run and returns its event channel. The channel is
// closed after the terminal event. If the consumer stops reading and
// cancels ctx, no further work past the last-yielded event is started.
func (p *Pipeline) Run(ctx context.Context, req Request) <-chan StreamUpdate {
	ch := make(chan StreamUpdate, 16)
	go p.run(ctx, req, ch)
	return ch
}

func (p *Pipeline) run(ctx context.Context, req Request, ch chan<- StreamUpdate) {
	defer close(ch)

	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run", runID))

	// The pipeline boundary: collaborator panics become one error event.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic", slog.Any("panic", r))
			p.emit(ctx, ch, errorUpdate(fmt.Sprintf("internal error: %v", r)))
		}
	}()

	if !p.emit(ctx, ch, statusUpdate("Starting", 0)) {
		return
	}

	// Whole-answer cache: a hit replays the run as a short event sequence.
	answerKey := cache.Key(cache.NamespaceAnswer, req.Scope, cache.NormalizeQuery(req.Query))
	if raw, ok := p.store.Get(ctx, answerKey); ok {
		var cached cachedAnswer
		if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.Answer != "" {
			logger.Debug("answer cache hit")
			if !p.emit(ctx, ch, filesUpdate(cached.Files)) {
				return
			}
			if !p.emit(ctx, ch, contentUpdate(cached.Answer)) {
				return
			}
			p.emit(ctx, ch, completeUpdate(cached.Files))
			return
		}
	}

	// SELECT_FILES
	if !p.emit(ctx, ch, statusUpdate("Selecting relevant files", 0.1)) {
		return
	}
	candidates := PruneCandidates(req.Candidates)
	sel, err := p.selector.Select(ctx, req.Query, candidates, req.Scope)
	if err != nil {
		p.emit(ctx, ch, errorUpdate(fmt.Sprintf("file selection failed: %v", err)))
		return
	}
	logger.Debug("files selected", slog.Int("count", len(sel.Files)), slog.String("source", string(sel.Source)))
	if !p.emit(ctx, ch, filesUpdate(sel.Files)) {
		return
	}

	// FETCH_CONTENT
	if !p.emit(ctx, ch, statusUpdate("Fetching file contents", 0.4)) {
		return
	}
	fetched, err := p.fetcher.FetchContents(ctx, req.Scope, sel.Files)
	if err != nil {
		p.emit(ctx, ch, errorUpdate(fmt.Sprintf("content fetch failed: %v", err)))
		return
	}
	items := make([]tokens.Item, 0, len(fetched))
	for _, fc := range fetched {
		if !fc.Found || fc.Content == "" {
			// Missing content is skipped, never aborts the batch.
			continue
		}
		items = append(items, tokens.Item{Label: fc.Path, Content: fc.Content})
	}
	contextText, includedFiles := p.assembler.Assemble(items)

	// GENERATE_ANSWER
	if !p.emit(ctx, ch, statusUpdate("Generating answer", 0.6)) {
		return
	}
	chunks, err := p.streamer.StreamAnswer(ctx, req.Query, contextText, req.Scope, req.History)
	if err != nil {
		p.emit(ctx, ch, errorUpdate(fmt.Sprintf("answer generation failed: %v", err)))
		return
	}

	var answer []byte
	for chunk := range chunks {
		answer = append(answer, chunk...)
		if !p.emit(ctx, ch, contentUpdate(chunk)) {
			return
		}
	}

	if data, err := json.Marshal(cachedAnswer{Answer: string(answer), Files: sel.Files}); err == nil {
		p.store.Set(ctx, answerKey, string(data), cache.TTL(cache.NamespaceAnswer))
	}

	logger.Debug("run complete", slog.Int("contextFiles", len(includedFiles)), slog.Int("answerBytes", len(answer)))
	p.emit(ctx, ch, completeUpdate(sel.Files))
}

// emit sends one update unless the consumer has gone away. Returns false
// when the run should stop.
func (p *Pipeline) emit(ctx context.Context, ch chan<- StreamUpdate, update StreamUpdate) bool {
	select {
	case ch <- update:
		return true
	case <-ctx.Done():
		return false
	}
}
