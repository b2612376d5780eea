package pipeline

import (
	"errors"
	"strings"
)

// Result is the reduction of a successful event sequence.
type Result struct {
	Answer        string
	RelevantFiles []string
}

// Collect drives an event sequence to exhaustion and reduces it to one
// result. Content chunks are concatenated in order; the file list is taken
// from the terminal complete event. A received error event becomes a
// returned error. This is the sole place a pipeline failure turns back into
// conventional error semantics for non-streaming callers.
func Collect(ch <-chan StreamUpdate) (*Result, error) {
	var sb strings.Builder
	var files []string

	for update := range ch {
		switch update.Type {
		case UpdateContent:
			sb.WriteString(update.Text)
		case UpdateComplete:
			files = update.RelevantFiles
		case UpdateError:
			return nil, errors.New(update.Message)
		}
	}

	return &Result{Answer: sb.String(), RelevantFiles: files}, nil
}
