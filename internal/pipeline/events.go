package pipeline

// UpdateType discriminates stream updates.
type UpdateType string

const (
	// UpdateStatus reports a state transition before its work begins.
	UpdateStatus UpdateType = "status"
	// UpdateFiles carries the selected file set. Emitted at most once.
	UpdateFiles UpdateType = "files"
	// UpdateContent appends a chunk of answer text. Ordered, append-only.
	UpdateContent UpdateType = "content"
	// UpdateComplete terminates a successful run. Exactly one of
	// complete/error ends the sequence; nothing follows it.
	UpdateComplete UpdateType = "complete"
	// UpdateError terminates a failed run.
	UpdateError UpdateType = "error"
)

// StreamUpdate is the uniform event emitted by a pipeline run.
type StreamUpdate struct {
	Type UpdateType `json:"type"`

	// status
	Message  string  `json:"message,omitempty"`
	Progress float64 `json:"progress,omitempty"`

	// files
	Files []string `json:"files,omitempty"`

	// content
	Text   string `json:"text,omitempty"`
	Append bool   `json:"append,omitempty"`

	// complete
	RelevantFiles []string `json:"relevantFiles,omitempty"`
}

func statusUpdate(message string, progress float64) StreamUpdate {
	return StreamUpdate{Type: UpdateStatus, Message: message, Progress: progress}
}

func filesUpdate(files []string) StreamUpdate {
	return StreamUpdate{Type: UpdateFiles, Files: files}
}

func contentUpdate(text string) StreamUpdate {
	return StreamUpdate{Type: UpdateContent, Text: text, Append: true}
}

func completeUpdate(files []string) StreamUpdate {
	return StreamUpdate{Type: UpdateComplete, RelevantFiles: files}
}

func errorUpdate(message string) StreamUpdate {
	return StreamUpdate{Type: UpdateError, Message: message}
}
