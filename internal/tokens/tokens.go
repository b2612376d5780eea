// Package tokens estimates token costs and assembles ordered content blocks
// under a fixed budget. Estimates are a cheap character heuristic; they only
// need to be stable and monotonic, not exact.
package tokens

import "strings"

// charsPerToken is the estimation ratio. Prose and code average roughly
// four characters per token.
const charsPerToken = 4

// truncationNotice is appended exactly once when assembly stops early.
const truncationNotice = "\n[Additional files omitted to stay within the context limit.]\n"

// Estimate returns the approximate token cost of text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// Item is one labeled content block, typically a file path and its content.
type Item struct {
	Label   string
	Content string
}

// Assembler builds a bounded context from ordered candidate blocks.
type Assembler struct {
	// Budget is the token ceiling for the assembled output.
	Budget int
}

// NewAssembler creates an assembler with the given token ceiling.
func NewAssembler(budget int) *Assembler {
	return &Assembler{Budget: budget}
}

// Assemble appends candidates in priority order until the next block would
// exceed the budget, then appends one truncation notice and stops. Items
// past the cutoff are dropped, never reordered. Empty items are skipped
// without consuming budget. Returns the assembled text and the labels of
// the included items.
func (a *Assembler) Assemble(items []Item) (string, []string) {
	var sb strings.Builder
	included := make([]string, 0, len(items))
	used := 0
	truncated := false

	for _, item := range items {
		if item.Content == "" {
			continue
		}
		block := formatBlock(item)
		cost := Estimate(block)
		if used+cost > a.Budget {
			truncated = true
			break
		}
		sb.WriteString(block)
		used += cost
		included = append(included, item.Label)
	}

	if truncated {
		sb.WriteString(truncationNotice)
	}

	return sb.String(), included
}

func formatBlock(item Item) string {
	return "### " + item.Label + "\n" + item.Content + "\n\n"
}
