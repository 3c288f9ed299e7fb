// Package document holds the document model shared by the encoder, the
// resolution engine and the draft store.
package document

import "fmt"

// Document is the evolving body content of one note.com article: created
// once from author Markdown, encoded once, then mutated by resolution until
// final.
type Document struct {
	// ID is the local draft identifier.
	ID string
	// Key is the server-side document key, empty until persisted.
	Key string
	// Markdown is the raw author input.
	Markdown string
	// Encoded is the intermediate native markup before resolution.
	Encoded string
	// Final is the native markup after placeholder resolution.
	Final string
}

// Outcome is the terminal state of one placeholder resolution.
type Outcome string

const (
	// OutcomeResolved means the placeholder became a true native node.
	OutcomeResolved Outcome = "RESOLVED"
	// OutcomeLinkDegraded means an embed ended as a plain hyperlink. This
	// is a terminal success, not a failure.
	OutcomeLinkDegraded Outcome = "LINK_DEGRADED"
	// OutcomeFailed means the placeholder was converted to inert fallback
	// text.
	OutcomeFailed Outcome = "FAILED"
)

// PlaceholderResult records the terminal state of one placeholder.
type PlaceholderResult struct {
	Class   string
	Token   string
	Payload string
	Outcome Outcome
	Err     error
}

// Summary aggregates per-placeholder outcomes for one resolution run.
type Summary struct {
	Results []PlaceholderResult
}

// Add appends a result.
func (s *Summary) Add(r PlaceholderResult) {
	s.Results = append(s.Results, r)
}

func (s Summary) count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Resolved returns how many placeholders became true native nodes.
func (s Summary) Resolved() int { return s.count(OutcomeResolved) }

// LinkDegraded returns how many embeds ended as plain hyperlinks.
func (s Summary) LinkDegraded() int { return s.count(OutcomeLinkDegraded) }

// Failed returns how many placeholders fell back to inert text.
func (s Summary) Failed() int { return s.count(OutcomeFailed) }

// String renders a short human-readable summary line.
func (s Summary) String() string {
	return fmt.Sprintf("%d resolved, %d link-degraded, %d failed",
		s.Resolved(), s.LinkDegraded(), s.Failed())
}
