// Package event defines the comment-like items the pipeline consumes.
package event

import "strings"

// Event is one externally sourced item from the feed.
//
// Events are immutable once observed. The pipeline never mutates one; stages
// that need a different representation (normalized body, lower-cased id)
// derive it.
type Event struct {
	// ID is opaque and unique per item. Compare with NormalizeID.
	ID string `json:"id"`

	// Origin is the channel (subreddit, forum) the event was posted in.
	Origin string `json:"origin"`

	// Author is nil when the author was deleted or anonymized.
	Author *string `json:"author,omitempty"`

	// Body is the raw markup source of the comment.
	Body string `json:"body"`
}

// NormalizeID returns the canonical form of an identifier.
// Identifiers compare case-insensitively everywhere in the system.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Key returns the normalized identifier of the event.
func (e Event) Key() string {
	return NormalizeID(e.ID)
}

// AuthorName returns the author and whether one is present.
func (e Event) AuthorName() (string, bool) {
	if e.Author == nil {
		return "", false
	}
	return *e.Author, true
}

// Author is a helper for building events with a present author.
func Author(name string) *string {
	return &name
}

// MatchResult is the ordered list of terms the classifier matched for one
// event. Empty means no action.
type MatchResult []string

// Empty reports whether no term matched.
func (m MatchResult) Empty() bool {
	return len(m) == 0
}
