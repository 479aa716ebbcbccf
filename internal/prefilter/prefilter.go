// Package prefilter performs the cheap eligibility check that decides whether
// an event is worth classifying at all.
//
// The filter is over-inclusive: it must never reject
// an event whose body contains a trigger term (unless one of the block rules
// applies), while false positives are resolved later by the classifier.
package prefilter

import (
	"strings"

	"github.com/roach88/replyguard/internal/denylist"
	"github.com/roach88/replyguard/internal/event"
)

// Reason explains a verdict.
type Reason string

const (
	ReasonBlockedOrigin  Reason = "blocked_origin"
	ReasonSelf           Reason = "self"
	ReasonBlockedAuthor  Reason = "blocked_author"
	ReasonAlreadyHandled Reason = "already_handled"
	ReasonNoTrigger      Reason = "no_trigger"
	ReasonEligible       Reason = "eligible"
)

// Verdict is the outcome of Check.
type Verdict struct {
	Reason Reason
	// Trigger is the first trigger term found, set only when eligible.
	Trigger string
}

// Eligible reports whether the event should proceed to classification.
func (v Verdict) Eligible() bool {
	return v.Reason == ReasonEligible
}

// Seen is the membership half of the dedup store.
type Seen interface {
	Contains(id string) bool
}

// Filter holds the read-only inputs of the eligibility check.
type Filter struct {
	sets  denylist.Sets
	terms []string
	self  string
	seen  Seen
}

// New builds a filter. self is the bot's own account name; events it
// authored are never eligible.
func New(sets denylist.Sets, self string, seen Seen) *Filter {
	return &Filter{
		sets:  sets,
		terms: sets.Terms.List(),
		self:  strings.ToLower(self),
		seen:  seen,
	}
}

// Check runs the rules in order, cheapest and most decisive first:
// origin, self, blocked author, already handled, trigger scan. An absent
// author is never rejected on that basis alone.
func (f *Filter) Check(ev event.Event) Verdict {
	if f.sets.Origins.Contains(ev.Origin) {
		return Verdict{Reason: ReasonBlockedOrigin}
	}

	if author, ok := ev.AuthorName(); ok {
		author = strings.ToLower(author)
		if f.self != "" && author == f.self {
			return Verdict{Reason: ReasonSelf}
		}
		if f.sets.Authors.Contains(author) {
			return Verdict{Reason: ReasonBlockedAuthor}
		}
	}

	if f.seen != nil && f.seen.Contains(ev.ID) {
		return Verdict{Reason: ReasonAlreadyHandled}
	}

	body := strings.ToLower(ev.Body)
	for _, term := range f.terms {
		if strings.Contains(body, term) {
			return Verdict{Reason: ReasonEligible, Trigger: term}
		}
	}
	return Verdict{Reason: ReasonNoTrigger}
}

// IsEligible is shorthand for Check(ev).Eligible().
func (f *Filter) IsEligible(ev event.Event) bool {
	return f.Check(ev).Eligible()
}

// Terms returns the trigger terms in file order.
func (f *Filter) Terms() []string {
	return append([]string(nil), f.terms...)
}
