// Package classify decides which trigger terms a normalized comment actually
// uses.
//
// The prefilter only establishes that a term might be present. A Classifier
// makes the precise call. Implementations must be pure: case-insensitive,
// deterministic, and free of network or global state.
package classify

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Classifier returns the matched terms for normalized text.
type Classifier interface {
	Classify(text string, terms []string) []string
}

// Names of the built-in classifiers.
const (
	NameStub = "stub"
	NameWord = "word"
)

// New returns the named built-in classifier.
func New(name string) (Classifier, error) {
	switch name {
	case "", NameStub:
		return Stub{}, nil
	case NameWord:
		return Word{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q (want %s or %s)", name, NameStub, NameWord)
	}
}

// Stub never matches. It is the extension point left in place until a real
// detection strategy is chosen; with it the bot only ever logs candidates.
type Stub struct{}

func (Stub) Classify(string, []string) []string {
	return nil
}

// Word matches terms that appear as whole words under Unicode case folding.
//
// A match must not be bordered by a letter or digit on either side, so a term
// embedded in a longer innocuous word is not reported. Each term is reported
// at most once. Results are ordered by first occurrence in the text, ties
// broken by the order of terms.
type Word struct{}

type hit struct {
	pos  int
	rank int
	term string
}

func (Word) Classify(text string, terms []string) []string {
	if text == "" || len(terms) == 0 {
		return nil
	}

	folder := cases.Fold()
	folded := folder.String(text)

	seen := make(map[string]bool, len(terms))
	var hits []hit
	for rank, term := range terms {
		ft := folder.String(strings.TrimSpace(term))
		if ft == "" || seen[ft] {
			continue
		}
		seen[ft] = true

		if pos := firstWordIndex(folded, ft); pos >= 0 {
			hits = append(hits, hit{pos: pos, rank: rank, term: term})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].rank < hits[j].rank
	})

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.term)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstWordIndex returns the byte offset of the first occurrence of needle in
// haystack that sits on word boundaries, or -1.
func firstWordIndex(haystack, needle string) int {
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return start
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Counting wraps a Classifier and counts calls.
type Counting struct {
	Inner Classifier
	calls atomic.Int64
}

// Classify delegates to Inner.
func (c *Counting) Classify(text string, terms []string) []string {
	c.calls.Add(1)
	return c.Inner.Classify(text, terms)
}

// Calls returns how many times Classify ran.
func (c *Counting) Calls() int64 {
	return c.calls.Load()
}
