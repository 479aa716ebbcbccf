// Package denylist loads the line-oriented blocklists the prefilter consumes.
//
// Three categories exist: blocked origin channels, blocked authors, and
// trigger terms. Each is loaded once at startup and is read-only for the rest
// of the run. A missing or unreadable source degrades to an empty set with a
// Warning; deciding whether to continue is the caller's job.
package denylist

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Category names a denylist source.
type Category string

const (
	CategoryOrigins Category = "origins"
	CategoryAuthors Category = "authors"
	CategoryTerms   Category = "terms"
)

// Set is a lower-cased string set. The zero value is an empty set.
//
// Insertion order is retained so that term scans are deterministic.
type Set struct {
	items map[string]struct{}
	order []string
}

// NewSet builds a set from entries, lower-casing them and skipping blanks.
func NewSet(entries ...string) Set {
	s := Set{items: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		s.add(e)
	}
	return s
}

func (s *Set) add(entry string) {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return
	}
	if _, ok := s.items[entry]; ok {
		return
	}
	s.items[entry] = struct{}{}
	s.order = append(s.order, entry)
}

// Contains reports membership, ignoring case.
func (s Set) Contains(v string) bool {
	if len(s.items) == 0 {
		return false
	}
	_, ok := s.items[strings.ToLower(v)]
	return ok
}

// Len returns the number of distinct entries.
func (s Set) Len() int {
	return len(s.order)
}

// List returns the entries in first-seen order. The slice is a copy.
func (s Set) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Parse reads one entry per line. Blank lines are ignored and CRLF line
// endings are tolerated.
func Parse(data []byte) Set {
	s := Set{items: make(map[string]struct{})}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s.add(sc.Text())
	}
	return s
}

// Load reads a set from a file.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("load denylist %s: %w", path, err)
	}
	return Parse(data), nil
}

// Sets bundles the three categories consumed by the prefilter.
type Sets struct {
	Origins Set
	Authors Set
	Terms   Set
}

// Paths locates the backing files for each category.
type Paths struct {
	Origins string
	Authors string
	Terms   string
}

// Warning describes a category that could not be loaded and what running
// without it means.
type Warning struct {
	Category Category
	Path     string
	Err      error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s denylist unavailable (%s): %v", w.Category, w.Path, w.Err)
}

// Consequence is the operator-facing explanation shown before asking whether
// to continue.
func (w Warning) Consequence() string {
	switch w.Category {
	case CategoryOrigins:
		return "replies may be posted in channels that should be blocked"
	case CategoryAuthors:
		return "replies may be posted to authors that should be blocked"
	case CategoryTerms:
		return "no trigger terms are known, so the bot will probably never act"
	default:
		return "the bot may misbehave"
	}
}

// LoadAll loads every category. A failed category yields an empty set and a
// Warning; LoadAll itself never fails.
func LoadAll(p Paths) (Sets, []Warning) {
	var (
		sets     Sets
		warnings []Warning
	)
	load := func(cat Category, path string, dst *Set) {
		if path == "" {
			warnings = append(warnings, Warning{Category: cat, Path: path, Err: fmt.Errorf("no path configured")})
			*dst = NewSet()
			return
		}
		s, err := Load(path)
		if err != nil {
			warnings = append(warnings, Warning{Category: cat, Path: path, Err: err})
			*dst = NewSet()
			return
		}
		*dst = s
	}
	load(CategoryOrigins, p.Origins, &sets.Origins)
	load(CategoryAuthors, p.Authors, &sets.Authors)
	load(CategoryTerms, p.Terms, &sets.Terms)
	return sets, warnings
}
