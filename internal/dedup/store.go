package dedup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/roach88/replyguard/internal/event"
)

// LogFile is the subset of *os.File the store writes through.
type LogFile interface {
	io.StringWriter
	Sync() error
	Close() error
}

// Opener opens the durable log for appending.
type Opener func(path string) (LogFile, error)

func openAppend(path string) (LogFile, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// Store is the durable + in-memory record of handled event identifiers.
//
// Contains and Append are called from the pipeline goroutine only; the mutex
// exists so that metrics scrapes can read Pending and Len concurrently.
type Store struct {
	mu      sync.Mutex
	path    string
	seen    map[string]struct{}
	pending []string
	loaded  int

	open Opener
	file LogFile
	sync bool
}

// Option configures a Store.
type Option func(*Store)

// WithOpener replaces the function used to open the log for appending.
// Tests use it to inject write failures.
func WithOpener(o Opener) Option {
	return func(s *Store) {
		s.open = o
	}
}

// WithoutSync disables fsync after each record.
func WithoutSync() Option {
	return func(s *Store) {
		s.sync = false
	}
}

// New returns an empty store that appends to path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		seen: make(map[string]struct{}),
		open: openAppend,
		sync: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads every identifier already recorded at path.
//
// A missing or unreadable log is reported as an error; callers that decide to
// continue anyway should fall back to New(path).
func Open(path string, opts ...Option) (*Store, error) {
	s := New(path, opts...)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dedup log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		id := event.NormalizeID(sc.Text())
		if id == "" {
			continue
		}
		s.seen[id] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dedup log: %w", err)
	}
	s.loaded = len(s.seen)

	return s, nil
}

// Path returns the durable log location.
func (s *Store) Path() string {
	return s.path
}

// Contains reports whether id has been handled, ignoring case.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[event.NormalizeID(id)]
	return ok
}

// Len returns the number of known identifiers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Loaded returns how many identifiers Open read from the durable log.
func (s *Store) Loaded() int {
	return s.loaded
}

// Pending returns how many identifiers are known in memory but not yet
// durable.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Append records id. It is visible to Contains immediately, even if the
// durable write fails; in that case the id is queued for Flush and the write
// error is returned.
func (s *Store) Append(id string) error {
	key := event.NormalizeID(id)
	if key == "" {
		return errors.New("append: empty identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[key] = struct{}{}
	if err := s.writeLocked(key); err != nil {
		s.pending = append(s.pending, key)
		return fmt.Errorf("append %s: %w", key, err)
	}
	return nil
}

// Flush retries every pending identifier. Identifiers that still fail stay
// pending and the combined error is returned.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	var (
		failed []string
		errs   []error
	)
	for _, key := range s.pending {
		if err := s.writeLocked(key); err != nil {
			failed = append(failed, key)
			errs = append(errs, fmt.Errorf("flush %s: %w", key, err))
		}
	}
	s.pending = failed
	return errors.Join(errs...)
}

// Close flushes pending identifiers and closes the log.
func (s *Store) Close() error {
	flushErr := s.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	var closeErr error
	if s.file != nil {
		closeErr = s.file.Close()
		s.file = nil
	}
	return errors.Join(flushErr, closeErr)
}

// writeLocked appends one record. The log is reopened after any failure so a
// transient error (full disk, rotated file) does not poison later writes.
func (s *Store) writeLocked(key string) error {
	if s.file == nil {
		f, err := s.open(s.path)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.path, err)
		}
		s.file = f
	}

	if _, err := s.file.WriteString("\n" + key); err != nil {
		s.resetLocked()
		return fmt.Errorf("write: %w", err)
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			s.resetLocked()
			return fmt.Errorf("sync: %w", err)
		}
	}
	return nil
}

func (s *Store) resetLocked() {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
}
