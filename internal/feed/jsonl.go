package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roach88/replyguard/internal/event"
)

// DefaultPollInterval is how long JSONL waits at end of file before reading
// again.
const DefaultPollInterval = 500 * time.Millisecond

// JSONL tails a file of newline-delimited JSON events:
//
//	{"id":"c1","origin":"news","author":"alice","body":"..."}
//
// A null or missing author means the author was deleted. Reaching end of file
// waits for the file to grow. A partially written final line is held until
// its newline arrives.
type JSONL struct {
	f       *os.File
	r       *bufio.Reader
	poll    time.Duration
	partial []byte
	line    int
}

// OpenJSONL opens path for tailing. A poll interval of zero uses
// DefaultPollInterval.
func OpenJSONL(path string, poll time.Duration) (*JSONL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &JSONL{
		f:    f,
		r:    bufio.NewReader(f),
		poll: poll,
	}, nil
}

// Next returns the next event in the file. A malformed line is reported as an
// error and skipped; the following call continues with the next line.
func (j *JSONL) Next(ctx context.Context) (event.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return event.Event{}, err
		}

		chunk, err := j.r.ReadBytes('\n')
		j.partial = append(j.partial, chunk...)
		if errors.Is(err, io.EOF) {
			select {
			case <-ctx.Done():
				return event.Event{}, ctx.Err()
			case <-time.After(j.poll):
			}
			continue
		}
		if err != nil {
			return event.Event{}, fmt.Errorf("read feed: %w", err)
		}

		raw := bytes.TrimSpace(j.partial)
		j.partial = j.partial[:0]
		j.line++
		if len(raw) == 0 {
			continue
		}

		var ev event.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return event.Event{}, fmt.Errorf("feed line %d: %w", j.line, err)
		}
		if ev.ID == "" {
			return event.Event{}, fmt.Errorf("feed line %d: missing id", j.line)
		}
		return ev, nil
	}
}

// Close releases the file.
func (j *JSONL) Close() error {
	return j.f.Close()
}
