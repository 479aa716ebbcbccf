package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Query filters ReadEntries. Zero fields match everything.
type Query struct {
	RunID   string
	EventID string
	Limit   int
}

// ReadRuns returns every run, oldest first.
func (j *Journal) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, started_at, dry_run, classifier
		FROM runs
		ORDER BY started_at ASC, run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r       Run
			started string
			dry     int
		)
		if err := rows.Scan(&r.ID, &started, &dry, &r.Classifier); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		r.DryRun = dry != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEntries returns outcomes ordered by run then sequence. Returns an
// empty slice (not nil) when nothing matches.
func (j *Journal) ReadEntries(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, q.RunID)
	}
	if q.EventID != "" {
		where = append(where, "event_id = ?")
		args = append(args, strings.ToLower(q.EventID))
	}

	query := `
		SELECT run_id, seq, event_id, origin, author, terms, result, path, error, recorded_at
		FROM outcomes`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY run_id COLLATE BINARY ASC, seq ASC"
	if q.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                     Entry
		author, errText       sql.NullString
		terms, path, recorded string
	)
	if err := rows.Scan(&e.RunID, &e.Seq, &e.EventID, &e.Origin, &author, &terms, &e.Result, &path, &errText, &recorded); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Author = author.String
	e.Error = errText.String
	if err := json.Unmarshal([]byte(terms), &e.Terms); err != nil {
		return Entry{}, fmt.Errorf("decode terms: %w", err)
	}
	if path != "" {
		e.Path = strings.Split(path, ">")
	}
	t, err := time.Parse(timeLayout, recorded)
	if err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	e.RecordedAt = t
	return e, nil
}
