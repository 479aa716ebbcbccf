package harness

// TraceEvent is one consumed event as the pipeline saw it.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	EventID string   `json:"event_id"`
	Verdict string   `json:"verdict"`
	Trigger string   `json:"trigger,omitempty"`
	Terms   []string `json:"terms,omitempty"`
	Result  string   `json:"result,omitempty"`
	Path    []string `json:"path,omitempty"`
}

// Reply is a reply the fake replier accepted.
type Reply struct {
	EventID string `json:"event_id"`
	Message string `json:"message"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Replies lists accepted replies in order.
	Replies []Reply `json:"replies"`

	// Attempts counts every PostReply call, accepted or not.
	Attempts int `json:"attempts"`

	// DedupLog is the durable log content after the run.
	DedupLog string `json:"dedup_log"`

	ClassifierCalls int64 `json:"classifier_calls"`

	// Journaled is the number of journal rows written.
	Journaled int `json:"journaled"`

	// DryRunOutput holds the dry-run reports.
	DryRunOutput string `json:"dry_run_output,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Replies: []Reply{},
	}
}

// AddError records a failed assertion.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
