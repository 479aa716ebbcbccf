package action

// State is a step of the transaction state machine.
type State int32

const (
	Idle State = iota
	Acting
	Recording
	Failed
	RecordFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acting:
		return "acting"
	case Recording:
		return "recording"
	case Failed:
		return "failed"
	case RecordFailed:
		return "record_failed"
	default:
		return "unknown"
	}
}

// Result summarizes how an action ended.
type Result string

const (
	ResultRecorded     Result = "recorded"
	ResultRejected     Result = "rejected"
	ResultRecordFailed Result = "record_failed"
	ResultDryRun       Result = "dry_run"
)

// Outcome is what Perform reports back to the pipeline.
type Outcome struct {
	EventID string
	Result  Result
	// Path lists every state entered, ending in Idle.
	Path []State
	// Err is the reply error (rejected) or the append error (record_failed).
	Err error
}

// Replied reports whether the external reply was accepted.
func (o Outcome) Replied() bool {
	return o.Result == ResultRecorded || o.Result == ResultRecordFailed
}
