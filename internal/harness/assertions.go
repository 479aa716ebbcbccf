package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/replyguard/internal/event"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, te := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", te.Seq, te.EventID, te.Verdict)
		if te.Result != "" {
			fmt.Fprintf(&buf, " -> %s", te.Result)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failures in
// declaration order.
func EvaluateAssertions(r *Result, assertions []Assertion) []error {
	var errs []error
	for _, a := range assertions {
		if err := evaluate(r, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertReplied:
		return assertReplied(r, a)
	case AssertNotReplied:
		return assertNotReplied(r, a)
	case AssertDedupContains:
		if !dedupHas(r.DedupLog, a.Event) {
			return failure(r, a, fmt.Sprintf("dedup log holds %s", a.Event), "absent")
		}
	case AssertDedupLacks:
		if dedupHas(r.DedupLog, a.Event) {
			return failure(r, a, fmt.Sprintf("dedup log lacks %s", a.Event), "present")
		}
	case AssertVerdict:
		te, ok := delivery(r.Trace, a)
		if !ok {
			return failure(r, a, deliveryLabel(a)+" verdict "+a.Reason, "not delivered")
		}
		if te.Verdict != a.Reason {
			return failure(r, a, deliveryLabel(a)+" verdict "+a.Reason, te.Verdict)
		}
	case AssertResult:
		te, ok := delivery(r.Trace, a)
		if !ok {
			return failure(r, a, deliveryLabel(a)+" result "+a.Result, "not delivered")
		}
		if te.Result != a.Result {
			actual := te.Result
			if actual == "" {
				actual = "no action"
			}
			return failure(r, a, deliveryLabel(a)+" result "+a.Result, actual)
		}
	case AssertClassifierCalls:
		if r.ClassifierCalls != int64(a.Count) {
			return failure(r, a, fmt.Sprintf("%d classifier calls", a.Count), fmt.Sprintf("%d", r.ClassifierCalls))
		}
	case AssertReplyCount:
		if len(r.Replies) != a.Count {
			return failure(r, a, fmt.Sprintf("%d replies", a.Count), fmt.Sprintf("%d", len(r.Replies)))
		}
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func assertReplied(r *Result, a Assertion) error {
	for _, rep := range r.Replies {
		if rep.EventID != a.Event {
			continue
		}
		if a.Message != "" && rep.Message != a.Message {
			return failure(r, a, fmt.Sprintf("reply to %s with %q", a.Event, a.Message), fmt.Sprintf("%q", rep.Message))
		}
		return nil
	}
	return failure(r, a, "reply to "+a.Event, "no reply")
}

func assertNotReplied(r *Result, a Assertion) error {
	n := 0
	for _, rep := range r.Replies {
		if rep.EventID == a.Event {
			n++
		}
	}
	if n > 0 {
		return failure(r, a, "no reply to "+a.Event, fmt.Sprintf("%d replies", n))
	}
	return nil
}

// dedupHas reports whether the newline-delimited log holds id.
func dedupHas(log, id string) bool {
	key := event.NormalizeID(id)
	for _, line := range strings.Split(log, "\n") {
		if event.NormalizeID(line) == key && key != "" {
			return true
		}
	}
	return false
}

// delivery returns the nth trace entry for the assertion's event.
func delivery(trace []TraceEvent, a Assertion) (TraceEvent, bool) {
	want := a.Delivery
	if want == 0 {
		want = 1
	}
	n := 0
	for _, te := range trace {
		if te.EventID != a.Event {
			continue
		}
		n++
		if n == want {
			return te, true
		}
	}
	return TraceEvent{}, false
}

func deliveryLabel(a Assertion) string {
	if a.Delivery > 1 {
		return fmt.Sprintf("%s (delivery %d)", a.Event, a.Delivery)
	}
	return a.Event
}

func failure(r *Result, a Assertion, expected, actual string) error {
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Trace:    r.Trace,
	}
}
