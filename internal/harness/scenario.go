package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replyguard/internal/classify"
	"github.com/roach88/replyguard/internal/prefilter"
)

// Scenario is one end-to-end case.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Bot is the bot's own account name.
	Bot string `yaml:"bot"`

	// Classifier names a built-in classifier. Defaults to word so that
	// scenarios exercise the action path.
	Classifier string `yaml:"classifier,omitempty"`

	DryRun bool `yaml:"dry_run,omitempty"`

	Denylist Denylist `yaml:"denylist"`

	// Dedup lists identifiers handled by earlier runs.
	Dedup []string `yaml:"dedup,omitempty"`

	Replier ReplierSpec `yaml:"replier,omitempty"`

	Events []EventSpec `yaml:"events"`

	Assertions []Assertion `yaml:"assertions"`
}

// Denylist holds inline denylist entries.
type Denylist struct {
	Origins []string `yaml:"origins,omitempty"`
	Authors []string `yaml:"authors,omitempty"`
	Terms   []string `yaml:"terms"`
}

// Replier behaviours.
const (
	ReplyOK        = "ok"
	ReplyForbidden = "forbidden"
	ReplyError     = "error"
)

// ReplierSpec configures the fake replier.
type ReplierSpec struct {
	Default   string            `yaml:"default,omitempty"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// behaviour returns how the replier answers for id.
func (r ReplierSpec) behaviour(id string) string {
	if b, ok := r.Overrides[id]; ok {
		return b
	}
	if r.Default == "" {
		return ReplyOK
	}
	return r.Default
}

// EventSpec is one delivered event. A nil Author is a deleted account.
type EventSpec struct {
	ID     string  `yaml:"id"`
	Origin string  `yaml:"origin"`
	Author *string `yaml:"author,omitempty"`
	Body   string  `yaml:"body"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	Type string `yaml:"type"`

	// Event is the event id the assertion is about.
	Event string `yaml:"event,omitempty"`

	// Delivery picks the nth delivery of Event (1-based, default 1).
	Delivery int `yaml:"delivery,omitempty"`

	// Reason is the expected prefilter verdict (verdict).
	Reason string `yaml:"reason,omitempty"`

	// Result is the expected action result (result).
	Result string `yaml:"result,omitempty"`

	// Message optionally pins the reply text (replied).
	Message string `yaml:"message,omitempty"`

	// Count is the expected count (classifier_calls, reply_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertReplied         = "replied"
	AssertNotReplied      = "not_replied"
	AssertDedupContains   = "dedup_contains"
	AssertDedupLacks      = "dedup_lacks"
	AssertVerdict         = "verdict"
	AssertResult          = "result"
	AssertClassifierCalls = "classifier_calls"
	AssertReplyCount      = "reply_count"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos do not silently disable an assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Bot == "" {
		return fmt.Errorf("bot is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Classifier != "" {
		if _, err := classify.New(s.Classifier); err != nil {
			return err
		}
	}

	for i, ev := range s.Events {
		if ev.ID == "" {
			return fmt.Errorf("events[%d]: id is required", i)
		}
		if ev.Origin == "" {
			return fmt.Errorf("events[%d]: origin is required", i)
		}
	}

	for _, b := range append([]string{s.Replier.Default}, values(s.Replier.Overrides)...) {
		switch b {
		case "", ReplyOK, ReplyForbidden, ReplyError:
		default:
			return fmt.Errorf("replier: unknown behaviour %q", b)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func values(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Delivery < 0 {
		return fmt.Errorf("assertions[%d]: delivery must be positive", index)
	}

	switch a.Type {
	case AssertReplied, AssertNotReplied, AssertDedupContains, AssertDedupLacks:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for %s", index, a.Type)
		}
	case AssertVerdict:
		if a.Event == "" || a.Reason == "" {
			return fmt.Errorf("assertions[%d]: event and reason are required for verdict", index)
		}
		switch prefilter.Reason(a.Reason) {
		case prefilter.ReasonBlockedOrigin, prefilter.ReasonSelf, prefilter.ReasonBlockedAuthor,
			prefilter.ReasonAlreadyHandled, prefilter.ReasonNoTrigger, prefilter.ReasonEligible:
		default:
			return fmt.Errorf("assertions[%d]: unknown reason %q", index, a.Reason)
		}
	case AssertResult:
		if a.Event == "" || a.Result == "" {
			return fmt.Errorf("assertions[%d]: event and result are required for result", index)
		}
	case AssertClassifierCalls, AssertReplyCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
