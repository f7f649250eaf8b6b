package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions. Each maps to one API call.
const (
	ActionStart  = "start"  // POST /v1/dialogue
	ActionSelect = "select" // POST /v1/dialogue/select
	ActionEnd    = "end"    // DELETE /v1/dialogue
	ActionSave   = "save"   // POST /v1/saves/{slot}
	ActionLoad   = "load"   // PUT /v1/saves/{slot}
	ActionStatus = "status" // GET /v1/characters/{id}
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name      string     `json:"name" yaml:"name"`
	ResetSlot string     `json:"reset_slot,omitempty" yaml:"reset_slot,omitempty"` // loaded before the first step when set
	Steps     []TestStep `json:"steps,omitempty" yaml:"steps,omitempty"`
	Cases     []string   `json:"cases,omitempty" yaml:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single API interaction and its expected outcomes.
// Character defaults to the character of the most recent start step.
type TestStep struct {
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	Action       string       `json:"action" yaml:"action"`
	Character    int          `json:"character,omitempty" yaml:"character,omitempty"`
	Tree         string       `json:"tree,omitempty" yaml:"tree,omitempty"`
	Option       int          `json:"option,omitempty" yaml:"option,omitempty"`
	Slot         string       `json:"slot,omitempty" yaml:"slot,omitempty"`
	Expectations Expectations `json:"expect" yaml:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	StatusCode *int `json:"status_code,omitempty" yaml:"status_code,omitempty"`

	// Dialogue response
	Active           *bool    `json:"active,omitempty" yaml:"active,omitempty"`
	Emotion          *string  `json:"emotion,omitempty" yaml:"emotion,omitempty"`
	TextContains     []string `json:"text_contains,omitempty" yaml:"text_contains,omitempty"`
	TextNotContains  []string `json:"text_not_contains,omitempty" yaml:"text_not_contains,omitempty"`
	TextRegex        string   `json:"text_regex,omitempty" yaml:"text_regex,omitempty"`
	OptionCount      *int     `json:"option_count,omitempty" yaml:"option_count,omitempty"`
	OptionsContain   []string `json:"options_contain,omitempty" yaml:"options_contain,omitempty"`
	Delta            *int     `json:"delta,omitempty" yaml:"delta,omitempty"`
	Ended            *bool    `json:"ended,omitempty" yaml:"ended,omitempty"`
	ErrorContains    string   `json:"error_contains,omitempty" yaml:"error_contains,omitempty"`
	QuestStarted     *bool    `json:"quest_started,omitempty" yaml:"quest_started,omitempty"`
	RelationshipDiff *int     `json:"relationship_diff,omitempty" yaml:"relationship_diff,omitempty"` // change since the previous step

	// Character status, fetched after the step
	Relationship   *int     `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	Tier           *string  `json:"tier,omitempty" yaml:"tier,omitempty"`
	Flags          []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	MemoryContains []string `json:"memory_contains,omitempty" yaml:"memory_contains,omitempty"`
	DialogueCount  *int     `json:"dialogue_count,omitempty" yaml:"dialogue_count,omitempty"`
}

// needsStatus reports whether the character status must be fetched.
func (e Expectations) needsStatus() bool {
	return e.Relationship != nil || e.Tier != nil || len(e.Flags) > 0 ||
		len(e.MemoryContains) > 0 || e.DialogueCount != nil || e.RelationshipDiff != nil
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // True for the reset_slot load (does not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed by a worker
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // most recent dialogue session started by the suite
}
