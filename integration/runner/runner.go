package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running npc-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML or JSON file. Unknown fields
// are rejected so typos in expectations do not silently pass.
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}
	return ParseTestSuite(content)
}

// ParseTestSuite decodes a suite. JSON is accepted as a subset of YAML.
func ParseTestSuite(content []byte) (TestSuite, error) {
	var suite TestSuite
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse test suite: %w", err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// suiteState carries context from one step to the next.
type suiteState struct {
	character int
	session   uuid.UUID
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)+1),
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	// Start from a clean slate: no open conversation, and the reset slot if any.
	if _, err := DoJSON(ctx, r.Client, http.MethodDelete, r.BaseURL+"/v1/dialogue", nil); err != nil {
		result.Error = fmt.Errorf("failed to end open dialogue: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	if suite.ResetSlot != "" {
		resetStart := time.Now()
		resp, err := DoJSON(ctx, r.Client, http.MethodPut, r.BaseURL+"/v1/saves/"+suite.ResetSlot, nil)
		if err == nil && !resp.ok() {
			err = fmt.Errorf("load %s returned %d: %s", suite.ResetSlot, resp.StatusCode, resp.Error)
		}
		if err != nil {
			result.Error = fmt.Errorf("failed to reset world: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
		result.Results = append(result.Results, TestResult{
			TestName:     suite.Name,
			StepName:     "reset " + suite.ResetSlot,
			Success:      true,
			IsReset:      true,
			ResponseText: "[WORLD RESET]",
			Duration:     time.Since(resetStart),
		})
	}

	var st suiteState
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.executeStep(ctx, step, &st)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Session = st.session
	result.Duration = time.Since(start)
	return result, result.Error
}

// executeStep performs one action and checks its expectations
func (r *Runner) executeStep(ctx context.Context, step TestStep, st *suiteState) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	character := step.Character
	if character == 0 {
		character = st.character
	}
	if step.Action == ActionStart {
		st.character = character
	}

	var before *world.CharacterStatus
	if step.Expectations.RelationshipDiff != nil {
		cs, err := GetCharacter(ctx, r.Client, r.BaseURL, character)
		if err != nil {
			return fail(fmt.Errorf("failed to get character before step: %w", err))
		}
		before = cs
	}

	var (
		resp apiResponse
		err  error
	)
	switch step.Action {
	case ActionStart:
		req := handlers.StartDialogueRequest{CharacterID: character, Tree: step.Tree}
		resp, err = DoJSON(ctx, r.Client, http.MethodPost, r.BaseURL+"/v1/dialogue", req)
	case ActionSelect:
		req := handlers.SelectOptionRequest{Option: step.Option}
		resp, err = DoJSON(ctx, r.Client, http.MethodPost, r.BaseURL+"/v1/dialogue/select", req)
	case ActionEnd:
		resp, err = DoJSON(ctx, r.Client, http.MethodDelete, r.BaseURL+"/v1/dialogue", nil)
	case ActionSave:
		resp, err = DoJSON(ctx, r.Client, http.MethodPost, r.BaseURL+"/v1/saves/"+step.Slot, nil)
	case ActionLoad:
		resp, err = DoJSON(ctx, r.Client, http.MethodPut, r.BaseURL+"/v1/saves/"+step.Slot, nil)
	case ActionStatus:
		resp = apiResponse{StatusCode: http.StatusOK}
	default:
		return fail(fmt.Errorf("unknown action %q", step.Action))
	}
	if err != nil {
		return fail(err)
	}

	var dr handlers.DialogueResponse
	isDialogue := step.Action == ActionStart || step.Action == ActionSelect || step.Action == ActionEnd
	if isDialogue && resp.ok() && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &dr); err != nil {
			return fail(fmt.Errorf("failed to decode dialogue response: %w", err))
		}
		if dr.Session != nil {
			st.session = dr.Session.ID
		}
	}
	result.ResponseText = dr.Text

	var after *world.CharacterStatus
	if step.Expectations.needsStatus() {
		cs, err := GetCharacter(ctx, r.Client, r.BaseURL, character)
		if err != nil {
			return fail(fmt.Errorf("failed to get character after step: %w", err))
		}
		after = cs
	}

	if err := checkExpectations(step.Expectations, resp, &dr, before, after); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the expectations against the reply and the
// character status before and after the step.
func checkExpectations(exp Expectations, resp apiResponse, dr *handlers.DialogueResponse, before, after *world.CharacterStatus) error {
	if exp.StatusCode != nil {
		if resp.StatusCode != *exp.StatusCode {
			return fmt.Errorf("expected status %d, got %d (%s)", *exp.StatusCode, resp.StatusCode, resp.Error)
		}
	} else if !resp.ok() {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, resp.Error)
	}

	if exp.ErrorContains != "" && !strings.Contains(strings.ToLower(resp.Error), strings.ToLower(exp.ErrorContains)) {
		return fmt.Errorf("expected error to contain '%s', got '%s'", exp.ErrorContains, resp.Error)
	}

	if exp.Active != nil && dr.Active != *exp.Active {
		return fmt.Errorf("expected active to be %t, got %t", *exp.Active, dr.Active)
	}
	if exp.Emotion != nil && dr.Emotion != *exp.Emotion {
		return fmt.Errorf("expected emotion %s, got %s", *exp.Emotion, dr.Emotion)
	}

	lowerText := strings.ToLower(dr.Text)
	for _, want := range exp.TextContains {
		if !strings.Contains(lowerText, strings.ToLower(want)) {
			return fmt.Errorf("expected text to contain '%s', got '%s'", want, dr.Text)
		}
	}
	for _, unwanted := range exp.TextNotContains {
		if strings.Contains(lowerText, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected text to NOT contain '%s', but it did", unwanted)
		}
	}
	if exp.TextRegex != "" {
		matched, err := regexp.MatchString(exp.TextRegex, dr.Text)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("text didn't match regex pattern: %s", exp.TextRegex)
		}
	}

	if exp.OptionCount != nil && len(dr.Options) != *exp.OptionCount {
		return fmt.Errorf("expected %d options, got %d", *exp.OptionCount, len(dr.Options))
	}
	for _, want := range exp.OptionsContain {
		if !slices.ContainsFunc(dr.Options, func(o handlers.OptionView) bool { return o.Text == want }) {
			return fmt.Errorf("expected option '%s' to be offered", want)
		}
	}

	if exp.Delta != nil || exp.Ended != nil || exp.QuestStarted != nil {
		if dr.Outcome == nil {
			return fmt.Errorf("expected an outcome, but the response had none")
		}
		if exp.Delta != nil && dr.Outcome.Delta != *exp.Delta {
			return fmt.Errorf("expected delta %d, got %d", *exp.Delta, dr.Outcome.Delta)
		}
		if exp.Ended != nil && dr.Outcome.Ended != *exp.Ended {
			return fmt.Errorf("expected ended to be %t, got %t", *exp.Ended, dr.Outcome.Ended)
		}
		if exp.QuestStarted != nil && dr.Outcome.QuestStarted != *exp.QuestStarted {
			return fmt.Errorf("expected quest_started to be %t, got %t", *exp.QuestStarted, dr.Outcome.QuestStarted)
		}
	}

	if after == nil {
		return nil
	}
	if exp.Relationship != nil && after.Relationship != *exp.Relationship {
		return fmt.Errorf("expected relationship %d, got %d", *exp.Relationship, after.Relationship)
	}
	if exp.RelationshipDiff != nil && before != nil {
		if diff := after.Relationship - before.Relationship; diff != *exp.RelationshipDiff {
			return fmt.Errorf("expected relationship to change by %d, got %d", *exp.RelationshipDiff, diff)
		}
	}
	if exp.Tier != nil && after.Tier != *exp.Tier {
		return fmt.Errorf("expected tier %s, got %s", *exp.Tier, after.Tier)
	}
	for _, f := range exp.Flags {
		if !slices.Contains(after.Flags, f) {
			return fmt.Errorf("expected flag '%s' to be set. Actual flags: %v", f, after.Flags)
		}
	}
	for _, want := range exp.MemoryContains {
		found := false
		for _, m := range after.Memories {
			if strings.Contains(strings.ToLower(m.Text), strings.ToLower(want)) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expected a recent memory containing '%s'", want)
		}
	}
	if exp.DialogueCount != nil && after.DialogueCount != *exp.DialogueCount {
		return fmt.Errorf("expected dialogue_count %d, got %d", *exp.DialogueCount, after.DialogueCount)
	}

	return nil
}
