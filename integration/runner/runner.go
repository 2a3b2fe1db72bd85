package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zackedds/no-rulez-web/pkg/client"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted battles against a running API
type Runner struct {
	API               *client.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		API:               client.New(baseURL),
		Timeout:           90 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
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

		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite creates a game, seats both players and plays every step.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	created, err := r.API.Create(ctx, suite.Players[0])
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameCode = created.Code

	joined, err := r.API.Join(ctx, created.Code, suite.Players[1])
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, result.Error
	}
	current := joined.Game

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, next := r.runStep(ctx, created.Code, current, step)
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
		if next != nil {
			current = next
		}
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep submits one action, retrying once when the referee is unavailable.
func (r *Runner) runStep(ctx context.Context, code string, prev *state.GameState, step TestStep) (TestResult, *state.GameState) {
	for attempt := 1; ; attempt++ {
		result, gs := r.executeStep(ctx, code, prev, step)
		if attempt == 1 && client.StatusCode(result.Error) == http.StatusBadGateway && step.Expectations.RejectStatus == nil {
			r.Logger("    Referee unavailable, retrying step: %s", step.Name)
			continue
		}
		return result, gs
	}
}

func (r *Runner) executeStep(ctx context.Context, code string, prev *state.GameState, step TestStep) (TestResult, *state.GameState) {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	gs, err := r.API.Turn(stepCtx, code, step.PlayerNum, step.Action)
	if step.Expectations.RejectStatus != nil {
		result.WasRejection = true
		result.Error = r.checkRejection(ctx, code, prev, step.Expectations, err)
		result.Success = result.Error == nil
		result.Duration = time.Since(start)
		return result, nil
	}
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, nil
	}
	if gs.Narrative != nil {
		result.Narrative = *gs.Narrative
	}

	// The other seat must observe the same resolved turn by polling.
	synced, err := WaitForTurn(ctx, r.API, code, prev.LastUpdated, gs.Turn)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, gs
	}
	if synced.Turn != gs.Turn || synced.P1HP != gs.P1HP || synced.P2HP != gs.P2HP {
		result.Error = fmt.Errorf("polled record differs from turn response: turn %d/%d hp %d-%d/%d-%d",
			synced.Turn, gs.Turn, synced.P1HP, synced.P2HP, gs.P1HP, gs.P2HP)
		result.Duration = time.Since(start)
		return result, gs
	}

	if err := checkInvariants(prev, gs); err != nil {
		result.Error = err
	} else if err := checkExpectations(step.Expectations, gs); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
	}
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result, gs
}

func (r *Runner) checkRejection(ctx context.Context, code string, prev *state.GameState, exp Expectations, err error) error {
	if err == nil {
		return fmt.Errorf("expected rejection with status %d, but the turn was accepted", *exp.RejectStatus)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("expected rejection with status %d, got %w", *exp.RejectStatus, err)
	}
	if apiErr.StatusCode != *exp.RejectStatus {
		return fmt.Errorf("expected status %d, got %d (%s)", *exp.RejectStatus, apiErr.StatusCode, apiErr.Message)
	}
	if exp.RejectError != "" && apiErr.Message != exp.RejectError {
		return fmt.Errorf("expected error %q, got %q", exp.RejectError, apiErr.Message)
	}

	after, changed, err := r.API.Poll(ctx, code, prev.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to poll after rejection: %w", err)
	}
	if changed {
		return fmt.Errorf("rejected turn changed the game (turn %d → %d)", prev.Turn, after.Turn)
	}
	return nil
}

// checkInvariants holds for every resolved turn regardless of what the
// referee wrote.
func checkInvariants(prev, gs *state.GameState) error {
	for _, hp := range []struct {
		name      string
		old, next int
	}{{"p1_hp", prev.P1HP, gs.P1HP}, {"p2_hp", prev.P2HP, gs.P2HP}} {
		if hp.next < state.MinHP || hp.next > state.MaxHP {
			return fmt.Errorf("%s out of range: %d", hp.name, hp.next)
		}
		if hp.old-hp.next > state.MaxDamagePerTurn {
			return fmt.Errorf("%s dropped %d in one turn", hp.name, hp.old-hp.next)
		}
		if hp.next-hp.old > state.MaxHealPerTurn {
			return fmt.Errorf("%s rose %d in one turn", hp.name, hp.next-hp.old)
		}
	}
	if gs.Turn != prev.Turn+1 {
		return fmt.Errorf("expected turn %d, got %d", prev.Turn+1, gs.Turn)
	}
	if gs.Status == state.StatusActive && gs.CurrentPlayer == prev.CurrentPlayer {
		return fmt.Errorf("current_player did not alternate")
	}
	if (gs.P1HP <= state.MinHP || gs.P2HP <= state.MinHP) != (gs.Status == state.StatusFinished) {
		return fmt.Errorf("status %s inconsistent with hp %d-%d", gs.Status, gs.P1HP, gs.P2HP)
	}
	return nil
}

func checkExpectations(exp Expectations, gs *state.GameState) error {
	if exp.Status != nil && string(gs.Status) != *exp.Status {
		return fmt.Errorf("expected status %s, got %s", *exp.Status, gs.Status)
	}
	if exp.Turn != nil && gs.Turn != *exp.Turn {
		return fmt.Errorf("expected turn %d, got %d", *exp.Turn, gs.Turn)
	}
	if exp.CurrentPlayer != nil && gs.CurrentPlayer != *exp.CurrentPlayer {
		return fmt.Errorf("expected current_player %d, got %d", *exp.CurrentPlayer, gs.CurrentPlayer)
	}
	if err := checkRange("p1_hp", gs.P1HP, exp.P1HPMin, exp.P1HPMax); err != nil {
		return err
	}
	if err := checkRange("p2_hp", gs.P2HP, exp.P2HPMin, exp.P2HPMax); err != nil {
		return err
	}
	if exp.HasImage != nil && (gs.ImageURL != nil) != *exp.HasImage {
		return fmt.Errorf("expected has_image %t, got %t", *exp.HasImage, gs.ImageURL != nil)
	}

	narrative := ""
	if gs.Narrative != nil {
		narrative = *gs.Narrative
	}
	lower := strings.ToLower(narrative)
	for _, want := range exp.NarrativeContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("expected narrative to contain '%s', but it didn't", want)
		}
	}
	for _, unwanted := range exp.NarrativeNotContains {
		if strings.Contains(lower, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected narrative to NOT contain '%s', but it did", unwanted)
		}
	}
	if exp.NarrativeRegex != "" {
		matched, err := regexp.MatchString(exp.NarrativeRegex, narrative)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("narrative didn't match regex pattern: %s", exp.NarrativeRegex)
		}
	}
	if exp.NarrativeMinLength != nil && len(narrative) < *exp.NarrativeMinLength {
		return fmt.Errorf("expected narrative length >= %d, got %d", *exp.NarrativeMinLength, len(narrative))
	}
	return nil
}

func checkRange(name string, v int, lo, hi *int) error {
	if lo != nil && v < *lo {
		return fmt.Errorf("expected %s >= %d, got %d", name, *lo, v)
	}
	if hi != nil && v > *hi {
		return fmt.Errorf("expected %s <= %d, got %d", name, *hi, v)
	}
	return nil
}
