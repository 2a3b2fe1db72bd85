package runner

import (
	"time"
)

// TestSuite defines one battle played through the API, or a sequence that
// references other case files.
type TestSuite struct {
	Name    string     `json:"name"`
	Players [2]string  `json:"players,omitempty"` // p1 and p2 names for regular tests
	Steps   []TestStep `json:"steps,omitempty"`
	Cases   []string   `json:"cases,omitempty"` // used for sequence suites
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one submitted action and its expected outcome.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	PlayerNum    int          `json:"player_num"`
	Action       string       `json:"action"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step. HP ranges are inclusive.
type Expectations struct {
	// RejectStatus expects the turn to fail with this HTTP status and leave
	// the game untouched.
	RejectStatus *int   `json:"reject_status,omitempty"`
	RejectError  string `json:"reject_error,omitempty"`

	Status        *string `json:"status,omitempty"`
	Turn          *int    `json:"turn,omitempty"`
	CurrentPlayer *int    `json:"current_player,omitempty"`
	P1HPMin       *int    `json:"p1_hp_min,omitempty"`
	P1HPMax       *int    `json:"p1_hp_max,omitempty"`
	P2HPMin       *int    `json:"p2_hp_min,omitempty"`
	P2HPMax       *int    `json:"p2_hp_max,omitempty"`
	HasImage      *bool   `json:"has_image,omitempty"`

	NarrativeContains    []string `json:"narrative_contains,omitempty"`
	NarrativeNotContains []string `json:"narrative_not_contains,omitempty"`
	NarrativeRegex       string   `json:"narrative_regex,omitempty"`
	NarrativeMinLength   *int     `json:"narrative_min_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	Narrative    string
	WasRejection bool
}

// TestJob represents a test suite to be executed
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
	GameCode string
}
