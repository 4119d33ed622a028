package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunMode selects which delivery phases a run executes.
type RunMode string

// Run modes
const (
	RunModeTransfer     RunMode = "transfer"
	RunModeNotification RunMode = "notification"
	RunModeBoth         RunMode = "both"
)

// ParseRunMode accepts a mode name or the numeric codes 1, 2 and 3.
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "sftp", string(RunModeTransfer):
		return RunModeTransfer, nil
	case "2", "email", string(RunModeNotification):
		return RunModeNotification, nil
	case "3", string(RunModeBoth):
		return RunModeBoth, nil
	}
	return "", fmt.Errorf("unknown run mode %q: expected transfer, notification, both or 1-3", s)
}

// IncludesTransfer reports whether the transfer phase runs.
func (m RunMode) IncludesTransfer() bool {
	return m == RunModeTransfer || m == RunModeBoth
}

// IncludesNotification reports whether the notification phase runs.
func (m RunMode) IncludesNotification() bool {
	return m == RunModeNotification || m == RunModeBoth
}

// Phase names a delivery phase.
type Phase string

// Phases
const (
	PhaseTransfer     Phase = "transfer"
	PhaseNotification Phase = "notification"
)

// OutcomeStatus is the terminal state of one ticket in one phase.
type OutcomeStatus string

// Outcome statuses
const (
	OutcomeSucceeded      OutcomeStatus = "succeeded"
	OutcomeSkipped        OutcomeStatus = "skipped"
	OutcomeFailed         OutcomeStatus = "failed"
	OutcomeMutationFailed OutcomeStatus = "mutation_failed"
)

// RunContext is computed once at the start of a run.
type RunContext struct {
	RunID     uuid.UUID `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Today     time.Time `json:"today"`
}

// NewRunContext stamps a run with a fresh ID. Today is now truncated to
// midnight in loc.
func NewRunContext(now time.Time, loc *time.Location) RunContext {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return RunContext{
		RunID:     uuid.New(),
		StartedAt: now,
		Today:     time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
	}
}

// TicketOutcome records what happened to one parent ticket in one phase.
type TicketOutcome struct {
	Phase     Phase         `json:"phase"`
	ParentKey string        `json:"parent_key"`
	ChildKey  string        `json:"child_key,omitempty"`
	Status    OutcomeStatus `json:"status"`
	Stage     string        `json:"stage,omitempty"`
	Artifact  string        `json:"artifact,omitempty"`
	Err       error         `json:"-"`
}

// ErrorMessage returns the failure text, or empty when the ticket succeeded.
func (o TicketOutcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// PhaseCounts tallies outcomes for a phase.
type PhaseCounts struct {
	Succeeded      int `json:"succeeded"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	MutationFailed int `json:"mutation_failed"`
}

// Total is the number of tickets the phase handled.
func (c PhaseCounts) Total() int {
	return c.Succeeded + c.Skipped + c.Failed + c.MutationFailed
}

// RunSummary is the structured result of a pipeline run.
type RunSummary struct {
	Run                RunContext      `json:"run"`
	Mode               RunMode         `json:"mode"`
	Discovered         int             `json:"discovered"`
	Enriched           int             `json:"enriched"`
	EnrichmentFailures int             `json:"enrichment_failures"`
	Outcomes           []TicketOutcome `json:"outcomes"`
	FinishedAt         time.Time       `json:"finished_at"`
}

// Record appends an outcome.
func (s *RunSummary) Record(o TicketOutcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Counts tallies the outcomes of one phase.
func (s *RunSummary) Counts(phase Phase) PhaseCounts {
	var c PhaseCounts
	for _, o := range s.Outcomes {
		if o.Phase != phase {
			continue
		}
		switch o.Status {
		case OutcomeSucceeded:
			c.Succeeded++
		case OutcomeSkipped:
			c.Skipped++
		case OutcomeFailed:
			c.Failed++
		case OutcomeMutationFailed:
			c.MutationFailed++
		}
	}
	return c
}

// OutcomesFor returns the outcomes of one phase in recorded order.
func (s *RunSummary) OutcomesFor(phase Phase) []TicketOutcome {
	var out []TicketOutcome
	for _, o := range s.Outcomes {
		if o.Phase == phase {
			out = append(out, o)
		}
	}
	return out
}
