package pipeline

import (
	"fmt"

	"github.com/jonathan/license-delivery/internal/types"
)

// Stages a per-ticket failure can occur in.
const (
	StageEnrichment   = "enrichment"
	StageChildLookup  = "child_lookup"
	StageDateRange    = "date_range"
	StageArtifact     = "artifact"
	StageUpload       = "upload"
	StageConfirmation = "confirmation"
	StageRender       = "render"
	StageSubmission   = "submission"
	StageMutation     = "mutation"
	StageWorker       = "worker"
)

// DiscoveryError means the parent ticket search failed. The run cannot continue.
type DiscoveryError struct {
	JQL   string
	Cause error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("ticket discovery failed: %v", e.Cause)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// SessionError means the transfer session could not be established. The run cannot continue.
type SessionError struct {
	Op    string
	Cause error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("transfer session %s failed: %v", e.Op, e.Cause)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// StageError is a failure isolated to one ticket.
type StageError struct {
	Phase     types.Phase
	Stage     string
	TicketKey string
	Cause     error
}

func (e *StageError) Error() string {
	phase := string(e.Phase)
	if phase == "" {
		phase = "run"
	}
	return fmt.Sprintf("%s/%s failed for %s: %v", phase, e.Stage, e.TicketKey, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// PanicError wraps a value recovered from a worker.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked: %v", e.Value)
}
