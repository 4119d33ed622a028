package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a delivery run record
type Run struct {
	ID                 uuid.UUID  `json:"id"`
	Mode               string     `json:"mode"`
	RunDate            time.Time  `json:"run_date"`
	Status             string     `json:"status"`
	Discovered         int        `json:"discovered"`
	Enriched           int        `json:"enriched"`
	EnrichmentFailures int        `json:"enrichment_failures"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Outcome represents one ticket outcome row
type Outcome struct {
	ID           int64     `json:"id"`
	RunID        uuid.UUID `json:"run_id"`
	Seq          int       `json:"seq"`
	Phase        string    `json:"phase"`
	ParentKey    string    `json:"parent_key"`
	ChildKey     *string   `json:"child_key,omitempty"`
	Status       string    `json:"status"`
	Stage        *string   `json:"stage,omitempty"`
	Artifact     *string   `json:"artifact,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
