// Package types provides the data model shared by the delivery pipeline and its gateways.
package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the layout used by the tracker's date fields.
const DateLayout = "2006-01-02"

// ParentTicket is a top-level delivery ticket found by discovery.
type ParentTicket struct {
	Key          string `json:"key"`
	CustomerName string `json:"customer_name,omitempty"`
	RawSummary   string `json:"raw_summary"`
}

// ChildTicket is the sub-task under a parent that drives one delivery phase.
type ChildTicket struct {
	Key       string    `json:"key"`
	DateRange DateRange `json:"date_range"`
}

// TicketFields is the subset of tracker fields the pipeline reads.
type TicketFields struct {
	Summary   string     `json:"summary"`
	Reporter  string     `json:"reporter,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Labels    []string   `json:"labels,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// DateRange returns the delivery window carried by the ticket.
func (f *TicketFields) DateRange() (DateRange, error) {
	if f.StartDate == nil || f.EndDate == nil {
		return DateRange{}, fmt.Errorf("ticket is missing start or end date")
	}
	return DateRange{Start: *f.StartDate, End: *f.EndDate}, nil
}

// DateRange is an inclusive delivery window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String renders the range as START_END using DateLayout.
func (r DateRange) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Start.Format(DateLayout) + "_" + r.End.Format(DateLayout)
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// ParseDateRange parses the START_END form produced by String.
func ParseDateRange(s string) (DateRange, error) {
	start, end, ok := strings.Cut(s, "_")
	if !ok {
		return DateRange{}, fmt.Errorf("invalid date range %q: missing separator", s)
	}
	startTime, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid range start %q: %w", start, err)
	}
	endTime, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid range end %q: %w", end, err)
	}
	if endTime.Before(startTime) {
		return DateRange{}, fmt.Errorf("invalid date range %q: end before start", s)
	}
	return DateRange{Start: startTime, End: endTime}, nil
}

// AccountRecord holds the identifiers looked up for a parent ticket.
type AccountRecord struct {
	MarketID       string `json:"market_id" validate:"required"`
	BeaconID       string `json:"beacon_id" validate:"required"`
	DataContractID string `json:"data_contract_id" validate:"required"`
}

// Validate checks that every identifier is present.
func (a *AccountRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}

// TicketContext is an enriched parent ticket ready for the delivery phases.
type TicketContext struct {
	Parent       ParentTicket  `json:"parent"`
	CustomerName string        `json:"customer_name"`
	Account      AccountRecord `json:"account"`
}

// Artifact locates the deliverable file for one child ticket.
type Artifact struct {
	Dir      string `json:"dir"`
	FileName string `json:"file_name"`
}

// Path joins Dir and FileName.
func (a Artifact) Path() string {
	return filepath.Join(a.Dir, a.FileName)
}
