// Package observability provides the run logger, the console summary printer
// and run metrics.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/license-delivery/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of failures to display per phase
	maxItemsToShow = 5
)

var phaseLabels = map[types.Phase]string{
	types.PhaseTransfer:     "Transfer:",
	types.PhaseNotification: "Notification:",
}

// Printer handles formatted output for console mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs the run totals and per-phase counts.
func (p *Printer) PrintRunSummary(summary *types.RunSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", summary.Run.RunID))
	sb.WriteString(fmt.Sprintf("Mode:       %s\n", summary.Mode))
	sb.WriteString(fmt.Sprintf("Date:       %s\n", summary.Run.Today.Format(types.DateLayout)))
	if !summary.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration:   %s\n", summary.FinishedAt.Sub(summary.Run.StartedAt).Round(time.Second)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Discovered: %d\n", summary.Discovered))
	sb.WriteString(fmt.Sprintf("Enriched:   %d", summary.Enriched))
	if summary.EnrichmentFailures > 0 {
		sb.WriteString(fmt.Sprintf(" (%d dropped)", summary.EnrichmentFailures))
	}
	sb.WriteString("\n")

	for _, phase := range []types.Phase{types.PhaseTransfer, types.PhaseNotification} {
		c := summary.Counts(phase)
		if c.Total() == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%-13s ✓%d  skipped %d  failed %d",
			phaseLabels[phase], c.Succeeded, c.Skipped, c.Failed))
		if c.MutationFailed > 0 {
			sb.WriteString(fmt.Sprintf("  unmarked %d", c.MutationFailed))
		}
	}

	p.printBox("DELIVERY RUN SUMMARY", sb.String())
}

// PrintFailures outputs the tickets that did not complete, grouped by phase.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFailures(summary *types.RunSummary) {
	if summary == nil {
		return
	}

	var failures []types.TicketOutcome
	for _, o := range summary.Outcomes {
		if o.Status == types.OutcomeFailed || o.Status == types.OutcomeMutationFailed {
			failures = append(failures, o)
		}
	}

	if len(failures) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL TICKETS DELIVERED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tickets need attention:\n\n", len(failures)))

	count := min(len(failures), maxItemsToShow)
	for i := 0; i < count; i++ {
		o := failures[i]
		key := o.ParentKey
		if o.ChildKey != "" {
			key += " / " + o.ChildKey
		}
		sb.WriteString(fmt.Sprintf("⚠ %s [%s/%s]\n", key, o.Phase, o.Stage))

		msg := o.ErrorMessage()
		if len(msg) > 45 {
			msg = msg[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("  %s\n", msg))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(failures) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(failures)-maxItemsToShow))
	}

	p.printBox("FAILED TICKETS", strings.TrimSuffix(sb.String(), "\n"))
}
