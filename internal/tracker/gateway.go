// Package tracker talks to the Jira instance that drives license deliveries.
package tracker

import (
	"context"

	"github.com/jonathan/license-delivery/internal/types"
)

// Gateway is the set of issue tracker operations the pipeline uses.
type Gateway interface {
	// SearchParents returns every parent ticket matching q, in key order.
	SearchParents(ctx context.Context, q ParentQuery) ([]types.ParentTicket, error)

	// LatestChild returns the highest-keyed child matching q, or nil when
	// none match.
	LatestChild(ctx context.Context, q ChildQuery) (*types.ChildTicket, error)

	// ReadFields reads the typed field subset of a ticket.
	ReadFields(ctx context.Context, key string) (*types.TicketFields, error)

	AddAttachment(ctx context.Context, key string, payload []byte, filename string) error
	AddComment(ctx context.Context, key, body string) error

	// UpdateField sets a single field. Labels are replaced, not appended.
	UpdateField(ctx context.Context, key, field string, value any) error

	Transition(ctx context.Context, key, transitionID string) error

	// Close releases the client's connections.
	Close() error
}

// Field names used with UpdateField.
const (
	FieldDueDate = "duedate"
	FieldLabels  = "labels"
)
