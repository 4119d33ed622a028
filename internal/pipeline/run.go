// Package pipeline orchestrates a delivery run: ticket discovery, account
// enrichment, the transfer phase and the notification phase.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/license-delivery/internal/accounts"
	"github.com/jonathan/license-delivery/internal/clock"
	"github.com/jonathan/license-delivery/internal/naming"
	"github.com/jonathan/license-delivery/internal/notify"
	"github.com/jonathan/license-delivery/internal/tracker"
	"github.com/jonathan/license-delivery/internal/transfer"
	"github.com/jonathan/license-delivery/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Phase     types.Phase         `json:"phase,omitempty"`
	Stage     string              `json:"stage,omitempty"`
	TicketKey string              `json:"ticket_key,omitempty"`
	Status    types.OutcomeStatus `json:"status,omitempty"`
	Message   string              `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// EmailSettings holds the fixed parts of the notification message.
type EmailSettings struct {
	Subject    string
	From       string
	To         []string
	Cc         []string
	Greeting   string
	SenderName string
	SignOff    string
	FileName   string // Attachment name for the serialized message
}

// Options holds configuration for running the pipeline
type Options struct {
	Mode    types.RunMode
	Parents tracker.ParentQuery

	ChildLabel         string
	TransferStatus     string
	NotificationStatus string
	ProcessedLabel     string
	TransitionID       string

	TransferComment         string
	NotificationComment     string
	MentionUser             string
	ConfirmationAttachments []string

	Naming    naming.Rules
	Artifacts *ArtifactNamer

	Endpoint    transfer.Endpoint // PrivateKeyPath is filled per run
	KeyMaterial string
	KeyDir      string
	RemoteDir   string
	ServerName  string

	Email EmailSettings

	BetweenPhases       time.Duration
	ListingDelay        time.Duration
	NotificationWorkers int
	Location            *time.Location

	OnProgress ProgressCallback
}

// Dependencies are the gateways a pipeline drives.
type Dependencies struct {
	Tracker  tracker.Gateway
	Accounts accounts.Lookup
	Dialer   transfer.Dialer
	Mailer   notify.Gateway
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Pipeline runs one delivery cycle.
type Pipeline struct {
	opts   Options
	deps   Dependencies
	logger *zap.Logger
}

// New checks that the dependencies needed by opts.Mode are present.
func New(opts Options, deps Dependencies) (*Pipeline, error) {
	if deps.Tracker == nil || deps.Accounts == nil {
		return nil, errors.New("pipeline requires a tracker and an account lookup")
	}
	if opts.Mode.IncludesTransfer() && deps.Dialer == nil {
		return nil, errors.New("transfer mode requires a dialer")
	}
	if opts.Mode.IncludesNotification() && deps.Mailer == nil {
		return nil, errors.New("notification mode requires a mailer")
	}
	if opts.Artifacts == nil {
		return nil, errors.New("pipeline requires an artifact namer")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Pipeline{opts: opts, deps: deps, logger: deps.Logger}, nil
}

// emitProgress calls the progress callback if configured
func (p *Pipeline) emitProgress(event ProgressEvent) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(event)
	}
}

// Run executes discovery, enrichment and the phases selected by the run mode.
// The summary is returned even when a fatal error stops the run.
func (p *Pipeline) Run(ctx context.Context) (*types.RunSummary, error) {
	defer func() {
		if err := p.deps.Tracker.Close(); err != nil {
			p.logger.Warn("failed to close tracker client", zap.Error(err))
		}
	}()

	rc := types.NewRunContext(p.deps.Clock.Now(), p.opts.Location)
	summary := &types.RunSummary{Run: rc, Mode: p.opts.Mode}
	log := p.logger.With(zap.String("run_id", rc.RunID.String()), zap.String("mode", string(p.opts.Mode)))
	finish := func() { summary.FinishedAt = p.deps.Clock.Now() }
	defer finish()

	log.Info("starting delivery run", zap.String("today", rc.Today.Format(types.DateLayout)))

	jql := p.opts.Parents.JQL()
	parents, err := p.deps.Tracker.SearchParents(ctx, p.opts.Parents)
	if err != nil {
		log.Error("ticket discovery failed", zap.String("jql", jql), zap.Error(err))
		return summary, &DiscoveryError{JQL: jql, Cause: err}
	}
	summary.Discovered = len(parents)
	p.emitProgress(ProgressEvent{Message: fmt.Sprintf("discovered %d parent tickets", len(parents))})

	if len(parents) == 0 {
		log.Warn("no parent tickets matched", zap.String("jql", jql))
		return summary, nil
	}

	contexts, err := p.enrich(ctx, log, parents, summary)
	if err != nil {
		return summary, err
	}
	if len(contexts) == 0 {
		log.Warn("no tickets survived enrichment; skipping delivery phases",
			zap.Int("discovered", summary.Discovered))
		return summary, nil
	}

	if p.opts.Mode.IncludesTransfer() {
		if err := p.runTransferPhase(ctx, log, rc, contexts, summary); err != nil {
			return summary, err
		}
	}

	if err := p.deps.Clock.Sleep(ctx, p.opts.BetweenPhases); err != nil {
		return summary, err
	}

	if p.opts.Mode.IncludesNotification() {
		p.runNotificationPhase(ctx, log, rc, contexts, summary)
	}

	log.Info("delivery run finished",
		zap.Int("discovered", summary.Discovered),
		zap.Int("enriched", summary.Enriched),
		zap.Int("enrichment_failures", summary.EnrichmentFailures))
	return summary, nil
}

// enrich derives the customer name and account record for every parent, in
// discovery order. Failures drop the ticket and never abort the run.
func (p *Pipeline) enrich(ctx context.Context, log *zap.Logger, parents []types.ParentTicket, summary *types.RunSummary) ([]types.TicketContext, error) {
	contexts := make([]types.TicketContext, 0, len(parents))
	for _, parent := range parents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tlog := log.With(zap.String("ticket", parent.Key), zap.String("stage", StageEnrichment))

		name, err := naming.CustomerName(parent.RawSummary, p.opts.Naming)
		if err != nil {
			summary.EnrichmentFailures++
			tlog.Error("customer name could not be derived",
				zap.String("summary", parent.RawSummary), zap.Error(err))
			continue
		}

		account, err := p.deps.Accounts.Lookup(ctx, parent.Key)
		if err != nil {
			summary.EnrichmentFailures++
			tlog.Error("account lookup failed", zap.String("customer", name), zap.Error(err))
			continue
		}

		parent.CustomerName = name
		contexts = append(contexts, types.TicketContext{
			Parent:       parent,
			CustomerName: name,
			Account:      account,
		})
		tlog.Debug("ticket enriched", zap.String("customer", name), zap.String("market_id", account.MarketID))
	}

	summary.Enriched = len(contexts)
	p.emitProgress(ProgressEvent{
		Stage:   StageEnrichment,
		Message: fmt.Sprintf("enriched %d of %d tickets", len(contexts), len(parents)),
	})
	return contexts, nil
}

// recordOutcome logs and stores a ticket outcome.
func (p *Pipeline) recordOutcome(log *zap.Logger, summary *types.RunSummary, o types.TicketOutcome) {
	summary.Record(o)

	fields := []zap.Field{
		zap.String("ticket", o.ParentKey),
		zap.String("phase", string(o.Phase)),
		zap.String("status", string(o.Status)),
	}
	if o.ChildKey != "" {
		fields = append(fields, zap.String("child", o.ChildKey))
	}
	if o.Stage != "" {
		fields = append(fields, zap.String("stage", o.Stage))
	}
	if o.Artifact != "" {
		fields = append(fields, zap.String("artifact", o.Artifact))
	}

	switch o.Status {
	case types.OutcomeSucceeded:
		log.Info("ticket delivered", fields...)
	case types.OutcomeSkipped:
		log.Warn("no child ticket matched; skipping", fields...)
	default:
		log.Error("ticket delivery failed", append(fields, zap.Error(o.Err))...)
	}

	p.emitProgress(ProgressEvent{
		Phase:     o.Phase,
		Stage:     o.Stage,
		TicketKey: o.ParentKey,
		Status:    o.Status,
		Message:   o.ErrorMessage(),
	})
}

// failed builds a failed outcome wrapping cause in a StageError.
func failed(phase types.Phase, status types.OutcomeStatus, stage string, tc types.TicketContext, childKey string, cause error) types.TicketOutcome {
	return types.TicketOutcome{
		Phase:     phase,
		ParentKey: tc.Parent.Key,
		ChildKey:  childKey,
		Status:    status,
		Stage:     stage,
		Err:       &StageError{Phase: phase, Stage: stage, TicketKey: tc.Parent.Key, Cause: cause},
	}
}
