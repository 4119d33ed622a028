package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jonathan/license-delivery/internal/notify"
	"github.com/jonathan/license-delivery/internal/tracker"
	"github.com/jonathan/license-delivery/internal/types"
)

// runNotificationPhase notifies every ticket concurrently. Outcomes are
// recorded in discovery order once all workers finish.
func (p *Pipeline) runNotificationPhase(ctx context.Context, log *zap.Logger, rc types.RunContext, contexts []types.TicketContext, summary *types.RunSummary) {
	log = log.With(zap.String("phase", string(types.PhaseNotification)))
	p.emitProgress(ProgressEvent{Phase: types.PhaseNotification, Message: fmt.Sprintf("notifying %d tickets", len(contexts))})

	outcomes := make([]types.TicketOutcome, len(contexts))

	indices := make([]int, len(contexts))
	for i := range indices {
		indices[i] = i
	}

	errs := RunConcurrently(ctx, indices, p.opts.NotificationWorkers,
		func(ctx context.Context, i int) error {
			outcomes[i] = p.notifyTicket(ctx, rc, contexts[i])
			return nil
		},
		func(i int, err error) {
			log.Error("notification worker failed", zap.String("ticket", contexts[i].Parent.Key), zap.Error(err))
		})

	for i, err := range errs {
		if err != nil {
			outcomes[i] = failed(types.PhaseNotification, types.OutcomeFailed, StageWorker, contexts[i], "", err)
		}
	}
	for _, o := range outcomes {
		p.recordOutcome(log, summary, o)
	}
}

// notifyTicket emails the customer and marks the child ticket processed.
// A failed submission leaves the ticket untouched so the next run retries it.
func (p *Pipeline) notifyTicket(ctx context.Context, rc types.RunContext, tc types.TicketContext) types.TicketOutcome {
	const phase = types.PhaseNotification

	var exclude []string
	if p.opts.ProcessedLabel != "" {
		exclude = []string{p.opts.ProcessedLabel}
	}
	child, err := p.deps.Tracker.LatestChild(ctx, tracker.ChildQuery{
		ParentKey:     tc.Parent.Key,
		Status:        p.opts.NotificationStatus,
		Label:         p.opts.ChildLabel,
		ExcludeLabels: exclude,
	})
	if err != nil {
		return failed(phase, types.OutcomeFailed, StageChildLookup, tc, "", err)
	}
	if child == nil {
		return types.TicketOutcome{Phase: phase, ParentKey: tc.Parent.Key, Status: types.OutcomeSkipped}
	}

	fields, err := p.deps.Tracker.ReadFields(ctx, child.Key)
	if err != nil {
		return failed(phase, types.OutcomeFailed, StageDateRange, tc, child.Key, err)
	}
	child.DateRange, err = fields.DateRange()
	if err != nil {
		return failed(phase, types.OutcomeFailed, StageDateRange, tc, child.Key, err)
	}

	artifact, err := p.opts.Artifacts.Build(tc.CustomerName, tc.Parent.Key, child.Key, child.DateRange)
	if err != nil {
		return failed(phase, types.OutcomeFailed, StageArtifact, tc, child.Key, err)
	}

	body, err := notify.RenderBody(notify.BodyData{
		Greeting:       p.opts.Email.Greeting,
		SenderName:     p.opts.Email.SenderName,
		SignOff:        p.opts.Email.SignOff,
		DeliveredOn:    rc.Today.Format("20060102"),
		MarketID:       tc.Account.MarketID,
		BeaconID:       tc.Account.BeaconID,
		DataContractID: tc.Account.DataContractID,
		Server:         p.opts.ServerName,
		FileName:       artifact.FileName,
		DateRange:      child.DateRange.String(),
	})
	if err != nil {
		return failed(phase, types.OutcomeFailed, StageRender, tc, child.Key, err)
	}

	raw, err := p.deps.Mailer.Send(ctx, notify.Message{
		Subject: p.opts.Email.Subject,
		From:    p.opts.Email.From,
		To:      p.opts.Email.To,
		Cc:      p.opts.Email.Cc,
		Body:    body,
		Date:    p.deps.Clock.Now(),
	})
	if err != nil {
		o := failed(phase, types.OutcomeFailed, StageSubmission, tc, child.Key, err)
		o.Artifact = artifact.FileName
		return o
	}

	if err := p.markNotified(ctx, child.Key, raw); err != nil {
		o := failed(phase, types.OutcomeMutationFailed, StageMutation, tc, child.Key, err)
		o.Artifact = artifact.FileName
		return o
	}

	return types.TicketOutcome{
		Phase:     phase,
		ParentKey: tc.Parent.Key,
		ChildKey:  child.Key,
		Status:    types.OutcomeSucceeded,
		Artifact:  artifact.FileName,
	}
}

// markNotified attaches the sent message, alerts revenue recognition and
// replaces the child's labels with the processed label.
func (p *Pipeline) markNotified(ctx context.Context, childKey string, raw []byte) error {
	if err := p.deps.Tracker.AddAttachment(ctx, childKey, raw, p.emailAttachmentName()); err != nil {
		return err
	}

	comment := p.opts.NotificationComment
	if p.opts.MentionUser != "" {
		comment = fmt.Sprintf("[~%s] %s", p.opts.MentionUser, comment)
	}
	if err := p.deps.Tracker.AddComment(ctx, childKey, comment); err != nil {
		return err
	}

	return p.deps.Tracker.UpdateField(ctx, childKey, tracker.FieldLabels, []string{p.opts.ProcessedLabel})
}

func (p *Pipeline) emailAttachmentName() string {
	name := p.opts.Email.FileName
	if name == "" {
		name = "delivery_email"
	}
	if filepath.Ext(name) == "" {
		name += ".txt"
	}
	return name
}
