package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/license-delivery/internal/tracker"
	"github.com/jonathan/license-delivery/internal/transfer"
	"github.com/jonathan/license-delivery/internal/types"
)

// runTransferPhase opens one session and delivers every ticket through it
// in discovery order.
func (p *Pipeline) runTransferPhase(ctx context.Context, log *zap.Logger, rc types.RunContext, contexts []types.TicketContext, summary *types.RunSummary) error {
	log = log.With(zap.String("phase", string(types.PhaseTransfer)))
	p.emitProgress(ProgressEvent{Phase: types.PhaseTransfer, Message: fmt.Sprintf("transferring %d tickets", len(contexts))})

	session, err := p.openSession(ctx, log)
	if err != nil {
		log.Error("transfer session could not be established", zap.Error(err))
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to close transfer session", zap.Error(err))
		}
	}()

	for _, tc := range contexts {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.recordOutcome(log, summary, p.transferTicket(ctx, log, rc, session, tc))
	}
	return nil
}

// openSession writes the key file, connects, removes the key file, and
// moves into the remote directory.
func (p *Pipeline) openSession(ctx context.Context, log *zap.Logger) (transfer.Session, error) {
	keyPath, cleanup, err := transfer.WriteKeyFile(p.opts.KeyDir, p.opts.KeyMaterial)
	if err != nil {
		return nil, &SessionError{Op: "key file", Cause: err}
	}

	ep := p.opts.Endpoint
	ep.PrivateKeyPath = keyPath
	session, err := p.deps.Dialer.Connect(ctx, ep)

	// The key never outlives the connect attempt.
	if cerr := cleanup(); cerr != nil {
		log.Warn("failed to remove key file", zap.String("path", keyPath), zap.Error(cerr))
	}
	if err != nil {
		return nil, &SessionError{Op: "connect", Cause: err}
	}

	if err := session.ChangeDirectory(p.opts.RemoteDir); err != nil {
		_ = session.Close()
		return nil, &SessionError{Op: "change directory", Cause: err}
	}

	log.Info("transfer session ready",
		zap.String("address", ep.Address),
		zap.String("cwd", session.WorkingDirectory()))
	return session, nil
}

// transferTicket uploads one artifact and marks the child ticket delivered.
func (p *Pipeline) transferTicket(ctx context.Context, log *zap.Logger, rc types.RunContext, session transfer.Session, tc types.TicketContext) types.TicketOutcome {
	const phase = types.PhaseTransfer

	child, err := p.deps.Tracker.LatestChild(ctx, tracker.ChildQuery{
		ParentKey: tc.Parent.Key,
		Status:    p.opts.TransferStatus,
		Label:     p.opts.ChildLabel,
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

	log.Info("uploading artifact",
		zap.String("ticket", tc.Parent.Key),
		zap.String("child", child.Key),
		zap.String("path", artifact.Path()))
	if err := session.Upload(ctx, artifact.Path(), artifact.FileName); err != nil {
		o := failed(phase, types.OutcomeFailed, StageUpload, tc, child.Key, err)
		o.Artifact = artifact.FileName
		return o
	}

	confirmation, err := p.confirm(ctx, session, artifact)
	if err != nil {
		o := failed(phase, types.OutcomeFailed, StageConfirmation, tc, child.Key, err)
		o.Artifact = artifact.FileName
		return o
	}

	if err := p.markTransferred(ctx, rc, child.Key, artifact, confirmation); err != nil {
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

// confirm waits for the listing to settle and builds the delivery record.
func (p *Pipeline) confirm(ctx context.Context, session transfer.Session, artifact types.Artifact) (transfer.Confirmation, error) {
	if err := p.deps.Clock.Sleep(ctx, p.opts.ListingDelay); err != nil {
		return transfer.Confirmation{}, err
	}

	entries, err := session.ListAttributes(ctx)
	if err != nil {
		return transfer.Confirmation{}, err
	}

	attrs, ok := transfer.FindAttributes(entries, artifact.FileName)
	if !ok {
		return transfer.Confirmation{}, fmt.Errorf("%s not present in remote listing of %s", artifact.FileName, session.WorkingDirectory())
	}

	return transfer.NewConfirmation(attrs, p.opts.Endpoint.Host(), session.WorkingDirectory(), p.opts.Location), nil
}

// markTransferred attaches the confirmation, comments, sets the due date
// and transitions the child ticket. It stops at the first failure.
func (p *Pipeline) markTransferred(ctx context.Context, rc types.RunContext, childKey string, artifact types.Artifact, c transfer.Confirmation) error {
	payload := c.Bytes()
	for _, name := range p.opts.ConfirmationAttachments {
		if err := p.deps.Tracker.AddAttachment(ctx, childKey, payload, name); err != nil {
			return err
		}
	}

	comment := fmt.Sprintf("%s\n\n%s", p.opts.TransferComment, artifact.FileName)
	if err := p.deps.Tracker.AddComment(ctx, childKey, comment); err != nil {
		return err
	}

	if err := p.deps.Tracker.UpdateField(ctx, childKey, tracker.FieldDueDate, rc.Today.Format(types.DateLayout)); err != nil {
		return err
	}

	return p.deps.Tracker.Transition(ctx, childKey, p.opts.TransitionID)
}
