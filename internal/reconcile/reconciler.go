// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package reconcile

import (
	"context"
	"fmt"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/toeirei/keysync/internal/logging"
	"github.com/toeirei/keysync/internal/model"
)

// Options carries the run-time settings a Reconciler needs. It is built once
// from config.Config at startup.
type Options struct {
	// SignerURL is attached to every imported key so the client knows which
	// signer to call for it.
	SignerURL string
	// DryRun computes and reports the plan without issuing write calls.
	DryRun bool
	// Observers are notified after each run.
	Observers []RunObserver
}

// Reconciler runs the read-diff-write cycle. A Reconciler is not safe for
// overlapping runs; callers serialize invocations of Run.
type Reconciler struct {
	remote KeyLister
	client KeyManager
	opts   Options

	now   func() time.Time
	newID func() string
}

// New returns a Reconciler reading from remote and writing to client.
func New(remote KeyLister, client KeyManager, opts Options) *Reconciler {
	return &Reconciler{
		remote: remote,
		client: client,
		opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Run performs one reconciliation pass.
//
// A failure to list either key set aborts the run before any write and is
// returned wrapped in ErrRemoteUnavailable or ErrClientUnavailable. Import and
// delete are attempted independently; their failures are joined in the
// returned error and are also available on the report. The report is never nil.
func (r *Reconciler) Run(ctx context.Context) (*model.RunReport, error) {
	rep := &model.RunReport{
		RunID:     r.newID(),
		DryRun:    r.opts.DryRun,
		StartedAt: r.now(),
	}
	log := logging.WithRun(rep.RunID)

	remote, err := r.remote.ListKeys(ctx)
	if err != nil {
		rep.ReadErr = fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
		return r.finish(ctx, log, rep)
	}
	rep.RemoteCount = len(remote)
	log.Debug("listed signer keys", "count", len(remote))

	client, err := r.client.ListKeys(ctx)
	if err != nil {
		rep.ReadErr = fmt.Errorf("%w: %w", ErrClientUnavailable, err)
		return r.finish(ctx, log, rep)
	}
	rep.ClientCount = len(client)
	log.Debug("listed client keys", "count", len(client))

	rep.Plan = Diff(remote, client)
	if rep.Plan.Empty() {
		log.Info("client keys already match signer", "keys", len(remote))
		return r.finish(ctx, log, rep)
	}
	if r.opts.DryRun {
		log.Info("dry run, not applying plan", "add", len(rep.Plan.ToAdd), "remove", len(rep.Plan.ToRemove))
		return r.finish(ctx, log, rep)
	}

	if len(rep.Plan.ToAdd) > 0 {
		log.Info("importing keys", "count", len(rep.Plan.ToAdd))
		statuses, err := r.client.ImportKeys(ctx, model.BindAll(rep.Plan.ToAdd, r.opts.SignerURL))
		rep.Imported = statuses
		rep.ImportErr = checkStatuses(opImport, statuses, err)
	}

	// The delete phase does not depend on the import outcome.
	if len(rep.Plan.ToRemove) > 0 {
		log.Info("deleting keys", "count", len(rep.Plan.ToRemove))
		statuses, err := r.client.DeleteKeys(ctx, rep.Plan.ToRemove)
		rep.Deleted = statuses
		rep.DeleteErr = checkStatuses(opDelete, statuses, err)
	}

	return r.finish(ctx, log, rep)
}

func (r *Reconciler) finish(ctx context.Context, log *clog.Logger, rep *model.RunReport) (*model.RunReport, error) {
	rep.FinishedAt = r.now()

	for _, s := range rep.Imported {
		if s.Failed() {
			log.Warn("import rejected", "pubkey", s.Pubkey, "status", s.Status, "message", s.Message)
		}
	}
	for _, s := range rep.Deleted {
		if s.Failed() {
			log.Warn("delete rejected", "pubkey", s.Pubkey, "status", s.Status, "message", s.Message)
		}
	}

	for _, o := range r.opts.Observers {
		if err := o.ObserveRun(ctx, rep); err != nil {
			log.Warn("run observer failed", "err", err)
		}
	}

	err := rep.Err()
	if err != nil {
		log.Error("run finished with errors", "outcome", rep.Outcome(), "err", err, "took", rep.Duration())
	} else {
		log.Info("run finished", "outcome", rep.Outcome(), "added", rep.AddedCount(), "removed", rep.RemovedCount(), "took", rep.Duration())
	}
	return rep, err
}
