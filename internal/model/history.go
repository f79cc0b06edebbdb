// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "time"

// RunOutcome classifies a finished run for the history log and metrics.
type RunOutcome string

const (
	// OutcomeSuccess means every applicable step completed.
	OutcomeSuccess RunOutcome = "success"
	// OutcomeNoop means both sets already matched and no write was issued.
	OutcomeNoop RunOutcome = "noop"
	// OutcomePartial means at least one write phase failed.
	OutcomePartial RunOutcome = "partial"
	// OutcomeAborted means a read phase failed and no plan was computed.
	OutcomeAborted RunOutcome = "aborted"
	// OutcomeDryRun means the plan was computed but not applied.
	OutcomeDryRun RunOutcome = "dry_run"
)

// Outcome derives the RunOutcome of a completed report.
func (r *RunReport) Outcome() RunOutcome {
	switch {
	case r.ReadErr != nil:
		return OutcomeAborted
	case r.DryRun:
		return OutcomeDryRun
	case !r.Succeeded():
		return OutcomePartial
	case r.Plan.Empty():
		return OutcomeNoop
	default:
		return OutcomeSuccess
	}
}

// RunRecord is a persisted summary of a run, as listed by `keysync history`.
type RunRecord struct {
	ID          int        `json:"id"`
	RunID       string     `json:"run_id"`
	DryRun      bool       `json:"dry_run,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Outcome     RunOutcome `json:"outcome"`
	RemoteCount int        `json:"remote_count"`
	ClientCount int        `json:"client_count"`
	Added       int        `json:"added"`
	Removed     int        `json:"removed"`
	Error       string     `json:"error,omitempty"`
}

// Write actions recorded in KeyAction.Action.
const (
	ActionImport = "import"
	ActionDelete = "delete"
)

// KeyAction is a persisted per-key write outcome belonging to a run.
type KeyAction struct {
	RunID   string `json:"run_id"`
	Action  string `json:"action"`
	Pubkey  string `json:"pubkey"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
