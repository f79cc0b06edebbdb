// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/toeirei/keysync/internal/model"
	"github.com/uptrace/bun"
)

// SyncRunModel maps the sync_runs table.
type SyncRunModel struct {
	bun.BaseModel `bun:"table:sync_runs"`

	ID          int       `bun:"id,pk,autoincrement"`
	RunID       string    `bun:"run_id"`
	DryRun      bool      `bun:"dry_run"`
	StartedAt   time.Time `bun:"started_at"`
	FinishedAt  time.Time `bun:"finished_at"`
	Outcome     string    `bun:"outcome"`
	RemoteCount int       `bun:"remote_count"`
	ClientCount int       `bun:"client_count"`
	Added       int       `bun:"added"`
	Removed     int       `bun:"removed"`
	Error       string    `bun:"error"`
}

// KeyActionModel maps the key_actions table.
type KeyActionModel struct {
	bun.BaseModel `bun:"table:key_actions"`

	ID      int    `bun:"id,pk,autoincrement"`
	RunID   string `bun:"run_id"`
	Action  string `bun:"action"`
	Pubkey  string `bun:"pubkey"`
	Status  string `bun:"status"`
	Message string `bun:"message"`
}

func syncRunToModel(m SyncRunModel) model.RunRecord {
	return model.RunRecord{
		ID:          m.ID,
		RunID:       m.RunID,
		DryRun:      m.DryRun,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		Outcome:     model.RunOutcome(m.Outcome),
		RemoteCount: m.RemoteCount,
		ClientCount: m.ClientCount,
		Added:       m.Added,
		Removed:     m.Removed,
		Error:       m.Error,
	}
}

func keyActionToModel(m KeyActionModel) model.KeyAction {
	return model.KeyAction{
		RunID:   m.RunID,
		Action:  m.Action,
		Pubkey:  m.Pubkey,
		Status:  m.Status,
		Message: m.Message,
	}
}
