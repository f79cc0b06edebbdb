// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/toeirei/keysync/internal/model"
	"github.com/uptrace/bun"
)

// MaxTextLen caps the bytes stored for run errors and key action messages.
// It fits a MySQL TEXT column.
const MaxTextLen = 16 << 10

// DefaultListLimit is the number of runs returned by ListRuns when limit <= 0.
const DefaultListLimit = 20

// Store records and lists runs. It is safe for concurrent use.
type Store struct {
	bun    *bun.DB
	dbType string
}

// Type returns the database type the store was opened with.
func (s *Store) Type() string {
	return s.dbType
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.bun.Close()
}

// RecordRun stores the summary of rep and one key action per write status in
// a single transaction.
func (s *Store) RecordRun(ctx context.Context, rep *model.RunReport) error {
	run := SyncRunModel{
		RunID:       rep.RunID,
		DryRun:      rep.DryRun,
		StartedAt:   rep.StartedAt.UTC(),
		FinishedAt:  rep.FinishedAt.UTC(),
		Outcome:     string(rep.Outcome()),
		RemoteCount: rep.RemoteCount,
		ClientCount: rep.ClientCount,
		Added:       rep.AddedCount(),
		Removed:     rep.RemovedCount(),
	}
	if err := rep.Err(); err != nil {
		run.Error = truncateText(err.Error())
	}

	actions := make([]KeyActionModel, 0, len(rep.Imported)+len(rep.Deleted))
	for _, st := range rep.Imported {
		actions = append(actions, KeyActionModel{RunID: rep.RunID, Action: model.ActionImport, Pubkey: st.Pubkey, Status: st.Status, Message: truncateText(st.Message)})
	}
	for _, st := range rep.Deleted {
		actions = append(actions, KeyActionModel{RunID: rep.RunID, Action: model.ActionDelete, Pubkey: st.Pubkey, Status: st.Status, Message: truncateText(st.Message)})
	}

	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&run).Exec(ctx); err != nil {
			return fmt.Errorf("insert run %s: %w", rep.RunID, MapDBError(err))
		}
		if len(actions) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&actions).Exec(ctx); err != nil {
			return fmt.Errorf("insert key actions for run %s: %w", rep.RunID, err)
		}
		return nil
	})
}

// ObserveRun records rep. It lets the store be registered as a run observer.
func (s *Store) ObserveRun(ctx context.Context, rep *model.RunReport) error {
	return s.RecordRun(ctx, rep)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows []SyncRunModel
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("id DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.RunRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, syncRunToModel(r))
	}
	return out, nil
}

// KeyActions returns the key actions of a run in the order they were recorded.
func (s *Store) KeyActions(ctx context.Context, runID string) ([]model.KeyAction, error) {
	var rows []KeyActionModel
	if err := s.bun.NewSelect().Model(&rows).Where("run_id = ?", runID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.KeyAction, 0, len(rows))
	for _, r := range rows {
		out = append(out, keyActionToModel(r))
	}
	return out, nil
}

// KeyHistory returns every recorded action for pubkey, oldest first.
func (s *Store) KeyHistory(ctx context.Context, pubkey string) ([]model.KeyAction, error) {
	var rows []KeyActionModel
	if err := s.bun.NewSelect().Model(&rows).Where("pubkey = ?", pubkey).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.KeyAction, 0, len(rows))
	for _, r := range rows {
		out = append(out, keyActionToModel(r))
	}
	return out, nil
}

// truncateText cuts s to at most MaxTextLen bytes on a rune boundary.
func truncateText(s string) string {
	if len(s) <= MaxTextLen {
		return s
	}
	cut := MaxTextLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
