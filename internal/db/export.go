// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/keysync/internal/model"
)

// ExportedRun is a run together with its key actions.
type ExportedRun struct {
	model.RunRecord
	Actions []model.KeyAction `json:"actions"`
}

// HistoryExport is the document written by `keysync history export`.
type HistoryExport struct {
	ExportedAt time.Time     `json:"exported_at"`
	Runs       []ExportedRun `json:"runs"`
}

// Export collects the most recent limit runs with their key actions.
func (s *Store) Export(ctx context.Context, limit int) (*HistoryExport, error) {
	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := &HistoryExport{ExportedAt: time.Now().UTC(), Runs: make([]ExportedRun, 0, len(runs))}
	for _, r := range runs {
		actions, err := s.KeyActions(ctx, r.RunID)
		if err != nil {
			return nil, fmt.Errorf("key actions of run %s: %w", r.RunID, err)
		}
		out.Runs = append(out.Runs, ExportedRun{RunRecord: r, Actions: actions})
	}
	return out, nil
}

// WriteExport writes data as zstd-compressed, indented JSON.
func WriteExport(data *HistoryExport, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode history: %w", err)
	}
	return zw.Close()
}

// ReadExport decodes a document written by WriteExport.
func ReadExport(r io.Reader) (*HistoryExport, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data HistoryExport
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &data, nil
}
