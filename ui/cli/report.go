// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/keysync/internal/i18n"
	"github.com/toeirei/keysync/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8655B1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	keyStyle   = lipgloss.NewStyle().PaddingLeft(2)
)

// renderReport writes a human readable summary of rep to w.
func renderReport(w io.Writer, rep *model.RunReport) {
	if rep == nil {
		return
	}
	lines := []string{
		titleStyle.Render(i18n.T("report.title")),
		dimStyle.Render(i18n.T("report.run_id", rep.RunID)),
	}

	if rep.ReadErr != nil {
		lines = append(lines, errStyle.Render(i18n.T("report.read_failed", rep.ReadErr)))
		_, _ = fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
		return
	}

	lines = append(lines, i18n.T("report.counts", rep.RemoteCount, rep.ClientCount))
	if rep.Plan.Empty() {
		lines = append(lines, okStyle.Render(i18n.T("report.in_sync")))
	} else if rep.DryRun {
		lines = append(lines, i18n.T("report.to_add", len(rep.Plan.ToAdd)))
		lines = append(lines, planLines(rep.Plan.ToAdd, "+")...)
		lines = append(lines, i18n.T("report.to_remove", len(rep.Plan.ToRemove)))
		lines = append(lines, planLines(rep.Plan.ToRemove, "-")...)
		lines = append(lines, warnStyle.Render(i18n.T("report.dry_run")))
	} else {
		lines = append(lines, writeLines(rep.Plan.ToAdd, rep.Imported, rep.ImportErr, "report.added", "report.no_add", "report.import_failed")...)
		lines = append(lines, writeLines(rep.Plan.ToRemove, rep.Deleted, rep.DeleteErr, "report.removed", "report.no_remove", "report.delete_failed")...)
	}

	lines = append(lines, dimStyle.Render(i18n.T("report.finished", rep.Duration().Round(time.Millisecond))))
	_, _ = fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func planLines(keys model.KeySet, sign string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyStyle.Render(sign+" "+k))
	}
	return out
}

// writeLines renders one write phase: a summary line, one line per key status
// and the phase error, if any.
func writeLines(planned model.KeySet, statuses []model.KeyStatus, err error, doneID, noneID, failedID string) []string {
	if len(planned) == 0 {
		return []string{dimStyle.Render(i18n.T(noneID))}
	}
	accepted := len(statuses) - model.CountFailed(statuses)
	summary := i18n.T(doneID, accepted, len(planned))
	var out []string
	if err != nil {
		out = append(out, errStyle.Render(summary))
	} else {
		out = append(out, okStyle.Render(summary))
	}
	for _, s := range statuses {
		style := okStyle
		if s.Failed() {
			style = errStyle
		}
		out = append(out, keyStyle.Render(style.Render(s.String())))
	}
	if err != nil {
		out = append(out, errStyle.Render(i18n.T(failedID, err)))
	}
	return out
}
