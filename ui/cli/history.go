// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/toeirei/keysync/internal/db"
	"github.com/toeirei/keysync/internal/i18n"
	"github.com/toeirei/keysync/internal/model"
)

var errHistoryDisabled = errors.New("run history is disabled")

// newHistoryCmd represents the 'history' command group.
func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent reconciliation runs",
		Long: `Lists the runs recorded in the run history database (history.type and
history.dsn). The history is informational only; runs never read it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(st *db.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				renderRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", db.DefaultListLimit, "Number of runs to list")
	cmd.AddCommand(newHistoryShowCmd(), newHistoryExportCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-key actions of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(st *db.Store) error {
				actions, err := st.KeyActions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(actions) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("history.no_actions", args[0]))
					return nil
				}
				renderActions(cmd.OutOrStdout(), actions)
				return nil
			})
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	var output string
	var limit int
	cmd := &cobra.Command{
		Use:   "export -o <file.json.zst>",
		Short: "Export runs and their key actions as zstd-compressed JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(st *db.Store) error {
				data, err := st.Export(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if err := writeExportFile(output, data); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("history.exported", len(data.Runs), output))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 1000, "Number of most recent runs to export")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// withHistory opens the configured history store for fn.
func withHistory(cmd *cobra.Command, fn func(st *db.Store) error) error {
	st, err := openHistory(appConfig)
	if err != nil {
		return err
	}
	if st == nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("history.disabled"))
		return errHistoryDisabled
	}
	defer closeHistory(st)
	return fn(st)
}

func writeExportFile(filename string, data *db.HistoryExport) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	if err := db.WriteExport(data, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderRuns(w io.Writer, runs []model.RunRecord) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, i18n.T("history.empty"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("RUN", "STARTED", "OUTCOME", "SIGNER", "CLIENT", "ADDED", "REMOVED", "ERROR")
	for _, r := range runs {
		t.Row(
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			string(r.Outcome),
			strconv.Itoa(r.RemoteCount),
			strconv.Itoa(r.ClientCount),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Removed),
			r.Error,
		)
	}
	_, _ = fmt.Fprintln(w, t.String())
}

func renderActions(w io.Writer, actions []model.KeyAction) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ACTION", "PUBKEY", "STATUS", "MESSAGE")
	for _, a := range actions {
		t.Row(a.Action, a.Pubkey, a.Status, a.Message)
	}
	_, _ = fmt.Fprintln(w, t.String())
}
