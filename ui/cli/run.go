// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/keysync/internal/i18n"
	"github.com/toeirei/keysync/internal/reconcile"
)

// newRunCmd represents the 'run' command. It performs one reconciliation
// pass and prints the report.
func newRunCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile the client's remote keys with the signer once",
		Long: `Lists the keys of the remote signer and of the client key manager, imports
every signer key the client lacks and deletes every client key the signer no
longer holds. Import and delete are attempted independently: a failed import
does not prevent the delete.

In development mode the configuration is validated and nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := validatedConfig()
			if err != nil {
				return err
			}
			if !c.Reconciles() && !dryRun {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("mode.development"))
				return nil
			}

			st, err := openHistory(c)
			if err != nil {
				return err
			}
			defer closeHistory(st)

			var observers []reconcile.RunObserver
			if st != nil {
				observers = append(observers, st)
			}
			rep, runErr := newReconciler(c, dryRun, observers...).Run(cmd.Context())
			renderReport(cmd.OutOrStdout(), rep)
			return runErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and print the plan without changing the client")
	return cmd
}

// newPlanCmd represents the 'plan' command, a shortcut for 'run --dry-run'
// that never records history.
func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show which keys a run would import and delete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := validatedConfig()
			if err != nil {
				return err
			}
			rep, runErr := newReconciler(c, true).Run(cmd.Context())
			renderReport(cmd.OutOrStdout(), rep)
			return runErr
		},
	}
}
