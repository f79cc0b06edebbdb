// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/keysync/internal/config"
	"github.com/toeirei/keysync/internal/i18n"
	"github.com/toeirei/keysync/internal/logging"
	"github.com/toeirei/keysync/internal/metrics"
	"github.com/toeirei/keysync/internal/reconcile"
	"github.com/toeirei/keysync/internal/scheduler"
)

// newWatchCmd represents the 'watch' command. It reconciles on a schedule
// until interrupted.
func newWatchCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile on a schedule until interrupted",
		Long: `Runs the reconciliation on a cron schedule (default "@every 1m"). A tick
that fires while the previous run is still active is skipped. SIGINT or
SIGTERM stops the schedule after the active run completes.

When metrics.listen is set, Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := validatedConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !c.Reconciles() {
				_, _ = fmt.Fprintln(out, i18n.T("mode.development"))
				return nil
			}

			st, err := openHistory(c)
			if err != nil {
				return err
			}
			defer closeHistory(st)

			m := metrics.New()
			observers := []reconcile.RunObserver{m}
			if st != nil {
				observers = append(observers, st)
			}
			rec := newReconciler(c, false, observers...)

			sched, err := scheduler.New(c.Schedule, watchJob(rec, out))
			if err != nil {
				return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if c.Metrics.Listen != "" {
				srv := serveMetrics(c.Metrics.Listen, m)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			logging.L.Info(i18n.T("watch.started", c.Schedule))
			err = sched.Run(ctx, runNow)
			logging.L.Info(i18n.T("watch.stopped"))
			return err
		},
	}
	cmd.Flags().String("schedule", "", `Cron schedule or descriptor (default "@every 1m")`)
	cmd.Flags().String("metrics.listen", "", "Serve Prometheus metrics on this address, e.g. :9101")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Also run once immediately")
	return cmd
}

// watchJob runs one reconciliation and prints the report when something
// changed or failed. Errors are already logged by the reconciler.
func watchJob(rec *reconcile.Reconciler, out io.Writer) scheduler.Job {
	return func(ctx context.Context) {
		rep, err := rec.Run(ctx)
		if err != nil || !rep.Plan.Empty() {
			renderReport(out, rep)
		}
	}
}

func serveMetrics(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("metrics server: %v", err)
		}
	}()
	logging.Infof("serving metrics on %s/metrics", addr)
	return srv
}
