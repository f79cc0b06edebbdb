// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/toeirei/keysync/internal/config"
	"github.com/toeirei/keysync/internal/db"
	"github.com/toeirei/keysync/internal/keymanager"
	"github.com/toeirei/keysync/internal/logging"
	"github.com/toeirei/keysync/internal/reconcile"
	"github.com/toeirei/keysync/internal/signer"
)

// validatedConfig returns appConfig or a configuration error listing every
// problem found.
func validatedConfig() (config.Config, error) {
	return appConfig, appConfig.Validate()
}

// newReconciler builds the signer and key manager clients from c.
func newReconciler(c config.Config, dryRun bool, observers ...reconcile.RunObserver) *reconcile.Reconciler {
	remote := signer.New(c.Signer.URL, c.HTTP.Timeout)
	client := keymanager.New(c.Client.URL, c.HTTP.Timeout)
	return reconcile.New(remote, client, reconcile.Options{
		SignerURL: remote.BaseURL(),
		DryRun:    dryRun,
		Observers: observers,
	})
}

// openHistory opens the run history store, or returns nil when history.dsn
// is empty.
func openHistory(c config.Config) (*db.Store, error) {
	if c.History.DSN == "" {
		return nil, nil
	}
	st, err := db.Open(c.History.Type, c.History.DSN)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	logging.Debugf("recording run history in %s database", c.History.Type)
	return st, nil
}

func closeHistory(st *db.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logging.Warnf("closing run history: %v", err)
	}
}
