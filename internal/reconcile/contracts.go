// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package reconcile converges a consensus client's remote keys onto the set
// held by a remote signer. The contracts in this file are the only side-effect
// boundaries of a run; HTTP adapters live in internal/signer and
// internal/keymanager.
package reconcile

import (
	"context"

	"github.com/toeirei/keysync/internal/model"
)

// KeyLister lists the keys known to an endpoint. The remote signer is only
// ever consumed through this interface, so nothing in a run can modify it.
type KeyLister interface {
	ListKeys(ctx context.Context) (model.KeySet, error)
}

// KeyWriter applies changes to the client's key manager. Both methods return
// one status per submitted key, in submission order.
type KeyWriter interface {
	ImportKeys(ctx context.Context, keys []model.SignerBinding) ([]model.KeyStatus, error)
	DeleteKeys(ctx context.Context, keys model.KeySet) ([]model.KeyStatus, error)
}

// KeyManager is the full capability set of the client side.
type KeyManager interface {
	KeyLister
	KeyWriter
}

// RunObserver is notified once at the end of every run, including aborted
// ones. Metrics and the run history implement it.
type RunObserver interface {
	ObserveRun(ctx context.Context, rep *model.RunReport) error
}
