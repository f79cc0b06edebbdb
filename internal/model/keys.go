// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the data structures shared by the reconciler, the
// HTTP adapters and the run history store.
package model // import "github.com/toeirei/keysync/internal/model"

import (
	"errors"
	"fmt"
	"time"
)

// KeySet is an ordered list of validator public keys as returned by a
// key-listing endpoint. Keys are opaque hex strings compared byte for byte:
// no case folding and no "0x" prefix handling. Duplicates are kept.
type KeySet []string

// Contains reports whether pubkey is present in the set.
func (s KeySet) Contains(pubkey string) bool {
	for _, k := range s {
		if k == pubkey {
			return true
		}
	}
	return false
}

// Plan is the result of diffing the signer's keys against the client's keys.
type Plan struct {
	// ToAdd holds keys known to the signer but missing on the client, in signer order.
	ToAdd KeySet
	// ToRemove holds keys loaded on the client but unknown to the signer, in client order.
	ToRemove KeySet
}

// Empty reports whether applying the plan would issue no write calls.
func (p Plan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// SignerBinding associates a key with the URL of the remote signer that
// holds it. Bindings are created at import time only.
type SignerBinding struct {
	Pubkey string
	URL    string
}

// BindAll attaches signerURL to every key in keys.
func BindAll(keys KeySet, signerURL string) []SignerBinding {
	out := make([]SignerBinding, 0, len(keys))
	for _, k := range keys {
		out = append(out, SignerBinding{Pubkey: k, URL: signerURL})
	}
	return out
}

// Per-key statuses reported by the key manager API.
const (
	StatusImported  = "imported"
	StatusDuplicate = "duplicate"
	StatusDeleted   = "deleted"
	StatusNotFound  = "not_found"
	StatusError     = "error"
)

// KeyStatus is the outcome reported for a single submitted key.
type KeyStatus struct {
	Pubkey  string
	Status  string
	Message string
}

// Failed reports whether the key manager rejected the operation for this key.
// "duplicate" on import and "not_found" on delete mean the client already
// matches the desired state and are not failures.
func (s KeyStatus) Failed() bool {
	switch s.Status {
	case StatusImported, StatusDuplicate, StatusDeleted, StatusNotFound:
		return false
	default:
		return true
	}
}

// String returns "pubkey: status (message)".
func (s KeyStatus) String() string {
	if s.Message == "" {
		return fmt.Sprintf("%s: %s", s.Pubkey, s.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", s.Pubkey, s.Status, s.Message)
}

// CountFailed returns how many statuses in the slice are failures.
func CountFailed(statuses []KeyStatus) int {
	n := 0
	for _, s := range statuses {
		if s.Failed() {
			n++
		}
	}
	return n
}

// RunReport summarizes one reconciliation pass.
type RunReport struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	RemoteCount int
	ClientCount int
	Plan        Plan

	// Imported and Deleted hold the per-key statuses of the write phase.
	// They are nil when the corresponding write was not attempted.
	Imported []KeyStatus
	Deleted  []KeyStatus

	// ReadErr is set when listing either key set failed; no plan exists then.
	ReadErr   error
	ImportErr error
	DeleteErr error
}

// Duration is the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run completed without any error.
func (r *RunReport) Succeeded() bool {
	return r.ReadErr == nil && r.ImportErr == nil && r.DeleteErr == nil
}

// Err returns the read error or, when the reads succeeded, the joined write
// errors. It is nil for a successful run.
func (r *RunReport) Err() error {
	if r.ReadErr != nil {
		return r.ReadErr
	}
	return errors.Join(r.ImportErr, r.DeleteErr)
}

// AddedCount is the number of keys the client accepted on import.
func (r *RunReport) AddedCount() int {
	return len(r.Imported) - CountFailed(r.Imported)
}

// RemovedCount is the number of keys the client accepted on delete.
func (r *RunReport) RemovedCount() int {
	return len(r.Deleted) - CountFailed(r.Deleted)
}
