// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toeirei/keysync/internal/model"
)

var (
	// ErrRemoteUnavailable is returned when the signer's key list could not be fetched or parsed.
	ErrRemoteUnavailable = errors.New("remote signer unavailable")
	// ErrClientUnavailable is returned when the client's key list could not be fetched or parsed.
	ErrClientUnavailable = errors.New("client key manager unavailable")
	// ErrImportFailed marks a failed or partially rejected import.
	ErrImportFailed = errors.New("import failed")
	// ErrDeleteFailed marks a failed or partially rejected delete.
	ErrDeleteFailed = errors.New("delete failed")
)

// WriteError describes a failed write phase. Statuses holds whatever per-key
// results the key manager returned, which may be empty if the call itself failed.
type WriteError struct {
	Op       string // "import" or "delete"
	Statuses []model.KeyStatus
	Err      error
}

func (e *WriteError) Error() string {
	var b strings.Builder
	b.WriteString(e.sentinel().Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if n := model.CountFailed(e.Statuses); n > 0 {
		fmt.Fprintf(&b, " (%d of %d keys rejected)", n, len(e.Statuses))
	}
	return b.String()
}

// Is lets errors.Is match the phase sentinel.
func (e *WriteError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *WriteError) Unwrap() error { return e.Err }

// Failed returns only the rejected statuses.
func (e *WriteError) Failed() []model.KeyStatus {
	var out []model.KeyStatus
	for _, s := range e.Statuses {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

func (e *WriteError) sentinel() error {
	if e.Op == opDelete {
		return ErrDeleteFailed
	}
	return ErrImportFailed
}

const (
	opImport = "import"
	opDelete = "delete"
)

// checkStatuses turns a write response into a *WriteError when the call
// failed or any key was rejected.
func checkStatuses(op string, statuses []model.KeyStatus, err error) error {
	if err == nil && model.CountFailed(statuses) == 0 {
		return nil
	}
	return &WriteError{Op: op, Statuses: statuses, Err: err}
}
