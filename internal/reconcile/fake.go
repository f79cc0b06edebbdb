// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package reconcile

import (
	"context"

	"github.com/toeirei/keysync/internal/model"
)

// StaticLister is a KeyLister returning a fixed set or error.
type StaticLister struct {
	Keys model.KeySet
	Err  error
}

// ListKeys implements KeyLister.
func (s StaticLister) ListKeys(context.Context) (model.KeySet, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append(model.KeySet(nil), s.Keys...), nil
}

// FakeKeyManager is an in-memory KeyManager that behaves like the key
// manager API: importing a present key yields "duplicate" and deleting an
// absent key yields "not_found". Tests can force errors or per-key statuses.
type FakeKeyManager struct {
	Keys     model.KeySet
	Bindings map[string]string

	ListErr   error
	ImportErr error
	DeleteErr error
	// Reject maps a pubkey to a message; writes touching it report "error".
	Reject map[string]string

	ImportCalls [][]model.SignerBinding
	DeleteCalls []model.KeySet
}

// ListKeys implements KeyLister.
func (f *FakeKeyManager) ListKeys(context.Context) (model.KeySet, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append(model.KeySet(nil), f.Keys...), nil
}

// ImportKeys implements KeyWriter.
func (f *FakeKeyManager) ImportKeys(_ context.Context, keys []model.SignerBinding) ([]model.KeyStatus, error) {
	f.ImportCalls = append(f.ImportCalls, keys)
	if f.ImportErr != nil {
		return nil, f.ImportErr
	}
	if f.Bindings == nil {
		f.Bindings = map[string]string{}
	}
	out := make([]model.KeyStatus, 0, len(keys))
	for _, b := range keys {
		switch msg, rejected := f.Reject[b.Pubkey]; {
		case rejected:
			out = append(out, model.KeyStatus{Pubkey: b.Pubkey, Status: model.StatusError, Message: msg})
		case f.Keys.Contains(b.Pubkey):
			out = append(out, model.KeyStatus{Pubkey: b.Pubkey, Status: model.StatusDuplicate})
		default:
			f.Keys = append(f.Keys, b.Pubkey)
			f.Bindings[b.Pubkey] = b.URL
			out = append(out, model.KeyStatus{Pubkey: b.Pubkey, Status: model.StatusImported})
		}
	}
	return out, nil
}

// DeleteKeys implements KeyWriter.
func (f *FakeKeyManager) DeleteKeys(_ context.Context, keys model.KeySet) ([]model.KeyStatus, error) {
	f.DeleteCalls = append(f.DeleteCalls, keys)
	if f.DeleteErr != nil {
		return nil, f.DeleteErr
	}
	out := make([]model.KeyStatus, 0, len(keys))
	for _, k := range keys {
		if msg, rejected := f.Reject[k]; rejected {
			out = append(out, model.KeyStatus{Pubkey: k, Status: model.StatusError, Message: msg})
			continue
		}
		if !f.Keys.Contains(k) {
			out = append(out, model.KeyStatus{Pubkey: k, Status: model.StatusNotFound})
			continue
		}
		f.Keys = remove(f.Keys, k)
		delete(f.Bindings, k)
		out = append(out, model.KeyStatus{Pubkey: k, Status: model.StatusDeleted})
	}
	return out, nil
}

func remove(keys model.KeySet, k string) model.KeySet {
	out := keys[:0]
	for _, v := range keys {
		if v != k {
			out = append(out, v)
		}
	}
	return out
}
