// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package reconcile

import "github.com/toeirei/keysync/internal/model"

// Diff computes the plan that converges client onto remote.
//
// ToAdd keeps the order of remote and ToRemove keeps the order of client.
// Duplicate entries inside one input are not collapsed: a key listed twice
// by the signer and absent on the client appears twice in ToAdd.
func Diff(remote, client model.KeySet) model.Plan {
	inRemote := index(remote)
	inClient := index(client)

	var plan model.Plan
	for _, k := range remote {
		if _, ok := inClient[k]; !ok {
			plan.ToAdd = append(plan.ToAdd, k)
		}
	}
	for _, k := range client {
		if _, ok := inRemote[k]; !ok {
			plan.ToRemove = append(plan.ToRemove, k)
		}
	}
	return plan
}

func index(keys model.KeySet) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
