// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the keysync command line using Cobra. It loads and
// validates configuration, builds the signer and key manager clients and
// hands them to the reconciler. Business logic lives in internal/reconcile;
// commands here stay thin.
package cli
