// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Keysync.
//
// Usage:
//
//	go run . run
//	./keysync watch --schedule "@every 1m"
//
// See --help for all commands and options.
package main

import (
	"os"

	"github.com/toeirei/keysync/internal/logging"
	"github.com/toeirei/keysync/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(cli.ExitCode(err))
	}
}
