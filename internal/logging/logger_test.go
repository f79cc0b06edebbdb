// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// swapLogger points L at a buffer for the duration of the test.
func swapLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	t.Cleanup(func() { L = prev })
	return &buf
}

func TestLoggingHelpers_WriteToBuffer(t *testing.T) {
	buf := swapLogger(t)
	L.SetLevel(clog.DebugLevel)

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output: %s", want, out)
		}
	}
}

func TestConfigure_LevelAndFormat(t *testing.T) {
	buf := swapLogger(t)

	if err := Configure(false, "json"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	Debugf("hidden")
	WithRun("abc").Info("visible", "keys", 3)

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line emitted at info level: %s", out)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(out), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", out, err)
	}
	if line["run"] != "abc" || line["msg"] != "visible" {
		t.Fatalf("unexpected fields: %v", line)
	}
}

func TestConfigure_UnknownFormat(t *testing.T) {
	swapLogger(t)
	if err := Configure(true, "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
