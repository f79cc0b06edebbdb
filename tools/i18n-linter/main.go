// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the report catalogs for consistency. It scans the Go
// sources for message IDs and compares them with the YAML catalogs under
// internal/i18n/locales.
//
// Usage, from the repository root:
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var (
	// i18n.T("report.title", ...)
	callRe = regexp.MustCompile(`i18n\.T\("([^"]+)"`)
	// Message IDs passed around as plain literals, e.g. "report.no_add".
	literalRe = regexp.MustCompile(`"([a-z]+\.[a-z_.]+)"`)
)

// Result collects every problem found by lint.
type Result struct {
	// Undefined are IDs passed to i18n.T that the primary catalog lacks.
	Undefined []string
	// Orphaned are primary catalog IDs that no source file mentions.
	Orphaned []string
	// Missing maps a secondary catalog to the primary IDs it lacks.
	Missing map[string][]string
}

// Failed reports whether the result should fail the build. Orphaned IDs are
// only a warning.
func (r Result) Failed() bool {
	return len(r.Undefined) > 0 || len(r.Missing) > 0
}

func main() {
	res, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	report(os.Stdout, res)
	if res.Failed() {
		os.Exit(1)
	}
}

func lint(root, locales string) (Result, error) {
	res := Result{Missing: map[string][]string{}}

	called, literals, err := findUsedKeys(root)
	if err != nil {
		return res, fmt.Errorf("error finding used keys: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return res, fmt.Errorf("error loading primary locale '%s': %w", primaryLocale, err)
	}

	for key := range called {
		if _, ok := primary[key]; !ok {
			res.Undefined = append(res.Undefined, key)
		}
	}
	for key := range primary {
		_, c := called[key]
		_, l := literals[key]
		if !c && !l {
			res.Orphaned = append(res.Orphaned, key)
		}
	}
	sort.Strings(res.Undefined)
	sort.Strings(res.Orphaned)

	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return res, fmt.Errorf("error finding locale files: %w", err)
	}
	for _, file := range files {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		secondary, err := loadKeysFromLocale(file)
		if err != nil {
			return res, fmt.Errorf("error loading %s: %w", file, err)
		}
		var missing []string
		for key := range primary {
			if _, ok := secondary[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			res.Missing[filepath.Base(file)] = missing
		}
	}
	return res, nil
}

func report(w io.Writer, res Result) {
	_, _ = fmt.Fprintln(w, "--- Undefined message IDs (used with i18n.T but not in the primary locale) ---")
	printList(w, "Undefined", res.Undefined)
	_, _ = fmt.Fprintln(w, "--- Orphaned message IDs (in the primary locale but never used) ---")
	printList(w, "Orphaned", res.Orphaned)
	_, _ = fmt.Fprintln(w, "--- Missing translations ---")
	if len(res.Missing) == 0 {
		_, _ = fmt.Fprintln(w, "  ✨ All keys present.")
	}
	names := make([]string, 0, len(res.Missing))
	for name := range res.Missing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s:\n", name)
		printList(w, "Missing", res.Missing[name])
	}

	switch {
	case res.Failed():
		_, _ = fmt.Fprintln(w, "❌ Found issues that need to be addressed.")
	case len(res.Orphaned) > 0:
		_, _ = fmt.Fprintln(w, "⚠️  Found orphaned keys. Please consider removing them.")
	default:
		_, _ = fmt.Fprintln(w, "✅ All translation files are consistent!")
	}
}

func printList(w io.Writer, label string, keys []string) {
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(w, "  ✨ None found.")
		return
	}
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  - %s: %s\n", label, k)
	}
}

// findUsedKeys scans non-test .go files below root. It returns the IDs passed
// directly to i18n.T and every other literal that looks like a message ID.
func findUsedKeys(root string) (called, literals map[string]struct{}, err error) {
	called = make(map[string]struct{})
	literals = make(map[string]struct{})
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && (info.Name() == "tools" || info.Name() == "_examples") {
			return filepath.SkipDir
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range callRe.FindAllStringSubmatch(string(content), -1) {
			called[m[1]] = struct{}{}
		}
		for _, m := range literalRe.FindAllStringSubmatch(string(content), -1) {
			literals[m[1]] = struct{}{}
		}
		return nil
	})
	return called, literals, err
}

// loadKeysFromLocale reads a catalog and returns its message IDs. Nested
// maps are flattened with dots, so both layouts are accepted.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
