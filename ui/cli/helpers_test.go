// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
)

// fakeSigner serves a fixed keystore listing.
func fakeSigner(t *testing.T, keys ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/eth/v1/keystores" {
			t.Errorf("signer got %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		type keystore struct {
			ValidatingPubkey string `json:"validating_pubkey"`
			DerivationPath   string `json:"derivation_path"`
			Readonly         bool   `json:"readonly"`
		}
		data := make([]keystore, 0, len(keys))
		for _, k := range keys {
			data = append(data, keystore{ValidatingPubkey: k})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeKeyManager is a stateful remote key manager.
type fakeKeyManager struct {
	mu     sync.Mutex
	keys   []string
	urls   map[string]string
	writes int
}

func (f *fakeKeyManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != "/eth/v1/remotekeys" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	type status struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	var out []status

	switch r.Method {
	case http.MethodGet:
		type remoteKey struct {
			Pubkey string `json:"pubkey"`
			URL    string `json:"url"`
		}
		data := make([]remoteKey, 0, len(f.keys))
		for _, k := range f.keys {
			data = append(data, remoteKey{Pubkey: k, URL: f.urls[k]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		return
	case http.MethodPost:
		f.writes++
		var req struct {
			RemoteKeys []struct {
				Pubkey string `json:"pubkey"`
				URL    string `json:"url"`
			} `json:"remote_keys"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, k := range req.RemoteKeys {
			if slices.Contains(f.keys, k.Pubkey) {
				out = append(out, status{Status: "duplicate"})
				continue
			}
			f.keys = append(f.keys, k.Pubkey)
			f.urls[k.Pubkey] = k.URL
			out = append(out, status{Status: "imported"})
		}
	case http.MethodDelete:
		f.writes++
		var req struct {
			Pubkeys []string `json:"pubkeys"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, k := range req.Pubkeys {
			i := slices.Index(f.keys, k)
			if i < 0 {
				out = append(out, status{Status: "not_found"})
				continue
			}
			f.keys = slices.Delete(f.keys, i, i+1)
			out = append(out, status{Status: "deleted"})
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": out})
}

func (f *fakeKeyManager) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...), f.writes
}

func (f *fakeKeyManager) urlOf(pubkey string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urls[pubkey]
}

func newFakeKeyManager(t *testing.T, keys ...string) (*fakeKeyManager, *httptest.Server) {
	t.Helper()
	f := &fakeKeyManager{keys: keys, urls: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

// isolateEnv points config discovery at an empty temp dir and clears every
// environment variable keysync reads.
func isolateEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	for _, name := range []string{
		"KEYSYNC_MODE", "KEYSYNC_SIGNER_URL", "KEYSYNC_CLIENT_URL", "KEYSYNC_HTTP_TIMEOUT",
		"KEYSYNC_LOG_FORMAT", "KEYSYNC_LOG_VERBOSE", "KEYSYNC_LANGUAGE", "KEYSYNC_SCHEDULE",
		"KEYSYNC_HISTORY_TYPE", "KEYSYNC_HISTORY_DSN", "KEYSYNC_METRICS_LISTEN",
		"RUST_ENV", "WEB3SIGNER_API_URL", "ETH2_CLIENT_API_URL",
	} {
		t.Setenv(name, "")
	}
	return tmp
}

// execute runs a fresh root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
