// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/toeirei/keysync/internal/model"
)

func TestObserveRun_Success(t *testing.T) {
	m := New()
	start := time.Unix(1700000000, 0)
	rep := &model.RunReport{
		StartedAt:   start,
		FinishedAt:  start.Add(2 * time.Second),
		RemoteCount: 3,
		ClientCount: 2,
		Plan:        model.Plan{ToAdd: model.KeySet{"A", "B"}},
		Imported: []model.KeyStatus{
			{Pubkey: "A", Status: model.StatusImported},
			{Pubkey: "B", Status: model.StatusDuplicate},
		},
	}
	if err := m.ObserveRun(context.Background(), rep); err != nil {
		t.Fatalf("ObserveRun: %v", err)
	}

	if got := testutil.ToFloat64(m.Runs.WithLabelValues("success")); got != 1 {
		t.Fatalf("success runs = %v", got)
	}
	if got := testutil.ToFloat64(m.KeyWrites.WithLabelValues("import", "imported")); got != 1 {
		t.Fatalf("imported writes = %v", got)
	}
	if got := testutil.ToFloat64(m.RemoteKeys); got != 3 {
		t.Fatalf("signer keys gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != float64(start.Add(2*time.Second).Unix()) {
		t.Fatalf("last success = %v", got)
	}
}

func TestObserveRun_AbortedKeepsGauges(t *testing.T) {
	m := New()
	m.RemoteKeys.Set(7)
	rep := &model.RunReport{ReadErr: errors.New("down")}
	_ = m.ObserveRun(context.Background(), rep)

	if got := testutil.ToFloat64(m.Runs.WithLabelValues("aborted")); got != 1 {
		t.Fatalf("aborted runs = %v", got)
	}
	if got := testutil.ToFloat64(m.RemoteKeys); got != 7 {
		t.Fatalf("gauge changed on aborted run: %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != 0 {
		t.Fatalf("last success set on aborted run: %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	_ = m.ObserveRun(context.Background(), &model.RunReport{})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `keysync_runs_total{outcome="noop"} 1`) {
		t.Fatalf("metrics output missing run counter:\n%s", body)
	}
}
