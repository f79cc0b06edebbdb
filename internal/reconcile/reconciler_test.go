// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package reconcile

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/toeirei/keysync/internal/model"
)

const signerURL = "https://web3signer.web3signer.dappnode:9000"

type recordingObserver struct {
	reports []*model.RunReport
	err     error
}

func (o *recordingObserver) ObserveRun(_ context.Context, rep *model.RunReport) error {
	o.reports = append(o.reports, rep)
	return o.err
}

func newTestReconciler(remote KeyLister, client KeyManager, opts Options) *Reconciler {
	r := New(remote, client, opts)
	r.newID = func() string { return "run-1" }
	return r
}

func TestRun_ImportsAndDeletes(t *testing.T) {
	client := &FakeKeyManager{Keys: model.KeySet{"C", "D", "E"}}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"A", "B", "C"}}, client, Options{SignerURL: signerURL})

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rep.RunID != "run-1" {
		t.Fatalf("RunID = %q", rep.RunID)
	}
	if rep.RemoteCount != 3 || rep.ClientCount != 3 {
		t.Fatalf("counts = %d/%d, want 3/3", rep.RemoteCount, rep.ClientCount)
	}
	if rep.AddedCount() != 2 || rep.RemovedCount() != 2 {
		t.Fatalf("added/removed = %d/%d, want 2/2", rep.AddedCount(), rep.RemovedCount())
	}
	if !slices.Equal(client.Keys, model.KeySet{"C", "A", "B"}) {
		t.Fatalf("client keys = %v", client.Keys)
	}
	for _, k := range []string{"A", "B"} {
		if client.Bindings[k] != signerURL {
			t.Fatalf("key %s bound to %q, want signer URL", k, client.Bindings[k])
		}
	}
	if rep.Outcome() != model.OutcomeSuccess {
		t.Fatalf("outcome = %s", rep.Outcome())
	}
}

func TestRun_IdenticalSetsIssueNoWrites(t *testing.T) {
	client := &FakeKeyManager{Keys: model.KeySet{"Z", "Y", "X"}}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"X", "Y", "Z"}}, client, Options{SignerURL: signerURL})

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(client.ImportCalls) != 0 || len(client.DeleteCalls) != 0 {
		t.Fatalf("expected no write calls, got %d imports and %d deletes", len(client.ImportCalls), len(client.DeleteCalls))
	}
	if rep.Outcome() != model.OutcomeNoop {
		t.Fatalf("outcome = %s, want noop", rep.Outcome())
	}
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	client := &FakeKeyManager{Keys: model.KeySet{"K1", "K9"}}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"K1", "K2", "K3"}}, client, Options{SignerURL: signerURL})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !rep.Plan.Empty() {
		t.Fatalf("second run plan = %+v, want empty", rep.Plan)
	}
	if len(client.ImportCalls) != 1 || len(client.DeleteCalls) != 1 {
		t.Fatalf("write calls = %d/%d, want 1/1", len(client.ImportCalls), len(client.DeleteCalls))
	}
}

func TestRun_OnlyNeededWritesAreIssued(t *testing.T) {
	client := &FakeKeyManager{Keys: model.KeySet{"K2"}}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"K1", "K2", "K3"}}, client, Options{SignerURL: signerURL})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.ImportCalls) != 1 || len(client.DeleteCalls) != 0 {
		t.Fatalf("write calls = %d/%d, want 1/0", len(client.ImportCalls), len(client.DeleteCalls))
	}
	got := []string{client.ImportCalls[0][0].Pubkey, client.ImportCalls[0][1].Pubkey}
	if !slices.Equal(got, []string{"K1", "K3"}) {
		t.Fatalf("imported %v, want [K1 K3] in signer order", got)
	}
}

func TestRun_RemoteUnavailableAbortsBeforeWrites(t *testing.T) {
	cause := errors.New("connection refused")
	client := &FakeKeyManager{Keys: model.KeySet{"A"}}
	obs := &recordingObserver{}
	r := newTestReconciler(StaticLister{Err: cause}, client, Options{Observers: []RunObserver{obs}})

	rep, err := r.Run(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrRemoteUnavailable wrapping cause", err)
	}
	if rep == nil || rep.Outcome() != model.OutcomeAborted {
		t.Fatalf("expected aborted report, got %+v", rep)
	}
	if len(client.ImportCalls)+len(client.DeleteCalls) != 0 {
		t.Fatalf("no writes expected after a read failure")
	}
	if len(obs.reports) != 1 {
		t.Fatalf("observer called %d times, want 1", len(obs.reports))
	}
}

func TestRun_ClientUnavailableAbortsBeforeWrites(t *testing.T) {
	client := &FakeKeyManager{ListErr: errors.New("bad json")}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"A"}}, client, Options{})

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrClientUnavailable) {
		t.Fatalf("err = %v, want ErrClientUnavailable", err)
	}
	if errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("client failure must not be reported as remote failure")
	}
	if len(client.ImportCalls)+len(client.DeleteCalls) != 0 {
		t.Fatalf("no writes expected after a read failure")
	}
}

func TestRun_ImportFailureDoesNotSuppressDelete(t *testing.T) {
	client := &FakeKeyManager{Keys: model.KeySet{"OLD"}, ImportErr: errors.New("503 service unavailable")}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"NEW"}}, client, Options{SignerURL: signerURL})

	rep, err := r.Run(context.Background())
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("err = %v, want ErrImportFailed", err)
	}
	if errors.Is(err, ErrDeleteFailed) {
		t.Fatalf("delete did not fail but error says it did: %v", err)
	}
	if len(client.DeleteCalls) != 1 {
		t.Fatalf("delete attempted %d times, want 1", len(client.DeleteCalls))
	}
	if rep.RemovedCount() != 1 || rep.DeleteErr != nil {
		t.Fatalf("delete phase should have succeeded: %+v", rep)
	}
	if rep.Outcome() != model.OutcomePartial {
		t.Fatalf("outcome = %s, want partial", rep.Outcome())
	}
}

func TestRun_BothWritePhasesFail(t *testing.T) {
	client := &FakeKeyManager{
		Keys:      model.KeySet{"OLD"},
		ImportErr: errors.New("import boom"),
		DeleteErr: errors.New("delete boom"),
	}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"NEW"}}, client, Options{})

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrImportFailed) || !errors.Is(err, ErrDeleteFailed) {
		t.Fatalf("err = %v, want both write sentinels", err)
	}
}

func TestRun_PartialImportReportsPerKeyStatus(t *testing.T) {
	client := &FakeKeyManager{
		Keys:   model.KeySet{"GONE"},
		Reject: map[string]string{"K2": "invalid pubkey"},
	}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"K1", "K2", "K3"}}, client, Options{SignerURL: signerURL})

	rep, err := r.Run(context.Background())
	var werr *WriteError
	if !errors.As(err, &werr) || werr.Op != "import" {
		t.Fatalf("err = %v, want import *WriteError", err)
	}
	failed := werr.Failed()
	if len(failed) != 1 || failed[0].Pubkey != "K2" || failed[0].Message != "invalid pubkey" {
		t.Fatalf("failed statuses = %+v", failed)
	}
	if len(rep.Imported) != 3 || rep.AddedCount() != 2 {
		t.Fatalf("imported statuses = %+v", rep.Imported)
	}
	if len(client.DeleteCalls) != 1 || rep.RemovedCount() != 1 {
		t.Fatalf("delete phase must still run, report = %+v", rep)
	}
}

func TestRun_IdempotentStatusesAreNotFailures(t *testing.T) {
	// The signer lists K1 twice; the second import of K1 reports "duplicate".
	// "GONE" is listed twice by the client; the second delete reports "not_found".
	client := &FakeKeyManager{Keys: model.KeySet{"GONE", "GONE"}}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"K1", "K1"}}, client, Options{SignerURL: signerURL})

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Imported[1].Status != model.StatusDuplicate {
		t.Fatalf("second import status = %s, want duplicate", rep.Imported[1].Status)
	}
	if rep.Deleted[1].Status != model.StatusNotFound {
		t.Fatalf("second delete status = %s, want not_found", rep.Deleted[1].Status)
	}
}

func TestRun_DryRunDoesNotWrite(t *testing.T) {
	client := &FakeKeyManager{Keys: model.KeySet{"B"}}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"A"}}, client, Options{DryRun: true})

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.ImportCalls)+len(client.DeleteCalls) != 0 {
		t.Fatalf("dry run must not write")
	}
	if !slices.Equal(rep.Plan.ToAdd, model.KeySet{"A"}) || !slices.Equal(rep.Plan.ToRemove, model.KeySet{"B"}) {
		t.Fatalf("plan = %+v", rep.Plan)
	}
	if rep.Outcome() != model.OutcomeDryRun {
		t.Fatalf("outcome = %s", rep.Outcome())
	}
}

func TestRun_ObserverErrorDoesNotFailRun(t *testing.T) {
	obs := &recordingObserver{err: errors.New("history db locked")}
	r := newTestReconciler(StaticLister{Keys: model.KeySet{"A"}}, &FakeKeyManager{}, Options{Observers: []RunObserver{obs}})

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(obs.reports) != 1 || obs.reports[0] != rep {
		t.Fatalf("observer did not receive the report")
	}
	if rep.FinishedAt.Before(rep.StartedAt) {
		t.Fatalf("FinishedAt before StartedAt")
	}
}

func TestWriteError_Message(t *testing.T) {
	err := &WriteError{Op: "delete", Statuses: []model.KeyStatus{
		{Pubkey: "A", Status: model.StatusDeleted},
		{Pubkey: "B", Status: model.StatusError, Message: "locked"},
	}}
	if got, want := err.Error(), "delete failed (1 of 2 keys rejected)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrDeleteFailed) || errors.Is(err, ErrImportFailed) {
		t.Fatalf("sentinel matching is wrong")
	}
}
