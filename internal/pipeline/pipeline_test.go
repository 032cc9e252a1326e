// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/toeirei/fleetpush/internal/model"
	"github.com/toeirei/fleetpush/internal/testutil"
	"github.com/toeirei/fleetpush/internal/transport"
)

func testRequest() model.DeploymentRequest {
	return model.NewDeploymentRequest("./app.conf", "/etc/app/app.conf")
}

func newTestPipeline(t *testing.T, tr Transport, rec *testutil.CaptureRecorder) *Pipeline {
	t.Helper()
	p, err := New(tr, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, &testutil.CaptureRecorder{}); err == nil {
		t.Error("expected error for nil transport")
	}
	if _, err := New(testutil.NewFakeTransport(), nil); err == nil {
		t.Error("expected error for nil recorder")
	}
}

func TestRunVisitsNodesInRosterOrder(t *testing.T) {
	ft := testutil.NewFakeTransport()
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run([]string{"h1", "h2", "h3"}, testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"copy h1", "run h1", "copy h2", "run h2", "copy h3", "run h3"}
	if !reflect.DeepEqual(ft.Calls, want) {
		t.Errorf("calls = %v, want %v", ft.Calls, want)
	}
	for i, st := range sum.States {
		if st != StatePlaced {
			t.Errorf("node %d state = %s, want %s", i, st, StatePlaced)
		}
	}
	if sum.Failures() != 0 || sum.Placed() != 3 {
		t.Errorf("failures = %d placed = %d, want 0 and 3", sum.Failures(), sum.Placed())
	}
}

func TestTransferFailureSkipsPlacementButNotLaterNodes(t *testing.T) {
	ft := testutil.NewFakeTransport()
	ft.TransferErr["h1"] = errors.New("connection refused")
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run([]string{"h1", "h2"}, testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"copy h1", "copy h2", "run h2"}
	if !reflect.DeepEqual(ft.Calls, want) {
		t.Errorf("calls = %v, want %v", ft.Calls, want)
	}
	if sum.States[0] != StateTransferFailed {
		t.Errorf("h1 state = %s, want %s", sum.States[0], StateTransferFailed)
	}
	if sum.States[1] != StatePlaced {
		t.Errorf("h2 state = %s, want %s", sum.States[1], StatePlaced)
	}

	first := sum.Outcomes[0]
	if first.Node != "h1" || first.Phase != model.PhaseTransfer || !first.Failed() {
		t.Errorf("unexpected first outcome: %+v", first)
	}
	if first.ExitCode != 1 || first.Detail != "connection refused" {
		t.Errorf("exit = %d detail = %q", first.ExitCode, first.Detail)
	}
}

func TestPlacementFailureDoesNotAbortRun(t *testing.T) {
	ft := testutil.NewFakeTransport()
	ft.PlacementResult["h2"] = transport.Result{ExitCode: 1, Detail: "mv: cannot move"}
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run([]string{"h1", "h2", "h3"}, testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := sum.States[1]; got != StatePlacementFailed {
		t.Errorf("h2 state = %s, want %s", got, StatePlacementFailed)
	}
	if sum.States[2] != StatePlaced {
		t.Errorf("h3 state = %s, want %s", sum.States[2], StatePlaced)
	}

	var po *model.NodeOutcome
	for i := range sum.Outcomes {
		o := sum.Outcomes[i]
		if o.Node == "h2" && o.Phase == model.PhasePlacement {
			po = &o
		}
	}
	if po == nil {
		t.Fatal("no placement outcome for h2")
	}
	if po.ExitCode != 1 || po.Detail != "mv: cannot move" {
		t.Errorf("placement outcome = %+v", po)
	}
	if sum.Failures() != 1 {
		t.Errorf("failures = %d, want 1", sum.Failures())
	}
}

func TestPlacementTransportFailure(t *testing.T) {
	ft := testutil.NewFakeTransport()
	ft.PlacementErr["h1"] = errors.New("session setup failed")
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run([]string{"h1"}, testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	po := sum.Outcomes[1]
	if po.ExitCode != -1 {
		t.Errorf("exit = %d, want -1", po.ExitCode)
	}
	if !strings.Contains(po.Detail, "session setup failed") {
		t.Errorf("detail = %q", po.Detail)
	}
}

func TestRecorderSeesEveryOutcomeInOrder(t *testing.T) {
	ft := testutil.NewFakeTransport()
	ft.TransferErr["h2"] = errors.New("no route to host")
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	if _, err := p.Run([]string{"h1", "h2"}, testRequest()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"transfer succeeded for node h1",
		"placement succeeded for node h1",
		"transfer failed for node h2: no route to host",
	}
	if got := rec.Messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("recorded = %v, want %v", got, want)
	}
}

func TestAuditFailureAbortsRun(t *testing.T) {
	ft := testutil.NewFakeTransport()
	rec := &testutil.CaptureRecorder{FailAfter: 2}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run([]string{"h1", "h2"}, testRequest())
	if !errors.Is(err, testutil.ErrSinkBroken) {
		t.Fatalf("err = %v, want %v", err, testutil.ErrSinkBroken)
	}
	if sum != nil {
		t.Errorf("summary = %+v, want nil", sum)
	}

	// h1 finished both phases, h2's transfer happened but its outcome was
	// rejected and nothing ran after that.
	want := []string{"copy h1", "run h1", "copy h2"}
	if !reflect.DeepEqual(ft.Calls, want) {
		t.Errorf("calls = %v, want %v", ft.Calls, want)
	}
}

func TestEmptyRoster(t *testing.T) {
	ft := testutil.NewFakeTransport()
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run(nil, testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Outcomes) != 0 || len(sum.States) != 0 {
		t.Errorf("summary not empty: %+v", sum)
	}
	if len(ft.Calls) != 0 {
		t.Errorf("transport touched on empty roster: %v", ft.Calls)
	}
	if len(rec.Outcomes) != 0 {
		t.Errorf("recorder touched on empty roster: %v", rec.Outcomes)
	}
}

func TestDuplicateNodesEachDeployed(t *testing.T) {
	ft := testutil.NewFakeTransport()
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	sum, err := p.Run([]string{"h1", "h1"}, testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"copy h1", "run h1", "copy h1", "run h1"}
	if !reflect.DeepEqual(ft.Calls, want) {
		t.Errorf("calls = %v, want %v", ft.Calls, want)
	}
	if sum.Outcomes[0].Seq != 0 || sum.Outcomes[2].Seq != 1 {
		t.Errorf("seq not tracking roster position: %+v", sum.Outcomes)
	}
}

func TestRerunYieldsSameOutcomes(t *testing.T) {
	// mv -f overwrites, so pushing to an already-deployed fleet succeeds
	// the same way the first push did.
	ft := testutil.NewFakeTransport()
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	first, err := p.Run([]string{"h1", "h2"}, testRequest())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := p.Run([]string{"h1", "h2"}, testRequest())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if !reflect.DeepEqual(first.States, second.States) {
		t.Errorf("states differ between runs: %v vs %v", first.States, second.States)
	}
	for i := range second.Outcomes {
		a, b := first.Outcomes[i], second.Outcomes[i]
		if a.Node != b.Node || a.Phase != b.Phase || a.Status != b.Status {
			t.Errorf("outcome %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestPlacementCommand(t *testing.T) {
	req := model.NewDeploymentRequest("/srv/files/app.conf", "/etc/app/app.conf")
	got := PlacementCommand(req)
	want := "mv -f -- 'app.conf' '/etc/app/app.conf'"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestPlacementCommandQuotesHostilePaths(t *testing.T) {
	req := model.NewDeploymentRequest("/tmp/o'brien.conf", "/data/o'brien.conf")
	got := PlacementCommand(req)
	if !strings.Contains(got, `'o'\''brien.conf'`) {
		t.Errorf("staging name not quoted: %q", got)
	}
	if strings.Contains(got, " /data/") {
		t.Errorf("target not quoted: %q", got)
	}
}

func TestTransportReceivesPlacementCommand(t *testing.T) {
	ft := testutil.NewFakeTransport()
	rec := &testutil.CaptureRecorder{}
	p := newTestPipeline(t, ft, rec)

	req := testRequest()
	if _, err := p.Run([]string{"h1"}, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ft.Commands["h1"]; got != PlacementCommand(req) {
		t.Errorf("command = %q, want %q", got, PlacementCommand(req))
	}
}
