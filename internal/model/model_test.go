// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"strings"
	"testing"
)

func TestNewDeploymentRequest(t *testing.T) {
	req := NewDeploymentRequest("./conf/core-site.xml", "/opt/hadoop/etc/hadoop/core-site.xml")
	if req.StagingName != "core-site.xml" {
		t.Errorf("unexpected staging name: %q", req.StagingName)
	}
	if req.SourcePath != "./conf/core-site.xml" || req.TargetPath != "/opt/hadoop/etc/hadoop/core-site.xml" {
		t.Errorf("paths not preserved: %+v", req)
	}
}

func TestNodeOutcomeMessage(t *testing.T) {
	tests := []struct {
		name    string
		outcome NodeOutcome
		want    string
	}{
		{
			name:    "transfer success",
			outcome: NodeOutcome{Node: "h1", Phase: PhaseTransfer, Status: StatusSuccess},
			want:    "transfer succeeded for node h1",
		},
		{
			name:    "placement failure with detail",
			outcome: NodeOutcome{Node: "h2", Phase: PhasePlacement, Status: StatusFailure, Detail: "exit status 1"},
			want:    "placement failed for node h2: exit status 1",
		},
		{
			name:    "failure without detail",
			outcome: NodeOutcome{Node: "h3", Phase: PhaseTransfer, Status: StatusFailure},
			want:    "transfer failed for node h3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeOutcomeLevel(t *testing.T) {
	ok := NodeOutcome{Status: StatusSuccess}
	if ok.Level() != "INFO" || ok.Failed() {
		t.Errorf("success outcome misclassified: level=%q failed=%v", ok.Level(), ok.Failed())
	}
	bad := NodeOutcome{Status: StatusFailure}
	if bad.Level() != "ERROR" || !bad.Failed() {
		t.Errorf("failure outcome misclassified: level=%q failed=%v", bad.Level(), bad.Failed())
	}
}

func TestMessageNeverMentionsDetailOnSuccess(t *testing.T) {
	o := NodeOutcome{Node: "h1", Phase: PhasePlacement, Status: StatusSuccess, ExitCode: 0, Detail: "ignored"}
	if strings.Contains(o.Message(), "ignored") {
		t.Errorf("success message leaked detail: %q", o.Message())
	}
}
