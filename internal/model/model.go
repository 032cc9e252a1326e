package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// Phase identifies which step of a node's deployment produced an outcome.
type Phase string

const (
	// PhaseTransfer is the unprivileged upload into the node's home directory.
	PhaseTransfer Phase = "transfer"
	// PhasePlacement is the privileged move from the staging name to the target path.
	PhasePlacement Phase = "placement"
	// PhaseProbe is a connectivity check without any file involvement.
	PhaseProbe Phase = "probe"
)

// Status is the terminal result of a phase on one node.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// DeploymentRequest describes one file push: the local file to read and the
// absolute path it must occupy on every node. StagingName is the file name
// used in the remote home directory between the two phases.
type DeploymentRequest struct {
	SourcePath  string
	TargetPath  string
	StagingName string
}

// NewDeploymentRequest derives the staging name from the source's base name.
func NewDeploymentRequest(source, target string) DeploymentRequest {
	return DeploymentRequest{
		SourcePath:  source,
		TargetPath:  target,
		StagingName: filepath.Base(source),
	}
}

// NodeOutcome records what happened to a single phase on a single node.
// One push produces one transfer outcome per roster entry and, when the
// transfer succeeded, one placement outcome. Seq is the entry's position in
// the roster; it keeps duplicate node names apart.
type NodeOutcome struct {
	Seq       int       `json:"seq"`
	Node      string    `json:"node"`
	Phase     Phase     `json:"phase"`
	Status    Status    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether the outcome is a failure.
func (o NodeOutcome) Failed() bool { return o.Status == StatusFailure }

// Level maps the outcome onto an audit log level.
func (o NodeOutcome) Level() string {
	if o.Failed() {
		return "ERROR"
	}
	return "INFO"
}

// Message renders the human-readable audit phrase for the outcome.
func (o NodeOutcome) Message() string {
	verb := "succeeded"
	if o.Failed() {
		verb = "failed"
	}
	msg := fmt.Sprintf("%s %s for node %s", o.Phase, verb, o.Node)
	if o.Failed() && o.Detail != "" {
		msg += ": " + o.Detail
	}
	return msg
}

// RunRecord is one invocation of a deployment command, as kept in the
// history store. FinishedAt is nil while a run is in flight.
type RunRecord struct {
	ID         int64      `json:"id"`
	Command    string     `json:"command"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	NodeCount  int        `json:"node_count"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ActionEntry is one row of the operator action log (who ran what, when).
type ActionEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

// HistoryEntry pairs an outcome with the run it belongs to, for display.
type HistoryEntry struct {
	RunID   int64
	Source  string
	Target  string
	Outcome NodeOutcome
}

// RunExport is a run record together with all its outcomes.
type RunExport struct {
	RunRecord
	Outcomes []NodeOutcome `json:"outcomes"`
}

// ExportData is the container written by a history export.
type ExportData struct {
	SchemaVersion int           `json:"schema_version"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Runs          []RunExport   `json:"runs"`
	ActionLog     []ActionEntry `json:"action_log"`
}

// ExportSchemaVersion tracks the export container layout.
const ExportSchemaVersion = 1
