// Package pipeline drives a push across a cluster roster. Nodes are
// processed strictly in roster order, one at a time. Each node goes through
// two phases: the file is copied to the remote user's home under a staging
// name, then moved to its final path with elevated rights. A failure on one
// node never stops the run; the only error that aborts is a broken audit
// sink, because a push without its trail is worthless.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/toeirei/fleetpush/internal/audit"
	"github.com/toeirei/fleetpush/internal/model"
	"github.com/toeirei/fleetpush/internal/transport"
)

// Transport is the slice of the SSH layer the pipeline drives.
type Transport interface {
	CopyToHome(node, localPath, remoteName string) error
	RunPrivileged(node, command string) (transport.Result, error)
}

// Pipeline pushes one local file to every node of a roster.
type Pipeline struct {
	transport Transport
	recorder  audit.Recorder
}

// New builds a pipeline over the given transport and audit recorder.
// Both must be non-nil.
func New(tr Transport, rec audit.Recorder) (*Pipeline, error) {
	if tr == nil {
		return nil, fmt.Errorf("pipeline: transport must not be nil")
	}
	if rec == nil {
		return nil, fmt.Errorf("pipeline: recorder must not be nil")
	}
	return &Pipeline{transport: tr, recorder: rec}, nil
}

// Summary aggregates a finished run. Outcomes appear in the order they were
// recorded; States is aligned with the roster.
type Summary struct {
	Outcomes []model.NodeOutcome
	States   []NodeState
}

// Failures counts nodes that did not reach the placed state.
func (s *Summary) Failures() int {
	n := 0
	for _, st := range s.States {
		if !st.Succeeded() {
			n++
		}
	}
	return n
}

// Placed counts nodes whose file reached its final path.
func (s *Summary) Placed() int {
	return len(s.States) - s.Failures()
}

// Run pushes the requested file to every node, sequentially and in roster
// order. Remote failures are captured per node and the run moves on; the
// returned error is non-nil only when an outcome could not be recorded.
func (p *Pipeline) Run(nodes []string, req model.DeploymentRequest) (*Summary, error) {
	sum := &Summary{States: make([]NodeState, len(nodes))}
	for i, node := range nodes {
		nr := newNodeRun()

		o := model.NodeOutcome{Seq: i, Node: node, Phase: model.PhaseTransfer}
		if copyErr := p.transport.CopyToHome(node, req.SourcePath, req.StagingName); copyErr != nil {
			o.Status = model.StatusFailure
			o.ExitCode = 1
			o.Detail = copyErr.Error()
			if err := nr.to(StateTransferFailed); err != nil {
				return nil, err
			}
		} else {
			o.Status = model.StatusSuccess
			if err := nr.to(StateTransferred); err != nil {
				return nil, err
			}
		}
		if err := p.recorder.Record(o); err != nil {
			return nil, err
		}
		sum.Outcomes = append(sum.Outcomes, o)

		if nr.state == StateTransferred {
			po := model.NodeOutcome{Seq: i, Node: node, Phase: model.PhasePlacement}
			res, runErr := p.transport.RunPrivileged(node, PlacementCommand(req))
			switch {
			case runErr != nil:
				po.Status = model.StatusFailure
				po.ExitCode = res.ExitCode
				po.Detail = runErr.Error()
			case res.ExitCode != 0:
				po.Status = model.StatusFailure
				po.ExitCode = res.ExitCode
				po.Detail = placementDetail(res)
			default:
				po.Status = model.StatusSuccess
			}
			next := StatePlaced
			if po.Failed() {
				next = StatePlacementFailed
			}
			if err := nr.to(next); err != nil {
				return nil, err
			}
			if err := p.recorder.Record(po); err != nil {
				return nil, err
			}
			sum.Outcomes = append(sum.Outcomes, po)
		}

		sum.States[i] = nr.state
	}
	return sum, nil
}

// PlacementCommand renders the privileged move for a request. The transport
// adds the sudo prefix; quoting here keeps hostile target paths from
// splitting the remote command.
func PlacementCommand(req model.DeploymentRequest) string {
	return fmt.Sprintf("mv -f -- %s %s", shellQuote(req.StagingName), shellQuote(req.TargetPath))
}

func placementDetail(res transport.Result) string {
	if res.Detail != "" {
		return res.Detail
	}
	return fmt.Sprintf("exit status %d", res.ExitCode)
}

// shellQuote wraps s in single quotes for a POSIX shell, escaping any
// embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
