// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import "fmt"

// NodeState tracks one roster entry through its push. The lifecycle is
// deliberately explicit: a node must pass through transferred before it can
// be placed, and every failure state is terminal.
type NodeState string

const (
	StatePending         NodeState = "pending"
	StateTransferred     NodeState = "transferred"
	StatePlaced          NodeState = "placed"
	StateTransferFailed  NodeState = "transfer_failed"
	StatePlacementFailed NodeState = "placement_failed"
)

// validTransitions maps each state to the set of states it may move to.
// Terminal states map to nothing.
var validTransitions = map[NodeState][]NodeState{
	StatePending:     {StateTransferred, StateTransferFailed},
	StateTransferred: {StatePlaced, StatePlacementFailed},
}

// Terminal reports whether the node is done, successfully or not.
func (s NodeState) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Succeeded reports whether the node completed both phases.
func (s NodeState) Succeeded() bool { return s == StatePlaced }

// nodeRun holds the evolving state of one roster entry.
type nodeRun struct {
	state NodeState
}

func newNodeRun() *nodeRun { return &nodeRun{state: StatePending} }

// to moves the node to the next state, rejecting anything the lifecycle
// does not allow. A rejection is a programming error in the engine, never
// an effect of remote failures.
func (n *nodeRun) to(next NodeState) error {
	for _, allowed := range validTransitions[n.state] {
		if allowed == next {
			n.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid node state transition %s -> %s", n.state, next)
}
