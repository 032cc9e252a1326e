package pipeline

import "testing"

func TestNodeStateTransitions(t *testing.T) {
	tests := []struct {
		from, to NodeState
		ok       bool
	}{
		{StatePending, StateTransferred, true},
		{StatePending, StateTransferFailed, true},
		{StateTransferred, StatePlaced, true},
		{StateTransferred, StatePlacementFailed, true},
		{StatePending, StatePlaced, false},
		{StatePending, StatePlacementFailed, false},
		{StateTransferred, StateTransferFailed, false},
		{StatePlaced, StateTransferred, false},
		{StateTransferFailed, StatePlaced, false},
		{StatePlacementFailed, StatePending, false},
	}
	for _, tt := range tests {
		nr := &nodeRun{state: tt.from}
		err := nr.to(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s -> %s: expected rejection", tt.from, tt.to)
		}
		if tt.ok && nr.state != tt.to {
			t.Errorf("%s -> %s: state = %s", tt.from, tt.to, nr.state)
		}
		if !tt.ok && nr.state != tt.from {
			t.Errorf("%s -> %s: rejected transition moved state to %s", tt.from, tt.to, nr.state)
		}
	}
}

func TestNodeStateTerminal(t *testing.T) {
	for _, s := range []NodeState{StatePlaced, StateTransferFailed, StatePlacementFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []NodeState{StatePending, StateTransferred} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestNodeStateSucceeded(t *testing.T) {
	if !StatePlaced.Succeeded() {
		t.Error("placed should count as success")
	}
	for _, s := range []NodeState{StatePending, StateTransferred, StateTransferFailed, StatePlacementFailed} {
		if s.Succeeded() {
			t.Errorf("%s should not count as success", s)
		}
	}
}
