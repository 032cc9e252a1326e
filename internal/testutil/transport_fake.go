// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import "github.com/toeirei/fleetpush/internal/transport"

// FakeTransport is an in-memory stand-in for the SSH transport. Tests script
// per-node behavior up front and inspect the recorded calls afterwards.
type FakeTransport struct {
	// TransferErr maps node names to transfer failures.
	TransferErr map[string]error
	// PlacementResult maps node names to the result of the privileged move.
	PlacementResult map[string]transport.Result
	// PlacementErr maps node names to transport-level failures of the move.
	PlacementErr map[string]error
	// ProbeErr maps node names to connectivity probe failures.
	ProbeErr map[string]error

	// Calls records every invocation in order, as "copy <node>",
	// "run <node>" or "probe <node>".
	Calls []string
	// Commands records the last privileged command seen per node.
	Commands map[string]string
}

// NewFakeTransport returns a FakeTransport where every operation succeeds
// until a test scripts otherwise.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		TransferErr:     map[string]error{},
		PlacementResult: map[string]transport.Result{},
		PlacementErr:    map[string]error{},
		ProbeErr:        map[string]error{},
		Commands:        map[string]string{},
	}
}

func (f *FakeTransport) CopyToHome(node, localPath, remoteName string) error {
	f.Calls = append(f.Calls, "copy "+node)
	return f.TransferErr[node]
}

func (f *FakeTransport) RunPrivileged(node, command string) (transport.Result, error) {
	f.Calls = append(f.Calls, "run "+node)
	f.Commands[node] = command
	if err := f.PlacementErr[node]; err != nil {
		return transport.Result{ExitCode: -1, Detail: err.Error()}, err
	}
	if res, ok := f.PlacementResult[node]; ok {
		return res, nil
	}
	return transport.Result{}, nil
}

func (f *FakeTransport) Probe(node string) error {
	f.Calls = append(f.Calls, "probe "+node)
	return f.ProbeErr[node]
}
