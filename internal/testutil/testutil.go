// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"errors"

	"github.com/toeirei/fleetpush/internal/model"
)

// CaptureRecorder collects audit outcomes in memory instead of writing
// them anywhere. FailAfter, when positive, makes Record reject every
// outcome past that count, simulating a broken audit sink mid-run.
type CaptureRecorder struct {
	Outcomes  []model.NodeOutcome
	FailAfter int
}

// ErrSinkBroken is returned by CaptureRecorder once FailAfter is reached.
var ErrSinkBroken = errors.New("audit sink failed")

func (c *CaptureRecorder) Record(o model.NodeOutcome) error {
	if c.FailAfter > 0 && len(c.Outcomes) >= c.FailAfter {
		return ErrSinkBroken
	}
	c.Outcomes = append(c.Outcomes, o)
	return nil
}

// Messages renders the captured outcomes as audit message lines, in order.
func (c *CaptureRecorder) Messages() []string {
	out := make([]string, 0, len(c.Outcomes))
	for _, o := range c.Outcomes {
		out = append(out, o.Message())
	}
	return out
}
