// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package audit persists the per-phase deployment trail. The append-only
// log file is the contractual record of a run: when it cannot be written,
// the run must stop. The history store tee is best effort.
package audit

import (
	"fmt"
	"os"
	"time"

	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/logging"
	"github.com/toeirei/fleetpush/internal/model"
)

// Recorder consumes one outcome per phase per node.
type Recorder interface {
	Record(model.NodeOutcome) error
}

// Clock provides an abstraction over time.Now for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var defaultClock Clock = systemClock{}

// SetClock replaces the global clock used by the package. Tests may set a fake clock.
func SetClock(c Clock) { defaultClock = c }

// ResetClock restores the default system clock.
func ResetClock() { defaultClock = systemClock{} }

// FileRecorder appends outcomes to a log file, one line per outcome:
//
//	2026-01-02T15:04:05Z - INFO - transfer succeeded for node h1
//
// The file is opened append-only and never truncated, so the trail survives
// across runs.
type FileRecorder struct {
	f    *os.File
	path string
}

// NewFileRecorder opens (or creates) the log file at path for appending.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("audit.error_open"), path, err)
	}
	return &FileRecorder{f: f, path: path}, nil
}

// Record appends one line. A write failure is fatal to the caller: a run
// that cannot be audited must not continue.
func (r *FileRecorder) Record(o model.NodeOutcome) error {
	ts := o.Timestamp
	if ts.IsZero() {
		ts = defaultClock.Now()
	}
	line := fmt.Sprintf("%s - %s - %s\n", ts.UTC().Format(time.RFC3339), o.Level(), o.Message())
	if _, err := r.f.WriteString(line); err != nil {
		return fmt.Errorf(i18n.T("audit.error_write"), err)
	}
	return nil
}

// Close releases the underlying file.
func (r *FileRecorder) Close() error {
	if r.f == nil {
		return nil
	}
	return r.f.Close()
}

// OutcomeStore is the slice of the history store the tee needs.
type OutcomeStore interface {
	RecordOutcome(runID int64, o model.NodeOutcome) error
}

// StoreRecorder tees outcomes into the history store. Store failures are
// logged and swallowed; history must never block a deployment.
type StoreRecorder struct {
	store OutcomeStore
	runID int64
}

// NewStoreRecorder binds a store tee to a run.
func NewStoreRecorder(store OutcomeStore, runID int64) *StoreRecorder {
	return &StoreRecorder{store: store, runID: runID}
}

// Record forwards the outcome, best effort.
func (r *StoreRecorder) Record(o model.NodeOutcome) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.RecordOutcome(r.runID, o); err != nil {
		logging.Debugf("history store rejected outcome for node %s: %v", o.Node, err)
	}
	return nil
}

// MultiRecorder fans one outcome out to several recorders, stamping the
// timestamp once so every sink sees the same instant.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder combines recorders; nil entries are skipped.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Record stamps and fans out. The first recorder error stops the fan-out
// and is returned, so a broken contractual sink halts the run.
func (m *MultiRecorder) Record(o model.NodeOutcome) error {
	if o.Timestamp.IsZero() {
		o.Timestamp = defaultClock.Now()
	}
	for _, r := range m.recorders {
		if err := r.Record(o); err != nil {
			return err
		}
	}
	return nil
}
