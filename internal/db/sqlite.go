// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Fleetpush.
// This file contains the SQLite implementation of the database store.
package db // import "github.com/toeirei/fleetpush/internal/db"

import (
	"github.com/toeirei/fleetpush/internal/model"
	"github.com/uptrace/bun"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface.
type SqliteStore struct {
	bun *bun.DB
}

// BeginRun records the start of a deployment run and returns its ID.
func (s *SqliteStore) BeginRun(command, source, target string, nodeCount int) (int64, error) {
	return BeginRunBun(s.bun, command, source, target, nodeCount)
}

// FinishRun marks a run as completed.
func (s *SqliteStore) FinishRun(runID int64) error {
	return FinishRunBun(s.bun, runID)
}

// GetRun retrieves a single run by ID.
func (s *SqliteStore) GetRun(runID int64) (*model.RunRecord, error) {
	return GetRunBun(s.bun, runID)
}

// ListRuns retrieves the most recent runs, newest first.
func (s *SqliteStore) ListRuns(limit int) ([]model.RunRecord, error) {
	return ListRunsBun(s.bun, limit)
}

// RecordOutcome records one node outcome for a run.
func (s *SqliteStore) RecordOutcome(runID int64, o model.NodeOutcome) error {
	return RecordOutcomeBun(s.bun, runID, o)
}

// OutcomesForRun retrieves all outcomes of a run in roster order.
func (s *SqliteStore) OutcomesForRun(runID int64) ([]model.NodeOutcome, error) {
	return OutcomesForRunBun(s.bun, runID)
}

// RecentOutcomes retrieves the latest outcomes across all runs.
func (s *SqliteStore) RecentOutcomes(limit int) ([]model.HistoryEntry, error) {
	return RecentOutcomesBun(s.bun, limit)
}

// LogAction records an operator action in the action log.
func (s *SqliteStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ActionLog retrieves all action log entries, most recent first.
func (s *SqliteStore) ActionLog() ([]model.ActionEntry, error) {
	return GetAllActionLogEntriesBun(s.bun)
}

// Export retrieves all runs, outcomes and the action log for an export.
func (s *SqliteStore) Export() (*model.ExportData, error) {
	return ExportBun(s.bun)
}
