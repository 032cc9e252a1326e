// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Fleetpush.
// This file contains the PostgreSQL implementation of the database store.
package db // import "github.com/toeirei/fleetpush/internal/db"

import (
	"github.com/toeirei/fleetpush/internal/model"
	"github.com/uptrace/bun"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	bun *bun.DB
}

// BeginRun records the start of a deployment run and returns its ID.
func (s *PostgresStore) BeginRun(command, source, target string, nodeCount int) (int64, error) {
	return BeginRunBun(s.bun, command, source, target, nodeCount)
}

// FinishRun marks a run as completed.
func (s *PostgresStore) FinishRun(runID int64) error {
	return FinishRunBun(s.bun, runID)
}

// GetRun retrieves a single run by ID.
func (s *PostgresStore) GetRun(runID int64) (*model.RunRecord, error) {
	return GetRunBun(s.bun, runID)
}

// ListRuns retrieves the most recent runs, newest first.
func (s *PostgresStore) ListRuns(limit int) ([]model.RunRecord, error) {
	return ListRunsBun(s.bun, limit)
}

// RecordOutcome records one node outcome for a run.
func (s *PostgresStore) RecordOutcome(runID int64, o model.NodeOutcome) error {
	return RecordOutcomeBun(s.bun, runID, o)
}

// OutcomesForRun retrieves all outcomes of a run in roster order.
func (s *PostgresStore) OutcomesForRun(runID int64) ([]model.NodeOutcome, error) {
	return OutcomesForRunBun(s.bun, runID)
}

// RecentOutcomes retrieves the latest outcomes across all runs.
func (s *PostgresStore) RecentOutcomes(limit int) ([]model.HistoryEntry, error) {
	return RecentOutcomesBun(s.bun, limit)
}

// LogAction records an operator action in the action log.
func (s *PostgresStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ActionLog retrieves all action log entries, most recent first.
func (s *PostgresStore) ActionLog() ([]model.ActionEntry, error) {
	return GetAllActionLogEntriesBun(s.bun)
}

// Export retrieves all runs, outcomes and the action log for an export.
func (s *PostgresStore) Export() (*model.ExportData, error) {
	return ExportBun(s.bun)
}
