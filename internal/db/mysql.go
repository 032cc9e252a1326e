// package db provides the data access layer for Fleetpush.
// This file contains the MySQL implementation of the database store.
package db // import "github.com/toeirei/fleetpush/internal/db"

import (
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/toeirei/fleetpush/internal/model"
	"github.com/uptrace/bun"
)

// MySQLStore is the MySQL implementation of the Store interface.
type MySQLStore struct {
	bun *bun.DB
}

// BeginRun records the start of a deployment run and returns its ID.
func (s *MySQLStore) BeginRun(command, source, target string, nodeCount int) (int64, error) {
	return BeginRunBun(s.bun, command, source, target, nodeCount)
}

// FinishRun marks a run as completed.
func (s *MySQLStore) FinishRun(runID int64) error {
	return FinishRunBun(s.bun, runID)
}

// GetRun retrieves a single run by ID.
func (s *MySQLStore) GetRun(runID int64) (*model.RunRecord, error) {
	return GetRunBun(s.bun, runID)
}

// ListRuns retrieves the most recent runs, newest first.
func (s *MySQLStore) ListRuns(limit int) ([]model.RunRecord, error) {
	return ListRunsBun(s.bun, limit)
}

// RecordOutcome records one node outcome for a run.
func (s *MySQLStore) RecordOutcome(runID int64, o model.NodeOutcome) error {
	return RecordOutcomeBun(s.bun, runID, o)
}

// OutcomesForRun retrieves all outcomes of a run in roster order.
func (s *MySQLStore) OutcomesForRun(runID int64) ([]model.NodeOutcome, error) {
	return OutcomesForRunBun(s.bun, runID)
}

// RecentOutcomes retrieves the latest outcomes across all runs.
func (s *MySQLStore) RecentOutcomes(limit int) ([]model.HistoryEntry, error) {
	return RecentOutcomesBun(s.bun, limit)
}

// LogAction records an operator action in the action log.
func (s *MySQLStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ActionLog retrieves all action log entries, most recent first.
func (s *MySQLStore) ActionLog() ([]model.ActionEntry, error) {
	return GetAllActionLogEntriesBun(s.bun)
}

// Export retrieves all runs, outcomes and the action log for an export.
func (s *MySQLStore) Export() (*model.ExportData, error) {
	return ExportBun(s.bun)
}
