// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "github.com/toeirei/fleetpush/internal/model"

// Store defines the interface for all database operations in Fleetpush.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Run methods
	BeginRun(command, source, target string, nodeCount int) (int64, error)
	FinishRun(runID int64) error
	GetRun(runID int64) (*model.RunRecord, error)
	ListRuns(limit int) ([]model.RunRecord, error)

	// Outcome methods
	RecordOutcome(runID int64, o model.NodeOutcome) error
	OutcomesForRun(runID int64) ([]model.NodeOutcome, error)
	RecentOutcomes(limit int) ([]model.HistoryEntry, error)

	// Action log methods
	LogAction(action string, details string) error
	ActionLog() ([]model.ActionEntry, error)

	// Export methods
	Export() (*model.ExportData, error)
}
