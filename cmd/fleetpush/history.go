// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

// history.go implements the run-history commands: listing recorded runs,
// inspecting a single run's per-node outcomes, exporting the whole history
// as zstd-compressed JSON and running store maintenance.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/logging"
	"github.com/toeirei/fleetpush/internal/model"
)

// historyStore adapts the db package helpers to the audit tee interface.
type historyStore struct{}

func (historyStore) RecordOutcome(runID int64, o model.NodeOutcome) error {
	return db.RecordOutcome(runID, o)
}

// recordAction notes an operator action in the history store when one is
// available. History loss never fails a command.
func recordAction(action, details string) {
	if !db.IsInitialized() {
		return
	}
	if err := db.LogAction(action, details); err != nil {
		logging.Debugf("action log write failed: %v", err)
	}
}

// requireHistoryStore turns a missing store into a user-facing error for the
// commands that cannot do anything without one.
func requireHistoryStore() error {
	if db.IsInitialized() {
		return nil
	}
	err := dbInitErr
	if err == nil {
		err = errors.New("history store not configured")
	}
	return fmt.Errorf(i18n.T("history.error_open_db"), err)
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: i18n.T("history.short"),
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: i18n.T("history.export_short"),
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryExport,
}

var historyMaintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: i18n.T("history.maintain_short"),
	Args:  cobra.NoArgs,
	RunE:  runHistoryMaintain,
}

func init() {
	historyCmd.Flags().Int("limit", 20, i18n.T("flags.limit"))
	historyExportCmd.Flags().Bool("force", false, i18n.T("flags.force"))
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMaintainCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := requireHistoryStore(); err != nil {
		return err
	}
	if len(args) == 1 {
		return showRun(args[0])
	}
	limit, _ := cmd.Flags().GetInt("limit")
	return listRuns(limit)
}

func listRuns(limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(i18n.T("history.empty"))
		return nil
	}

	fmt.Println(i18n.T("history.header_runs"))
	for _, run := range runs {
		fmt.Printf("%-5d %-21s %-37s %-6d %d\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(runDescription(run), 37),
			run.NodeCount,
			countFailures(run.ID))
	}
	return nil
}

func showRun(arg string) error {
	runID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf(i18n.T("history.error_invalid_run"), arg)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf(i18n.T("history.error_run_not_found"), runID)
		}
		return err
	}
	outcomes, err := db.OutcomesForRun(runID)
	if err != nil {
		return err
	}

	fmt.Println(i18n.T("history.run_line", run.ID, runDescription(*run)))
	if len(outcomes) == 0 {
		return nil
	}
	fmt.Println(i18n.T("history.header_outcomes"))
	for _, o := range outcomes {
		fmt.Printf("%-21s %-15s %-10s %-8s %-5d %s\n",
			o.Timestamp.Local().Format("2006-01-02 15:04:05"),
			o.Node, o.Phase, o.Status, o.ExitCode, o.Detail)
	}
	return nil
}

// runDescription renders the one-line summary of what a run did. Probe runs
// carry no file paths.
func runDescription(run model.RunRecord) string {
	if run.Command == "check" {
		return i18n.T("history.check_run")
	}
	return run.Source + " -> " + run.Target
}

// countFailures is a per-row lookup; the listing is capped by --limit so the
// extra queries stay cheap.
func countFailures(runID int64) int {
	outcomes, err := db.OutcomesForRun(runID)
	if err != nil {
		return 0
	}
	failures := 0
	for _, o := range outcomes {
		if o.Failed() {
			failures++
		}
	}
	return failures
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	if err := requireHistoryStore(); err != nil {
		return err
	}

	outputFile := fmt.Sprintf("fleetpush-history-%s.json.zst", time.Now().Format("2006-01-02"))
	if len(args) == 1 {
		outputFile = args[0]
		if !strings.HasSuffix(outputFile, ".zst") {
			outputFile += ".zst"
		}
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		if _, err := os.Stat(outputFile); err == nil {
			return fmt.Errorf(i18n.T("history.export_exists"), outputFile)
		}
	}

	data, err := db.Export()
	if err != nil {
		return fmt.Errorf(i18n.T("history.error_export"), err)
	}
	if err := writeCompressedExport(outputFile, data); err != nil {
		return fmt.Errorf(i18n.T("history.error_export"), err)
	}

	fmt.Println(i18n.T("history.export_success", len(data.Runs), outputFile))
	recordAction("EXPORT", fmt.Sprintf("file: %s, runs: %d", outputFile, len(data.Runs)))
	return nil
}

// writeCompressedExport streams the JSON encoding through a zstd writer so a
// large history never has to exist uncompressed in memory.
func writeCompressedExport(filename string, data *model.ExportData) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}

	zw, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("could not create zstd writer: %w", err)
	}

	encoder := json.NewEncoder(zw)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		zw.Close()
		file.Close()
		return fmt.Errorf("could not encode history: %w", err)
	}

	// The zstd frame must be flushed before the file is closed.
	if err := zw.Close(); err != nil {
		file.Close()
		return fmt.Errorf("could not finish zstd stream: %w", err)
	}
	return file.Close()
}

func runHistoryMaintain(cmd *cobra.Command, args []string) error {
	if err := requireHistoryStore(); err != nil {
		return err
	}
	if err := db.RunDBMaintenance(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
		return err
	}
	fmt.Println(i18n.T("history.maintain_success"))
	recordAction("MAINTAIN", appConfig.Database.Type)
	return nil
}
