package db

import (
	"context"
	"database/sql"
	"os/user"
	"strings"
	"time"

	"github.com/toeirei/fleetpush/internal/model"
	"github.com/uptrace/bun"
)

// RunModel maps the `runs` table for Bun queries.
type RunModel struct {
	bun.BaseModel `bun:"table:runs"`
	ID            int64        `bun:"id,pk,autoincrement"`
	Command       string       `bun:"command"`
	Source        string       `bun:"source"`
	Target        string       `bun:"target"`
	NodeCount     int          `bun:"node_count"`
	StartedAt     time.Time    `bun:"started_at"`
	FinishedAt    sql.NullTime `bun:"finished_at"`
}

// NodeOutcomeModel maps the `node_outcomes` table.
type NodeOutcomeModel struct {
	bun.BaseModel `bun:"table:node_outcomes"`
	ID            int64          `bun:"id,pk,autoincrement"`
	RunID         int64          `bun:"run_id"`
	Seq           int            `bun:"seq"`
	Node          string         `bun:"node"`
	Phase         string         `bun:"phase"`
	Status        string         `bun:"status"`
	ExitCode      int            `bun:"exit_code"`
	Detail        sql.NullString `bun:"detail"`
	CreatedAt     time.Time      `bun:"created_at"`
}

// ActionLogModel maps the action_log table.
type ActionLogModel struct {
	bun.BaseModel `bun:"table:action_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// --- Mapping helpers (centralized conversions) ---

func runModelToModel(rm RunModel) model.RunRecord {
	r := model.RunRecord{
		ID:        rm.ID,
		Command:   rm.Command,
		Source:    rm.Source,
		Target:    rm.Target,
		NodeCount: rm.NodeCount,
		StartedAt: rm.StartedAt,
	}
	if rm.FinishedAt.Valid {
		t := rm.FinishedAt.Time
		r.FinishedAt = &t
	}
	return r
}

func outcomeModelToModel(om NodeOutcomeModel) model.NodeOutcome {
	o := model.NodeOutcome{
		Seq:       om.Seq,
		Node:      om.Node,
		Phase:     model.Phase(om.Phase),
		Status:    model.Status(om.Status),
		ExitCode:  om.ExitCode,
		Timestamp: om.CreatedAt,
	}
	if om.Detail.Valid {
		o.Detail = om.Detail.String
	}
	return o
}

func actionLogModelToModel(am ActionLogModel) model.ActionEntry {
	return model.ActionEntry{ID: am.ID, Timestamp: am.Timestamp, Username: am.Username, Action: am.Action, Details: am.Details}
}

// BeginRunBun inserts a new run row and returns its assigned ID.
func BeginRunBun(bdb *bun.DB, command, source, target string, nodeCount int) (int64, error) {
	ctx := context.Background()
	rm := &RunModel{
		Command:   command,
		Source:    source,
		Target:    target,
		NodeCount: nodeCount,
		StartedAt: time.Now().UTC(),
	}
	// Use Bun's NewInsert with Returning to support Postgres and MySQL.
	if _, err := bdb.NewInsert().Model(rm).Column("command", "source", "target", "node_count", "started_at").Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return rm.ID, nil
}

// FinishRunBun stamps the run's finished_at column.
func FinishRunBun(bdb *bun.DB, runID int64) error {
	ctx := context.Background()
	_, err := ExecRaw(ctx, bdb, "UPDATE runs SET finished_at = ? WHERE id = ?", time.Now().UTC(), runID)
	return err
}

// GetRunBun returns a single run by ID, or ErrNotFound.
func GetRunBun(bdb *bun.DB, runID int64) (*model.RunRecord, error) {
	ctx := context.Background()
	var rm RunModel
	err := bdb.NewSelect().Model(&rm).Where("id = ?", runID).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r := runModelToModel(rm)
	return &r, nil
}

// ListRunsBun returns the most recent runs, newest first. A non-positive
// limit means no limit.
func ListRunsBun(bdb *bun.DB, limit int) ([]model.RunRecord, error) {
	ctx := context.Background()
	var rms []RunModel
	q := bdb.NewSelect().Model(&rms).OrderExpr("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.RunRecord, 0, len(rms))
	for _, rm := range rms {
		out = append(out, runModelToModel(rm))
	}
	return out, nil
}

// RecordOutcomeBun inserts one node outcome for a run.
func RecordOutcomeBun(bdb *bun.DB, runID int64, o model.NodeOutcome) error {
	ctx := context.Background()
	ts := o.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	om := &NodeOutcomeModel{
		RunID:     runID,
		Seq:       o.Seq,
		Node:      o.Node,
		Phase:     string(o.Phase),
		Status:    string(o.Status),
		ExitCode:  o.ExitCode,
		Detail:    sql.NullString{String: o.Detail, Valid: o.Detail != ""},
		CreatedAt: ts.UTC(),
	}
	if _, err := bdb.NewInsert().Model(om).Column("run_id", "seq", "node", "phase", "status", "exit_code", "detail", "created_at").Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// OutcomesForRunBun returns all outcomes of a run in roster order. The run
// must exist; a missing run yields ErrNotFound rather than an empty slice so
// callers can tell "no such run" from "run with nothing recorded".
func OutcomesForRunBun(bdb *bun.DB, runID int64) ([]model.NodeOutcome, error) {
	if _, err := GetRunBun(bdb, runID); err != nil {
		return nil, err
	}
	ctx := context.Background()
	var oms []NodeOutcomeModel
	err := bdb.NewSelect().Model(&oms).Where("run_id = ?", runID).OrderExpr("seq, id").Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.NodeOutcome, 0, len(oms))
	for _, om := range oms {
		out = append(out, outcomeModelToModel(om))
	}
	return out, nil
}

// RecentOutcomesBun returns the latest outcomes across all runs, newest
// first, each joined with its run's source and target.
func RecentOutcomesBun(bdb *bun.DB, limit int) ([]model.HistoryEntry, error) {
	ctx := context.Background()
	type row struct {
		RunID     int64          `bun:"run_id"`
		Source    string         `bun:"source"`
		Target    string         `bun:"target"`
		Seq       int            `bun:"seq"`
		Node      string         `bun:"node"`
		Phase     string         `bun:"phase"`
		Status    string         `bun:"status"`
		ExitCode  int            `bun:"exit_code"`
		Detail    sql.NullString `bun:"detail"`
		CreatedAt time.Time      `bun:"created_at"`
	}
	var rows []row
	err := QueryRawInto(ctx, bdb, &rows,
		`SELECT o.run_id, r.source, r.target, o.seq, o.node, o.phase, o.status, o.exit_code, o.detail, o.created_at
		 FROM node_outcomes o JOIN runs r ON r.id = o.run_id
		 ORDER BY o.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		o := model.NodeOutcome{
			Seq:       r.Seq,
			Node:      r.Node,
			Phase:     model.Phase(r.Phase),
			Status:    model.Status(r.Status),
			ExitCode:  r.ExitCode,
			Timestamp: r.CreatedAt,
		}
		if r.Detail.Valid {
			o.Detail = r.Detail.String
		}
		out = append(out, model.HistoryEntry{RunID: r.RunID, Source: r.Source, Target: r.Target, Outcome: o})
	}
	return out, nil
}

// GetAllActionLogEntriesBun retrieves all action log entries, most recent first.
func GetAllActionLogEntriesBun(bdb *bun.DB) ([]model.ActionEntry, error) {
	ctx := context.Background()
	var am []ActionLogModel
	if err := bdb.NewSelect().Model(&am).OrderExpr("timestamp DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.ActionEntry, 0, len(am))
	for _, a := range am {
		out = append(out, actionLogModelToModel(a))
	}
	return out, nil
}

// LogActionBun inserts an action log entry with the current OS user.
func LogActionBun(bdb *bun.DB, action string, details string) error {
	ctx := context.Background()
	curUser, err := user.Current()
	username := "unknown"
	if err == nil {
		if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
			username = parts[1]
		} else {
			username = curUser.Username
		}
	}
	_, err = ExecRaw(ctx, bdb, "INSERT INTO action_log (username, action, details) VALUES (?, ?, ?)", username, action, details)
	return MapDBError(err)
}

// ExportBun collects every run, its outcomes and the action log into a
// model.ExportData using a Bun transaction so the snapshot is consistent.
func ExportBun(bdb *bun.DB) (*model.ExportData, error) {
	ctx := context.Background()
	var export *model.ExportData
	err := WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		export = &model.ExportData{
			SchemaVersion: model.ExportSchemaVersion,
			GeneratedAt:   time.Now().UTC(),
		}

		var runs []RunModel
		if err := tx.NewSelect().Model(&runs).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		var outs []NodeOutcomeModel
		if err := tx.NewSelect().Model(&outs).OrderExpr("run_id, seq, id").Scan(ctx); err != nil {
			return err
		}
		byRun := make(map[int64][]model.NodeOutcome)
		for _, om := range outs {
			byRun[om.RunID] = append(byRun[om.RunID], outcomeModelToModel(om))
		}
		for _, rm := range runs {
			export.Runs = append(export.Runs, model.RunExport{
				RunRecord: runModelToModel(rm),
				Outcomes:  byRun[rm.ID],
			})
		}

		var acts []ActionLogModel
		if err := tx.NewSelect().Model(&acts).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, a := range acts {
			export.ActionLog = append(export.ActionLog, actionLogModelToModel(a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return export, nil
}
