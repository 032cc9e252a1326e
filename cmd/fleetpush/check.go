package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toeirei/fleetpush/internal/cluster"
	"github.com/toeirei/fleetpush/internal/db"
	"github.com/toeirei/fleetpush/internal/i18n"
	"github.com/toeirei/fleetpush/internal/logging"
	"github.com/toeirei/fleetpush/internal/model"
)

// checkCmd probes SSH connectivity to every node in the roster, in roster
// order, without touching any files. Unreachable nodes are reported on the
// console but never fail the command; the point is the list itself.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: i18n.T("check.short"),
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	nodes, err := cluster.Load(appConfig.Cluster.File)
	if err != nil {
		return err
	}

	tr, err := buildTransport()
	if err != nil {
		return err
	}

	var runID int64
	if db.IsInitialized() {
		id, err := db.BeginRun("check", "", "", len(nodes))
		if err != nil {
			logging.Debugf("history store rejected run: %v", err)
		} else {
			runID = id
		}
	}

	reachable := 0
	for i, node := range nodes {
		outcome := model.NodeOutcome{
			Seq:    i,
			Node:   node,
			Phase:  model.PhaseProbe,
			Status: model.StatusSuccess,
		}
		if probeErr := tr.Probe(node); probeErr != nil {
			outcome.Status = model.StatusFailure
			outcome.ExitCode = 1
			outcome.Detail = probeErr.Error()
			fmt.Println(i18n.T("check.node_fail", node, probeErr.Error()))
		} else {
			reachable++
			fmt.Println(i18n.T("check.node_ok", node))
		}
		if runID != 0 {
			if err := db.RecordOutcome(runID, outcome); err != nil {
				logging.Debugf("history store rejected outcome for %s: %v", node, err)
			}
		}
	}

	fmt.Println(i18n.T("check.summary", reachable, len(nodes)))

	if runID != 0 {
		if err := db.FinishRun(runID); err != nil {
			logging.Debugf("history store: could not finish run %d: %v", runID, err)
		}
	}
	recordAction("CHECK", fmt.Sprintf("nodes: %d, reachable: %d", len(nodes), reachable))
	return nil
}
