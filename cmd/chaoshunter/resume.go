package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richard-devbot/chaoshunter/pkg/fsstore"
	"github.com/richard-devbot/chaoshunter/pkg/model"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <work-dir>",
	Args:  cobra.ExactArgs(1),
	Short: "Inspect the last snapshot of a cycle's work_dir",
	Long: `Resume reads the most recent outputs/output.json snapshot from a
previous cycle's work_dir and prints its phase, history, and any error.

It does not re-enter or continue the cycle: persisting state across
process restarts is limited to these JSON snapshots, so re-running a
cycle from a crash is a fresh "run" invocation, not a resume.`,
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	store, err := fsstore.New(args[0])
	if err != nil {
		return err
	}
	out, err := store.ReadSnapshot()
	if err != nil {
		return fmt.Errorf("reading snapshot from %s: %w", args[0], err)
	}

	var state model.CycleState
	if err := json.Unmarshal(out.CycleState, &state); err != nil {
		return fmt.Errorf("parsing snapshot cycle state: %w", err)
	}

	fmt.Printf("work_dir:  %s\n", state.WorkDir)
	fmt.Printf("phase:     %s\n", state.Phase)
	fmt.Printf("results:   %d (analyses: %d, reconfigurations: %d)\n",
		len(state.ResultHistory), len(state.AnalysisHistory), len(state.ReconfigHistory))
	if state.Error != "" {
		fmt.Printf("error:     %s\n", state.Error)
	}
	if state.Summary != "" {
		fmt.Printf("summary:   %s\n", state.Summary)
	}
	return nil
}
