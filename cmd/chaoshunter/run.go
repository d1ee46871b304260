package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/richard-devbot/chaoshunter/pkg/model"
	"github.com/richard-devbot/chaoshunter/pkg/timealgebra"
)

var (
	deployBundlePath string
	manifestPaths    []string
	instructions     string
	instructionsFile string
	workDir          string
	scheduleExpr     string
	cleanBefore      bool
	cleanAfter       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Run one Chaos Engineering cycle against a deployment",
	Long: `Run loads a Kustomize-style deploy bundle and its companion
manifests, then drives one CE cycle through PREPROCESS, HYPOTHESIS, PLAN,
RUN, and, if the experiment fails, ANALYZE/IMPROVE/REPLAN until it passes
or the retry budget is exhausted.

With --schedule, run repeats on the given five-field cron expression
instead of exiting after the first cycle; each firing is an independent
cycle with its own work_dir.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&deployBundlePath, "deploy-bundle", "", "path to the Kustomize bundle directory under test (required)")
	runCmd.Flags().StringArrayVar(&manifestPaths, "file", nil, "additional manifest file to include (repeatable)")
	runCmd.Flags().StringVar(&instructions, "instructions", "", "free-text operator guidance for the cycle")
	runCmd.Flags().StringVar(&instructionsFile, "instructions-file", "", "path to a file containing free-text operator guidance")
	runCmd.Flags().StringVar(&workDir, "work-dir", "", "working directory for this cycle (default: ./chaoshunter-runs/<record-id>)")
	runCmd.Flags().StringVar(&scheduleExpr, "schedule", "", "five-field cron expression to repeat this cycle on, instead of running once")
	runCmd.Flags().BoolVar(&cleanBefore, "clean-before", false, "delete any prior resources labeled for this project before starting")
	runCmd.Flags().BoolVar(&cleanAfter, "clean-after", false, "delete this cycle's resources once it reaches DONE or FAIL")
	_ = runCmd.MarkFlagRequired("deploy-bundle")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if scheduleExpr == "" {
		return runOneCycle(ctx)
	}

	recurrence, err := timealgebra.ParseRecurrence(scheduleExpr)
	if err != nil {
		return err
	}
	fmt.Printf("scheduling cycles on %q; next 3 firings: %v\n", recurrence.String(), recurrence.Next(time.Now(), 3))

	for {
		next := recurrence.Next(time.Now(), 1)[0]
		sleep := time.Until(next)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		if err := runOneCycle(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "cycle at %v failed: %v\n", next, err)
		}
	}
}

func runOneCycle(ctx context.Context) error {
	dir := workDir
	if dir == "" {
		dir = filepath.Join("chaoshunter-runs", model.NewRecordID())
	}

	c, err := wire(dir)
	if err != nil {
		return err
	}

	if c.Lease != nil {
		l, err := c.Lease.Acquire(ctx, c.Cfg.Context, c.Cfg.Namespace, c.Cfg.ProjectName)
		if err != nil {
			return err
		}
		defer func() { _ = l.Release(ctx) }()
	}

	input, err := loadInput()
	if err != nil {
		return err
	}

	engine := buildEngine(c, engineOverrides{CleanBefore: cleanBefore, CleanAfter: cleanAfter})

	c.Log.Info("starting cycle", "work_dir", dir)
	state, err := engine.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("cycle ended in %s: %w", state.Phase, err)
	}

	fmt.Printf("cycle %s reached %s\n%s\n", dir, state.Phase, state.Summary)
	return nil
}

func loadInput() (model.ChaosEngInput, error) {
	bundleContent, err := os.ReadFile(filepath.Join(deployBundlePath, "kustomization.yaml"))
	if err != nil {
		return model.ChaosEngInput{}, fmt.Errorf("reading deploy bundle %s: %w", deployBundlePath, err)
	}
	input := model.ChaosEngInput{
		DeployBundle: model.NewFile("", filepath.Join(deployBundlePath, "kustomization.yaml"), string(bundleContent)),
	}

	for _, p := range manifestPaths {
		content, err := os.ReadFile(p)
		if err != nil {
			return model.ChaosEngInput{}, fmt.Errorf("reading manifest %s: %w", p, err)
		}
		input.Files = append(input.Files, model.NewFile("", p, string(content)))
	}

	switch {
	case instructionsFile != "":
		content, err := os.ReadFile(instructionsFile)
		if err != nil {
			return model.ChaosEngInput{}, fmt.Errorf("reading instructions file %s: %w", instructionsFile, err)
		}
		input.Instructions = string(content)
	case instructions != "":
		input.Instructions = instructions
	}

	return input, nil
}
