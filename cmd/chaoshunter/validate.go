package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/richard-devbot/chaoshunter/internal/config"
	"github.com/richard-devbot/chaoshunter/pkg/faultscenario"
	"github.com/richard-devbot/chaoshunter/pkg/inspection"
	"github.com/richard-devbot/chaoshunter/pkg/timealgebra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Args:  cobra.NoArgs,
	Short: "Check a deploy bundle and configuration without running a cycle",
	Long: `Validate loads the same inputs "run" would — the deploy bundle,
any extra manifests, and an optional --schedule — and checks them for
obvious problems (missing files, a malformed cron expression, an
unparseable probe image) without contacting a cluster or an LLM
provider.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&deployBundlePath, "deploy-bundle", "", "path to the Kustomize bundle directory under test (required)")
	validateCmd.Flags().StringArrayVar(&manifestPaths, "file", nil, "additional manifest file to include (repeatable)")
	validateCmd.Flags().StringVar(&instructionsFile, "instructions-file", "", "path to a file containing free-text operator guidance")
	validateCmd.Flags().StringVar(&scheduleExpr, "schedule", "", "five-field cron expression to validate")
	_ = validateCmd.MarkFlagRequired("deploy-bundle")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(filepath.Join(deployBundlePath, "kustomization.yaml")); err != nil {
		return fmt.Errorf("deploy bundle %s: %w", deployBundlePath, err)
	}
	for _, p := range manifestPaths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("manifest %s: %w", p, err)
		}
	}
	if instructionsFile != "" {
		if _, err := os.Stat(instructionsFile); err != nil {
			return fmt.Errorf("instructions file %s: %w", instructionsFile, err)
		}
	}
	if scheduleExpr != "" {
		if _, err := timealgebra.ParseRecurrence(scheduleExpr); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := inspection.ValidateImage(cfg.ProbeImage); err != nil {
		return err
	}

	fmt.Printf("ok: deploy bundle, manifests, instructions, and schedule all check out (%d known fault kinds)\n", len(faultscenario.Kinds()))
	return nil
}
