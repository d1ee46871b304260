package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	kubeconfig string
	verbose    bool

	// version is overridden at build time via -ldflags.
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "chaoshunter",
	Short: "Chaos Engineering orchestrator for Kubernetes workloads",
	Long: `chaoshunter drives one Chaos Engineering cycle end to end: it
inspects a deployment, proposes and validates steady states, builds a
fault scenario, compiles and runs the resulting experiment, and iterates
on failures until the experiment passes or its retry budget is
exhausted.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to chaoshunter config YAML (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "path to kubeconfig (default: $KUBECONFIG or $HOME/.kube/config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getKubeconfigPath() string {
	if kubeconfig != "" {
		return kubeconfig
	}
	if kc := os.Getenv("KUBECONFIG"); kc != "" {
		return kc
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.kube/config"
}
