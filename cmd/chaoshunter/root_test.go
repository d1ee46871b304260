package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestGetKubeconfigPathPrefersFlag(t *testing.T) {
	orig := kubeconfig
	t.Cleanup(func() { kubeconfig = orig })

	t.Setenv("KUBECONFIG", "/tmp/envconfig")
	kubeconfig = "/tmp/flagconfig"

	if got := getKubeconfigPath(); got != "/tmp/flagconfig" {
		t.Fatalf("expected flag kubeconfig, got %s", got)
	}
}

func TestGetKubeconfigPathUsesEnv(t *testing.T) {
	orig := kubeconfig
	t.Cleanup(func() { kubeconfig = orig })

	kubeconfig = ""
	t.Setenv("KUBECONFIG", "/tmp/from-env")

	if got := getKubeconfigPath(); got != "/tmp/from-env" {
		t.Fatalf("expected env kubeconfig, got %s", got)
	}
}

func TestGetKubeconfigPathDefaultHome(t *testing.T) {
	orig := kubeconfig
	t.Cleanup(func() { kubeconfig = orig })

	kubeconfig = ""
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KUBECONFIG", "")

	got := getKubeconfigPath()
	want := filepath.Join(home, ".kube", "config")
	if got != want {
		t.Fatalf("expected default kubeconfig %s, got %s", want, got)
	}
}

func TestRootCmdHasSubcommands(t *testing.T) {
	expected := []string{"run", "resume", "validate", "version"}
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, e := range expected {
		if !names[e] {
			t.Errorf("expected subcommand %q not found", e)
		}
	}
}

func TestRootCmdHelpOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := strings.ToLower(buf.String())
	for _, want := range []string{"chaoshunter", "run", "resume", "validate", "version", "--kubeconfig"} {
		if !strings.Contains(out, strings.ToLower(want)) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestRunCmdRequiresDeployBundle(t *testing.T) {
	flag := runCmd.Flags().Lookup("deploy-bundle")
	if flag == nil {
		t.Fatal("expected --deploy-bundle flag on run command")
	}
	if got := flag.Annotations[cobra.BashCompOneRequiredFlag]; len(got) == 0 || got[0] != "true" {
		t.Error("expected --deploy-bundle to be marked required")
	}
}

func TestRunCmdScheduleFlag(t *testing.T) {
	if runCmd.Flags().Lookup("schedule") == nil {
		t.Fatal("expected --schedule flag on run command")
	}
}

func TestResumeCmdRequiresArg(t *testing.T) {
	if resumeCmd.Args == nil {
		t.Fatal("expected resume command to validate its work-dir argument")
	}
}
