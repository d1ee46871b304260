package improver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/go-logr/logr"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

// ExecDeployer runs the deploy tool (e.g. kubectl) on PATH against a
// Kustomize bundle directory. It is the only part of the engine that
// shells out to an external binary rather than talking to the cluster
// through the Cluster Adapter — the deploy tool's own apply semantics
// (ordering, pruning) are out of scope to reimplement, per spec.md 6.
type ExecDeployer struct {
	// Command is the deploy binary name, resolved against PATH.
	Command string
	// Args are flags inserted before the bundle directory, e.g.
	// ["apply", "-k"] for kubectl.
	Args []string
	Log  logr.Logger
}

// Deploy runs Command Args... bundleDir and returns its captured stderr
// regardless of outcome, so a failure can be replayed into
// DebugReconfiguration.
func (d ExecDeployer) Deploy(ctx context.Context, bundleDir string) (string, error) {
	args := append(append([]string{}, d.Args...), bundleDir)
	cmd := exec.CommandContext(ctx, d.Command, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		d.Log.V(1).Info("deploy failed", "command", d.Command, "bundle_dir", bundleDir, "stderr", stderr.String())
		return stderr.String(), ceerrors.New(ceerrors.DeployFail, "improver", "deploy",
			fmt.Errorf("%s %v: %w", d.Command, args, err))
	}
	return stderr.String(), nil
}
