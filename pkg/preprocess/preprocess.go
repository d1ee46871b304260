// Package preprocess implements the preprocessing sub-stage supplementing
// spec.md's ProcessedData: it summarizes every input manifest, derives a
// cluster-wide weakness paragraph, and normalizes free-text operator
// instructions into a structured form, persisting the bundle to work_dir
// along the way.
package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// Oracle is the slice of the LLM Gateway (C5) this stage needs.
type Oracle interface {
	SummarizeK8sManifest(ctx context.Context, manifestYAML string) (string, error)
	SummarizeWeakness(ctx context.Context, k8sApp string, manifestSummaries []string) (string, error)
	InstructCEInstructions(ctx context.Context, freeText string) (model.CEInstructions, error)
}

// Store is the slice of the File Store (C3) this stage needs.
type Store interface {
	WorkDir() string
	Write(f model.File) error
}

// Preprocessor runs the preprocessing sub-stage.
type Preprocessor struct {
	Gateway Oracle
	Store   Store
}

// Run summarizes input.Files, derives a weakness paragraph, normalizes
// input.Instructions, persists every input under inputs/, and returns the
// resulting ProcessedData.
func (p *Preprocessor) Run(ctx context.Context, input model.ChaosEngInput) (model.ProcessedData, error) {
	yamls := make([]model.File, len(input.Files))
	summaries := make([]string, len(input.Files))

	for i, f := range input.Files {
		persisted := model.NewFile(p.Store.WorkDir(), filepath.Join("inputs", f.Fname), f.Content)
		if err := p.Store.Write(persisted); err != nil {
			return model.ProcessedData{}, ceerrors.New(ceerrors.Internal, "preprocess", "write_input", err)
		}
		yamls[i] = persisted

		summary, err := p.Gateway.SummarizeK8sManifest(ctx, f.Content)
		if err != nil {
			return model.ProcessedData{}, err
		}
		summaries[i] = summary
	}

	bundle := model.NewFile(p.Store.WorkDir(), filepath.Join("inputs", input.DeployBundle.Fname), input.DeployBundle.Content)
	if input.DeployBundle.Fname != "" {
		if err := p.Store.Write(bundle); err != nil {
			return model.ProcessedData{}, ceerrors.New(ceerrors.Internal, "preprocess", "write_deploy_bundle", err)
		}
	}

	k8sApp := describeApp(input.Files, summaries)

	weakness, err := p.Gateway.SummarizeWeakness(ctx, k8sApp, summaries)
	if err != nil {
		return model.ProcessedData{}, err
	}

	instructions, err := p.Gateway.InstructCEInstructions(ctx, input.Instructions)
	if err != nil {
		return model.ProcessedData{}, err
	}

	processed := model.ProcessedData{
		WorkDir:            p.Store.WorkDir(),
		Input:              input.Instructions,
		K8sYAMLs:           yamls,
		K8sSummaries:       summaries,
		K8sWeaknessSummary: weakness,
		K8sApp:             k8sApp,
		CEInstructions:     instructions,
	}
	if !processed.Valid() {
		return model.ProcessedData{}, ceerrors.New(ceerrors.Internal, "preprocess", "run",
			fmt.Errorf("k8s_yamls/k8s_summaries length mismatch"))
	}
	return processed, nil
}

// describeApp synthesizes a deterministic, LLM-free application
// description from the manifest summaries — a concern the distilled spec
// names (ProcessedData.K8sApp) without attaching it to any specific
// oracle operation.
func describeApp(files []model.File, summaries []string) string {
	if len(files) == 0 {
		return "empty application (no manifests supplied)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Application composed of %d manifest(s):", len(files))
	for i, f := range files {
		fmt.Fprintf(&b, "\n- %s: %s", f.Fname, summaries[i])
	}
	return b.String()
}
