// Package improver implements C11, the Improver: given a failing
// experiment's full history, it proposes a manifest reconfiguration,
// applies it to a forked copy of the manifest set, and redeploys until the
// deploy tool accepts it or the retry budget is exhausted.
package improver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/pkg/model"
	tmpl "github.com/richard-devbot/chaoshunter/pkg/template"
)

// ReplayEntry is one prior (result, analysis, reconfiguration) triple fed
// back to the oracle to discourage repeating a rejected fix.
type ReplayEntry struct {
	Result          model.ExperimentResult
	Analysis        model.Analysis
	Reconfiguration model.Reconfiguration
}

// Oracle is the slice of the LLM Gateway (C5) this builder needs.
type Oracle interface {
	ProposeReconfiguration(ctx context.Context, currentYAMLs []string, history []ReplayEntry) (model.Reconfiguration, error)
	DebugReconfiguration(ctx context.Context, reconfig model.Reconfiguration, deployStderr string) (model.Reconfiguration, error)
}

// Store is the slice of the File Store (C3) this builder needs.
type Store interface {
	WorkDir() string
	Copy(srcRel, dstRel string) error
	Write(f model.File) error
}

// Deployer applies a Kustomize-style bundle directory via the deploy tool
// on PATH. stderr is returned regardless of err so a failure can be fed
// back into DebugReconfiguration.
type Deployer interface {
	Deploy(ctx context.Context, bundleDir string) (stderr string, err error)
}

// Options configures one Improve call.
type Options struct {
	Namespace   string
	ProjectName string
	MaxRetries  int
}

// Builder drives spec.md 4.11's algorithm.
type Builder struct {
	Gateway  Oracle
	Store    Store
	Deployer Deployer
	Opts     Options
}

// Result is what one Improve call hands back to the Cycle Engine.
type Result struct {
	Reconfiguration model.Reconfiguration
	YAMLs           []model.File
	ModDir          string
}

// Improve runs spec.md 4.11 steps 1-6. prevModDir is the manifest set to
// fork from; modCount is len(ce_cycle.mod_dir_history), used to name the
// new directory mod_<modCount>.
func (b *Builder) Improve(ctx context.Context, prevModDir string, modCount int, currentYAMLs []model.File, history []ReplayEntry) (Result, error) {
	reconfig, err := b.Gateway.ProposeReconfiguration(ctx, fnames(currentYAMLs), history)
	if err != nil {
		return Result{}, err
	}

	modDir := fmt.Sprintf("mod_%d", modCount)
	if err := b.Store.Copy(prevModDir, modDir); err != nil {
		return Result{}, ceerrors.New(ceerrors.Internal, "improver", "copy_mod_dir", err)
	}

	yamls := applyMods(modDir, currentYAMLs, reconfig.ModK8sYAMLs)
	if err := b.writeYAMLSetAndBundle(modDir, yamls); err != nil {
		return Result{}, err
	}

	deployDir := filepath.Join(b.Store.WorkDir(), modDir)
	for attempt := 0; ; attempt++ {
		stderr, deployErr := b.Deployer.Deploy(ctx, deployDir)
		if deployErr == nil {
			return Result{Reconfiguration: reconfig, YAMLs: yamls, ModDir: modDir}, nil
		}
		if attempt == b.Opts.MaxRetries {
			return Result{}, ceerrors.BudgetExceededErr("improver", "deploy", attempt+1, b.Opts.MaxRetries+1)
		}

		reconfig, err = b.Gateway.DebugReconfiguration(ctx, reconfig, stderr)
		if err != nil {
			return Result{}, err
		}
		yamls = applyMods(modDir, currentYAMLs, reconfig.ModK8sYAMLs)
		if err := b.writeYAMLSetAndBundle(modDir, yamls); err != nil {
			return Result{}, err
		}
	}
}

func (b *Builder) writeYAMLSetAndBundle(modDir string, yamls []model.File) error {
	for _, f := range yamls {
		if err := b.Store.Write(f); err != nil {
			return ceerrors.New(ceerrors.Internal, "improver", "write_yaml", err)
		}
	}

	paths := make([]string, len(yamls))
	for i, f := range yamls {
		paths[i] = f.Fname
	}
	bundleYAML, err := tmpl.Render("deploy_bundle.yaml", tmpl.DeployBundleData{
		Namespace: b.Opts.Namespace, ProjectName: b.Opts.ProjectName, YAMLPaths: paths,
	})
	if err != nil {
		return ceerrors.New(ceerrors.Internal, "improver", "render_deploy_bundle", err)
	}

	bundle := model.NewFile(b.Store.WorkDir(), filepath.Join(modDir, "kustomization.yaml"), bundleYAML)
	if err := b.Store.Write(bundle); err != nil {
		return ceerrors.New(ceerrors.Internal, "improver", "write_deploy_bundle", err)
	}
	return nil
}

// applyMods rebuilds the yaml set per spec.md 4.11 step 3: existing yamls
// filtered by delete, replace-yamls overwritten in place (preserving their
// original position), create-yamls appended in the order proposed.
func applyMods(modDir string, yamls []model.File, mods []model.YAMLMod) []model.File {
	byName := make(map[string]model.File, len(yamls))
	order := make([]string, 0, len(yamls))
	for _, y := range yamls {
		byName[y.Fname] = y
		order = append(order, y.Fname)
	}

	for _, m := range mods {
		switch m.ModType {
		case model.ModDelete:
			delete(byName, m.Fname)
		case model.ModReplace:
			if _, ok := byName[m.Fname]; ok {
				byName[m.Fname] = model.NewFile("", filepath.Join(modDir, m.Fname), m.Code)
			}
		case model.ModCreate:
			if _, ok := byName[m.Fname]; !ok {
				order = append(order, m.Fname)
			}
			byName[m.Fname] = model.NewFile("", filepath.Join(modDir, m.Fname), m.Code)
		}
	}

	out := make([]model.File, 0, len(byName))
	for _, name := range order {
		if f, ok := byName[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func fnames(yamls []model.File) []string {
	out := make([]string, len(yamls))
	for i, y := range yamls {
		out[i] = y.Fname
	}
	return out
}
