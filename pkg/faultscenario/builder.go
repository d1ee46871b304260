package faultscenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/pkg/model"
	tmpl "github.com/richard-devbot/chaoshunter/pkg/template"
)

// Oracle is the slice of the LLM Gateway (C5) this builder needs. Narrowed
// to an interface so tests can supply a stub instead of a live
// *llmgateway.Gateway.
type Oracle interface {
	ProposeFaultScenario(ctx context.Context, states model.SteadyStates, faultKinds []string) (model.FaultScenario, error)
	RefineFaultParams(ctx context.Context, fault model.Fault, dryRunError string) (map[string]any, error)
}

// DryRunner is the slice of the Cluster Adapter (C1) this builder needs.
type DryRunner interface {
	DryRunApply(ctx context.Context, manifestYAML []byte) error
}

// Builder implements C8's three-step algorithm: propose a scenario,
// refine and dry-run validate every fault's params, emit the refined
// scenario.
type Builder struct {
	Gateway    Oracle
	Cluster    DryRunner
	MaxRetries int
}

// Build runs spec.md 4.8 to completion or returns a BudgetExceeded error
// for whichever fault could not be validated within MaxRetries.
func (b *Builder) Build(ctx context.Context, states model.SteadyStates) (model.FaultScenario, error) {
	scenario, err := b.Gateway.ProposeFaultScenario(ctx, states, Kinds())
	if err != nil {
		return model.FaultScenario{}, err
	}

	for waveIdx, wave := range scenario.Faults {
		for faultIdx, fault := range wave {
			refined, err := b.refineAndValidate(ctx, fault)
			if err != nil {
				return model.FaultScenario{}, err
			}
			scenario.Faults[waveIdx][faultIdx] = refined
		}
	}
	return scenario, nil
}

// refineAndValidate refines one fault's params and validates them via
// server-side dry-run, re-prompting with the validation error on failure,
// capped at MaxRetries.
func (b *Builder) refineAndValidate(ctx context.Context, fault model.Fault) (model.Fault, error) {
	kind, ok := Registry[fault.Name]
	if !ok {
		return model.Fault{}, ceerrors.New(ceerrors.Internal, "faultscenario", "refine_and_validate",
			fmt.Errorf("unknown fault kind %q", fault.Name))
	}

	var lastErr string
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		params, err := b.Gateway.RefineFaultParams(ctx, fault, lastErr)
		if err != nil {
			return model.Fault{}, err
		}
		fault.Params = params

		if missing := kind.Validate(params); len(missing) > 0 {
			lastErr = fmt.Sprintf("missing required params: %v", missing)
			continue
		}

		manifest, err := Render(fault, kind)
		if err != nil {
			return model.Fault{}, ceerrors.New(ceerrors.Internal, "faultscenario", "render", err)
		}
		if err := b.Cluster.DryRunApply(ctx, []byte(manifest)); err != nil {
			lastErr = err.Error()
			continue
		}
		return fault, nil
	}

	return model.Fault{}, ceerrors.BudgetExceededErr("faultscenario", "refine_and_validate", b.MaxRetries+1, b.MaxRetries+1)
}

// Render renders a fault's params through templates/fault.yaml.tmpl,
// giving it a deterministic name derived from its (kind, name_id) pair.
func Render(fault model.Fault, kind Kind) (string, error) {
	name := fmt.Sprintf("fault-%s-%d", strings.ToLower(kind.Name), fault.NameID)
	return tmpl.Render("fault.yaml", tmpl.FaultTemplateData{
		Name:      name,
		Deadline:  "0s", // overwritten by the Experiment Compiler once scheduled
		Kind:      kind.CRDKind,
		KindLower: kind.SpecKey,
		Params:    fault.Params,
	})
}
