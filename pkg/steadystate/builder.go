// Package steadystate implements C7, the Steady-State Builder: it drafts
// candidate steady states, binds each to a validated inspection, a
// threshold, and a passing unit test, looping until the oracle's own
// completion check says the set is enough.
package steadystate

import (
	"context"
	"fmt"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// Oracle is the slice of the LLM Gateway (C5) this builder needs.
type Oracle interface {
	DraftSteadyState(ctx context.Context, processed model.ProcessedData, existing model.SteadyStates) (DraftResult, error)
	DesignInspection(ctx context.Context, candidate DraftResult) (InspectionResult, error)
	RewriteInspection(ctx context.Context, candidate DraftResult, errorHistory []string) (InspectionResult, error)
	DefineThreshold(ctx context.Context, currentValue, inspectionSummary string) (ThresholdResult, error)
	WriteUnitTest(ctx context.Context, threshold model.Threshold, inspection model.Inspection) (UnitTestResult, error)
	RewriteUnitTest(ctx context.Context, threshold model.Threshold, errorHistory []string) (UnitTestResult, error)
	CheckCompletion(ctx context.Context, existing model.SteadyStates) (CompletionResult, error)
}

// DraftResult, InspectionResult, ThresholdResult, UnitTestResult, and
// CompletionResult mirror llmgateway's concrete result types structurally
// so this package does not import llmgateway directly (it only needs the
// fields, not the oracle implementation).
type DraftResult struct {
	Thought  string
	Manifest string
	Name     string
}

type InspectionResult struct {
	Thought  string
	ToolType model.ToolType
	Duration string
	VUs      *int
	Script   string
}

type ThresholdResult struct {
	Thought   string
	Threshold model.Threshold
}

type UnitTestResult struct {
	Thought string
	Code    string
}

type CompletionResult struct {
	Thought          string
	RequiresAddition bool
}

// Validator runs one Inspection through the Inspection Runner (C6) and
// reports its terminal status.
type Validator interface {
	Run(ctx context.Context, insp model.Inspection) (model.TaskStatus, error)
}

// Builder drives spec.md 4.7's loop.
type Builder struct {
	Gateway            Oracle
	Validator          Validator
	MaxRetries         int
	MaxNumSteadyStates int
}

// Build runs until MaxNumSteadyStates is reached or the oracle's
// completion check says stop. Unless an error occurs it returns at least
// one state (given MaxNumSteadyStates > 0); when the very first completion
// check says no further state is needed, firstRejected is set as a warning
// rather than an error and that single state is still returned.
func (b *Builder) Build(ctx context.Context, processed model.ProcessedData) (states model.SteadyStates, firstRejected bool, err error) {
	for len(states) < b.MaxNumSteadyStates {
		state, buildErr := b.buildOne(ctx, processed, states)
		if buildErr != nil {
			return states, false, buildErr
		}
		states = append(states, state)

		completion, compErr := b.Gateway.CheckCompletion(ctx, states)
		if compErr != nil {
			return states, false, compErr
		}
		if !completion.RequiresAddition {
			if len(states) == 1 {
				firstRejected = true
			}
			break
		}
	}
	return states, firstRejected, nil
}

func (b *Builder) buildOne(ctx context.Context, processed model.ProcessedData, existing model.SteadyStates) (model.SteadyState, error) {
	draft, err := b.Gateway.DraftSteadyState(ctx, processed, existing)
	if err != nil {
		return model.SteadyState{}, err
	}

	insp, observed, err := b.inspectWithRetry(ctx, draft)
	if err != nil {
		return model.SteadyState{}, err
	}

	thr, err := b.Gateway.DefineThreshold(ctx, observed, inspectionSummary(insp))
	if err != nil {
		return model.SteadyState{}, err
	}

	unitTest, err := b.unitTestWithRetry(ctx, thr.Threshold, insp)
	if err != nil {
		return model.SteadyState{}, err
	}

	return model.SteadyState{
		ID:          draft.Name,
		Name:        draft.Name,
		Description: draft.Manifest,
		Inspection:  insp,
		Threshold:   thr.Threshold,
		UnitTest:    model.NewFile(processed.WorkDir, fmt.Sprintf("hypothesis/%s_unit_test.sh", draft.Name), unitTest.Code),
	}, nil
}

// inspectWithRetry generates a probe/load-test, runs it via C6, and
// re-prompts on non-zero exit with accumulated error_history, bounded by
// MaxRetries.
func (b *Builder) inspectWithRetry(ctx context.Context, draft DraftResult) (model.Inspection, string, error) {
	design, err := b.Gateway.DesignInspection(ctx, draft)
	if err != nil {
		return model.Inspection{}, "", err
	}

	var errHistory []string
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		insp := toInspection(design)
		status, runErr := b.Validator.Run(ctx, insp)
		if runErr != nil {
			return model.Inspection{}, "", runErr
		}
		if status.ExitCode == 0 {
			result := status.Logs
			insp.Result = &result
			return insp, result, nil
		}

		errHistory = append(errHistory, status.Logs)
		if attempt == b.MaxRetries {
			break
		}
		design, err = b.Gateway.RewriteInspection(ctx, draft, errHistory)
		if err != nil {
			return model.Inspection{}, "", err
		}
	}
	return model.Inspection{}, "", ceerrors.BudgetExceededErr("steadystate", "inspect", b.MaxRetries+1, b.MaxRetries+1)
}

// unitTestWithRetry synthesizes a unit test asserting threshold and runs
// it via C6 against the pre-fault cluster, re-prompting on failure.
func (b *Builder) unitTestWithRetry(ctx context.Context, threshold model.Threshold, insp model.Inspection) (UnitTestResult, error) {
	unitTest, err := b.Gateway.WriteUnitTest(ctx, threshold, insp)
	if err != nil {
		return UnitTestResult{}, err
	}

	var errHistory []string
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		probe := model.Inspection{ToolType: model.ToolProbeScript, Duration: insp.Duration, Script: model.File{Fname: "unit_test.sh", Content: unitTest.Code}}
		status, runErr := b.Validator.Run(ctx, probe)
		if runErr != nil {
			return UnitTestResult{}, runErr
		}
		if status.ExitCode == 0 {
			return unitTest, nil
		}

		errHistory = append(errHistory, status.Logs)
		if attempt == b.MaxRetries {
			break
		}
		unitTest, err = b.Gateway.RewriteUnitTest(ctx, threshold, errHistory)
		if err != nil {
			return UnitTestResult{}, err
		}
	}
	return UnitTestResult{}, ceerrors.BudgetExceededErr("steadystate", "unit_test", b.MaxRetries+1, b.MaxRetries+1)
}

func toInspection(d InspectionResult) model.Inspection {
	return model.Inspection{
		ToolType: d.ToolType,
		Duration: d.Duration,
		Script:   model.File{Fname: "inspection.sh", Content: d.Script},
		VUs:      d.VUs,
	}
}

// inspectionSummary describes an inspection's tool for the threshold
// prompt, once the inspection itself has run successfully.
func inspectionSummary(insp model.Inspection) string {
	return fmt.Sprintf("tool_type=%s duration=%s", insp.ToolType, insp.Duration)
}
