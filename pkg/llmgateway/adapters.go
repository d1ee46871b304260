package llmgateway

import (
	"context"

	"github.com/richard-devbot/chaoshunter/pkg/improver"
	"github.com/richard-devbot/chaoshunter/pkg/model"
	"github.com/richard-devbot/chaoshunter/pkg/steadystate"
)

// SteadyStateOracle adapts Gateway's concrete result types to
// steadystate.Oracle's narrower, package-local ones, so pkg/steadystate
// never needs to import pkg/llmgateway.
type SteadyStateOracle struct{ *Gateway }

func (o SteadyStateOracle) DraftSteadyState(ctx context.Context, processed model.ProcessedData, existing model.SteadyStates) (steadystate.DraftResult, error) {
	r, err := o.Gateway.DraftSteadyState(ctx, processed, existing)
	return steadystate.DraftResult{Thought: r.Thought, Manifest: r.Manifest, Name: r.Name}, err
}

func (o SteadyStateOracle) DesignInspection(ctx context.Context, candidate steadystate.DraftResult) (steadystate.InspectionResult, error) {
	r, err := o.Gateway.DesignInspection(ctx, DraftSteadyStateResult{Thought: candidate.Thought, Manifest: candidate.Manifest, Name: candidate.Name})
	return toInspectionResult(r), err
}

func (o SteadyStateOracle) RewriteInspection(ctx context.Context, candidate steadystate.DraftResult, errorHistory []string) (steadystate.InspectionResult, error) {
	r, err := o.Gateway.RewriteInspection(ctx, DraftSteadyStateResult{Thought: candidate.Thought, Manifest: candidate.Manifest, Name: candidate.Name}, errorHistory)
	return toInspectionResult(r), err
}

func (o SteadyStateOracle) DefineThreshold(ctx context.Context, currentValue, inspectionSummary string) (steadystate.ThresholdResult, error) {
	r, err := o.Gateway.DefineThreshold(ctx, currentValue, inspectionSummary)
	return steadystate.ThresholdResult{Thought: r.Thought, Threshold: r.Threshold}, err
}

func (o SteadyStateOracle) WriteUnitTest(ctx context.Context, threshold model.Threshold, inspection model.Inspection) (steadystate.UnitTestResult, error) {
	r, err := o.Gateway.WriteUnitTest(ctx, threshold, inspection)
	return steadystate.UnitTestResult{Thought: r.Thought, Code: r.Code}, err
}

func (o SteadyStateOracle) RewriteUnitTest(ctx context.Context, threshold model.Threshold, errorHistory []string) (steadystate.UnitTestResult, error) {
	r, err := o.Gateway.RewriteUnitTest(ctx, threshold, errorHistory)
	return steadystate.UnitTestResult{Thought: r.Thought, Code: r.Code}, err
}

func (o SteadyStateOracle) CheckCompletion(ctx context.Context, existing model.SteadyStates) (steadystate.CompletionResult, error) {
	r, err := o.Gateway.CheckCompletion(ctx, existing)
	return steadystate.CompletionResult{Thought: r.Thought, RequiresAddition: r.RequiresAddition}, err
}

func toInspectionResult(r DesignInspectionResult) steadystate.InspectionResult {
	return steadystate.InspectionResult{
		Thought: r.Thought, ToolType: r.ToolType, Duration: r.Tool.Duration, VUs: r.Tool.VUs, Script: r.Tool.Script,
	}
}

// ImproverOracle adapts Gateway to improver.Oracle's package-local
// ReplayEntry type.
type ImproverOracle struct{ *Gateway }

func (o ImproverOracle) ProposeReconfiguration(ctx context.Context, currentYAMLs []string, history []improver.ReplayEntry) (model.Reconfiguration, error) {
	return o.Gateway.ProposeReconfiguration(ctx, currentYAMLs, toGatewayReplay(history))
}

func (o ImproverOracle) DebugReconfiguration(ctx context.Context, reconfig model.Reconfiguration, deployStderr string) (model.Reconfiguration, error) {
	return o.Gateway.DebugReconfiguration(ctx, reconfig, deployStderr)
}

func toGatewayReplay(history []improver.ReplayEntry) []ReplayEntry {
	out := make([]ReplayEntry, len(history))
	for i, h := range history {
		out[i] = ReplayEntry{Result: h.Result, Analysis: h.Analysis, Reconfiguration: h.Reconfiguration}
	}
	return out
}
