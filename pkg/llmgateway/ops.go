package llmgateway

import (
	"context"
	"fmt"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// The operations below are thin, schema-bound wrappers over structured().
// Each documents the JSON shape it demands of the model directly in its
// system prompt; the gateway itself stays domain-agnostic (spec.md 9:
// "express each LLM call as (schema, inputs) -> value").

// DraftSteadyStateResult is C5's draft_steady_state(ctx) output.
type DraftSteadyStateResult struct {
	Thought  string `json:"thought"`
	Manifest string `json:"manifest"`
	Name     string `json:"name"`
}

func (g *Gateway) DraftSteadyState(ctx context.Context, processed model.ProcessedData, existing model.SteadyStates) (DraftSteadyStateResult, error) {
	var out DraftSteadyStateResult
	sys := `Respond with JSON {"thought": string, "manifest": string, "name": string} describing one new candidate steady state for the described cluster. name must be DNS-1123-label compatible and distinct from every existing name.`
	user := fmt.Sprintf("k8s_app:\n%s\n\nweakness summary:\n%s\n\nexisting steady states: %v", processed.K8sApp, processed.K8sWeaknessSummary, names(existing))
	err := g.structured(ctx, "draft_steady_state", sys, user, &out)
	return out, err
}

// DesignInspectionResult is C5's design_inspection / rewrite_inspection
// output: a probe or load-test tool plus its generated script.
type DesignInspectionResult struct {
	Thought  string           `json:"thought"`
	ToolType model.ToolType   `json:"tool_type"`
	Tool     DesignedToolSpec `json:"tool"`
}

type DesignedToolSpec struct {
	Duration string `json:"duration"`
	VUs      *int   `json:"vus,omitempty"`
	Script   string `json:"script"`
}

func (g *Gateway) DesignInspection(ctx context.Context, candidate DraftSteadyStateResult) (DesignInspectionResult, error) {
	var out DesignInspectionResult
	sys := `Respond with JSON {"thought": string, "tool_type": "probe_script"|"load_test", "tool": {"duration": string, "vus": int?, "script": string}} that measures the named steady state.`
	user := fmt.Sprintf("candidate steady state %q:\n%s", candidate.Name, candidate.Manifest)
	err := g.structured(ctx, "design_inspection", sys, user, &out)
	return out, err
}

func (g *Gateway) RewriteInspection(ctx context.Context, candidate DraftSteadyStateResult, errorHistory []string) (DesignInspectionResult, error) {
	var out DesignInspectionResult
	sys := `Respond with JSON {"thought": string, "tool_type": "probe_script"|"load_test", "tool": {"duration": string, "vus": int?, "script": string}}. The prior script failed; fix it.`
	user := fmt.Sprintf("candidate steady state %q:\n%s\n\nprior errors:\n%v", candidate.Name, candidate.Manifest, errorHistory)
	err := g.structured(ctx, "rewrite_inspection", sys, user, &out)
	return out, err
}

// DefineThresholdResult is C5's define_threshold(ctx) output.
type DefineThresholdResult struct {
	Thought   string          `json:"thought"`
	Threshold model.Threshold `json:"threshold"`
}

func (g *Gateway) DefineThreshold(ctx context.Context, currentValue, inspectionSummary string) (DefineThresholdResult, error) {
	var out DefineThresholdResult
	sys := `Respond with JSON {"thought": string, "threshold": {"value": string, "rationale": string}}. The observed current value must satisfy the threshold.`
	user := fmt.Sprintf("current value: %s\ninspection summary: %s", currentValue, inspectionSummary)
	err := g.structured(ctx, "define_threshold", sys, user, &out)
	return out, err
}

// WriteUnitTestResult is C5's write_unit_test / rewrite_unit_test output.
type WriteUnitTestResult struct {
	Thought string `json:"thought"`
	Code    string `json:"code"`
}

func (g *Gateway) WriteUnitTest(ctx context.Context, threshold model.Threshold, inspection model.Inspection) (WriteUnitTestResult, error) {
	var out WriteUnitTestResult
	sys := `Respond with JSON {"thought": string, "code": string}. code is a script accepting a --duration argument that asserts the threshold over that window and exits non-zero on violation.`
	user := fmt.Sprintf("threshold: %+v\ninspection tool_type: %s", threshold, inspection.ToolType)
	err := g.structured(ctx, "write_unit_test", sys, user, &out)
	return out, err
}

func (g *Gateway) RewriteUnitTest(ctx context.Context, threshold model.Threshold, errorHistory []string) (WriteUnitTestResult, error) {
	var out WriteUnitTestResult
	sys := `Respond with JSON {"thought": string, "code": string}. The prior unit test failed or errored; fix it while preserving its assertion over the threshold.`
	user := fmt.Sprintf("threshold: %+v\nprior errors: %v", threshold, errorHistory)
	err := g.structured(ctx, "rewrite_unit_test", sys, user, &out)
	return out, err
}

// CheckCompletionResult is C5's check_completion(ctx) output.
type CheckCompletionResult struct {
	Thought          string `json:"thought"`
	RequiresAddition bool   `json:"requires_addition"`
}

func (g *Gateway) CheckCompletion(ctx context.Context, existing model.SteadyStates) (CheckCompletionResult, error) {
	var out CheckCompletionResult
	sys := `Respond with JSON {"thought": string, "requires_addition": bool} on whether the steady-state set needs another member.`
	user := fmt.Sprintf("existing steady states: %v", names(existing))
	err := g.structured(ctx, "check_completion", sys, user, &out)
	return out, err
}

func (g *Gateway) ProposeFaultScenario(ctx context.Context, states model.SteadyStates, faultKinds []string) (model.FaultScenario, error) {
	var out model.FaultScenario
	sys := `Respond with JSON {"event": string, "faults": [[{"name": string, "name_id": int, "params": object}]], "description": string}. name must be one of the supplied fault kinds. The outer list is temporally ordered; each inner list ("wave") is injected simultaneously.`
	user := fmt.Sprintf("steady states: %v\navailable fault kinds: %v", names(states), faultKinds)
	err := g.structured(ctx, "propose_fault_scenario", sys, user, &out)
	return out, err
}

func (g *Gateway) RefineFaultParams(ctx context.Context, fault model.Fault, dryRunError string) (map[string]any, error) {
	var out map[string]any
	sys := `Respond with JSON object: the refined params for this fault kind. If a dry-run error is supplied, correct the prior params to address it.`
	user := fmt.Sprintf("fault kind: %s\ncurrent params: %v\ndry-run error: %s", fault.Name, fault.Params, dryRunError)
	err := g.structured(ctx, "refine_fault_params", sys, user, &out)
	return out, err
}

func (g *Gateway) PlanTimeSchedule(ctx context.Context, hypothesis model.Hypothesis, deadlineMargin int) (model.TimeSchedule, error) {
	var out model.TimeSchedule
	sys := fmt.Sprintf(`Respond with JSON {"total": int, "pre_validation": int, "fault_injection": int, "post_validation": int} seconds, satisfying total == pre_validation + fault_injection + post_validation + %d.`, 3*deadlineMargin)
	user := fmt.Sprintf("steady states: %v\nfault waves: %d", names(hypothesis.SteadyStates), len(hypothesis.Fault.Faults))
	err := g.structured(ctx, "plan_time_schedule", sys, user, &out)
	return out, err
}

func (g *Gateway) PlanValidationPhase(ctx context.Context, states model.SteadyStates, phaseBudget int) (model.ValidationPhase, error) {
	var out model.ValidationPhase
	sys := `Respond with JSON {"thought": string, "unit_tests": [{"name": string, "workflow_name": string, "grace_period": int, "duration": int, "deadline": int, "file_path": string}]}.`
	user := fmt.Sprintf("steady states: %v\nphase budget seconds: %d", names(states), phaseBudget)
	err := g.structured(ctx, "plan_validation_phase", sys, user, &out)
	return out, err
}

func (g *Gateway) PlanFaultPhase(ctx context.Context, hypothesis model.Hypothesis, phaseBudget int) (model.FaultInjectionPhase, error) {
	var out model.FaultInjectionPhase
	sys := `Respond with JSON {"thought": string, "unit_tests": [...], "fault_injection": [{"name": string, "name_id": int, "workflow_name": string, "grace_period": int, "duration": int, "deadline": int, "params": object}]}.`
	user := fmt.Sprintf("fault scenario: %+v\nphase budget seconds: %d", hypothesis.Fault, phaseBudget)
	err := g.structured(ctx, "plan_fault_phase", sys, user, &out)
	return out, err
}

func (g *Gateway) SummarizePlan(ctx context.Context, plan model.ExperimentPlan) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	sys := `Respond with JSON {"summary": string}: a short human-readable description of the compiled experiment plan.`
	user := fmt.Sprintf("plan: %+v", plan)
	err := g.structured(ctx, "summarize_plan", sys, user, &out)
	return out.Summary, err
}

func (g *Gateway) AnalyzeResult(ctx context.Context, result model.ExperimentResult) (model.Analysis, error) {
	var out model.Analysis
	sys := `Respond with JSON {"report": string}: a free-form analysis of why the experiment result failed.`
	user := fmt.Sprintf("pod statuses: %+v", result.PodStatuses)
	err := g.structured(ctx, "analyze_result", sys, user, &out)
	return out, err
}

// ReplayEntry is one prior (result, analysis, reconfiguration) triple fed
// back to discourage repeating a rejected fix, per spec.md 4.11.
type ReplayEntry struct {
	Result         model.ExperimentResult
	Analysis       model.Analysis
	Reconfiguration model.Reconfiguration
}

func (g *Gateway) ProposeReconfiguration(ctx context.Context, currentYAMLs []string, history []ReplayEntry) (model.Reconfiguration, error) {
	var out model.Reconfiguration
	sys := `Respond with JSON {"mod_k8s_yamls": [{"mod_type": "create"|"replace"|"delete", "fname": string, "explanation": string, "code": string?}]}. code is required unless mod_type is "delete". Do not repeat a reconfiguration already present in history.`
	user := fmt.Sprintf("current yamls: %v\nhistory: %+v", currentYAMLs, history)
	err := g.structured(ctx, "propose_reconfiguration", sys, user, &out)
	return out, err
}

func (g *Gateway) DebugReconfiguration(ctx context.Context, reconfig model.Reconfiguration, deployStderr string) (model.Reconfiguration, error) {
	var out model.Reconfiguration
	sys := `Respond with JSON {"mod_k8s_yamls": [...]} like propose_reconfiguration. The prior reconfiguration failed to deploy; fix it using the captured stderr.`
	user := fmt.Sprintf("failed reconfiguration: %+v\ndeploy stderr: %s", reconfig, deployStderr)
	err := g.structured(ctx, "debug_reconfiguration", sys, user, &out)
	return out, err
}

func (g *Gateway) AdjustFaultScope(ctx context.Context, prevYAMLs, currYAMLs []string, fault model.Fault) (map[string]any, error) {
	var out map[string]any
	sys := `Respond with JSON object: the updated selector/scope fields for this fault's params, given that the target resources changed between yaml sets.`
	user := fmt.Sprintf("prev yamls: %v\ncurr yamls: %v\nfault: %+v", prevYAMLs, currYAMLs, fault)
	err := g.structured(ctx, "adjust_fault_scope", sys, user, &out)
	return out, err
}

// AdjustUnitTestResult is C5's adjust_unit_test(ctx, ...) output. Code is
// nil when the existing unit test still applies unchanged.
type AdjustUnitTestResult struct {
	Thought string  `json:"thought"`
	Code    *string `json:"code,omitempty"`
}

func (g *Gateway) AdjustUnitTest(ctx context.Context, prevYAMLs, currYAMLs []string, testCode string) (AdjustUnitTestResult, error) {
	var out AdjustUnitTestResult
	sys := `Respond with JSON {"thought": string, "code": string?}. Return code only if the unit test must change to keep compiling/passing against the new yaml set; otherwise omit it.`
	user := fmt.Sprintf("prev yamls: %v\ncurr yamls: %v\ntest code:\n%s", prevYAMLs, currYAMLs, testCode)
	err := g.structured(ctx, "adjust_unit_test", sys, user, &out)
	return out, err
}

// SummarizeK8sManifest is C5's k8s_summary_agent(ctx) output: a short
// prose description of one manifest's role.
func (g *Gateway) SummarizeK8sManifest(ctx context.Context, manifestYAML string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	sys := `Respond with JSON {"summary": string}: a short, plain-language description of what this Kubernetes manifest deploys and its role in the application.`
	err := g.structured(ctx, "k8s_summary_agent", sys, manifestYAML, &out)
	return out.Summary, err
}

// SummarizeWeakness is C5's k8s_weakness_summary_agent(ctx) output: a
// single cluster-wide paragraph seeding the Fault Scenario Builder's
// proposals.
func (g *Gateway) SummarizeWeakness(ctx context.Context, k8sApp string, manifestSummaries []string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	sys := `Respond with JSON {"summary": string}: a paragraph identifying the application's most likely resilience weaknesses, given its manifests.`
	user := fmt.Sprintf("application:\n%s\n\nmanifest summaries: %v", k8sApp, manifestSummaries)
	err := g.structured(ctx, "k8s_weakness_summary_agent", sys, user, &out)
	return out.Summary, err
}

// InstructCEInstructions is C5's ce_instruct_agent(ctx) output: free-text
// operator guidance normalized into a structured CEInstructions.
func (g *Gateway) InstructCEInstructions(ctx context.Context, freeText string) (model.CEInstructions, error) {
	var out model.CEInstructions
	if freeText == "" {
		return out, nil
	}
	sys := `Respond with JSON {"target_completion": string?, "fault_preferences": [string]?, "steady_state_preferences": [string]?}, normalizing the operator's free-text instructions. Omit any field the text does not address.`
	err := g.structured(ctx, "ce_instruct_agent", sys, freeText, &out)
	return out, err
}

// SummarizeCycle is C5's summary_agent(ctx) output for the postprocessing
// stage: a whole-cycle human-readable Markdown summary covering the
// hypothesis, what failed across any improvement iterations, what changed,
// and the final state.
func (g *Gateway) SummarizeCycle(ctx context.Context, hypothesis model.Hypothesis, resultHistory []model.ExperimentResult, analysisHistory []model.Analysis, reconfigHistory []model.Reconfiguration) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	sys := `Respond with JSON {"summary": string}: a Markdown report covering the steady-state hypothesis under test, the fault scenario used, every failing iteration's analysis, what was reconfigured, and the final outcome.`
	user := fmt.Sprintf("steady states: %v\nfault event: %s\nresult history: %+v\nanalysis history: %+v\nreconfig history: %+v",
		names(hypothesis.SteadyStates), hypothesis.Fault.Event, resultHistory, analysisHistory, reconfigHistory)
	err := g.structured(ctx, "summarize_cycle", sys, user, &out)
	return out.Summary, err
}

func names(states model.SteadyStates) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.Name
	}
	return out
}
