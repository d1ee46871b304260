// Package cycle implements C12, the Cycle Engine: the top-level state
// machine sequencing PREPROCESS -> HYPOTHESIS -> PLAN -> RUN -> (all pass
// -> POSTPROCESS -> DONE | any fail -> ANALYZE -> IMPROVE -> REPLAN ->
// RUN, looping until max_retries is exhausted -> FAIL).
//
// C12 exclusively owns CycleState; every component it calls receives a
// read-only view and returns a fresh value, per spec.md 3's ownership
// rule. A snapshot is persisted via the File Store after every phase
// boundary so a crashed cycle can be inspected (resume is out of scope,
// per spec.md's non-goals).
package cycle

import (
	"context"
	"encoding/json"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/internal/tracing"
	"github.com/richard-devbot/chaoshunter/pkg/fsstore"
	"github.com/richard-devbot/chaoshunter/pkg/improver"
	"github.com/richard-devbot/chaoshunter/pkg/llmgateway"
	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// Preprocessor is the slice of the preprocessing stage (pkg/preprocess)
// this engine needs.
type Preprocessor interface {
	Run(ctx context.Context, input model.ChaosEngInput) (model.ProcessedData, error)
}

// HypothesisBuilder is the slice of the Steady-State Builder (C7) this
// engine needs.
type HypothesisBuilder interface {
	Build(ctx context.Context, processed model.ProcessedData) (model.SteadyStates, bool, error)
}

// FaultBuilder is the slice of the Fault Scenario Builder (C8) this
// engine needs.
type FaultBuilder interface {
	Build(ctx context.Context, states model.SteadyStates) (model.FaultScenario, error)
}

// Compiler is the slice of the Experiment Compiler (C9) this engine
// needs.
type Compiler interface {
	Compile(hypothesis model.Hypothesis, pre model.ValidationPhase, fault model.FaultInjectionPhase, post model.ValidationPhase) (model.ChaosExperiment, error)
}

// Runner is the slice of the Experiment Runner (C10) this engine needs.
type Runner interface {
	Run(ctx context.Context, exp model.ChaosExperiment) (model.ExperimentResult, error)
}

// Improver is the slice of the Improver (C11) this engine needs.
type Improver interface {
	Improve(ctx context.Context, prevModDir string, modCount int, currentYAMLs []model.File, history []improver.ReplayEntry) (improver.Result, error)
}

// Planner is the slice of the LLM Gateway (C5) this engine calls
// directly, beyond what C7/C8/C11 already narrow for themselves. Since
// llmgateway never imports this package, *llmgateway.Gateway satisfies
// Planner without an adapter.
type Planner interface {
	PlanTimeSchedule(ctx context.Context, hypothesis model.Hypothesis, deadlineMargin int) (model.TimeSchedule, error)
	PlanValidationPhase(ctx context.Context, states model.SteadyStates, phaseBudget int) (model.ValidationPhase, error)
	PlanFaultPhase(ctx context.Context, hypothesis model.Hypothesis, phaseBudget int) (model.FaultInjectionPhase, error)
	SummarizePlan(ctx context.Context, plan model.ExperimentPlan) (string, error)
	AnalyzeResult(ctx context.Context, result model.ExperimentResult) (model.Analysis, error)
	SummarizeCycle(ctx context.Context, hypothesis model.Hypothesis, resultHistory []model.ExperimentResult, analysisHistory []model.Analysis, reconfigHistory []model.Reconfiguration) (string, error)
	AdjustUnitTest(ctx context.Context, prevYAMLs, currYAMLs []string, testCode string) (llmgateway.AdjustUnitTestResult, error)
	AdjustFaultScope(ctx context.Context, prevYAMLs, currYAMLs []string, fault model.Fault) (map[string]any, error)
}

// Store is the slice of the File Store (C3) this engine needs directly,
// for writing the postprocessing summary and every phase-boundary
// snapshot.
type Store interface {
	WorkDir() string
	Write(f model.File) error
	WriteSnapshot(out fsstore.CycleOutput) error
}

// Cluster is the slice of the Cluster Adapter (C1) this engine needs for
// the clean_before/clean_after label-scoped cleanup policy.
type Cluster interface {
	DeleteByLabel(ctx context.Context, list client.ObjectList, namespace string, sel labels.Selector) error
}

// Options configures one Engine.
type Options struct {
	Namespace      string
	ProjectName    string
	MaxRetries     int
	DeadlineMargin int // defaults to model.DeadlineMargin when zero

	CleanBefore bool
	CleanAfter  bool
}

// Engine drives spec.md 4.12's state machine over one cycle's
// components.
type Engine struct {
	Preprocessor  Preprocessor
	SteadyState   HypothesisBuilder
	FaultScenario FaultBuilder
	Gateway       Planner
	Compiler      Compiler
	Runner        Runner
	Improver      Improver
	Store         Store
	Cluster       Cluster
	Opts          Options

	// Tracer emits one span per phase boundary when set; a nil Tracer
	// disables tracing entirely rather than emitting no-op spans, so
	// wiring it is opt-in.
	Tracer *tracing.Tracer

	// OnComplete is the optional external review hook invoked once with
	// the final CycleState after DONE or FAIL, per SPEC_FULL's
	// supplemented review stage. Never invoked while the cycle is still
	// running.
	OnComplete func(model.CycleState)
}

// Run drives one cycle to DONE or FAIL and returns the final snapshot.
// The returned error is non-nil exactly when the cycle ended in FAIL.
func (e *Engine) Run(ctx context.Context, input model.ChaosEngInput) (model.CycleState, error) {
	state := model.CycleState{Phase: model.PhaseIdle, WorkDir: e.Store.WorkDir()}

	if e.Opts.CleanBefore {
		e.cleanup(ctx)
	}

	if err := e.preprocess(ctx, &state, input); err != nil {
		return e.fail(ctx, &state, err)
	}
	if err := e.hypothesize(ctx, &state); err != nil {
		return e.fail(ctx, &state, err)
	}

	for attempt := 0; ; attempt++ {
		if err := e.plan(ctx, &state); err != nil {
			return e.fail(ctx, &state, err)
		}

		state.Phase = model.PhaseRun
		runCtx, endRunSpan := e.span(ctx, string(model.PhaseRun))
		result, runErr := e.Runner.Run(runCtx, *state.Experiment)
		endRunSpan(runErr)
		if runErr != nil {
			return e.fail(ctx, &state, runErr)
		}

		if result.AllPassed() {
			state.AppendResult(result, nil, nil)
			e.snapshot(&state)
			return e.postprocess(ctx, state)
		}

		state.AppendResult(result, nil, nil)
		e.snapshot(&state)

		if attempt == e.Opts.MaxRetries {
			return e.fail(ctx, &state, ceerrors.BudgetExceededErr("cycle", "improve", attempt+1, e.Opts.MaxRetries+1))
		}

		if err := e.analyzeAndImprove(ctx, &state); err != nil {
			return e.fail(ctx, &state, err)
		}
		if err := e.replan(ctx, &state); err != nil {
			return e.fail(ctx, &state, err)
		}
	}
}

// span opens a tracing span for one phase when a Tracer is wired,
// otherwise it is a no-op, per spec.md 5's per-phase span requirement.
func (e *Engine) span(ctx context.Context, phase string) (context.Context, func(error)) {
	if e.Tracer == nil {
		return ctx, func(error) {}
	}
	return e.Tracer.StartPhase(ctx, phase)
}

func (e *Engine) preprocess(ctx context.Context, state *model.CycleState, input model.ChaosEngInput) (err error) {
	ctx, end := e.span(ctx, string(model.PhasePreprocess))
	defer func() { end(err) }()

	state.Phase = model.PhasePreprocess
	processed, err := e.Preprocessor.Run(ctx, input)
	if err != nil {
		return err
	}
	state.ProcessedData = &processed
	state.K8sYAMLsHistory = append(state.K8sYAMLsHistory, processed.K8sYAMLs)
	e.snapshot(state)
	return nil
}

func (e *Engine) hypothesize(ctx context.Context, state *model.CycleState) (err error) {
	ctx, end := e.span(ctx, string(model.PhaseHypothesis))
	defer func() { end(err) }()

	state.Phase = model.PhaseHypothesis
	states, _, err := e.SteadyState.Build(ctx, *state.ProcessedData)
	if err != nil {
		return err
	}
	scenario, err := e.FaultScenario.Build(ctx, states)
	if err != nil {
		return err
	}
	state.Hypothesis = &model.Hypothesis{SteadyStates: states, Fault: scenario}
	e.snapshot(state)
	return nil
}

func (e *Engine) plan(ctx context.Context, state *model.CycleState) (err error) {
	ctx, end := e.span(ctx, string(model.PhasePlan))
	defer func() { end(err) }()

	state.Phase = model.PhasePlan
	margin := e.margin()

	schedule, err := e.Gateway.PlanTimeSchedule(ctx, *state.Hypothesis, margin)
	if err != nil {
		return err
	}
	pre, err := e.Gateway.PlanValidationPhase(ctx, state.Hypothesis.SteadyStates, schedule.PreValidation)
	if err != nil {
		return err
	}
	faultPhase, err := e.Gateway.PlanFaultPhase(ctx, *state.Hypothesis, schedule.FaultInjection)
	if err != nil {
		return err
	}
	post, err := e.Gateway.PlanValidationPhase(ctx, state.Hypothesis.SteadyStates, schedule.PostValidation)
	if err != nil {
		return err
	}

	exp, err := e.Compiler.Compile(*state.Hypothesis, pre, faultPhase, post)
	if err != nil {
		return err
	}
	if summary, sumErr := e.Gateway.SummarizePlan(ctx, exp.Plan); sumErr == nil {
		exp.Plan.Summary = summary
	}

	state.Experiment = &exp
	e.snapshot(state)
	return nil
}

// analyzeAndImprove covers spec.md 4.12's ANALYZE and IMPROVE states: it
// reads the oracle's free-form analysis of the last recorded (unanalyzed)
// result, then proposes and deploys a reconfiguration against it.
func (e *Engine) analyzeAndImprove(ctx context.Context, state *model.CycleState) (err error) {
	ctx, end := e.span(ctx, string(model.PhaseAnalyze)+"+"+string(model.PhaseImprove))
	defer func() { end(err) }()

	state.Phase = model.PhaseAnalyze
	lastResult := state.ResultHistory[len(state.ResultHistory)-1]
	analysis, err := e.Gateway.AnalyzeResult(ctx, lastResult)
	if err != nil {
		return err
	}
	analysis.ID = model.NewRecordID()

	state.Phase = model.PhaseImprove
	history := replayHistory(state)
	var prevModDir string
	if n := len(state.ModDirHistory); n > 0 {
		prevModDir = state.ModDirHistory[n-1]
	}
	currentYAMLs := state.K8sYAMLsHistory[len(state.K8sYAMLsHistory)-1]

	result, err := e.Improver.Improve(ctx, prevModDir, len(state.ModDirHistory), currentYAMLs, history)
	if err != nil {
		return err
	}
	result.Reconfiguration.ID = model.NewRecordID()

	state.AnalysisHistory = append(state.AnalysisHistory, analysis)
	state.ReconfigHistory = append(state.ReconfigHistory, result.Reconfiguration)
	state.K8sYAMLsHistory = append(state.K8sYAMLsHistory, result.YAMLs)
	state.ModDirHistory = append(state.ModDirHistory, result.ModDir)
	state.ConductsReconfig = true
	state.CompletesReconfig = true
	e.snapshot(state)
	return nil
}

// replan covers spec.md 4.12's REPLAN state: it adjusts every existing
// steady-state unit test and fault scope against the newly deployed yaml
// set before re-planning and re-compiling the experiment, per the
// original's adjust_unit_test/adjust_fault_scope agents.
func (e *Engine) replan(ctx context.Context, state *model.CycleState) (err error) {
	ctx, end := e.span(ctx, string(model.PhaseReplan))
	defer func() { end(err) }()

	state.Phase = model.PhaseReplan

	n := len(state.K8sYAMLsHistory)
	prevYAMLs := fnames(state.K8sYAMLsHistory[n-2])
	currYAMLs := fnames(state.K8sYAMLsHistory[n-1])

	for i, s := range state.Hypothesis.SteadyStates {
		adj, err := e.Gateway.AdjustUnitTest(ctx, prevYAMLs, currYAMLs, s.UnitTest.Content)
		if err != nil {
			return err
		}
		if adj.Code != nil {
			state.Hypothesis.SteadyStates[i].UnitTest.Content = *adj.Code
			if err := e.Store.Write(state.Hypothesis.SteadyStates[i].UnitTest); err != nil {
				return ceerrors.New(ceerrors.Internal, "cycle", "replan_write_unit_test", err)
			}
		}
	}

	for waveIdx, wave := range state.Hypothesis.Fault.Faults {
		for faultIdx, f := range wave {
			params, err := e.Gateway.AdjustFaultScope(ctx, prevYAMLs, currYAMLs, f)
			if err != nil {
				return err
			}
			merged := make(map[string]any, len(f.Params)+len(params))
			for k, v := range f.Params {
				merged[k] = v
			}
			for k, v := range params {
				merged[k] = v
			}
			state.Hypothesis.Fault.Faults[waveIdx][faultIdx].Params = merged
		}
	}

	e.snapshot(state)
	return nil
}

// postprocess covers spec.md's supplemented POSTPROCESS state: a
// whole-cycle Markdown summary is generated and persisted before the
// cycle reaches DONE.
func (e *Engine) postprocess(ctx context.Context, state model.CycleState) (model.CycleState, error) {
	state.Phase = model.PhasePostprocess
	summary, err := e.Gateway.SummarizeCycle(ctx, *state.Hypothesis, state.ResultHistory, state.AnalysisHistory, state.ReconfigHistory)
	if err != nil {
		return e.fail(ctx, &state, err)
	}
	state.Summary = summary
	if err := e.Store.Write(model.NewFile("", filepath.Join("outputs", "summary.md"), summary)); err != nil {
		return e.fail(ctx, &state, err)
	}

	state.Phase = model.PhaseDone
	e.snapshot(&state)

	if e.Opts.CleanAfter {
		e.cleanup(ctx)
	}
	if e.OnComplete != nil {
		e.OnComplete(state)
	}
	return state, nil
}

func (e *Engine) fail(ctx context.Context, state *model.CycleState, err error) (model.CycleState, error) {
	state.Phase = model.PhaseFail
	state.Error = err.Error()
	e.snapshot(state)

	if e.Opts.CleanAfter {
		e.cleanup(ctx)
	}
	if e.OnComplete != nil {
		e.OnComplete(*state)
	}
	return *state, err
}

func (e *Engine) cleanup(ctx context.Context) {
	sel := labels.SelectorFromSet(labels.Set{"project": e.Opts.ProjectName})
	_ = e.Cluster.DeleteByLabel(ctx, &corev1.PodList{}, e.Opts.Namespace, sel)
}

// snapshot persists the current state to outputs/output.json. A snapshot
// failure is swallowed: it must never abort an otherwise-successful
// phase transition, since the in-memory state remains the source of
// truth for the rest of this run.
func (e *Engine) snapshot(state *model.CycleState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	_ = e.Store.WriteSnapshot(fsstore.CycleOutput{
		OutputDir:  filepath.Join(e.Store.WorkDir(), "outputs"),
		WorkDir:    e.Store.WorkDir(),
		CycleState: data,
	})
}

func (e *Engine) margin() int {
	if e.Opts.DeadlineMargin > 0 {
		return e.Opts.DeadlineMargin
	}
	return model.DeadlineMargin
}

func replayHistory(state *model.CycleState) []improver.ReplayEntry {
	n := len(state.AnalysisHistory)
	entries := make([]improver.ReplayEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = improver.ReplayEntry{
			Result:          state.ResultHistory[i],
			Analysis:        state.AnalysisHistory[i],
			Reconfiguration: state.ReconfigHistory[i],
		}
	}
	return entries
}

func fnames(yamls []model.File) []string {
	out := make([]string, len(yamls))
	for i, y := range yamls {
		out[i] = y.Fname
	}
	return out
}
