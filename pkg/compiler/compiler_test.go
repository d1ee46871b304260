package compiler

import (
	"strings"
	"testing"
	"time"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

func fixedClock() time.Time { return time.Unix(1700000000, 0) }

func testHypothesis() model.Hypothesis {
	return model.Hypothesis{
		SteadyStates: model.SteadyStates{
			{Name: "pod-count", Inspection: model.Inspection{ToolType: model.ToolProbeScript, Duration: "30", Script: model.File{Content: "echo ok"}}, UnitTest: model.File{Path: "hypothesis/pod-count_unit_test.sh"}},
		},
		Fault: model.FaultScenario{
			Faults: []model.Wave{
				{{Name: "pod-kill", NameID: 1, Params: map[string]any{"action": "pod-kill", "mode": "one", "selector": "app=web"}}},
			},
		},
	}
}

func testPlans() (model.ValidationPhase, model.FaultInjectionPhase, model.ValidationPhase) {
	pre := model.ValidationPhase{
		UnitTests: []model.PlannedUnitTest{{Name: "pod-count", GracePeriod: 0, Duration: 30}},
	}
	fault := model.FaultInjectionPhase{
		FaultInjection: []model.PlannedFault{{Name: "pod-kill", NameID: 1, GracePeriod: 0, Duration: 60}},
	}
	post := model.ValidationPhase{
		UnitTests: []model.PlannedUnitTest{{Name: "pod-count", GracePeriod: 0, Duration: 30}},
	}
	return pre, fault, post
}

func TestCompileAssignsNamesAndDeadlines(t *testing.T) {
	h := testHypothesis()
	pre, fault, post := testPlans()
	c := &Compiler{Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", now: fixedClock}}

	exp, err := c.Compile(h, pre, fault, post)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if exp.Plan.PreValidation.UnitTests[0].WorkflowName != "pre-unittest-pod-count" {
		t.Errorf("pre unit test name = %q", exp.Plan.PreValidation.UnitTests[0].WorkflowName)
	}
	if exp.Plan.PostValidation.UnitTests[0].WorkflowName != "post-unittest-pod-count" {
		t.Errorf("post unit test name = %q", exp.Plan.PostValidation.UnitTests[0].WorkflowName)
	}
	if exp.Plan.FaultInjection.FaultInjection[0].WorkflowName != "fault-pod-kill" {
		t.Errorf("fault name = %q", exp.Plan.FaultInjection.FaultInjection[0].WorkflowName)
	}
	if exp.Plan.PreValidation.UnitTests[0].Deadline != 330 {
		t.Errorf("pre deadline = %d, want 330 (30 + 300 margin)", exp.Plan.PreValidation.UnitTests[0].Deadline)
	}
	if exp.Plan.FaultInjection.FaultInjection[0].Deadline != 60 {
		t.Errorf("fault deadline = %d, want 60 (unchanged)", exp.Plan.FaultInjection.FaultInjection[0].Deadline)
	}
	if exp.Plan.PreValidation.UnitTests[0].FilePath != "hypothesis/pod-count_unit_test.sh" {
		t.Errorf("file_path not bound: %q", exp.Plan.PreValidation.UnitTests[0].FilePath)
	}
	if exp.Plan.FaultInjection.FaultInjection[0].Params["selector"] != "app=web" {
		t.Errorf("params not bound: %+v", exp.Plan.FaultInjection.FaultInjection[0].Params)
	}
}

func TestCompileTotalMatchesSumOfPhaseTotals(t *testing.T) {
	h := testHypothesis()
	pre, fault, post := testPlans()
	c := &Compiler{Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", now: fixedClock}}

	exp, err := c.Compile(h, pre, fault, post)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ts := exp.Plan.TimeSchedule
	if ts.Total != ts.PreValidation+ts.FaultInjection+ts.PostValidation+3*model.DeadlineMargin {
		t.Errorf("total = %d, want sum of phases plus 3 margins (%d+%d+%d+3*%d)", ts.Total, ts.PreValidation, ts.FaultInjection, ts.PostValidation, model.DeadlineMargin)
	}
}

func TestCompileIsDeterministicGivenFixedClock(t *testing.T) {
	h := testHypothesis()
	pre, fault, post := testPlans()
	c := &Compiler{Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", now: fixedClock}}

	exp1, err := c.Compile(h, pre, fault, post)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	exp2, err := c.Compile(h, pre, fault, post)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if exp1.Workflow.Content != exp2.Workflow.Content {
		t.Error("expected byte-identical workflow YAML for identical inputs and a fixed clock")
	}
}

func TestCompileRejectsUnboundSteadyState(t *testing.T) {
	h := model.Hypothesis{} // no steady states
	pre := model.ValidationPhase{UnitTests: []model.PlannedUnitTest{{Name: "missing"}}}
	c := &Compiler{Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", now: fixedClock}}

	if _, err := c.Compile(h, pre, model.FaultInjectionPhase{}, model.ValidationPhase{}); err == nil {
		t.Fatal("expected error for unbound steady state, got nil")
	}
}

func TestWorkflowYAMLContainsEntryAndAllTaskNames(t *testing.T) {
	h := testHypothesis()
	pre, fault, post := testPlans()
	c := &Compiler{Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", now: fixedClock}}

	exp, err := c.Compile(h, pre, fault, post)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	yaml := exp.Workflow.Content
	for _, want := range []string{"entry:", "pre-unittest-pod-count", "fault-pod-kill", "post-unittest-pod-count"} {
		if !strings.Contains(yaml, want) {
			t.Errorf("workflow YAML missing %q:\n%s", want, yaml)
		}
	}
}
