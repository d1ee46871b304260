package faultscenario

import (
	"context"
	"fmt"
	"testing"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

type stubOracle struct {
	scenario      model.FaultScenario
	refineCalls   int
	paramsPerCall []map[string]any
}

func (s *stubOracle) ProposeFaultScenario(ctx context.Context, states model.SteadyStates, faultKinds []string) (model.FaultScenario, error) {
	return s.scenario, nil
}

func (s *stubOracle) RefineFaultParams(ctx context.Context, fault model.Fault, dryRunError string) (map[string]any, error) {
	idx := s.refineCalls
	s.refineCalls++
	if idx < len(s.paramsPerCall) {
		return s.paramsPerCall[idx], nil
	}
	return s.paramsPerCall[len(s.paramsPerCall)-1], nil
}

type stubDryRunner struct {
	failUntilCall int
	calls         int
}

func (d *stubDryRunner) DryRunApply(ctx context.Context, manifestYAML []byte) error {
	d.calls++
	if d.calls <= d.failUntilCall {
		return fmt.Errorf("dry-run rejected: missing field")
	}
	return nil
}

func TestBuildRefinesUntilDryRunPasses(t *testing.T) {
	scenario := model.FaultScenario{
		Event: "pod-kill-event",
		Faults: []model.Wave{
			{{Name: "pod-kill", NameID: 1, Params: map[string]any{}}},
		},
	}
	oracle := &stubOracle{
		scenario: scenario,
		paramsPerCall: []map[string]any{
			{"action": "pod-kill", "mode": "one"},                           // missing selector
			{"action": "pod-kill", "mode": "one", "selector": "app=web"},    // complete, but dry-run rejects once
			{"action": "pod-kill", "mode": "one", "selector": "app=web"},    // passes
		},
	}
	dryRunner := &stubDryRunner{failUntilCall: 1}

	b := &Builder{Gateway: oracle, Cluster: dryRunner, MaxRetries: 3}
	got, err := b.Build(context.Background(), model.SteadyStates{{Name: "pod-count"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.Faults[0][0].Params["selector"] != "app=web" {
		t.Errorf("expected refined selector, got %+v", got.Faults[0][0].Params)
	}
	if oracle.refineCalls != 3 {
		t.Errorf("refineCalls = %d, want 3", oracle.refineCalls)
	}
}

func TestBuildExhaustsBudgetOnPersistentRejection(t *testing.T) {
	scenario := model.FaultScenario{
		Faults: []model.Wave{{{Name: "pod-kill", NameID: 1, Params: map[string]any{}}}},
	}
	oracle := &stubOracle{
		scenario:      scenario,
		paramsPerCall: []map[string]any{{"action": "pod-kill", "mode": "one", "selector": "app=web"}},
	}
	dryRunner := &stubDryRunner{failUntilCall: 100}

	b := &Builder{Gateway: oracle, Cluster: dryRunner, MaxRetries: 2}
	_, err := b.Build(context.Background(), model.SteadyStates{{Name: "pod-count"}})
	if err == nil {
		t.Fatal("expected BudgetExceeded error, got nil")
	}
}

func TestBuildRejectsUnknownFaultKind(t *testing.T) {
	oracle := &stubOracle{scenario: model.FaultScenario{
		Faults: []model.Wave{{{Name: "teleport-pod", NameID: 1}}},
	}}
	b := &Builder{Gateway: oracle, Cluster: &stubDryRunner{}, MaxRetries: 1}
	if _, err := b.Build(context.Background(), nil); err == nil {
		t.Fatal("expected error for unregistered fault kind, got nil")
	}
}
