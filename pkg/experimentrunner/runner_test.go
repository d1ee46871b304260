package experimentrunner

import (
	"context"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

type stubCluster struct {
	deleteByLabelCalls int
	applyCalls         int
	accomplishedAfter  int
	pollCalls          int
	pods               []corev1.Pod
}

func (s *stubCluster) DeleteByLabel(ctx context.Context, list client.ObjectList, namespace string, sel labels.Selector) error {
	s.deleteByLabelCalls++
	return nil
}

func (s *stubCluster) Apply(ctx context.Context, manifestYAML []byte) error {
	s.applyCalls++
	return nil
}

func (s *stubCluster) GetEntryWorkflowNode(ctx context.Context, name string) (bool, error) {
	s.pollCalls++
	return s.pollCalls >= s.accomplishedAfter, nil
}

func (s *stubCluster) ListPods(ctx context.Context, sel labels.Selector) ([]corev1.Pod, error) {
	return s.pods, nil
}

func testPlan() model.ExperimentPlan {
	return model.ExperimentPlan{
		PreValidation:  model.ValidationPhase{UnitTests: []model.PlannedUnitTest{{WorkflowName: "pre-unittest-pod-count"}}},
		FaultInjection: model.FaultInjectionPhase{FaultInjection: []model.PlannedFault{{WorkflowName: "fault-pod-kill"}}},
		PostValidation: model.ValidationPhase{UnitTests: []model.PlannedUnitTest{{WorkflowName: "post-unittest-pod-count"}}},
	}
}

func TestRunDeploysAndCollectsPassingResult(t *testing.T) {
	pods := []corev1.Pod{
		namedTerminatedPod("chaos-experiment-pre-unittest-pod-count-abc", 0),
		namedTerminatedPod("chaos-experiment-fault-pod-kill-def", 0),
		namedTerminatedPod("chaos-experiment-post-unittest-pod-count-ghi", 0),
	}
	cluster := &stubCluster{accomplishedAfter: 1, pods: pods}
	r := &Runner{Cluster: cluster, Opts: Options{Namespace: "default", ProjectName: "chaoshunter", CheckInterval: time.Millisecond, Deadline: time.Second}}

	result, err := r.Run(context.Background(), model.ChaosExperiment{WorkflowName: "chaos-experiment-1", Plan: testPlan(), Workflow: model.File{Content: "apiVersion: v1"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.AllPassed() {
		t.Errorf("expected all tasks to pass, got %+v", result.PodStatuses)
	}
	if cluster.deleteByLabelCalls == 0 {
		t.Error("expected a best-effort delete-by-label before apply")
	}
	if cluster.applyCalls != 1 {
		t.Errorf("applyCalls = %d, want 1", cluster.applyCalls)
	}
}

func TestRunReportsMissingTaskPods(t *testing.T) {
	pods := []corev1.Pod{
		namedTerminatedPod("chaos-experiment-pre-unittest-pod-count-abc", 0),
	}
	cluster := &stubCluster{accomplishedAfter: 1, pods: pods}
	r := &Runner{Cluster: cluster, Opts: Options{Namespace: "default", ProjectName: "chaoshunter", CheckInterval: time.Millisecond, Deadline: time.Second}}

	_, err := r.Run(context.Background(), model.ChaosExperiment{WorkflowName: "chaos-experiment-1", Plan: testPlan(), Workflow: model.File{Content: "apiVersion: v1"}})
	if err == nil {
		t.Fatal("expected a WorkflowDeadline error naming missing tasks, got nil")
	}
}

func TestRunTimesOutWaitingForAccomplished(t *testing.T) {
	cluster := &stubCluster{accomplishedAfter: 1000000}
	r := &Runner{Cluster: cluster, Opts: Options{Namespace: "default", ProjectName: "chaoshunter", CheckInterval: time.Millisecond, Deadline: 5 * time.Millisecond}}

	_, err := r.Run(context.Background(), model.ChaosExperiment{WorkflowName: "chaos-experiment-1", Plan: testPlan(), Workflow: model.File{Content: "apiVersion: v1"}})
	if err == nil {
		t.Fatal("expected a deadline error, got nil")
	}
}

func namedTerminatedPod(name string, exitCode int32) corev1.Pod {
	p := corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{ExitCode: exitCode}}},
			},
		},
	}
	p.Name = name
	return p
}
