// Package experimentrunner implements C10, the Experiment Runner: it
// deploys a compiled workflow, polls its entry node to a terminal
// condition, and collects every task's terminal pod status.
package experimentrunner

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/internal/metrics"
	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// Cluster is the slice of the Cluster Adapter (C1) this runner needs.
type Cluster interface {
	DeleteByLabel(ctx context.Context, list client.ObjectList, namespace string, sel labels.Selector) error
	Apply(ctx context.Context, manifestYAML []byte) error
	GetEntryWorkflowNode(ctx context.Context, name string) (accomplished bool, err error)
	ListPods(ctx context.Context, sel labels.Selector) ([]corev1.Pod, error)
}

// Options configures one Run call.
type Options struct {
	Namespace     string
	ProjectName   string
	CheckInterval time.Duration
	Deadline      time.Duration
}

// Runner deploys and observes one compiled ChaosExperiment.
type Runner struct {
	Cluster Cluster
	Opts    Options
}

// taskWorkflowNames returns every workflow_name bound into the plan, the
// full set of task pods the runner must account for.
func taskWorkflowNames(plan model.ExperimentPlan) []string {
	var names []string
	for _, t := range plan.PreValidation.UnitTests {
		names = append(names, t.WorkflowName)
	}
	for _, t := range plan.FaultInjection.UnitTests {
		names = append(names, t.WorkflowName)
	}
	for _, f := range plan.FaultInjection.FaultInjection {
		names = append(names, f.WorkflowName)
	}
	for _, t := range plan.PostValidation.UnitTests {
		names = append(names, t.WorkflowName)
	}
	return names
}

// Run executes spec.md 4.10 steps 1-5 for one ChaosExperiment.
func (r *Runner) Run(ctx context.Context, exp model.ChaosExperiment) (model.ExperimentResult, error) {
	sel := labels.SelectorFromSet(labels.Set{"project": r.Opts.ProjectName})
	_ = r.Cluster.DeleteByLabel(ctx, &corev1.PodList{}, r.Opts.Namespace, sel) // best-effort; prior pods only

	if err := r.Cluster.Apply(ctx, []byte(exp.Workflow.Content)); err != nil {
		return model.ExperimentResult{}, err
	}

	if err := r.pollUntilAccomplished(ctx, exp.WorkflowName); err != nil {
		return model.ExperimentResult{}, err
	}

	return r.collectResult(ctx, exp.Plan)
}

// pollUntilAccomplished polls the Workflow object every
// CheckInterval until its Accomplished condition is not False, ctx is
// cancelled, or Deadline elapses.
func (r *Runner) pollUntilAccomplished(ctx context.Context, workflowName string) error {
	deadline := time.Now().Add(r.Opts.Deadline)
	ticker := time.NewTicker(r.Opts.CheckInterval)
	defer ticker.Stop()

	for {
		accomplished, err := r.Cluster.GetEntryWorkflowNode(ctx, workflowName)
		if err == nil && accomplished {
			return nil
		}

		if time.Now().After(deadline) {
			return ceerrors.New(ceerrors.WorkflowDeadline, "experimentrunner", "poll_until_accomplished",
				fmt.Errorf("workflow %s did not reach Accomplished within %s", workflowName, r.Opts.Deadline))
		}

		select {
		case <-ctx.Done():
			return ceerrors.New(ceerrors.UserCancel, "experimentrunner", "poll_until_accomplished", ctx.Err())
		case <-ticker.C:
		}
	}
}

// collectResult enumerates task pods by project label and reads each
// one's terminal container state. A task whose pod cannot be located is
// named in the returned WorkflowDeadline error, per spec.md 4.10's
// missed-pod policy.
func (r *Runner) collectResult(ctx context.Context, plan model.ExperimentPlan) (model.ExperimentResult, error) {
	sel := labels.SelectorFromSet(labels.Set{"project": r.Opts.ProjectName})
	pods, err := r.Cluster.ListPods(ctx, sel)
	if err != nil {
		return model.ExperimentResult{}, err
	}

	statuses := map[string]model.TaskStatus{}
	var missing []string
	for _, name := range taskWorkflowNames(plan) {
		pod := findPodForTask(pods, name)
		if pod == nil {
			missing = append(missing, name)
			continue
		}
		statuses[name] = terminalStatus(pod)
	}

	if len(missing) > 0 {
		return model.ExperimentResult{}, ceerrors.Workflow("experimentrunner", "collect_result", missing)
	}

	passed := 0
	for _, s := range statuses {
		if s.ExitCode == 0 {
			passed++
		}
	}
	metrics.ExperimentRunsTotal.WithLabelValues(outcomeLabel(passed == len(statuses))).Inc()

	return model.ExperimentResult{PodStatuses: statuses}, nil
}

// findPodForTask matches a task's pod by substring: Chaos-Mesh workflow
// node pods are named "<workflow-name>-<node-name>-<suffix>", so the
// task's workflow_name always appears as a prefix component of its pod.
func findPodForTask(pods []corev1.Pod, workflowName string) *corev1.Pod {
	for i := range pods {
		if strings.Contains(pods[i].Name, workflowName) {
			return &pods[i]
		}
	}
	return nil
}

func terminalStatus(pod *corev1.Pod) model.TaskStatus {
	if len(pod.Status.ContainerStatuses) == 0 {
		return model.TaskStatus{ExitCode: 1, Logs: "no container status observed"}
	}
	cs := pod.Status.ContainerStatuses[0]
	if cs.State.Terminated == nil {
		return model.TaskStatus{ExitCode: 1, Logs: "container never reached a terminated state"}
	}
	return model.TaskStatus{ExitCode: int(cs.State.Terminated.ExitCode), Logs: cs.State.Terminated.Message}
}

func outcomeLabel(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
