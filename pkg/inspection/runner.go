// Package inspection implements C6, the Inspection Runner: it turns a
// generated probe or load-test script into a running Pod, waits for a
// terminal container state, and reports back exit code plus trimmed
// logs. A non-zero exit or timeout is a validation failure, never a
// system error — the Steady-State Builder (C7) decides whether to retry.
package inspection

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/internal/metrics"
	"github.com/richard-devbot/chaoshunter/pkg/model"
	tmpl "github.com/richard-devbot/chaoshunter/pkg/template"
	"github.com/richard-devbot/chaoshunter/pkg/timealgebra"
)

// maxLogLength is the default trimmed-log length, per spec.md 4.6.
const maxLogLength = 3000

var dnsUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

// Cluster is the slice of the Cluster Adapter (C1) the runner needs.
type Cluster interface {
	Apply(ctx context.Context, manifestYAML []byte) error
	GetPod(ctx context.Context, name string) (*corev1.Pod, error)
	GetPodLogs(ctx context.Context, podName, containerName string, tailLines int64) (string, error)
	Delete(ctx context.Context, manifestYAML []byte) error
	WaitUntilReady(ctx context.Context, name string, interval, timeout time.Duration, isReady func(*corev1.Pod) bool) (*corev1.Pod, error)
}

// Options configures one Run call.
type Options struct {
	Namespace    string
	ProjectName  string
	Image        string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Runner executes inspections (probe scripts and load tests) as
// short-lived pods.
type Runner struct {
	Cluster Cluster
	Opts    Options

	imageOnce imageChecked
}

// Run executes spec.md 4.6 steps 1-7 for one Inspection and returns its
// terminal (exit_code, trimmed_logs). The pod is deleted unconditionally,
// success or failure.
func (r *Runner) Run(ctx context.Context, insp model.Inspection) (model.TaskStatus, error) {
	if err := r.checkImage(); err != nil {
		return model.TaskStatus{}, err
	}

	podName := sanitizeDNS1123(insp.Script.Fname) + "-pod"

	manifest, err := r.render(podName, insp)
	if err != nil {
		return model.TaskStatus{}, ceerrors.New(ceerrors.Internal, "inspection", "render", err)
	}

	if err := r.Cluster.Apply(ctx, []byte(manifest)); err != nil {
		return model.TaskStatus{}, err
	}
	defer func() {
		_ = r.Cluster.Delete(ctx, []byte(manifest))
	}()

	pod, waitErr := r.Cluster.WaitUntilReady(ctx, podName, r.Opts.PollInterval, r.Opts.Timeout, isTerminal)

	status, logs := r.collect(ctx, podName, pod, waitErr)
	outcome := "fail"
	if status.ExitCode == 0 {
		outcome = "pass"
	}
	metrics.InspectionRunsTotal.WithLabelValues(string(insp.ToolType), outcome).Inc()

	return model.TaskStatus{ExitCode: status.ExitCode, Logs: trimLogs(logs, maxLogLength)}, nil
}

func (r *Runner) render(podName string, insp model.Inspection) (string, error) {
	switch insp.ToolType {
	case model.ToolLoadTest:
		return tmpl.Render("pod_load_test.yaml", tmpl.PodLoadTestData{
			PodName: podName, Namespace: r.Opts.Namespace, ProjectName: r.Opts.ProjectName,
			Image: r.Opts.Image, Command: []string{"sh", "-c", insp.Script.Content},
			DurationSeconds: durationSeconds(insp.Duration),
		})
	default:
		return tmpl.Render("pod_probe.yaml", tmpl.PodProbeData{
			PodName: podName, Namespace: r.Opts.Namespace, ProjectName: r.Opts.ProjectName,
			Image: r.Opts.Image, Command: []string{"sh", "-c", insp.Script.Content},
			DurationSeconds: durationSeconds(insp.Duration),
		})
	}
}

// collect extracts the terminated container's exit code and builds
// diagnostic logs. A missing container-status or a wait timeout is
// synthesized as a validation failure, never asserted, per spec.md 9's
// resolved open question.
func (r *Runner) collect(ctx context.Context, podName string, pod *corev1.Pod, waitErr error) (model.TaskStatus, string) {
	logs, _ := r.Cluster.GetPodLogs(ctx, podName, "", 0)

	if waitErr != nil {
		return model.TaskStatus{ExitCode: 1}, fmt.Sprintf("inspection timed out or errored waiting for %s: %v\npod events/logs:\n%s", podName, waitErr, logs)
	}
	if pod == nil || len(pod.Status.ContainerStatuses) == 0 {
		return model.TaskStatus{ExitCode: 1}, fmt.Sprintf("no container status observed for %s; synthesized diagnostic\npod logs:\n%s", podName, logs)
	}

	cs := pod.Status.ContainerStatuses[0]
	if cs.State.Terminated == nil {
		return model.TaskStatus{ExitCode: 1}, fmt.Sprintf("container for %s never reached a terminated state\npod logs:\n%s", podName, logs)
	}
	return model.TaskStatus{ExitCode: int(cs.State.Terminated.ExitCode)}, logs
}

func isTerminal(pod *corev1.Pod) bool {
	if pod == nil {
		return false
	}
	switch pod.Status.Phase {
	case corev1.PodSucceeded, corev1.PodFailed:
		return true
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Terminated != nil {
			return true
		}
	}
	return false
}

func sanitizeDNS1123(name string) string {
	lowered := strings.ToLower(name)
	lowered = strings.TrimSuffix(lowered, ".sh")
	lowered = dnsUnsafe.ReplaceAllString(lowered, "-")
	lowered = strings.Trim(lowered, "-")
	if lowered == "" {
		lowered = "inspection"
	}
	return lowered
}

// trimLogs length-limits logs to max characters, eliding the middle with
// an ellipsis token, per spec.md 4.6.
func trimLogs(logs string, max int) string {
	if len(logs) <= max {
		return logs
	}
	half := max / 2
	return logs[:half] + "\n... [elided] ...\n" + logs[len(logs)-half:]
}

func durationSeconds(d string) int {
	seconds, err := timealgebra.ParseSeconds(d)
	if err != nil {
		return 0
	}
	return seconds
}
