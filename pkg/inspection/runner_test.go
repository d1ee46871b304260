package inspection

import (
	"context"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

type stubCluster struct {
	applyErr   error
	waitPod    *corev1.Pod
	waitErr    error
	logs       string
	deleted    bool
	applyCalls int
}

func (s *stubCluster) Apply(ctx context.Context, manifestYAML []byte) error {
	s.applyCalls++
	return s.applyErr
}
func (s *stubCluster) GetPod(ctx context.Context, name string) (*corev1.Pod, error) { return s.waitPod, nil }
func (s *stubCluster) GetPodLogs(ctx context.Context, podName, containerName string, tailLines int64) (string, error) {
	return s.logs, nil
}
func (s *stubCluster) Delete(ctx context.Context, manifestYAML []byte) error {
	s.deleted = true
	return nil
}
func (s *stubCluster) WaitUntilReady(ctx context.Context, name string, interval, timeout time.Duration, isReady func(*corev1.Pod) bool) (*corev1.Pod, error) {
	return s.waitPod, s.waitErr
}

func terminatedPod(exitCode int32) *corev1.Pod {
	return &corev1.Pod{
		Status: corev1.PodStatus{
			Phase: corev1.PodSucceeded,
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{ExitCode: exitCode}}}},
		},
	}
}

func TestRunDeletesPodRegardlessOfOutcome(t *testing.T) {
	cluster := &stubCluster{waitPod: terminatedPod(0), logs: "ok"}
	r := &Runner{Cluster: cluster, Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", Timeout: time.Second}}

	insp := model.Inspection{ToolType: model.ToolProbeScript, Duration: "20s", Script: model.File{Fname: "probe.sh", Content: "echo ok"}}
	status, err := r.Run(context.Background(), insp)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", status.ExitCode)
	}
	if !cluster.deleted {
		t.Error("expected pod to be deleted unconditionally")
	}
}

func TestRunNonZeroExitIsValidationFailureNotError(t *testing.T) {
	cluster := &stubCluster{waitPod: terminatedPod(1), logs: "assertion failed"}
	r := &Runner{Cluster: cluster, Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", Timeout: time.Second}}

	insp := model.Inspection{ToolType: model.ToolProbeScript, Duration: "20s", Script: model.File{Fname: "probe.sh", Content: "exit 1"}}
	status, err := r.Run(context.Background(), insp)
	if err != nil {
		t.Fatalf("Run must not return a Go error for a non-zero exit, got: %v", err)
	}
	if status.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", status.ExitCode)
	}
	if !cluster.deleted {
		t.Error("expected pod to be deleted even on failure")
	}
}

func TestRunSynthesizesDiagnosticOnMissingContainerStatus(t *testing.T) {
	cluster := &stubCluster{waitPod: &corev1.Pod{}, logs: "no logs"}
	r := &Runner{Cluster: cluster, Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", Timeout: time.Second}}

	insp := model.Inspection{ToolType: model.ToolProbeScript, Duration: "20s", Script: model.File{Fname: "probe.sh", Content: "echo ok"}}
	status, err := r.Run(context.Background(), insp)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1 (synthesized failure)", status.ExitCode)
	}
}

func TestTrimLogsElidesMiddle(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	trimmed := trimLogs(string(long), 3000)
	if len(trimmed) >= 5000 {
		t.Errorf("expected trimmed output shorter than input, got len %d", len(trimmed))
	}
}

func TestSanitizeDNS1123(t *testing.T) {
	cases := map[string]string{
		"Probe_Script.sh": "probe-script",
		"my.test.sh":      "my-test",
		"":                "inspection",
	}
	for in, want := range cases {
		if got := sanitizeDNS1123(in); got != want {
			t.Errorf("sanitizeDNS1123(%q) = %q, want %q", in, got, want)
		}
	}
}
