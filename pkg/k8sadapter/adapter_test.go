package k8sadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

func newTestAdapter(t *testing.T, objs ...runtime.Object) *Adapter {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		t.Fatalf("AddToScheme: %v", err)
	}
	c := fakeclient.NewClientBuilder().WithScheme(scheme).WithRuntimeObjects(objs...).Build()
	cs := k8sfake.NewSimpleClientset(objs...)
	return New(c, cs, nil, "default")
}

const podManifest = `
apiVersion: v1
kind: Pod
metadata:
  name: probe-pod
  namespace: default
spec:
  containers:
    - name: probe
      image: busybox
`

func TestApplyCreatesThenUpdates(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Apply(ctx, []byte(podManifest)); err != nil {
		t.Fatalf("Apply (create): %v", err)
	}
	pod, err := a.GetPod(ctx, "probe-pod")
	if err != nil {
		t.Fatalf("GetPod: %v", err)
	}
	if pod.Spec.Containers[0].Image != "busybox" {
		t.Errorf("image = %q, want busybox", pod.Spec.Containers[0].Image)
	}

	// Re-applying the identical manifest must update, not error.
	if err := a.Apply(ctx, []byte(podManifest)); err != nil {
		t.Fatalf("Apply (update): %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Delete(ctx, []byte(podManifest)); err != nil {
		t.Fatalf("Delete on absent object must be a no-op, got: %v", err)
	}
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "pending-pod", Namespace: "default"},
		Status:     corev1.PodStatus{Phase: corev1.PodPending},
	}
	a := newTestAdapter(t, pod)
	ctx := context.Background()

	_, err := a.WaitUntilReady(ctx, "pending-pod", 2*time.Millisecond, 10*time.Millisecond,
		func(p *corev1.Pod) bool { return p.Status.Phase == corev1.PodSucceeded })
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	var ceErr *ceerrors.CEError
	if !errors.As(err, &ceErr) {
		t.Fatalf("expected a *ceerrors.CEError, got %T: %v", err, err)
	}
	if ceErr.Kind != ceerrors.TransientInfra {
		t.Errorf("Kind = %v, want TransientInfra", ceErr.Kind)
	}
}

func TestWaitUntilReadySucceeds(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "done-pod", Namespace: "default"},
		Status:     corev1.PodStatus{Phase: corev1.PodSucceeded},
	}
	a := newTestAdapter(t, pod)
	ctx := context.Background()

	got, err := a.WaitUntilReady(ctx, "done-pod", time.Millisecond, 50*time.Millisecond,
		func(p *corev1.Pod) bool { return p.Status.Phase == corev1.PodSucceeded })
	if err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}
	if got.Name != "done-pod" {
		t.Errorf("got pod %q, want done-pod", got.Name)
	}
}
