// Package k8sadapter implements C1, the Cluster Adapter: the only part of
// the engine that talks to the Kubernetes control plane. Every call is a
// total function from the engine's point of view — it starts, completes,
// and returns; any goroutines or streaming it uses internally (pod log
// reading) are not observable outside the call.
package k8sadapter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	apimeta "k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
)

// Adapter wraps a controller-runtime client (for CRUD against typed and
// unstructured objects) and a raw clientset + rest.Config (the clientset
// serves the pod logs subresource), exactly the pairing the teacher's
// reconciler carries as Client + Clientset + Config.
type Adapter struct {
	Client     client.Client
	Clientset  kubernetes.Interface
	RESTConfig *rest.Config
	Namespace  string
}

// New builds an Adapter from an already-constructed controller-runtime
// client and clientset, scoped to namespace.
func New(c client.Client, clientset kubernetes.Interface, cfg *rest.Config, namespace string) *Adapter {
	return &Adapter{Client: c, Clientset: clientset, RESTConfig: cfg, Namespace: namespace}
}

// Apply decodes a single YAML manifest and creates or updates it
// server-side. Manifests the engine generates (pods, workflows, fault
// CRs) are always unstructured — the adapter never needs their Go types
// registered in a scheme.
func (a *Adapter) Apply(ctx context.Context, manifestYAML []byte) error {
	obj, err := decodeUnstructured(manifestYAML)
	if err != nil {
		return ceerrors.New(ceerrors.Internal, "k8sadapter", "apply", err)
	}
	obj.SetNamespace(nsOrDefault(obj.GetNamespace(), a.Namespace))

	existing := obj.DeepCopy()
	err = a.Client.Get(ctx, client.ObjectKeyFromObject(obj), existing)
	switch {
	case apierrors.IsNotFound(err):
		if err := a.Client.Create(ctx, obj); err != nil {
			return wrapTransient("apply:create", err)
		}
		return nil
	case err != nil:
		return wrapTransient("apply:get", err)
	default:
		obj.SetResourceVersion(existing.GetResourceVersion())
		if err := a.Client.Update(ctx, obj); err != nil {
			return wrapTransient("apply:update", err)
		}
		return nil
	}
}

// DryRunApply validates manifestYAML against the live API server (schema,
// admission webhooks, CRD OpenAPI) without persisting it. A rejection is
// a ValidationFail, per spec.md 4.8: the Fault Scenario Builder feeds the
// message back into the refinement prompt.
func (a *Adapter) DryRunApply(ctx context.Context, manifestYAML []byte) error {
	obj, err := decodeUnstructured(manifestYAML)
	if err != nil {
		return ceerrors.New(ceerrors.Internal, "k8sadapter", "dry_run_apply", err)
	}
	obj.SetNamespace(nsOrDefault(obj.GetNamespace(), a.Namespace))

	if err := a.Client.Create(ctx, obj, client.DryRunAll); err != nil {
		return ceerrors.New(ceerrors.ValidationFail, "k8sadapter", "dry_run_apply", err)
	}
	return nil
}

// Delete removes the object described by manifestYAML. A not-found
// response is treated as success: deleting an already-absent object is a
// no-op, per spec.md 8's idempotence property.
func (a *Adapter) Delete(ctx context.Context, manifestYAML []byte) error {
	obj, err := decodeUnstructured(manifestYAML)
	if err != nil {
		return ceerrors.New(ceerrors.Internal, "k8sadapter", "delete", err)
	}
	obj.SetNamespace(nsOrDefault(obj.GetNamespace(), a.Namespace))

	if err := a.Client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return wrapTransient("delete", err)
	}
	return nil
}

// DeleteByLabel deletes every object of the given GVK in namespace
// matching selector. Used by the Experiment Runner (C10) to best-effort
// clear the prior run's pods (by project label) before a fresh run, and by
// the Cycle Engine's cleanup-on-DONE/FAIL policy. Neither caller passes a
// Workflow or workflow-node list, so those objects are not deleted.
func (a *Adapter) DeleteByLabel(ctx context.Context, list client.ObjectList, namespace string, sel labels.Selector) error {
	if err := a.Client.List(ctx, list, client.InNamespace(namespace), client.MatchingLabelsSelector{Selector: sel}); err != nil {
		return wrapTransient("delete_by_label:list", err)
	}
	items, err := extractItems(list)
	if err != nil {
		return ceerrors.New(ceerrors.Internal, "k8sadapter", "delete_by_label", err)
	}
	for _, item := range items {
		if err := a.Client.Delete(ctx, item); err != nil && !apierrors.IsNotFound(err) {
			return wrapTransient("delete_by_label:delete", err)
		}
	}
	return nil
}

// ListPods lists every Pod in the adapter's namespace matching sel. Used
// by the Experiment Runner (C10) to enumerate a workflow's task pods.
func (a *Adapter) ListPods(ctx context.Context, sel labels.Selector) ([]corev1.Pod, error) {
	var list corev1.PodList
	if err := a.Client.List(ctx, &list, client.InNamespace(a.Namespace), client.MatchingLabelsSelector{Selector: sel}); err != nil {
		return nil, wrapTransient("list_pods", err)
	}
	return list.Items, nil
}

// GetPod fetches a Pod by name in the adapter's namespace.
func (a *Adapter) GetPod(ctx context.Context, name string) (*corev1.Pod, error) {
	var pod corev1.Pod
	if err := a.Client.Get(ctx, client.ObjectKey{Namespace: a.Namespace, Name: name}, &pod); err != nil {
		return nil, wrapTransient("get_pod", err)
	}
	return &pod, nil
}

// GetPodLogs fetches a pod's container logs. tailLines <= 0 requests the
// full log.
func (a *Adapter) GetPodLogs(ctx context.Context, podName, containerName string, tailLines int64) (string, error) {
	opts := &corev1.PodLogOptions{Container: containerName}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}
	req := a.Clientset.CoreV1().Pods(a.Namespace).GetLogs(podName, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", wrapTransient("get_pod_logs", err)
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return "", wrapTransient("get_pod_logs:read", err)
	}
	return buf.String(), nil
}

// WaitUntilReady polls GetPod every interval until isReady reports true,
// ctx is cancelled, or timeout elapses. It never blocks past timeout:
// every wait-point in the engine is bounded, per spec.md 5.
func (a *Adapter) WaitUntilReady(ctx context.Context, name string, interval, timeout time.Duration, isReady func(*corev1.Pod) bool) (*corev1.Pod, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pod, err := a.GetPod(ctx, name)
		if err == nil && isReady(pod) {
			return pod, nil
		}

		if time.Now().After(deadline) {
			return pod, ceerrors.New(ceerrors.TransientInfra, "k8sadapter", "wait_until_ready",
				fmt.Errorf("timed out after %s waiting for %s", timeout, name))
		}

		select {
		case <-ctx.Done():
			return pod, ceerrors.New(ceerrors.UserCancel, "k8sadapter", "wait_until_ready", ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetEntryWorkflowNode fetches a deployed Chaos-Mesh style Workflow object
// by name and reports whether its Accomplished condition
// is not False — the terminal signal the Experiment Runner (C10) polls
// for, per spec.md 4.10.
func (a *Adapter) GetEntryWorkflowNode(ctx context.Context, name string) (accomplished bool, status unstructured.Unstructured, err error) {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("chaos-mesh.org/v1alpha1")
	obj.SetKind("Workflow")
	if getErr := a.Client.Get(ctx, client.ObjectKey{Namespace: a.Namespace, Name: name}, obj); getErr != nil {
		return false, unstructured.Unstructured{}, wrapTransient("get_entry_workflow_node", getErr)
	}

	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, c := range conditions {
		cond, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if cond["type"] == "Accomplished" {
			return cond["status"] != "False", *obj, nil
		}
	}
	return false, *obj, nil
}

func decodeUnstructured(manifestYAML []byte) (*unstructured.Unstructured, error) {
	var m map[string]any
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &unstructured.Unstructured{Object: m}, nil
}

func nsOrDefault(ns, fallback string) string {
	if ns != "" {
		return ns
	}
	return fallback
}

func wrapTransient(op string, err error) error {
	if apierrors.IsInvalid(err) || apierrors.IsBadRequest(err) {
		return ceerrors.New(ceerrors.ValidationFail, "k8sadapter", op, err)
	}
	return ceerrors.New(ceerrors.TransientInfra, "k8sadapter", op, err)
}

func extractItems(list client.ObjectList) ([]client.Object, error) {
	raw, err := apimeta.ExtractList(list)
	if err != nil {
		return nil, err
	}
	items := make([]client.Object, 0, len(raw))
	for _, r := range raw {
		obj, ok := r.(client.Object)
		if !ok {
			return nil, fmt.Errorf("k8sadapter: list item does not implement client.Object")
		}
		items = append(items, obj)
	}
	return items, nil
}
