package template

import (
	"strings"
	"testing"
)

func TestRenderTaskProbe(t *testing.T) {
	out, err := Render("task_probe.yaml", TaskProbeData{
		Name:            "pre-unittest-pod-count",
		Deadline:        "30s",
		Image:           "chaoshunter/probe:latest",
		Command:         []string{"sh", "-c", "probe.sh"},
		DurationSeconds: 20,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"name: pre-unittest-pod-count", "templateType: Task", `["sh", "-c", "probe.sh"]`, "--duration", "20s"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFaultDeterministicParamOrder(t *testing.T) {
	data := FaultTemplateData{
		Name:      "fault-pod-kill",
		Deadline:  "10s",
		Kind:      "PodChaos",
		KindLower: "podChaos",
		Params: map[string]any{
			"action":   "pod-kill",
			"mode":     "one",
			"selector": "app=web",
		},
	}
	first, err := Render("fault.yaml", data)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Render("fault.yaml", data)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if again != first {
			t.Fatalf("rendering is not deterministic across repeated calls with identical input")
		}
	}
}

func TestRenderFaultWithNestedSelector(t *testing.T) {
	data := FaultTemplateData{
		Name:      "fault-pod-kill",
		Deadline:  "10s",
		Kind:      "PodChaos",
		KindLower: "podChaos",
		Params: map[string]any{
			"action": "pod-kill",
			"mode":   "one",
			"selector": map[string]any{
				"namespaces":     []string{"default"},
				"labelSelectors": map[string]any{"app": "web"},
			},
		},
	}
	out, err := Render("fault.yaml", data)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "map[") {
		t.Fatalf("rendered fault YAML contains Go map syntax instead of block YAML:\n%s", out)
	}
	for _, want := range []string{"selector:", "namespaces:", "labelSelectors:", "app: web"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSerialChildren(t *testing.T) {
	out, err := Render("serial.yaml", SerialParallelData{
		Name:     "fault-serial",
		Deadline: "50s",
		Children: []string{"parallel-1", "fault-pod-kill"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "- parallel-1") || !strings.Contains(out, "- fault-pod-kill") {
		t.Errorf("serial output missing expected children:\n%s", out)
	}
}

func TestRenderWorkflowMeta(t *testing.T) {
	nodes, err := Render("suspend.yaml", SuspendData{Name: "suspend-1", Deadline: "10s"})
	if err != nil {
		t.Fatalf("Render suspend: %v", err)
	}
	out, err := Render("workflow_meta.yaml", WorkflowMetaData{
		Name:          "chaos-experiment-20260101000000",
		Namespace:     "default",
		ProjectName:   "chaoshunter",
		Entry:         "entry-serial",
		RenderedNodes: nodes,
	})
	if err != nil {
		t.Fatalf("Render workflow_meta: %v", err)
	}
	if !strings.Contains(out, "kind: Workflow") || !strings.Contains(out, "entry: entry-serial") {
		t.Errorf("workflow output missing expected fields:\n%s", out)
	}
}

func TestRenderDeployBundle(t *testing.T) {
	out, err := Render("deploy_bundle.yaml", DeployBundleData{
		Namespace:   "default",
		ProjectName: "chaoshunter",
		YAMLPaths:   []string{"app.yaml", "pdb.yaml"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "- app.yaml") || !strings.Contains(out, "- pdb.yaml") {
		t.Errorf("bundle output missing resources:\n%s", out)
	}
}
