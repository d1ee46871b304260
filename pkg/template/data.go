package template

// PodProbeData renders templates/pod_probe.yaml.tmpl: a standalone probe
// Pod manifest, used by the Inspection Runner (C6) to validate a steady
// state directly rather than as a workflow task.
type PodProbeData struct {
	PodName         string
	Namespace       string
	ProjectName     string
	Image           string
	Command         []string
	DurationSeconds int
}

// PodLoadTestData renders templates/pod_load_test.yaml.tmpl, the k6-style
// load-test counterpart to PodProbeData.
type PodLoadTestData struct {
	PodName         string
	Namespace       string
	ProjectName     string
	Image           string
	Command         []string
	DurationSeconds int
	VUs             int
}

// TaskProbeData renders templates/task_probe.yaml.tmpl: one Task
// templateType entry in a workflow's templates list, wrapping a probe
// container. Deadline is the canonical "Xs" duration string.
type TaskProbeData struct {
	Name            string
	Deadline        string
	Image           string
	Command         []string
	DurationSeconds int
}

// TaskLoadTestData renders templates/task_load_test.yaml.tmpl.
type TaskLoadTestData struct {
	Name            string
	Deadline        string
	Image           string
	Command         []string
	DurationSeconds int
	VUs             int
}

// FaultTemplateData renders templates/fault.yaml.tmpl: one fault-kind CR
// spec embedded as a workflow task. Kind is the fault-tool's CRD kind
// (e.g. "PodChaos"); KindLower is its lowerCamel spec key.
type FaultTemplateData struct {
	Name      string
	Deadline  string
	Kind      string
	KindLower string
	Params    map[string]any
}

// SerialParallelData renders templates/serial.yaml.tmpl and
// templates/parallel.yaml.tmpl: a composite node referencing its
// children by name.
type SerialParallelData struct {
	Name     string
	Deadline string
	Children []string
}

// SuspendData renders templates/suspend.yaml.tmpl.
type SuspendData struct {
	Name     string
	Deadline string
}

// WorkflowMetaData renders templates/workflow_meta.yaml.tmpl: the
// top-level Workflow document. RenderedNodes is the pre-joined YAML body
// of every templates-list entry, already rendered and indented by the
// caller (pkg/compiler).
type WorkflowMetaData struct {
	Name          string
	Namespace     string
	ProjectName   string
	Entry         string
	RenderedNodes string
}

// DeployBundleData renders templates/deploy_bundle.yaml.tmpl: the
// Kustomization the Improver (C11) re-renders with an updated yaml-path
// list after every reconfiguration.
type DeployBundleData struct {
	Namespace   string
	ProjectName string
	YAMLPaths   []string
}
