// Package compiler implements C9, the Experiment Compiler: it takes the
// three per-phase plans plus the bound hypothesis and renders them into a
// single deterministic workflow manifest, assigning names and deadlines
// along the way.
package compiler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/pkg/faultscenario"
	"github.com/richard-devbot/chaoshunter/pkg/model"
	tmpl "github.com/richard-devbot/chaoshunter/pkg/template"
	"github.com/richard-devbot/chaoshunter/pkg/timealgebra"
)

// Options configures one Compile call.
type Options struct {
	Namespace      string
	ProjectName    string
	Image          string
	DeadlineMargin int // defaults to model.DeadlineMargin when zero

	// now is overridable so tests can produce a fixed workflow name;
	// production callers leave it nil and get time.Now.
	now func() time.Time
}

// Compiler renders a bound Hypothesis plus its per-phase plans into a
// ChaosExperiment, per spec.md 4.9.
type Compiler struct {
	Opts Options
}

var unsafeName = regexp.MustCompile(`[^a-z0-9-]+`)

func sanitizeName(name string) string {
	s := strings.ToLower(name)
	s = unsafeName.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "task"
	}
	return s
}

func (o Options) clock() func() time.Time {
	if o.now != nil {
		return o.now
	}
	return time.Now
}

func (o Options) margin() int {
	if o.DeadlineMargin > 0 {
		return o.DeadlineMargin
	}
	return model.DeadlineMargin
}

// Compile binds names/deadlines/file_paths/params, composes each phase's
// tree, and renders the full workflow. It does not mutate its inputs.
func (c *Compiler) Compile(hypothesis model.Hypothesis, pre model.ValidationPhase, fault model.FaultInjectionPhase, post model.ValidationPhase) (model.ChaosExperiment, error) {
	alloc := timealgebra.NewNameAllocator()
	taskRenders := map[string]string{}

	preUnitTests, err := c.bindUnitTests(hypothesis, pre.UnitTests, "pre", alloc, taskRenders)
	if err != nil {
		return model.ChaosExperiment{}, err
	}
	faultUnitTests, err := c.bindUnitTests(hypothesis, fault.UnitTests, "fault", alloc, taskRenders)
	if err != nil {
		return model.ChaosExperiment{}, err
	}
	faults, err := c.bindFaults(hypothesis, fault.FaultInjection, alloc, taskRenders)
	if err != nil {
		return model.ChaosExperiment{}, err
	}
	postUnitTests, err := c.bindUnitTests(hypothesis, post.UnitTests, "post", alloc, taskRenders)
	if err != nil {
		return model.ChaosExperiment{}, err
	}

	margin := c.Opts.margin()

	preNode, preDeadline, err := timealgebra.ComposePhase(toTasks(preUnitTests, nil), "pre", margin)
	if err != nil {
		return model.ChaosExperiment{}, ceerrors.New(ceerrors.Internal, "compiler", "compose_pre", err)
	}
	faultNode, faultDeadline, err := timealgebra.ComposePhase(toTasks(faultUnitTests, faults), "fault", margin)
	if err != nil {
		return model.ChaosExperiment{}, ceerrors.New(ceerrors.Internal, "compiler", "compose_fault", err)
	}
	postNode, postDeadline, err := timealgebra.ComposePhase(toTasks(postUnitTests, nil), "post", margin)
	if err != nil {
		return model.ChaosExperiment{}, ceerrors.New(ceerrors.Internal, "compiler", "compose_post", err)
	}

	var phaseRoots []timealgebra.Node
	for _, n := range []timealgebra.Node{preNode, faultNode, postNode} {
		if n.Name != "" {
			phaseRoots = append(phaseRoots, n)
		}
	}
	if len(phaseRoots) == 0 {
		return model.ChaosExperiment{}, ceerrors.New(ceerrors.Internal, "compiler", "compile",
			fmt.Errorf("no tasks in any phase"))
	}

	entry := alloc.Next("chaos-experiment-serial")
	root := timealgebra.Node{
		Kind:     timealgebra.NodeSerial,
		Name:     entry,
		Children: phaseRoots,
	}

	docs, err := renderTree(root, taskRenders)
	if err != nil {
		return model.ChaosExperiment{}, ceerrors.New(ceerrors.Internal, "compiler", "render_tree", err)
	}

	renderedNodes := indentLines(strings.Join(docs, "\n"), 2)
	workflowName := fmt.Sprintf("chaos-experiment-%d", c.Opts.clock()().Unix())

	workflowYAML, err := tmpl.Render("workflow_meta.yaml", tmpl.WorkflowMetaData{
		Name: workflowName, Namespace: c.Opts.Namespace, ProjectName: c.Opts.ProjectName,
		Entry: entry, RenderedNodes: renderedNodes,
	})
	if err != nil {
		return model.ChaosExperiment{}, ceerrors.New(ceerrors.Internal, "compiler", "render_workflow", err)
	}

	total := preDeadline + faultDeadline + postDeadline
	plan := model.ExperimentPlan{
		TimeSchedule:   model.TimeSchedule{Total: total, PreValidation: preDeadline - margin, FaultInjection: faultDeadline - margin, PostValidation: postDeadline - margin},
		PreValidation:  model.ValidationPhase{Thought: pre.Thought, UnitTests: preUnitTests},
		FaultInjection: model.FaultInjectionPhase{ValidationPhase: model.ValidationPhase{Thought: fault.Thought, UnitTests: faultUnitTests}, FaultInjection: faults},
		PostValidation: model.ValidationPhase{Thought: post.Thought, UnitTests: postUnitTests},
	}

	return model.ChaosExperiment{
		Plan:         plan,
		WorkflowName: workflowName,
		Workflow:     model.NewFile("", fmt.Sprintf("experiment/%s.yaml", workflowName), workflowYAML),
	}, nil
}

// bindUnitTests assigns each unit test's workflow_name and deadline, binds
// its file_path from the matching steady state, and renders its task
// template into taskRenders.
func (c *Compiler) bindUnitTests(h model.Hypothesis, tests []model.PlannedUnitTest, phasePrefix string, alloc *timealgebra.NameAllocator, taskRenders map[string]string) ([]model.PlannedUnitTest, error) {
	margin := c.Opts.margin()
	bound := make([]model.PlannedUnitTest, len(tests))
	for i, t := range tests {
		state, ok := findSteadyState(h.SteadyStates, t.Name)
		if !ok {
			return nil, ceerrors.New(ceerrors.Internal, "compiler", "bind_unit_tests",
				fmt.Errorf("no steady state named %q", t.Name))
		}

		t.WorkflowName = alloc.Next(fmt.Sprintf("%s-unittest-%s", phasePrefix, sanitizeName(t.Name)))
		t.Deadline = t.Duration + margin
		t.FilePath = state.UnitTest.Path

		rendered, err := renderUnitTestTask(t, state.Inspection, c.Opts.Image)
		if err != nil {
			return nil, ceerrors.New(ceerrors.Internal, "compiler", "render_unit_test_task", err)
		}
		taskRenders[t.WorkflowName] = rendered
		bound[i] = t
	}
	return bound, nil
}

// bindFaults assigns each fault's workflow_name and deadline (equal to its
// duration, which already includes the fault's envelope), binds its params
// from the Hypothesis's FaultScenario, and renders its task template into
// taskRenders.
func (c *Compiler) bindFaults(h model.Hypothesis, faults []model.PlannedFault, alloc *timealgebra.NameAllocator, taskRenders map[string]string) ([]model.PlannedFault, error) {
	bound := make([]model.PlannedFault, len(faults))
	for i, f := range faults {
		kind, ok := faultscenario.Registry[f.Name]
		if !ok {
			return nil, ceerrors.New(ceerrors.Internal, "compiler", "bind_faults",
				fmt.Errorf("unknown fault kind %q", f.Name))
		}
		params, ok := findFaultParams(h.Fault, f.Name, f.NameID)
		if !ok {
			return nil, ceerrors.New(ceerrors.Internal, "compiler", "bind_faults",
				fmt.Errorf("no fault scenario entry for (%s, %d)", f.Name, f.NameID))
		}
		f.Params = params
		f.Deadline = f.Duration

		f.WorkflowName = alloc.Next(fmt.Sprintf("fault-%s", sanitizeName(kind.Name)))

		rendered, err := tmpl.Render("fault.yaml", tmpl.FaultTemplateData{
			Name: f.WorkflowName, Deadline: deadlineStr(f.Deadline),
			Kind: kind.CRDKind, KindLower: kind.SpecKey, Params: f.Params,
		})
		if err != nil {
			return nil, ceerrors.New(ceerrors.Internal, "compiler", "render_fault_task", err)
		}
		taskRenders[f.WorkflowName] = rendered
		bound[i] = f
	}
	return bound, nil
}

func renderUnitTestTask(t model.PlannedUnitTest, insp model.Inspection, image string) (string, error) {
	switch insp.ToolType {
	case model.ToolLoadTest:
		vus := 10
		if insp.VUs != nil {
			vus = *insp.VUs
		}
		return tmpl.Render("task_load_test.yaml", tmpl.TaskLoadTestData{
			Name: t.WorkflowName, Deadline: deadlineStr(t.Deadline), Image: image,
			Command: []string{"sh", "-c", insp.Script.Content}, DurationSeconds: t.Duration, VUs: vus,
		})
	default:
		return tmpl.Render("task_probe.yaml", tmpl.TaskProbeData{
			Name: t.WorkflowName, Deadline: deadlineStr(t.Deadline), Image: image,
			Command: []string{"sh", "-c", insp.Script.Content}, DurationSeconds: t.Duration,
		})
	}
}

func findSteadyState(states model.SteadyStates, name string) (model.SteadyState, bool) {
	for _, s := range states {
		if s.Name == name {
			return s, true
		}
	}
	return model.SteadyState{}, false
}

func findFaultParams(scenario model.FaultScenario, name string, nameID int) (map[string]any, bool) {
	for _, wave := range scenario.Faults {
		for _, f := range wave {
			if f.Name == name && f.NameID == nameID {
				return f.Params, true
			}
		}
	}
	return nil, false
}

func toTasks(tests []model.PlannedUnitTest, faults []model.PlannedFault) []timealgebra.Task {
	tasks := make([]timealgebra.Task, 0, len(tests)+len(faults))
	for _, t := range tests {
		tasks = append(tasks, timealgebra.Task{WorkflowName: t.WorkflowName, GracePeriod: t.GracePeriod, Deadline: t.Deadline})
	}
	for _, f := range faults {
		tasks = append(tasks, timealgebra.Task{WorkflowName: f.WorkflowName, GracePeriod: f.GracePeriod, Deadline: f.Deadline})
	}
	return tasks
}

// renderTree walks node post-order (children before parent) so composite
// templates can reference already-rendered children, and returns the flat
// list of YAML list-item blocks the workflow's templates section needs.
func renderTree(node timealgebra.Node, taskRenders map[string]string) ([]string, error) {
	var docs []string
	for _, child := range node.Children {
		childDocs, err := renderTree(child, taskRenders)
		if err != nil {
			return nil, err
		}
		docs = append(docs, childDocs...)
	}

	switch node.Kind {
	case timealgebra.NodeTask:
		rendered, ok := taskRenders[node.Name]
		if !ok {
			return nil, fmt.Errorf("no rendered task for %q", node.Name)
		}
		docs = append(docs, rendered)
	case timealgebra.NodeSerial, timealgebra.NodeParallel:
		y, err := tmpl.Render(string(node.Kind)+".yaml", tmpl.SerialParallelData{
			Name: node.Name, Deadline: deadlineStr(node.Deadline), Children: childNames(node.Children),
		})
		if err != nil {
			return nil, err
		}
		docs = append(docs, y)
	case timealgebra.NodeSuspend:
		y, err := tmpl.Render("suspend.yaml", tmpl.SuspendData{Name: node.Name, Deadline: deadlineStr(node.Deadline)})
		if err != nil {
			return nil, err
		}
		docs = append(docs, y)
	}
	return docs, nil
}

func childNames(children []timealgebra.Node) []string {
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	return names
}

func deadlineStr(seconds int) string {
	return fmt.Sprintf("%ds", seconds)
}

func indentLines(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
