package timealgebra

import "sort"

// Task is one schedulable unit within a phase: a unit test or a fault,
// already bound to its workflow_name.
type Task struct {
	WorkflowName string
	GracePeriod  int
	Deadline     int
}

func (t Task) start() int { return t.GracePeriod }
func (t Task) end() int   { return t.GracePeriod + t.Deadline }

// NodeKind tags a composed schedule-tree node.
type NodeKind string

const (
	NodeTask     NodeKind = "task"
	NodeSerial   NodeKind = "serial"
	NodeParallel NodeKind = "parallel"
	NodeSuspend  NodeKind = "suspend"
)

// Node is one element of the Serial/Parallel/Suspend tree the Experiment
// Compiler (C9) renders into a workflow manifest. It is a tree, never a
// DAG: no Node value is shared across two parents.
type Node struct {
	Kind     NodeKind
	Name     string // workflow_name for NodeTask; generated template name otherwise
	Deadline int     // span in seconds: task deadline, suspend length, or subtree total
	Children []Node
}

// NameAllocator hands out collision-free names by appending a monotonic
// numeric suffix, per spec.md §4.4 "Name-conflict avoidance".
type NameAllocator struct {
	seen map[string]int
}

// NewNameAllocator returns an allocator with an empty namespace.
func NewNameAllocator() *NameAllocator {
	return &NameAllocator{seen: map[string]int{}}
}

// Next returns base on first use, base2/base3/... on every subsequent use.
func (a *NameAllocator) Next(base string) string {
	n := a.seen[base]
	a.seen[base] = n + 1
	if n == 0 {
		return base
	}
	return base + itoa(n+1)
}

func itoa(n int) string {
	// Small positive integers only; avoids pulling in strconv for one call
	// site while keeping the allocator dependency-free.
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// parallelGroup is the result of step 1: tasks sharing a grace_period.
type parallelGroup struct {
	start    int
	end      int
	tasks    []Task
}

// overlapGroup is the result of steps 2-3: a maximal run of parallelGroups
// whose spans overlap or touch.
type overlapGroup struct {
	start  int
	end    int
	groups []parallelGroup
}

// ComposePhase runs the sweep-merge algorithm of spec.md §4.4 over one
// phase's tasks and returns the phase's composed tree plus its deadline
// (sum of overlap-group durations + deadlineMargin).
//
// An empty task list returns a zero-value Node (empty Name) and a deadline
// of deadlineMargin.
func ComposePhase(tasks []Task, phasePrefix string, deadlineMargin int) (Node, int, error) {
	alloc := NewNameAllocator()

	if len(tasks) == 0 {
		return Node{}, deadlineMargin, nil
	}

	groups := partitionByGracePeriod(tasks)
	sort.Slice(groups, func(i, j int) bool { return groups[i].start < groups[j].start })

	overlapGroups := sweepMerge(groups)

	var serialChildren []Node
	var overlapTotal int
	for _, og := range overlapGroups {
		node := composeOverlapGroup(og, alloc)
		serialChildren = append(serialChildren, node)
		overlapTotal += og.end - og.start
	}

	phaseDeadline := overlapTotal + deadlineMargin

	if len(serialChildren) == 1 {
		return serialChildren[0], phaseDeadline, nil
	}

	root := Node{
		Kind:     NodeSerial,
		Name:     alloc.Next(phasePrefix + "-serial"),
		Deadline: overlapTotal,
		Children: serialChildren,
	}
	return root, phaseDeadline, nil
}

func partitionByGracePeriod(tasks []Task) []parallelGroup {
	byStart := map[int][]Task{}
	var starts []int
	for _, t := range tasks {
		if _, ok := byStart[t.GracePeriod]; !ok {
			starts = append(starts, t.GracePeriod)
		}
		byStart[t.GracePeriod] = append(byStart[t.GracePeriod], t)
	}
	sort.Ints(starts)

	groups := make([]parallelGroup, 0, len(starts))
	for _, start := range starts {
		ts := byStart[start]
		maxDeadline := 0
		for _, t := range ts {
			if t.Deadline > maxDeadline {
				maxDeadline = t.Deadline
			}
		}
		groups = append(groups, parallelGroup{start: start, end: start + maxDeadline, tasks: ts})
	}
	return groups
}

func sweepMerge(groups []parallelGroup) []overlapGroup {
	var result []overlapGroup
	cur := overlapGroup{start: groups[0].start, end: groups[0].end, groups: []parallelGroup{groups[0]}}

	for _, g := range groups[1:] {
		if g.start >= cur.end {
			result = append(result, cur)
			cur = overlapGroup{start: g.start, end: g.end, groups: []parallelGroup{g}}
			continue
		}
		if g.end > cur.end {
			cur.end = g.end
		}
		cur.groups = append(cur.groups, g)
	}
	result = append(result, cur)
	return result
}

// composeOverlapGroup emits a Parallel subtree directly when every
// parallel-group in og starts exactly at og.start; otherwise wraps any
// later-starting group in a Serial[Suspend, group] pair before placing it
// in the Parallel. Single-task, single-group overlap-groups collapse to
// the bare task node.
func composeOverlapGroup(og overlapGroup, alloc *NameAllocator) Node {
	if len(og.groups) == 1 && len(og.groups[0].tasks) == 1 {
		return taskNode(og.groups[0].tasks[0])
	}

	var parallelChildren []Node
	for _, g := range og.groups {
		child := composeParallelGroup(g, alloc)
		if g.start > og.start {
			child = Node{
				Kind:     NodeSerial,
				Name:     alloc.Next("suspend-then-group"),
				Deadline: g.end - og.start,
				Children: []Node{
					{Kind: NodeSuspend, Name: alloc.Next("suspend"), Deadline: g.start - og.start},
					child,
				},
			}
		}
		parallelChildren = append(parallelChildren, child)
	}

	return Node{
		Kind:     NodeParallel,
		Name:     alloc.Next("parallel"),
		Deadline: og.end - og.start,
		Children: parallelChildren,
	}
}

// composeParallelGroup collapses a single-task group to the bare task
// node (step 5); a multi-task group (tasks sharing one grace_period)
// becomes a Parallel of those tasks.
func composeParallelGroup(g parallelGroup, alloc *NameAllocator) Node {
	if len(g.tasks) == 1 {
		return taskNode(g.tasks[0])
	}
	children := make([]Node, 0, len(g.tasks))
	for _, t := range g.tasks {
		children = append(children, taskNode(t))
	}
	return Node{
		Kind:     NodeParallel,
		Name:     alloc.Next("parallel"),
		Deadline: g.end - g.start,
		Children: children,
	}
}

func taskNode(t Task) Node {
	return Node{Kind: NodeTask, Name: t.WorkflowName, Deadline: t.Deadline}
}

// Overlaps reports whether two tasks' [start, start+deadline) intervals
// intersect — the predicate spec.md §8 requires the compiler to place
// under a common Parallel subtree.
func Overlaps(a, b Task) bool {
	return a.start() < b.end() && b.start() < a.end()
}
