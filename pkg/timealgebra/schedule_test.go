package timealgebra

import "testing"

// TestComposePhaseS4 reproduces spec.md §8 scenario S4: tasks A(grace=0,
// dur=30), B(grace=10, dur=30), C(grace=50, dur=10) in one phase. A and B
// overlap and must land under a common Parallel subtree of span 40s; C
// starts only once both have finished and is scheduled afterward. Phase
// deadline must equal 50 + margin.
func TestComposePhaseS4(t *testing.T) {
	tasks := []Task{
		{WorkflowName: "A", GracePeriod: 0, Deadline: 30},
		{WorkflowName: "B", GracePeriod: 10, Deadline: 30},
		{WorkflowName: "C", GracePeriod: 50, Deadline: 10},
	}

	root, deadline, err := ComposePhase(tasks, "fault", 10)
	if err != nil {
		t.Fatalf("ComposePhase: %v", err)
	}
	if deadline != 60 { // 50 (overlap totals: 40+10) + margin 10
		t.Errorf("phase deadline = %d, want 60", deadline)
	}
	if root.Kind != NodeSerial {
		t.Fatalf("root kind = %s, want serial", root.Kind)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}

	firstGroup := root.Children[0]
	if firstGroup.Kind != NodeParallel {
		t.Fatalf("first overlap-group kind = %s, want parallel", firstGroup.Kind)
	}
	if firstGroup.Deadline != 40 {
		t.Errorf("first overlap-group span = %d, want 40", firstGroup.Deadline)
	}

	// Second overlap-group collapses to the bare task C (single
	// parallel-group, single task).
	second := root.Children[1]
	if second.Kind != NodeTask || second.Name != "C" {
		t.Errorf("second overlap-group = %+v, want bare task C", second)
	}
}

func TestComposePhaseSingleTask(t *testing.T) {
	tasks := []Task{{WorkflowName: "only", GracePeriod: 0, Deadline: 15}}
	root, deadline, err := ComposePhase(tasks, "pre", 5)
	if err != nil {
		t.Fatalf("ComposePhase: %v", err)
	}
	if root.Kind != NodeTask || root.Name != "only" {
		t.Errorf("root = %+v, want bare task", root)
	}
	if deadline != 20 {
		t.Errorf("deadline = %d, want 20", deadline)
	}
}

func TestComposePhaseEmpty(t *testing.T) {
	root, deadline, err := ComposePhase(nil, "pre", 5)
	if err != nil {
		t.Fatalf("ComposePhase: %v", err)
	}
	if deadline != 5 {
		t.Errorf("deadline = %d, want margin-only 5", deadline)
	}
	if root.Kind != "" {
		t.Errorf("expected zero-value node for empty phase, got %+v", root)
	}
}

func TestOverlaps(t *testing.T) {
	a := Task{GracePeriod: 0, Deadline: 30}
	b := Task{GracePeriod: 10, Deadline: 30}
	c := Task{GracePeriod: 50, Deadline: 10}

	if !Overlaps(a, b) {
		t.Error("expected A and B to overlap")
	}
	if Overlaps(a, c) {
		t.Error("expected A and C not to overlap")
	}
	if Overlaps(b, c) {
		t.Error("expected B and C not to overlap")
	}
}

// NameAllocator must hand out monotonically numbered suffixes on repeat use
// (spec.md §4.4 name-conflict avoidance), never reuse a name, and leave an
// untouched base name unsuffixed.
func TestNameAllocator(t *testing.T) {
	a := NewNameAllocator()
	got := []string{a.Next("x"), a.Next("x"), a.Next("x"), a.Next("y")}
	want := []string{"x", "x2", "x3", "y"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Next() call %d = %q, want %q", i, got[i], want[i])
		}
	}
}
