package dag

import (
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := New()
	g.AddNode("root.yaml", nil)
	g.AddNode("child.yaml", nil)

	if g.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.Len())
	}
	if err := g.AddEdge("child.yaml", "root.yaml"); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	deps := g.Dependencies("root.yaml")
	if len(deps) != 1 || deps[0] != "child.yaml" {
		t.Errorf("unexpected dependencies: %v", deps)
	}
}

func TestGraph_AddEdge_UnknownNode(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	if err := g.AddEdge("a", "missing"); err == nil {
		t.Error("expected error for unknown child")
	}
	if err := g.AddEdge("missing", "a"); err == nil {
		t.Error("expected error for unknown parent")
	}
}

func TestGraph_AddEdge_SelfDependency(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-dependency")
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")

	if cyclic, _ := g.HasCycle(); cyclic {
		t.Fatal("acyclic graph reported as cyclic")
	}

	_ = g.AddEdge("c", "a")
	cyclic, path := g.HasCycle()
	if !cyclic {
		t.Fatal("cycle not detected")
	}
	if len(path) < 3 {
		t.Errorf("cycle path too short: %v", path)
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	// Diamond: shared is a dependency of both children, both feed root.
	g := New()
	for _, id := range []string{"root", "child_a", "child_b", "shared"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("shared", "child_a")
	_ = g.AddEdge("shared", "child_b")
	_ = g.AddEdge("child_a", "root")
	_ = g.AddEdge("child_b", "root")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("topological sort: %v", err)
	}

	pos := make(map[string]int)
	for i, n := range order {
		pos[n.ID] = i
	}
	if pos["shared"] > pos["child_a"] || pos["shared"] > pos["child_b"] {
		t.Errorf("shared must come before its dependents: %v", order)
	}
	if pos["child_a"] > pos["root"] || pos["child_b"] > pos["root"] {
		t.Errorf("children must come before root: %v", order)
	}
}

func TestGraph_TopologicalSort_CycleFails(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}
