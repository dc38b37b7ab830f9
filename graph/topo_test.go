package graph

import (
	"testing"

	"github.com/fpgaflow/fpgaflow/target"
)

func topoNames(t *testing.T, g *Graph) []string {
	t.Helper()
	order, err := g.Topo()
	if err != nil {
		t.Fatalf("Topo: %v", err)
	}
	var names []string
	for n := range order {
		names = append(names, n.Name)
	}
	return names
}

func TestTopoRespectsEdges(t *testing.T) {
	g := New("pipe", 5, target.Xilinx)
	u8 := DataType{UInt, 8}
	// Insert out of dataflow order on purpose.
	mustAdd(t, g, NodeSpec{Name: "o", Kind: OutputPort, Type: u8})
	mustAdd(t, g, NodeSpec{Name: "x", Kind: Compute, Type: u8, Op: "copy"})
	mustAdd(t, g, NodeSpec{Name: "a", Kind: InputPort, Type: u8})
	mustConnect(t, g, "a", "x")
	mustConnect(t, g, "x", "o")

	names := topoNames(t, g)
	pos := map[string]int{}
	for i, name := range names {
		pos[name] = i
	}
	if pos["a"] > pos["x"] || pos["x"] > pos["o"] {
		t.Fatalf("order %v violates the edges", names)
	}
}

func TestTopoBreaksTiesByInsertionOrder(t *testing.T) {
	g := New("ties", 5, target.Xilinx)
	u8 := DataType{UInt, 8}
	mustAdd(t, g, NodeSpec{Name: "b", Kind: InputPort, Type: u8})
	mustAdd(t, g, NodeSpec{Name: "a", Kind: InputPort, Type: u8})
	mustAdd(t, g, NodeSpec{Name: "ob", Kind: OutputPort, Type: u8})
	mustAdd(t, g, NodeSpec{Name: "oa", Kind: OutputPort, Type: u8})
	mustConnect(t, g, "b", "ob")
	mustConnect(t, g, "a", "oa")

	want := []string{"b", "a", "ob", "oa"}
	names := topoNames(t, g)
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestTopoIgnoresFeedbackEdges(t *testing.T) {
	g := New("iir", 5, target.Xilinx)
	u8 := DataType{UInt, 8}
	mustAdd(t, g, NodeSpec{Name: "a", Kind: InputPort, Type: u8})
	mustAdd(t, g, NodeSpec{Name: "acc", Kind: Compute, Type: u8, Op: "add"})
	mustAdd(t, g, NodeSpec{Name: "delay", Kind: Buffer, Type: u8, Depth: 1})
	mustAdd(t, g, NodeSpec{Name: "o", Kind: OutputPort, Type: u8})
	mustConnect(t, g, "a", "acc")
	mustConnect(t, g, "acc", "delay")
	mustConnect(t, g, "acc", "o")
	if err := g.AddEdge("delay", "acc", EdgeHint{Feedback: true}); err != nil {
		t.Fatalf("feedback edge rejected: %v", err)
	}

	names := topoNames(t, g)
	if len(names) != 4 {
		t.Fatalf("expected all 4 nodes in the order, got %v", names)
	}
}

func TestTopoIsRestartable(t *testing.T) {
	g := passthrough(t)
	order, err := g.Topo()
	if err != nil {
		t.Fatalf("Topo: %v", err)
	}
	for range 2 {
		count := 0
		for range order {
			count++
		}
		if count != g.NumNodes() {
			t.Fatalf("pass yielded %d nodes, want %d", count, g.NumNodes())
		}
	}
}
