package lower

import (
	"errors"
	"strings"
	"testing"

	"github.com/fpgaflow/fpgaflow/graph"
	"github.com/fpgaflow/fpgaflow/target"
)

func addNode(t *testing.T, g *graph.Graph, spec graph.NodeSpec) {
	t.Helper()
	if _, err := g.AddNode(spec); err != nil {
		t.Fatalf("AddNode(%q): %v", spec.Name, err)
	}
}

func connect(t *testing.T, g *graph.Graph, src, dst string, hint graph.EdgeHint) {
	t.Helper()
	if err := g.AddEdge(src, dst, hint); err != nil {
		t.Fatalf("AddEdge(%s, %s): %v", src, dst, err)
	}
}

// adderGraph is an 8-bit adder with a full-width 9-bit sum at 3.125 ns.
func adderGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("adder", 3.125, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	u9 := graph.DataType{Kind: graph.UInt, Width: 9}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "b", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{
		Name: "sum", Kind: graph.Compute, Type: u9, Op: "add",
		Operands: []string{"a", "b"}, OperandType: u8,
	})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u9})
	connect(t, g, "a", "sum", graph.EdgeHint{})
	connect(t, g, "b", "sum", graph.EdgeHint{})
	connect(t, g, "sum", "o", graph.EdgeHint{})
	return g
}

// fanOutGraph feeds one input into two independent pass-through stages.
func fanOutGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("split", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "y", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "o1", Kind: graph.OutputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "o2", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "x", graph.EdgeHint{})
	connect(t, g, "a", "y", graph.EdgeHint{})
	connect(t, g, "x", "o1", graph.EdgeHint{})
	connect(t, g, "y", "o2", graph.EdgeHint{})
	return g
}

func sourceByName(t *testing.T, a *Artifact, name string) string {
	t.Helper()
	for _, unit := range a.Sources {
		if unit.Name == name {
			return unit.Contents
		}
	}
	t.Fatalf("artifact has no source %q, have %v", name, a.Sources)
	return ""
}

func TestLowerIsDeterministic(t *testing.T) {
	for _, tgt := range target.Targets() {
		first, err := Lower(adderGraph(t), tgt, Options{})
		if err != nil {
			t.Fatalf("%s: %v", tgt, err)
		}
		second, err := Lower(adderGraph(t), tgt, Options{})
		if err != nil {
			t.Fatalf("%s: %v", tgt, err)
		}
		if len(first.Sources) != len(second.Sources) {
			t.Fatalf("%s: source counts differ", tgt)
		}
		for i := range first.Sources {
			if first.Sources[i] != second.Sources[i] {
				t.Fatalf("%s: source %q differs between runs", tgt, first.Sources[i].Name)
			}
		}
		a, b := first.Project.Entries(), second.Project.Entries()
		if len(a) != len(b) {
			t.Fatalf("%s: project descriptors differ in size", tgt)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s: project entry %v differs from %v", tgt, a[i], b[i])
			}
		}
	}
}

func TestLowerRejectsUnvalidatedGraph(t *testing.T) {
	g := graph.New("incomplete", 5, target.Xilinx)
	addNode(t, g, graph.NodeSpec{
		Name: "a", Kind: graph.InputPort,
		Type: graph.DataType{Kind: graph.UInt, Width: 8},
	})

	_, err := Lower(g, target.Xilinx, Options{})
	var unvalidated UnvalidatedGraphError
	if !errors.As(err, &unvalidated) {
		t.Fatalf("expected UnvalidatedGraphError, got %v", err)
	}
	if len(unvalidated.Violations) == 0 {
		t.Fatal("the violations must be attached for reporting")
	}
	if g.Frozen() {
		t.Fatal("a failed lowering must not freeze the graph")
	}
}

func TestLowerFreezesGraph(t *testing.T) {
	g := adderGraph(t)
	if _, err := Lower(g, target.Xilinx, Options{}); err != nil {
		t.Fatal(err)
	}
	if !g.Frozen() {
		t.Fatal("lowering must freeze the graph")
	}
	_, err := g.AddNode(graph.NodeSpec{
		Name: "late", Kind: graph.InputPort,
		Type: graph.DataType{Kind: graph.UInt, Width: 8},
	})
	var frozen graph.FrozenGraphError
	if !errors.As(err, &frozen) {
		t.Fatalf("mutation after lowering: got %v", err)
	}
}

func TestLowerRejectsUnknownOperator(t *testing.T) {
	g := graph.New("weird", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "frobnicate"})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "x", graph.EdgeHint{})
	connect(t, g, "x", "o", graph.EdgeHint{})

	_, err := Lower(g, target.Xilinx, Options{})
	var unsupported UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %v", err)
	}
	if unsupported.Node != "x" {
		t.Fatalf("error names node %q, want %q", unsupported.Node, "x")
	}
}

func TestLowerChecksOperatorArity(t *testing.T) {
	g := graph.New("unary", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "add"})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "x", graph.EdgeHint{}) // add needs two operands
	connect(t, g, "x", "o", graph.EdgeHint{})

	_, err := Lower(g, target.Xilinx, Options{})
	var unsupported UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %v", err)
	}
}

func TestClockReachesProjectFilesVerbatim(t *testing.T) {
	xilinx, err := Lower(adderGraph(t), target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	tcl := sourceByName(t, xilinx, "run_hls.tcl")
	if !strings.Contains(tcl, "create_clock -period 3.125 -name default") {
		t.Fatalf("clock constraint missing or rounded:\n%s", tcl)
	}
	if got := xilinx.Project.Get("clock_period"); got != "3.125" {
		t.Fatalf("descriptor clock_period = %q, want %q", got, "3.125")
	}

	intel, err := Lower(adderGraph(t), target.Intel, Options{})
	if err != nil {
		t.Fatal(err)
	}
	sdc := sourceByName(t, intel, "adder.sdc")
	if !strings.Contains(sdc, "create_clock -name clk -period 3.125") {
		t.Fatalf("clock constraint missing or rounded:\n%s", sdc)
	}
}

func TestLowerHonorsPartOption(t *testing.T) {
	a, err := Lower(adderGraph(t), target.Xilinx, Options{Part: "xc7z020clg400-1"})
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Project.Get("part"); got != "xc7z020clg400-1" {
		t.Fatalf("descriptor part = %q, want the override", got)
	}
	tcl := sourceByName(t, a, "run_hls.tcl")
	if !strings.Contains(tcl, "xc7z020clg400-1") {
		t.Fatalf("part override missing from script:\n%s", tcl)
	}
}

func TestLowerRejectsMultiDrivenOutput(t *testing.T) {
	g := graph.New("race", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "y", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "x", graph.EdgeHint{})
	connect(t, g, "a", "y", graph.EdgeHint{})
	connect(t, g, "x", "o", graph.EdgeHint{})
	connect(t, g, "y", "o", graph.EdgeHint{})

	_, err := Lower(g, target.Xilinx, Options{})
	var unvalidated UnvalidatedGraphError
	if !errors.As(err, &unvalidated) {
		t.Fatalf("expected UnvalidatedGraphError, got %v", err)
	}
}

func TestLowerRejectsFIFOHintOnPortEdge(t *testing.T) {
	// A port stream has no internal FIFO whose depth a hint could set.
	g := graph.New("hinted", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "x", graph.EdgeHint{})
	connect(t, g, "x", "o", graph.EdgeHint{FIFODepth: 8})

	_, err := Lower(g, target.Xilinx, Options{})
	var unsupported UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %v", err)
	}
	if unsupported.Construct != "explicit FIFO depth hint" {
		t.Fatalf("error names construct %q", unsupported.Construct)
	}
}

func TestSharedOperandReadOnce(t *testing.T) {
	// sum = a + a must read the a stream exactly once per iteration.
	g := graph.New("doubler", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	u9 := graph.DataType{Kind: graph.UInt, Width: 9}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{
		Name: "sum", Kind: graph.Compute, Type: u9, Op: "add",
		Operands: []string{"a", "a"}, OperandType: u8,
	})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u9})
	connect(t, g, "a", "sum", graph.EdgeHint{})
	connect(t, g, "sum", "o", graph.EdgeHint{})

	a, err := Lower(g, target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "doubler.cpp")
	if !strings.Contains(kernel, "v_a + v_a") {
		t.Fatalf("expression missing:\n%s", kernel)
	}
	if got := strings.Count(kernel, "in_v_a.read()"); got != 1 {
		t.Fatalf("operand read %d times, want 1:\n%s", got, kernel)
	}
}
