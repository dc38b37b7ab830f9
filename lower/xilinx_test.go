package lower

import (
	"strings"
	"testing"

	"github.com/fpgaflow/fpgaflow/graph"
	"github.com/fpgaflow/fpgaflow/target"
)

func TestXilinxAdderKernel(t *testing.T) {
	a, err := Lower(adderGraph(t), target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "adder.cpp")

	for _, want := range []string{
		"void adder(",
		"#pragma HLS DATAFLOW",
		"#pragma HLS PIPELINE II=1",
		"hls::stream<ap_uint<8> > &a",
		"hls::stream<ap_uint<9> > &o",
		"v_a + v_b",
	} {
		if !strings.Contains(kernel, want) {
			t.Fatalf("kernel is missing %q:\n%s", want, kernel)
		}
	}

	tcl := sourceByName(t, a, "run_hls.tcl")
	for _, want := range []string{
		"open_project adder_prj",
		"set_top adder",
		"add_files adder.cpp",
		"csynth_design",
	} {
		if !strings.Contains(tcl, want) {
			t.Fatalf("script is missing %q:\n%s", want, tcl)
		}
	}

	if got := a.Project.Get("flow"); got != "vitis_hls" {
		t.Fatalf("descriptor flow = %q", got)
	}
	if got := a.Project.Get("top"); got != "adder" {
		t.Fatalf("descriptor top = %q", got)
	}
}

func TestXilinxSignedAndFloatTypes(t *testing.T) {
	b := xilinxBackend{}
	cases := []struct {
		in   graph.DataType
		want string
	}{
		{graph.DataType{Kind: graph.Int, Width: 13}, "ap_int<13>"},
		{graph.DataType{Kind: graph.UInt, Width: 1}, "ap_uint<1>"},
		{graph.DataType{Kind: graph.Float, Width: 16}, "half"},
		{graph.DataType{Kind: graph.Float, Width: 32}, "float"},
		{graph.DataType{Kind: graph.Float, Width: 64}, "double"},
	}
	for _, c := range cases {
		if got := b.typeName(c.in); got != c.want {
			t.Fatalf("typeName(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestXilinxFeedbackBecomesMarkedStream(t *testing.T) {
	g := graph.New("iir", 4, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "acc", Kind: graph.Compute, Type: u8, Op: "add"})
	addNode(t, g, graph.NodeSpec{Name: "delay", Kind: graph.Buffer, Type: u8, Depth: 1})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "acc", graph.EdgeHint{})
	connect(t, g, "acc", "delay", graph.EdgeHint{})
	connect(t, g, "acc", "o", graph.EdgeHint{})
	connect(t, g, "delay", "acc", graph.EdgeHint{Feedback: true})

	a, err := Lower(g, target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "iir.cpp")
	if !strings.Contains(kernel, "// recurrence") {
		t.Fatalf("feedback stream not marked:\n%s", kernel)
	}
}

func TestXilinxMux(t *testing.T) {
	g := graph.New("selector", 5, target.Xilinx)
	u1 := graph.DataType{Kind: graph.UInt, Width: 1}
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "s", Kind: graph.InputPort, Type: u1})
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "b", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{
		Name: "pick", Kind: graph.Compute, Type: u8, Op: "mux",
		Operands: []string{"s", "a", "b"},
	})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "s", "pick", graph.EdgeHint{})
	connect(t, g, "a", "pick", graph.EdgeHint{})
	connect(t, g, "b", "pick", graph.EdgeHint{})
	connect(t, g, "pick", "o", graph.EdgeHint{})

	a, err := Lower(g, target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "selector.cpp")
	if !strings.Contains(kernel, "(v_s ? v_a : v_b)") {
		t.Fatalf("mux expression missing:\n%s", kernel)
	}
}

func bufferedGraph(t *testing.T, depth int) *graph.Graph {
	t.Helper()
	g := graph.New("delayline", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "win", Kind: graph.Buffer, Type: u8, Depth: depth})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "win", graph.EdgeHint{})
	connect(t, g, "win", "x", graph.EdgeHint{})
	connect(t, g, "x", "o", graph.EdgeHint{})
	return g
}

func TestXilinxBufferDepthOnlyChangesDepth(t *testing.T) {
	shallow, err := Lower(bufferedGraph(t, 3), target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	deep, err := Lower(bufferedGraph(t, 7), target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}

	a := sourceByName(t, shallow, "delayline.cpp")
	b := sourceByName(t, deep, "delayline.cpp")
	if a == b {
		t.Fatal("buffer depth must be visible in the output")
	}
	if strings.ReplaceAll(a, "depth=3", "depth=7") != b {
		t.Fatalf("variants differ beyond the stream depth:\n%s\nvs\n%s", a, b)
	}
}

func TestXilinxInputFanOutDuplicatesOnce(t *testing.T) {
	// Both consumers of a must get their own channel, fed by a single stage
	// that reads the port stream exactly once.
	a, err := Lower(fanOutGraph(t), target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "split.cpp")
	for _, want := range []string{
		"hls::stream<ap_uint<8> > a_x;",
		"hls::stream<ap_uint<8> > a_y;",
		"stage_a(a, a_x, a_y);",
		"stage_x(a_x, o1);",
		"stage_y(a_y, o2);",
	} {
		if !strings.Contains(kernel, want) {
			t.Fatalf("fan-out kernel is missing %q:\n%s", want, kernel)
		}
	}
	if got := strings.Count(kernel, "stage_a(a,"); got != 1 {
		t.Fatalf("the a stream must have one reader, got %d:\n%s", got, kernel)
	}
}

func TestXilinxFIFOHintSetsStreamDepth(t *testing.T) {
	g := graph.New("chain", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{Name: "x", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "y", Kind: graph.Compute, Type: u8, Op: "copy"})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "x", graph.EdgeHint{})
	connect(t, g, "x", "y", graph.EdgeHint{FIFODepth: 5})
	connect(t, g, "y", "o", graph.EdgeHint{})

	a, err := Lower(g, target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "chain.cpp")
	if !strings.Contains(kernel, "#pragma HLS STREAM variable=x_y depth=5") {
		t.Fatalf("FIFO hint not realized:\n%s", kernel)
	}
}

func TestXilinxRandomBufferUsesBram(t *testing.T) {
	g := graph.New("lut", 5, target.Xilinx)
	u8 := graph.DataType{Kind: graph.UInt, Width: 8}
	addNode(t, g, graph.NodeSpec{Name: "a", Kind: graph.InputPort, Type: u8})
	addNode(t, g, graph.NodeSpec{
		Name: "table", Kind: graph.Buffer, Type: u8, Depth: 256,
		Access: graph.AccessRandom,
	})
	addNode(t, g, graph.NodeSpec{Name: "o", Kind: graph.OutputPort, Type: u8})
	connect(t, g, "a", "table", graph.EdgeHint{})
	connect(t, g, "table", "o", graph.EdgeHint{})

	a, err := Lower(g, target.Xilinx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	kernel := sourceByName(t, a, "lut.cpp")
	for _, want := range []string{"#pragma HLS BIND_STORAGE", "buf[256]"} {
		if !strings.Contains(kernel, want) {
			t.Fatalf("random buffer is missing %q:\n%s", want, kernel)
		}
	}
}
