// Package lower translates a validated dataflow graph into vendor-specific
// HLS source text and a project descriptor. All graph traversal and plan
// construction is shared between the backends; only primitive templates,
// project-descriptor keys and constraint syntax differ per target.
package lower

import (
	"fmt"
	"strconv"

	"github.com/fpgaflow/fpgaflow/graph"
	"github.com/fpgaflow/fpgaflow/target"
	"github.com/fpgaflow/fpgaflow/util"
)

// SourceUnit is one named, generated source file.
type SourceUnit struct {
	Name     string
	Contents string
}

// Artifact is the immutable result of lowering one graph for one target.
type Artifact struct {
	Target  target.Target
	Sources []SourceUnit
	// Project holds the key/value build settings the invocation layer needs
	// to run the vendor toolchain. The key set is target-specific but always
	// includes the part/device, the clock constraint and the top-level name.
	Project util.OrderedMap[string, string]
}

// Options carries lowering settings that are not part of the graph itself.
type Options struct {
	// Part selects the target device. Empty picks the backend default.
	Part string
}

// UnvalidatedGraphError is returned when Lower is called on a graph that does
// not pass validation. This is a caller error; the violations are attached so
// they can be reported.
type UnvalidatedGraphError struct {
	Violations []graph.Violation
}

func (e UnvalidatedGraphError) Error() string {
	return fmt.Sprintf("graph has %d unresolved validation violations", len(e.Violations))
}

// UnsupportedConstructError is returned when a node or edge has no mapping
// for the selected target. It signals a genuine capability gap, not a bug in
// the input graph.
type UnsupportedConstructError struct {
	Target    target.Target
	Node      string
	Construct string
}

func (e UnsupportedConstructError) Error() string {
	return fmt.Sprintf("target %s cannot lower %s (node %q)", e.Target, e.Construct, e.Node)
}

// backend is the per-vendor part of the lowering engine. The shared driver
// builds a plan from the graph; the backend contributes type spelling, its
// operator table and the final template rendering.
type backend interface {
	defaultPart() string
	typeName(t graph.DataType) string
	op(name string) (opFormat, bool)
	supportsFeedback() bool
	supportsFIFOHints() bool
	render(p *plan) (*Artifact, error)
}

// opFormat renders a compute operator over already-named operand variables.
type opFormat struct {
	arity  int
	render func(args []string) string
}

func infix(operator string) opFormat {
	return opFormat{
		arity: 2,
		render: func(args []string) string {
			return fmt.Sprintf("%s %s %s", args[0], operator, args[1])
		},
	}
}

// commonOps is the operator table shared by both backends; each backend may
// extend it.
func commonOps(name string) (opFormat, bool) {
	switch name {
	case "add":
		return infix("+"), true
	case "sub":
		return infix("-"), true
	case "mul":
		return infix("*"), true
	case "and":
		return infix("&"), true
	case "or":
		return infix("|"), true
	case "xor":
		return infix("^"), true
	case "shl":
		return infix("<<"), true
	case "shr":
		return infix(">>"), true
	case "min":
		return opFormat{2, func(a []string) string {
			return fmt.Sprintf("(%s < %s ? %s : %s)", a[0], a[1], a[0], a[1])
		}}, true
	case "max":
		return opFormat{2, func(a []string) string {
			return fmt.Sprintf("(%s > %s ? %s : %s)", a[0], a[1], a[0], a[1])
		}}, true
	case "copy":
		return opFormat{1, func(a []string) string { return a[0] }}, true
	}
	return opFormat{}, false
}

// Lower turns a validated graph into an artifact for the given target.
// Lowering freezes the graph so it cannot be mutated after emission. The
// output is byte-identical for repeated calls on the same graph.
func Lower(g *graph.Graph, t target.Target, opts Options) (*Artifact, error) {
	var b backend
	switch t {
	case target.Xilinx:
		b = xilinxBackend{}
	case target.Intel:
		b = intelBackend{}
	default:
		return nil, fmt.Errorf("no lowering backend for target %s", t)
	}

	if violations := g.Validate(); len(violations) > 0 {
		return nil, UnvalidatedGraphError{Violations: violations}
	}
	p, err := buildPlan(g, t, b, opts)
	if err != nil {
		return nil, err
	}
	g.Freeze()
	return b.render(p)
}

// plan is the backend-neutral emission plan derived from the graph. Stage
// and channel order follow the graph's topological order, which makes the
// rendered output deterministic.
type plan struct {
	Top     string
	Clock   string // clock period in ns, carried through verbatim
	ClockNs float64
	Part    string

	Inputs  []portPlan
	Outputs []portPlan
	Chans   []chanPlan
	Stages  []stagePlan
}

type portPlan struct {
	Name  string
	Type  string
	Width int
}

type chanPlan struct {
	Name     string
	Type     string
	Depth    int // FIFO depth hint; 0 leaves the backend default
	Feedback bool
}

type stagePlan struct {
	Func    string
	Node    string
	Kind    graph.NodeKind
	Op      string
	Expr    string // expression over the Var names of Args
	Args    []argPlan
	Outs    []argPlan
	OutType string // rendered type the stage produces
	Depth   int    // buffer depth, carried through verbatim
	Random  bool
}

type argPlan struct {
	Chan string // channel or port the value travels on
	Type string
	Var  string // local variable name inside the stage
}

// formatClock renders the graph's clock period without artificial rounding so
// the constraint reaches the project files verbatim.
func formatClock(ns float64) string {
	return strconv.FormatFloat(ns, 'f', -1, 64)
}

func buildPlan(g *graph.Graph, t target.Target, b backend, opts Options) (*plan, error) {
	part := opts.Part
	if part == "" {
		part = b.defaultPart()
	}
	p := &plan{
		Top:     g.Name(),
		Clock:   formatClock(g.ClockNs()),
		ClockNs: g.ClockNs(),
		Part:    part,
	}

	order, err := g.Topo()
	if err != nil {
		return nil, err
	}

	// An edge travels on a top-level port stream when it ends at an output
	// port, or when it is the sole consumer of an input port. Input fan-out
	// needs internal channels fed by a duplication stage so that no two
	// stages read the same port stream.
	onPort := func(e graph.Edge) bool {
		src, dst := g.Node(e.Src), g.Node(e.Dst)
		if dst.Kind == graph.OutputPort {
			return true
		}
		return src.Kind == graph.InputPort && len(g.OutEdges(src.ID)) == 1
	}

	chanNames := map[int]string{}
	nameCount := map[string]int{}
	edgeChan := func(e graph.Edge) string {
		if name, ok := chanNames[e.ID]; ok {
			return name
		}
		src, dst := g.Node(e.Src), g.Node(e.Dst)
		var name string
		switch {
		case dst.Kind == graph.OutputPort:
			name = dst.Name
		case src.Kind == graph.InputPort && len(g.OutEdges(src.ID)) == 1:
			name = src.Name
		default:
			name = fmt.Sprintf("%s_%s", src.Name, dst.Name)
			if n := nameCount[name]; n > 0 {
				nameCount[name] = n + 1
				name = fmt.Sprintf("%s_%d", name, n)
			} else {
				nameCount[name] = 1
			}
		}
		chanNames[e.ID] = name
		return name
	}

	for n := range order {
		switch n.Kind {
		case graph.InputPort:
			p.Inputs = append(p.Inputs, portPlan{Name: n.Name, Type: b.typeName(n.Type), Width: n.Type.Width})
		case graph.OutputPort:
			p.Outputs = append(p.Outputs, portPlan{Name: n.Name, Type: b.typeName(n.Type), Width: n.Type.Width})
		}
	}

	// Internal edges become named channels; edges touching a port travel on
	// the port itself. Feedback and FIFO hint support are per-backend
	// capabilities; a hint that cannot become a channel depth is rejected
	// rather than dropped.
	for _, e := range g.Edges() {
		if e.Feedback && !b.supportsFeedback() {
			return nil, UnsupportedConstructError{
				Target:    t,
				Node:      g.Node(e.Src).Name,
				Construct: "feedback edge",
			}
		}
		if e.FIFODepth > 0 && (onPort(e) || !b.supportsFIFOHints()) {
			return nil, UnsupportedConstructError{
				Target:    t,
				Node:      g.Node(e.Src).Name,
				Construct: "explicit FIFO depth hint",
			}
		}
		if !onPort(e) {
			src := g.Node(e.Src)
			depth := e.FIFODepth
			// A stream buffer realizes its depth on its outgoing channel
			// unless the edge carries an explicit hint.
			if depth == 0 && src.Kind == graph.Buffer && src.Access == graph.AccessStream {
				depth = src.Depth
			}
			p.Chans = append(p.Chans, chanPlan{
				Name:     edgeChan(e),
				Type:     b.typeName(e.Type),
				Depth:    depth,
				Feedback: e.Feedback,
			})
		}
	}

	for n := range order {
		stages, err := buildStages(g, t, b, n, edgeChan)
		if err != nil {
			return nil, err
		}
		p.Stages = append(p.Stages, stages...)
	}
	return p, nil
}

func buildStages(g *graph.Graph, t target.Target, b backend,
	n *graph.Node, edgeChan func(graph.Edge) string) ([]stagePlan, error) {

	inEdges := g.InEdges(n.ID)
	outEdges := g.OutEdges(n.ID)

	stage := stagePlan{
		Func:    "stage_" + n.Name,
		Node:    n.Name,
		Kind:    n.Kind,
		Op:      n.Op,
		OutType: b.typeName(n.Type),
	}
	for _, e := range outEdges {
		stage.Outs = append(stage.Outs, argPlan{
			Chan: edgeChan(e),
			Type: b.typeName(e.Type),
			Var:  "v_" + n.Name,
		})
	}

	switch n.Kind {
	case graph.InputPort:
		// A sole consumer reads the port stream directly. Fan-out and
		// port-to-port wiring need a stage that reads the port once and
		// duplicates the token onto every outgoing channel, so that no two
		// stages compete for the same stream.
		if len(outEdges) == 0 {
			return nil, nil
		}
		if len(outEdges) == 1 && g.Node(outEdges[0].Dst).Kind != graph.OutputPort {
			return nil, nil
		}
		stage.Kind = graph.Compute
		stage.Op = "copy"
		stage.Expr = "v_" + n.Name
		stage.Args = []argPlan{{Chan: n.Name, Type: b.typeName(n.Type), Var: "v_" + n.Name}}
		return []stagePlan{stage}, nil

	case graph.OutputPort:
		return nil, nil

	case graph.Compute:
		operands := n.Operands
		if len(operands) == 0 {
			for _, e := range inEdges {
				operands = append(operands, g.Node(e.Src).Name)
			}
		}
		format, ok := b.op(n.Op)
		if !ok {
			return nil, UnsupportedConstructError{
				Target:    t,
				Node:      n.Name,
				Construct: fmt.Sprintf("operator %q", n.Op),
			}
		}
		if format.arity != len(operands) {
			return nil, UnsupportedConstructError{
				Target:    t,
				Node:      n.Name,
				Construct: fmt.Sprintf("operator %q with %d operands", n.Op, len(operands)),
			}
		}
		var vars []string
		declared := map[string]bool{}
		for _, operand := range operands {
			e, ok := edgeFrom(g, inEdges, operand)
			if !ok {
				// Validate guarantees this cannot happen.
				return nil, fmt.Errorf("node %q: no edge from operand %q", n.Name, operand)
			}
			v := "v_" + operand
			vars = append(vars, v)
			// One token per operand node; an operand used twice is read once.
			if !declared[v] {
				declared[v] = true
				stage.Args = append(stage.Args, argPlan{Chan: edgeChan(e), Type: b.typeName(e.Type), Var: v})
			}
		}
		stage.Expr = format.render(vars)
		return []stagePlan{stage}, nil

	case graph.Buffer:
		stage.Depth = n.Depth
		stage.Random = n.Access == graph.AccessRandom
		e := inEdges[0]
		stage.Args = append(stage.Args, argPlan{
			Chan: edgeChan(e),
			Type: b.typeName(e.Type),
			Var:  "v_" + g.Node(e.Src).Name,
		})
		stage.Expr = stage.Args[0].Var
		return []stagePlan{stage}, nil
	}
	return nil, fmt.Errorf("node %q has unknown kind", n.Name)
}

func edgeFrom(g *graph.Graph, edges []graph.Edge, srcName string) (graph.Edge, bool) {
	for _, e := range edges {
		if g.Node(e.Src).Name == srcName {
			return e, true
		}
	}
	return graph.Edge{}, false
}
