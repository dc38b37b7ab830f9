package graph

import "fmt"

// ViolationCode classifies a structural violation found by Validate.
type ViolationCode int

const (
	ViolationClock ViolationCode = iota
	ViolationNoInput
	ViolationNoOutput
	ViolationDanglingEdge
	ViolationType
	ViolationCycle
	ViolationUnreachable
	ViolationOperand
	ViolationPort
)

func (c ViolationCode) String() string {
	switch c {
	case ViolationClock:
		return "clock"
	case ViolationNoInput:
		return "no-input"
	case ViolationNoOutput:
		return "no-output"
	case ViolationDanglingEdge:
		return "dangling-edge"
	case ViolationType:
		return "type"
	case ViolationCycle:
		return "cycle"
	case ViolationUnreachable:
		return "unreachable"
	case ViolationOperand:
		return "operand"
	case ViolationPort:
		return "port"
	}
	return "unknown"
}

// Violation describes one failed structural invariant.
type Violation struct {
	Code    ViolationCode
	Node    string // offending node name, if the violation is node-scoped
	Message string
}

func (v Violation) String() string {
	if v.Node != "" {
		return fmt.Sprintf("[%s] node %q: %s", v.Code, v.Node, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Code, v.Message)
}

// Validate runs all structural invariants and returns every violation found
// instead of failing on the first one, so a caller can report all problems of
// a design variant at once. A graph with an empty violation list is legal
// input for the lowering engine.
func (g *Graph) Validate() []Violation {
	var violations []Violation

	if g.clockNs <= 0 {
		violations = append(violations, Violation{
			Code:    ViolationClock,
			Message: fmt.Sprintf("target clock period must be positive, got %v ns", g.clockNs),
		})
	}
	if len(g.Inputs()) == 0 {
		violations = append(violations, Violation{
			Code:    ViolationNoInput,
			Message: "graph has no input ports",
		})
	}
	if len(g.Outputs()) == 0 {
		violations = append(violations, Violation{
			Code:    ViolationNoOutput,
			Message: "graph has no output ports",
		})
	}

	dangling := false
	for _, e := range g.edges {
		if int(e.Src) >= len(g.nodes) || int(e.Dst) >= len(g.nodes) || e.Src < 0 || e.Dst < 0 {
			violations = append(violations, Violation{
				Code:    ViolationDanglingEdge,
				Message: fmt.Sprintf("edge references nodes %d -> %d outside the arena", e.Src, e.Dst),
			})
			dangling = true
			continue
		}
		src, dst := &g.nodes[e.Src], &g.nodes[e.Dst]
		if !dst.ConsumedType().AcceptsFrom(src.Type) {
			violations = append(violations, Violation{
				Code: ViolationType,
				Node: dst.Name,
				Message: fmt.Sprintf("cannot consume %s produced by %q as %s",
					src.Type, src.Name, dst.ConsumedType()),
			})
		}
	}
	if dangling {
		// A dangling edge makes the remaining checks meaningless.
		return violations
	}

	if cycle := g.findCycle(); cycle != nil {
		violations = append(violations, Violation{
			Code:    ViolationCycle,
			Message: fmt.Sprintf("unflagged cycle through %v", cycle),
		})
	}

	violations = append(violations, g.checkReachability()...)
	violations = append(violations, g.checkPorts()...)
	violations = append(violations, g.checkOperands()...)

	return violations
}

// checkReachability reports nodes not reachable from any input port.
func (g *Graph) checkReachability() []Violation {
	reached := make([]bool, len(g.nodes))
	var stack []NodeID
	for _, in := range g.Inputs() {
		reached[in.ID] = true
		stack = append(stack, in.ID)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, i := range g.nodes[id].out {
			dst := g.edges[i].Dst
			if !reached[dst] {
				reached[dst] = true
				stack = append(stack, dst)
			}
		}
	}

	var violations []Violation
	for i := range g.nodes {
		if !reached[i] {
			violations = append(violations, Violation{
				Code:    ViolationUnreachable,
				Node:    g.nodes[i].Name,
				Message: "not reachable from any input port",
			})
		}
	}
	return violations
}

// checkPorts verifies that every output port is driven by exactly one edge.
// Two drivers would race for the same port stream.
func (g *Graph) checkPorts() []Violation {
	var violations []Violation
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind != OutputPort {
			continue
		}
		switch {
		case len(n.in) == 0:
			violations = append(violations, Violation{
				Code:    ViolationPort,
				Node:    n.Name,
				Message: "output port is not driven by any edge",
			})
		case len(n.in) > 1:
			violations = append(violations, Violation{
				Code:    ViolationPort,
				Node:    n.Name,
				Message: fmt.Sprintf("output port is driven by %d edges", len(n.in)),
			})
		}
	}
	return violations
}

// checkOperands resolves compute operand references against the node set and
// the incoming edges.
func (g *Graph) checkOperands() []Violation {
	var violations []Violation
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind != Compute {
			continue
		}
		sources := map[string]bool{}
		for _, e := range g.InEdges(n.ID) {
			sources[g.nodes[e.Src].Name] = true
		}
		for _, operand := range n.Operands {
			if _, ok := g.byName[operand]; !ok {
				violations = append(violations, Violation{
					Code:    ViolationOperand,
					Node:    n.Name,
					Message: fmt.Sprintf("operand %q does not name a node", operand),
				})
				continue
			}
			if !sources[operand] {
				violations = append(violations, Violation{
					Code:    ViolationOperand,
					Node:    n.Name,
					Message: fmt.Sprintf("operand %q is not connected by an edge", operand),
				})
			}
		}
	}
	return violations
}
