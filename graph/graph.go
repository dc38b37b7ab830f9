// Package graph implements the vendor-neutral dataflow IR: an arena of nodes
// and edges with structural validation and deterministic topological
// traversal. Graphs are built programmatically, validated, and then handed to
// the lowering engine; they are never mutated after an artifact has been
// emitted from them.
package graph

import (
	"sync/atomic"

	"github.com/fpgaflow/fpgaflow/target"
)

// NodeKind classifies what a node contributes to the dataflow design.
type NodeKind int

const (
	Compute NodeKind = iota
	InputPort
	OutputPort
	Buffer
)

func (k NodeKind) String() string {
	switch k {
	case Compute:
		return "compute"
	case InputPort:
		return "input"
	case OutputPort:
		return "output"
	case Buffer:
		return "buffer"
	}
	return "unknown"
}

// AccessPattern describes how a buffer node is accessed.
type AccessPattern int

const (
	AccessStream AccessPattern = iota
	AccessRandom
)

func (a AccessPattern) String() string {
	if a == AccessRandom {
		return "random"
	}
	return "stream"
}

// NodeID is a stable arena index of a node within its graph.
type NodeID int

// NodeSpec describes a node to be added to a graph.
type NodeSpec struct {
	Name string
	Kind NodeKind
	// Type is the type the node produces (for output ports: consumes).
	Type DataType
	// Op is the operator tag of a compute node, e.g. "add" or "mul".
	Op string
	// Operands are the node names a compute node's expression refers to.
	// They may be forward references; they are resolved by Validate.
	Operands []string
	// OperandType is the type a compute node consumes. The zero value means
	// the node consumes its produced type.
	OperandType DataType
	// Depth is the number of elements a buffer node holds.
	Depth int
	// Access is the access pattern of a buffer node.
	Access AccessPattern
}

// Node is a node stored in the graph arena. It holds back-references to its
// incident edges for traversal but does not own them.
type Node struct {
	NodeSpec
	ID NodeID

	in, out []int // edge indices into the graph arena
}

// ConsumedType returns the type the node expects on incoming edges.
func (n *Node) ConsumedType() DataType {
	if n.Kind == Compute && n.OperandType != (DataType{}) {
		return n.OperandType
	}
	return n.Type
}

// EdgeHint carries optional per-edge lowering hints.
type EdgeHint struct {
	// FIFODepth is the required buffering depth to avoid stalls; 0 leaves the
	// choice to the backend.
	FIFODepth int
	// Feedback marks the edge as an intentional pipeline-level recurrence.
	Feedback bool
}

// Edge is a directed data dependency stored in the graph arena.
type Edge struct {
	// ID is the stable arena index of the edge within its graph.
	ID        int
	Src, Dst  NodeID
	Type      DataType
	FIFODepth int
	Feedback  bool
}

// Graph is the IR unit for one design variant.
type Graph struct {
	name    string
	clockNs float64
	vendor  target.Target

	nodes  []Node
	byName map[string]NodeID
	edges  []Edge

	frozen atomic.Bool
}

// New creates an empty graph for the given top-level entity name, target
// clock period in nanoseconds, and target vendor.
func New(name string, clockNs float64, vendor target.Target) *Graph {
	return &Graph{
		name:    name,
		clockNs: clockNs,
		vendor:  vendor,
		byName:  map[string]NodeID{},
	}
}

// Name returns the top-level entity name.
func (g *Graph) Name() string { return g.name }

// ClockNs returns the target clock period in nanoseconds.
func (g *Graph) ClockNs() float64 { return g.clockNs }

// Vendor returns the target vendor the design is intended for.
func (g *Graph) Vendor() target.Target { return g.vendor }

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Node returns the node stored under the given arena index.
func (g *Graph) Node(id NodeID) *Node { return &g.nodes[id] }

// NodeByName looks up a node by its unique name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return &g.nodes[id], true
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// InEdges returns the edges ending at the given node.
func (g *Graph) InEdges(id NodeID) []Edge {
	result := make([]Edge, 0, len(g.nodes[id].in))
	for _, i := range g.nodes[id].in {
		result = append(result, g.edges[i])
	}
	return result
}

// OutEdges returns the edges starting at the given node.
func (g *Graph) OutEdges(id NodeID) []Edge {
	result := make([]Edge, 0, len(g.nodes[id].out))
	for _, i := range g.nodes[id].out {
		result = append(result, g.edges[i])
	}
	return result
}

// Inputs returns the input port nodes in insertion order. Together with
// Outputs it forms the design's top-level I/O signature.
func (g *Graph) Inputs() []*Node {
	return g.portsOfKind(InputPort)
}

// Outputs returns the output port nodes in insertion order.
func (g *Graph) Outputs() []*Node {
	return g.portsOfKind(OutputPort)
}

func (g *Graph) portsOfKind(kind NodeKind) []*Node {
	var result []*Node
	for i := range g.nodes {
		if g.nodes[i].Kind == kind {
			result = append(result, &g.nodes[i])
		}
	}
	return result
}

// Freeze marks the graph immutable. The lowering engine freezes a graph
// before emitting from it so that artifacts can never go stale relative to
// their source graph. Freezing is idempotent and safe to call concurrently.
func (g *Graph) Freeze() {
	g.frozen.Store(true)
}

// Frozen reports whether the graph has been frozen.
func (g *Graph) Frozen() bool {
	return g.frozen.Load()
}

// AddNode validates the specification and inserts a new node.
func (g *Graph) AddNode(spec NodeSpec) (NodeID, error) {
	if g.Frozen() {
		return 0, FrozenGraphError{}
	}
	if spec.Name == "" {
		return 0, InvalidTypeError{Name: spec.Name, Reason: "node name must not be empty"}
	}
	if _, ok := g.byName[spec.Name]; ok {
		return 0, DuplicateNodeError{Name: spec.Name}
	}
	if err := spec.Type.Check(); err != nil {
		return 0, InvalidTypeError{Name: spec.Name, Reason: err.Error()}
	}
	switch spec.Kind {
	case Compute:
		if spec.Op == "" {
			return 0, InvalidTypeError{Name: spec.Name, Reason: "compute node needs an operator tag"}
		}
		if spec.OperandType != (DataType{}) {
			if err := spec.OperandType.Check(); err != nil {
				return 0, InvalidTypeError{Name: spec.Name, Reason: err.Error()}
			}
		}
	case Buffer:
		if spec.Depth < 1 {
			return 0, InvalidTypeError{Name: spec.Name, Reason: "buffer depth must be positive"}
		}
	case InputPort, OutputPort:
	default:
		return 0, InvalidTypeError{Name: spec.Name, Reason: "unknown node kind"}
	}

	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{NodeSpec: spec, ID: id})
	g.byName[spec.Name] = id
	return id, nil
}

// AddEdge validates endpoint existence and type compatibility and inserts a
// new edge carrying the source's produced type. Edges that would close an
// unflagged cycle are rejected; a failed call leaves the graph unchanged.
func (g *Graph) AddEdge(src, dst string, hint EdgeHint) error {
	if g.Frozen() {
		return FrozenGraphError{}
	}
	srcID, ok := g.byName[src]
	if !ok {
		return UnknownNodeError{Name: src}
	}
	dstID, ok := g.byName[dst]
	if !ok {
		return UnknownNodeError{Name: dst}
	}
	srcNode := &g.nodes[srcID]
	dstNode := &g.nodes[dstID]
	if srcNode.Kind == OutputPort {
		return InvalidEndpointError{Node: src, Reason: "output ports do not produce data"}
	}
	if dstNode.Kind == InputPort {
		return InvalidEndpointError{Node: dst, Reason: "input ports do not consume data"}
	}
	if hint.FIFODepth < 0 {
		return InvalidEndpointError{Node: src, Reason: "FIFO depth hint must not be negative"}
	}
	if !dstNode.ConsumedType().AcceptsFrom(srcNode.Type) {
		return TypeMismatchError{
			Src: src, Dst: dst,
			SrcType: srcNode.Type, DstType: dstNode.ConsumedType(),
		}
	}
	if !hint.Feedback && g.reaches(dstID, srcID) {
		return CyclicGraphError{Nodes: []string{src, dst}}
	}

	idx := len(g.edges)
	g.edges = append(g.edges, Edge{
		ID:  idx,
		Src: srcID, Dst: dstID,
		Type:      srcNode.Type,
		FIFODepth: hint.FIFODepth,
		Feedback:  hint.Feedback,
	})
	srcNode.out = append(srcNode.out, idx)
	dstNode.in = append(dstNode.in, idx)
	return nil
}

// reaches reports whether `to` is reachable from `from` along non-feedback
// edges.
func (g *Graph) reaches(from, to NodeID) bool {
	if from == to {
		return true
	}
	seen := make([]bool, len(g.nodes))
	stack := []NodeID{from}
	seen[from] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, i := range g.nodes[id].out {
			e := g.edges[i]
			if e.Feedback {
				continue
			}
			if e.Dst == to {
				return true
			}
			if !seen[e.Dst] {
				seen[e.Dst] = true
				stack = append(stack, e.Dst)
			}
		}
	}
	return false
}
