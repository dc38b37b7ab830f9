package graph

import "fmt"

// DuplicateNodeError is returned by AddNode when the node name is taken.
type DuplicateNodeError struct {
	Name string
}

func (e DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already exists", e.Name)
}

// InvalidTypeError is returned by AddNode when the node specification is not
// well-formed.
type InvalidTypeError struct {
	Name   string
	Reason string
}

func (e InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid specification for node %q: %s", e.Name, e.Reason)
}

// UnknownNodeError is returned when an operation references a node name that
// is not part of the graph.
type UnknownNodeError struct {
	Name string
}

func (e UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.Name)
}

// TypeMismatchError is returned by AddEdge when the destination cannot consume
// the source's produced type without truncation or kind change.
type TypeMismatchError struct {
	Src, Dst         string
	SrcType, DstType DataType
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("edge %s -> %s: cannot connect %s to %s without truncation",
		e.Src, e.Dst, e.SrcType, e.DstType)
}

// InvalidEndpointError is returned by AddEdge when an endpoint kind cannot
// take part in the edge, e.g. an edge into an input port.
type InvalidEndpointError struct {
	Node   string
	Reason string
}

func (e InvalidEndpointError) Error() string {
	return fmt.Sprintf("node %q cannot be used as edge endpoint: %s", e.Node, e.Reason)
}

// CyclicGraphError is returned when an unflagged cycle is created or
// encountered during traversal.
type CyclicGraphError struct {
	Nodes []string
}

func (e CyclicGraphError) Error() string {
	if len(e.Nodes) == 0 {
		return "graph contains an unflagged cycle"
	}
	return fmt.Sprintf("graph contains an unflagged cycle through %v", e.Nodes)
}

// FrozenGraphError is returned on mutation attempts after the graph has been
// used to emit an artifact.
type FrozenGraphError struct{}

func (e FrozenGraphError) Error() string {
	return "graph is frozen, an artifact has already been emitted from it"
}
