// Package design loads YAML design descriptions into IR graphs. The YAML
// format is the CLI front-end for graphs that drivers would otherwise
// construct programmatically.
package design

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/fpgaflow/fpgaflow/graph"
	"github.com/fpgaflow/fpgaflow/target"
)

// File is the top-level YAML structure of a design description.
type File struct {
	Top     string     `yaml:"top"`
	ClockNs float64    `yaml:"clock_ns"`
	Target  string     `yaml:"target"`
	Nodes   []NodeDecl `yaml:"nodes"`
	Edges   []EdgeDecl `yaml:"edges"`
}

// NodeDecl declares one node of the dataflow graph.
type NodeDecl struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Type        string   `yaml:"type"`
	Op          string   `yaml:"op,omitempty"`
	Operands    []string `yaml:"operands,omitempty"`
	OperandType string   `yaml:"operand_type,omitempty"`
	Depth       int      `yaml:"depth,omitempty"`
	Access      string   `yaml:"access,omitempty"`
}

// EdgeDecl declares one directed data dependency.
type EdgeDecl struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	FifoDepth int    `yaml:"fifo_depth,omitempty"`
	Feedback  bool   `yaml:"feedback,omitempty"`
}

var nodeKinds = map[string]graph.NodeKind{
	"compute": graph.Compute,
	"input":   graph.InputPort,
	"output":  graph.OutputPort,
	"buffer":  graph.Buffer,
}

var accessPatterns = map[string]graph.AccessPattern{
	"":       graph.AccessStream,
	"stream": graph.AccessStream,
	"random": graph.AccessRandom,
}

// Load builds a graph from a YAML design description. The graph is built but
// not validated; callers decide how to report violations.
func Load(data []byte) (*graph.Graph, error) {
	var file File
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("invalid design description: %w", err)
	}
	if file.Top == "" {
		return nil, fmt.Errorf("design description needs a top-level entity name")
	}
	vendor, err := target.ParseTarget(file.Target)
	if err != nil {
		return nil, err
	}

	g := graph.New(file.Top, file.ClockNs, vendor)
	for _, decl := range file.Nodes {
		spec, err := decl.spec()
		if err != nil {
			return nil, err
		}
		if _, err := g.AddNode(spec); err != nil {
			return nil, fmt.Errorf("node %q: %w", decl.Name, err)
		}
	}
	for _, decl := range file.Edges {
		hint := graph.EdgeHint{FIFODepth: decl.FifoDepth, Feedback: decl.Feedback}
		if err := g.AddEdge(decl.From, decl.To, hint); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", decl.From, decl.To, err)
		}
	}
	return g, nil
}

// LoadFile is Load for a design description on disk.
func LoadFile(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func (d NodeDecl) spec() (graph.NodeSpec, error) {
	kind, ok := nodeKinds[d.Kind]
	if !ok {
		return graph.NodeSpec{}, fmt.Errorf("node %q: unknown kind %q", d.Name, d.Kind)
	}
	access, ok := accessPatterns[d.Access]
	if !ok {
		return graph.NodeSpec{}, fmt.Errorf("node %q: unknown access pattern %q", d.Name, d.Access)
	}
	dataType, err := graph.ParseDataType(d.Type)
	if err != nil {
		return graph.NodeSpec{}, fmt.Errorf("node %q: %w", d.Name, err)
	}
	spec := graph.NodeSpec{
		Name:     d.Name,
		Kind:     kind,
		Type:     dataType,
		Op:       d.Op,
		Operands: d.Operands,
		Depth:    d.Depth,
		Access:   access,
	}
	if d.OperandType != "" {
		operandType, err := graph.ParseDataType(d.OperandType)
		if err != nil {
			return graph.NodeSpec{}, fmt.Errorf("node %q: %w", d.Name, err)
		}
		spec.OperandType = operandType
	}
	return spec, nil
}
