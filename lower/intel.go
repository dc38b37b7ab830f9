package lower

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fpgaflow/fpgaflow/graph"
	"github.com/fpgaflow/fpgaflow/target"
	"github.com/fpgaflow/fpgaflow/util"
)

// intelBackend lowers a graph to a single Intel HLS component plus Quartus
// project settings and a clock constraint file. The component body is
// straight-line code in topological order; buffers become shift registers or
// hls_memory arrays. Pipeline-level recurrences have no mapping in this
// dialect and are rejected.
type intelBackend struct{}

func (intelBackend) defaultPart() string {
	return "1SG280HU2F50E2VG"
}

func (intelBackend) typeName(t graph.DataType) string {
	switch t.Kind {
	case graph.UInt:
		return fmt.Sprintf("ac_int<%d, false>", t.Width)
	case graph.Int:
		return fmt.Sprintf("ac_int<%d, true>", t.Width)
	case graph.Float:
		switch t.Width {
		case 16:
			return "half"
		case 32:
			return "float"
		}
		return "double"
	}
	return t.String()
}

func (intelBackend) op(name string) (opFormat, bool) {
	return commonOps(name)
}

func (intelBackend) supportsFeedback() bool {
	return false
}

// The straight-line component has no internal FIFOs to size.
func (intelBackend) supportsFIFOHints() bool {
	return false
}

type intelStage struct {
	stagePlan
	Var   string // variable the stage assigns inside the component body
	Shift bool   // stream buffers become shift registers
}

type intelWrite struct {
	Port string
	Var  string
}

type intelParams struct {
	Top        string
	Clock      string
	ClockMhz   string
	Part       string
	PortParams string
	Inputs     []portPlan
	Stages     []intelStage
	Writes     []intelWrite
}

const intelComponentTemplate = `#include "HLS/hls.h"
#include "HLS/ac_int.hpp"

// {{ .Top }}: pipelined component generated from the IR graph.

component void {{ .Top }}({{ .PortParams }}) {
{{- range .Inputs }}
  {{ .Type }} v_{{ .Name }} = {{ .Name }}.read();
{{- end }}
{{- range .Stages }}
{{- if .Random }}
  hls_memory {{ .OutType }} buf_{{ .Node }}[{{ .Depth }}];
  for (int i = 0; i < {{ .Depth }}; i++) {
    buf_{{ .Node }}[i] = {{ (index .Args 0).Var }};
  }
  {{ .OutType }} {{ .Var }} = buf_{{ .Node }}[0];
{{- else if .Shift }}
  static hls_register {{ .OutType }} line_{{ .Node }}[{{ .Depth }}];
#pragma unroll
  for (int i = {{ .Depth }} - 1; i > 0; i--) {
    line_{{ .Node }}[i] = line_{{ .Node }}[i - 1];
  }
  line_{{ .Node }}[0] = {{ (index .Args 0).Var }};
  {{ .OutType }} {{ .Var }} = line_{{ .Node }}[{{ .Depth }} - 1];
{{- else }}
  {{ .OutType }} {{ .Var }} = {{ .Expr }};
{{- end }}
{{- end }}
{{- range .Writes }}
  {{ .Port }}.write({{ .Var }});
{{- end }}
}
`

const intelProjectTemplate = `set_global_assignment -name FAMILY "Stratix 10"
set_global_assignment -name DEVICE {{ .Part }}
set_global_assignment -name TOP_LEVEL_ENTITY {{ .Top }}
set_global_assignment -name SDC_FILE {{ .Top }}.sdc
set_global_assignment -name SEED 1
`

const intelConstraintTemplate = `create_clock -name clk -period {{ .Clock }} [get_ports clk]
derive_pll_clocks
derive_clock_uncertainty
`

var intelComponent = template.Must(template.New("intel_component").Parse(intelComponentTemplate))
var intelProject = template.Must(template.New("intel_project").Parse(intelProjectTemplate))
var intelConstraint = template.Must(template.New("intel_constraint").Parse(intelConstraintTemplate))

func (b intelBackend) render(p *plan) (*Artifact, error) {
	params := intelParams{
		Top:      p.Top,
		Clock:    p.Clock,
		ClockMhz: fmt.Sprintf("%.3f", 1000.0/p.ClockNs),
		Part:     p.Part,
		Inputs:   p.Inputs,
	}

	ports := util.MappedSlice(p.Inputs, func(pp portPlan) string {
		return fmt.Sprintf("ihc::stream_in<%s > &%s", pp.Type, pp.Name)
	})
	ports = append(ports, util.MappedSlice(p.Outputs, func(pp portPlan) string {
		return fmt.Sprintf("ihc::stream_out<%s > &%s", pp.Type, pp.Name)
	})...)
	params.PortParams = strings.Join(ports, ", ")

	// The straight-line body assigns one variable per stage; output ports are
	// written from whichever stage drives them.
	for _, s := range p.Stages {
		stage := intelStage{
			stagePlan: s,
			Var:       "v_" + s.Node,
			Shift:     s.Kind == graph.Buffer && !s.Random,
		}
		portCopy := s.Op == "copy" && s.Kind == graph.Compute &&
			len(s.Args) == 1 && s.Expr == s.Args[0].Var
		if portCopy {
			// Port-to-port copies need no local in straight-line form; the
			// write below forwards the already-read input variable.
			stage.Var = s.Args[0].Var
		} else {
			params.Stages = append(params.Stages, stage)
		}
		for _, o := range s.Outs {
			for _, out := range p.Outputs {
				if o.Chan == out.Name {
					params.Writes = append(params.Writes, intelWrite{Port: out.Name, Var: stage.Var})
				}
			}
		}
	}

	var component, project, constraint bytes.Buffer
	if err := intelComponent.Execute(&component, params); err != nil {
		return nil, err
	}
	if err := intelProject.Execute(&project, params); err != nil {
		return nil, err
	}
	if err := intelConstraint.Execute(&constraint, params); err != nil {
		return nil, err
	}

	descriptor := util.NewOrderedMap[string, string]()
	descriptor.Insert("device", p.Part)
	descriptor.Insert("clock_period", p.Clock)
	descriptor.Insert("clock_mhz", params.ClockMhz)
	descriptor.Insert("top", p.Top)
	descriptor.Insert("flow", "intel_hls")
	descriptor.Insert("project", p.Top+".qsf")

	return &Artifact{
		Target: target.Intel,
		Sources: []SourceUnit{
			{Name: p.Top + ".cpp", Contents: component.String()},
			{Name: p.Top + ".qsf", Contents: project.String()},
			{Name: p.Top + ".sdc", Contents: constraint.String()},
		},
		Project: descriptor,
	}, nil
}
