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

// xilinxBackend lowers a graph to a Vitis HLS dataflow kernel plus the Tcl
// project script needed to synthesize it.
type xilinxBackend struct{}

func (xilinxBackend) defaultPart() string {
	return "xcu250-figd2104-2L-e"
}

func (xilinxBackend) typeName(t graph.DataType) string {
	switch t.Kind {
	case graph.UInt:
		return fmt.Sprintf("ap_uint<%d>", t.Width)
	case graph.Int:
		return fmt.Sprintf("ap_int<%d>", t.Width)
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

func (xilinxBackend) op(name string) (opFormat, bool) {
	// The Vitis dialect additionally maps a 3-input multiplexer.
	if name == "mux" {
		return opFormat{3, func(a []string) string {
			return fmt.Sprintf("(%s ? %s : %s)", a[0], a[1], a[2])
		}}, true
	}
	return commonOps(name)
}

func (xilinxBackend) supportsFeedback() bool {
	return true
}

func (xilinxBackend) supportsFIFOHints() bool {
	return true
}

type xilinxStage struct {
	stagePlan
	Params   string
	Call     string
	ElemType string
}

type xilinxChan struct {
	chanPlan
	StreamDepth int
}

type xilinxParams struct {
	Top        string
	Clock      string
	Part       string
	PortParams string
	Chans      []xilinxChan
	Stages     []xilinxStage
}

const xilinxKernelTemplate = `#include <ap_int.h>
#include <hls_stream.h>

// {{ .Top }}: dataflow kernel generated from the IR graph.
{{ range $s := .Stages }}
static void {{ .Func }}({{ .Params }}) {
{{- if .Random }}
  {{ .ElemType }} buf[{{ .Depth }}];
#pragma HLS BIND_STORAGE variable=buf type=ram_2p impl=bram
  for (int i = 0; i < {{ .Depth }}; i++) {
#pragma HLS PIPELINE II=1
    buf[i] = in_{{ (index .Args 0).Var }}.read();
  }
  for (int i = 0; i < {{ .Depth }}; i++) {
#pragma HLS PIPELINE II=1
{{- range $i, $o := .Outs }}
    out{{ $i }}.write(buf[i]);
{{- end }}
  }
{{- else }}
#pragma HLS PIPELINE II=1
{{- range .Args }}
  {{ .Type }} {{ .Var }} = in_{{ .Var }}.read();
{{- end }}
{{- range $i, $o := .Outs }}
  out{{ $i }}.write({{ $s.Expr }});
{{- end }}
{{- end }}
}
{{ end }}
void {{ .Top }}({{ .PortParams }}) {
#pragma HLS DATAFLOW
{{- range .Chans }}
  hls::stream<{{ .Type }} > {{ .Name }};{{ if .Feedback }} // recurrence{{ end }}
#pragma HLS STREAM variable={{ .Name }} depth={{ .StreamDepth }}
{{- end }}
{{ range .Stages }}  {{ .Call }}
{{ end -}}
}
`

const xilinxProjectTemplate = `open_project {{ .Top }}_prj
set_top {{ .Top }}
add_files {{ .Top }}.cpp -cflags "-std=c++11"
open_solution solution
set_part { {{- .Part -}} }
create_clock -period {{ .Clock }} -name default
config_compile -name_max_length 253
csynth_design
exit
`

var xilinxKernel = template.Must(template.New("xilinx_kernel").Parse(xilinxKernelTemplate))
var xilinxProject = template.Must(template.New("xilinx_project").Parse(xilinxProjectTemplate))

func (b xilinxBackend) render(p *plan) (*Artifact, error) {
	params := xilinxParams{
		Top:   p.Top,
		Clock: p.Clock,
		Part:  p.Part,
	}

	port := func(pp portPlan) string {
		return fmt.Sprintf("hls::stream<%s > &%s", pp.Type, pp.Name)
	}
	ports := util.MappedSlice(p.Inputs, port)
	ports = append(ports, util.MappedSlice(p.Outputs, port)...)
	params.PortParams = strings.Join(ports, ", ")

	for _, c := range p.Chans {
		depth := c.Depth
		if depth == 0 {
			depth = 2
		}
		params.Chans = append(params.Chans, xilinxChan{chanPlan: c, StreamDepth: depth})
	}

	for _, s := range p.Stages {
		stage := xilinxStage{stagePlan: s}
		var args, calls []string
		for _, a := range s.Args {
			args = append(args, fmt.Sprintf("hls::stream<%s > &in_%s", a.Type, a.Var))
			calls = append(calls, a.Chan)
		}
		for i, o := range s.Outs {
			args = append(args, fmt.Sprintf("hls::stream<%s > &out%d", o.Type, i))
			calls = append(calls, o.Chan)
		}
		stage.Params = strings.Join(args, ", ")
		stage.Call = fmt.Sprintf("%s(%s);", s.Func, strings.Join(calls, ", "))
		stage.ElemType = s.OutType
		params.Stages = append(params.Stages, stage)
	}

	var kernel, project bytes.Buffer
	if err := xilinxKernel.Execute(&kernel, params); err != nil {
		return nil, err
	}
	if err := xilinxProject.Execute(&project, params); err != nil {
		return nil, err
	}

	descriptor := util.NewOrderedMap[string, string]()
	descriptor.Insert("part", p.Part)
	descriptor.Insert("clock_period", p.Clock)
	descriptor.Insert("top", p.Top)
	descriptor.Insert("flow", "vitis_hls")
	descriptor.Insert("solution", "solution")
	descriptor.Insert("script", "run_hls.tcl")

	return &Artifact{
		Target: target.Xilinx,
		Sources: []SourceUnit{
			{Name: p.Top + ".cpp", Contents: kernel.String()},
			{Name: "run_hls.tcl", Contents: project.String()},
		},
		Project: descriptor,
	}, nil
}
