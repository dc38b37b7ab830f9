// Package report parses vendor toolchain reports into one normalized,
// vendor-agnostic result schema. Parsers tolerate missing optional sections
// by leaving the corresponding fields absent; absent is never conflated with
// a reported zero.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/fpgaflow/fpgaflow/target"
)

// ResourceKind names a normalized resource category. Vendor-specific names
// (M20K, ALM, RAMB18) are folded into these categories at parse time.
type ResourceKind string

const (
	LUT  ResourceKind = "LUT"
	FF   ResourceKind = "FF"
	BRAM ResourceKind = "BRAM"
	DSP  ResourceKind = "DSP"
	URAM ResourceKind = "URAM"
)

// Resource is a used/available pair for one resource kind.
type Resource struct {
	Used      int `yaml:"used"`
	Available int `yaml:"available"`
}

// Utilization returns the used fraction.
func (r Resource) Utilization() float64 {
	if r.Available == 0 {
		return 0
	}
	return float64(r.Used) / float64(r.Available)
}

// Severity classifies a diagnostic line from a vendor tool.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// MarshalYAML renders the severity by name rather than as a bare number.
func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// Diagnostic is a verbatim tool message with a severity classification. The
// message is not interpreted further by this layer.
type Diagnostic struct {
	Severity Severity `yaml:"severity"`
	Message  string   `yaml:"message"`
}

// RegionPerf holds per-region performance numbers where the vendor reports
// them. Absent values stay nil.
type RegionPerf struct {
	Name          string `yaml:"name"`
	LatencyCycles *int   `yaml:"latency_cycles,omitempty"`
	II            *int   `yaml:"ii,omitempty"`
}

// BuildReport is the normalized result of parsing one toolchain run's
// reports. All clock periods are in nanoseconds regardless of source vendor.
type BuildReport struct {
	Target          target.Target             `yaml:"-"`
	AchievedClockNs *float64                  `yaml:"achieved_clock_ns,omitempty"`
	TimingMet       *bool                     `yaml:"timing_met,omitempty"`
	Resources       map[ResourceKind]Resource `yaml:"resources,omitempty"`
	Regions         []RegionPerf              `yaml:"regions,omitempty"`
	Diagnostics     []Diagnostic              `yaml:"diagnostics,omitempty"`
}

// ErrIncomparable is returned by comparison helpers when a required field is
// absent on either side. Callers must handle missing data explicitly; absent
// never compares as better or worse.
var ErrIncomparable = errors.New("metric absent, reports are incomparable")

// CompareClock orders two reports by achieved clock period. The result is
// negative if r achieves a shorter period than other, zero if equal.
func (r *BuildReport) CompareClock(other *BuildReport) (int, error) {
	if r.AchievedClockNs == nil || other.AchievedClockNs == nil {
		return 0, ErrIncomparable
	}
	switch {
	case *r.AchievedClockNs < *other.AchievedClockNs:
		return -1, nil
	case *r.AchievedClockNs > *other.AchievedClockNs:
		return 1, nil
	}
	return 0, nil
}

// CompareResource orders two reports by utilization of one resource kind.
// The result is negative if r leaves more headroom than other.
func (r *BuildReport) CompareResource(kind ResourceKind, other *BuildReport) (int, error) {
	a, aok := r.Resources[kind]
	b, bok := other.Resources[kind]
	if !aok || !bok {
		return 0, ErrIncomparable
	}
	switch {
	case a.Utilization() < b.Utilization():
		return -1, nil
	case a.Utilization() > b.Utilization():
		return 1, nil
	}
	return 0, nil
}

// UnrecognizedFormatError is returned when a report's format signature does
// not match any version the parser handles. It distinguishes "the toolchain
// produced garbage" from "this parser needs updating".
type UnrecognizedFormatError struct {
	Target   target.Target
	Detected string
	Expected string
}

func (e UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("%s report signature not recognized: got %q, expected %s",
		e.Target, e.Detected, e.Expected)
}

// MalformedReportError is returned when a recognized section cannot be parsed
// according to its grammar. It carries the offending line for inspection.
type MalformedReportError struct {
	Line   int
	Text   string
	Reason string
}

func (e MalformedReportError) Error() string {
	return fmt.Sprintf("malformed report at line %d (%q): %s", e.Line, e.Text, e.Reason)
}

// Input bundles the report artifacts of one toolchain run. Synthesis is
// required; the others are optional and merely leave fields absent when nil.
type Input struct {
	Synthesis io.Reader
	Timing    io.Reader
	Log       io.Reader
}

// RequiredReports names the report files a target's parser consumes, in the
// order Synthesis, Timing, Log. Any other vendor output is treated as opaque.
func RequiredReports(t target.Target) []string {
	switch t {
	case target.Xilinx:
		return []string{"csynth.rpt", "timing_summary.rpt (optional)", "vitis_hls.log (optional)"}
	case target.Intel:
		return []string{"fit.summary", "sta.summary (optional)", "quartus_sh.log (optional)"}
	}
	return nil
}

// Parse dispatches to the target's report parser.
func Parse(t target.Target, in Input) (*BuildReport, error) {
	if in.Synthesis == nil {
		return nil, fmt.Errorf("%s parser needs a synthesis report (%v)", t, RequiredReports(t))
	}
	switch t {
	case target.Xilinx:
		return parseXilinx(in)
	case target.Intel:
		return parseIntel(in)
	}
	return nil, fmt.Errorf("no report parser for target %s", t)
}
