package report

import (
	"strings"

	"github.com/fpgaflow/fpgaflow/target"
)

// parseIntel parses a Quartus fitter summary, optionally refined by an Fmax
// summary from the timing analyzer and the compilation log.
//
// The fitter summary is a two-column ';'-separated table of labeled values.
// Counted resources appear as "used / available ( percent )" pairs with
// locale digit grouping; both are normalized here.
func parseIntel(in Input) (*BuildReport, error) {
	lines, err := readLines(in.Synthesis)
	if err != nil {
		return nil, err
	}

	rows := readAllTables(lines, ';')
	if !intelSignature(rows) {
		detected := ""
		for _, l := range lines {
			if s := strings.TrimSpace(l.text); s != "" {
				detected = s
				break
			}
		}
		return nil, UnrecognizedFormatError{
			Target:   target.Intel,
			Detected: detected,
			Expected: "a Quartus fitter summary with a 'Fitter Status' row",
		}
	}

	r := &BuildReport{Target: target.Intel}
	resources := map[ResourceKind]Resource{}
	for _, row := range rows {
		if len(row.cells) < 2 {
			continue
		}
		label, value := row.cells[0], row.cells[1]
		kind, ok := intelResourceRows[label]
		if !ok {
			continue
		}
		res, err := parseIntelPair(row, value)
		if err != nil {
			return nil, err
		}
		resources[kind] = res
	}
	if len(resources) > 0 {
		r.Resources = resources
	}

	if in.Timing != nil {
		if err := intelTiming(r, in); err != nil {
			return nil, err
		}
	}
	if in.Log != nil {
		if err := intelLog(r, in); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func intelSignature(rows []row) bool {
	for _, row := range rows {
		if len(row.cells) >= 1 && row.cells[0] == "Fitter Status" {
			return true
		}
		if len(row.cells) >= 1 && strings.HasPrefix(row.cells[0], "Quartus Prime Version") {
			return true
		}
	}
	return false
}

// intelResourceRows maps fitter summary labels to normalized resource kinds.
// ALMs fold into LUT, M20K blocks into BRAM.
var intelResourceRows = map[string]ResourceKind{
	"Logic utilization (in ALMs)": LUT,
	"Total registers":             FF,
	"Total RAM Blocks":            BRAM,
	"M20K blocks":                 BRAM,
	"Total DSP Blocks":            DSP,
}

// parseIntelPair parses "1,234 / 933,120 ( < 1 % )" into a used/available
// pair. The parenthesized utilization is redundant and ignored. Some rows
// (registers) report a bare count; those leave Available at zero.
func parseIntelPair(r row, value string) (Resource, error) {
	if idx := strings.IndexByte(value, '('); idx >= 0 {
		value = value[:idx]
	}
	parts := strings.Split(value, "/")
	if len(parts) > 2 {
		return Resource{}, MalformedReportError{
			Line:   r.num,
			Text:   strings.Join(r.cells, " ; "),
			Reason: "expected a 'used / available' pair",
		}
	}
	used, err := parseIntCell(r, parts[0])
	if err != nil {
		return Resource{}, err
	}
	result := Resource{Used: used}
	if len(parts) == 2 {
		available, err := parseIntCell(r, parts[1])
		if err != nil {
			return Resource{}, err
		}
		result.Available = available
	}
	return result, nil
}

// intelTiming extracts the restricted Fmax of the first clock from an Fmax
// summary table and normalizes it to a period in nanoseconds.
func intelTiming(r *BuildReport, in Input) error {
	lines, err := readLines(in.Timing)
	if err != nil {
		return err
	}

	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		if strings.Contains(text, "Timing requirements not met") {
			met := false
			r.TimingMet = &met
		}
		if strings.Contains(text, "All timing requirements met") {
			met := true
			r.TimingMet = &met
		}
	}

	rows := readAllTables(lines, ';')
	fmaxCol := -1
	for _, row := range rows {
		for col, cell := range row.cells {
			if cell == "Restricted Fmax" {
				fmaxCol = col
			}
		}
		if fmaxCol < 0 || len(row.cells) <= fmaxCol {
			continue
		}
		cell := row.cells[fmaxCol]
		if cell == "Restricted Fmax" || cell == "" {
			continue
		}
		mhz, err := parseFloatCell(row, strings.TrimSuffix(cell, " MHz"))
		if err != nil {
			return err
		}
		if mhz <= 0 {
			return MalformedReportError{
				Line:   row.num,
				Text:   strings.Join(row.cells, " ; "),
				Reason: "Fmax must be positive",
			}
		}
		ns := 1000.0 / mhz
		r.AchievedClockNs = &ns
		return nil
	}
	return nil
}

// intelLog captures Quartus messages verbatim with a severity classification.
// Quartus message lines look like "Warning (171000): ...".
func intelLog(r *BuildReport, in Input) error {
	lines, err := readLines(in.Log)
	if err != nil {
		return err
	}
	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		switch {
		case strings.HasPrefix(text, "Error"):
			r.Diagnostics = append(r.Diagnostics, Diagnostic{SeverityError, text})
		case strings.HasPrefix(text, "Critical Warning"), strings.HasPrefix(text, "Warning"):
			r.Diagnostics = append(r.Diagnostics, Diagnostic{SeverityWarning, text})
		case strings.HasPrefix(text, "Info"):
			r.Diagnostics = append(r.Diagnostics, Diagnostic{SeverityInfo, text})
		}
	}
	return nil
}
