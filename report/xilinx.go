package report

import (
	"strings"

	"github.com/fpgaflow/fpgaflow/target"
	"github.com/fpgaflow/fpgaflow/util"
)

// parseXilinx parses a Vivado/Vitis HLS csynth report, optionally refined by
// a post-route timing summary and the HLS log.
//
// The csynth report is a sequence of `== <section>` blocks containing ASCII
// tables. Optional sections that are missing leave the corresponding fields
// absent; only recognized sections with unparseable content fail the parse.
func parseXilinx(in Input) (*BuildReport, error) {
	lines, err := readLines(in.Synthesis)
	if err != nil {
		return nil, err
	}

	top, ok := xilinxSignature(lines)
	if !ok {
		detected := ""
		for _, l := range lines {
			if s := strings.TrimSpace(l.text); s != "" && !strings.HasPrefix(s, "===") {
				detected = s
				break
			}
		}
		return nil, UnrecognizedFormatError{
			Target:   target.Xilinx,
			Detected: detected,
			Expected: "a '== Vivado HLS Report' or '== Vitis HLS Report' header",
		}
	}

	r := &BuildReport{Target: target.Xilinx}

	var targetNs *float64
	section := ""
	for i := 0; i < len(lines); i++ {
		text := strings.TrimSpace(lines[i].text)
		if strings.HasPrefix(text, "== ") {
			section = strings.TrimSpace(strings.TrimPrefix(text, "== "))
			continue
		}

		switch section {
		case "Performance Estimates":
			if strings.HasPrefix(text, "+ Timing") {
				next, err := xilinxTiming(r, &targetNs, lines, i)
				if err != nil {
					return nil, err
				}
				i = next - 1
			} else if strings.HasPrefix(text, "+ Latency") {
				next, err := xilinxLatency(r, top, lines, i)
				if err != nil {
					return nil, err
				}
				i = next - 1
			}
		case "Utilization Estimates":
			if strings.HasPrefix(text, "* Summary") {
				next, err := xilinxUtilization(r, lines, i)
				if err != nil {
					return nil, err
				}
				i = next - 1
			}
		}
	}

	if in.Timing != nil {
		if err := xilinxRouteTiming(r, targetNs, in); err != nil {
			return nil, err
		}
	}
	if in.Log != nil {
		if err := xilinxLog(r, in); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// xilinxSignature checks the report header and extracts the top name.
func xilinxSignature(lines []line) (string, bool) {
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, l := range lines[:limit] {
		text := strings.TrimSpace(l.text)
		for _, marker := range []string{"== Vivado HLS Report for ", "== Vitis HLS Report for "} {
			if strings.HasPrefix(text, marker) {
				return strings.Trim(strings.TrimPrefix(text, marker), "'"), true
			}
		}
	}
	return "", false
}

// xilinxTiming extracts the estimated clock period from the timing summary
// table. A '-' estimate (synthesis gave up on the estimate) leaves the field
// absent.
func xilinxTiming(r *BuildReport, targetNs **float64, lines []line, i int) (int, error) {
	rows, next := readTable(lines, i, '|')
	header := -1
	estCol, tgtCol := -1, -1
	for idx, row := range rows {
		for col, cell := range row.cells {
			if cell == "Estimated" {
				header, estCol = idx, col
			}
			if cell == "Target" {
				tgtCol = col
			}
		}
		if header >= 0 {
			break
		}
	}
	if header < 0 || header+1 >= len(rows) || tgtCol < 0 {
		return next, nil // timing summary absent
	}

	data := rows[header+1]
	if len(data.cells) <= estCol || len(data.cells) <= tgtCol {
		return 0, MalformedReportError{
			Line:   data.num,
			Text:   strings.Join(data.cells, " | "),
			Reason: "timing row has fewer cells than its header",
		}
	}
	tgt, err := parseFloatCell(data, data.cells[tgtCol])
	if err != nil {
		return 0, err
	}
	*targetNs = &tgt

	if est := data.cells[estCol]; est != "-" {
		ns, err := parseFloatCell(data, est)
		if err != nil {
			return 0, err
		}
		met := ns <= tgt
		r.AchievedClockNs = &ns
		r.TimingMet = &met
	}
	return next, nil
}

// xilinxLatency extracts the top-level latency/interval summary row. '?'
// entries (not pipelined or unbounded) leave the fields absent.
func xilinxLatency(r *BuildReport, top string, lines []line, i int) (int, error) {
	rows, next := readTable(lines, i, '|')
	header := -1
	for idx, row := range rows {
		if len(row.cells) >= 4 && row.cells[0] == "min" {
			header = idx
			break
		}
	}
	if header < 0 || header+1 >= len(rows) {
		return next, nil
	}

	data := rows[header+1]
	if len(data.cells) < 4 {
		return 0, MalformedReportError{
			Line:   data.num,
			Text:   strings.Join(data.cells, " | "),
			Reason: "latency row needs min/max latency and min/max interval cells",
		}
	}
	region := RegionPerf{Name: top}
	if cell := data.cells[1]; cell != "?" {
		v, err := parseIntCell(data, cell)
		if err != nil {
			return 0, err
		}
		region.LatencyCycles = &v
	}
	if cell := data.cells[3]; cell != "?" {
		v, err := parseIntCell(data, cell)
		if err != nil {
			return 0, err
		}
		region.II = &v
	}
	r.Regions = append(r.Regions, region)
	return next, nil
}

// xilinxResourceColumns maps csynth utilization column names to the
// normalized resource kinds.
var xilinxResourceColumns = map[string]ResourceKind{
	"BRAM_18K": BRAM,
	"DSP48E":   DSP,
	"DSP":      DSP,
	"FF":       FF,
	"LUT":      LUT,
	"URAM":     URAM,
}

// xilinxUtilization extracts the Total/Available pairs from the utilization
// summary table. Kinds missing either row stay absent.
func xilinxUtilization(r *BuildReport, lines []line, i int) (int, error) {
	rows, next := readTable(lines, i, '|')
	columns := map[int]ResourceKind{}
	var total, avail *row
	for idx := range rows {
		row := &rows[idx]
		switch row.cells[0] {
		case "Name":
			for col, cell := range row.cells {
				if kind, ok := xilinxResourceColumns[cell]; ok {
					columns[col] = kind
				}
			}
		case "Total":
			total = row
		case "Available":
			avail = row
		}
	}
	if len(columns) == 0 || total == nil || avail == nil {
		return next, nil
	}

	// Column order fixes which cell a malformed table is reported on.
	resources := map[ResourceKind]Resource{}
	for _, col := range util.OrderedKeys(columns) {
		kind := columns[col]
		if col >= len(total.cells) || col >= len(avail.cells) {
			continue
		}
		used, err := parseIntCell(*total, total.cells[col])
		if err != nil {
			return 0, err
		}
		available, err := parseIntCell(*avail, avail.cells[col])
		if err != nil {
			return 0, err
		}
		resources[kind] = Resource{Used: used, Available: available}
	}
	r.Resources = resources
	return next, nil
}

// xilinxRouteTiming refines the achieved clock with the post-route worst
// negative slack, when a timing summary report is provided.
func xilinxRouteTiming(r *BuildReport, targetNs *float64, in Input) error {
	lines, err := readLines(in.Timing)
	if err != nil {
		return err
	}
	for i, l := range lines {
		if !strings.Contains(l.text, "WNS(ns)") {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			fields := strings.Fields(lines[j].text)
			if len(fields) == 0 || strings.Trim(fields[0], "-") == "" {
				continue
			}
			data := row{num: lines[j].num, cells: fields}
			wns, err := parseFloatCell(data, fields[0])
			if err != nil {
				return err
			}
			met := wns >= 0
			r.TimingMet = &met
			if targetNs != nil {
				achieved := *targetNs - wns
				r.AchievedClockNs = &achieved
			}
			return nil
		}
	}
	return nil
}

// xilinxLog captures tool messages verbatim with a severity classification.
func xilinxLog(r *BuildReport, in Input) error {
	lines, err := readLines(in.Log)
	if err != nil {
		return err
	}
	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		switch {
		case strings.HasPrefix(text, "ERROR:"):
			r.Diagnostics = append(r.Diagnostics, Diagnostic{SeverityError, text})
		case strings.HasPrefix(text, "WARNING:"):
			r.Diagnostics = append(r.Diagnostics, Diagnostic{SeverityWarning, text})
		case strings.HasPrefix(text, "INFO:"):
			r.Diagnostics = append(r.Diagnostics, Diagnostic{SeverityInfo, text})
		}
	}
	return nil
}
