package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// line is one report line with its 1-based position, kept for error context.
type line struct {
	num  int
	text string
}

func readLines(r io.Reader) ([]line, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		lines = append(lines, line{num: n, text: scanner.Text()})
	}
	return lines, scanner.Err()
}

// isRule reports whether the line is a table border like +------+------+.
func isRule(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '+' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '+' && s[i] != '-' {
			return false
		}
	}
	return true
}

// row is one table row split into trimmed cells.
type row struct {
	num   int
	cells []string
}

// readTable collects the rows of the ASCII table starting at or after index
// i and returns them together with the index of the first line after the
// table. sep is the cell separator: '|' in Vivado reports, ';' in Quartus
// reports. Border lines are skipped; header and body rows are not told apart
// here because the vendors disagree on how many header rows a table has.
func readTable(lines []line, i int, sep byte) (rows []row, next int) {
	for i < len(lines) && !isRule(lines[i].text) {
		if strings.TrimSpace(lines[i].text) == "" {
			i++
			continue
		}
		if lines[i].text[0] == sep || strings.TrimSpace(lines[i].text)[0] == sep {
			break
		}
		i++
	}
	for ; i < len(lines); i++ {
		text := strings.TrimSpace(lines[i].text)
		if isRule(text) {
			continue
		}
		if text == "" || text[0] != sep {
			break
		}
		rows = append(rows, row{num: lines[i].num, cells: splitCells(text, sep)})
	}
	return rows, i
}

// readAllTables collects the rows of every table in the input, in order.
// Quartus summaries spread their data over several bordered tables.
func readAllTables(lines []line, sep byte) []row {
	var rows []row
	for i := 0; i < len(lines); {
		table, next := readTable(lines, i, sep)
		rows = append(rows, table...)
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return rows
}

func splitCells(text string, sep byte) []string {
	trimmed := strings.Trim(text, string(sep))
	parts := strings.Split(trimmed, string(sep))
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// normalizeNumber strips digit group separators so "933,120" parses.
func normalizeNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

func parseIntCell(r row, cell string) (int, error) {
	v, err := strconv.Atoi(normalizeNumber(cell))
	if err != nil {
		return 0, MalformedReportError{
			Line:   r.num,
			Text:   strings.Join(r.cells, " | "),
			Reason: "expected an integer, got " + strconv.Quote(cell),
		}
	}
	return v, nil
}

func parseFloatCell(r row, cell string) (float64, error) {
	v, err := strconv.ParseFloat(normalizeNumber(cell), 64)
	if err != nil {
		return 0, MalformedReportError{
			Line:   r.num,
			Text:   strings.Join(r.cells, " | "),
			Reason: "expected a number, got " + strconv.Quote(cell),
		}
	}
	return v, nil
}
