package orders

import (
	"errors"
	"strings"
)

// ErrEmptyInput is returned when a fetched document has no header line.
var ErrEmptyInput = errors.New("empty or malformed CSV: no header line")

// ParseCSV splits a simple spreadsheet export into rows keyed by header.
// It is a plain line/comma splitter: quoted commas and embedded newlines are
// not supported and will shift columns. Blank input yields no rows.
func ParseCSV(text string) []RawRow {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	headers := splitCells(lines[0])

	out := make([]RawRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := splitCells(line)
		row := make(RawRow, len(headers))
		for i, h := range headers {
			v := ""
			if i < len(values) {
				v = values[i]
			}
			row[h] = v
		}
		out = append(out, row)
	}
	return out
}

// ParseCSVStrict behaves like ParseCSV but reports ErrEmptyInput when the
// document does not even carry a header line.
func ParseCSVStrict(text string) ([]RawRow, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return ParseCSV(text), nil
}

func splitCells(line string) []string {
	cells := strings.Split(line, ",")
	for i, c := range cells {
		cells[i] = strings.ReplaceAll(strings.TrimSpace(c), `"`, "")
	}
	return cells
}
