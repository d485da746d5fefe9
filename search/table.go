package search

import (
	"strings"
)

// Table is a fixed-width text table as returned by the _cat APIs with ?v
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTable splits content into columns using the header line.
// A column starts at offset 0 and wherever a space is followed by a non-space in the header.
// The last column extends to the end of each line, short lines yield empty trailing values.
func ParseTable(content string) Table {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Table{}
	}

	starts := columnStarts(lines[0])
	table := Table{Header: splitRow(lines[0], starts)}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		table.Rows = append(table.Rows, splitRow(line, starts))
	}
	return table
}

// Column returns the position of the named header column
func (t Table) Column(name string) (int, bool) {
	for i, header := range t.Header {
		if header == name {
			return i, true
		}
	}
	return -1, false
}

// Records returns every row keyed by header name
func (t Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(t.Header))
		for i, name := range t.Header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

func columnStarts(header string) []int {
	starts := make([]int, 0)
	for i := 0; i < len(header); i++ {
		if i == 0 || (header[i-1] == ' ' && header[i] != ' ') {
			starts = append(starts, i)
		}
	}
	return starts
}

func splitRow(line string, starts []int) []string {
	values := make([]string, len(starts))
	for i, start := range starts {
		end := len(line)
		if i+1 < len(starts) {
			end = min(starts[i+1], len(line))
		}
		if start >= end {
			continue
		}
		values[i] = strings.TrimSpace(line[start:end])
	}
	return values
}
