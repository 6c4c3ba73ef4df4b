// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package loaders

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
)

// csvTable is a header-indexed CSV document.
type csvTable struct {
	columns map[string]int
	rows    [][]string
}

func readCSV(data []byte, required ...string) (*csvTable, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, malformed("invalid csv: %v", err)
	}
	if len(records) == 0 {
		return nil, malformed("csv has no header row")
	}

	t := &csvTable{columns: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, name := range records[0] {
		t.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, malformed("missing column %q", col)
		}
	}
	return t, nil
}

// cell returns the trimmed value of col in row, or "" when absent.
func (t *csvTable) cell(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// line returns the 1-based source line of the row at index i.
func line(i int) int {
	return i + 2
}

func floatCell(t *csvTable, row []string, col string, i int) (*float64, error) {
	s := t.cell(row, col)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, malformed("line %d: column %s: %q is not a number", line(i), col, s)
	}
	return &v, nil
}

func intCell(t *csvTable, row []string, col string, i int) (*int, error) {
	s := t.cell(row, col)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, malformed("line %d: column %s: %q is not an integer", line(i), col, s)
	}
	return &v, nil
}

// splitList splits a ';'-separated cell. An empty cell yields nil.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
