// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package tabular provides the ordered, string-celled table type used by the
// bulk import/export helpers, the sheets connector and the evaluation
// tooling.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tiendc/go-deepcopy"
)

// SchemaError reports columns a table is missing.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Table is an ordered collection of string rows under a fixed header.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty table with the given header.
func New(columns ...string) *Table {
	t := &Table{
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.index[c] = i
	}
	return t
}

// FromRecords builds a table from raw records, treating the first record as
// the header.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no header record")
	}
	t := New(records[0]...)
	for i, rec := range records[1:] {
		if err := t.Append(rec...); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return t, nil
}

// Columns returns the header.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require returns a [*SchemaError] naming every listed column the table does
// not have, or nil when all are present.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Append adds a row. The cell count must match the header.
func (t *Table) Append(cells ...string) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("row has %d cells, header has %d columns", len(cells), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(cells))
	return nil
}

// AppendMap adds a row from a column-to-value map. Unknown keys are ignored
// and unset columns are empty.
func (t *Table) AppendMap(cells map[string]string) {
	row := make([]string, len(t.columns))
	for c, v := range cells {
		if i, ok := t.index[c]; ok {
			row[i] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Row returns the i-th row.
func (t *Table) Row(i int) []string {
	return slices.Clone(t.rows[i])
}

// RowMap returns the i-th row keyed by column name.
func (t *Table) RowMap(i int) map[string]string {
	m := make(map[string]string, len(t.columns))
	for j, c := range t.columns {
		m[c] = t.rows[i][j]
	}
	return m
}

// Cell returns the value at row i, named column. Unknown columns read as
// empty.
func (t *Table) Cell(i int, column string) string {
	j, ok := t.index[column]
	if !ok {
		return ""
	}
	return t.rows[i][j]
}

// SetCell writes the value at row i, named column.
func (t *Table) SetCell(i int, column, value string) error {
	j, ok := t.index[column]
	if !ok {
		return &SchemaError{Missing: []string{column}}
	}
	t.rows[i][j] = value
	return nil
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &SchemaError{Missing: []string{name}}
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// AddColumn appends a column filled with the given value. Adding an existing
// column is an error.
func (t *Table) AddColumn(name, fill string) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
	return nil
}

// Select projects the table onto the given columns, in order.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	out := New(columns...)
	for i := range t.rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = t.rows[i][t.index[c]]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Sort orders rows by the given columns, lexicographically, stable.
func (t *Table) Sort(columns ...string) error {
	if err := t.Require(columns...); err != nil {
		return err
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.index[c]
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, j := range idx {
			if t.rows[a][j] != t.rows[b][j] {
				return t.rows[a][j] < t.rows[b][j]
			}
		}
		return false
	})
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() (*Table, error) {
	out := New(t.columns...)
	if err := deepcopy.Copy(&out.rows, t.rows); err != nil {
		return nil, fmt.Errorf("clone table rows: %w", err)
	}
	return out, nil
}

// Records returns the header followed by all rows, CSV-shaped.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.rows)+1)
	records = append(records, slices.Clone(t.columns))
	for _, row := range t.rows {
		records = append(records, slices.Clone(row))
	}
	return records
}

// WriteCSV writes the table, header first.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads a table, treating the first row as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return FromRecords(records)
}

// MarshalJSON encodes the table as an array of row objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]string, len(t.rows))
	for i := range t.rows {
		rows[i] = t.RowMap(i)
	}
	return sonic.ConfigFastest.Marshal(rows)
}
