package core

// table.go implements the unified table: the canonical header+rows form
// every entity adapter produces. The header fixes the column order per
// entity kind; every row carries exactly one string cell per header cell
// so CSV round-trips stay stable.

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Cell describes one column of a unified table.
type Cell struct {
	Label    string `json:"value"`
	DataType string `json:"dataType"`
	Visible  bool   `json:"visible"`
}

// Column builds a visible string column cell.
func Column(label string) Cell {
	return Cell{Label: label, DataType: "STRING", Visible: true}
}

// HiddenColumn builds a column that is exported but not shown in previews.
func HiddenColumn(label string) Cell {
	return Cell{Label: label, DataType: "STRING", Visible: false}
}

// UnifiedTable is the canonical tabular representation shared by all
// entity adapters.
type UnifiedTable struct {
	Header []Cell     `json:"header"`
	Rows   [][]string `json:"rows"`
}

// NewUnifiedTable returns an empty table with the given header.
// An empty result set is a header-only table, never a nil one.
func NewUnifiedTable(header []Cell) *UnifiedTable {
	return &UnifiedTable{Header: header, Rows: [][]string{}}
}

// AddRow appends a row. Missing trailing values are padded with empty
// strings, never null. A row longer than the header is rejected.
func (t *UnifiedTable) AddRow(values ...string) error {
	if len(values) > len(t.Header) {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), len(t.Header))
	}
	row := make([]string, len(t.Header))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// Append merges another table's rows into this one.
// The headers must have the same column count.
func (t *UnifiedTable) Append(other *UnifiedTable) error {
	if other == nil {
		return nil
	}
	if len(other.Header) != len(t.Header) {
		return fmt.Errorf("cannot append table with %d columns into %d", len(other.Header), len(t.Header))
	}
	for _, row := range other.Rows {
		if err := t.AddRow(row...); err != nil {
			return err
		}
	}
	return nil
}

// ColumnIndex returns the position of the column with the given label,
// or -1 if the header does not carry it.
func (t *UnifiedTable) ColumnIndex(label string) int {
	for i, c := range t.Header {
		if c.Label == label {
			return i
		}
	}
	return -1
}

// CSV renders the table as RFC4180 bytes: header labels first, then rows.
// Quoting (commas, quotes, newlines) is handled by the writer.
func (t *UnifiedTable) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	labels := make([]string, len(t.Header))
	for i, c := range t.Header {
		labels[i] = c.Label
	}
	if err := w.Write(labels); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
