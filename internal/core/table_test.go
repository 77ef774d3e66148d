package core

import (
	"strings"
	"testing"
)

func testHeader() []Cell {
	return []Cell{
		HiddenColumn("Record id"),
		Column("Barcode"),
		Column("Status"),
	}
}

func TestAddRow_PadsTrailingColumns(t *testing.T) {
	tbl := NewUnifiedTable(testHeader())

	if err := tbl.AddRow("id-1", "b-1"); err != nil {
		t.Fatalf("AddRow() error = %v", err)
	}

	if len(tbl.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(tbl.Rows))
	}
	if got := len(tbl.Rows[0]); got != 3 {
		t.Errorf("row width = %d, want 3", got)
	}
	if tbl.Rows[0][2] != "" {
		t.Errorf("padded cell = %q, want empty", tbl.Rows[0][2])
	}
}

func TestAddRow_RejectsOverlongRow(t *testing.T) {
	tbl := NewUnifiedTable(testHeader())

	if err := tbl.AddRow("a", "b", "c", "d"); err == nil {
		t.Error("AddRow() with 4 values against 3 columns: want error, got nil")
	}
}

func TestAppend_ColumnMismatch(t *testing.T) {
	dst := NewUnifiedTable(testHeader())
	src := NewUnifiedTable([]Cell{Column("Only")})
	src.AddRow("x")

	if err := dst.Append(src); err == nil {
		t.Error("Append() with mismatched widths: want error, got nil")
	}
}

func TestColumnIndex(t *testing.T) {
	tbl := NewUnifiedTable(testHeader())

	if got := tbl.ColumnIndex("Status"); got != 2 {
		t.Errorf("ColumnIndex(Status) = %d, want 2", got)
	}
	if got := tbl.ColumnIndex("Missing"); got != -1 {
		t.Errorf("ColumnIndex(Missing) = %d, want -1", got)
	}
}

func TestCSV_IncludesHeaderAndRows(t *testing.T) {
	tbl := NewUnifiedTable(testHeader())
	tbl.AddRow("id-1", "b-1", "Available")
	tbl.AddRow("id-2", "b-2", "Missing")

	data, err := tbl.CSV()
	if err != nil {
		t.Fatalf("CSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV line count = %d, want 3", len(lines))
	}
	if lines[0] != "Record id,Barcode,Status" {
		t.Errorf("header line = %q", lines[0])
	}
	if lines[2] != "id-2,b-2,Missing" {
		t.Errorf("last row = %q", lines[2])
	}
}
