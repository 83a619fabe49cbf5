package table

import (
	"math"
	"testing"
)

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New(
		NewIntColumn("a", []int64{1}, nil),
		NewStringColumn("a", []string{"x"}, nil),
	)
	if err == nil {
		t.Error("Expected error for duplicate column names")
	}
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New(
		NewIntColumn("a", []int64{1, 2}, nil),
		NewStringColumn("b", []string{"x"}, nil),
	)
	if err == nil {
		t.Error("Expected error for mismatched column lengths")
	}
}

func TestReplaceColumnKeepsOrder(t *testing.T) {
	tbl, err := New(
		NewIntColumn("a", []int64{1, 2}, nil),
		NewIntColumn("b", []int64{3, 4}, nil),
	)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}

	if err := tbl.ReplaceColumn(NewIntColumn("a", []uint8{1, 2}, nil)); err != nil {
		t.Fatalf("ReplaceColumn failed: %v", err)
	}

	names := tbl.Names()
	if names[0] != "a" || names[1] != "b" {
		t.Errorf("Column order changed: %v", names)
	}
	col, _ := tbl.Column("a")
	if col.DType() != Uint8 {
		t.Errorf("Expected replaced column to be uint8, got %s", col.DType())
	}

	if err := tbl.ReplaceColumn(NewIntColumn("a", []uint8{1}, nil)); err == nil {
		t.Error("Expected error when replacement changes the row count")
	}
	if err := tbl.ReplaceColumn(NewIntColumn("missing", []int64{1, 2}, nil)); err == nil {
		t.Error("Expected error when replacing an unknown column")
	}
}

func TestMemoryBytesReflectsWidth(t *testing.T) {
	wide, err := New(NewIntColumn("v", []int64{1, 2, 3, 4}, nil))
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}
	narrow, err := New(NewIntColumn("v", []uint8{1, 2, 3, 4}, nil))
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}

	if wide.MemoryBytes() != 32 {
		t.Errorf("Expected 32 bytes for 4 int64 values, got %d", wide.MemoryBytes())
	}
	if narrow.MemoryBytes() != 4 {
		t.Errorf("Expected 4 bytes for 4 uint8 values, got %d", narrow.MemoryBytes())
	}
}

func TestStringColumnDeepAccounting(t *testing.T) {
	col := NewStringColumn("s", []string{"ab", "cdef"}, nil)
	// Two headers plus six payload bytes.
	want := int64(2*16 + 6)
	if col.MemoryBytes() != want {
		t.Errorf("Expected %d bytes, got %d", want, col.MemoryBytes())
	}
}

func TestFloatColumnFoldsNaNIntoMask(t *testing.T) {
	col := NewFloatColumn("f", []float64{1, math.NaN(), 3}, nil)
	if !col.IsNull(1) {
		t.Error("NaN entry must be reported as missing")
	}
	if col.NullCount() != 1 {
		t.Errorf("Expected 1 missing entry, got %d", col.NullCount())
	}
	if col.Unique() != 2 {
		t.Errorf("Expected 2 unique values, got %d", col.Unique())
	}
}

func TestCategoricalColumnAccessors(t *testing.T) {
	col := NewCategoricalColumn("c", []string{"x", "y"}, []int32{0, 1, -1, 0})
	if col.Len() != 4 || col.Unique() != 2 || col.NullCount() != 1 {
		t.Errorf("Unexpected shape: len=%d unique=%d nulls=%d", col.Len(), col.Unique(), col.NullCount())
	}
	if v, ok := col.StringAt(1); !ok || v != "y" {
		t.Errorf("Expected y at row 1, got %q (present=%v)", v, ok)
	}
	if _, ok := col.StringAt(2); ok {
		t.Error("Expected row 2 to be missing")
	}
}

func TestEmptyTableNumRows(t *testing.T) {
	tbl, err := New()
	if err != nil {
		t.Fatalf("Failed to build empty table: %v", err)
	}
	if tbl.NumRows() != 0 || tbl.NumColumns() != 0 {
		t.Errorf("Expected empty table, got %dx%d", tbl.NumRows(), tbl.NumColumns())
	}
}
