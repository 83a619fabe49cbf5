package optimize

import (
	"math"
	"testing"

	"dataforge/internal/table"
)

func mustTable(t *testing.T, cols ...table.Column) *table.Table {
	t.Helper()
	tbl, err := table.New(cols...)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}
	return tbl
}

func TestOptimizeIntegerNarrowing(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   table.DType
	}{
		{"small unsigned", []int64{0, 1, 2, 254}, table.Uint8},
		{"unsigned at 255 boundary", []int64{0, 255}, table.Uint16},
		{"medium unsigned", []int64{0, 1, 2, 300}, table.Uint16},
		{"large unsigned", []int64{0, 70000}, table.Uint32},
		{"beyond all thresholds", []int64{0, 4294967295}, table.Int64},
		{"small signed", []int64{-1, 100}, table.Int8},
		{"signed at -128 boundary", []int64{-128, 0}, table.Int16},
		{"medium signed", []int64{-1000, 1000}, table.Int16},
		{"large signed", []int64{-1, 2147483647}, table.Int64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := mustTable(t, table.NewIntColumn("v", tt.values, nil))
			if _, err := New().Optimize(tbl); err != nil {
				t.Fatalf("Optimize failed: %v", err)
			}

			col, _ := tbl.Column("v")
			if col.DType() != tt.want {
				t.Errorf("Expected dtype %s, got %s", tt.want, col.DType())
			}

			// Values must be unchanged under re-widening.
			ic := col.(table.IntegerColumn)
			for i, want := range tt.values {
				got, ok := ic.Int64At(i)
				if !ok || got != want {
					t.Errorf("Row %d: expected %d, got %d (present=%v)", i, want, got, ok)
				}
			}
		})
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	tbl := mustTable(t,
		table.NewIntColumn("id", []int64{0, 1, 2, 300}, nil),
		table.NewFloatColumn("score", []float64{1.5, 2.25, math.NaN(), 4.0}, nil),
		table.NewStringColumn("tag", []string{"a", "a", "a", "b"}, nil),
	)

	opt := New()
	if _, err := opt.Optimize(tbl); err != nil {
		t.Fatalf("First optimize failed: %v", err)
	}
	first := make(map[string]table.DType)
	for _, col := range tbl.Columns() {
		first[col.Name()] = col.DType()
	}

	if _, err := opt.Optimize(tbl); err != nil {
		t.Fatalf("Second optimize failed: %v", err)
	}
	for _, col := range tbl.Columns() {
		if col.DType() != first[col.Name()] {
			t.Errorf("Column %q changed dtype on second pass: %s -> %s", col.Name(), first[col.Name()], col.DType())
		}
	}
}

func TestOptimizeScenario(t *testing.T) {
	tbl := mustTable(t,
		table.NewIntColumn("id", []int64{0, 1, 2, 300}, nil),
		table.NewFloatColumn("score", []float64{1.5, 2.25, math.NaN(), 4.0}, nil),
		table.NewStringColumn("label", []string{"a", "a", "b", "a"}, nil),
	)

	opt := New()
	if _, err := opt.Optimize(tbl); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	id, _ := tbl.Column("id")
	if id.DType() != table.Uint16 {
		t.Errorf("Expected id to be uint16, got %s", id.DType())
	}

	score, _ := tbl.Column("score")
	if score.DType() != table.Float32 {
		t.Errorf("Expected score to be float32, got %s", score.DType())
	}
	if score.NullCount() != 1 {
		t.Errorf("Expected one missing score entry, got %d", score.NullCount())
	}

	// 2 distinct values over 4 rows is exactly 0.5: the strict inequality
	// keeps the column as free text.
	label, _ := tbl.Column("label")
	if label.DType() != table.String {
		t.Errorf("Expected label to stay string at the 0.5 boundary, got %s", label.DType())
	}

	want := map[string]table.DType{"id": table.Int64, "score": table.Float64, "label": table.String}
	for name, dtype := range want {
		if got := opt.OriginalTypes()[name]; got != dtype {
			t.Errorf("Expected original dtype of %q to be %s, got %s", name, dtype, got)
		}
	}
}

func TestOptimizeCategoricalEncoding(t *testing.T) {
	tbl := mustTable(t, table.NewStringColumn("tag", []string{"a", "a", "a", "a", "b"}, nil))
	if _, err := New().Optimize(tbl); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	col, _ := tbl.Column("tag")
	cat, ok := col.(*table.CategoricalColumn)
	if !ok {
		t.Fatalf("Expected categorical column, got %s", col.DType())
	}
	if cat.Unique() != 2 {
		t.Errorf("Expected 2 categories, got %d", cat.Unique())
	}
	for i, want := range []string{"a", "a", "a", "a", "b"} {
		got, present := cat.StringAt(i)
		if !present || got != want {
			t.Errorf("Row %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestOptimizeCategoricalPreservesMissing(t *testing.T) {
	nulls := []bool{false, true, false, false, false, false}
	tbl := mustTable(t, table.NewStringColumn("tag", []string{"a", "", "a", "a", "a", "b"}, nulls))
	if _, err := New().Optimize(tbl); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	col, _ := tbl.Column("tag")
	if col.DType() != table.Category {
		t.Fatalf("Expected categorical column, got %s", col.DType())
	}
	if !col.IsNull(1) {
		t.Error("Expected row 1 to stay missing after encoding")
	}
	if col.NullCount() != 1 {
		t.Errorf("Expected 1 missing entry, got %d", col.NullCount())
	}
}

func TestOptimizeEmptyAndAllMissingColumns(t *testing.T) {
	allMissing := table.NewIntColumn("m", []int64{0, 0, 0}, []bool{true, true, true})
	empty := table.NewIntColumn("e", []int64{}, nil)

	tbl := mustTable(t, allMissing)
	if _, err := New().Optimize(tbl); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	col, _ := tbl.Column("m")
	if col.DType() != table.Int64 {
		t.Errorf("Expected all-missing column to keep int64, got %s", col.DType())
	}

	tbl = mustTable(t, empty)
	if _, err := New().Optimize(tbl); err != nil {
		t.Fatalf("Optimize of empty column failed: %v", err)
	}
	col, _ = tbl.Column("e")
	if col.DType() != table.Int64 {
		t.Errorf("Expected empty column to keep int64, got %s", col.DType())
	}
}

func TestOptimizeFloatDowncastPrecision(t *testing.T) {
	values := []float64{1.5, 2.25, 3.75}
	tbl := mustTable(t, table.NewFloatColumn("f", values, nil))
	if _, err := New().Optimize(tbl); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	col, _ := tbl.Column("f")
	nc := col.(table.NumericColumn)
	for i, want := range values {
		// These values are exactly representable in float32.
		got, ok := nc.Float64At(i)
		if !ok || got != want {
			t.Errorf("Row %d: expected %v, got %v", i, want, got)
		}
	}
}
