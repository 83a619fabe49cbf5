// Package optimize rewrites table columns to the narrowest storage
// representation that still holds every value.
package optimize

import (
	"fmt"

	"dataforge/internal/table"
)

// Optimizer narrows column storage in place. It keeps a snapshot of the
// per-column dtypes seen before the last rewrite so callers can inspect what
// the optimization changed.
type Optimizer struct {
	originalTypes map[string]table.DType
}

// New creates an Optimizer.
func New() *Optimizer {
	return &Optimizer{}
}

// OriginalTypes returns the dtype of every column as it was before the most
// recent Optimize call, keyed by column name. Nil until Optimize has run.
func (o *Optimizer) OriginalTypes() map[string]table.DType {
	return o.originalTypes
}

// Optimize rewrites each column of t to its narrowest safe representation and
// returns t. Integer columns shrink to the smallest width containing their
// range. Float64 columns are downcast to float32 unconditionally; this is an
// intentional, accepted precision loss. String columns become dictionary
// encoded when fewer than half of the rows hold distinct values. Empty and
// all-missing numeric columns are left unmodified.
func (o *Optimizer) Optimize(t *table.Table) (*table.Table, error) {
	o.originalTypes = make(map[string]table.DType, t.NumColumns())
	for _, col := range t.Columns() {
		o.originalTypes[col.Name()] = col.DType()
	}

	for _, col := range t.Columns() {
		var replacement table.Column
		switch {
		case col.DType().IsInteger():
			replacement = narrowInteger(col.(table.IntegerColumn))
		case col.DType() == table.Float64:
			replacement = downcastFloat(col.(table.NumericColumn))
		case col.DType() == table.String:
			replacement = encodeCategorical(col.(*table.StringColumn))
		}
		if replacement == nil {
			continue
		}
		if err := t.ReplaceColumn(replacement); err != nil {
			return nil, fmt.Errorf("failed to replace column %q: %w", col.Name(), err)
		}
	}
	return t, nil
}

// narrowInteger picks the smallest integer width whose range contains the
// column's min and max. Columns whose range exceeds every 32-bit threshold
// keep their original width. Returns nil when no rewrite applies.
func narrowInteger(c table.IntegerColumn) table.Column {
	min, max, ok := intRange(c)
	if !ok {
		// Min/max of an empty or all-missing column is undefined.
		return nil
	}

	var target table.DType
	if min >= 0 {
		switch {
		case max < 255:
			target = table.Uint8
		case max < 65535:
			target = table.Uint16
		case max < 4294967295:
			target = table.Uint32
		}
	} else {
		switch {
		case min > -128 && max < 127:
			target = table.Int8
		case min > -32768 && max < 32767:
			target = table.Int16
		case min > -2147483648 && max < 2147483647:
			target = table.Int32
		}
	}

	if target == "" || target == c.DType() {
		return nil
	}

	switch target {
	case table.Uint8:
		return rebuildInt[uint8](c)
	case table.Uint16:
		return rebuildInt[uint16](c)
	case table.Uint32:
		return rebuildInt[uint32](c)
	case table.Int8:
		return rebuildInt[int8](c)
	case table.Int16:
		return rebuildInt[int16](c)
	default:
		return rebuildInt[int32](c)
	}
}

func intRange(c table.IntegerColumn) (min, max int64, ok bool) {
	for i := 0; i < c.Len(); i++ {
		v, present := c.Int64At(i)
		if !present {
			continue
		}
		if !ok {
			min, max, ok = v, v, true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

func rebuildInt[T table.Integer](c table.IntegerColumn) table.Column {
	n := c.Len()
	data := make([]T, n)
	var nulls []bool
	for i := 0; i < n; i++ {
		v, present := c.Int64At(i)
		if !present {
			if nulls == nil {
				nulls = make([]bool, n)
			}
			nulls[i] = true
			continue
		}
		data[i] = T(v)
	}
	return table.NewIntColumn(c.Name(), data, nulls)
}

func downcastFloat(c table.NumericColumn) table.Column {
	n := c.Len()
	data := make([]float32, n)
	var nulls []bool
	for i := 0; i < n; i++ {
		v, present := c.Float64At(i)
		if !present {
			if nulls == nil {
				nulls = make([]bool, n)
			}
			nulls[i] = true
			continue
		}
		data[i] = float32(v)
	}
	return table.NewFloatColumn(c.Name(), data, nulls)
}

// encodeCategorical converts a string column to dictionary encoding when the
// ratio of distinct values to rows is strictly below 0.5. Missing entries
// count in the denominator but not among the distinct values.
func encodeCategorical(c *table.StringColumn) table.Column {
	n := c.Len()
	if n == 0 {
		return nil
	}
	if float64(c.Unique())/float64(n) >= 0.5 {
		return nil
	}

	index := make(map[string]int32)
	var dict []string
	codes := make([]int32, n)
	for i := 0; i < n; i++ {
		v, present := c.StringAt(i)
		if !present {
			codes[i] = -1
			continue
		}
		code, seen := index[v]
		if !seen {
			code = int32(len(dict))
			dict = append(dict, v)
			index[v] = code
		}
		codes[i] = code
	}
	return table.NewCategoricalColumn(c.Name(), dict, codes)
}
