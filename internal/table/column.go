package table

import "math"

// Integer is the set of element types an integer column can store.
type Integer interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32
}

// Float is the set of element types a float column can store.
type Float interface {
	float32 | float64
}

// Column is one named, typed value sequence of a Table. Exactly one concrete
// column type backs each dtype family, so the storage width declared by
// DType() is the width actually held in memory.
type Column interface {
	Name() string
	DType() DType
	Len() int
	IsNull(i int) bool
	NullCount() int
	// Unique returns the number of distinct non-missing values.
	Unique() int
	// MemoryBytes returns the deep in-memory footprint of the column,
	// including variable-length string payloads and the null mask.
	MemoryBytes() int64
}

// NumericColumn is implemented by integer and float columns.
type NumericColumn interface {
	Column
	// Float64At returns the value at i widened to float64, and false when
	// the entry is missing.
	Float64At(i int) (float64, bool)
}

// IntegerColumn is implemented by integer columns of every width.
type IntegerColumn interface {
	NumericColumn
	Int64At(i int) (int64, bool)
}

// TextColumn is implemented by string and categorical columns.
type TextColumn interface {
	Column
	StringAt(i int) (string, bool)
}

func intDType[T Integer]() DType {
	switch any(T(0)).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	}
	return ""
}

func floatDType[T Float]() DType {
	switch any(T(0)).(type) {
	case float32:
		return Float32
	}
	return Float64
}

func maskBytes(nulls []bool) int64 {
	return int64(len(nulls))
}

func countNulls(nulls []bool) int {
	n := 0
	for _, isNull := range nulls {
		if isNull {
			n++
		}
	}
	return n
}

// IntColumn stores integer values at the width of its element type.
type IntColumn[T Integer] struct {
	name  string
	data  []T
	nulls []bool // nil when the column has no missing entries
}

// NewIntColumn creates an integer column. nulls may be nil; when non-nil it
// must have the same length as data.
func NewIntColumn[T Integer](name string, data []T, nulls []bool) *IntColumn[T] {
	return &IntColumn[T]{name: name, data: data, nulls: nulls}
}

func (c *IntColumn[T]) Name() string { return c.name }
func (c *IntColumn[T]) DType() DType { return intDType[T]() }
func (c *IntColumn[T]) Len() int     { return len(c.data) }

func (c *IntColumn[T]) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

func (c *IntColumn[T]) NullCount() int { return countNulls(c.nulls) }

func (c *IntColumn[T]) Unique() int {
	seen := make(map[T]struct{}, len(c.data))
	for i, v := range c.data {
		if c.IsNull(i) {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

func (c *IntColumn[T]) Float64At(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	return float64(c.data[i]), true
}

func (c *IntColumn[T]) Int64At(i int) (int64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	return int64(c.data[i]), true
}

func (c *IntColumn[T]) MemoryBytes() int64 {
	return int64(len(c.data))*int64(c.DType().SlotSize()) + maskBytes(c.nulls)
}

// FloatColumn stores floating-point values at the width of its element type.
// NaN entries are treated as missing: the constructor folds them into the
// null mask so a NaN can never pass as a real value downstream.
type FloatColumn[T Float] struct {
	name  string
	data  []T
	nulls []bool
}

// NewFloatColumn creates a float column. nulls may be nil; NaN values in data
// are marked missing regardless of the mask passed in.
func NewFloatColumn[T Float](name string, data []T, nulls []bool) *FloatColumn[T] {
	for i, v := range data {
		if math.IsNaN(float64(v)) {
			if nulls == nil {
				nulls = make([]bool, len(data))
			}
			nulls[i] = true
		}
	}
	return &FloatColumn[T]{name: name, data: data, nulls: nulls}
}

func (c *FloatColumn[T]) Name() string { return c.name }
func (c *FloatColumn[T]) DType() DType { return floatDType[T]() }
func (c *FloatColumn[T]) Len() int     { return len(c.data) }

func (c *FloatColumn[T]) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

func (c *FloatColumn[T]) NullCount() int { return countNulls(c.nulls) }

func (c *FloatColumn[T]) Unique() int {
	seen := make(map[T]struct{}, len(c.data))
	for i, v := range c.data {
		if c.IsNull(i) {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

func (c *FloatColumn[T]) Float64At(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	return float64(c.data[i]), true
}

func (c *FloatColumn[T]) MemoryBytes() int64 {
	return int64(len(c.data))*int64(c.DType().SlotSize()) + maskBytes(c.nulls)
}

// StringColumn stores free-text values.
type StringColumn struct {
	name  string
	data  []string
	nulls []bool
}

// NewStringColumn creates a string column. nulls may be nil.
func NewStringColumn(name string, data []string, nulls []bool) *StringColumn {
	return &StringColumn{name: name, data: data, nulls: nulls}
}

func (c *StringColumn) Name() string { return c.name }
func (c *StringColumn) DType() DType { return String }
func (c *StringColumn) Len() int     { return len(c.data) }

func (c *StringColumn) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

func (c *StringColumn) NullCount() int { return countNulls(c.nulls) }

func (c *StringColumn) Unique() int {
	seen := make(map[string]struct{}, len(c.data))
	for i, v := range c.data {
		if c.IsNull(i) {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

func (c *StringColumn) StringAt(i int) (string, bool) {
	if c.IsNull(i) {
		return "", false
	}
	return c.data[i], true
}

func (c *StringColumn) MemoryBytes() int64 {
	total := int64(len(c.data))*int64(String.SlotSize()) + maskBytes(c.nulls)
	for _, s := range c.data {
		total += int64(len(s))
	}
	return total
}

// CategoricalColumn stores a string column in dictionary-encoded form: the
// distinct values once, plus a 32-bit code per row. A code of -1 marks a
// missing entry.
type CategoricalColumn struct {
	name  string
	dict  []string
	codes []int32
}

// NewCategoricalColumn creates a categorical column. Every non-negative code
// must index into dict.
func NewCategoricalColumn(name string, dict []string, codes []int32) *CategoricalColumn {
	return &CategoricalColumn{name: name, dict: dict, codes: codes}
}

func (c *CategoricalColumn) Name() string { return c.name }
func (c *CategoricalColumn) DType() DType { return Category }
func (c *CategoricalColumn) Len() int     { return len(c.codes) }

// Categories returns the dictionary of distinct values.
func (c *CategoricalColumn) Categories() []string { return c.dict }

func (c *CategoricalColumn) IsNull(i int) bool { return c.codes[i] < 0 }

func (c *CategoricalColumn) NullCount() int {
	n := 0
	for _, code := range c.codes {
		if code < 0 {
			n++
		}
	}
	return n
}

func (c *CategoricalColumn) Unique() int { return len(c.dict) }

func (c *CategoricalColumn) StringAt(i int) (string, bool) {
	if c.codes[i] < 0 {
		return "", false
	}
	return c.dict[c.codes[i]], true
}

func (c *CategoricalColumn) MemoryBytes() int64 {
	total := int64(len(c.codes)) * int64(Category.SlotSize())
	for _, s := range c.dict {
		total += int64(String.SlotSize()) + int64(len(s))
	}
	return total
}
