package table

// DType identifies the storage type of a column.
type DType string

const (
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Float32 DType = "float32"
	Float64 DType = "float64"
	String  DType = "string"
	// Category is a dictionary-encoded string column: a finite set of
	// distinct values plus a per-row index into that set.
	Category DType = "category"
)

// IsInteger reports whether the dtype is a signed or unsigned integer type.
func (d DType) IsInteger() bool {
	switch d {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32:
		return true
	}
	return false
}

// IsFloat reports whether the dtype is a floating-point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// IsNumeric reports whether the dtype is integer or floating-point.
func (d DType) IsNumeric() bool {
	return d.IsInteger() || d.IsFloat()
}

// SlotSize returns the fixed per-value storage size in bytes. Variable-length
// payloads (string bytes) are accounted separately by the columns themselves.
func (d DType) SlotSize() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32, Category:
		return 4
	case Int64, Float64:
		return 8
	case String:
		// String header (pointer + length) on 64-bit platforms.
		return 16
	}
	return 0
}
