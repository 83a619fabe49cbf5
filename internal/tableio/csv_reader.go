// Package tableio reads delimited text tables and writes columnar files.
package tableio

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"dataforge/internal/table"
)

// CSVOptions holds CSV parsing configuration.
type CSVOptions struct {
	Delimiter  rune     // Field delimiter
	HasHeader  bool     // Whether the first row holds column names
	NullValues []string // Tokens to treat as missing
}

// DefaultCSVOptions returns the parsing defaults.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Delimiter:  ',',
		HasHeader:  true,
		NullValues: []string{"", "NULL", "null", "NA", "N/A", "nil", "NaN"},
	}
}

// ReadCSVFile reads a CSV file into a table.
func ReadCSVFile(path string, opts *CSVOptions) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV reads delimited text into a table. Each column's type is inferred
// over the whole column: int64 when every non-missing value parses as an
// integer and none are missing, float64 when every non-missing value parses
// as a number, string otherwise. Integer columns with missing entries widen
// to float64 so the missing entries stay representable.
func ReadCSV(r io.Reader, opts *CSVOptions) (*table.Table, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return table.New()
	}

	var names []string
	if opts.HasHeader {
		names = records[0]
		records = records[1:]
	} else {
		names = make([]string, len(records[0]))
		for i := range names {
			names[i] = fmt.Sprintf("column_%d", i)
		}
	}

	nullSet := make(map[string]struct{}, len(opts.NullValues))
	for _, v := range opts.NullValues {
		nullSet[v] = struct{}{}
	}

	cols := make([]table.Column, 0, len(names))
	for i, name := range names {
		values := make([]string, len(records))
		nulls := make([]bool, len(records))
		hasNull := false
		for row, rec := range records {
			v := strings.TrimSpace(rec[i])
			if _, isNull := nullSet[v]; isNull {
				nulls[row] = true
				hasNull = true
				continue
			}
			values[row] = v
		}
		cols = append(cols, inferColumn(name, values, nulls, hasNull))
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("invalid CSV table: %w", err)
	}
	return t, nil
}

func inferColumn(name string, values []string, nulls []bool, hasNull bool) table.Column {
	if len(values) == 0 {
		return table.NewStringColumn(name, nil, nil)
	}

	isInt, isFloat, sawValue := true, true, false
	for i, v := range values {
		if nulls[i] {
			continue
		}
		sawValue = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt && isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
				break
			}
		}
	}
	if !sawValue {
		// All entries missing: a float column keeps the gaps representable.
		data := make([]float64, len(values))
		for i := range data {
			data[i] = math.NaN()
		}
		return table.NewFloatColumn(name, data, nulls)
	}

	switch {
	case isInt && !hasNull:
		data := make([]int64, len(values))
		for i, v := range values {
			data[i], _ = strconv.ParseInt(v, 10, 64)
		}
		return table.NewIntColumn(name, data, nil)
	case isInt || isFloat:
		data := make([]float64, len(values))
		for i, v := range values {
			if nulls[i] {
				data[i] = math.NaN()
				continue
			}
			data[i], _ = strconv.ParseFloat(v, 64)
		}
		return table.NewFloatColumn(name, data, nulls)
	default:
		if !hasNull {
			nulls = nil
		}
		return table.NewStringColumn(name, values, nulls)
	}
}
