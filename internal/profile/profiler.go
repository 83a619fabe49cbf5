// Package profile computes descriptive statistics over in-memory tables.
package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"dataforge/internal/table"
)

// NumericStats holds the aggregates reported for numeric columns. A nil field
// means the aggregate is undefined for the column (for example every value is
// missing) and serializes as JSON null.
type NumericStats struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Median *float64 `json:"median"`
}

// TextStats holds the aggregates reported for string columns, computed over
// the lengths of the non-missing values.
type TextStats struct {
	MaxLength int     `json:"max_length"`
	AvgLength float64 `json:"avg_length"`
}

// ColumnStats describes one column. At most one of the embedded stat blocks
// is set: NumericStats for numeric columns, TextStats for string columns,
// neither for anything else (categorical columns report only the
// type-agnostic fields).
type ColumnStats struct {
	Name              string  `json:"name"`
	DType             string  `json:"dtype"`
	UniqueValues      int     `json:"unique_values"`
	MissingCount      int     `json:"missing_count"`
	MissingPercentage float64 `json:"missing_percentage"`
	*NumericStats
	*TextStats
}

// TableStats describes a whole table.
type TableStats struct {
	NumRows int           `json:"num_rows"`
	NumCols int           `json:"num_columns"`
	Columns []ColumnStats `json:"columns"`
	// MissingValues maps column name to missing percentage, only for
	// columns with at least one missing entry.
	MissingValues map[string]float64 `json:"missing_values"`
	// MemoryUsageMB is the deep in-memory footprint in megabytes.
	MemoryUsageMB float64 `json:"memory_usage"`
}

// AsMap converts the statistics to the plain nested mapping shape consumed by
// the card builder.
func (s *TableStats) AsMap() (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode table stats: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode table stats: %w", err)
	}
	return m, nil
}

// Analyze computes per-column and whole-table statistics. It never fails:
// zero-row tables and all-missing columns produce zero or absent values
// instead of errors.
func Analyze(t *table.Table) *TableStats {
	stats := &TableStats{
		NumRows:       t.NumRows(),
		NumCols:       t.NumColumns(),
		Columns:       make([]ColumnStats, 0, t.NumColumns()),
		MissingValues: make(map[string]float64),
		MemoryUsageMB: float64(t.MemoryBytes()) / (1024 * 1024),
	}

	for _, col := range t.Columns() {
		cs := ColumnStats{
			Name:         col.Name(),
			DType:        string(col.DType()),
			UniqueValues: col.Unique(),
			MissingCount: col.NullCount(),
		}
		if stats.NumRows > 0 {
			cs.MissingPercentage = float64(cs.MissingCount) / float64(stats.NumRows) * 100
		}

		switch {
		case col.DType().IsNumeric():
			cs.NumericStats = numericStats(col.(table.NumericColumn))
		case col.DType() == table.String:
			cs.TextStats = textStats(col.(table.TextColumn))
		}

		stats.Columns = append(stats.Columns, cs)
		if cs.MissingCount > 0 {
			stats.MissingValues[col.Name()] = cs.MissingPercentage
		}
	}
	return stats
}

func numericStats(c table.NumericColumn) *NumericStats {
	values := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float64At(i); ok {
			values = append(values, v)
		}
	}

	ns := &NumericStats{}
	if len(values) == 0 {
		return ns
	}

	min, max, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(len(values))
	ns.Min = &min
	ns.Max = &max
	ns.Mean = &mean
	ns.Median = ptr(median(values))

	// Sample standard deviation, undefined for fewer than two values.
	if len(values) >= 2 {
		var sq float64
		for _, v := range values {
			sq += (v - mean) * (v - mean)
		}
		ns.Std = ptr(math.Sqrt(sq / float64(len(values)-1)))
	}
	return ns
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func textStats(c table.TextColumn) *TextStats {
	ts := &TextStats{}
	count := 0
	var total int
	for i := 0; i < c.Len(); i++ {
		v, ok := c.StringAt(i)
		if !ok {
			continue
		}
		if len(v) > ts.MaxLength {
			ts.MaxLength = len(v)
		}
		total += len(v)
		count++
	}
	if count > 0 {
		ts.AvgLength = float64(total) / float64(count)
	}
	return ts
}

func ptr(v float64) *float64 { return &v }
