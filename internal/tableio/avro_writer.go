package tableio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"

	"dataforge/internal/table"
)

// WriteAvroFile writes the table to path as an Avro object container file,
// an alternate output format for registries that do not ingest Parquet.
// Integer columns are written as long, float columns as double and text
// columns as string, all wrapped in nullable unions. compression is "snappy",
// "deflate" or "null".
func WriteAvroFile(t *table.Table, path string, compression string) error {
	if compression == "" {
		compression = goavro.CompressionSnappyLabel
	}

	schema, err := avroSchema(t)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create avro file: %w", err)
	}
	defer f.Close()

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               f,
		Schema:          schema,
		CompressionName: compression,
	})
	if err != nil {
		return fmt.Errorf("failed to create avro writer: %w", err)
	}

	rows := make([]any, 0, t.NumRows())
	for row := 0; row < t.NumRows(); row++ {
		rows = append(rows, avroRow(t, row))
	}
	if err := ocf.Append(rows); err != nil {
		return fmt.Errorf("failed to write avro rows: %w", err)
	}
	return nil
}

func avroSchema(t *table.Table) (string, error) {
	type field struct {
		Name    string `json:"name"`
		Type    []any  `json:"type"`
		Default any    `json:"default"`
	}
	fields := make([]field, 0, t.NumColumns())
	for _, col := range t.Columns() {
		var avroType string
		switch {
		case col.DType().IsInteger():
			avroType = "long"
		case col.DType().IsFloat():
			avroType = "double"
		case col.DType() == table.String || col.DType() == table.Category:
			avroType = "string"
		default:
			return "", fmt.Errorf("column %q: unsupported dtype %q", col.Name(), col.DType())
		}
		fields = append(fields, field{Name: col.Name(), Type: []any{"null", avroType}, Default: nil})
	}

	raw, err := json.Marshal(map[string]any{
		"type":   "record",
		"name":   "Row",
		"fields": fields,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode avro schema: %w", err)
	}
	return string(raw), nil
}

// avroRow builds the goavro native form of one row: nil for missing entries,
// a single-key union map otherwise.
func avroRow(t *table.Table, row int) map[string]any {
	values := make(map[string]any, t.NumColumns())
	for _, col := range t.Columns() {
		var native any
		switch c := col.(type) {
		case table.IntegerColumn:
			if v, ok := c.Int64At(row); ok {
				native = map[string]any{"long": v}
			}
		case table.NumericColumn:
			if v, ok := c.Float64At(row); ok {
				native = map[string]any{"double": v}
			}
		case table.TextColumn:
			if v, ok := c.StringAt(row); ok {
				native = map[string]any{"string": v}
			}
		}
		values[col.Name()] = native
	}
	return values
}
