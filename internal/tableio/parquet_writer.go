package tableio

import (
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"dataforge/internal/table"
)

// ParquetOptions holds Parquet writing configuration.
type ParquetOptions struct {
	Compression  string // snappy, gzip or none
	RowGroupSize int64  // bytes per row group
}

// DefaultParquetOptions returns the writing defaults.
func DefaultParquetOptions() *ParquetOptions {
	return &ParquetOptions{
		Compression:  "snappy",
		RowGroupSize: 128 * 1024 * 1024,
	}
}

// WriteParquetFile writes the table to path in Parquet format, preserving row
// order. Column widths map to the matching Parquet converted types and
// categorical columns are written with dictionary encoding, so the schema
// reflects whatever narrowing the optimizer performed.
func WriteParquetFile(t *table.Table, path string, opts *ParquetOptions) error {
	if opts == nil {
		opts = DefaultParquetOptions()
	}

	codec, err := compressionCodec(opts.Compression)
	if err != nil {
		return err
	}

	schema, err := parquetSchema(t)
	if err != nil {
		return err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewJSONWriter(schema, fw, 2)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.RowGroupSize = opts.RowGroupSize
	pw.CompressionType = codec

	for row := 0; row < t.NumRows(); row++ {
		line, err := json.Marshal(rowValues(t, row))
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", row, err)
		}
		if err := pw.Write(string(line)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch name {
	case "", "snappy":
		return parquet.CompressionCodec_SNAPPY, nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, nil
	case "none":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, fmt.Errorf("unsupported parquet compression %q", name)
}

type schemaNode struct {
	Tag    string       `json:"Tag"`
	Fields []schemaNode `json:"Fields,omitempty"`
}

// parquetSchema builds the JSON schema string for the table. All columns are
// OPTIONAL so missing entries round-trip as nulls.
func parquetSchema(t *table.Table) (string, error) {
	root := schemaNode{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, col := range t.Columns() {
		typeTag, err := parquetType(col.DType())
		if err != nil {
			return "", fmt.Errorf("column %q: %w", col.Name(), err)
		}
		root.Fields = append(root.Fields, schemaNode{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", col.Name(), typeTag),
		})
	}
	raw, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("failed to encode parquet schema: %w", err)
	}
	return string(raw), nil
}

func parquetType(d table.DType) (string, error) {
	switch d {
	case table.Int8:
		return "type=INT32, convertedtype=INT_8", nil
	case table.Int16:
		return "type=INT32, convertedtype=INT_16", nil
	case table.Int32:
		return "type=INT32", nil
	case table.Int64:
		return "type=INT64", nil
	case table.Uint8:
		return "type=INT32, convertedtype=UINT_8", nil
	case table.Uint16:
		return "type=INT32, convertedtype=UINT_16", nil
	case table.Uint32:
		return "type=INT32, convertedtype=UINT_32", nil
	case table.Float32:
		return "type=FLOAT", nil
	case table.Float64:
		return "type=DOUBLE", nil
	case table.String:
		return "type=BYTE_ARRAY, convertedtype=UTF8", nil
	case table.Category:
		return "type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY", nil
	}
	return "", fmt.Errorf("unsupported dtype %q", d)
}

// rowValues collects row values keyed by column name, omitting missing
// entries so they serialize as parquet nulls.
func rowValues(t *table.Table, row int) map[string]any {
	values := make(map[string]any, t.NumColumns())
	for _, col := range t.Columns() {
		switch c := col.(type) {
		case table.IntegerColumn:
			if v, ok := c.Int64At(row); ok {
				values[col.Name()] = v
			}
		case table.NumericColumn:
			if v, ok := c.Float64At(row); ok {
				values[col.Name()] = v
			}
		case table.TextColumn:
			if v, ok := c.StringAt(row); ok {
				values[col.Name()] = v
			}
		}
	}
	return values
}
