package tableio

import (
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
)

// ParquetFileReader reads rows back out of a Parquet file, for inspecting
// conversion output and registry downloads.
type ParquetFileReader struct {
	pr *reader.ParquetReader
	fr source.ParquetFile
}

// OpenParquetFile opens a local Parquet file for reading.
func OpenParquetFile(path string) (*ParquetFileReader, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	pr, err := reader.NewParquetReader(fr, nil, 2)
	if err != nil {
		fr.Close()
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}

	return &ParquetFileReader{pr: pr, fr: fr}, nil
}

// NumRows returns the number of rows in the file.
func (r *ParquetFileReader) NumRows() int64 {
	return r.pr.GetNumRows()
}

// ReadRows reads up to n rows as generic maps keyed by column name. n <= 0
// reads everything.
func (r *ParquetFileReader) ReadRows(n int) ([]map[string]any, error) {
	if n <= 0 {
		n = int(r.pr.GetNumRows())
	}
	if n == 0 {
		return []map[string]any{}, nil
	}

	raw, err := r.pr.ReadByNumber(n)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}

	// ReadByNumber yields dynamically generated structs; a JSON round trip
	// turns them into plain maps.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parquet rows: %w", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(encoded, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode parquet rows: %w", err)
	}
	return rows, nil
}

// Close releases the reader and the underlying file.
func (r *ParquetFileReader) Close() error {
	r.pr.ReadStop()
	return r.fr.Close()
}
