package tableio

import (
	"math"
	"strings"
	"testing"

	"dataforge/internal/table"
)

func TestParquetSchemaMapping(t *testing.T) {
	tbl, err := table.New(
		table.NewIntColumn("id", []uint16{0, 1, 2, 300}, nil),
		table.NewFloatColumn("score", []float32{1.5, 2.25, float32(math.NaN()), 4.0}, nil),
		table.NewStringColumn("label", []string{"a", "a", "b", "a"}, nil),
		table.NewCategoricalColumn("tag", []string{"x"}, []int32{0, 0, 0, 0}),
	)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}

	schema, err := parquetSchema(tbl)
	if err != nil {
		t.Fatalf("parquetSchema failed: %v", err)
	}

	for _, want := range []string{
		"name=id, type=INT32, convertedtype=UINT_16, repetitiontype=OPTIONAL",
		"name=score, type=FLOAT, repetitiontype=OPTIONAL",
		"name=label, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL",
		"name=tag, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY, repetitiontype=OPTIONAL",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("Schema missing %q:\n%s", want, schema)
		}
	}
}

func TestRowValuesOmitsMissing(t *testing.T) {
	tbl, err := table.New(
		table.NewIntColumn("id", []int64{1, 2}, nil),
		table.NewFloatColumn("score", []float64{1.5, math.NaN()}, nil),
		table.NewStringColumn("label", []string{"a", ""}, []bool{false, true}),
	)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}

	row := rowValues(tbl, 0)
	if row["id"] != int64(1) || row["score"] != 1.5 || row["label"] != "a" {
		t.Errorf("Unexpected first row: %v", row)
	}

	row = rowValues(tbl, 1)
	if _, ok := row["score"]; ok {
		t.Error("Missing score must be omitted from the row")
	}
	if _, ok := row["label"]; ok {
		t.Error("Missing label must be omitted from the row")
	}
	if row["id"] != int64(2) {
		t.Errorf("Unexpected id in second row: %v", row["id"])
	}
}

func TestCompressionCodecNames(t *testing.T) {
	if _, err := compressionCodec("snappy"); err != nil {
		t.Errorf("snappy must be supported: %v", err)
	}
	if _, err := compressionCodec(""); err != nil {
		t.Errorf("empty codec must default: %v", err)
	}
	if _, err := compressionCodec("zstd-unknown"); err == nil {
		t.Error("Expected error for unsupported codec")
	}
}

func TestAvroSchemaMapping(t *testing.T) {
	tbl, err := table.New(
		table.NewIntColumn("id", []uint8{1}, nil),
		table.NewFloatColumn("score", []float32{1.5}, nil),
		table.NewCategoricalColumn("tag", []string{"x"}, []int32{0}),
	)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}

	schema, err := avroSchema(tbl)
	if err != nil {
		t.Fatalf("avroSchema failed: %v", err)
	}
	for _, want := range []string{`"long"`, `"double"`, `"string"`, `"null"`} {
		if !strings.Contains(schema, want) {
			t.Errorf("Avro schema missing %s:\n%s", want, schema)
		}
	}
}
