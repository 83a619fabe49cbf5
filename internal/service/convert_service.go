// Package service wires the conversion pipeline and registry publication.
package service

import (
	"fmt"
	"log"
	"os"
	"strings"

	"dataforge/internal/config"
	"dataforge/internal/optimize"
	"dataforge/internal/profile"
	"dataforge/internal/table"
	"dataforge/internal/tableio"
)

// ConvertService turns delimited text tables into optimized columnar files.
type ConvertService struct {
	cfg       config.ConvertConfig
	optimizer *optimize.Optimizer
}

// NewConvertService creates a ConvertService.
func NewConvertService(cfg config.ConvertConfig) *ConvertService {
	return &ConvertService{cfg: cfg, optimizer: optimize.New()}
}

// ConvertResult reports what a conversion produced.
type ConvertResult struct {
	OutputPath string
	Stats      *profile.TableStats
	// OriginalTypes is the pre-optimization dtype of each column; nil when
	// optimization was disabled.
	OriginalTypes map[string]table.DType
	InputBytes    int64
	OutputBytes   int64
}

// Convert reads the CSV at inputPath, optionally optimizes column types, and
// writes the table to outputPath in the given format ("parquet" or "avro").
// An empty outputPath derives one from the input path and format.
func (s *ConvertService) Convert(inputPath, outputPath, format string) (*ConvertResult, error) {
	if format == "" {
		format = "parquet"
	}
	if outputPath == "" {
		outputPath = replaceExt(inputPath, "."+format)
	}

	log.Printf("Reading CSV file: %s", inputPath)
	t, err := tableio.ReadCSVFile(inputPath, &tableio.CSVOptions{
		Delimiter:  s.cfg.CSVDelimiter(),
		HasHeader:  s.cfg.HasHeader,
		NullValues: s.cfg.NullValues,
	})
	if err != nil {
		return nil, err
	}

	result := &ConvertResult{OutputPath: outputPath}
	if s.cfg.Optimize {
		log.Printf("Optimizing data types...")
		if _, err := s.optimizer.Optimize(t); err != nil {
			return nil, err
		}
		result.OriginalTypes = s.optimizer.OriginalTypes()
	}

	log.Printf("Writing to %s: %s", format, outputPath)
	switch format {
	case "parquet":
		err = tableio.WriteParquetFile(t, outputPath, &tableio.ParquetOptions{
			Compression:  s.cfg.Compression,
			RowGroupSize: tableio.DefaultParquetOptions().RowGroupSize,
		})
	case "avro":
		err = tableio.WriteAvroFile(t, outputPath, avroCompression(s.cfg.Compression))
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, err
	}

	result.Stats = profile.Analyze(t)
	s.logSizes(inputPath, outputPath, result)
	return result, nil
}

// Analyze reads the CSV at inputPath and profiles it without converting.
func (s *ConvertService) Analyze(inputPath string) (*profile.TableStats, error) {
	t, err := tableio.ReadCSVFile(inputPath, &tableio.CSVOptions{
		Delimiter:  s.cfg.CSVDelimiter(),
		HasHeader:  s.cfg.HasHeader,
		NullValues: s.cfg.NullValues,
	})
	if err != nil {
		return nil, err
	}
	return profile.Analyze(t), nil
}

func (s *ConvertService) logSizes(inputPath, outputPath string, result *ConvertResult) {
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return
	}
	outputInfo, err := os.Stat(outputPath)
	if err != nil {
		return
	}
	result.InputBytes = inputInfo.Size()
	result.OutputBytes = outputInfo.Size()

	ratio := 0.0
	if result.InputBytes > 0 {
		ratio = (1 - float64(result.OutputBytes)/float64(result.InputBytes)) * 100
	}
	log.Printf("File size comparison:")
	log.Printf("Input file size: %.2f MB", float64(result.InputBytes)/1024/1024)
	log.Printf("Output file size: %.2f MB", float64(result.OutputBytes)/1024/1024)
	log.Printf("Compression ratio: %.2f%%", ratio)
}

func avroCompression(name string) string {
	switch name {
	case "none":
		return "null"
	case "gzip":
		return "deflate"
	default:
		return "snappy"
	}
}

func replaceExt(path, ext string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndexByte(path, '/') {
		return path[:i] + ext
	}
	return path + ext
}
