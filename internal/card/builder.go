// Package card assembles and persists dataset card documents.
package card

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Options holds the caller-declared descriptive metadata for a dataset.
type Options struct {
	DatasetName    string   `validate:"required"`
	Description    string   `validate:"required"`
	TaskCategories []string `validate:"required,min=1,dive,required"`
	Language       string
	License        string
	Version        string `validate:"omitempty,semver"`
}

// Builder accumulates metadata and data statistics and generates the card
// document. Metadata and statistics merge by union, later keys overwriting
// earlier ones.
type Builder struct {
	opts      Options
	metadata  map[string]any
	dataStats map[string]any
	now       func() time.Time
}

var validate = validator.New()

// NewBuilder creates a card builder. Language, license and version default to
// "en", "MIT" and "0.1.0" when left empty.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.License == "" {
		opts.License = "MIT"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid card options: %w", err)
	}
	return &Builder{
		opts:      opts,
		metadata:  make(map[string]any),
		dataStats: make(map[string]any),
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source used for the card's timestamp fields.
// Tests use it to pin the otherwise non-deterministic output.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// AddMetadata merges m into the accumulated metadata.
func (b *Builder) AddMetadata(m map[string]any) {
	for k, v := range m {
		b.metadata[k] = v
	}
}

// AddDataStats merges m into the accumulated data statistics. The expected
// shape is the table profiler's AsMap output, but the builder only reads it
// structurally.
func (b *Builder) AddDataStats(m map[string]any) {
	for k, v := range m {
		b.dataStats[k] = v
	}
}

// Generate builds the card document from the current state. Apart from the
// two timestamp fields it is a pure function of the builder's state.
func (b *Builder) Generate() *Card {
	now := b.now().Format(time.RFC3339Nano)
	return &Card{
		AnnotationsCreators: []string{"no-annotation"},
		LanguageCreators:    []string{"found"},
		Language:            b.opts.Language,
		License:             b.opts.License,
		Multilinguality:     []string{"monolingual"},
		SizeCategories:      append([]string(nil), sizeCategories...),
		SourceDatasets:      []string{"original"},
		TaskCategories:      append([]string(nil), b.opts.TaskCategories...),
		TaskIDs:             []string{},
		PapersWithCodeID:    nil,
		PrettyName:          b.opts.DatasetName,
		Version:             b.opts.Version,
		Configs: []Config{{
			Name: "default",
			DataFiles: map[string]string{
				"train":      "data/train.parquet",
				"validation": "data/validation.parquet",
				"test":       "data/test.parquet",
			},
		}},
		Data: DataSection{
			Description:   b.opts.Description,
			Features:      b.generateFeatures(),
			Splits:        b.generateSplits(),
			MissingValues: map[string]float64{},
			Statistics:    b.dataStats,
		},
		Metadata:     b.metadata,
		DateCreated:  now,
		LastModified: now,
	}
}

// generateFeatures derives the feature map from the "columns" entry of the
// accumulated statistics, when present. Type-agnostic fields are copied
// verbatim; the numeric or text block is copied based on which keys the
// column entry carries.
func (b *Builder) generateFeatures() map[string]map[string]any {
	features := make(map[string]map[string]any)
	columns, ok := b.dataStats["columns"].([]any)
	if !ok {
		return features
	}
	for _, entry := range columns {
		col, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, ok := col["name"].(string)
		if !ok {
			continue
		}
		feature := map[string]any{
			"dtype":              col["dtype"],
			"num_unique_values":  col["unique_values"],
			"missing_count":      col["missing_count"],
			"missing_percentage": col["missing_percentage"],
		}
		if _, numeric := col["min"]; numeric {
			for _, k := range []string{"min", "max", "mean", "std", "median"} {
				feature[k] = col[k]
			}
		} else if _, text := col["max_length"]; text {
			feature["max_length"] = col["max_length"]
			feature["avg_length"] = col["avg_length"]
		}
		features[name] = feature
	}
	return features
}

func (b *Builder) generateSplits() map[string]Split {
	splits := make(map[string]Split, len(splitNames))
	for _, name := range splitNames {
		splits[name] = Split{Name: name, DatasetName: b.opts.DatasetName}
	}
	return splits
}

// Save generates the card and writes it to path as indented UTF-8 JSON with
// non-ASCII characters preserved literally. Missing parent directories are
// created.
func (b *Builder) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create card directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create card file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b.Generate()); err != nil {
		return fmt.Errorf("failed to write card: %w", err)
	}

	log.Printf("Dataset card saved to: %s", path)
	return nil
}
