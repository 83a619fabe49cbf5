package config

import (
	"testing"

	"dataforge/internal/registry"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Registry.Backend != "minio" {
		t.Errorf("Expected default backend minio, got %s", cfg.Registry.Backend)
	}
	if cfg.Registry.Bucket != "datasets" {
		t.Errorf("Expected default bucket datasets, got %s", cfg.Registry.Bucket)
	}
	if !cfg.Convert.Optimize {
		t.Error("Expected optimization enabled by default")
	}
	if cfg.Convert.Compression != "snappy" {
		t.Errorf("Expected snappy compression, got %s", cfg.Convert.Compression)
	}
	if len(cfg.Convert.NullValues) == 0 {
		t.Error("Expected default null value tokens")
	}
}

func TestTokenComesFromEnvironment(t *testing.T) {
	t.Setenv(registry.TokenEnv, "ak:sk")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Registry.Token != "ak:sk" {
		t.Errorf("Expected token from %s, got %q", registry.TokenEnv, cfg.Registry.Token)
	}
}

func TestCSVDelimiter(t *testing.T) {
	c := ConvertConfig{Delimiter: ";"}
	if c.CSVDelimiter() != ';' {
		t.Errorf("Expected ';', got %q", c.CSVDelimiter())
	}
	c.Delimiter = ""
	if c.CSVDelimiter() != ',' {
		t.Errorf("Expected comma fallback, got %q", c.CSVDelimiter())
	}
}
