package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"dataforge/internal/registry"
)

type Config struct {
	Registry registry.Config `mapstructure:"registry"`
	Convert  ConvertConfig   `mapstructure:"convert"`
	Logging  LoggingConfig   `mapstructure:"logging"`
}

type ConvertConfig struct {
	Optimize    bool     `mapstructure:"optimize"`
	Compression string   `mapstructure:"compression"`
	Delimiter   string   `mapstructure:"delimiter"`
	HasHeader   bool     `mapstructure:"has_header"`
	NullValues  []string `mapstructure:"null_values"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvPrefix("DATAFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// The registry token keeps its dedicated variable name.
	viper.BindEnv("registry.token", registry.TokenEnv)

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults and environment
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Registry defaults
	viper.SetDefault("registry.backend", "minio")
	viper.SetDefault("registry.endpoint", "localhost:9000")
	viper.SetDefault("registry.bucket", "datasets")
	viper.SetDefault("registry.region", "us-east-1")
	viper.SetDefault("registry.secure", false)
	viper.SetDefault("registry.rate_limit", 16)
	viper.SetDefault("registry.burst", 4)

	// Conversion defaults
	viper.SetDefault("convert.optimize", true)
	viper.SetDefault("convert.compression", "snappy")
	viper.SetDefault("convert.delimiter", ",")
	viper.SetDefault("convert.has_header", true)
	viper.SetDefault("convert.null_values", []string{"", "NULL", "null", "NA", "N/A", "nil", "NaN"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// CSVDelimiter returns the configured delimiter as a rune, defaulting to a
// comma when unset or multi-character.
func (c *ConvertConfig) CSVDelimiter() rune {
	if len(c.Delimiter) != 1 {
		return ','
	}
	return rune(c.Delimiter[0])
}
