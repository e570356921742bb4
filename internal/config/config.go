// Package config loads the application configuration from a YAML file,
// falling back to built-in defaults for anything the file leaves out.
package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Planner   PlannerConfig   `yaml:"planner"`
	Session   SessionConfig   `yaml:"session"`
	Insight   InsightConfig   `yaml:"insight"`
	Source    SourceConfig    `yaml:"source"`
	Filestore FilestoreConfig `yaml:"filestore"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxUploadBytes bounds the size of an uploaded CSV file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Pretty switches to human-readable console output.
	Pretty bool `yaml:"pretty"`
}

// AnalyzerConfig holds schema analysis settings.
type AnalyzerConfig struct {
	// SampleSize is how many rows are profiled per file.
	SampleSize int `yaml:"sample_size"`
}

// PlannerConfig holds query planning settings.
type PlannerConfig struct {
	// DefaultTopN is the result limit used by frequency questions that
	// name no explicit count.
	DefaultTopN int `yaml:"default_top_n"`

	// ShortQuestionWords is the word count at or under which a question
	// is treated as a schema question.
	ShortQuestionWords int `yaml:"short_question_words"`
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// InsightConfig holds AI insight settings.
type InsightConfig struct {
	// Enabled turns AI-generated insights on. When off, answers carry
	// only the rule-based narratives.
	Enabled bool `yaml:"enabled"`

	// APIKey authenticates against the insight API. The FINSIGHT_INSIGHT_API_KEY
	// environment variable overrides this field.
	APIKey string `yaml:"api_key"`

	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SourceConfig holds database ingestion settings.
type SourceConfig struct {
	// Enabled turns database-backed dataset ingestion on.
	Enabled bool `yaml:"enabled"`

	// Driver is "postgres" or "mysql".
	Driver string `yaml:"driver"`

	DSN string `yaml:"dsn"`

	// MaxRows bounds how many rows are loaded per table. Zero means no
	// bound.
	MaxRows int `yaml:"max_rows"`
}

// FilestoreConfig holds dataset archive settings.
type FilestoreConfig struct {
	// Enabled turns archiving of uploaded files on.
	Enabled bool `yaml:"enabled"`

	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 50 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Analyzer: AnalyzerConfig{
			SampleSize: 5000,
		},
		Planner: PlannerConfig{
			DefaultTopN:        5,
			ShortQuestionWords: 5,
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Insight: InsightConfig{
			Model:   "gemini-2.5-flash-lite",
			Timeout: 30 * time.Second,
		},
		Source: SourceConfig{
			Driver: "postgres",
		},
		Filestore: FilestoreConfig{
			Bucket: "finsight-uploads",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if key := os.Getenv("FINSIGHT_INSIGHT_API_KEY"); key != "" {
		cfg.Insight.APIKey = key
	}

	return cfg, nil
}
