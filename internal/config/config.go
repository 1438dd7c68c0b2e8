// Package config loads service configuration from an optional TOML file,
// with environment variables taking precedence over both the file and the
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	ListenAddr     string   `toml:"listen_addr"`
	DataDir        string   `toml:"data_dir"`
	PreviewLength  int      `toml:"preview_length"`
	StoreTimeoutMS int      `toml:"store_timeout_ms"`
	CORSOrigins    []string `toml:"cors_origins"`

	Blob     BlobConfig     `toml:"blob"`
	Metadata MetadataConfig `toml:"metadata"`
	Sweep    SweepConfig    `toml:"sweep"`
}

type BlobConfig struct {
	// Backend selects "fs" or "gcs".
	Backend string `toml:"backend"`
	Bucket  string `toml:"bucket"`
	Prefix  string `toml:"prefix"`
}

type MetadataConfig struct {
	// Backend selects "file", "sqlite" or "firestore".
	Backend    string `toml:"backend"`
	ProjectID  string `toml:"project_id"`
	Collection string `toml:"collection"`
}

type SweepConfig struct {
	// Enabled runs the reconciliation sweep periodically inside serve.
	Enabled        bool    `toml:"enabled"`
	IntervalMin    int     `toml:"interval_min"`
	GracePeriodMin int     `toml:"grace_period_min"`
	DeletesPerSec  float64 `toml:"deletes_per_sec"`
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func defaults() *Config {
	return &Config{
		ListenAddr:     ":8080",
		DataDir:        "data",
		PreviewLength:  200,
		StoreTimeoutMS: 30000,
		Blob:           BlobConfig{Backend: "fs"},
		Metadata:       MetadataConfig{Backend: "file", Collection: "documents"},
		Sweep: SweepConfig{
			Enabled:        false,
			IntervalMin:    60,
			GracePeriodMin: 60,
			DeletesPerSec:  10,
		},
	}
}

// Load builds the effective configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ListenAddr = GetEnv("PDFVAULT_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DataDir = GetEnv("PDFVAULT_DATA_DIR", cfg.DataDir)
	cfg.Blob.Backend = GetEnv("PDFVAULT_BLOB_BACKEND", cfg.Blob.Backend)
	cfg.Blob.Bucket = GetEnv("PDFVAULT_BLOB_BUCKET", cfg.Blob.Bucket)
	cfg.Metadata.Backend = GetEnv("PDFVAULT_METADATA_BACKEND", cfg.Metadata.Backend)
	cfg.Metadata.ProjectID = GetEnv("PROJECT_ID", cfg.Metadata.ProjectID)
	cfg.Metadata.Collection = GetEnv("FIRESTORE_COLLECTION", cfg.Metadata.Collection)
	if v := GetEnv("PDFVAULT_PREVIEW_LENGTH", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PDFVAULT_PREVIEW_LENGTH %q: %w", v, err)
		}
		cfg.PreviewLength = n
	}

	switch cfg.Blob.Backend {
	case "fs", "gcs":
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
	switch cfg.Metadata.Backend {
	case "file", "sqlite", "firestore":
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", cfg.Metadata.Backend)
	}
	if cfg.Blob.Backend == "gcs" && cfg.Blob.Bucket == "" {
		return nil, fmt.Errorf("blob backend gcs requires a bucket name")
	}
	if cfg.Metadata.Backend == "firestore" && cfg.Metadata.ProjectID == "" {
		return nil, fmt.Errorf("metadata backend firestore requires a project id")
	}
	return cfg, nil
}

// StoreTimeout bounds every single blob or metadata operation.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// SweepInterval is the period between background sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalMin) * time.Minute
}

// SweepGracePeriod is how long an orphaned blob is left alone so in-flight
// ingests are not swept out from under their metadata write.
func (c *Config) SweepGracePeriod() time.Duration {
	return time.Duration(c.Sweep.GracePeriodMin) * time.Minute
}

// BlobDir is where the filesystem blob backend keeps its files.
func (c *Config) BlobDir() string { return filepath.Join(c.DataDir, "blobs") }

// MetadataPath is the file ("file" backend) or database ("sqlite" backend).
func (c *Config) MetadataPath() string {
	if c.Metadata.Backend == "sqlite" {
		return filepath.Join(c.DataDir, "metadata.db")
	}
	return filepath.Join(c.DataDir, "metadata.json")
}
