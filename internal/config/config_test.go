package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "fs", cfg.Blob.Backend)
	assert.Equal(t, "file", cfg.Metadata.Backend)
	assert.Equal(t, 200, cfg.PreviewLength)
	assert.Equal(t, 30*time.Second, cfg.StoreTimeout())
	assert.Equal(t, filepath.Join("data", "blobs"), cfg.BlobDir())
	assert.Equal(t, filepath.Join("data", "metadata.json"), cfg.MetadataPath())
}

func TestLoadFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = ":9999"
data_dir = "/var/lib/pdfvault"
preview_length = 80
cors_origins = ["http://localhost:3000"]

[metadata]
backend = "sqlite"

[sweep]
enabled = true
grace_period_min = 30
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 80, cfg.PreviewLength)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Metadata.Backend)
	assert.Equal(t, filepath.Join("/var/lib/pdfvault", "metadata.db"), cfg.MetadataPath())
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.SweepGracePeriod())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PDFVAULT_LISTEN_ADDR", ":7777")
	t.Setenv("PDFVAULT_METADATA_BACKEND", "sqlite")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Metadata.Backend)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("PDFVAULT_BLOB_BACKEND", "ftp")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRequiresBucketForGCS(t *testing.T) {
	t.Setenv("PDFVAULT_BLOB_BACKEND", "gcs")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRequiresProjectForFirestore(t *testing.T) {
	t.Setenv("PDFVAULT_METADATA_BACKEND", "firestore")
	_, err := Load("")
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PDFVAULT_TEST_KEY", "value")
	assert.Equal(t, "value", GetEnv("PDFVAULT_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("PDFVAULT_TEST_MISSING", "fallback"))
}
