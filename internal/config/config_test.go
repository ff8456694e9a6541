package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, filepath.Join("data", "metadata", "documents_metadata.json"), cfg.Data.RegistryPath())
	assert.Equal(t, filepath.Join("data", "querylog.db"), cfg.Data.QueryLogPath())
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL)
	assert.Equal(t, "legal_chunks", cfg.Qdrant.Collection)
	assert.Equal(t, 768, cfg.Qdrant.VectorSize)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	require.Len(t, cfg.Anthropic.Models, 2)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Models[0])
	assert.Equal(t, int64(2048), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 3, cfg.Scrape.Concurrency)
	assert.Equal(t, 50, cfg.Retrieval.CandidatePool)
	assert.Equal(t, 10, cfg.Retrieval.MinChunks)
	assert.InDelta(t, 0.1, cfg.Retrieval.RelativeMargin, 0.001)
	assert.InDelta(t, 0.5, cfg.Retrieval.AbsoluteThreshold, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
data:
  dir: /var/lib/qanoon
qdrant:
  collection: test_chunks
log:
  level: debug
  format: console
server:
  port: 9090
scrape:
  concurrency: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/qanoon", cfg.Data.Dir)
	assert.Equal(t, "test_chunks", cfg.Qdrant.Collection)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scrape.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Retrieval.CandidatePool)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("QANOON_SERVER_PORT", "7070")
	t.Setenv("QANOON_ANTHROPIC_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Anthropic.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
}
