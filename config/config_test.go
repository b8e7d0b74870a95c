package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 4, cfg.IngestWorkers)
	assert.Equal(t, 15*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, "gemini-2.5-flash", cfg.InterpreterModel)
	assert.Empty(t, cfg.WatchDir)
	assert.Equal(t, "local-documents", cfg.WatchIndexName)
	assert.Equal(t, "ollama", cfg.WatchEncoderProvider)
	assert.Equal(t, "nomic-embed-text", cfg.WatchEncoderModel)
	assert.Equal(t, 768, cfg.WatchEncoderDimensions)
	assert.Equal(t, "memory", cfg.WatchDatabaseType)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RAG_ADDR", ":9999")
	t.Setenv("RAG_INGEST_WORKERS", "8")
	t.Setenv("RAG_SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("RAG_WATCH_DIR", "/var/docs")
	t.Setenv("RAG_WATCH_ENCODER_PROVIDER", "openai")
	t.Setenv("RAG_WATCH_ENCODER_MODEL", "text-embedding-3-small")
	t.Setenv("RAG_WATCH_ENCODER_DIMENSIONS", "1536")
	t.Setenv("RAG_WATCH_DATABASE_TYPE", "qdrant")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 8, cfg.IngestWorkers)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "/var/docs", cfg.WatchDir)
	assert.Equal(t, "openai", cfg.WatchEncoderProvider)
	assert.Equal(t, "text-embedding-3-small", cfg.WatchEncoderModel)
	assert.Equal(t, 1536, cfg.WatchEncoderDimensions)
	assert.Equal(t, "qdrant", cfg.WatchDatabaseType)
}
