// Package config loads server settings from the environment with viper.
// Request-scoped choices (encoder, vector database, index) travel in the
// request payloads; only process-level knobs live here.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `mapstructure:"addr"`

	// IngestWorkers bounds parallel document ingestion per request.
	IngestWorkers int `mapstructure:"ingest_workers"`

	// SessionIdleTimeout reclaims interpreter sandboxes idle this long.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	// SessionSweepInterval is how often the eviction sweep runs.
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval"`

	// InterpreterModel is the Gemini model backing interpreter sessions.
	InterpreterModel string `mapstructure:"interpreter_model"`

	// WatchDir, when set, is a local directory kept in sync with
	// WatchIndexName through the watcher's encoder and backend below.
	WatchDir       string `mapstructure:"watch_dir"`
	WatchIndexName string `mapstructure:"watch_index_name"`

	// Watcher pipeline selection. The defaults index into the in-process
	// memory backend with a local Ollama model.
	WatchEncoderProvider   string `mapstructure:"watch_encoder_provider"`
	WatchEncoderModel      string `mapstructure:"watch_encoder_model"`
	WatchEncoderDimensions int    `mapstructure:"watch_encoder_dimensions"`
	WatchDatabaseType      string `mapstructure:"watch_database_type"`
}

// Load reads RAG_-prefixed environment variables (RAG_ADDR,
// RAG_INGEST_WORKERS, ...) over built-in defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("ingest_workers", 4)
	v.SetDefault("session_idle_timeout", 15*time.Minute)
	v.SetDefault("session_sweep_interval", time.Minute)
	v.SetDefault("interpreter_model", "gemini-2.5-flash")
	v.SetDefault("watch_dir", "")
	v.SetDefault("watch_index_name", "local-documents")
	v.SetDefault("watch_encoder_provider", "ollama")
	v.SetDefault("watch_encoder_model", "nomic-embed-text")
	v.SetDefault("watch_encoder_dimensions", 768)
	v.SetDefault("watch_database_type", "memory")

	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
