package models

import "fmt"

// ConfigError marks a request or server configuration problem. It is fatal:
// callers must not retry until the configuration changes.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// Encoder selects an embedding provider and pins the expected output
// dimensionality. A dimensions/model mismatch is a ConfigError, never
// silently coerced.
type Encoder struct {
	Provider   string `json:"provider"`
	ModelName  string `json:"model_name"`
	Dimensions int    `json:"dimensions"`
}

func (e Encoder) Validate() error {
	if e.Provider == "" {
		return &ConfigError{Field: "encoder.provider", Reason: "must not be empty"}
	}
	if e.ModelName == "" {
		return &ConfigError{Field: "encoder.model_name", Reason: "must not be empty"}
	}
	if e.Dimensions <= 0 {
		return &ConfigError{Field: "encoder.dimensions", Reason: "must be positive"}
	}
	return nil
}

// Splitter strategies.
const (
	SplitterCharacter = "character"
	SplitterSemantic  = "semantic"
)

// SplitterConfig controls how parsed text is cut into chunks.
type SplitterConfig struct {
	Name              string `json:"name"`
	MaxTokens         int    `json:"max_tokens"`
	MinTokens         int    `json:"min_tokens"`
	RollingWindowSize int    `json:"rolling_window_size"`
	PrefixTitle       bool   `json:"prefix_title"`
	PrefixSummary     bool   `json:"prefix_summary"`
}

// DefaultSplitterConfig mirrors the chunk sizing the service used before the
// document_processor field existed, so older clients keep their behavior.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		Name:              SplitterCharacter,
		MaxTokens:         350,
		MinTokens:         30,
		RollingWindowSize: 1,
	}
}

func (c SplitterConfig) Validate() error {
	switch c.Name {
	case SplitterCharacter, SplitterSemantic:
	default:
		return &ConfigError{Field: "document_processor.name", Reason: fmt.Sprintf("unknown splitter %q", c.Name)}
	}
	if c.MinTokens <= 0 {
		return &ConfigError{Field: "document_processor.min_tokens", Reason: "must be positive"}
	}
	if c.MinTokens >= c.MaxTokens {
		return &ConfigError{Field: "document_processor.min_tokens", Reason: "must be less than max_tokens"}
	}
	if c.Name == SplitterSemantic && c.RollingWindowSize <= 0 {
		return &ConfigError{Field: "document_processor.rolling_window_size", Reason: "must be positive"}
	}
	return nil
}

// VectorDatabase selects a vector store backend and carries its connection
// settings (host, api key and the like) as an opaque string map.
type VectorDatabase struct {
	Type   string            `json:"type"`
	Config map[string]string `json:"config"`
}

func (v VectorDatabase) Validate() error {
	if v.Type == "" {
		return &ConfigError{Field: "vector_database.type", Reason: "must not be empty"}
	}
	return nil
}
