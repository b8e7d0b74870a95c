package encoders

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ragworks/rag/models"
)

// Encoder maps text to fixed-dimensionality vectors. Embed is order
// preserving and returns exactly one vector per input text, each of length
// Dimensions(). Implementations never cache across calls.
type Encoder interface {
	Provider() string
	Model() string
	Dimensions() int
	// MaxBatch is the largest number of texts one Embed call accepts.
	// Callers must pre-batch; oversized input fails fast, it is never
	// silently truncated.
	MaxBatch() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Error is an embedding failure. Retryable covers provider-side rejection
// (auth, rate limit, 5xx); a dimensionality mismatch or oversized batch is
// not retryable.
type Error struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("encoder %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func retryable(provider string, err error) *Error {
	return &Error{Provider: provider, Retryable: true, Err: err}
}

func fatal(provider string, err error) *Error {
	return &Error{Provider: provider, Retryable: false, Err: err}
}

// ProviderConfig carries connection settings shared by the HTTP providers.
type ProviderConfig struct {
	APIKey         string
	Endpoint       string
	RequestTimeout time.Duration
}

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"
	ProviderOllama = "ollama"
)

// knownDimensions pins the dimensionality of models we recognize. A request
// whose dimensions disagree with the model is rejected up front instead of
// failing on the first embedding.
var knownDimensions = map[string]int{
	"text-embedding-3-small":  1536,
	"text-embedding-3-large":  3072,
	"text-embedding-ada-002":  1536,
	"embed-english-v3.0":      1024,
	"embed-multilingual-v3.0": 1024,
	"nomic-embed-text":        768,
	"all-minilm":              384,
}

// New builds the encoder selected by cfg. Credentials and endpoints come
// from the environment: OPENAI_API_KEY, COHERE_API_KEY, OLLAMA_SERVER_URL.
func New(cfg models.Encoder) (Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if want, ok := knownDimensions[cfg.ModelName]; ok && want != cfg.Dimensions {
		return nil, &models.ConfigError{
			Field:  "encoder.dimensions",
			Reason: fmt.Sprintf("model %s produces %d dimensions, got %d", cfg.ModelName, want, cfg.Dimensions),
		}
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg, ProviderConfig{APIKey: os.Getenv("OPENAI_API_KEY")})
	case ProviderCohere:
		return NewCohere(cfg, ProviderConfig{APIKey: os.Getenv("COHERE_API_KEY")})
	case ProviderOllama:
		return NewOllama(cfg, os.Getenv("OLLAMA_SERVER_URL"))
	default:
		return nil, &models.ConfigError{
			Field:  "encoder.provider",
			Reason: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}
	}
}
