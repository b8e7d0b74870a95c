package encoders

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ragworks/rag/models"
)

const ollamaMaxBatch = 256

// Ollama embeds text against a local Ollama server via langchaingo.
type Ollama struct {
	cfg models.Encoder
	llm *ollama.LLM
}

func NewOllama(cfg models.Encoder, serverURL string) (*Ollama, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.ModelName)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, &models.ConfigError{Field: "encoder", Reason: fmt.Sprintf("ollama client: %v", err)}
	}
	return &Ollama{cfg: cfg, llm: llm}, nil
}

func (o *Ollama) Provider() string { return ProviderOllama }
func (o *Ollama) Model() string    { return o.cfg.ModelName }
func (o *Ollama) Dimensions() int  { return o.cfg.Dimensions }
func (o *Ollama) MaxBatch() int    { return ollamaMaxBatch }

func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > ollamaMaxBatch {
		return nil, fatal(ProviderOllama, fmt.Errorf("batch of %d exceeds provider limit %d", len(texts), ollamaMaxBatch))
	}

	vecs, err := o.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		// A local server that is down or overloaded recovers; treat every
		// transport failure as retryable.
		return nil, retryable(ProviderOllama, err)
	}
	if len(vecs) != len(texts) {
		return nil, fatal(ProviderOllama, fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(texts)))
	}
	for _, v := range vecs {
		if len(v) != o.cfg.Dimensions {
			return nil, fatal(ProviderOllama, fmt.Errorf("model returned %d dimensions, configured %d", len(v), o.cfg.Dimensions))
		}
	}
	return vecs, nil
}
