package encoders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragworks/rag/models"
)

const cohereMaxBatch = 96

// Cohere embeds text through the Cohere embed endpoint.
type Cohere struct {
	cfg    models.Encoder
	pc     ProviderConfig
	client *http.Client
}

type cohereRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Message    string      `json:"message,omitempty"`
}

func NewCohere(cfg models.Encoder, pc ProviderConfig) (*Cohere, error) {
	if pc.APIKey == "" {
		return nil, &models.ConfigError{Field: "encoder", Reason: "COHERE_API_KEY is not set"}
	}
	if pc.Endpoint == "" {
		pc.Endpoint = "https://api.cohere.ai/v1"
	}
	if pc.RequestTimeout == 0 {
		pc.RequestTimeout = 30 * time.Second
	}
	return &Cohere{
		cfg:    cfg,
		pc:     pc,
		client: &http.Client{Timeout: pc.RequestTimeout},
	}, nil
}

func (c *Cohere) Provider() string { return ProviderCohere }
func (c *Cohere) Model() string    { return c.cfg.ModelName }
func (c *Cohere) Dimensions() int  { return c.cfg.Dimensions }
func (c *Cohere) MaxBatch() int    { return cohereMaxBatch }

func (c *Cohere) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > cohereMaxBatch {
		return nil, fatal(ProviderCohere, fmt.Errorf("batch of %d exceeds provider limit %d", len(texts), cohereMaxBatch))
	}

	body, err := json.Marshal(cohereRequest{
		Model:     c.cfg.ModelName,
		Texts:     texts,
		InputType: "search_document",
	})
	if err != nil {
		return nil, fatal(ProviderCohere, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pc.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fatal(ProviderCohere, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.pc.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, retryable(ProviderCohere, fmt.Errorf("embed request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var parsed cohereResponse
		msg := string(raw)
		if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
			msg = parsed.Message
		}
		err := fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fatal(ProviderCohere, err)
		}
		return nil, retryable(ProviderCohere, err)
	}

	var parsed cohereResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, retryable(ProviderCohere, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fatal(ProviderCohere, fmt.Errorf("got %d embeddings for %d inputs", len(parsed.Embeddings), len(texts)))
	}
	for _, e := range parsed.Embeddings {
		if len(e) != c.cfg.Dimensions {
			return nil, fatal(ProviderCohere, fmt.Errorf("model returned %d dimensions, configured %d", len(e), c.cfg.Dimensions))
		}
	}
	return parsed.Embeddings, nil
}
