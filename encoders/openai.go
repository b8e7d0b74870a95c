package encoders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ragworks/rag/models"
)

const openAIMaxBatch = 2048

// OpenAI embeds text through the OpenAI embeddings endpoint.
type OpenAI struct {
	cfg    models.Encoder
	pc     ProviderConfig
	client *http.Client
}

type openAIRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewOpenAI(cfg models.Encoder, pc ProviderConfig) (*OpenAI, error) {
	if pc.APIKey == "" {
		return nil, &models.ConfigError{Field: "encoder", Reason: "OPENAI_API_KEY is not set"}
	}
	if pc.Endpoint == "" {
		pc.Endpoint = "https://api.openai.com/v1"
	}
	if pc.RequestTimeout == 0 {
		pc.RequestTimeout = 30 * time.Second
	}
	return &OpenAI{
		cfg:    cfg,
		pc:     pc,
		client: &http.Client{Timeout: pc.RequestTimeout},
	}, nil
}

func (o *OpenAI) Provider() string { return ProviderOpenAI }
func (o *OpenAI) Model() string    { return o.cfg.ModelName }
func (o *OpenAI) Dimensions() int  { return o.cfg.Dimensions }
func (o *OpenAI) MaxBatch() int    { return openAIMaxBatch }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > openAIMaxBatch {
		return nil, fatal(ProviderOpenAI, fmt.Errorf("batch of %d exceeds provider limit %d", len(texts), openAIMaxBatch))
	}

	body, err := json.Marshal(openAIRequest{Input: texts, Model: o.cfg.ModelName})
	if err != nil {
		return nil, fatal(ProviderOpenAI, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.pc.Endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fatal(ProviderOpenAI, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.pc.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, retryable(ProviderOpenAI, fmt.Errorf("embeddings request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr openAIErrorResponse
		msg := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		err := fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		// Auth and rate-limit rejections clear up on their own; a bad
		// request never does.
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fatal(ProviderOpenAI, err)
		}
		return nil, retryable(ProviderOpenAI, err)
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, retryable(ProviderOpenAI, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, fatal(ProviderOpenAI, fmt.Errorf("got %d embeddings for %d inputs", len(parsed.Data), len(texts)))
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	out := make([][]float32, len(texts))
	for i, d := range parsed.Data {
		if len(d.Embedding) != o.cfg.Dimensions {
			return nil, fatal(ProviderOpenAI, fmt.Errorf("model returned %d dimensions, configured %d", len(d.Embedding), o.cfg.Dimensions))
		}
		out[i] = d.Embedding
	}
	return out, nil
}
