package vectorstores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Pinecone talks to one Pinecone index over its data-plane REST API. The
// config map requires "host" (the index endpoint) and takes "api_key",
// falling back to PINECONE_API_KEY.
type Pinecone struct {
	host       string
	apiKey     string
	index      string
	dimensions int
	client     *http.Client
}

func NewPinecone(ctx context.Context, config map[string]string, indexName string, dimensions int) (*Pinecone, error) {
	host := config["host"]
	if host == "" {
		return nil, storeErr(TypePinecone, KindIndexNotFound, fmt.Errorf("config requires the index host"))
	}
	apiKey := config["api_key"]
	if apiKey == "" {
		apiKey = os.Getenv("PINECONE_API_KEY")
	}
	if apiKey == "" {
		return nil, storeErr(TypePinecone, KindAuthFailure, fmt.Errorf("PINECONE_API_KEY is not set"))
	}
	p := &Pinecone{
		host:       host,
		apiKey:     apiKey,
		index:      indexName,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 15 * time.Second},
	}

	// The index dimensionality is fixed at index creation; verify it now so
	// a mismatch is a startup failure, not a per-record one.
	if dimensions > 0 {
		var stats struct {
			Dimension int `json:"dimension"`
		}
		if err := p.post(ctx, "/describe_index_stats", map[string]any{}, &stats); err != nil {
			return nil, err
		}
		if stats.Dimension != 0 && stats.Dimension != dimensions {
			return nil, storeErr(TypePinecone, KindDimensionMismatch,
				fmt.Errorf("index %s has dimensionality %d, encoder produces %d", indexName, stats.Dimension, dimensions))
		}
	}
	return p, nil
}

func (p *Pinecone) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	vectors := make([]map[string]any, len(records))
	for i, r := range records {
		if len(r.Vector) != p.dimensions {
			return 0, storeErr(TypePinecone, KindDimensionMismatch,
				fmt.Errorf("record %s has %d dimensions, index %s expects %d", r.ID, len(r.Vector), p.index, p.dimensions))
		}
		vectors[i] = map[string]any{"id": r.ID, "values": r.Vector, "metadata": r.Metadata}
	}

	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := p.post(ctx, "/vectors/upsert", map[string]any{"vectors": vectors}, &resp); err != nil {
		return 0, err
	}
	return resp.UpsertedCount, nil
}

func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int, filter map[string]string, excludeFields []string) ([]Match, error) {
	if len(vector) != p.dimensions {
		return nil, storeErr(TypePinecone, KindDimensionMismatch,
			fmt.Errorf("query vector has %d dimensions, index %s expects %d", len(vector), p.index, p.dimensions))
	}
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{"vector": vector, "topK": topK, "includeMetadata": true}
	if f := pineconeFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float32           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := p.post(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: pruneFields(m.Metadata, excludeFields),
		})
	}
	sortMatches(matches)
	return matches, nil
}

func (p *Pinecone) Delete(ctx context.Context, filter map[string]string) (int, error) {
	f := pineconeFilter(filter)
	if f == nil {
		return 0, storeErr(TypePinecone, KindConnectionFailure, fmt.Errorf("delete requires a filter"))
	}

	// Deletes report nothing; a filtered stats call gives the count first.
	var stats struct {
		Namespaces map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
	}
	if err := p.post(ctx, "/describe_index_stats", map[string]any{"filter": f}, &stats); err != nil {
		return 0, err
	}
	count := 0
	for _, ns := range stats.Namespaces {
		count += ns.VectorCount
	}
	if count == 0 {
		return 0, nil
	}

	if err := p.post(ctx, "/vectors/delete", map[string]any{"filter": f}, nil); err != nil {
		return 0, err
	}
	return count, nil
}

func pineconeFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		out[k] = map[string]any{"$eq": v}
	}
	return out
}

func (p *Pinecone) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return storeErr(TypePinecone, KindConnectionFailure, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(data))
	if err != nil {
		return storeErr(TypePinecone, KindConnectionFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return storeErr(TypePinecone, KindConnectionFailure, fmt.Errorf("POST %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return storeErr(TypePinecone, KindAuthFailure, err)
		case http.StatusNotFound:
			return storeErr(TypePinecone, KindIndexNotFound, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return storeErr(TypePinecone, KindDimensionMismatch, err)
		default:
			return storeErr(TypePinecone, KindConnectionFailure, err)
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return storeErr(TypePinecone, KindConnectionFailure, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}
