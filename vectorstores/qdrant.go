package vectorstores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Qdrant is a minimal REST client to a Qdrant collection, assuming cosine
// distance. The config map understands "host" (base URL) and "api_key".
type Qdrant struct {
	baseURL    string
	apiKey     string
	index      string
	dimensions int
	client     *http.Client
}

func NewQdrant(ctx context.Context, config map[string]string, indexName string, dimensions int) (*Qdrant, error) {
	host := config["host"]
	if host == "" {
		host = "http://localhost:6333"
	}
	q := &Qdrant{
		baseURL:    host,
		apiKey:     config["api_key"],
		index:      indexName,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
	if dimensions > 0 {
		if err := q.ensureCollection(ctx); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// ensureCollection creates the collection when missing and verifies the
// dimensionality of an existing one.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodGet, "/collections/"+q.index, nil, &info)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
		if got := info.Result.Config.Params.Vectors.Size; got != q.dimensions {
			return storeErr(TypeQdrant, KindDimensionMismatch,
				fmt.Errorf("collection %s has dimensionality %d, encoder produces %d", q.index, got, q.dimensions))
		}
		return nil
	case status == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{"size": q.dimensions, "distance": "Cosine"},
		}
		created, err := q.do(ctx, http.MethodPut, "/collections/"+q.index, body, nil)
		if err != nil {
			return err
		}
		if created != http.StatusOK {
			return storeErr(TypeQdrant, KindConnectionFailure, fmt.Errorf("create collection %s: status %d", q.index, created))
		}
		return nil
	default:
		return q.statusError("describe collection", status)
	}
}

func (q *Qdrant) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		if len(r.Vector) != q.dimensions {
			return 0, storeErr(TypeQdrant, KindDimensionMismatch,
				fmt.Errorf("record %s has %d dimensions, collection %s expects %d", r.ID, len(r.Vector), q.index, q.dimensions))
		}
		payload := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{"id": r.ID, "vector": r.Vector, "payload": payload}
	}

	status, err := q.do(ctx, http.MethodPut, "/collections/"+q.index+"/points?wait=true", map[string]any{"points": points}, nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, q.statusError("upsert points", status)
	}
	return len(records), nil
}

func (q *Qdrant) Query(ctx context.Context, vector []float32, topK int, filter map[string]string, excludeFields []string) ([]Match, error) {
	if len(vector) != q.dimensions {
		return nil, storeErr(TypeQdrant, KindDimensionMismatch,
			fmt.Errorf("query vector has %d dimensions, collection %s expects %d", len(vector), q.index, q.dimensions))
	}
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{"vector": vector, "limit": topK, "with_payload": true}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodPost, "/collections/"+q.index+"/points/search", body, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, q.statusError("search points", status)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		metadata := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			metadata[k] = fmt.Sprint(v)
		}
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    r.Score,
			Metadata: pruneFields(metadata, excludeFields),
		})
	}
	sortMatches(matches)
	return matches, nil
}

func (q *Qdrant) Delete(ctx context.Context, filter map[string]string) (int, error) {
	f := qdrantFilter(filter)
	if f == nil {
		return 0, storeErr(TypeQdrant, KindConnectionFailure, fmt.Errorf("delete requires a filter"))
	}

	// Qdrant's delete reports an operation ack, not a count; count first.
	var counted struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodPost, "/collections/"+q.index+"/points/count", map[string]any{"filter": f, "exact": true}, &counted)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, q.statusError("count points", status)
	}
	if counted.Result.Count == 0 {
		return 0, nil
	}

	status, err = q.do(ctx, http.MethodPost, "/collections/"+q.index+"/points/delete?wait=true", map[string]any{"filter": f}, nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, q.statusError("delete points", status)
	}
	return counted.Result.Count, nil
}

func qdrantFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{"key": k, "match": map[string]any{"value": v}})
	}
	return map[string]any{"must": must}
}

// do issues one JSON request and decodes the body into out when provided.
// Transport failures map to ConnectionFailure; HTTP statuses are returned
// for the caller to classify.
func (q *Qdrant) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, storeErr(TypeQdrant, KindConnectionFailure, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return 0, storeErr(TypeQdrant, KindConnectionFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, storeErr(TypeQdrant, KindConnectionFailure, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, storeErr(TypeQdrant, KindConnectionFailure, fmt.Errorf("decode response: %w", err))
		}
	}
	return resp.StatusCode, nil
}

func (q *Qdrant) statusError(op string, status int) *Error {
	err := fmt.Errorf("%s: status %d", op, status)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return storeErr(TypeQdrant, KindAuthFailure, err)
	case http.StatusNotFound:
		return storeErr(TypeQdrant, KindIndexNotFound, err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		// Qdrant rejects wrong-sized vectors with a 4xx; anything else the
		// client sends is shaped by us, so a bad request is a vector shape
		// problem in practice.
		return storeErr(TypeQdrant, KindDimensionMismatch, err)
	default:
		return storeErr(TypeQdrant, KindConnectionFailure, err)
	}
}
