package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ragworks/rag/encoders"
	"github.com/ragworks/rag/models"
	"github.com/ragworks/rag/splitter"
	"github.com/ragworks/rag/vectorstores"
)

const transientRetries = 3

// Ingest implements RAGService. Documents run through fetch → parse → split
// → embed → upsert independently under a bounded worker pool; one document's
// failure never aborts its siblings. When a webhook URL is configured the
// aggregate result is delivered exactly once, after every document has
// reached a terminal state.
func (r *ragServiceImpl) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	enc, err := r.encoderFor(req.Encoder)
	if err != nil {
		return nil, err
	}

	splitCfg := models.DefaultSplitterConfig()
	if req.DocumentProcessor != nil {
		splitCfg = *req.DocumentProcessor
	}
	split, err := splitter.New(splitCfg, enc)
	if err != nil {
		return nil, err
	}

	// A bad index configuration fails the whole request up front rather
	// than failing every document the same way.
	store, err := vectorstores.New(ctx, req.VectorDatabase, req.IndexName, enc.Dimensions())
	if err != nil {
		return nil, err
	}

	log.Printf("SERVICE: Ingesting %d file(s) into %s/%s", len(req.Files), req.VectorDatabase.Type, req.IndexName)

	results := make([]models.IngestResult, len(req.Files))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, file := range req.Files {
		g.Go(func() error {
			results[i] = r.processDocument(ctx, file, enc, split, store)
			return nil
		})
	}
	_ = g.Wait()

	success := true
	for _, res := range results {
		if res.Status != models.StatusDone {
			success = false
			break
		}
	}
	response := &models.IngestResponse{Success: success, Results: results}

	if req.WebhookURL != "" {
		r.deliverWebhook(ctx, req.WebhookURL, response)
	}
	return response, nil
}

// processDocument walks one file through every stage and returns its
// terminal result.
func (r *ragServiceImpl) processDocument(ctx context.Context, file models.IngestFile, enc encoders.Encoder, split splitter.Splitter, store vectorstores.Store) models.IngestResult {
	documentID := models.DocumentID(file.URL)
	failed := func(stage string, err error) models.IngestResult {
		log.Printf("SERVICE: Document %s failed at %s: %v", file.URL, stage, err)
		return models.IngestResult{
			DocumentID: documentID,
			FileURL:    file.URL,
			Status:     models.StatusFailed,
			Stage:      stage,
			Error:      err.Error(),
		}
	}

	doc, err := r.fetcher.Fetch(ctx, file)
	if err != nil {
		stage := models.StageFetching
		var fe *FetchError
		if errors.As(err, &fe) {
			stage = fe.Stage
		}
		return failed(stage, err)
	}

	chunks, err := split.Split(ctx, doc)
	if err != nil {
		return failed(models.StageSplitting, err)
	}
	if len(chunks) == 0 {
		return failed(models.StageSplitting, fmt.Errorf("document produced no chunks"))
	}

	// Embed and upsert batch by batch: each batch's vectors go straight to
	// the store, so a cancellation mid-document leaves only whole batches
	// behind, which the deterministic ids make safe to re-ingest.
	batchSize := enc.MaxBatch()
	if batchSize > 64 {
		batchSize = 64
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		var vectors [][]float32
		err := retryTransient(ctx, func() error {
			var embedErr error
			vectors, embedErr = enc.Embed(ctx, texts)
			return embedErr
		})
		if err != nil {
			return failed(models.StageEmbedding, err)
		}

		records := make([]vectorstores.Record, len(batch))
		for i, c := range batch {
			records[i] = vectorstores.Record{
				ID:     c.ID,
				Vector: vectors[i],
				Metadata: map[string]string{
					"document_id": c.DocumentID,
					"file_url":    doc.URL,
					"title":       doc.Title,
					"chunk_index": strconv.Itoa(c.Index),
					"token_count": strconv.Itoa(c.TokenCount),
					"content":     c.Text,
				},
			}
		}
		err = retryTransient(ctx, func() error {
			_, upsertErr := store.Upsert(ctx, records)
			return upsertErr
		})
		if err != nil {
			return failed(models.StageUpserting, err)
		}
	}

	log.Printf("SERVICE: Document %s ingested as %d chunk(s)", file.URL, len(chunks))
	return models.IngestResult{
		DocumentID: documentID,
		FileURL:    file.URL,
		Status:     models.StatusDone,
		Chunks:     len(chunks),
	}
}

// retryTransient retries op with exponential backoff while the error is
// classified retryable, up to a bounded number of attempts. Fatal errors
// and context cancellation stop immediately.
func retryTransient(ctx context.Context, op func() error) error {
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var encErr *encoders.Error
		if errors.As(err, &encErr) && encErr.Retryable {
			return err
		}
		var storeErr *vectorstores.Error
		if errors.As(err, &storeErr) && storeErr.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), transientRetries), ctx)
	return backoff.Retry(wrapped, policy)
}

// deliverWebhook posts the aggregate result once. Delivery retries are the
// receiver's concern; a failure here is logged, not propagated.
func (r *ragServiceImpl) deliverWebhook(ctx context.Context, url string, response *models.IngestResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		log.Printf("SERVICE: Could not marshal webhook payload: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Printf("SERVICE: Could not build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Printf("SERVICE: Webhook delivery to %s failed: %v", url, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("SERVICE: Webhook delivery to %s returned status %d", url, resp.StatusCode)
		return
	}
	log.Printf("SERVICE: Webhook delivered to %s", url)
}
