package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/ragworks/rag/encoders"
	"github.com/ragworks/rag/models"
	"github.com/ragworks/rag/session"
	"github.com/ragworks/rag/vectorstores"
)

// RAGService interface defines the core ingest, query and delete operations.
type RAGService interface {
	Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error)
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error)
	Delete(ctx context.Context, req models.DeleteRequest) (*models.DeleteResponse, error)
}

// Options tunes the service; zero values get sane defaults.
type Options struct {
	// IngestWorkers bounds how many documents ingest in parallel.
	IngestWorkers int
	// HTTPClient is used for webhook delivery.
	HTTPClient *http.Client
}

// ragServiceImpl holds the dependencies it needs to do its job.
type ragServiceImpl struct {
	fetcher    Fetcher
	sessions   *session.Cache
	httpClient *http.Client
	workers    int

	mu       sync.Mutex
	encoders map[string]encoders.Encoder
}

// NewRAGService creates the service. sessions may be nil when interpreter
// mode is not offered.
func NewRAGService(fetcher Fetcher, sessions *session.Cache, opts Options) RAGService {
	if opts.IngestWorkers <= 0 {
		opts.IngestWorkers = 4
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &ragServiceImpl{
		fetcher:    fetcher,
		sessions:   sessions,
		httpClient: opts.HTTPClient,
		workers:    opts.IngestWorkers,
		encoders:   make(map[string]encoders.Encoder),
	}
}

// encoderFor builds or reuses the encoder for cfg. Reuse keeps one circuit
// breaker per provider/model rather than a fresh one per request.
func (r *ragServiceImpl) encoderFor(cfg models.Encoder) (encoders.Encoder, error) {
	key := fmt.Sprintf("%s/%s/%d", cfg.Provider, cfg.ModelName, cfg.Dimensions)
	r.mu.Lock()
	defer r.mu.Unlock()
	if enc, ok := r.encoders[key]; ok {
		return enc, nil
	}
	enc, err := encoders.New(cfg)
	if err != nil {
		return nil, err
	}
	enc = encoders.WithBreaker(enc)
	r.encoders[key] = enc
	return enc, nil
}

// Query implements RAGService.
func (r *ragServiceImpl) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	log.Printf("SERVICE: Querying %s/%s (interpreter=%v, session=%q)", req.VectorDatabase.Type, req.IndexName, req.InterpreterMode, req.SessionID)

	enc, err := r.encoderFor(req.Encoder)
	if err != nil {
		return nil, err
	}

	vectors, err := enc.Embed(ctx, []string{req.Input})
	if err != nil {
		return nil, &QueryError{Kind: KindEncodingFailure, Err: err}
	}

	store, err := vectorstores.New(ctx, req.VectorDatabase, req.IndexName, enc.Dimensions())
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &QueryError{Kind: KindRetrievalFailure, Err: err}
	}

	// exclude_fields shapes the response payload only. The interpreter
	// response carries an answer, not matches, and its sandbox needs the
	// chunk text, so pruning is skipped on that path.
	excludeFields := req.ExcludeFields
	if req.InterpreterMode {
		excludeFields = nil
	}
	matches, err := store.Query(ctx, vectors[0], req.TopK, nil, excludeFields)
	if err != nil {
		return nil, &QueryError{Kind: KindRetrievalFailure, Err: err}
	}

	if !req.InterpreterMode {
		results := make([]models.QueryMatch, len(matches))
		for i, m := range matches {
			results[i] = models.QueryMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
		}
		return &models.QueryResponse{Success: true, Matches: results}, nil
	}

	if r.sessions == nil {
		return nil, &QueryError{Kind: KindInterpreterFailure, Err: errors.New("interpreter mode is not configured")}
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	sess, err := r.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, &QueryError{Kind: KindInterpreterFailure, Err: err}
	}

	contextTexts := make([]string, 0, len(matches))
	for _, m := range matches {
		if content := m.Metadata["content"]; content != "" {
			contextTexts = append(contextTexts, content)
		}
	}
	answer, err := sess.Execute(ctx, req.Input, contextTexts)
	if err != nil {
		if errors.Is(err, session.ErrSessionBusy) {
			return nil, err
		}
		return nil, &QueryError{Kind: KindInterpreterFailure, Err: err}
	}

	return &models.QueryResponse{Success: true, Answer: answer, SessionID: sessionID}, nil
}

// Delete implements RAGService. It removes every chunk whose file_url
// metadata matches; zero matches is still a success.
func (r *ragServiceImpl) Delete(ctx context.Context, req models.DeleteRequest) (*models.DeleteResponse, error) {
	log.Printf("SERVICE: Deleting chunks of %s from %s/%s", req.FileURL, req.VectorDatabase.Type, req.IndexName)

	store, err := vectorstores.New(ctx, req.VectorDatabase, req.IndexName, 0)
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &QueryError{Kind: KindRetrievalFailure, Err: err}
	}

	deleted, err := store.Delete(ctx, map[string]string{"file_url": req.FileURL})
	if err != nil {
		return nil, &QueryError{Kind: KindRetrievalFailure, Err: err}
	}

	log.Printf("SERVICE: Deleted %d chunk(s) for %s", deleted, req.FileURL)
	return &models.DeleteResponse{Success: true, NumOfDeletedChunks: deleted}, nil
}
