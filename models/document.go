package models

import (
	"strconv"

	"github.com/google/uuid"
)

// Document is a fetched and parsed source file. It is immutable once parsed
// and is discarded after chunking; only its chunks are stored.
type Document struct {
	ID          string
	URL         string
	Name        string
	Title       string
	Content     string
	ContentType string
}

// Chunk is a bounded, ordered unit of document text prepared for embedding
// and retrieval. Embedding is populated by the encoder adapter; Metadata is
// what survives in the vector store once the chunk is upserted.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Index      int               `json:"index"`
	Text       string            `json:"text"`
	TokenCount int               `json:"token_count"`
	Embedding  []float32         `json:"-"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DocumentID derives a stable document id from the source URL, so
// re-ingesting the same file always addresses the same records.
func DocumentID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// ChunkID derives a stable chunk id from (document id, index in document).
// Re-ingesting an unchanged document overwrites its chunks in place.
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(documentID+":"+strconv.Itoa(index))).String()
}
