package models

// IngestFile is one file to fetch and index.
type IngestFile struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name,omitempty"`
}

// IngestRequest is the payload for POST /api/v1/ingest.
type IngestRequest struct {
	Files             []IngestFile    `json:"files" binding:"required,min=1"`
	Encoder           Encoder         `json:"encoder"`
	DocumentProcessor *SplitterConfig `json:"document_processor,omitempty"`
	VectorDatabase    VectorDatabase  `json:"vector_database"`
	IndexName         string          `json:"index_name" binding:"required"`
	WebhookURL        string          `json:"webhook_url,omitempty"`
}

// QueryRequest is the payload for POST /api/v1/query.
type QueryRequest struct {
	Input           string         `json:"input" binding:"required"`
	Encoder         Encoder        `json:"encoder"`
	VectorDatabase  VectorDatabase `json:"vector_database"`
	IndexName       string         `json:"index_name" binding:"required"`
	TopK            int            `json:"top_k,omitempty"`
	InterpreterMode bool           `json:"interpreter_mode,omitempty"`
	ExcludeFields   []string       `json:"exclude_fields,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
}

// DeleteRequest is the payload for POST /api/v1/delete. All chunks whose
// file_url metadata matches are removed.
type DeleteRequest struct {
	FileURL        string         `json:"file_url" binding:"required"`
	VectorDatabase VectorDatabase `json:"vector_database"`
	IndexName      string         `json:"index_name" binding:"required"`
}
