package models

// Ingestion stages, in pipeline order. A document that fails carries the
// stage it failed in.
const (
	StageFetching  = "Fetching"
	StageParsing   = "Parsing"
	StageSplitting = "Splitting"
	StageEmbedding = "Embedding"
	StageUpserting = "Upserting"
)

// Terminal per-document statuses.
const (
	StatusDone   = "Done"
	StatusFailed = "Failed"
)

// IngestResult is the terminal outcome for one document. One document's
// failure never aborts its siblings; every file in the request gets a result.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	FileURL    string `json:"file_url"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	Error      string `json:"error,omitempty"`
}

// IngestResponse aggregates per-document results. The same payload is
// delivered to the webhook URL, once, after every document is terminal.
type IngestResponse struct {
	Success bool           `json:"success"`
	Results []IngestResult `json:"results"`
}

// QueryMatch is one retrieved chunk with its similarity score.
type QueryMatch struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QueryResponse is the result of POST /api/v1/query. Matches carries the
// ranked chunks; Answer is set instead when interpreter mode handled the
// question in a sandbox session.
type QueryResponse struct {
	Success   bool         `json:"success"`
	Matches   []QueryMatch `json:"matches,omitempty"`
	Answer    string       `json:"answer,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
}

// DeleteResponse reports how many chunks a delete removed. Zero matches is
// a success, not an error.
type DeleteResponse struct {
	Success            bool `json:"success"`
	NumOfDeletedChunks int  `json:"num_of_deleted_chunks"`
}
