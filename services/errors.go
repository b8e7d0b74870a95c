package services

import "fmt"

// Query failure kinds, named for the pipeline step that failed.
type QueryErrorKind string

const (
	KindEncodingFailure    QueryErrorKind = "encoding_failure"
	KindRetrievalFailure   QueryErrorKind = "retrieval_failure"
	KindInterpreterFailure QueryErrorKind = "interpreter_failure"
)

// QueryError is the failure of one query or delete request. An interpreter
// failure is surfaced as such, never silently downgraded to a raw-chunk
// response: a sandbox crash must not look like "no computation was needed".
type QueryError struct {
	Kind QueryErrorKind
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%s): %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
