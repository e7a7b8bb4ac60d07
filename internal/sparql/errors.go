package sparql

import "fmt"

// ParseError reports malformed update text. The operation never reaches the
// coordinator and no store is touched.
type ParseError struct {
	Pos int    // byte offset into the update text
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// UnresolvedPatternError reports that the read query issued to resolve a
// pattern-bound delete failed, so the delete set could not be materialized.
type UnresolvedPatternError struct {
	Query string
	Err   error
}

func (e *UnresolvedPatternError) Error() string {
	return fmt.Sprintf("failed to resolve delete pattern: %v", e.Err)
}

func (e *UnresolvedPatternError) Unwrap() error {
	return e.Err
}

// EmptyOperationError reports that both the insert and delete sets resolved
// empty. The coordinator treats this as a no-op success, not a failure, so
// idempotent retries stay cheap.
type EmptyOperationError struct {
	RawText string
}

func (e *EmptyOperationError) Error() string {
	return "update resolves to an empty operation"
}
