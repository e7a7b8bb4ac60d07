package rdf

// OpKind identifies the shape of a parsed update operation.
type OpKind int

const (
	// OpInsert is an unconditional insert of literal quads.
	OpInsert OpKind = iota

	// OpDelete is a delete, either of literal quads or of quads resolved
	// from a pattern-bound condition.
	OpDelete

	// OpDeleteInsert is a combined delete+insert sharing one condition,
	// applied as a single atomic replace.
	OpDeleteInsert
)

// String returns the kind name for logs.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpDeleteInsert:
		return "delete_insert"
	default:
		return "unknown"
	}
}

// Operation is a fully resolved update: concrete quad sets to delete and
// insert, with no remaining variables. It is produced once by the update
// parser and consumed once by the dual-write coordinator; neither side
// mutates it afterward.
type Operation struct {
	Kind      OpKind
	InsertSet []Quad
	DeleteSet []Quad

	// RawText is the original update statement, kept for logs and audit.
	RawText string
}

// Empty reports whether both quad sets are empty. The coordinator treats an
// empty operation as a no-op success so idempotent retries stay cheap.
func (op *Operation) Empty() bool {
	return len(op.InsertSet) == 0 && len(op.DeleteSet) == 0
}
