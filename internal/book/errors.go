package book

import "errors"

// Error definitions. Every failure of a completion pass wraps exactly one of these.
var (
	ErrSchemaMismatch         = errors.New("schema mismatch")
	ErrMissingTitle           = errors.New("missing title")
	ErrMissingISBN            = errors.New("missing ISBN")
	ErrUnknownISBN            = errors.New("unknown ISBN")
	ErrIncompleteExternalData = errors.New("incomplete external data")
	ErrLookupFailed           = errors.New("lookup failed")
	ErrWriteFailure           = errors.New("write failure")
)

// Kind is a stable, machine readable name for an error class
type Kind string

const (
	KindSchemaMismatch         Kind = "schema_mismatch"
	KindMissingTitle           Kind = "missing_title"
	KindMissingISBN            Kind = "missing_isbn"
	KindUnknownISBN            Kind = "unknown_isbn"
	KindIncompleteExternalData Kind = "incomplete_external_data"
	KindLookupFailed           Kind = "lookup_failure"
	KindWriteFailure           Kind = "write_failure"
	KindUnknown                Kind = "unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrSchemaMismatch, KindSchemaMismatch},
	{ErrMissingTitle, KindMissingTitle},
	{ErrMissingISBN, KindMissingISBN},
	{ErrUnknownISBN, KindUnknownISBN},
	{ErrIncompleteExternalData, KindIncompleteExternalData},
	{ErrLookupFailed, KindLookupFailed},
	{ErrWriteFailure, KindWriteFailure},
}

// KindOf classifies err. It returns an empty Kind for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
