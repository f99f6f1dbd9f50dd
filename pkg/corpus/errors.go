package corpus

import "errors"

var (
	// ErrValidation is returned for bad input rejected before any store
	// is touched: missing required metadata, empty content, an
	// unparseable filter.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedFormat is returned when no extractor exists for the
	// declared document type.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction is returned for corrupt or unreadable input.
	ErrExtraction = errors.New("extraction failed")

	// ErrTransientProvider marks retryable embedding or LLM failures.
	// It surfaces to callers only after the retry budget is exhausted.
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrQuotaExceeded marks a fatal provider quota rejection for the
	// current batch; it is not retried.
	ErrQuotaExceeded = errors.New("provider quota exceeded")

	// ErrDimensionMismatch is returned when a vector's length differs
	// from the index's configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNotFound is returned when a referenced document or chunk no
	// longer exists. It is benign under concurrent deletes and is
	// returned, never raised as fatal.
	ErrNotFound = errors.New("not found")

	// ErrConsistency marks detected orphan vectors or mismatched chunk
	// counts. Logged and repaired by the reconciliation sweep, never
	// silently ignored.
	ErrConsistency = errors.New("consistency violation")

	// ErrRetrievalTimeout is returned when a query exceeds its deadline.
	ErrRetrievalTimeout = errors.New("retrieval timed out")
)
