package crawler

import "errors"

// Error classes used across the pipeline. Callers classify with errors.Is.
var (
	// ErrNetwork marks a fetch that failed after its retry budget was spent.
	ErrNetwork = errors.New("network error")
	// ErrParse marks a document that did not have the expected structure.
	ErrParse = errors.New("parse error")
	// ErrPersistence marks a failed checkpoint write.
	ErrPersistence = errors.New("persistence error")
	// ErrNoImages marks an album where no image could be resolved.
	ErrNoImages = errors.New("no images resolved")
)
