package models

import "time"

// ExtractionResult is the outcome of extracting one URL in a batch run.
// Exactly one of Payload and Error is set.
type ExtractionResult struct {
	URL         string
	Payload     *ExtractedPayload
	ErrorKind   string
	Error       string
	ExtractedAt time.Time
}

// OK reports whether the extraction succeeded.
func (r *ExtractionResult) OK() bool { return r.Payload != nil }
