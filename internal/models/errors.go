package models

import "errors"

// Error categories for the fusion engine.
//
// The fusion logic itself (alignment, aggregation, clustering,
// normalization) is pure and never retries: transient failures are
// retried where the backend call originates, degraded input flows
// through documented fallbacks, and only an empty transcript is
// surfaced to the caller as a hard failure.
var (
	// ErrTransientBackend marks a network or timeout failure on a
	// backend call. Retried with backoff at the call site.
	ErrTransientBackend = errors.New("transient backend error")

	// ErrDegradedInput marks diarization or embedding data that is
	// unavailable or partial. The engine continues via a fallback.
	ErrDegradedInput = errors.New("degraded diarization input")

	// ErrNoTranscript marks a recording for which the transcription
	// backend returned nothing. No sentences are possible.
	ErrNoTranscript = errors.New("transcription backend returned no units")

	// ErrMalformedRecord marks a single malformed segment, unit or
	// embedding. The offending record is dropped with a warning and
	// processing continues.
	ErrMalformedRecord = errors.New("malformed record")
)

// IsTransient reports whether err is a retryable backend failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientBackend)
}
