// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"

	"meeting-transcription-service/internal/models"
)

// Transcriber defines the interface for batch transcription providers.
// The recording is complete before the call; the adapter returns every
// unit in start order with millisecond-resolution timestamps.
//
// A provider failure means no transcript is possible for the recording:
// callers surface it as a hard failure rather than degrading.
type Transcriber interface {
	// Transcribe processes one audio file and returns the ordered
	// transcription units. An empty result with a nil error is treated
	// the same as a failure by the pipeline.
	Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptionUnit, error)
}

// Name identifies a provider in logs and metrics.
type Name string

const (
	ProviderMock      Name = "mock"
	ProviderGoogle    Name = "google"
	ProviderAsyncPoll Name = "asyncpoll"
)
