// Package diarize defines the diarization backend surface and its
// HTTP implementation. The backend only ever sees one bounded audio
// chunk; segment times in its answer are relative to that chunk.
package diarize

import (
	"context"

	"meeting-transcription-service/internal/models"
)

// Result is one chunk's diarization answer. Segment times are
// chunk-relative; embeddings are averaged per local speaker label and
// may be absent.
type Result struct {
	Segments   []models.DiarizationSegment
	Embeddings []models.SpeakerEmbedding
}

// Backend diarizes one audio chunk.
type Backend interface {
	Diarize(ctx context.Context, audioPath string) (Result, error)
}
