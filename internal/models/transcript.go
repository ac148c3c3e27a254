// Package models defines the data structures flowing through the
// diarization fusion engine and the transcript events it emits.
package models

import "fmt"

// TranscriptionUnit is one timestamped text unit produced by the
// transcription backend. Units are immutable once produced.
type TranscriptionUnit struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"` // seconds from recording start
	End   float64 `json:"end"`
}

// Midpoint returns the temporal center of the unit.
func (u TranscriptionUnit) Midpoint() float64 {
	return (u.Start + u.End) / 2
}

// Validate reports whether the unit is well-formed.
func (u TranscriptionUnit) Validate() error {
	if u.End < u.Start {
		return fmt.Errorf("unit end %.3f before start %.3f: %w", u.End, u.Start, ErrMalformedRecord)
	}
	return nil
}

// DiarizationSegment is one speaker turn reported by the diarization
// backend. LocalSpeaker is only meaningful within its chunk until the
// global calibration pass rewrites it.
type DiarizationSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	LocalSpeaker int     `json:"localSpeaker"`
	ChunkIndex   int     `json:"chunkIndex"`
}

// Center returns the temporal center of the segment.
func (s DiarizationSegment) Center() float64 {
	return (s.Start + s.End) / 2
}

// Contains reports whether t falls inside the segment (inclusive).
func (s DiarizationSegment) Contains(t float64) bool {
	return s.Start <= t && t <= s.End
}

// Validate reports whether the segment is well-formed.
func (s DiarizationSegment) Validate() error {
	if s.End < s.Start {
		return fmt.Errorf("segment end %.3f before start %.3f: %w", s.End, s.Start, ErrMalformedRecord)
	}
	if s.ChunkIndex < 0 {
		return fmt.Errorf("segment chunk index %d: %w", s.ChunkIndex, ErrMalformedRecord)
	}
	return nil
}

// SpeakerEmbedding is the averaged voice embedding for one
// (chunk, local speaker) pair.
type SpeakerEmbedding struct {
	ChunkIndex   int       `json:"chunkIndex"`
	LocalSpeaker int       `json:"localSpeaker"`
	Vector       []float32 `json:"vector"`
}

// Validate checks the vector against the expected dimension. A zero
// wantDim accepts any non-empty vector.
func (e SpeakerEmbedding) Validate(wantDim int) error {
	if len(e.Vector) == 0 {
		return fmt.Errorf("empty embedding for chunk %d speaker %d: %w", e.ChunkIndex, e.LocalSpeaker, ErrMalformedRecord)
	}
	if wantDim > 0 && len(e.Vector) != wantDim {
		return fmt.Errorf("embedding dimension %d, want %d: %w", len(e.Vector), wantDim, ErrMalformedRecord)
	}
	return nil
}

// Chunk is one bounded window of the recording. Chunks tile
// [0, duration) exactly, in index order, with no gaps or overlaps.
type Chunk struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Sentence is the final output unit: merged consecutive units from one
// speaker, ordered by start time.
type Sentence struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker int     `json:"speaker"` // normalized global speaker id
}

// EnrolledIdentity is one entry of the read-only voice directory.
type EnrolledIdentity struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Vector      []float32 `json:"vector"`
}

// Transcript is the engine's result for one recording.
type Transcript struct {
	RecordingID string         `json:"recordingId"`
	Sentences   []Sentence     `json:"sentences"`
	SpeakerName map[int]string `json:"speakerNames,omitempty"` // resolved display names, sparse
	Degraded    bool           `json:"degraded"`               // diarization ran in a fallback mode
	Duration    float64        `json:"duration"`
}

// SpeakerCount returns the number of distinct speakers in the transcript.
func (t *Transcript) SpeakerCount() int {
	seen := map[int]struct{}{}
	for _, s := range t.Sentences {
		seen[s.Speaker] = struct{}{}
	}
	return len(seen)
}

// TranscriptCompleted is the event published when a recording has been
// fully processed.
type TranscriptCompleted struct {
	EventType   string     `json:"eventType"`
	RecordingID string     `json:"recordingId"`
	Timestamp   int64      `json:"timestamp"`
	Sentences   []Sentence `json:"sentences"`
	Speakers    int        `json:"speakers"`
	Degraded    bool       `json:"degraded"`
}

// TranscriptFailed is the event published when no transcript could be
// produced for a recording.
type TranscriptFailed struct {
	EventType   string `json:"eventType"`
	RecordingID string `json:"recordingId"`
	Timestamp   int64  `json:"timestamp"`
	Reason      string `json:"reason"`
}
