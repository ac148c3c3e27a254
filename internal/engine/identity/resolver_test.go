package identity

import (
	"context"
	"errors"
	"testing"

	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/service/embed"
)

type fakeSlicer struct {
	lastStart, lastDuration float64
	err                     error
}

func (f *fakeSlicer) Slice(ctx context.Context, src string, start, duration float64) (string, func(), error) {
	f.lastStart = start
	f.lastDuration = duration
	if f.err != nil {
		return "", func() {}, f.err
	}
	return "excerpt.wav", func() {}, nil
}

type fakeDirectory struct {
	matches []Match
	err     error
	queries int
}

func (f *fakeDirectory) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func sentence(start, end float64, speaker int) models.Sentence {
	return models.Sentence{Text: "something", Start: start, End: end, Speaker: speaker}
}

func TestResolve_MatchAboveThreshold(t *testing.T) {
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.9}}}
	r := New(&fakeSlicer{}, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	names := r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 5, 0),
	})

	if names[0] != "Alex Rivera" {
		t.Errorf("expected speaker 0 resolved, got %v", names)
	}
}

func TestResolve_BelowThresholdUnresolved(t *testing.T) {
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.6}}}
	r := New(&fakeSlicer{}, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	names := r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 5, 0),
	})

	if len(names) != 0 {
		t.Errorf("expected no resolution, got %v", names)
	}
}

func TestResolve_ShortSpanSkipped(t *testing.T) {
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.95}}}
	r := New(&fakeSlicer{}, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	names := r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 1.5, 0), // under the 2s minimum
	})

	if len(names) != 0 {
		t.Errorf("expected short span skipped, got %v", names)
	}
	if dir.queries != 0 {
		t.Errorf("expected no directory query, got %d", dir.queries)
	}
}

func TestResolve_LongestSpanPicked(t *testing.T) {
	slicer := &fakeSlicer{}
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.95}}}
	r := New(slicer, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 3, 0),
		sentence(10, 17, 0), // the longest span for speaker 0
		sentence(20, 22, 0),
	})

	if slicer.lastStart != 10 {
		t.Errorf("expected excerpt from the longest span, got start %v", slicer.lastStart)
	}
}

func TestResolve_AdjacentSentencesFormOneSpan(t *testing.T) {
	slicer := &fakeSlicer{}
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.95}}}
	r := New(slicer, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 3, 0),
		sentence(3.2, 6, 0), // merges into [0, 6)
		sentence(30, 34, 0),
	})

	if slicer.lastStart != 0 {
		t.Errorf("expected the merged span to win, got start %v", slicer.lastStart)
	}
	if slicer.lastDuration != 6 {
		t.Errorf("expected 6s excerpt, got %v", slicer.lastDuration)
	}
}

func TestResolve_ExcerptCapped(t *testing.T) {
	slicer := &fakeSlicer{}
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.95}}}
	r := New(slicer, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 120, 0),
	})

	if slicer.lastDuration != 10 {
		t.Errorf("expected excerpt capped at 10s, got %v", slicer.lastDuration)
	}
}

func TestResolve_FailuresNeverBlock(t *testing.T) {
	sentences := []models.Sentence{sentence(0, 5, 0), sentence(6, 12, 1)}

	cases := []struct {
		name string
		mk   func() *Resolver
	}{
		{"slicer fails", func() *Resolver {
			return New(&fakeSlicer{err: errors.New("ffmpeg missing")}, &embed.Mock{Vector: []float32{1, 0}}, &fakeDirectory{}, DefaultConfig())
		}},
		{"embedder fails", func() *Resolver {
			return New(&fakeSlicer{}, &embed.Mock{Err: errors.New("model offline")}, &fakeDirectory{}, DefaultConfig())
		}},
		{"directory fails", func() *Resolver {
			return New(&fakeSlicer{}, &embed.Mock{Vector: []float32{1, 0}}, &fakeDirectory{err: errors.New("db locked")}, DefaultConfig())
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			names := tc.mk().Resolve(context.Background(), "rec-1", "audio.wav", sentences)
			if len(names) != 0 {
				t.Errorf("expected no names, got %v", names)
			}
		})
	}
}

func TestResolve_PerSpeakerIndependence(t *testing.T) {
	dir := &fakeDirectory{matches: []Match{{ID: "p1", DisplayName: "Alex Rivera", Similarity: 0.9}}}
	r := New(&fakeSlicer{}, &embed.Mock{Vector: []float32{1, 0}}, dir, DefaultConfig())

	names := r.Resolve(context.Background(), "rec-1", "audio.wav", []models.Sentence{
		sentence(0, 5, 0),
		sentence(6, 7, 1), // too short to resolve
	})

	if _, ok := names[0]; !ok {
		t.Error("expected speaker 0 resolved")
	}
	if _, ok := names[1]; ok {
		t.Error("expected speaker 1 unresolved")
	}
}
