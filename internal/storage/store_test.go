package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"meeting-transcription-service/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetTranscript(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := &models.Transcript{
		RecordingID: "rec-1",
		Duration:    123.5,
		Degraded:    false,
		Sentences: []models.Sentence{
			{Text: "Good morning everyone.", Start: 0.2, End: 2.1, Speaker: 0},
			{Text: "Morning, let's start.", Start: 2.8, End: 4.9, Speaker: 1},
		},
		SpeakerName: map[int]string{0: "Alex Rivera"},
	}
	if err := s.SaveTranscript(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.GetTranscript(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Duration != 123.5 || out.Degraded {
		t.Errorf("unexpected transcript header: %+v", out)
	}
	if len(out.Sentences) != 2 || out.Sentences[1].Speaker != 1 {
		t.Errorf("unexpected sentences: %+v", out.Sentences)
	}
	if out.SpeakerName[0] != "Alex Rivera" {
		t.Errorf("unexpected speaker names: %v", out.SpeakerName)
	}
}

func TestSaveTranscript_Replaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &models.Transcript{
		RecordingID: "rec-1",
		Duration:    60,
		Sentences:   []models.Sentence{{Text: "old", Start: 0, End: 1, Speaker: 0}},
	}
	second := &models.Transcript{
		RecordingID: "rec-1",
		Duration:    61,
		Degraded:    true,
		Sentences: []models.Sentence{
			{Text: "new one", Start: 0, End: 1, Speaker: 0},
			{Text: "new two", Start: 1, End: 2, Speaker: 1},
		},
	}
	if err := s.SaveTranscript(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTranscript(ctx, second); err != nil {
		t.Fatal(err)
	}

	out, err := s.GetTranscript(ctx, "rec-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Sentences) != 2 || out.Sentences[0].Text != "new one" {
		t.Errorf("expected replacement, got %+v", out.Sentences)
	}
	if !out.Degraded {
		t.Error("expected degraded flag persisted")
	}
}

func TestGetTranscript_Missing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetTranscript(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDirectory_QueryRanksBySimilarity(t *testing.T) {
	s := openTestStore(t)
	d := NewDirectory(s)
	ctx := context.Background()

	enroll := []models.EnrolledIdentity{
		{ID: "p1", DisplayName: "Alex Rivera", Vector: []float32{1, 0, 0}},
		{ID: "p2", DisplayName: "Sam Chen", Vector: []float32{0, 1, 0}},
		{ID: "p3", DisplayName: "Priya Patel", Vector: []float32{0.9, 0.1, 0}},
	}
	for _, e := range enroll {
		if err := d.Enroll(ctx, e); err != nil {
			t.Fatalf("enroll: %v", err)
		}
	}

	matches, err := d.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected topK 2, got %d", len(matches))
	}
	if matches[0].ID != "p1" || matches[1].ID != "p3" {
		t.Errorf("unexpected ranking: %+v", matches)
	}
	if matches[0].Similarity < 0.999 {
		t.Errorf("expected near-perfect similarity, got %v", matches[0].Similarity)
	}
}

func TestDirectory_QueryEmpty(t *testing.T) {
	s := openTestStore(t)
	d := NewDirectory(s)

	matches, err := d.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %+v", matches)
	}
}

func TestDirectory_EnrollReplaces(t *testing.T) {
	s := openTestStore(t)
	d := NewDirectory(s)
	ctx := context.Background()

	if err := d.Enroll(ctx, models.EnrolledIdentity{ID: "p1", DisplayName: "Old Name", Vector: []float32{1, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := d.Enroll(ctx, models.EnrolledIdentity{ID: "p1", DisplayName: "New Name", Vector: []float32{1, 0}}); err != nil {
		t.Fatal(err)
	}

	matches, err := d.Query(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].DisplayName != "New Name" {
		t.Errorf("expected replacement, got %+v", matches)
	}
}
