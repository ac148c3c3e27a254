package align

import (
	"testing"

	"meeting-transcription-service/internal/models"
)

func unit(start, end float64) models.TranscriptionUnit {
	return models.TranscriptionUnit{Text: "word", Start: start, End: end}
}

func seg(start, end float64, speaker int) models.DiarizationSegment {
	return models.DiarizationSegment{Start: start, End: end, LocalSpeaker: speaker}
}

func TestSpeaker_MidpointContainment(t *testing.T) {
	a := New([]models.DiarizationSegment{
		seg(0, 5, 0),
		seg(5.1, 10, 1),
	})

	if got := a.Speaker(unit(1, 3)); got != 0 {
		t.Errorf("expected speaker 0, got %d", got)
	}
	if got := a.Speaker(unit(6, 8)); got != 1 {
		t.Errorf("expected speaker 1, got %d", got)
	}
}

func TestSpeaker_CoverageGap_NearestCenter(t *testing.T) {
	a := New([]models.DiarizationSegment{
		seg(0, 2, 0),   // center 1.0
		seg(10, 14, 1), // center 12.0
	})

	// Midpoint 4.0 is in the gap; nearer to center 1.0 than 12.0.
	if got := a.Speaker(unit(3.5, 4.5)); got != 0 {
		t.Errorf("expected speaker 0, got %d", got)
	}
	// Midpoint 9.0 is nearer to center 12.0.
	if got := a.Speaker(unit(8.5, 9.5)); got != 1 {
		t.Errorf("expected speaker 1, got %d", got)
	}
}

func TestSpeaker_GapTie_EarliestSegmentWins(t *testing.T) {
	a := New([]models.DiarizationSegment{
		seg(0, 2, 3),  // center 1.0
		seg(6, 8, 7),  // center 7.0
	})

	// Midpoint 4.0 is equidistant from both centers.
	if got := a.Speaker(unit(3.5, 4.5)); got != 3 {
		t.Errorf("expected earliest segment's speaker 3, got %d", got)
	}
}

func TestSpeaker_Totality(t *testing.T) {
	cases := []struct {
		name     string
		segments []models.DiarizationSegment
	}{
		{"no segments", nil},
		{"unit before all segments", []models.DiarizationSegment{seg(100, 110, 2)}},
		{"unit after all segments", []models.DiarizationSegment{seg(0, 1, 2)}},
		{"only malformed segments", []models.DiarizationSegment{{Start: 5, End: 1, LocalSpeaker: 4}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New(tc.segments)
			// Must always return some speaker, never panic.
			_ = a.Speaker(unit(40, 42))
		})
	}
}

func TestSpeaker_OverlappingSegments(t *testing.T) {
	a := New([]models.DiarizationSegment{
		seg(0, 10, 0),
		seg(4, 6, 1),
	})

	// Midpoint 5.0 sits in both; the later-starting containing segment
	// is found first walking back from the insertion point.
	if got := a.Speaker(unit(4.8, 5.2)); got != 1 {
		t.Errorf("expected speaker 1, got %d", got)
	}
}

func TestLabel_DropsMalformedUnits(t *testing.T) {
	a := New([]models.DiarizationSegment{seg(0, 10, 0)})

	labeled := a.Label([]models.TranscriptionUnit{
		{Text: "ok", Start: 1, End: 2},
		{Text: "bad", Start: 5, End: 3},
		{Text: "also ok", Start: 6, End: 7},
	})

	if len(labeled) != 2 {
		t.Fatalf("expected 2 labeled units, got %d", len(labeled))
	}
	for _, l := range labeled {
		if l.Speaker != 0 {
			t.Errorf("expected speaker 0, got %d", l.Speaker)
		}
	}
}

func TestLabel_PreservesOrder(t *testing.T) {
	a := New([]models.DiarizationSegment{seg(0, 100, 5)})

	units := []models.TranscriptionUnit{
		{Text: "a", Start: 0, End: 1},
		{Text: "b", Start: 1, End: 2},
		{Text: "c", Start: 2, End: 3},
	}
	labeled := a.Label(units)

	for i, l := range labeled {
		if l.Unit.Text != units[i].Text {
			t.Errorf("position %d: expected %q, got %q", i, units[i].Text, l.Unit.Text)
		}
	}
}
