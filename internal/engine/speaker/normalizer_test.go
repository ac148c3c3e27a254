package speaker

import (
	"reflect"
	"testing"

	"meeting-transcription-service/internal/models"
)

func sentence(start float64, speaker int) models.Sentence {
	return models.Sentence{Text: "something", Start: start, End: start + 1, Speaker: speaker}
}

func speakerIDs(sentences []models.Sentence) []int {
	ids := make([]int, len(sentences))
	for i, s := range sentences {
		ids[i] = s.Speaker
	}
	return ids
}

func TestNormalize_OrderedByFirstAppearance(t *testing.T) {
	got := Normalize([]models.Sentence{
		sentence(0, 7),
		sentence(5, 3),
		sentence(10, 7),
		sentence(15, 12),
	})

	want := []int{0, 1, 0, 2}
	if !reflect.DeepEqual(speakerIDs(got), want) {
		t.Errorf("got %v, want %v", speakerIDs(got), want)
	}
}

func TestNormalize_DenseRange(t *testing.T) {
	got := Normalize([]models.Sentence{
		sentence(0, 100),
		sentence(1, -5),
		sentence(2, 42),
	})

	seen := map[int]bool{}
	for _, s := range got {
		seen[s.Speaker] = true
	}
	for id := 0; id < len(seen); id++ {
		if !seen[id] {
			t.Errorf("id set has a gap at %d: %v", id, speakerIDs(got))
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := []models.Sentence{
		sentence(0, 4),
		sentence(3, 9),
		sentence(6, 4),
		sentence(9, 1),
	}

	once := Normalize(in)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent: %v vs %v", speakerIDs(once), speakerIDs(twice))
	}
}

func TestNormalize_TieBreaksOnRawID(t *testing.T) {
	got := Normalize([]models.Sentence{
		sentence(0, 9),
		sentence(0, 2),
	})

	// Same start time: the smaller raw id wins the lower dense id.
	if got[1].Speaker != 0 || got[0].Speaker != 1 {
		t.Errorf("unexpected tie break: %v", speakerIDs(got))
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
}

func TestNormalize_InputNotMutated(t *testing.T) {
	in := []models.Sentence{sentence(0, 5)}
	Normalize(in)
	if in[0].Speaker != 5 {
		t.Error("input slice was mutated")
	}
}
