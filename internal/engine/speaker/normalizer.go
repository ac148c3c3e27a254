// Package speaker renumbers global speaker ids into a dense range
// ordered by first appearance.
package speaker

import (
	"sort"

	"meeting-transcription-service/internal/models"
)

// Normalize rewrites every sentence's speaker so the id set is exactly
// {0,...,N-1}, with speaker 0 being whoever talks first. The input
// order is preserved. Running it on already-normalized sentences is a
// no-op.
func Normalize(sentences []models.Sentence) []models.Sentence {
	mapping := Mapping(sentences)
	out := make([]models.Sentence, len(sentences))
	for i, s := range sentences {
		s.Speaker = mapping[s.Speaker]
		out[i] = s
	}
	return out
}

// Mapping returns the bijection raw id -> dense id, ordered by each
// speaker's earliest sentence start. Ties break on the smaller raw id.
func Mapping(sentences []models.Sentence) map[int]int {
	earliest := map[int]float64{}
	for _, s := range sentences {
		if t, ok := earliest[s.Speaker]; !ok || s.Start < t {
			earliest[s.Speaker] = s.Start
		}
	}

	raw := make([]int, 0, len(earliest))
	for id := range earliest {
		raw = append(raw, id)
	}
	sort.Slice(raw, func(i, j int) bool {
		if earliest[raw[i]] != earliest[raw[j]] {
			return earliest[raw[i]] < earliest[raw[j]]
		}
		return raw[i] < raw[j]
	})

	mapping := make(map[int]int, len(raw))
	for dense, id := range raw {
		mapping[id] = dense
	}
	return mapping
}
