// Package align maps transcription units onto speaker labels by
// temporal overlap against globally calibrated diarization segments.
package align

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/models"
)

// Labeled is one transcription unit with its assigned speaker.
type Labeled struct {
	Unit    models.TranscriptionUnit
	Speaker int
}

// Aligner assigns speakers to units. Segments must carry globally
// calibrated speaker ids before alignment.
type Aligner struct {
	segments []models.DiarizationSegment // start-sorted
}

// New builds an aligner over the given segments. Malformed segments
// are dropped with a warning; the remainder is sorted by start time.
func New(segments []models.DiarizationSegment) *Aligner {
	kept := make([]models.DiarizationSegment, 0, len(segments))
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed diarization segment")
			continue
		}
		kept = append(kept, seg)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return &Aligner{segments: kept}
}

// Speaker returns the speaker for the unit. The containing segment at
// the unit's midpoint wins; on a coverage gap the segment whose center
// is nearest the midpoint wins, ties going to the earliest segment.
// With no segments at all the default speaker 0 is returned, so every
// unit always receives a speaker.
func (a *Aligner) Speaker(unit models.TranscriptionUnit) int {
	if len(a.segments) == 0 {
		return 0
	}

	tm := unit.Midpoint()

	// First segment starting after tm; containment can only happen at
	// or before that position.
	idx := sort.Search(len(a.segments), func(i int) bool {
		return a.segments[i].Start > tm
	})
	for i := idx - 1; i >= 0; i-- {
		if a.segments[i].Contains(tm) {
			return a.segments[i].LocalSpeaker
		}
	}

	// Coverage gap: nearest segment center wins, earliest on a tie.
	best := 0
	bestDist := math.Abs(a.segments[0].Center() - tm)
	for i := 1; i < len(a.segments); i++ {
		if d := math.Abs(a.segments[i].Center() - tm); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return a.segments[best].LocalSpeaker
}

// Label assigns a speaker to every unit, preserving order.
func (a *Aligner) Label(units []models.TranscriptionUnit) []Labeled {
	out := make([]Labeled, 0, len(units))
	for _, u := range units {
		if err := u.Validate(); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed transcription unit")
			continue
		}
		out = append(out, Labeled{Unit: u, Speaker: a.Speaker(u)})
	}
	return out
}
