// Package chunk plans bounded windows over a long recording, cutting
// at low-energy points so no speaker turn is split mid-speech.
package chunk

import (
	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/models"
)

// Config holds the planner thresholds. Times are in seconds.
type Config struct {
	EnergyWindow  float64 // width of one energy sample
	SilenceFloor  float64 // normalized energy below this counts as silence
	MinSilence    float64 // silence interval length to qualify as a cut candidate
	SoftMin       float64 // cut at the next candidate past this
	HardMax       float64 // force a cut at this
	MaxCandidates int     // more candidates than this is a degenerate signal
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		EnergyWindow:  2,
		SilenceFloor:  0.05,
		MinSilence:    3,
		SoftMin:       600,
		HardMax:       1200,
		MaxCandidates: 50,
	}
}

// Planner computes the chunk layout for one recording.
type Planner struct {
	cfg Config
}

// New creates a planner.
func New(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan tiles [0, duration) with chunks. energy is the normalized
// short-time energy signal, one sample per EnergyWindow. Recordings at
// or under the hard maximum become a single chunk. A degenerate
// candidate set (0, 1, or too many) falls back to fixed-size chunking
// at the hard maximum.
func (p *Planner) Plan(duration float64, energy []float64) []models.Chunk {
	if duration <= 0 {
		return nil
	}
	if duration <= p.cfg.HardMax {
		return []models.Chunk{{Index: 0, Start: 0, End: duration}}
	}

	candidates := p.cutCandidates(duration, energy)
	if len(candidates) <= 1 || len(candidates) > p.cfg.MaxCandidates {
		log.Debug().
			Int("candidates", len(candidates)).
			Float64("duration", duration).
			Msg("Degenerate cut candidate set, using fixed-size chunks")
		return p.fixedChunks(duration)
	}

	var bounds []float64
	last := 0.0
	idx := 0
	for {
		cut := -1.0
		for idx < len(candidates) {
			c := candidates[idx]
			if c <= last {
				idx++
				continue
			}
			if c > last+p.cfg.HardMax {
				break
			}
			idx++
			if c >= last+p.cfg.SoftMin {
				cut = c
				break
			}
			// Candidates before the soft minimum are too close to the
			// previous cut to be worth a chunk boundary.
		}

		if cut < 0 {
			if duration-last <= p.cfg.HardMax {
				break
			}
			cut = last + p.cfg.HardMax
		}
		if cut >= duration {
			break
		}
		bounds = append(bounds, cut)
		last = cut
	}

	return tile(duration, bounds)
}

// cutCandidates finds the midpoints of silence intervals at least
// MinSilence long.
func (p *Planner) cutCandidates(duration float64, energy []float64) []float64 {
	var candidates []float64
	runStart := -1.0

	flush := func(end float64) {
		if runStart < 0 {
			return
		}
		if end > duration {
			end = duration
		}
		if end-runStart >= p.cfg.MinSilence {
			mid := (runStart + end) / 2
			if mid > 0 && mid < duration {
				candidates = append(candidates, mid)
			}
		}
		runStart = -1
	}

	for i, e := range energy {
		t := float64(i) * p.cfg.EnergyWindow
		if e < p.cfg.SilenceFloor {
			if runStart < 0 {
				runStart = t
			}
			continue
		}
		flush(t)
	}
	flush(float64(len(energy)) * p.cfg.EnergyWindow)

	return candidates
}

func (p *Planner) fixedChunks(duration float64) []models.Chunk {
	var bounds []float64
	for cut := p.cfg.HardMax; cut < duration; cut += p.cfg.HardMax {
		bounds = append(bounds, cut)
	}
	return tile(duration, bounds)
}

// tile converts interior cut points into chunks covering [0, duration)
// exactly.
func tile(duration float64, bounds []float64) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(bounds)+1)
	start := 0.0
	for _, b := range bounds {
		chunks = append(chunks, models.Chunk{Index: len(chunks), Start: start, End: b})
		start = b
	}
	chunks = append(chunks, models.Chunk{Index: len(chunks), Start: start, End: duration})
	return chunks
}
