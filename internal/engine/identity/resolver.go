// Package identity annotates final speakers with enrolled display
// names via voiceprint matching. Resolution is additive: any failure
// leaves the speaker as a bare integer id and never blocks the
// transcript.
package identity

import (
	"context"

	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/observability/metrics"
	"meeting-transcription-service/internal/service/backoff"
	"meeting-transcription-service/internal/service/embed"
)

// Match is one directory answer, ordered by descending similarity.
type Match struct {
	ID          string
	DisplayName string
	Similarity  float64
}

// Directory is the read-only enrolled-voice index.
type Directory interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// Slicer extracts one excerpt of the source audio into a temporary
// file.
type Slicer interface {
	Slice(ctx context.Context, src string, start, duration float64) (string, func(), error)
}

// Config tunes the resolver.
type Config struct {
	MinSimilarity float64 // accept a match at or above this
	MinSpan       float64 // seconds; shortest usable speaker span
	MaxExcerpt    float64 // seconds; cap on the extracted excerpt
	TopK          int
}

// DefaultConfig returns the resolver defaults.
func DefaultConfig() Config {
	return Config{
		MinSimilarity: 0.75,
		MinSpan:       2,
		MaxExcerpt:    10,
		TopK:          3,
	}
}

// Resolver matches speakers against the directory.
type Resolver struct {
	slicer    Slicer
	embedder  embed.Backend
	directory Directory
	cfg       Config
}

// New creates a resolver.
func New(slicer Slicer, embedder embed.Backend, directory Directory, cfg Config) *Resolver {
	return &Resolver{slicer: slicer, embedder: embedder, directory: directory, cfg: cfg}
}

// Resolve returns display names for whichever speakers match an
// enrolled voice. Speakers without a usable span, without a directory
// hit, or hit by any backend failure are simply absent from the
// result.
func (r *Resolver) Resolve(ctx context.Context, recordingID, src string, sentences []models.Sentence) map[int]string {
	names := map[int]string{}
	for speaker, span := range longestSpans(sentences) {
		if span.length() < r.cfg.MinSpan {
			continue
		}
		name, ok := r.resolveOne(ctx, recordingID, src, speaker, span)
		if ok {
			names[speaker] = name
		}
	}
	return names
}

func (r *Resolver) resolveOne(ctx context.Context, recordingID, src string, speaker int, span span) (string, bool) {
	logger := log.With().Str("recordingId", recordingID).Int("speaker", speaker).Logger()

	length := span.length()
	if length > r.cfg.MaxExcerpt {
		length = r.cfg.MaxExcerpt
	}

	excerpt, cleanup, err := r.slicer.Slice(ctx, src, span.start, length)
	if err != nil {
		logger.Warn().Err(err).Msg("Identity excerpt extraction failed, speaker stays unresolved")
		return "", false
	}
	defer cleanup()

	vector, err := backoff.Do(ctx, backoff.DefaultPolicy("embed"), func(ctx context.Context) ([]float32, error) {
		return r.embedder.Embed(ctx, excerpt)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Identity embedding failed, speaker stays unresolved")
		return "", false
	}

	matches, err := r.directory.Query(ctx, vector, r.cfg.TopK)
	if err != nil {
		logger.Warn().Err(err).Msg("Directory query failed, speaker stays unresolved")
		return "", false
	}
	if len(matches) == 0 || matches[0].Similarity < r.cfg.MinSimilarity {
		return "", false
	}

	logger.Info().
		Str("identity", matches[0].ID).
		Float64("similarity", matches[0].Similarity).
		Msg("Speaker resolved to enrolled identity")
	metrics.DefaultMetrics.RecordIdentityMatch()
	return matches[0].DisplayName, true
}

type span struct {
	start, end float64
}

func (s span) length() float64 {
	return s.end - s.start
}

// longestSpans finds, per speaker, the longest contiguous run of that
// speaker's sentences. Sentences count as contiguous when the next one
// starts before the previous ends plus a small slack.
func longestSpans(sentences []models.Sentence) map[int]span {
	const slack = 0.5

	best := map[int]span{}
	var cur span
	curSpeaker := -1

	commit := func() {
		if curSpeaker < 0 {
			return
		}
		if b, ok := best[curSpeaker]; !ok || cur.length() > b.length() {
			best[curSpeaker] = cur
		}
	}

	for _, s := range sentences {
		if s.Speaker == curSpeaker && s.Start <= cur.end+slack {
			if s.End > cur.end {
				cur.end = s.End
			}
			continue
		}
		commit()
		curSpeaker = s.Speaker
		cur = span{start: s.Start, end: s.End}
	}
	commit()
	return best
}
