// Package calibrate runs the diarization backend per chunk and unifies
// the chunk-local speaker labels into one global numbering by
// clustering the per-label voice embeddings.
package calibrate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/observability/metrics"
	"meeting-transcription-service/internal/service/backoff"
	"meeting-transcription-service/internal/service/diarize"
)

// Slicer extracts one window of the source audio into a temporary
// file. The returned cleanup runs unconditionally after the backend
// call.
type Slicer interface {
	Slice(ctx context.Context, src string, start, duration float64) (string, func(), error)
}

// Config tunes the calibrator.
type Config struct {
	Concurrency    int           // bounded pool for per-chunk backend calls
	MinSimilarity  float64       // clusters merge at or above this cosine similarity
	TimeoutPerHour time.Duration // per-call timeout, scaled to chunk length
	MaxRetries     int
}

// DefaultConfig returns the calibrator defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:    2,
		MinSimilarity:  0.7,
		TimeoutPerHour: 24 * time.Minute,
		MaxRetries:     3,
	}
}

// Output is the calibrated diarization for one whole recording.
// Segment times are absolute and speaker labels are globally
// consistent, though not yet normalized to a dense range.
type Output struct {
	Segments []models.DiarizationSegment
	Degraded bool // no embeddings were available, labels are per-chunk only
}

// Calibrator fans chunk diarization calls over a bounded pool and
// clusters the resulting embeddings.
type Calibrator struct {
	backend diarize.Backend
	slicer  Slicer
	cfg     Config
}

// New creates a calibrator.
func New(backend diarize.Backend, slicer Slicer, cfg Config) *Calibrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Calibrator{backend: backend, slicer: slicer, cfg: cfg}
}

// chunkResult is one chunk's answer with absolute segment times.
type chunkResult struct {
	segments   []models.DiarizationSegment
	embeddings []models.SpeakerEmbedding
}

// Run diarizes every chunk and returns globally calibrated segments.
// A failed or timed-out chunk contributes zero segments rather than
// failing the recording. With a single chunk the local labels are
// already global and clustering is skipped; with no embeddings at all
// the output is flagged degraded and each chunk's labels are kept as
// independently global.
func (c *Calibrator) Run(ctx context.Context, recordingID, src string, chunks []models.Chunk) (Output, error) {
	if len(chunks) == 0 {
		return Output{}, nil
	}

	results := make([]chunkResult, len(chunks))
	jobs := make(chan models.Chunk)
	var wg sync.WaitGroup

	workers := c.cfg.Concurrency
	if workers > len(chunks) {
		workers = len(chunks)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				results[chunk.Index] = c.diarizeChunk(ctx, recordingID, src, chunk)
			}
		}()
	}
	for _, chunk := range chunks {
		jobs <- chunk
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	if len(chunks) == 1 {
		return Output{Segments: results[0].segments}, nil
	}
	return calibrate(results, c.cfg.MinSimilarity), nil
}

// diarizeChunk slices the chunk, calls the backend with retry, and
// rebases the answer onto absolute time. Failures are logged and
// yield an empty result.
func (c *Calibrator) diarizeChunk(ctx context.Context, recordingID, src string, chunk models.Chunk) chunkResult {
	logger := log.With().Str("recordingId", recordingID).Int("chunkIndex", chunk.Index).Logger()

	callCtx, cancel := context.WithTimeout(ctx, c.timeoutFor(chunk))
	defer cancel()

	slicePath, cleanup, err := c.slicer.Slice(callCtx, src, chunk.Start, chunk.Duration())
	if err != nil {
		logger.Warn().Err(err).Msg("Chunk slice failed, contributing no segments")
		metrics.DefaultMetrics.RecordChunkCall(err)
		return chunkResult{}
	}
	defer cleanup()

	policy := backoff.DefaultPolicy("diarize")
	policy.MaxAttempts = c.cfg.MaxRetries
	res, err := backoff.Do(callCtx, policy, func(ctx context.Context) (diarize.Result, error) {
		return c.backend.Diarize(ctx, slicePath)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Chunk diarization failed, contributing no segments")
		metrics.DefaultMetrics.RecordChunkCall(err)
		return chunkResult{}
	}
	metrics.DefaultMetrics.RecordChunkCall(nil)

	out := chunkResult{}
	for _, seg := range res.Segments {
		seg.Start += chunk.Start
		seg.End += chunk.Start
		seg.ChunkIndex = chunk.Index
		if err := seg.Validate(); err != nil {
			logger.Warn().Err(err).Msg("Dropping malformed segment from backend")
			metrics.DefaultMetrics.RecordDropped("segment")
			continue
		}
		out.segments = append(out.segments, seg)
	}
	for _, emb := range res.Embeddings {
		emb.ChunkIndex = chunk.Index
		if err := emb.Validate(0); err != nil {
			logger.Warn().Err(err).Msg("Dropping malformed embedding from backend")
			metrics.DefaultMetrics.RecordDropped("embedding")
			continue
		}
		out.embeddings = append(out.embeddings, emb)
	}

	logger.Debug().
		Int("segments", len(out.segments)).
		Int("embeddings", len(out.embeddings)).
		Msg("Chunk diarized")
	return out
}

func (c *Calibrator) timeoutFor(chunk models.Chunk) time.Duration {
	timeout := time.Duration(chunk.Duration() / 3600 * float64(c.cfg.TimeoutPerHour))
	if timeout < time.Minute {
		timeout = time.Minute
	}
	return timeout
}

// labelKey identifies one chunk-local speaker label.
type labelKey struct {
	chunk int
	local int
}

// calibrate clusters the collected embeddings and rewrites every
// segment's label to its global cluster id. Local labels without an
// embedding get their own fresh global ids. When no embeddings exist
// at all, every (chunk, label) pair becomes its own global speaker and
// the output is flagged degraded.
func calibrate(results []chunkResult, minSimilarity float64) Output {
	var keys []labelKey
	var vectors [][]float32
	seen := map[labelKey]bool{}
	for _, r := range results {
		for _, emb := range r.embeddings {
			k := labelKey{chunk: emb.ChunkIndex, local: emb.LocalSpeaker}
			if seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
			vectors = append(vectors, emb.Vector)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].chunk != keys[j].chunk {
			return keys[i].chunk < keys[j].chunk
		}
		return keys[i].local < keys[j].local
	})

	degraded := len(vectors) == 0
	global := map[labelKey]int{}
	next := 0

	if !degraded {
		// Re-pair vectors with the sorted key order so clustering input
		// is deterministic regardless of chunk completion order.
		ordered := make([][]float32, len(keys))
		byKey := map[labelKey][]float32{}
		for _, r := range results {
			for _, emb := range r.embeddings {
				byKey[labelKey{chunk: emb.ChunkIndex, local: emb.LocalSpeaker}] = emb.Vector
			}
		}
		for i, k := range keys {
			ordered[i] = byKey[k]
		}

		assignment := agglomerate(ordered, 1-minSimilarity)
		for i, k := range keys {
			global[k] = assignment[i]
			if assignment[i] >= next {
				next = assignment[i] + 1
			}
		}
	}

	var out Output
	out.Degraded = degraded
	for _, r := range results {
		for _, seg := range r.segments {
			k := labelKey{chunk: seg.ChunkIndex, local: seg.LocalSpeaker}
			id, ok := global[k]
			if !ok {
				id = next
				next++
				global[k] = id
				if !degraded {
					log.Warn().
						Int("chunkIndex", k.chunk).
						Int("localSpeaker", k.local).
						Msg("Speaker label has no embedding, assigning fresh global id")
				}
			}
			seg.LocalSpeaker = id
			out.Segments = append(out.Segments, seg)
		}
	}
	sort.SliceStable(out.Segments, func(i, j int) bool {
		return out.Segments[i].Start < out.Segments[j].Start
	})
	return out
}
