// Package pipeline orchestrates one recording end to end: it runs the
// transcription call and the diarization pipeline concurrently, fuses
// the results into speaker-attributed sentences, and emits the final
// transcript to storage and the event bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/engine/align"
	"meeting-transcription-service/internal/engine/calibrate"
	"meeting-transcription-service/internal/engine/chunk"
	"meeting-transcription-service/internal/engine/sentence"
	"meeting-transcription-service/internal/engine/speaker"
	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/observability/logging"
	"meeting-transcription-service/internal/observability/metrics"
	"meeting-transcription-service/internal/service/backoff"
	"meeting-transcription-service/internal/service/stt"
)

// Diarizer runs the per-chunk diarization and global calibration.
type Diarizer interface {
	Run(ctx context.Context, recordingID, src string, chunks []models.Chunk) (calibrate.Output, error)
}

// EnergyScanner produces the coarse energy profile the chunk planner
// consumes, plus the recording duration.
type EnergyScanner interface {
	EnergyProfile(ctx context.Context, src string, window float64) ([]float64, float64, error)
}

// Resolver annotates speakers with enrolled display names.
type Resolver interface {
	Resolve(ctx context.Context, recordingID, src string, sentences []models.Sentence) map[int]string
}

// TranscriptStore persists finished transcripts.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t *models.Transcript) error
}

// EventPublisher emits lifecycle events for finished recordings.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, recordingID string, event any) error
	PublishFailed(ctx context.Context, recordingID string, event any) error
}

// Config tunes the orchestrator.
type Config struct {
	EnergyWindow         float64       // seconds per energy sample
	TimeoutPerHour       time.Duration // overall deadline, scaled to audio length
	TranscriptionTimeout time.Duration // cap on the transcription call alone
	SentenceConfig       sentence.Config
	PlannerConfig        chunk.Config
}

// Engine is the fusion pipeline for one service instance. Create it
// once and share it; every dependency is injected and no global
// connection state hides inside.
type Engine struct {
	transcriber stt.Transcriber
	diarizer    Diarizer
	scanner     EnergyScanner
	resolver    Resolver // nil disables identity resolution
	store       TranscriptStore
	publisher   EventPublisher
	cfg         Config
}

// New creates the engine. resolver, store and publisher may be nil.
func New(transcriber stt.Transcriber, diarizer Diarizer, scanner EnergyScanner, resolver Resolver, store TranscriptStore, publisher EventPublisher, cfg Config) *Engine {
	return &Engine{
		transcriber: transcriber,
		diarizer:    diarizer,
		scanner:     scanner,
		resolver:    resolver,
		store:       store,
		publisher:   publisher,
		cfg:         cfg,
	}
}

type diarizationAnswer struct {
	output   calibrate.Output
	duration float64
	chunks   int
	err      error
}

type transcriptionAnswer struct {
	units []models.TranscriptionUnit
	err   error
}

// Process turns one audio file into a speaker-attributed transcript.
// Transcription and diarization run concurrently; only an empty
// transcript fails the recording. A failed diarization side degrades
// to a single-speaker transcript instead of failing.
func (e *Engine) Process(ctx context.Context, audioPath string) (*models.Transcript, error) {
	recordingID := uuid.New().String()
	logger := logging.WithRecording(recordingID)
	logger.Info().Str("audio", audioPath).Msg("Processing recording")
	metrics.DefaultMetrics.RecordRecordingStart()
	started := time.Now()

	transcript, err := e.process(ctx, recordingID, audioPath)
	if err != nil {
		metrics.DefaultMetrics.RecordRecordingEnd(false, time.Since(started).Seconds())
		logger.Error().Err(err).Msg("Recording failed")
		e.publishFailed(recordingID, err)
		return nil, err
	}

	metrics.DefaultMetrics.RecordRecordingEnd(true, time.Since(started).Seconds())
	metrics.DefaultMetrics.RecordFusionResult(transcript.SpeakerCount(), len(transcript.Sentences))
	logger.Info().
		Int("sentences", len(transcript.Sentences)).
		Int("speakers", transcript.SpeakerCount()).
		Bool("degraded", transcript.Degraded).
		Msg("Recording processed")
	e.publishCompleted(transcript)
	return transcript, nil
}

func (e *Engine) process(parent context.Context, recordingID, audioPath string) (*models.Transcript, error) {
	logger := logging.WithRecording(recordingID)

	// The scanner pass is cheap next to the backend calls, so the
	// overall deadline is scaled from its duration answer before the
	// expensive work starts.
	profile, duration, scanErr := e.scanner.EnergyProfile(parent, audioPath, e.cfg.EnergyWindow)
	if scanErr != nil {
		logger.Warn().Err(scanErr).Msg("Energy scan failed, diarization will run degraded")
	}

	ctx := parent
	if scanErr == nil && e.cfg.TimeoutPerHour > 0 {
		deadline := e.overallTimeout(duration)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, deadline)
		defer cancel()
	}

	transcriptionCh := make(chan transcriptionAnswer, 1)
	diarizationCh := make(chan diarizationAnswer, 1)

	go func() {
		callCtx := ctx
		if e.cfg.TranscriptionTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.TranscriptionTimeout)
			defer cancel()
		}
		units, err := backoff.Do(callCtx, backoff.DefaultPolicy("transcription"), func(ctx context.Context) ([]models.TranscriptionUnit, error) {
			return e.transcriber.Transcribe(ctx, audioPath)
		})
		transcriptionCh <- transcriptionAnswer{units: units, err: err}
	}()

	go func() {
		if scanErr != nil {
			diarizationCh <- diarizationAnswer{err: fmt.Errorf("%v: %w", scanErr, models.ErrDegradedInput)}
			return
		}
		planner := chunk.New(e.cfg.PlannerConfig)
		chunks := planner.Plan(duration, profile)
		metrics.DefaultMetrics.RecordChunkPlan(len(chunks))
		out, err := e.diarizer.Run(ctx, recordingID, audioPath, chunks)
		diarizationCh <- diarizationAnswer{output: out, duration: duration, chunks: len(chunks), err: err}
	}()

	transcription := <-transcriptionCh
	diarization := <-diarizationCh

	if transcription.err != nil {
		return nil, fmt.Errorf("transcription failed: %v: %w", transcription.err, models.ErrNoTranscript)
	}
	if len(transcription.units) == 0 {
		return nil, models.ErrNoTranscript
	}

	degraded := diarization.output.Degraded
	if diarization.err != nil {
		// Sequential fallback: keep the transcript, label everything as
		// one speaker through the aligner's empty-segment default.
		logger.Warn().Err(diarization.err).Msg("Diarization pipeline failed, producing single-speaker transcript")
		metrics.DefaultMetrics.RecordDegraded("no-diarization")
		diarization.output = calibrate.Output{}
		degraded = true
	} else if degraded {
		metrics.DefaultMetrics.RecordDegraded("no-embeddings")
	}

	aligner := align.New(diarization.output.Segments)
	labeled := aligner.Label(transcription.units)
	sentences := sentence.New(e.cfg.SentenceConfig).Aggregate(labeled)
	sentences = speaker.Normalize(sentences)

	transcript := &models.Transcript{
		RecordingID: recordingID,
		Sentences:   sentences,
		Degraded:    degraded,
		Duration:    duration,
	}
	if len(sentences) == 0 {
		return nil, models.ErrNoTranscript
	}

	if e.resolver != nil {
		transcript.SpeakerName = e.resolver.Resolve(ctx, recordingID, audioPath, sentences)
	}

	if e.store != nil {
		if err := e.store.SaveTranscript(parent, transcript); err != nil {
			// Persistence is best-effort: the caller still gets the
			// transcript.
			logger.Warn().Err(err).Msg("Failed to persist transcript")
		}
	}
	return transcript, nil
}

func (e *Engine) overallTimeout(duration float64) time.Duration {
	timeout := time.Duration(duration / 3600 * float64(e.cfg.TimeoutPerHour))
	if timeout < 2*time.Minute {
		timeout = 2 * time.Minute
	}
	return timeout
}

func (e *Engine) publishCompleted(t *models.Transcript) {
	if e.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	event := models.TranscriptCompleted{
		EventType:   "transcript.completed",
		RecordingID: t.RecordingID,
		Timestamp:   time.Now().UnixMilli(),
		Sentences:   t.Sentences,
		Speakers:    t.SpeakerCount(),
		Degraded:    t.Degraded,
	}
	if err := e.publisher.PublishCompleted(ctx, t.RecordingID, event); err != nil {
		log.Warn().Err(err).Str("recordingId", t.RecordingID).Msg("Failed to publish completion event")
	}
}

func (e *Engine) publishFailed(recordingID string, cause error) {
	if e.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	event := models.TranscriptFailed{
		EventType:   "transcript.failed",
		RecordingID: recordingID,
		Timestamp:   time.Now().UnixMilli(),
		Reason:      cause.Error(),
	}
	if err := e.publisher.PublishFailed(ctx, recordingID, event); err != nil {
		log.Warn().Err(err).Str("recordingId", recordingID).Msg("Failed to publish failure event")
	}
}

// IsHardFailure reports whether err means no transcript could be
// produced at all.
func IsHardFailure(err error) bool {
	return errors.Is(err, models.ErrNoTranscript)
}
