package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/app"
	"meeting-transcription-service/internal/audio"
	"meeting-transcription-service/internal/config"
	"meeting-transcription-service/internal/engine/calibrate"
	"meeting-transcription-service/internal/engine/chunk"
	"meeting-transcription-service/internal/engine/identity"
	"meeting-transcription-service/internal/engine/pipeline"
	"meeting-transcription-service/internal/engine/sentence"
	"meeting-transcription-service/internal/events"
	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/observability"
	"meeting-transcription-service/internal/service/diarize"
	"meeting-transcription-service/internal/service/embed"
	"meeting-transcription-service/internal/service/stt"
	"meeting-transcription-service/internal/service/stt/asyncpoll"
	"meeting-transcription-service/internal/service/stt/google"
	"meeting-transcription-service/internal/service/stt/mock"
	"meeting-transcription-service/internal/storage"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.NewServer(cfg.Observability.MetricsAddr, func() bool { return true })
	obs.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	}()

	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open transcript store")
	}
	defer store.Close()

	engine, err := buildEngine(ctx, cfg, store, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build engine")
	}

	paths := os.Args[1:]
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: meeting-transcription-service <audio file> [audio file ...]")
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		transcript, err := engine.Process(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("audio", path).Msg("Recording failed")
			exitCode = 1
			continue
		}
		printTranscript(transcript)
	}
	os.Exit(exitCode)
}

// buildEngine wires the configured backends into one pipeline. Every
// client is created here once and handed down; nothing deeper opens
// its own connections.
func buildEngine(ctx context.Context, cfg *config.Configuration, store *storage.Store, publisher *events.Publisher) (*pipeline.Engine, error) {
	transcriber, err := buildTranscriber(ctx, cfg)
	if err != nil {
		return nil, err
	}

	processor := audio.NewProcessor(os.Getenv("FFMPEG_PATH"), "")

	var backend diarize.Backend
	if cfg.Diarization.BackendURL != "" {
		backend = diarize.NewHTTPClient(cfg.Diarization.BackendURL)
	} else {
		log.Warn().Msg("No diarization backend configured, using empty mock")
		backend = diarize.NewMock()
	}
	calibrator := calibrate.New(backend, processor, calibrate.Config{
		Concurrency:    cfg.Diarization.Concurrency,
		MinSimilarity:  cfg.Diarization.MinSimilarity,
		TimeoutPerHour: cfg.Diarization.TimeoutPerHour,
		MaxRetries:     cfg.Diarization.MaxRetries,
	})

	var resolver pipeline.Resolver
	if cfg.Identity.Enabled && cfg.Diarization.EmbeddingURL != "" {
		resolver = identity.New(
			processor,
			embed.NewHTTPClient(cfg.Diarization.EmbeddingURL),
			storage.NewDirectory(store),
			identity.Config{
				MinSimilarity: cfg.Identity.MinSimilarity,
				MinSpan:       cfg.Identity.MinSpan.Seconds(),
				MaxExcerpt:    cfg.Identity.MaxExcerpt.Seconds(),
				TopK:          cfg.Identity.TopK,
			},
		)
	}

	return pipeline.New(transcriber, calibrator, processor, resolver, store, publisher, pipeline.Config{
		EnergyWindow:         cfg.Chunking.EnergyWindow.Seconds(),
		TimeoutPerHour:       cfg.Diarization.TimeoutPerHour,
		TranscriptionTimeout: cfg.Transcription.Timeout,
		SentenceConfig: sentence.Config{
			SpeakerChangeGap: cfg.Sentences.SpeakerChangeGap.Seconds(),
			PunctuationGap:   cfg.Sentences.PunctuationGap.Seconds(),
			HardGap:          cfg.Sentences.HardGap.Seconds(),
			MinLength:        cfg.Sentences.MinLength,
			MergeGap:         cfg.Sentences.MergeGap.Seconds(),
		},
		PlannerConfig: chunk.Config{
			EnergyWindow:  cfg.Chunking.EnergyWindow.Seconds(),
			SilenceFloor:  cfg.Chunking.SilenceFloor,
			MinSilence:    cfg.Chunking.MinSilence.Seconds(),
			SoftMin:       cfg.Chunking.SoftMin.Seconds(),
			HardMax:       cfg.Chunking.HardMax.Seconds(),
			MaxCandidates: cfg.Chunking.MaxCandidates,
		},
	}), nil
}

func buildTranscriber(ctx context.Context, cfg *config.Configuration) (stt.Transcriber, error) {
	switch stt.Name(cfg.Transcription.Provider) {
	case stt.ProviderGoogle:
		return google.New(ctx, cfg.Transcription.LanguageCode, cfg.Transcription.SampleRateHz)
	case stt.ProviderAsyncPoll:
		if cfg.Transcription.BackendURL == "" {
			return nil, fmt.Errorf("asyncpoll provider requires a transcription backend URL")
		}
		backend := asyncpoll.NewHTTPBackend(cfg.Transcription.BackendURL)
		return asyncpoll.New(backend, cfg.Transcription.PollInterval, cfg.Transcription.MaxWait), nil
	case stt.ProviderMock:
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}

func printTranscript(t *models.Transcript) {
	for _, s := range t.Sentences {
		name := t.SpeakerName[s.Speaker]
		if name == "" {
			name = fmt.Sprintf("Speaker %d", s.Speaker)
		}
		fmt.Printf("[%8.2f - %8.2f] %s: %s\n", s.Start, s.End, name, s.Text)
	}
}
