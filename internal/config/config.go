// Package config loads service configuration from an optional YAML file
// overlaid with environment variables. Every hand-tuned engine constant
// (pause thresholds, silence minimum, clustering similarity) is a
// configurable default here, not a hard-coded behavior.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the root configuration for the service.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Diarization   DiarizationConfig   `yaml:"diarization"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Sentences     SentenceConfig      `yaml:"sentences"`
	Identity      IdentityConfig      `yaml:"identity"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal string `yaml:"principal"`
}

// TranscriptionConfig selects and tunes the transcription backend.
type TranscriptionConfig struct {
	Provider     string        `yaml:"provider"` // mock, google, asyncpoll
	BackendURL   string        `yaml:"backendUrl"` // asyncpoll provider
	LanguageCode string        `yaml:"languageCode"`
	SampleRateHz int           `yaml:"sampleRateHz"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"pollInterval"` // asyncpoll provider
	MaxWait      time.Duration `yaml:"maxWait"`      // asyncpoll provider
}

// DiarizationConfig tunes the per-chunk diarizer and global calibrator.
type DiarizationConfig struct {
	BackendURL     string        `yaml:"backendUrl"`
	EmbeddingURL   string        `yaml:"embeddingUrl"`
	Concurrency    int           `yaml:"concurrency"`    // per-chunk worker pool
	MinSimilarity  float64       `yaml:"minSimilarity"`  // cluster merge threshold
	TimeoutPerHour time.Duration `yaml:"timeoutPerHour"` // scaled per chunk length
	MaxRetries     int           `yaml:"maxRetries"`
}

// ChunkingConfig tunes the chunk planner.
type ChunkingConfig struct {
	EnergyWindow  time.Duration `yaml:"energyWindow"`
	SilenceFloor  float64       `yaml:"silenceFloor"` // normalized energy below this is silent
	MinSilence    time.Duration `yaml:"minSilence"`   // silence interval to qualify as a cut candidate
	SoftMin       time.Duration `yaml:"softMin"`      // cut at next candidate past this
	HardMax       time.Duration `yaml:"hardMax"`      // force a cut at this
	MaxCandidates int           `yaml:"maxCandidates"`
}

// SentenceConfig tunes the sentence aggregator.
type SentenceConfig struct {
	SpeakerChangeGap time.Duration `yaml:"speakerChangeGap"`
	PunctuationGap   time.Duration `yaml:"punctuationGap"`
	HardGap          time.Duration `yaml:"hardGap"`
	MinLength        int           `yaml:"minLength"` // runes; shorter sentences merge backward
	MergeGap         time.Duration `yaml:"mergeGap"`
}

// IdentityConfig tunes the enrolled-voice resolver.
type IdentityConfig struct {
	Enabled       bool          `yaml:"enabled"`
	MinSimilarity float64       `yaml:"minSimilarity"`
	MinSpan       time.Duration `yaml:"minSpan"`    // shortest usable speaker span
	MaxExcerpt    time.Duration `yaml:"maxExcerpt"` // cap on extracted excerpt length
	TopK          int           `yaml:"topK"`
}

// KafkaConfig holds event publishing configuration.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	TopicCompleted string   `yaml:"topicCompleted"`
	TopicFailed    string   `yaml:"topicFailed"`
	Principal      string   `yaml:"principal"`
}

// StorageConfig holds transcript store settings.
type StorageConfig struct {
	DatabasePath string `yaml:"databasePath"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"logLevel"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variable overrides.
func Load() *Configuration {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			// A broken file keeps the defaults rather than aborting startup.
			applyFile(cfg, raw)
		}
	}

	applyEnv(cfg)
	return cfg
}

// fileConfig mirrors Configuration with durations as strings so the YAML
// file can say "10m" or "500ms". Parsed once here, never re-sniffed
// deeper in the engine.
type fileConfig struct {
	Service struct {
		Principal string `yaml:"principal"`
	} `yaml:"service"`
	Transcription struct {
		Provider     string `yaml:"provider"`
		BackendURL   string `yaml:"backendUrl"`
		LanguageCode string `yaml:"languageCode"`
		SampleRateHz int    `yaml:"sampleRateHz"`
		Timeout      string `yaml:"timeout"`
		PollInterval string `yaml:"pollInterval"`
		MaxWait      string `yaml:"maxWait"`
	} `yaml:"transcription"`
	Diarization struct {
		BackendURL     string  `yaml:"backendUrl"`
		EmbeddingURL   string  `yaml:"embeddingUrl"`
		Concurrency    int     `yaml:"concurrency"`
		MinSimilarity  float64 `yaml:"minSimilarity"`
		TimeoutPerHour string  `yaml:"timeoutPerHour"`
		MaxRetries     int     `yaml:"maxRetries"`
	} `yaml:"diarization"`
	Chunking struct {
		EnergyWindow  string  `yaml:"energyWindow"`
		SilenceFloor  float64 `yaml:"silenceFloor"`
		MinSilence    string  `yaml:"minSilence"`
		SoftMin       string  `yaml:"softMin"`
		HardMax       string  `yaml:"hardMax"`
		MaxCandidates int     `yaml:"maxCandidates"`
	} `yaml:"chunking"`
	Sentences struct {
		SpeakerChangeGap string `yaml:"speakerChangeGap"`
		PunctuationGap   string `yaml:"punctuationGap"`
		HardGap          string `yaml:"hardGap"`
		MinLength        int    `yaml:"minLength"`
		MergeGap         string `yaml:"mergeGap"`
	} `yaml:"sentences"`
	Identity struct {
		Enabled       *bool   `yaml:"enabled"`
		MinSimilarity float64 `yaml:"minSimilarity"`
		MinSpan       string  `yaml:"minSpan"`
		MaxExcerpt    string  `yaml:"maxExcerpt"`
		TopK          int     `yaml:"topK"`
	} `yaml:"identity"`
	Kafka struct {
		Enabled        *bool    `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		TopicCompleted string   `yaml:"topicCompleted"`
		TopicFailed    string   `yaml:"topicFailed"`
		Principal      string   `yaml:"principal"`
	} `yaml:"kafka"`
	Storage struct {
		DatabasePath string `yaml:"databasePath"`
	} `yaml:"storage"`
	Observability struct {
		LogLevel    string `yaml:"logLevel"`
		MetricsAddr string `yaml:"metricsAddr"`
	} `yaml:"observability"`
}

func applyFile(cfg *Configuration, raw []byte) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setFloat := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v string) {
		if v == "" {
			return
		}
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}

	setStr(&cfg.Service.Principal, fc.Service.Principal)

	setStr(&cfg.Transcription.Provider, fc.Transcription.Provider)
	setStr(&cfg.Transcription.BackendURL, fc.Transcription.BackendURL)
	setStr(&cfg.Transcription.LanguageCode, fc.Transcription.LanguageCode)
	setInt(&cfg.Transcription.SampleRateHz, fc.Transcription.SampleRateHz)
	setDur(&cfg.Transcription.Timeout, fc.Transcription.Timeout)
	setDur(&cfg.Transcription.PollInterval, fc.Transcription.PollInterval)
	setDur(&cfg.Transcription.MaxWait, fc.Transcription.MaxWait)

	setStr(&cfg.Diarization.BackendURL, fc.Diarization.BackendURL)
	setStr(&cfg.Diarization.EmbeddingURL, fc.Diarization.EmbeddingURL)
	setInt(&cfg.Diarization.Concurrency, fc.Diarization.Concurrency)
	setFloat(&cfg.Diarization.MinSimilarity, fc.Diarization.MinSimilarity)
	setDur(&cfg.Diarization.TimeoutPerHour, fc.Diarization.TimeoutPerHour)
	setInt(&cfg.Diarization.MaxRetries, fc.Diarization.MaxRetries)

	setDur(&cfg.Chunking.EnergyWindow, fc.Chunking.EnergyWindow)
	setFloat(&cfg.Chunking.SilenceFloor, fc.Chunking.SilenceFloor)
	setDur(&cfg.Chunking.MinSilence, fc.Chunking.MinSilence)
	setDur(&cfg.Chunking.SoftMin, fc.Chunking.SoftMin)
	setDur(&cfg.Chunking.HardMax, fc.Chunking.HardMax)
	setInt(&cfg.Chunking.MaxCandidates, fc.Chunking.MaxCandidates)

	setDur(&cfg.Sentences.SpeakerChangeGap, fc.Sentences.SpeakerChangeGap)
	setDur(&cfg.Sentences.PunctuationGap, fc.Sentences.PunctuationGap)
	setDur(&cfg.Sentences.HardGap, fc.Sentences.HardGap)
	setInt(&cfg.Sentences.MinLength, fc.Sentences.MinLength)
	setDur(&cfg.Sentences.MergeGap, fc.Sentences.MergeGap)

	if fc.Identity.Enabled != nil {
		cfg.Identity.Enabled = *fc.Identity.Enabled
	}
	setFloat(&cfg.Identity.MinSimilarity, fc.Identity.MinSimilarity)
	setDur(&cfg.Identity.MinSpan, fc.Identity.MinSpan)
	setDur(&cfg.Identity.MaxExcerpt, fc.Identity.MaxExcerpt)
	setInt(&cfg.Identity.TopK, fc.Identity.TopK)

	if fc.Kafka.Enabled != nil {
		cfg.Kafka.Enabled = *fc.Kafka.Enabled
	}
	if len(fc.Kafka.Brokers) > 0 {
		cfg.Kafka.Brokers = fc.Kafka.Brokers
	}
	setStr(&cfg.Kafka.TopicCompleted, fc.Kafka.TopicCompleted)
	setStr(&cfg.Kafka.TopicFailed, fc.Kafka.TopicFailed)
	setStr(&cfg.Kafka.Principal, fc.Kafka.Principal)

	setStr(&cfg.Storage.DatabasePath, fc.Storage.DatabasePath)

	setStr(&cfg.Observability.LogLevel, fc.Observability.LogLevel)
	setStr(&cfg.Observability.MetricsAddr, fc.Observability.MetricsAddr)
}

func defaults() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal: "svc-meeting-transcription",
		},
		Transcription: TranscriptionConfig{
			Provider:     "mock",
			LanguageCode: "en-US",
			SampleRateHz: 16000,
			Timeout:      30 * time.Minute,
			PollInterval: 3 * time.Second,
			MaxWait:      5 * time.Minute,
		},
		Diarization: DiarizationConfig{
			Concurrency:    2,
			MinSimilarity:  0.7,
			TimeoutPerHour: 24 * time.Minute,
			MaxRetries:     3,
		},
		Chunking: ChunkingConfig{
			EnergyWindow:  2 * time.Second,
			SilenceFloor:  0.05,
			MinSilence:    3 * time.Second,
			SoftMin:       10 * time.Minute,
			HardMax:       20 * time.Minute,
			MaxCandidates: 50,
		},
		Sentences: SentenceConfig{
			SpeakerChangeGap: 300 * time.Millisecond,
			PunctuationGap:   500 * time.Millisecond,
			HardGap:          1500 * time.Millisecond,
			MinLength:        2,
			MergeGap:         500 * time.Millisecond,
		},
		Identity: IdentityConfig{
			Enabled:       false,
			MinSimilarity: 0.75,
			MinSpan:       2 * time.Second,
			MaxExcerpt:    10 * time.Second,
			TopK:          1,
		},
		Kafka: KafkaConfig{
			Enabled:        false,
			TopicCompleted: "meeting.transcript.completed",
			TopicFailed:    "meeting.transcript.failed",
		},
		Storage: StorageConfig{
			DatabasePath: "transcripts.db",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			MetricsAddr: ":9090",
		},
	}
}

func applyEnv(cfg *Configuration) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)

	cfg.Transcription.Provider = envOrDefault("STT_PROVIDER", cfg.Transcription.Provider)
	cfg.Transcription.BackendURL = envOrDefault("STT_BACKEND_URL", cfg.Transcription.BackendURL)
	cfg.Transcription.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.Transcription.LanguageCode)
	cfg.Transcription.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", cfg.Transcription.SampleRateHz)
	cfg.Transcription.Timeout = envOrDefaultDuration("STT_TIMEOUT", cfg.Transcription.Timeout)
	cfg.Transcription.PollInterval = envOrDefaultDuration("STT_POLL_INTERVAL", cfg.Transcription.PollInterval)
	cfg.Transcription.MaxWait = envOrDefaultDuration("STT_MAX_WAIT", cfg.Transcription.MaxWait)

	cfg.Diarization.BackendURL = envOrDefault("DIARIZATION_URL", cfg.Diarization.BackendURL)
	cfg.Diarization.EmbeddingURL = envOrDefault("EMBEDDING_URL", cfg.Diarization.EmbeddingURL)
	cfg.Diarization.Concurrency = envOrDefaultInt("DIARIZATION_CONCURRENCY", cfg.Diarization.Concurrency)
	cfg.Diarization.MinSimilarity = envOrDefaultFloat("DIARIZATION_MIN_SIMILARITY", cfg.Diarization.MinSimilarity)
	cfg.Diarization.TimeoutPerHour = envOrDefaultDuration("DIARIZATION_TIMEOUT_PER_HOUR", cfg.Diarization.TimeoutPerHour)
	cfg.Diarization.MaxRetries = envOrDefaultInt("DIARIZATION_MAX_RETRIES", cfg.Diarization.MaxRetries)

	cfg.Chunking.EnergyWindow = envOrDefaultDuration("CHUNK_ENERGY_WINDOW", cfg.Chunking.EnergyWindow)
	cfg.Chunking.SilenceFloor = envOrDefaultFloat("CHUNK_SILENCE_FLOOR", cfg.Chunking.SilenceFloor)
	cfg.Chunking.MinSilence = envOrDefaultDuration("CHUNK_MIN_SILENCE", cfg.Chunking.MinSilence)
	cfg.Chunking.SoftMin = envOrDefaultDuration("CHUNK_SOFT_MIN", cfg.Chunking.SoftMin)
	cfg.Chunking.HardMax = envOrDefaultDuration("CHUNK_HARD_MAX", cfg.Chunking.HardMax)
	cfg.Chunking.MaxCandidates = envOrDefaultInt("CHUNK_MAX_CANDIDATES", cfg.Chunking.MaxCandidates)

	cfg.Sentences.SpeakerChangeGap = envOrDefaultDuration("SENTENCE_SPEAKER_CHANGE_GAP", cfg.Sentences.SpeakerChangeGap)
	cfg.Sentences.PunctuationGap = envOrDefaultDuration("SENTENCE_PUNCTUATION_GAP", cfg.Sentences.PunctuationGap)
	cfg.Sentences.HardGap = envOrDefaultDuration("SENTENCE_HARD_GAP", cfg.Sentences.HardGap)
	cfg.Sentences.MinLength = envOrDefaultInt("SENTENCE_MIN_LENGTH", cfg.Sentences.MinLength)
	cfg.Sentences.MergeGap = envOrDefaultDuration("SENTENCE_MERGE_GAP", cfg.Sentences.MergeGap)

	cfg.Identity.Enabled = envOrDefaultBool("IDENTITY_ENABLED", cfg.Identity.Enabled)
	cfg.Identity.MinSimilarity = envOrDefaultFloat("IDENTITY_MIN_SIMILARITY", cfg.Identity.MinSimilarity)
	cfg.Identity.MinSpan = envOrDefaultDuration("IDENTITY_MIN_SPAN", cfg.Identity.MinSpan)
	cfg.Identity.MaxExcerpt = envOrDefaultDuration("IDENTITY_MAX_EXCERPT", cfg.Identity.MaxExcerpt)
	cfg.Identity.TopK = envOrDefaultInt("IDENTITY_TOP_K", cfg.Identity.TopK)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Kafka.TopicCompleted = envOrDefault("KAFKA_TOPIC_COMPLETED", cfg.Kafka.TopicCompleted)
	cfg.Kafka.TopicFailed = envOrDefault("KAFKA_TOPIC_FAILED", cfg.Kafka.TopicFailed)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Service.Principal)

	cfg.Storage.DatabasePath = envOrDefault("DATABASE_PATH", cfg.Storage.DatabasePath)

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.Observability.MetricsAddr)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
