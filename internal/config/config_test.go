package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"CONFIG_FILE", "SERVICE_PRINCIPAL", "LOG_LEVEL",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
		"DIARIZATION_CONCURRENCY", "DIARIZATION_MIN_SIMILARITY",
		"CHUNK_MIN_SILENCE", "CHUNK_SOFT_MIN", "CHUNK_HARD_MAX",
		"SENTENCE_SPEAKER_CHANGE_GAP", "IDENTITY_MIN_SIMILARITY",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "svc-meeting-transcription" {
		t.Errorf("expected default principal 'svc-meeting-transcription', got %s", cfg.Service.Principal)
	}
	if cfg.Transcription.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Transcription.SampleRateHz)
	}
	if cfg.Diarization.MinSimilarity != 0.7 {
		t.Errorf("expected default cluster similarity 0.7, got %v", cfg.Diarization.MinSimilarity)
	}
	if cfg.Diarization.Concurrency != 2 {
		t.Errorf("expected default diarization concurrency 2, got %d", cfg.Diarization.Concurrency)
	}
	if cfg.Chunking.MinSilence != 3*time.Second {
		t.Errorf("expected default min silence 3s, got %v", cfg.Chunking.MinSilence)
	}
	if cfg.Chunking.SoftMin != 10*time.Minute {
		t.Errorf("expected default soft min 10m, got %v", cfg.Chunking.SoftMin)
	}
	if cfg.Chunking.HardMax != 20*time.Minute {
		t.Errorf("expected default hard max 20m, got %v", cfg.Chunking.HardMax)
	}
	if cfg.Sentences.SpeakerChangeGap != 300*time.Millisecond {
		t.Errorf("expected default speaker change gap 300ms, got %v", cfg.Sentences.SpeakerChangeGap)
	}
	if cfg.Sentences.HardGap != 1500*time.Millisecond {
		t.Errorf("expected default hard gap 1.5s, got %v", cfg.Sentences.HardGap)
	}
	if cfg.Identity.MinSimilarity != 0.75 {
		t.Errorf("expected default identity similarity 0.75, got %v", cfg.Identity.MinSimilarity)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("STT_LANGUAGE_CODE", "es-ES")
	os.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	os.Setenv("DIARIZATION_MIN_SIMILARITY", "0.8")
	os.Setenv("CHUNK_SOFT_MIN", "5m")
	os.Setenv("SENTENCE_HARD_GAP", "2s")
	os.Setenv("IDENTITY_ENABLED", "true")

	defer func() {
		os.Unsetenv("SERVICE_PRINCIPAL")
		os.Unsetenv("STT_PROVIDER")
		os.Unsetenv("STT_LANGUAGE_CODE")
		os.Unsetenv("STT_SAMPLE_RATE_HZ")
		os.Unsetenv("DIARIZATION_MIN_SIMILARITY")
		os.Unsetenv("CHUNK_SOFT_MIN")
		os.Unsetenv("SENTENCE_HARD_GAP")
		os.Unsetenv("IDENTITY_ENABLED")
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Transcription.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.LanguageCode != "es-ES" {
		t.Errorf("expected language 'es-ES', got %s", cfg.Transcription.LanguageCode)
	}
	if cfg.Transcription.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.Transcription.SampleRateHz)
	}
	if cfg.Diarization.MinSimilarity != 0.8 {
		t.Errorf("expected cluster similarity 0.8, got %v", cfg.Diarization.MinSimilarity)
	}
	if cfg.Chunking.SoftMin != 5*time.Minute {
		t.Errorf("expected soft min 5m, got %v", cfg.Chunking.SoftMin)
	}
	if cfg.Sentences.HardGap != 2*time.Second {
		t.Errorf("expected hard gap 2s, got %v", cfg.Sentences.HardGap)
	}
	if !cfg.Identity.Enabled {
		t.Error("expected identity resolution enabled")
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("DIARIZATION_MIN_SIMILARITY", "invalid")
	os.Setenv("CHUNK_SOFT_MIN", "invalid")
	os.Setenv("IDENTITY_ENABLED", "invalid")

	defer func() {
		os.Unsetenv("STT_SAMPLE_RATE_HZ")
		os.Unsetenv("DIARIZATION_MIN_SIMILARITY")
		os.Unsetenv("CHUNK_SOFT_MIN")
		os.Unsetenv("IDENTITY_ENABLED")
	}()

	cfg := Load()

	if cfg.Transcription.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.Transcription.SampleRateHz)
	}
	if cfg.Diarization.MinSimilarity != 0.7 {
		t.Errorf("expected default similarity on invalid input, got %v", cfg.Diarization.MinSimilarity)
	}
	if cfg.Chunking.SoftMin != 10*time.Minute {
		t.Errorf("expected default soft min on invalid input, got %v", cfg.Chunking.SoftMin)
	}
	if cfg.Identity.Enabled {
		t.Error("expected identity disabled on invalid input")
	}
}

func TestLoad_YAMLFile_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte("diarization:\n  minSimilarity: 0.65\n  concurrency: 4\nchunking:\n  softMin: 8m\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("CONFIG_FILE", path)
	os.Setenv("DIARIZATION_CONCURRENCY", "3")
	defer func() {
		os.Unsetenv("CONFIG_FILE")
		os.Unsetenv("DIARIZATION_CONCURRENCY")
	}()

	cfg := Load()

	if cfg.Diarization.MinSimilarity != 0.65 {
		t.Errorf("expected yaml similarity 0.65, got %v", cfg.Diarization.MinSimilarity)
	}
	// Env wins over the file.
	if cfg.Diarization.Concurrency != 3 {
		t.Errorf("expected env concurrency 3, got %d", cfg.Diarization.Concurrency)
	}
	if cfg.Chunking.SoftMin != 8*time.Minute {
		t.Errorf("expected yaml soft min 8m, got %v", cfg.Chunking.SoftMin)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
