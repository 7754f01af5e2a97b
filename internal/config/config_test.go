package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "LOG_LEVEL",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_MODEL",
		"STT_SYNC_CUTOFF", "STT_PROCESSING_TIMEOUT",
		"GENERATION_PROVIDER", "GENERATION_MODEL", "GENERATION_TEMPERATURE",
		"GENERATION_MAX_OUTPUT_TOKENS",
		"PIPELINE_MAX_RETRIES", "PIPELINE_CONFIDENCE_THRESHOLD", "PIPELINE_WORKERS",
		"KAFKA_ENABLED", "KAFKA_BROKERS",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-clinical-scribe" {
		t.Errorf("expected default principal 'svc-clinical-scribe', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Service.HTTPPort)
	}

	// STT defaults
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SyncCutoff != 60*time.Second {
		t.Errorf("expected default sync cutoff 60s, got %v", cfg.STT.SyncCutoff)
	}
	if cfg.STT.ProcessingTimeout != 60*time.Second {
		t.Errorf("expected default processing timeout 60s, got %v", cfg.STT.ProcessingTimeout)
	}
	if cfg.STT.MaxAlternatives != 3 {
		t.Errorf("expected default max alternatives 3, got %d", cfg.STT.MaxAlternatives)
	}
	if !cfg.STT.EnableDiarization {
		t.Error("expected diarization enabled by default")
	}

	// Generation defaults
	if cfg.Generation.Temperature != 0.3 {
		t.Errorf("expected default temperature 0.3, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.MaxOutputTokens != 8192 {
		t.Errorf("expected default max output tokens 8192, got %d", cfg.Generation.MaxOutputTokens)
	}

	// Pipeline defaults
	if cfg.Pipeline.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.7 {
		t.Errorf("expected default confidence threshold 0.7, got %v", cfg.Pipeline.ConfidenceThreshold)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_SYNC_CUTOFF", "90s")
	t.Setenv("GENERATION_TEMPERATURE", "0.7")
	t.Setenv("PIPELINE_MAX_RETRIES", "5")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := Load()

	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.SyncCutoff != 90*time.Second {
		t.Errorf("expected sync cutoff 90s, got %v", cfg.STT.SyncCutoff)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.Generation.Temperature)
	}
	if cfg.Pipeline.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Pipeline.MaxRetries)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PIPELINE_MAX_RETRIES", "not-a-number")
	t.Setenv("GENERATION_TEMPERATURE", "warm")
	t.Setenv("STT_SYNC_CUTOFF", "soon")

	cfg := Load()

	if cfg.Pipeline.MaxRetries != 3 {
		t.Errorf("expected fallback max retries 3, got %d", cfg.Pipeline.MaxRetries)
	}
	if cfg.Generation.Temperature != 0.3 {
		t.Errorf("expected fallback temperature 0.3, got %v", cfg.Generation.Temperature)
	}
	if cfg.STT.SyncCutoff != 60*time.Second {
		t.Errorf("expected fallback sync cutoff 60s, got %v", cfg.STT.SyncCutoff)
	}
}
