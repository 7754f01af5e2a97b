// Package app wires configuration, storage, adapters and services into a
// runnable application.
package app

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ai-clinical-scribe-service/internal/config"
	"ai-clinical-scribe-service/internal/events"
	httpapi "ai-clinical-scribe-service/internal/http"
	"ai-clinical-scribe-service/internal/observability/logging"
	"ai-clinical-scribe-service/internal/service/llm"
	llmanthropic "ai-clinical-scribe-service/internal/service/llm/anthropic"
	llmmock "ai-clinical-scribe-service/internal/service/llm/mock"
	"ai-clinical-scribe-service/internal/service/notegen"
	"ai-clinical-scribe-service/internal/service/review"
	"ai-clinical-scribe-service/internal/service/stt"
	sttgoogle "ai-clinical-scribe-service/internal/service/stt/google"
	sttmock "ai-clinical-scribe-service/internal/service/stt/mock"
	"ai-clinical-scribe-service/internal/service/transcription"
	"ai-clinical-scribe-service/internal/service/worker"
	"ai-clinical-scribe-service/internal/store/audiofs"
	"ai-clinical-scribe-service/internal/store/postgres"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime    time.Time
	Logger         zerolog.Logger
	Cfg            *config.Configuration
	DB             *pgxpool.Pool
	Publisher      *events.Publisher
	Pool           *worker.Pool
	Transcriptions *transcription.Manager
	Notes          *review.Service
	Router         nethttp.Handler

	sttAdapter stt.Adapter
}

// New constructs the application: logging, database (with migrations),
// provider adapters, services and the HTTP router.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	format := "json"
	if os.Getenv("ENV") == "dev" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg:    cfg,
		Logger: log.With().Str("service", cfg.Service.Name).Logger(),
	}

	if err := postgres.Migrate(cfg.Database); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.DB = db

	audio, err := audiofs.New(cfg.Service.AudioDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open audio store: %w", err)
	}

	a.sttAdapter, err = newSTTAdapter(ctx, cfg.STT.Provider)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create stt adapter: %w", err)
	}
	llmAdapter := newLLMAdapter(cfg.Generation.Provider)

	a.Publisher = events.New(cfg.Kafka)
	a.Pool = worker.New(cfg.Pipeline.Workers)

	a.Transcriptions = transcription.NewManager(
		postgres.NewTranscriptionStore(db), audio, a.sttAdapter,
		a.Publisher, cfg.STT, cfg.Pipeline.MaxRetries)

	engine := notegen.New(llmAdapter, cfg.Generation)
	a.Notes = review.New(
		postgres.NewNoteStore(db), a.Transcriptions, engine,
		a.Publisher, cfg.Pipeline.ConfidenceThreshold)

	a.Router = httpapi.NewRouter(httpapi.NewHandlers(a.Transcriptions, a.Notes, audio, a.Pool))

	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("generationProvider", cfg.Generation.Provider).
		Int("workers", cfg.Pipeline.Workers).
		Msg("Clinical scribe application created")
	return a, nil
}

// Start marks the application as serving.
func (a *Application) Start() {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Clinical scribe service starting")
}

// Readiness reports whether the database is reachable.
func (a *Application) Readiness(ctx context.Context) error {
	return a.DB.Ping(ctx)
}

// Shutdown drains in-flight work and releases resources.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Clinical scribe service shutting down")

	a.Pool.Shutdown()
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing publisher")
	}
	if err := a.sttAdapter.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing stt adapter")
	}
	a.DB.Close()
}

func newSTTAdapter(ctx context.Context, provider string) (stt.Adapter, error) {
	switch provider {
	case "google":
		return sttgoogle.New(ctx)
	default:
		return sttmock.New(), nil
	}
}

func newLLMAdapter(provider string) llm.Adapter {
	switch provider {
	case "anthropic":
		return llmanthropic.New()
	default:
		return llmmock.New()
	}
}
