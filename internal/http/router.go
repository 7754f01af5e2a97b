// Package http exposes the clinical documentation pipeline over a JSON API.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-clinical-scribe-service/internal/service/review"
	"ai-clinical-scribe-service/internal/service/transcription"
	"ai-clinical-scribe-service/internal/service/worker"
)

// AudioSaver stores uploaded audio ahead of transcription.
type AudioSaver interface {
	Save(ctx context.Context, voiceRecordingID string, audio []byte) error
}

// Handlers holds the service dependencies of the HTTP layer.
type Handlers struct {
	transcriptions *transcription.Manager
	notes          *review.Service
	audio          AudioSaver
	pool           *worker.Pool
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(transcriptions *transcription.Manager, notes *review.Service, audio AudioSaver, pool *worker.Pool) *Handlers {
	return &Handlers{
		transcriptions: transcriptions,
		notes:          notes,
		audio:          audio,
		pool:           pool,
	}
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/transcriptions", func(r chi.Router) {
			r.Post("/", h.handleCreateTranscription)
			r.Get("/pending", h.handleListPendingTranscriptions)
			r.Get("/stats", h.handleTranscriptionStats)
			r.Get("/recording/{recordingId}", h.handleGetTranscriptionByRecording)
			r.Get("/{id}", h.handleGetTranscription)
			r.Post("/{id}/retry", h.handleRetryTranscription)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", h.handleGenerateNote)
			r.Get("/pending-review", h.handleNotesPendingReview)
			r.Get("/stats", h.handleNoteStats)
			r.Get("/patient/{patientId}", h.handleNotesByPatient)
			r.Get("/doctor/{doctorId}", h.handleNotesByDoctor)
			r.Get("/{id}", h.handleGetNote)
			r.Put("/{id}", h.handleUpdateNote)
			r.Post("/{id}/review", h.handleReviewNote)
			r.Post("/{id}/approve", h.handleApproveNote)
			r.Post("/{id}/sign", h.handleSignNote)
			r.Post("/{id}/amend", h.handleAmendNote)
			r.Post("/{id}/cancel", h.handleCancelNote)
			r.Post("/{id}/regenerate", h.handleRegenerateNote)
		})
	})

	return r
}
