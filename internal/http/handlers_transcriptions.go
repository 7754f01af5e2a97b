package http

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/transcription"
)

type createTranscriptionRequest struct {
	VoiceRecording models.VoiceRecording `json:"voiceRecording"`
	AudioContent   string                `json:"audioContent"` // base64
	LanguageCode   string                `json:"languageCode"`
	Model          string                `json:"model"`
}

// handleCreateTranscription registers a transcription job and dispatches it
// asynchronously. The response reports the pending job; transcription
// success or failure is observed by polling, not through this call.
func (h *Handlers) handleCreateTranscription(w http.ResponseWriter, r *http.Request) {
	var req createTranscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.AudioContent != "" {
		audio, err := base64.StdEncoding.DecodeString(req.AudioContent)
		if err != nil {
			writeError(w, errs.Validationf("audioContent is not valid base64: %s", err))
			return
		}
		if err := h.audio.Save(r.Context(), req.VoiceRecording.ID, audio); err != nil {
			writeError(w, err)
			return
		}
	}

	tr, created, err := h.transcriptions.Create(r.Context(), req.VoiceRecording, transcription.Options{
		LanguageCode: req.LanguageCode,
		Model:        req.Model,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Only the call that inserted the job enqueues its dispatch. A
	// duplicate upload returns the existing job untouched; its first
	// dispatch may still be queued or running.
	if created {
		id := tr.ID
		submitted := h.pool.Submit(func(ctx context.Context) {
			job, err := h.transcriptions.Get(ctx, id)
			if err != nil {
				log.Error().Err(err).Str("transcriptionId", id).Msg("Failed to load job for dispatch")
				return
			}
			if err := h.transcriptions.Dispatch(ctx, job); err != nil {
				log.Error().Err(err).Str("transcriptionId", id).Msg("Background dispatch failed")
			}
		})
		if !submitted {
			log.Warn().Str("transcriptionId", id).Msg("Worker pool shut down, job stays pending")
		}
		writeJSON(w, http.StatusAccepted, tr)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *Handlers) handleGetTranscription(w http.ResponseWriter, r *http.Request) {
	tr, err := h.transcriptions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *Handlers) handleGetTranscriptionByRecording(w http.ResponseWriter, r *http.Request) {
	tr, err := h.transcriptions.GetByVoiceRecording(r.Context(), chi.URLParam(r, "recordingId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *Handlers) handleRetryTranscription(w http.ResponseWriter, r *http.Request) {
	tr, err := h.transcriptions.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *Handlers) handleListPendingTranscriptions(w http.ResponseWriter, r *http.Request) {
	pending, err := h.transcriptions.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if pending == nil {
		pending = []*models.Transcription{}
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *Handlers) handleTranscriptionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.transcriptions.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
