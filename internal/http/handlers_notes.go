package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/notegen"
	"ai-clinical-scribe-service/internal/service/review"
)

type generateNoteRequest struct {
	TranscriptionID string                   `json:"transcriptionId"`
	Transcript      string                   `json:"transcript"`
	EncounterID     string                   `json:"encounterId"`
	PatientID       string                   `json:"patientId"`
	DoctorID        string                   `json:"doctorId"`
	Context         notegen.EncounterContext `json:"context"`
}

type updateNoteRequest struct {
	EditedBy string          `json:"editedBy"`
	Reason   string          `json:"reason"`
	SOAP     models.SOAPNote `json:"soapNote"`
}

type reviewActionRequest struct {
	UserID   string `json:"userId"`
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

func (h *Handlers) handleGenerateNote(w http.ResponseWriter, r *http.Request) {
	var req generateNoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Generate(r.Context(), review.GenerateRequest{
		TranscriptionID: req.TranscriptionID,
		Transcript:      req.Transcript,
		EncounterID:     req.EncounterID,
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		Context:         req.Context,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *Handlers) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handlers) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	note, err := h.notes.Update(r.Context(), chi.URLParam(r, "id"), review.UpdateRequest{
		EditedBy: req.EditedBy,
		Reason:   req.Reason,
		SOAP:     req.SOAP,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handlers) handleReviewNote(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(id string, req reviewActionRequest) (*models.ClinicalNote, error) {
		return h.notes.MarkAsReviewed(r.Context(), id, req.UserID, req.Comments)
	})
}

func (h *Handlers) handleApproveNote(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(id string, req reviewActionRequest) (*models.ClinicalNote, error) {
		return h.notes.MarkAsApproved(r.Context(), id, req.UserID)
	})
}

func (h *Handlers) handleSignNote(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(id string, req reviewActionRequest) (*models.ClinicalNote, error) {
		return h.notes.MarkAsSigned(r.Context(), id, req.UserID)
	})
}

func (h *Handlers) handleAmendNote(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(id string, req reviewActionRequest) (*models.ClinicalNote, error) {
		return h.notes.Amend(r.Context(), id, req.UserID, req.Reason)
	})
}

func (h *Handlers) handleCancelNote(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(id string, req reviewActionRequest) (*models.ClinicalNote, error) {
		return h.notes.Cancel(r.Context(), id, req.UserID, req.Reason)
	})
}

func (h *Handlers) handleRegenerateNote(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(id string, req reviewActionRequest) (*models.ClinicalNote, error) {
		return h.notes.Regenerate(r.Context(), id, req.UserID)
	})
}

func (h *Handlers) noteAction(w http.ResponseWriter, r *http.Request, action func(string, reviewActionRequest) (*models.ClinicalNote, error)) {
	var req reviewActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	note, err := action(chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handlers) handleNotesByPatient(w http.ResponseWriter, r *http.Request) {
	h.noteList(w, func() ([]*models.ClinicalNote, error) {
		return h.notes.ListByPatient(r.Context(), chi.URLParam(r, "patientId"))
	})
}

func (h *Handlers) handleNotesByDoctor(w http.ResponseWriter, r *http.Request) {
	h.noteList(w, func() ([]*models.ClinicalNote, error) {
		return h.notes.ListByDoctor(r.Context(), chi.URLParam(r, "doctorId"))
	})
}

func (h *Handlers) handleNotesPendingReview(w http.ResponseWriter, r *http.Request) {
	h.noteList(w, func() ([]*models.ClinicalNote, error) {
		return h.notes.ListPendingReview(r.Context())
	})
}

func (h *Handlers) noteList(w http.ResponseWriter, list func() ([]*models.ClinicalNote, error)) {
	notes, err := list()
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []*models.ClinicalNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handlers) handleNoteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.notes.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
