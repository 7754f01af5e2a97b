// Package review governs the clinical note lifecycle: AI generation,
// confidence-based routing to draft or human review, manual edits with
// field-level history, and the approve/sign workflow with a full audit
// trail.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/observability/logging"
	"ai-clinical-scribe-service/internal/observability/metrics"
	"ai-clinical-scribe-service/internal/service/notegen"
	"ai-clinical-scribe-service/internal/service/scoring"
)

const systemPrincipal = "system"

// NoteStore is the persistence surface for clinical notes.
type NoteStore interface {
	Create(ctx context.Context, note *models.ClinicalNote) error
	Get(ctx context.Context, id string) (*models.ClinicalNote, error)
	Update(ctx context.Context, note *models.ClinicalNote) error
	ListByPatient(ctx context.Context, patientID string) ([]*models.ClinicalNote, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*models.ClinicalNote, error)
	ListPendingReview(ctx context.Context) ([]*models.ClinicalNote, error)
	Stats(ctx context.Context) (*models.NoteStats, error)
}

// TranscriptionGetter loads source transcriptions for generation.
type TranscriptionGetter interface {
	Get(ctx context.Context, id string) (*models.Transcription, error)
}

// Publisher announces note lifecycle events.
type Publisher interface {
	PublishNote(ctx context.Context, key string, event any) error
}

// GenerateRequest describes one note generation. Either TranscriptionID or
// a raw Transcript must be set; when TranscriptionID is set, encounter
// identifiers come from the transcription.
type GenerateRequest struct {
	TranscriptionID string
	Transcript      string
	EncounterID     string
	PatientID       string
	DoctorID        string
	Context         notegen.EncounterContext
}

// UpdateRequest is one manual edit: a full replacement SOAP document plus
// attribution. Only fields that actually changed enter the edit history.
type UpdateRequest struct {
	EditedBy string
	Reason   string
	SOAP     models.SOAPNote
}

// Service implements the review workflow.
type Service struct {
	notes          NoteStore
	transcriptions TranscriptionGetter
	engine         *notegen.Engine
	publisher      Publisher
	threshold      float64
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// New creates a review workflow service. threshold is the confidence level
// at or above which generated notes route straight to draft.
func New(notes NoteStore, transcriptions TranscriptionGetter, engine *notegen.Engine, publisher Publisher, threshold float64) *Service {
	return &Service{
		notes:          notes,
		transcriptions: transcriptions,
		engine:         engine,
		publisher:      publisher,
		threshold:      threshold,
		metrics:        metrics.DefaultMetrics,
		logger:         logging.WithComponent("review"),
	}
}

// Generate creates a clinical note from a transcription, runs the generation
// engine and routes the result by confidence: at or above the threshold the
// note lands in draft, below it in review with a low_confidence flag
// attached atomically with the transition. An engine failure cancels the
// note instead of stranding it in generating.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*models.ClinicalNote, error) {
	transcript, req, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &models.ClinicalNote{
		ID:              uuid.NewString(),
		EncounterID:     req.EncounterID,
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		TranscriptionID: req.TranscriptionID,
		Status:          models.NoteGenerating,
		EditHistory:     []models.EditRecord{},
		ComplianceFlags: []models.ComplianceFlag{},
		AuditTrail: []models.AuditEntry{{
			Action:      "created",
			PerformedBy: systemPrincipal,
			PerformedAt: now,
			Details:     "note generation started",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	result, err := s.engine.Generate(ctx, transcript, req.Context, nil)
	if err != nil {
		// The note row already exists; cancel it so it does not sit in
		// generating forever with no legal exit.
		s.transition(note, models.NoteCancelled, systemPrincipal, "note generation failed: "+err.Error())
		note.UpdatedAt = time.Now().UTC()
		if uerr := s.notes.Update(ctx, note); uerr != nil {
			s.logger.Error().Err(uerr).
				Str("noteId", note.ID).
				Msg("Failed to persist cancellation of failed generation")
		}
		s.publishEvent(note, models.EventNoteStatusChanged, models.NoteGenerating, systemPrincipal)
		return nil, err
	}

	s.applyGeneration(note, result, transcript)

	target := models.NoteDraft
	details := fmt.Sprintf("confidence %.2f at or above threshold %.2f", note.AIMetadata.ConfidenceScore, s.threshold)
	if note.AIMetadata.ConfidenceScore < s.threshold {
		target = models.NoteReview
		details = fmt.Sprintf("confidence %.2f below threshold %.2f", note.AIMetadata.ConfidenceScore, s.threshold)
		s.flag(note, "low_confidence", "AI confidence below review threshold", "warning")
	}
	s.transition(note, target, systemPrincipal, details)
	s.runQualityChecks(note)

	note.UpdatedAt = time.Now().UTC()
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	s.metrics.NoteConfidence.Observe(note.AIMetadata.ConfidenceScore)

	s.logger.Info().
		Str("noteId", note.ID).
		Str("status", string(note.Status)).
		Float64("confidence", note.AIMetadata.ConfidenceScore).
		Bool("usedFallback", result.UsedFallback).
		Msg("Clinical note generated")

	s.publishEvent(note, models.EventNoteGenerated, models.NoteGenerating, systemPrincipal)
	return note, nil
}

// Regenerate re-runs generation on the stored source transcription and
// fully overwrites the SOAP content and AI metadata. Status is untouched,
// so regenerating a signed note replaces signed content; that is logged
// loudly since a signature no longer covers what it signed.
func (s *Service) Regenerate(ctx context.Context, id, performedBy string) (*models.ClinicalNote, error) {
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.TranscriptionID == "" {
		return nil, errs.Validationf("note %s has no source transcription to regenerate from", id)
	}
	if note.Status == models.NoteCancelled {
		return nil, errs.Conflictf("note %s is cancelled", id)
	}

	tr, err := s.transcriptions.Get(ctx, note.TranscriptionID)
	if err != nil {
		return nil, err
	}
	if tr.Status != models.TranscriptionCompleted || tr.Result == nil {
		return nil, errs.Conflictf("transcription %s is %s, notes require a completed transcription", tr.ID, tr.Status)
	}

	result, err := s.engine.Generate(ctx, tr.Result.Transcript, notegen.EncounterContext{}, nil)
	if err != nil {
		return nil, err
	}

	if note.Status == models.NoteSigned {
		s.logger.Warn().
			Str("noteId", note.ID).
			Msg("Regenerating a signed note, signed content will be overwritten")
	}

	s.applyGeneration(note, result, tr.Result.Transcript)
	s.audit(note, "regenerated", performedBy, fmt.Sprintf("content regenerated, confidence %.2f", note.AIMetadata.ConfidenceScore))
	note.UpdatedAt = time.Now().UTC()
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	s.metrics.NoteConfidence.Observe(note.AIMetadata.ConfidenceScore)
	return note, nil
}

// Update applies a manual edit. Legal in any editable state; appends one
// edit record covering only the fields whose serialized value changed, plus
// one audit entry. A no-op edit changes nothing and records nothing.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*models.ClinicalNote, error) {
	if req.EditedBy == "" {
		return nil, errs.Validationf("editedBy is required")
	}
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !editableStates[note.Status] {
		return nil, errs.Conflictf("note %s is %s and cannot be edited", id, note.Status)
	}

	updated := req.SOAP
	updated.Normalize()
	section, changes := diffSOAP(note.SOAP, updated)
	if len(changes) == 0 {
		return note, nil
	}

	now := time.Now().UTC()
	note.SOAP = updated
	note.EditHistory = append(note.EditHistory, models.EditRecord{
		EditedBy: req.EditedBy,
		EditedAt: now,
		Section:  section,
		Changes:  changes,
		Reason:   req.Reason,
	})
	s.audit(note, "edited", req.EditedBy, fmt.Sprintf("%d field(s) changed in %s", len(changes), section))
	note.UpdatedAt = now
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	s.metrics.NoteEdits.Inc()
	return note, nil
}

// MarkAsReviewed moves a draft or in-review note to review.
func (s *Service) MarkAsReviewed(ctx context.Context, id, reviewerID, comments string) (*models.ClinicalNote, error) {
	details := "marked for review"
	if comments != "" {
		details = "marked for review: " + comments
	}
	return s.applyTransition(ctx, id, models.NoteReview, reviewerID, details)
}

// MarkAsApproved moves a reviewed note to approved.
func (s *Service) MarkAsApproved(ctx context.Context, id, approverID string) (*models.ClinicalNote, error) {
	return s.applyTransition(ctx, id, models.NoteApproved, approverID, "approved")
}

// MarkAsSigned moves an approved note to signed.
func (s *Service) MarkAsSigned(ctx context.Context, id, signerID string) (*models.ClinicalNote, error) {
	return s.applyTransition(ctx, id, models.NoteSigned, signerID, "signed")
}

// Amend moves a signed note to amended for post-signature correction.
func (s *Service) Amend(ctx context.Context, id, performedBy, reason string) (*models.ClinicalNote, error) {
	details := "amended"
	if reason != "" {
		details = "amended: " + reason
	}
	return s.applyTransition(ctx, id, models.NoteAmended, performedBy, details)
}

// Cancel moves a note to cancelled. Notes are never deleted.
func (s *Service) Cancel(ctx context.Context, id, performedBy, reason string) (*models.ClinicalNote, error) {
	details := "cancelled"
	if reason != "" {
		details = "cancelled: " + reason
	}
	return s.applyTransition(ctx, id, models.NoteCancelled, performedBy, details)
}

// Get returns a note by id.
func (s *Service) Get(ctx context.Context, id string) (*models.ClinicalNote, error) {
	return s.notes.Get(ctx, id)
}

// ListByPatient returns a patient's notes.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*models.ClinicalNote, error) {
	return s.notes.ListByPatient(ctx, patientID)
}

// ListByDoctor returns a doctor's notes.
func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]*models.ClinicalNote, error) {
	return s.notes.ListByDoctor(ctx, doctorID)
}

// ListPendingReview returns notes awaiting human review.
func (s *Service) ListPendingReview(ctx context.Context) ([]*models.ClinicalNote, error) {
	return s.notes.ListPendingReview(ctx)
}

// Stats returns aggregate note counts.
func (s *Service) Stats(ctx context.Context) (*models.NoteStats, error) {
	return s.notes.Stats(ctx)
}

func (s *Service) resolveSource(ctx context.Context, req GenerateRequest) (string, GenerateRequest, error) {
	if req.TranscriptionID == "" {
		if strings.TrimSpace(req.Transcript) == "" {
			return "", req, errs.Validationf("either transcriptionId or transcript is required")
		}
		return req.Transcript, req, nil
	}

	tr, err := s.transcriptions.Get(ctx, req.TranscriptionID)
	if err != nil {
		return "", req, err
	}
	if tr.Status != models.TranscriptionCompleted || tr.Result == nil {
		return "", req, errs.Conflictf("transcription %s is %s, notes require a completed transcription", tr.ID, tr.Status)
	}
	req.EncounterID = tr.EncounterID
	req.PatientID = tr.PatientID
	req.DoctorID = tr.DoctorID
	return tr.Result.Transcript, req, nil
}

// applyGeneration overwrites the note's content and metadata from a
// generation result and rescoring against the source transcript.
func (s *Service) applyGeneration(note *models.ClinicalNote, result *notegen.Result, transcript string) {
	note.SOAP = result.SOAP
	note.AIMetadata = result.Metadata
	note.AIMetadata.ConfidenceScore = scoring.Confidence(result.SOAP, transcript)
	note.AIMetadata.QualityMetrics = scoring.AssessQuality(result.SOAP, transcript)
}

// runQualityChecks appends non-blocking compliance flags. Each check is
// independent; a note can carry several.
func (s *Service) runQualityChecks(note *models.ClinicalNote) {
	if note.SOAP.Subjective.ChiefComplaint == "" {
		s.flag(note, "missing_chief_complaint", "No chief complaint documented", "warning")
	}
	if note.SOAP.Assessment.ClinicalImpression == "" && len(note.SOAP.Assessment.Diagnoses) == 0 {
		s.flag(note, "missing_assessment", "No clinical assessment documented", "warning")
	}
	if !note.SOAP.HasPlan() {
		s.flag(note, "missing_plan", "No treatment plan documented", "warning")
	}
	if wordCount(note.SOAP) < 50 {
		s.flag(note, "insufficient_detail", "Note contains fewer than 50 words", "info")
	}
}

func (s *Service) applyTransition(ctx context.Context, id string, to models.NoteStatus, performedBy, details string) (*models.ClinicalNote, error) {
	if performedBy == "" {
		return nil, errs.Validationf("performing user is required")
	}
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(note, to); err != nil {
		return nil, err
	}

	previous := note.Status
	s.transition(note, to, performedBy, details)
	note.UpdatedAt = time.Now().UTC()
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("noteId", note.ID).
		Str("from", string(previous)).
		Str("to", string(to)).
		Str("performedBy", performedBy).
		Msg("Note status changed")

	s.publishEvent(note, models.EventNoteStatusChanged, previous, performedBy)
	return note, nil
}

// transition changes status and appends exactly one audit entry.
func (s *Service) transition(note *models.ClinicalNote, to models.NoteStatus, performedBy, details string) {
	from := note.Status
	note.Status = to
	s.audit(note, "status_changed_to_"+string(to), performedBy, details)
	s.metrics.ReviewTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (s *Service) audit(note *models.ClinicalNote, action, performedBy, details string) {
	note.AuditTrail = append(note.AuditTrail, models.AuditEntry{
		Action:      action,
		PerformedBy: performedBy,
		PerformedAt: time.Now().UTC(),
		Details:     details,
	})
}

func (s *Service) flag(note *models.ClinicalNote, flagType, description, severity string) {
	note.ComplianceFlags = append(note.ComplianceFlags, models.ComplianceFlag{
		Type:        flagType,
		Description: description,
		Severity:    severity,
	})
	s.metrics.ComplianceFlags.WithLabelValues(flagType).Inc()
}

func (s *Service) publishEvent(note *models.ClinicalNote, eventType string, previous models.NoteStatus, performedBy string) {
	if s.publisher == nil {
		return
	}
	ev := models.NoteEvent{
		EventType:       eventType,
		NoteID:          note.ID,
		EncounterID:     note.EncounterID,
		TranscriptionID: note.TranscriptionID,
		Status:          string(note.Status),
		PreviousStatus:  string(previous),
		ConfidenceScore: note.AIMetadata.ConfidenceScore,
		PerformedBy:     performedBy,
		Timestamp:       time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishNote(context.Background(), note.ID, ev); err != nil {
		s.logger.Error().Err(err).Str("noteId", note.ID).Msg("Failed to publish note event")
	}
}

func wordCount(soap models.SOAPNote) int {
	return len(strings.Fields(soapText(soap)))
}

func soapText(soap models.SOAPNote) string {
	var b strings.Builder
	b.WriteString(soap.Subjective.ChiefComplaint + " ")
	b.WriteString(soap.Subjective.HistoryOfPresentIllness + " ")
	b.WriteString(strings.Join(soap.Subjective.ReviewOfSystems, " ") + " ")
	b.WriteString(soap.Objective.PhysicalExam + " ")
	b.WriteString(strings.Join(soap.Objective.DiagnosticResults, " ") + " ")
	b.WriteString(soap.Assessment.ClinicalImpression + " ")
	b.WriteString(strings.Join(soap.Plan.Treatments, " ") + " ")
	b.WriteString(soap.Plan.FollowUp)
	return b.String()
}
