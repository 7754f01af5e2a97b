package models

import "time"

// NoteStatus is the lifecycle state of a clinical note.
type NoteStatus string

const (
	NoteGenerating NoteStatus = "generating"
	NoteDraft      NoteStatus = "draft"
	NoteReview     NoteStatus = "review"
	NoteApproved   NoteStatus = "approved"
	NoteSigned     NoteStatus = "signed"
	NoteAmended    NoteStatus = "amended"
	NoteCancelled  NoteStatus = "cancelled"
)

// TokenUsage is an estimate derived from character counts (ceil(chars/4)),
// not a billing-accurate figure from the provider.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// QualityMetrics holds the four independently computed quality axes plus
// their average.
type QualityMetrics struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Relevance    float64 `json:"relevance"`
	Clarity      float64 `json:"clarity"`
	Overall      float64 `json:"overall"`
}

// AIMetadata records how a note's content was generated.
type AIMetadata struct {
	Model            string         `json:"model"`
	Temperature      float64        `json:"temperature"`
	TopP             float64        `json:"topP"`
	TopK             int            `json:"topK"`
	MaxOutputTokens  int            `json:"maxOutputTokens"`
	TokenUsage       TokenUsage     `json:"tokenUsage"`
	ProcessingTimeMs int64          `json:"processingTime"`
	ConfidenceScore  float64        `json:"confidenceScore"`
	QualityMetrics   QualityMetrics `json:"qualityMetrics"`
}

// FieldChange is one field-level diff inside an edit record. Values are
// serialized to strings for audit readability.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// EditRecord is one manual edit. Append-only.
type EditRecord struct {
	EditedBy string        `json:"editedBy"`
	EditedAt time.Time     `json:"editedAt"`
	Section  string        `json:"section"`
	Changes  []FieldChange `json:"changes"`
	Reason   string        `json:"reason"`
}

// ComplianceFlag is a non-blocking annotation raised by automated quality
// checks. Append-only.
type ComplianceFlag struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// AuditEntry records one lifecycle transition or edit. Append-only; every
// forward transition appends exactly one entry.
type AuditEntry struct {
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
	PerformedAt time.Time `json:"performedAt"`
	Details     string    `json:"details"`
}

// ClinicalNote is the persistent reviewed clinical document.
//
// Invariants:
//   - Status only advances through the review workflow graph.
//   - EditHistory entries exist only for manual (non-generation) mutations.
//   - Notes are never deleted, only status-transitioned.
type ClinicalNote struct {
	ID              string           `json:"id"`
	EncounterID     string           `json:"encounterId"`
	PatientID       string           `json:"patientId"`
	DoctorID        string           `json:"doctorId"`
	TranscriptionID string           `json:"transcriptionId"`
	Status          NoteStatus       `json:"status"`
	SOAP            SOAPNote         `json:"soapNote"`
	AIMetadata      AIMetadata       `json:"aiMetadata"`
	EditHistory     []EditRecord     `json:"editHistory"`
	ComplianceFlags []ComplianceFlag `json:"complianceFlags"`
	AuditTrail      []AuditEntry     `json:"auditTrail"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// NoteStats aggregates clinical notes for the stats endpoint.
type NoteStats struct {
	Total             int                `json:"total"`
	ByStatus          map[NoteStatus]int `json:"byStatus"`
	AverageConfidence float64            `json:"averageConfidence"`
	PendingReview     int                `json:"pendingReview"`
}
