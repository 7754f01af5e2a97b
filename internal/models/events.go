package models

// Lifecycle event types published to Kafka.
const (
	EventTranscriptionCompleted = "encounter.transcription.completed"
	EventTranscriptionFailed    = "encounter.transcription.failed"
	EventNoteGenerated          = "encounter.note.generated"
	EventNoteStatusChanged      = "encounter.note.status_changed"
)

// TranscriptionEvent announces a transcription job reaching a terminal state.
type TranscriptionEvent struct {
	EventType        string  `json:"eventType"`
	TranscriptionID  string  `json:"transcriptionId"`
	VoiceRecordingID string  `json:"voiceRecordingId"`
	EncounterID      string  `json:"encounterId"`
	Status           string  `json:"status"`
	Confidence       float64 `json:"confidence,omitempty"`
	WordCount        int     `json:"wordCount,omitempty"`
	Error            string  `json:"error,omitempty"`
	Timestamp        int64   `json:"timestamp"`
}

// NoteEvent announces a clinical note being generated or changing status.
type NoteEvent struct {
	EventType       string  `json:"eventType"`
	NoteID          string  `json:"noteId"`
	EncounterID     string  `json:"encounterId"`
	TranscriptionID string  `json:"transcriptionId,omitempty"`
	Status          string  `json:"status"`
	PreviousStatus  string  `json:"previousStatus,omitempty"`
	ConfidenceScore float64 `json:"confidenceScore,omitempty"`
	PerformedBy     string  `json:"performedBy,omitempty"`
	Timestamp       int64   `json:"timestamp"`
}
