// Package models defines the data contracts for the clinical documentation
// pipeline: transcriptions, clinical notes, and the lifecycle events
// published about them.
package models

import "time"

// TranscriptionStatus is the lifecycle state of a transcription job.
type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "pending"
	TranscriptionProcessing TranscriptionStatus = "processing"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionFailed     TranscriptionStatus = "failed"
)

// VoiceRecording describes the audio asset a transcription is created from.
// Upload and storage of the raw bytes are owned by the audio asset store;
// only the metadata travels through this service.
type VoiceRecording struct {
	ID              string  `json:"id"`
	EncounterID     string  `json:"encounterId"`
	PatientID       string  `json:"patientId"`
	DoctorID        string  `json:"doctorId"`
	AudioFormat     string  `json:"audioFormat"`
	SampleRateHertz int     `json:"sampleRateHertz"`
	DurationSeconds float64 `json:"durationSeconds"`
	LanguageCode    string  `json:"languageCode"`
}

// ProcessingMetadata is fixed at transcription creation and never mutated.
type ProcessingMetadata struct {
	AudioFormat       string  `json:"audioFormat"`
	SampleRateHertz   int     `json:"sampleRateHertz"`
	LanguageCode      string  `json:"languageCode"`
	DurationSeconds   float64 `json:"durationSeconds"`
	EnableDiarization bool    `json:"enableDiarization"`
	SpeakerCount      int     `json:"speakerCount"`
	Model             string  `json:"model"`
}

// WordInfo is one recognized word with timing, confidence and speaker tag.
// Times are seconds from the start of the audio.
type WordInfo struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
	SpeakerTag int     `json:"speakerTag"`
}

// AudioQualityMetrics summarizes recognition quality for a completed job.
type AudioQualityMetrics struct {
	OverallConfidence      float64 `json:"overallConfidence"`
	LowConfidenceWordCount int     `json:"lowConfidenceWordCount"`
	SilenceDuration        float64 `json:"silenceDuration"`
	BackgroundNoiseLevel   string  `json:"backgroundNoiseLevel"`
}

// DetectedTerm is a medical vocabulary term found in the transcript.
type DetectedTerm struct {
	Term       string  `json:"term"`
	Confidence float64 `json:"confidence"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
}

// TranscriptionResult is the payload populated only when a transcription
// reaches the completed state.
type TranscriptionResult struct {
	Transcript           string              `json:"transcript"`
	Words                []WordInfo          `json:"words"`
	Alternatives         []string            `json:"alternatives"`
	Confidence           float64             `json:"confidence"`
	WordCount            int                 `json:"wordCount"`
	SpeakerCount         int                 `json:"speakerCount"`
	DurationSeconds      float64             `json:"durationSeconds"`
	QualityMetrics       AudioQualityMetrics `json:"qualityMetrics"`
	MedicalTermsDetected []DetectedTerm      `json:"medicalTermsDetected"`
}

// ErrorDetails is populated only when a transcription is in the failed state.
// RetryCount mirrors Transcription.RetryCount at the time of failure.
type ErrorDetails struct {
	Message    string `json:"message"`
	RetryCount int    `json:"retryCount"`
}

// Transcription is the persistent transcription job document.
//
// Invariants:
//   - Result and ErrorDetails are mutually exclusive.
//   - RetryCount only increases.
//   - A transcription leaves failed only via an explicit retry.
//   - GoogleJobID is present only while processing long audio.
type Transcription struct {
	ID                 string               `json:"id"`
	VoiceRecordingID   string               `json:"voiceRecordingId"`
	EncounterID        string               `json:"encounterId"`
	PatientID          string               `json:"patientId"`
	DoctorID           string               `json:"doctorId"`
	Status             TranscriptionStatus  `json:"status"`
	ProcessingMetadata ProcessingMetadata   `json:"processingMetadata"`
	GoogleJobID        string               `json:"googleJobId,omitempty"`
	Result             *TranscriptionResult `json:"result,omitempty"`
	ErrorDetails       *ErrorDetails        `json:"errorDetails,omitempty"`
	RetryCount         int                  `json:"retryCount"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// TranscriptionStats aggregates transcription jobs for the stats endpoint.
type TranscriptionStats struct {
	Total             int                         `json:"total"`
	ByStatus          map[TranscriptionStatus]int `json:"byStatus"`
	AverageConfidence float64                     `json:"averageConfidence"`
}
