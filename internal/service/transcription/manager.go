// Package transcription owns the Transcription entity lifecycle: creation,
// dispatch to the recognition engine, retry, completion and failure.
//
// State machine: pending → processing → {completed | failed};
// failed → pending only via explicit retry. completed and a retry-exhausted
// failed are terminal. The processing write is persisted before the engine
// call is issued, and the terminal write is always the last write.
package transcription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-clinical-scribe-service/internal/config"
	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/observability/logging"
	"ai-clinical-scribe-service/internal/observability/metrics"
	"ai-clinical-scribe-service/internal/service/audioformat"
	"ai-clinical-scribe-service/internal/service/medterms"
	"ai-clinical-scribe-service/internal/service/stt"
)

// Store is the persistence surface the manager needs. Implementations must
// provide atomic single-document updates.
type Store interface {
	Create(ctx context.Context, tr *models.Transcription) error
	Get(ctx context.Context, id string) (*models.Transcription, error)
	GetByVoiceRecording(ctx context.Context, voiceRecordingID string) (*models.Transcription, error)
	// ClaimPending moves tr to processing only if the stored row is still
	// pending, so at most one dispatcher wins a job. A lost claim returns
	// a conflict.
	ClaimPending(ctx context.Context, tr *models.Transcription) error
	Update(ctx context.Context, tr *models.Transcription) error
	ListPending(ctx context.Context) ([]*models.Transcription, error)
	Stats(ctx context.Context) (*models.TranscriptionStats, error)
}

// AudioStore retrieves raw audio bytes for a voice recording.
type AudioStore interface {
	Retrieve(ctx context.Context, voiceRecordingID string) ([]byte, error)
}

// Publisher announces terminal transcription states.
type Publisher interface {
	PublishTranscription(ctx context.Context, key string, event any) error
}

// Options override recognition defaults for one transcription.
type Options struct {
	LanguageCode string
	Model        string
}

// Manager orchestrates transcription jobs.
type Manager struct {
	store      Store
	audio      AudioStore
	engine     stt.Adapter
	publisher  Publisher
	cfg        config.STTConfig
	maxRetries int
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewManager creates a transcription job manager.
func NewManager(store Store, audio AudioStore, engine stt.Adapter, publisher Publisher, cfg config.STTConfig, maxRetries int) *Manager {
	return &Manager{
		store:      store,
		audio:      audio,
		engine:     engine,
		publisher:  publisher,
		cfg:        cfg,
		maxRetries: maxRetries,
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithComponent("transcription"),
	}
}

// Create registers a new transcription job in the pending state. A second
// create for the same voice recording short-circuits to the existing job;
// the created return reports whether this call inserted a new job, so only
// the caller that created it enqueues a dispatch.
func (m *Manager) Create(ctx context.Context, rec models.VoiceRecording, opts Options) (tr *models.Transcription, created bool, err error) {
	if rec.ID == "" {
		return nil, false, errs.Validationf("voice recording id is required")
	}
	if rec.AudioFormat == "" || rec.DurationSeconds <= 0 {
		return nil, false, errs.Validationf("voice recording %s lacks audio metadata", rec.ID)
	}

	if existing, err := m.store.GetByVoiceRecording(ctx, rec.ID); err == nil {
		m.logger.Debug().
			Str("transcriptionId", existing.ID).
			Str("voiceRecordingId", rec.ID).
			Msg("Transcription already exists for recording")
		return existing, false, nil
	}

	language := rec.LanguageCode
	if opts.LanguageCode != "" {
		language = opts.LanguageCode
	}
	if language == "" {
		language = m.cfg.LanguageCode
	}
	model := m.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}

	now := time.Now().UTC()
	tr = &models.Transcription{
		ID:               uuid.NewString(),
		VoiceRecordingID: rec.ID,
		EncounterID:      rec.EncounterID,
		PatientID:        rec.PatientID,
		DoctorID:         rec.DoctorID,
		Status:           models.TranscriptionPending,
		ProcessingMetadata: models.ProcessingMetadata{
			AudioFormat:       rec.AudioFormat,
			SampleRateHertz:   rec.SampleRateHertz,
			LanguageCode:      language,
			DurationSeconds:   rec.DurationSeconds,
			EnableDiarization: m.cfg.EnableDiarization,
			SpeakerCount:      m.cfg.MaxSpeakers,
			Model:             model,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Create(ctx, tr); err != nil {
		return nil, false, err
	}
	m.metrics.JobsCreated.Inc()

	m.logger.Info().
		Str("transcriptionId", tr.ID).
		Str("voiceRecordingId", rec.ID).
		Float64("durationSeconds", rec.DurationSeconds).
		Msg("Transcription created")
	return tr, true, nil
}

// Dispatch runs a pending transcription to completion. Short audio (at or
// below the sync cutoff) uses synchronous recognition; longer audio starts a
// long-running operation and polls it to completion. Any engine failure
// lands in the failed state with errorDetails populated; nothing retries
// automatically.
func (m *Manager) Dispatch(ctx context.Context, tr *models.Transcription) error {
	if tr.Status != models.TranscriptionPending {
		return errs.Conflictf("transcription %s is %s, only pending jobs can be dispatched", tr.ID, tr.Status)
	}

	// Claim the job before the engine call: the store flips pending to
	// processing atomically, so a dispatcher working from a stale snapshot
	// loses the claim here instead of re-running the engine and
	// overwriting a terminal result.
	tr.Status = models.TranscriptionProcessing
	tr.UpdatedAt = time.Now().UTC()
	if err := m.store.ClaimPending(ctx, tr); err != nil {
		return err
	}
	m.metrics.JobsActive.Inc()
	defer m.metrics.JobsActive.Dec()

	audio, err := m.audio.Retrieve(ctx, tr.VoiceRecordingID)
	if err != nil {
		return m.fail(ctx, tr, errs.Integration("retrieve audio", err))
	}

	req := m.buildRequest(tr, audio)
	longRunning := tr.ProcessingMetadata.DurationSeconds > m.cfg.SyncCutoff.Seconds()

	callCtx := ctx
	if m.cfg.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.cfg.ProcessingTimeout)
		defer cancel()
	}

	started := time.Now()
	var resp *stt.Response
	if longRunning {
		m.metrics.JobsDispatched.WithLabelValues("long_running").Inc()
		resp, err = m.dispatchLongRunning(callCtx, tr, req)
	} else {
		m.metrics.JobsDispatched.WithLabelValues("sync").Inc()
		resp, err = m.engine.Recognize(callCtx, req)
	}
	if err != nil {
		return m.fail(ctx, tr, err)
	}
	mode := "sync"
	if longRunning {
		mode = "long_running"
	}
	m.metrics.RecordRecognition(mode, time.Since(started))

	result, err := processResponse(resp)
	if err != nil {
		return m.fail(ctx, tr, err)
	}

	// Terminal write is the last write: no partial result is ever visible
	// as completed.
	tr.Result = result
	tr.ErrorDetails = nil
	tr.GoogleJobID = ""
	tr.Status = models.TranscriptionCompleted
	tr.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, tr); err != nil {
		return err
	}
	m.metrics.JobsCompleted.Inc()
	m.metrics.TranscriptionConfidence.Observe(result.Confidence)

	m.logger.Info().
		Str("transcriptionId", tr.ID).
		Int("wordCount", result.WordCount).
		Float64("confidence", result.Confidence).
		Bool("longRunning", longRunning).
		Msg("Transcription completed")

	m.publishEvent(tr, models.EventTranscriptionCompleted, "")
	return nil
}

func (m *Manager) dispatchLongRunning(ctx context.Context, tr *models.Transcription, req *stt.Request) (*stt.Response, error) {
	op, err := m.engine.StartLongRunning(ctx, req)
	if err != nil {
		return nil, err
	}

	// The operation handle is visible while processing so observers can
	// correlate with the engine's own job listing.
	tr.GoogleJobID = op.Name()
	tr.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, tr); err != nil {
		return nil, err
	}

	return op.Wait(ctx)
}

// Retry re-dispatches a failed transcription. Only legal from failed, and
// only while the retry budget lasts. Exhaustion surfaces as a distinct
// validation error so operators can tell transient from exhausted failures.
func (m *Manager) Retry(ctx context.Context, id string) (*models.Transcription, error) {
	tr, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.Status != models.TranscriptionFailed {
		return nil, errs.Validationf("transcription %s is %s, only failed transcriptions can be retried", id, tr.Status)
	}
	if tr.RetryCount >= m.maxRetries {
		return nil, errs.Validationf("maximum retry attempts exceeded for transcription %s", id)
	}

	tr.RetryCount++
	tr.ErrorDetails = nil
	tr.Status = models.TranscriptionPending
	tr.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, tr); err != nil {
		return nil, err
	}
	m.metrics.JobRetries.Inc()

	m.logger.Info().
		Str("transcriptionId", id).
		Int("retryCount", tr.RetryCount).
		Msg("Transcription retry dispatched")

	if err := m.Dispatch(ctx, tr); err != nil {
		return tr, err
	}
	return tr, nil
}

// Get returns a transcription by id.
func (m *Manager) Get(ctx context.Context, id string) (*models.Transcription, error) {
	return m.store.Get(ctx, id)
}

// GetByVoiceRecording returns the transcription for a voice recording.
func (m *Manager) GetByVoiceRecording(ctx context.Context, voiceRecordingID string) (*models.Transcription, error) {
	return m.store.GetByVoiceRecording(ctx, voiceRecordingID)
}

// ListPending returns jobs awaiting dispatch.
func (m *Manager) ListPending(ctx context.Context) ([]*models.Transcription, error) {
	return m.store.ListPending(ctx)
}

// Stats returns aggregate job counts.
func (m *Manager) Stats(ctx context.Context) (*models.TranscriptionStats, error) {
	return m.store.Stats(ctx)
}

// fail records a terminal failure. Failure is always observable through
// entity state, not only through the returned error, because dispatch often
// runs fire-and-forget.
func (m *Manager) fail(ctx context.Context, tr *models.Transcription, cause error) error {
	tr.Status = models.TranscriptionFailed
	tr.Result = nil
	tr.GoogleJobID = ""
	tr.ErrorDetails = &models.ErrorDetails{
		Message:    cause.Error(),
		RetryCount: tr.RetryCount,
	}
	tr.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, tr); err != nil {
		m.logger.Error().Err(err).
			Str("transcriptionId", tr.ID).
			Msg("Failed to persist transcription failure")
	}
	m.metrics.JobsFailed.Inc()

	m.logger.Error().Err(cause).
		Str("transcriptionId", tr.ID).
		Int("retryCount", tr.RetryCount).
		Msg("Transcription failed")

	m.publishEvent(tr, models.EventTranscriptionFailed, cause.Error())
	return cause
}

func (m *Manager) buildRequest(tr *models.Transcription, audio []byte) *stt.Request {
	spec := audioformat.Resolve(tr.ProcessingMetadata.AudioFormat, tr.ProcessingMetadata.SampleRateHertz)
	return &stt.Request{
		Audio:             audio,
		Encoding:          spec.Encoding,
		SampleRateHertz:   spec.SampleRateHertz,
		LanguageCode:      tr.ProcessingMetadata.LanguageCode,
		Model:             tr.ProcessingMetadata.Model,
		MaxAlternatives:   m.cfg.MaxAlternatives,
		EnableDiarization: tr.ProcessingMetadata.EnableDiarization,
		MinSpeakers:       m.cfg.MinSpeakers,
		MaxSpeakers:       m.cfg.MaxSpeakers,
		BoostPhrases:      medterms.Phrases(),
		Boost:             medterms.DefaultBoost,
	}
}

func (m *Manager) publishEvent(tr *models.Transcription, eventType, errMsg string) {
	if m.publisher == nil {
		return
	}
	ev := models.TranscriptionEvent{
		EventType:        eventType,
		TranscriptionID:  tr.ID,
		VoiceRecordingID: tr.VoiceRecordingID,
		EncounterID:      tr.EncounterID,
		Status:           string(tr.Status),
		Error:            errMsg,
		Timestamp:        time.Now().UnixMilli(),
	}
	if tr.Result != nil {
		ev.Confidence = tr.Result.Confidence
		ev.WordCount = tr.Result.WordCount
	}
	if err := m.publisher.PublishTranscription(context.Background(), tr.ID, ev); err != nil {
		m.logger.Error().Err(err).Str("transcriptionId", tr.ID).Msg("Failed to publish transcription event")
	}
}
