package transcription

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-clinical-scribe-service/internal/config"
	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	sttmock "ai-clinical-scribe-service/internal/service/stt/mock"
)

type storeSnapshot struct {
	status      models.TranscriptionStatus
	googleJobID string
}

type fakeStore struct {
	mu      sync.Mutex
	byID    map[string]*models.Transcription
	history []storeSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]*models.Transcription{}}
}

func (s *fakeStore) Create(_ context.Context, tr *models.Transcription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tr
	s.byID[tr.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*models.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.byID[id]
	if !ok {
		return nil, errs.NotFoundf("transcription %s not found", id)
	}
	cp := *tr
	return &cp, nil
}

func (s *fakeStore) GetByVoiceRecording(_ context.Context, recID string) (*models.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tr := range s.byID {
		if tr.VoiceRecordingID == recID {
			cp := *tr
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("transcription for recording %s not found", recID)
}

func (s *fakeStore) ClaimPending(_ context.Context, tr *models.Transcription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[tr.ID]
	if !ok {
		return errs.NotFoundf("transcription %s not found", tr.ID)
	}
	if stored.Status != models.TranscriptionPending {
		return errs.Conflictf("transcription %s is no longer pending", tr.ID)
	}
	stored.Status = models.TranscriptionProcessing
	stored.UpdatedAt = tr.UpdatedAt
	s.history = append(s.history, storeSnapshot{status: stored.Status, googleJobID: stored.GoogleJobID})
	return nil
}

func (s *fakeStore) Update(_ context.Context, tr *models.Transcription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tr
	s.byID[tr.ID] = &cp
	s.history = append(s.history, storeSnapshot{status: tr.Status, googleJobID: tr.GoogleJobID})
	return nil
}

func (s *fakeStore) ListPending(_ context.Context) ([]*models.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transcription
	for _, tr := range s.byID {
		if tr.Status == models.TranscriptionPending {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) Stats(_ context.Context) (*models.TranscriptionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.TranscriptionStats{ByStatus: map[models.TranscriptionStatus]int{}}
	for _, tr := range s.byID {
		stats.Total++
		stats.ByStatus[tr.Status]++
	}
	return stats, nil
}

func (s *fakeStore) snapshots() []storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storeSnapshot(nil), s.history...)
}

type fakeAudio struct {
	data map[string][]byte
}

func (a *fakeAudio) Retrieve(_ context.Context, id string) ([]byte, error) {
	b, ok := a.data[id]
	if !ok {
		return nil, errs.NotFoundf("audio for voice recording %s not found", id)
	}
	return b, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.TranscriptionEvent
}

func (p *capturePublisher) PublishTranscription(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(models.TranscriptionEvent))
	return nil
}

func (p *capturePublisher) published() []models.TranscriptionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TranscriptionEvent(nil), p.events...)
}

func testSTTConfig() config.STTConfig {
	return config.STTConfig{
		Provider:          "mock",
		LanguageCode:      "en-US",
		Model:             "medical_conversation",
		MaxAlternatives:   3,
		EnableDiarization: true,
		MinSpeakers:       2,
		MaxSpeakers:       2,
		SyncCutoff:        60 * time.Second,
		ProcessingTimeout: 5 * time.Second,
	}
}

func testRecording(duration float64) models.VoiceRecording {
	return models.VoiceRecording{
		ID:              "rec-1",
		EncounterID:     "enc-1",
		PatientID:       "pat-1",
		DoctorID:        "doc-1",
		AudioFormat:     "audio/wav",
		SampleRateHertz: 16000,
		DurationSeconds: duration,
	}
}

func newTestManager(adapter *sttmock.Adapter) (*Manager, *fakeStore, *capturePublisher) {
	store := newFakeStore()
	audio := &fakeAudio{data: map[string][]byte{"rec-1": []byte("pcm")}}
	pub := &capturePublisher{}
	m := NewManager(store, audio, adapter, pub, testSTTConfig(), 3)
	return m, store, pub
}

func TestCreatePending(t *testing.T) {
	m, _, _ := newTestManager(sttmock.New())

	tr, created, err := m.Create(context.Background(), testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Error("expected created = true for a new recording")
	}
	if tr.Status != models.TranscriptionPending {
		t.Errorf("status = %s, want pending", tr.Status)
	}
	if tr.ID == "" {
		t.Error("expected generated id")
	}
	if tr.ProcessingMetadata.LanguageCode != "en-US" {
		t.Errorf("languageCode = %s, want en-US", tr.ProcessingMetadata.LanguageCode)
	}
	if tr.ProcessingMetadata.Model != "medical_conversation" {
		t.Errorf("model = %s, want medical_conversation", tr.ProcessingMetadata.Model)
	}
	if tr.RetryCount != 0 {
		t.Errorf("retryCount = %d, want 0", tr.RetryCount)
	}
}

func TestCreateRequiresAudioMetadata(t *testing.T) {
	m, _, _ := newTestManager(sttmock.New())

	rec := testRecording(45)
	rec.AudioFormat = ""
	if _, _, err := m.Create(context.Background(), rec, Options{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Create error = %v, want ErrValidation", err)
	}

	rec = testRecording(0)
	if _, _, err := m.Create(context.Background(), rec, Options{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Create error = %v, want ErrValidation", err)
	}
}

func TestCreateDuplicateReturnsExisting(t *testing.T) {
	m, _, _ := newTestManager(sttmock.New())
	ctx := context.Background()

	first, created, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Error("first create reported created = false")
	}
	second, created, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create duplicate: %v", err)
	}
	if created {
		t.Error("duplicate create reported created = true")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate create id = %s, want %s", second.ID, first.ID)
	}
}

func TestDispatchSyncCompletes(t *testing.T) {
	adapter := sttmock.New()
	m, store, pub := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Dispatch(ctx, tr); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.TranscriptionCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.Result == nil {
		t.Fatal("expected result on completed transcription")
	}
	if !strings.Contains(got.Result.Transcript, "amoxicillin") {
		t.Errorf("transcript missing scripted content: %q", got.Result.Transcript)
	}
	if got.Result.SpeakerCount != 2 {
		t.Errorf("speakerCount = %d, want 2", got.Result.SpeakerCount)
	}
	if got.Result.WordCount != len(got.Result.Words) {
		t.Errorf("wordCount = %d, want %d", got.Result.WordCount, len(got.Result.Words))
	}
	if got.Result.Confidence < 0.89 || got.Result.Confidence > 0.95 {
		t.Errorf("confidence = %f, want within scripted range", got.Result.Confidence)
	}
	if len(got.Result.MedicalTermsDetected) == 0 {
		t.Error("expected medical terms detected in scripted encounter")
	}
	if got.GoogleJobID != "" {
		t.Errorf("googleJobId = %q, want empty for sync recognition", got.GoogleJobID)
	}
	if got.ErrorDetails != nil {
		t.Errorf("errorDetails = %+v, want nil", got.ErrorDetails)
	}

	snaps := store.snapshots()
	if len(snaps) < 2 || snaps[0].status != models.TranscriptionProcessing {
		t.Errorf("first persisted status = %+v, want processing before engine call", snaps)
	}
	if snaps[len(snaps)-1].status != models.TranscriptionCompleted {
		t.Errorf("last persisted status = %s, want completed", snaps[len(snaps)-1].status)
	}

	events := pub.published()
	if len(events) != 1 || events[0].EventType != models.EventTranscriptionCompleted {
		t.Errorf("published events = %+v, want one completed event", events)
	}
}

func TestDispatchLongRunningTracksJobID(t *testing.T) {
	adapter := sttmock.New()
	m, store, _ := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(90), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Dispatch(ctx, tr); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var sawJobID bool
	for _, snap := range store.snapshots() {
		if snap.status == models.TranscriptionProcessing && snap.googleJobID == "operations/mock-12345" {
			sawJobID = true
		}
	}
	if !sawJobID {
		t.Error("expected operation name persisted while processing")
	}

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.TranscriptionCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.GoogleJobID != "" {
		t.Errorf("googleJobId = %q, want cleared after completion", got.GoogleJobID)
	}
}

func TestDispatchZeroResultsFails(t *testing.T) {
	adapter := sttmock.New()
	adapter.Script = nil
	m, _, pub := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = m.Dispatch(ctx, tr)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Dispatch error = %v, want ErrValidation", err)
	}

	got, _ := m.Get(ctx, tr.ID)
	if got.Status != models.TranscriptionFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorDetails == nil {
		t.Fatal("expected errorDetails on failed transcription")
	}
	if got.ErrorDetails.RetryCount != 0 {
		t.Errorf("errorDetails.retryCount = %d, want 0", got.ErrorDetails.RetryCount)
	}
	if got.Result != nil {
		t.Error("failed transcription must not carry a result")
	}

	events := pub.published()
	if len(events) != 1 || events[0].EventType != models.EventTranscriptionFailed {
		t.Errorf("published events = %+v, want one failed event", events)
	}
}

func TestDispatchEngineErrorFails(t *testing.T) {
	adapter := sttmock.New()
	adapter.Err = errors.New("recognition backend unavailable")
	m, _, _ := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Dispatch(ctx, tr); err == nil {
		t.Fatal("expected dispatch error")
	}

	got, _ := m.Get(ctx, tr.ID)
	if got.Status != models.TranscriptionFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.ErrorDetails == nil || !strings.Contains(got.ErrorDetails.Message, "unavailable") {
		t.Errorf("errorDetails = %+v, want backend error message", got.ErrorDetails)
	}
}

func TestDispatchRequiresPending(t *testing.T) {
	m, _, _ := newTestManager(sttmock.New())
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Dispatch(ctx, tr); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	completed, _ := m.Get(ctx, tr.ID)
	if err := m.Dispatch(ctx, completed); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("Dispatch completed error = %v, want ErrConflict", err)
	}
}

func TestDispatchStaleSnapshotCannotClobberResult(t *testing.T) {
	adapter := sttmock.New()
	m, _, pub := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Two dispatchers load the same pending job. The first completes it;
	// the second still sees pending in its snapshot.
	fresh, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stale, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := m.Dispatch(ctx, fresh); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	adapter.Err = errors.New("engine hiccup")
	if err := m.Dispatch(ctx, stale); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("stale Dispatch error = %v, want ErrConflict", err)
	}

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.TranscriptionCompleted {
		t.Errorf("status = %s, want completed preserved", got.Status)
	}
	if got.Result == nil {
		t.Error("completed result erased by stale dispatch")
	}
	if got.ErrorDetails != nil {
		t.Errorf("errorDetails = %+v, want nil on completed job", got.ErrorDetails)
	}
	if n := adapter.Recognitions(); n != 1 {
		t.Errorf("recognitions = %d, want 1", n)
	}
	events := pub.published()
	if len(events) != 1 || events[0].EventType != models.EventTranscriptionCompleted {
		t.Errorf("published events = %+v, want one completed event", events)
	}
}

func TestRetryRecoversFailedJob(t *testing.T) {
	adapter := sttmock.New()
	adapter.Err = errors.New("transient failure")
	m, _, _ := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Dispatch(ctx, tr); err == nil {
		t.Fatal("expected first dispatch to fail")
	}

	adapter.Err = nil
	retried, err := m.Retry(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.RetryCount != 1 {
		t.Errorf("retryCount = %d, want 1", retried.RetryCount)
	}

	got, _ := m.Get(ctx, tr.ID)
	if got.Status != models.TranscriptionCompleted {
		t.Errorf("status after retry = %s, want completed", got.Status)
	}
	if got.ErrorDetails != nil {
		t.Errorf("errorDetails = %+v, want cleared on retry", got.ErrorDetails)
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	m, _, _ := newTestManager(sttmock.New())
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Retry(ctx, tr.ID); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Retry pending error = %v, want ErrValidation", err)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	adapter := sttmock.New()
	adapter.Err = errors.New("persistent failure")
	m, store, _ := newTestManager(adapter)
	ctx := context.Background()

	tr, _, err := m.Create(ctx, testRecording(45), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Dispatch(ctx, tr); err == nil {
		t.Fatal("expected dispatch to fail")
	}

	for i := 0; i < 3; i++ {
		if _, err := m.Retry(ctx, tr.ID); err == nil {
			t.Fatalf("retry %d: expected failure", i+1)
		}
	}

	_, err = m.Retry(ctx, tr.ID)
	if !errors.Is(err, errs.ErrValidation) || !strings.Contains(err.Error(), "maximum retry attempts exceeded") {
		t.Errorf("Retry error = %v, want retry budget exhaustion", err)
	}

	got, _ := store.Get(ctx, tr.ID)
	if got.RetryCount != 3 {
		t.Errorf("retryCount = %d, want 3", got.RetryCount)
	}
	if got.ErrorDetails == nil || got.ErrorDetails.RetryCount != 3 {
		t.Errorf("errorDetails = %+v, want retryCount 3 at last failure", got.ErrorDetails)
	}
}

func TestRetryUnknownID(t *testing.T) {
	m, _, _ := newTestManager(sttmock.New())
	if _, err := m.Retry(context.Background(), "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Retry error = %v, want ErrNotFound", err)
	}
}
