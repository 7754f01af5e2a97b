package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
)

const transcriptionColumns = `id, voice_recording_id, encounter_id, patient_id, doctor_id,
	status, processing_metadata, google_job_id, result, error_details,
	retry_count, created_at, updated_at`

// TranscriptionStore implements the transcription persistence surface over
// PostgreSQL.
type TranscriptionStore struct {
	pool *pgxpool.Pool
}

// NewTranscriptionStore creates a transcription store.
func NewTranscriptionStore(pool *pgxpool.Pool) *TranscriptionStore {
	return &TranscriptionStore{pool: pool}
}

// Create inserts a new transcription. A second transcription for the same
// voice recording violates the unique constraint and surfaces as a conflict.
func (s *TranscriptionStore) Create(ctx context.Context, tr *models.Transcription) error {
	metadata, result, errorDetails, err := marshalTranscription(tr)
	if err != nil {
		return err
	}

	sql, args, err := psql.Insert("transcriptions").
		Columns("id", "voice_recording_id", "encounter_id", "patient_id", "doctor_id",
			"status", "processing_metadata", "google_job_id", "result", "error_details",
			"retry_count", "created_at", "updated_at").
		Values(tr.ID, tr.VoiceRecordingID, tr.EncounterID, tr.PatientID, tr.DoctorID,
			tr.Status, metadata, tr.GoogleJobID, result, errorDetails,
			tr.RetryCount, tr.CreatedAt, tr.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build transcription insert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return errs.Conflictf("transcription for voice recording %s already exists", tr.VoiceRecordingID)
		}
		return fmt.Errorf("insert transcription: %w", err)
	}
	return nil
}

// Get returns a transcription by id.
func (s *TranscriptionStore) Get(ctx context.Context, id string) (*models.Transcription, error) {
	return s.getWhere(ctx, squirrel.Eq{"id": id}, "transcription "+id)
}

// GetByVoiceRecording returns the transcription for a voice recording.
func (s *TranscriptionStore) GetByVoiceRecording(ctx context.Context, voiceRecordingID string) (*models.Transcription, error) {
	return s.getWhere(ctx, squirrel.Eq{"voice_recording_id": voiceRecordingID},
		"transcription for recording "+voiceRecordingID)
}

// ClaimPending flips a pending transcription to processing in one guarded
// write. When the row exists but is no longer pending, the claim was lost to
// another dispatcher and a conflict is returned.
func (s *TranscriptionStore) ClaimPending(ctx context.Context, tr *models.Transcription) error {
	sql, args, err := psql.Update("transcriptions").
		Set("status", models.TranscriptionProcessing).
		Set("updated_at", tr.UpdatedAt).
		Where(squirrel.Eq{"id": tr.ID, "status": models.TranscriptionPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build transcription claim: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("claim transcription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, tr.ID); err != nil {
			return err
		}
		return errs.Conflictf("transcription %s is no longer pending", tr.ID)
	}
	return nil
}

// Update replaces the full transcription document in one atomic write.
func (s *TranscriptionStore) Update(ctx context.Context, tr *models.Transcription) error {
	metadata, result, errorDetails, err := marshalTranscription(tr)
	if err != nil {
		return err
	}

	sql, args, err := psql.Update("transcriptions").
		Set("status", tr.Status).
		Set("processing_metadata", metadata).
		Set("google_job_id", tr.GoogleJobID).
		Set("result", result).
		Set("error_details", errorDetails).
		Set("retry_count", tr.RetryCount).
		Set("updated_at", tr.UpdatedAt).
		Where(squirrel.Eq{"id": tr.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build transcription update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transcription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFoundf("transcription %s not found", tr.ID)
	}
	return nil
}

// ListPending returns jobs awaiting dispatch, oldest first.
func (s *TranscriptionStore) ListPending(ctx context.Context) ([]*models.Transcription, error) {
	sql, args, err := psql.Select(transcriptionColumns).
		From("transcriptions").
		Where(squirrel.Eq{"status": models.TranscriptionPending}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending transcriptions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transcription
	for rows.Next() {
		tr, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Stats aggregates job counts and the mean confidence of completed jobs.
func (s *TranscriptionStore) Stats(ctx context.Context) (*models.TranscriptionStats, error) {
	stats := &models.TranscriptionStats{ByStatus: map[models.TranscriptionStatus]int{}}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM transcriptions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query transcription stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status models.TranscriptionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan transcription stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG((result->>'confidence')::float), 0)
		 FROM transcriptions WHERE status = $1`,
		models.TranscriptionCompleted).Scan(&stats.AverageConfidence)
	if err != nil {
		return nil, fmt.Errorf("query average confidence: %w", err)
	}
	return stats, nil
}

func (s *TranscriptionStore) getWhere(ctx context.Context, where squirrel.Eq, what string) (*models.Transcription, error) {
	sql, args, err := psql.Select(transcriptionColumns).
		From("transcriptions").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build transcription query: %w", err)
	}

	tr, err := scanTranscription(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("%s not found", what)
	}
	return tr, err
}

func marshalTranscription(tr *models.Transcription) (metadata, result, errorDetails []byte, err error) {
	metadata, err = json.Marshal(tr.ProcessingMetadata)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal processing metadata: %w", err)
	}
	if tr.Result != nil {
		result, err = json.Marshal(tr.Result)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	if tr.ErrorDetails != nil {
		errorDetails, err = json.Marshal(tr.ErrorDetails)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal error details: %w", err)
		}
	}
	return metadata, result, errorDetails, nil
}

func scanTranscription(row pgx.Row) (*models.Transcription, error) {
	var (
		tr           models.Transcription
		metadata     []byte
		result       []byte
		errorDetails []byte
	)
	err := row.Scan(&tr.ID, &tr.VoiceRecordingID, &tr.EncounterID, &tr.PatientID, &tr.DoctorID,
		&tr.Status, &metadata, &tr.GoogleJobID, &result, &errorDetails,
		&tr.RetryCount, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadata, &tr.ProcessingMetadata); err != nil {
		return nil, fmt.Errorf("unmarshal processing metadata: %w", err)
	}
	if len(result) > 0 {
		tr.Result = &models.TranscriptionResult{}
		if err := json.Unmarshal(result, tr.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if len(errorDetails) > 0 {
		tr.ErrorDetails = &models.ErrorDetails{}
		if err := json.Unmarshal(errorDetails, tr.ErrorDetails); err != nil {
			return nil, fmt.Errorf("unmarshal error details: %w", err)
		}
	}
	return &tr, nil
}
