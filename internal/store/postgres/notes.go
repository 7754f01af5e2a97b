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

const noteColumns = `id, encounter_id, patient_id, doctor_id, transcription_id,
	status, soap, ai_metadata, edit_history, compliance_flags, audit_trail,
	created_at, updated_at`

// NoteStore implements the clinical note persistence surface over
// PostgreSQL.
type NoteStore struct {
	pool *pgxpool.Pool
}

// NewNoteStore creates a clinical note store.
func NewNoteStore(pool *pgxpool.Pool) *NoteStore {
	return &NoteStore{pool: pool}
}

// Create inserts a new clinical note.
func (s *NoteStore) Create(ctx context.Context, note *models.ClinicalNote) error {
	cols, err := marshalNote(note)
	if err != nil {
		return err
	}

	sql, args, err := psql.Insert("clinical_notes").
		Columns("id", "encounter_id", "patient_id", "doctor_id", "transcription_id",
			"status", "soap", "ai_metadata", "edit_history", "compliance_flags", "audit_trail",
			"created_at", "updated_at").
		Values(note.ID, note.EncounterID, note.PatientID, note.DoctorID, note.TranscriptionID,
			note.Status, cols.soap, cols.aiMetadata, cols.editHistory, cols.complianceFlags, cols.auditTrail,
			note.CreatedAt, note.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build note insert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert clinical note: %w", err)
	}
	return nil
}

// Get returns a note by id.
func (s *NoteStore) Get(ctx context.Context, id string) (*models.ClinicalNote, error) {
	sql, args, err := psql.Select(noteColumns).
		From("clinical_notes").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note query: %w", err)
	}

	note, err := scanNote(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("clinical note %s not found", id)
	}
	return note, err
}

// Update replaces the full note document, including its append-only arrays,
// in one atomic write. The service layer only ever appends to those arrays.
func (s *NoteStore) Update(ctx context.Context, note *models.ClinicalNote) error {
	cols, err := marshalNote(note)
	if err != nil {
		return err
	}

	sql, args, err := psql.Update("clinical_notes").
		Set("status", note.Status).
		Set("soap", cols.soap).
		Set("ai_metadata", cols.aiMetadata).
		Set("edit_history", cols.editHistory).
		Set("compliance_flags", cols.complianceFlags).
		Set("audit_trail", cols.auditTrail).
		Set("updated_at", note.UpdatedAt).
		Where(squirrel.Eq{"id": note.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build note update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update clinical note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFoundf("clinical note %s not found", note.ID)
	}
	return nil
}

// ListByPatient returns a patient's notes, newest first.
func (s *NoteStore) ListByPatient(ctx context.Context, patientID string) ([]*models.ClinicalNote, error) {
	return s.listWhere(ctx, squirrel.Eq{"patient_id": patientID})
}

// ListByDoctor returns a doctor's notes, newest first.
func (s *NoteStore) ListByDoctor(ctx context.Context, doctorID string) ([]*models.ClinicalNote, error) {
	return s.listWhere(ctx, squirrel.Eq{"doctor_id": doctorID})
}

// ListPendingReview returns notes in the review state, oldest first so the
// review queue is worked in arrival order.
func (s *NoteStore) ListPendingReview(ctx context.Context) ([]*models.ClinicalNote, error) {
	sql, args, err := psql.Select(noteColumns).
		From("clinical_notes").
		Where(squirrel.Eq{"status": models.NoteReview}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending review query: %w", err)
	}
	return s.queryNotes(ctx, sql, args)
}

// Stats aggregates note counts and the mean AI confidence.
func (s *NoteStore) Stats(ctx context.Context) (*models.NoteStats, error) {
	stats := &models.NoteStats{ByStatus: map[models.NoteStatus]int{}}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM clinical_notes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query note stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status models.NoteStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan note stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.PendingReview = stats.ByStatus[models.NoteReview]

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG((ai_metadata->>'confidenceScore')::float), 0) FROM clinical_notes`).
		Scan(&stats.AverageConfidence)
	if err != nil {
		return nil, fmt.Errorf("query average note confidence: %w", err)
	}
	return stats, nil
}

func (s *NoteStore) listWhere(ctx context.Context, where squirrel.Eq) ([]*models.ClinicalNote, error) {
	sql, args, err := psql.Select(noteColumns).
		From("clinical_notes").
		Where(where).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note list query: %w", err)
	}
	return s.queryNotes(ctx, sql, args)
}

func (s *NoteStore) queryNotes(ctx context.Context, sql string, args []any) ([]*models.ClinicalNote, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query clinical notes: %w", err)
	}
	defer rows.Close()

	var out []*models.ClinicalNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	return out, rows.Err()
}

type noteColumnsJSON struct {
	soap            []byte
	aiMetadata      []byte
	editHistory     []byte
	complianceFlags []byte
	auditTrail      []byte
}

func marshalNote(note *models.ClinicalNote) (noteColumnsJSON, error) {
	var cols noteColumnsJSON
	var err error
	if cols.soap, err = json.Marshal(note.SOAP); err != nil {
		return cols, fmt.Errorf("marshal soap: %w", err)
	}
	if cols.aiMetadata, err = json.Marshal(note.AIMetadata); err != nil {
		return cols, fmt.Errorf("marshal ai metadata: %w", err)
	}
	if cols.editHistory, err = json.Marshal(emptyIfNilEdits(note.EditHistory)); err != nil {
		return cols, fmt.Errorf("marshal edit history: %w", err)
	}
	if cols.complianceFlags, err = json.Marshal(emptyIfNilFlags(note.ComplianceFlags)); err != nil {
		return cols, fmt.Errorf("marshal compliance flags: %w", err)
	}
	if cols.auditTrail, err = json.Marshal(emptyIfNilAudit(note.AuditTrail)); err != nil {
		return cols, fmt.Errorf("marshal audit trail: %w", err)
	}
	return cols, nil
}

func scanNote(row pgx.Row) (*models.ClinicalNote, error) {
	var (
		note models.ClinicalNote
		cols noteColumnsJSON
	)
	err := row.Scan(&note.ID, &note.EncounterID, &note.PatientID, &note.DoctorID, &note.TranscriptionID,
		&note.Status, &cols.soap, &cols.aiMetadata, &cols.editHistory, &cols.complianceFlags, &cols.auditTrail,
		&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(cols.soap, &note.SOAP); err != nil {
		return nil, fmt.Errorf("unmarshal soap: %w", err)
	}
	if err := json.Unmarshal(cols.aiMetadata, &note.AIMetadata); err != nil {
		return nil, fmt.Errorf("unmarshal ai metadata: %w", err)
	}
	if err := json.Unmarshal(cols.editHistory, &note.EditHistory); err != nil {
		return nil, fmt.Errorf("unmarshal edit history: %w", err)
	}
	if err := json.Unmarshal(cols.complianceFlags, &note.ComplianceFlags); err != nil {
		return nil, fmt.Errorf("unmarshal compliance flags: %w", err)
	}
	if err := json.Unmarshal(cols.auditTrail, &note.AuditTrail); err != nil {
		return nil, fmt.Errorf("unmarshal audit trail: %w", err)
	}
	note.SOAP.Normalize()
	return &note, nil
}

func emptyIfNilEdits(v []models.EditRecord) []models.EditRecord {
	if v == nil {
		return []models.EditRecord{}
	}
	return v
}

func emptyIfNilFlags(v []models.ComplianceFlag) []models.ComplianceFlag {
	if v == nil {
		return []models.ComplianceFlag{}
	}
	return v
}

func emptyIfNilAudit(v []models.AuditEntry) []models.AuditEntry {
	if v == nil {
		return []models.AuditEntry{}
	}
	return v
}
