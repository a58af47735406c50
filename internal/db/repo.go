package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"medichat-backend/pkg"
)

// ErrNotFound is returned when a patient or record does not exist.
var ErrNotFound = errors.New("not found")

// Repository wraps database operations for patients and medical records.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreatePatient inserts a patient row and returns it with generated fields.
func (r *Repository) CreatePatient(ctx context.Context, name string, dateOfBirth time.Time, gender string) (*pkg.Patient, error) {
	var p pkg.Patient
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO patients (name, date_of_birth, gender)
         VALUES ($1, $2, $3)
         RETURNING patient_id, name, date_of_birth, gender, created_at`,
		name, dateOfBirth, gender,
	).Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Gender, &p.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert patient")
	}
	return &p, nil
}

// GetPatient retrieves a patient by id; ErrNotFound if absent.
func (r *Repository) GetPatient(ctx context.Context, patientID int64) (*pkg.Patient, error) {
	var p pkg.Patient
	err := r.DB.QueryRowContext(ctx,
		`SELECT patient_id, name, date_of_birth, gender, created_at
         FROM patients
         WHERE patient_id = $1`, patientID,
	).Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Gender, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select patient")
	}
	return &p, nil
}

// CreateMedicalRecord stores a note for a patient along with the id of its
// embedded copy in the vector index.
func (r *Repository) CreateMedicalRecord(ctx context.Context, patientID int64, note, vectorID string, createdBy int64) (*pkg.MedicalRecord, error) {
	var m pkg.MedicalRecord
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO medical_records (patient_id, note, vector_id, created_by)
         VALUES ($1, $2, $3, $4)
         RETURNING record_id, patient_id, note, vector_id, created_by, created_at`,
		patientID, note, vectorID, createdBy,
	).Scan(&m.RecordID, &m.PatientID, &m.Note, &m.VectorID, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert medical record")
	}
	return &m, nil
}

// GetMedicalRecord loads a live record by id; ErrNotFound covers both missing
// and soft-deleted rows.
func (r *Repository) GetMedicalRecord(ctx context.Context, recordID string) (*pkg.MedicalRecord, error) {
	var m pkg.MedicalRecord
	err := r.DB.QueryRowContext(ctx,
		`SELECT record_id, patient_id, note, vector_id, created_by, created_at
         FROM medical_records
         WHERE record_id = $1 AND NOT is_deleted`, recordID,
	).Scan(&m.RecordID, &m.PatientID, &m.Note, &m.VectorID, &m.CreatedBy, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select medical record")
	}
	return &m, nil
}

// SoftDeleteMedicalRecord marks a record deleted without removing the row.
func (r *Repository) SoftDeleteMedicalRecord(ctx context.Context, recordID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE medical_records
         SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP
         WHERE record_id = $1 AND NOT is_deleted`, recordID)
	if err != nil {
		return errors.Wrap(err, "soft delete medical record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPatientHistory returns the patient's live records, newest first.
func (r *Repository) GetPatientHistory(ctx context.Context, patientID int64) ([]pkg.MedicalRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT record_id, patient_id, note, vector_id, created_by, created_at
         FROM medical_records
         WHERE patient_id = $1 AND NOT is_deleted
         ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "select patient history")
	}
	defer rows.Close()
	var history []pkg.MedicalRecord
	for rows.Next() {
		var m pkg.MedicalRecord
		if err := rows.Scan(&m.RecordID, &m.PatientID, &m.Note, &m.VectorID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan medical record")
		}
		history = append(history, m)
	}
	return history, rows.Err()
}
