package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"medichat-backend/internal/llm"
	"medichat-backend/internal/vector"
	"medichat-backend/pkg"
)

// summaryPromptTemplate condenses a patient's record history into the most
// important details. Used by the summary endpoint, not by the chat snapshot.
const summaryPromptTemplate = `Here is the patient history for patient ID %d:
%s
Summarize the patient's history with the most important details.`

// ErrInvalidArgument marks caller mistakes (missing fields, bad dates) so the
// HTTP layer can map them to client errors.
var ErrInvalidArgument = errors.New("invalid argument")

// Repo is the slice of the database layer the patient service needs.
type Repo interface {
	CreatePatient(ctx context.Context, name string, dateOfBirth time.Time, gender string) (*pkg.Patient, error)
	GetPatient(ctx context.Context, patientID int64) (*pkg.Patient, error)
	CreateMedicalRecord(ctx context.Context, patientID int64, note, vectorID string, createdBy int64) (*pkg.MedicalRecord, error)
	GetMedicalRecord(ctx context.Context, recordID string) (*pkg.MedicalRecord, error)
	SoftDeleteMedicalRecord(ctx context.Context, recordID string) error
	GetPatientHistory(ctx context.Context, patientID int64) ([]pkg.MedicalRecord, error)
}

// Service manages patients and their medical records. Records live in two
// places: the relational row and the embedded copy in the vector index; adds
// and deletes touch both.
type Service struct {
	repo  Repo
	index *vector.Index
	llm   llm.Client
}

// NewService constructs a patient service.
func NewService(repo Repo, index *vector.Index, client llm.Client) *Service {
	return &Service{repo: repo, index: index, llm: client}
}

// CreatePatient registers a new patient. DateOfBirth must be YYYY-MM-DD.
func (s *Service) CreatePatient(ctx context.Context, req pkg.PatientCreateRequest) (*pkg.Patient, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: patient name is required", ErrInvalidArgument)
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalidArgument)
	}
	return s.repo.CreatePatient(ctx, req.Name, dob, req.Gender)
}

// GetPatient loads a patient by id.
func (s *Service) GetPatient(ctx context.Context, patientID int64) (*pkg.Patient, error) {
	return s.repo.GetPatient(ctx, patientID)
}

// AddMedicalRecord stores a clinical note: the note is embedded into the
// patient's vector namespace first, then the relational row is written with
// the vector id.
func (s *Service) AddMedicalRecord(ctx context.Context, patientID int64, note string, providerID int64) (*pkg.MedicalRecord, error) {
	if strings.TrimSpace(note) == "" {
		return nil, fmt.Errorf("%w: note is required", ErrInvalidArgument)
	}
	if _, err := s.repo.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	vectorID, err := s.index.IndexNote(ctx, patientID, note)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.CreateMedicalRecord(ctx, patientID, note, vectorID, providerID)
	if err != nil {
		// best effort: don't leave an orphan vector behind the failed row
		if derr := s.index.DeleteNote(ctx, patientID, vectorID); derr != nil {
			log.Warn().Err(derr).Str("vector_id", vectorID).Msg("failed to roll back note vector")
		}
		return nil, err
	}
	return rec, nil
}

// DeleteMedicalRecord removes the vector copy and soft-deletes the row.
func (s *Service) DeleteMedicalRecord(ctx context.Context, recordID string) error {
	rec, err := s.repo.GetMedicalRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.index.DeleteNote(ctx, rec.PatientID, rec.VectorID); err != nil {
		return err
	}
	return s.repo.SoftDeleteMedicalRecord(ctx, recordID)
}

// History returns the patient's live records, newest first.
func (s *Service) History(ctx context.Context, patientID int64) ([]pkg.MedicalRecord, error) {
	if _, err := s.repo.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.GetPatientHistory(ctx, patientID)
}

// FetchContext formats the patient's record history into the text digest the
// chat core captures as a session's context snapshot. A patient with no
// records yields an empty string.
func (s *Service) FetchContext(ctx context.Context, patientID int64) (string, error) {
	history, err := s.repo.GetPatientHistory(ctx, patientID)
	if err != nil {
		return "", err
	}
	return FormatHistory(history), nil
}

// SummarizeHistory asks the model for a condensed version of the history.
func (s *Service) SummarizeHistory(ctx context.Context, patientID int64) (string, error) {
	history, err := s.History(ctx, patientID)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(summaryPromptTemplate, patientID, FormatHistory(history))
	return s.llm.Summarize(ctx, prompt)
}

// Search runs a similarity query over the patient's embedded notes.
func (s *Service) Search(ctx context.Context, patientID int64, query string, topK int) ([]pkg.RecordMatch, error) {
	if _, err := s.repo.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.index.Query(ctx, patientID, query, topK)
}

// FormatHistory renders records as one dated bullet per note, newest first.
func FormatHistory(records []pkg.MedicalRecord) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "- [%s] %s\n", r.CreatedAt.Format("2006-01-02"), r.Note)
	}
	return strings.TrimRight(b.String(), "\n")
}
