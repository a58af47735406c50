package pkg

import "time"

// Patient is the relational patient row.
type Patient struct {
	ID          int64     `json:"patient_id"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	CreatedAt   time.Time `json:"created_at"`
}

// MedicalRecord is one clinical note attached to a patient. VectorID points at
// the embedded copy of the note in the vector index; records are soft-deleted
// so the id trail survives.
type MedicalRecord struct {
	RecordID  string    `json:"record_id"`
	PatientID int64     `json:"patient_id"`
	Note      string    `json:"note"`
	VectorID  string    `json:"vector_id"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Role describes who authored a turn. There are only two roles: the patient
// talking to the assistant, and the assistant itself.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message exchange unit within a session.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session is one conversation thread. PatientID is bound at creation and never
// changes; ContextSnapshot is the patient-history digest captured at creation
// and deliberately never refreshed; Turns is append-only in conversation order.
type Session struct {
	ID              string    `json:"session_id"`
	PatientID       int64     `json:"patient_id"`
	ContextSnapshot string    `json:"context_snapshot"`
	Turns           []Turn    `json:"turns"`
	CreatedAt       time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers can mutate freely without the stored
// session ever being visible in a half-updated state.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Turns = make([]Turn, len(s.Turns))
	copy(cp.Turns, s.Turns)
	return &cp
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	PatientID int64  `json:"patient_id"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse carries the assistant reply and the session id the caller must
// resend to continue the same conversation.
type ChatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// PatientCreateRequest is the body of POST /api/patients. DateOfBirth is an
// ISO date (YYYY-MM-DD).
type PatientCreateRequest struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

// MedicalRecordCreateRequest is the body of POST /api/medical-records.
type MedicalRecordCreateRequest struct {
	PatientID  int64  `json:"patient_id"`
	Note       string `json:"note"`
	ProviderID int64  `json:"provider_id"`
}

// RecordMatch is one vector-search hit against a patient's notes.
type RecordMatch struct {
	VectorID string  `json:"vector_id"`
	Note     string  `json:"note"`
	Score    float64 `json:"score"`
}

// SymptomReport is the structured patient profile fed to the symptom checker.
type SymptomReport struct {
	Age                int    `json:"age"`
	Gender             string `json:"gender"`
	Occupation         string `json:"occupation"`
	Nationality        string `json:"nationality"`
	Weight             string `json:"weight"`
	Symptoms           string `json:"existing_medical_symptoms"`
	ChronicDiseases    string `json:"chronic_diseases,omitempty"`
	Allergies          string `json:"allergies,omitempty"`
	PreviousSurgeries  string `json:"previous_surgeries,omitempty"`
	CurrentMedications string `json:"current_medications,omitempty"`
	SmokingStatus      string `json:"smoking_status,omitempty"`
	AlcoholIntake      string `json:"alcohol_intake,omitempty"`
	DrugUse            string `json:"occasional_drug_use,omitempty"`
}
