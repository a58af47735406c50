package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"medichat-backend/internal/core"
	"medichat-backend/internal/db"
	"medichat-backend/internal/patient"
	"medichat-backend/internal/session"
	"medichat-backend/pkg"
)

// Server bundles together the dependencies required by HTTP handlers. It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Patients   *patient.Service
	Chat       *core.Processor
	Symptoms   *core.SymptomChecker
	VectorTopK int
}

// NewServer constructs a Server.
func NewServer(patients *patient.Service, chat *core.Processor, symptoms *core.SymptomChecker, vectorTopK int) *Server {
	return &Server{
		Patients:   patients,
		Chat:       chat,
		Symptoms:   symptoms,
		VectorTopK: vectorTopK,
	}
}

// ServeHTTP dispatches incoming requests based on the URL path. Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == "/" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Medical AI Chatbot API is running!"})

	case path == "/api/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})

	case path == "/api/patients" && r.Method == http.MethodPost:
		s.handleCreatePatient(w, r)

	// /api/patients/{id}[/history|/summary|/search]
	case len(parts) >= 3 && parts[0] == "api" && parts[1] == "patients" && r.Method == http.MethodGet:
		patientID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		switch {
		case len(parts) == 3:
			s.handleGetPatient(w, r, patientID)
		case len(parts) == 4 && parts[3] == "history":
			s.handlePatientHistory(w, r, patientID)
		case len(parts) == 4 && parts[3] == "summary":
			s.handlePatientSummary(w, r, patientID)
		case len(parts) == 4 && parts[3] == "search":
			s.handlePatientSearch(w, r, patientID)
		default:
			http.NotFound(w, r)
		}

	case path == "/api/medical-records" && r.Method == http.MethodPost:
		s.handleAddMedicalRecord(w, r)

	case len(parts) == 3 && parts[0] == "api" && parts[1] == "medical-records" && r.Method == http.MethodDelete:
		s.handleDeleteMedicalRecord(w, r, parts[2])

	case path == "/api/chat" && r.Method == http.MethodPost:
		s.handleChat(w, r)

	case len(parts) == 4 && parts[0] == "api" && parts[1] == "chat" && parts[3] == "history" && r.Method == http.MethodGet:
		s.handleChatHistory(w, r, parts[2])

	case path == "/api/symptom-check" && r.Method == http.MethodPost:
		s.handleSymptomCheck(w, r)

	default:
		http.NotFound(w, r)
	}
}

// handleChat processes one patient message and returns the assistant reply
// with the session id to resend on the next turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.Patients.GetPatient(r.Context(), req.PatientID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	reply, sessionID, err := s.Chat.ProcessTurn(r.Context(), req.Message, req.PatientID, req.SessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg.ChatResponse{Message: reply, SessionID: sessionID})
}

// handleChatHistory returns the ordered turn log for one session.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	turns, err := s.Chat.History(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req pkg.PatientCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.Patients.CreatePatient(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request, patientID int64) {
	p, err := s.Patients.GetPatient(r.Context(), patientID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePatientHistory(w http.ResponseWriter, r *http.Request, patientID int64) {
	history, err := s.Patients.History(r.Context(), patientID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handlePatientSummary(w http.ResponseWriter, r *http.Request, patientID int64) {
	summary, err := s.Patients.SummarizeHistory(r.Context(), patientID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handlePatientSearch(w http.ResponseWriter, r *http.Request, patientID int64) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	matches, err := s.Patients.Search(r.Context(), patientID, query, s.VectorTopK)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleAddMedicalRecord(w http.ResponseWriter, r *http.Request) {
	var req pkg.MedicalRecordCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := s.Patients.AddMedicalRecord(r.Context(), req.PatientID, req.Note, req.ProviderID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteMedicalRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	if err := s.Patients.DeleteMedicalRecord(r.Context(), recordID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record deleted successfully"})
}

func (s *Server) handleSymptomCheck(w http.ResponseWriter, r *http.Request) {
	var report pkg.SymptomReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	assessment, err := s.Symptoms.Check(r.Context(), report)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"assessment": assessment})
}

// writeDomainError maps the core error taxonomy onto HTTP status codes:
// invalid input 400, unknown session/patient/record 404, patient binding
// conflict 409, collaborator failures 502.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyInput), errors.Is(err, patient.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrUnknownSession), errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrPatientMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrPatientContext), errors.Is(err, core.ErrModelInvocation):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
