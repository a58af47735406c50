package core

import "errors"

// Caller-facing error taxonomy. Collaborator failures are wrapped onto these
// sentinels with %w so the HTTP layer can match with errors.Is; unknown and
// duplicate session errors come from the session package.
var (
	// ErrEmptyInput rejects empty or whitespace-only message text.
	ErrEmptyInput = errors.New("input text cannot be empty")
	// ErrPatientContext marks a patient-context fetch failure during session
	// creation. Fatal to the call; no session is created.
	ErrPatientContext = errors.New("patient context fetch failed")
	// ErrModelInvocation marks a model collaborator failure or timeout.
	// Fatal to the call; no turn is persisted.
	ErrModelInvocation = errors.New("model invocation failed")
	// ErrPatientMismatch is returned under the reject policy when a resumed
	// session is bound to a different patient than the caller supplied.
	ErrPatientMismatch = errors.New("session is bound to a different patient")
)
