package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"medichat-backend/internal/config"
	"medichat-backend/internal/llm"
	"medichat-backend/internal/session"
	"medichat-backend/pkg"
)

// ContextFetcher is the patient-context collaborator. It returns a
// human-readable digest of the patient's relevant history; an empty string is
// a valid answer for a patient with no records.
type ContextFetcher interface {
	FetchContext(ctx context.Context, patientID int64) (string, error)
}

// Processor orchestrates one chat request/response cycle: resolve or create
// the session, append the user turn, assemble the model request from the
// system instruction plus the full ordered log, invoke the model, append the
// reply and persist.
//
// Calls for the same session id are serialized through a per-id mutex, so
// concurrent turns cannot interleave appends or lose updates. The mutation
// happens on a private copy and is written back only after the model call
// succeeds; a failed turn never advances the stored log.
type Processor struct {
	store    session.Store
	llm      llm.Client
	contexts ContextFetcher
	policy   config.MismatchPolicy
	timeout  time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProcessor constructs a turn processor. A zero timeout leaves the model
// call bounded only by the caller's context.
func NewProcessor(store session.Store, client llm.Client, contexts ContextFetcher, policy config.MismatchPolicy, timeout time.Duration) *Processor {
	return &Processor{
		store:    store,
		llm:      client,
		contexts: contexts,
		policy:   policy,
		timeout:  timeout,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex dedicated to one session id. Locks are never
// reclaimed; a stale entry is one idle mutex per session, same lifetime as the
// in-memory session itself.
func (p *Processor) sessionLock(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	return l
}

// ProcessTurn handles one user message for a patient. An empty or absent
// sessionID starts a fresh conversation; the returned session id must be
// resent to continue it. The reply and the session id are returned together.
func (p *Processor) ProcessTurn(ctx context.Context, text string, patientID int64, sessionID string) (string, string, error) {
	if strings.TrimSpace(text) == "" {
		return "", "", ErrEmptyInput
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	lock := p.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := p.resolveSession(ctx, sessionID, patientID)
	if err != nil {
		return "", "", err
	}

	work := sess.Clone()
	work.Turns = append(work.Turns, pkg.Turn{Role: pkg.RoleUser, Text: text})

	history := make([]llm.Message, 0, len(work.Turns))
	for _, t := range work.Turns {
		history = append(history, llm.Message{Role: string(t.Role), Content: t.Text})
	}

	mctx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	reply, err := p.llm.Generate(mctx, SystemInstruction(work.PatientID, work.ContextSnapshot), history)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("model invocation failed")
		return "", "", fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}

	work.Turns = append(work.Turns, pkg.Turn{Role: pkg.RoleAssistant, Text: reply})
	if err := p.store.Put(ctx, work); err != nil {
		return "", "", err
	}

	log.Debug().
		Str("session_id", sessionID).
		Int64("patient_id", work.PatientID).
		Int("turns", len(work.Turns)).
		Msg("turn processed")
	return reply, sessionID, nil
}

// resolveSession loads an existing session or creates a fresh one, fetching
// the patient context snapshot exactly once at creation. Caller holds the
// per-session lock.
func (p *Processor) resolveSession(ctx context.Context, sessionID string, patientID int64) (*pkg.Session, error) {
	sess, ok, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ok {
		if sess.PatientID != patientID && p.policy == config.MismatchReject {
			return nil, fmt.Errorf("%w: session %s belongs to patient %d", ErrPatientMismatch, sessionID, sess.PatientID)
		}
		return sess, nil
	}

	snapshot, err := p.contexts.FetchContext(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatientContext, err)
	}
	sess = &pkg.Session{
		ID:              sessionID,
		PatientID:       patientID,
		ContextSnapshot: snapshot,
		CreatedAt:       p.now(),
	}
	if err := p.store.Create(ctx, sess); err != nil {
		if errors.Is(err, session.ErrDuplicateSession) {
			// Lost a creation race against another process sharing the
			// store; the winner's binding and snapshot stand.
			sess, ok, err = p.store.Get(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, session.ErrUnknownSession
			}
			return sess, nil
		}
		return nil, err
	}
	log.Info().Str("session_id", sessionID).Int64("patient_id", patientID).Msg("session created")
	return sess, nil
}

// History returns the ordered turn log for a session.
func (p *Processor) History(ctx context.Context, sessionID string) ([]pkg.Turn, error) {
	return p.store.History(ctx, sessionID)
}
