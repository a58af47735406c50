package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"medichat-backend/internal/config"
	"medichat-backend/internal/core"
	"medichat-backend/internal/llm"
	"medichat-backend/internal/session"
	"medichat-backend/pkg"
)

type fakeContexts struct {
	mu       sync.Mutex
	contexts map[int64]string
	err      error
	calls    int
}

func (f *fakeContexts) FetchContext(_ context.Context, patientID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.contexts[patientID], nil
}

func newProcessor(t *testing.T, client llm.Client, contexts core.ContextFetcher) (*core.Processor, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	return core.NewProcessor(store, client, contexts, config.MismatchIgnore, 0), store
}

func TestProcessTurn_FreshSession(t *testing.T) {
	ctx := context.Background()
	var gotSystem string
	client := &llm.MockClient{
		GenerateFunc: func(_ context.Context, system string, history []llm.Message) (string, error) {
			gotSystem = system
			return "reply-1", nil
		},
	}
	contexts := &fakeContexts{contexts: map[int64]string{42: "Asthma, seasonal."}}
	p, _ := newProcessor(t, client, contexts)

	reply, sid, err := p.ProcessTurn(ctx, "I have a cough", 42, "")
	require.NoError(t, err)
	require.Equal(t, "reply-1", reply)
	require.NotEmpty(t, sid)

	// patient id and context snapshot are interpolated into the instruction
	require.Contains(t, gotSystem, "Current Patient ID: 42")
	require.Contains(t, gotSystem, "Asthma, seasonal.")

	turns, err := p.History(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, []pkg.Turn{
		{Role: pkg.RoleUser, Text: "I have a cough"},
		{Role: pkg.RoleAssistant, Text: "reply-1"},
	}, turns)
}

func TestProcessTurn_ResumeAccumulates(t *testing.T) {
	ctx := context.Background()
	var replies int
	var lastHistory []llm.Message
	client := &llm.MockClient{
		GenerateFunc: func(_ context.Context, _ string, history []llm.Message) (string, error) {
			replies++
			lastHistory = history
			return fmt.Sprintf("reply-%d", replies), nil
		},
	}
	contexts := &fakeContexts{contexts: map[int64]string{42: "Asthma, seasonal."}}
	p, _ := newProcessor(t, client, contexts)

	_, sid, err := p.ProcessTurn(ctx, "I have a cough", 42, "")
	require.NoError(t, err)

	const n = 4
	for i := 2; i <= n; i++ {
		_, sid2, err := p.ProcessTurn(ctx, fmt.Sprintf("message %d", i), 42, sid)
		require.NoError(t, err)
		require.Equal(t, sid, sid2)
	}

	turns, err := p.History(ctx, sid)
	require.NoError(t, err)
	require.Len(t, turns, 2*n)
	// call order is preserved
	require.Equal(t, "I have a cough", turns[0].Text)
	require.Equal(t, "message 4", turns[2*n-2].Text)
	require.Equal(t, fmt.Sprintf("reply-%d", n), turns[2*n-1].Text)

	// the full accumulated log (including the new user turn) was resent
	require.Len(t, lastHistory, 2*n-1)

	// the context snapshot was fetched once, at creation
	require.Equal(t, 1, contexts.calls)
}

func TestProcessTurn_EmptyInput(t *testing.T) {
	ctx := context.Background()
	contexts := &fakeContexts{contexts: map[int64]string{}}
	p, store := newProcessor(t, &llm.MockClient{}, contexts)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, _, err := p.ProcessTurn(ctx, text, 42, "")
		require.ErrorIs(t, err, core.ErrEmptyInput)
	}
	require.Equal(t, 0, contexts.calls)

	// no session was created
	_, err := store.History(ctx, "anything")
	require.ErrorIs(t, err, session.ErrUnknownSession)
}

func TestHistory_UnknownSession(t *testing.T) {
	p, _ := newProcessor(t, &llm.MockClient{}, &fakeContexts{})
	_, err := p.History(context.Background(), "nonexistent")
	require.ErrorIs(t, err, session.ErrUnknownSession)
}

func TestProcessTurn_ContextFetchFailure(t *testing.T) {
	ctx := context.Background()
	contexts := &fakeContexts{err: errors.New("patient db down")}
	p, store := newProcessor(t, &llm.MockClient{}, contexts)

	_, _, err := p.ProcessTurn(ctx, "hello", 42, "sticky-id")
	require.ErrorIs(t, err, core.ErrPatientContext)

	_, ok, err := store.Get(ctx, "sticky-id")
	require.NoError(t, err)
	require.False(t, ok, "no session should be created on context fetch failure")
}

func TestProcessTurn_ModelFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	fail := false
	client := &llm.MockClient{
		GenerateFunc: func(_ context.Context, _ string, _ []llm.Message) (string, error) {
			if fail {
				return "", errors.New("quota exceeded")
			}
			return "ok", nil
		},
	}
	contexts := &fakeContexts{contexts: map[int64]string{42: "ctx"}}
	p, _ := newProcessor(t, client, contexts)

	_, sid, err := p.ProcessTurn(ctx, "first", 42, "")
	require.NoError(t, err)

	before, err := p.History(ctx, sid)
	require.NoError(t, err)

	fail = true
	_, _, err = p.ProcessTurn(ctx, "second", 42, sid)
	require.ErrorIs(t, err, core.ErrModelInvocation)

	after, err := p.History(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, before, after, "failed turn must not advance the log")

	// the caller can retry with the same session id and text
	fail = false
	_, _, err = p.ProcessTurn(ctx, "second", 42, sid)
	require.NoError(t, err)
	final, err := p.History(ctx, sid)
	require.NoError(t, err)
	require.Len(t, final, len(before)+2)
}

func TestProcessTurn_ModelTimeout(t *testing.T) {
	client := &llm.MockClient{
		GenerateFunc: func(ctx context.Context, _ string, _ []llm.Message) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	contexts := &fakeContexts{contexts: map[int64]string{42: "ctx"}}
	store := session.NewMemoryStore()
	p := core.NewProcessor(store, client, contexts, config.MismatchIgnore, 20*time.Millisecond)

	_, sid, err := p.ProcessTurn(context.Background(), "slow question", 42, "")
	require.ErrorIs(t, err, core.ErrModelInvocation)

	// creation persisted, but no turn did
	if sid != "" {
		turns, herr := store.History(context.Background(), sid)
		if herr == nil {
			require.Empty(t, turns)
		}
	}
}

func TestProcessTurn_ConcurrentSameSession(t *testing.T) {
	ctx := context.Background()
	client := &llm.MockClient{
		GenerateFunc: func(_ context.Context, _ string, history []llm.Message) (string, error) {
			// echo the latest user turn so replies are attributable
			return "echo: " + history[len(history)-1].Content, nil
		},
	}
	contexts := &fakeContexts{contexts: map[int64]string{42: "ctx"}}
	p, _ := newProcessor(t, client, contexts)

	const sid = "race-id"
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, text := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, _, err := p.ProcessTurn(ctx, text, 42, sid)
			errs <- err
		}(text)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	turns, err := p.History(ctx, sid)
	require.NoError(t, err)
	require.Len(t, turns, 4, "both turns must be present in one consistent log")
	// turns alternate user/assistant and each reply follows its own question
	for i := 0; i < 4; i += 2 {
		require.Equal(t, pkg.RoleUser, turns[i].Role)
		require.Equal(t, pkg.RoleAssistant, turns[i+1].Role)
		require.Equal(t, "echo: "+turns[i].Text, turns[i+1].Text)
	}
	// exactly one creation won
	require.Equal(t, 1, contexts.calls)
}

func TestProcessTurn_PatientMismatchPolicies(t *testing.T) {
	ctx := context.Background()
	contexts := &fakeContexts{contexts: map[int64]string{1: "patient one", 2: "patient two"}}

	t.Run("ignore keeps the session binding", func(t *testing.T) {
		var gotSystem string
		client := &llm.MockClient{
			GenerateFunc: func(_ context.Context, system string, _ []llm.Message) (string, error) {
				gotSystem = system
				return "ok", nil
			},
		}
		store := session.NewMemoryStore()
		p := core.NewProcessor(store, client, contexts, config.MismatchIgnore, 0)

		_, sid, err := p.ProcessTurn(ctx, "hello", 1, "")
		require.NoError(t, err)
		_, _, err = p.ProcessTurn(ctx, "again", 2, sid)
		require.NoError(t, err)
		require.Contains(t, gotSystem, "Current Patient ID: 1")
	})

	t.Run("reject fails before mutation", func(t *testing.T) {
		store := session.NewMemoryStore()
		p := core.NewProcessor(store, &llm.MockClient{}, contexts, config.MismatchReject, 0)

		_, sid, err := p.ProcessTurn(ctx, "hello", 1, "")
		require.NoError(t, err)
		_, _, err = p.ProcessTurn(ctx, "again", 2, sid)
		require.ErrorIs(t, err, core.ErrPatientMismatch)

		turns, err := p.History(ctx, sid)
		require.NoError(t, err)
		require.Len(t, turns, 2)
	})
}

func TestProcessTurn_Scenario(t *testing.T) {
	ctx := context.Background()
	var replies int
	client := &llm.MockClient{
		GenerateFunc: func(_ context.Context, _ string, _ []llm.Message) (string, error) {
			replies++
			return fmt.Sprintf("reply-%d", replies), nil
		},
	}
	contexts := &fakeContexts{contexts: map[int64]string{42: "Asthma, seasonal."}}
	p, _ := newProcessor(t, client, contexts)

	reply, sid, err := p.ProcessTurn(ctx, "I have a cough", 42, "")
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	turns, err := p.History(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, []pkg.Turn{
		{Role: pkg.RoleUser, Text: "I have a cough"},
		{Role: pkg.RoleAssistant, Text: reply},
	}, turns)

	reply2, sid2, err := p.ProcessTurn(ctx, "Any meds?", 42, sid)
	require.NoError(t, err)
	require.Equal(t, sid, sid2)

	turns, err = p.History(ctx, sid)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	require.Equal(t, pkg.Turn{Role: pkg.RoleUser, Text: "Any meds?"}, turns[2])
	require.Equal(t, pkg.Turn{Role: pkg.RoleAssistant, Text: reply2}, turns[3])
}
