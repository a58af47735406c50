package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"medichat-backend/pkg"
)

func TestMemoryStore_CreateGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	sess := &pkg.Session{ID: "s1", PatientID: 7, ContextSnapshot: "Asthma."}
	require.NoError(t, s.Create(ctx, sess))

	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(7), got.PatientID)
	require.Equal(t, "Asthma.", got.ContextSnapshot)

	got.Turns = append(got.Turns, pkg.Turn{Role: pkg.RoleUser, Text: "hi"})
	require.NoError(t, s.Put(ctx, got))

	turns, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, pkg.RoleUser, turns[0].Role)
}

func TestMemoryStore_DuplicateCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, &pkg.Session{ID: "s1", PatientID: 1}))
	err := s.Create(ctx, &pkg.Session{ID: "s1", PatientID: 2})
	require.ErrorIs(t, err, ErrDuplicateSession)

	// the first creation's binding stands
	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), got.PatientID)
}

func TestMemoryStore_HistoryUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.History(context.Background(), "nonexistent")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, &pkg.Session{
		ID:    "s1",
		Turns: []pkg.Turn{{Role: pkg.RoleUser, Text: "original"}},
	}))

	got, _, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	got.Turns[0].Text = "mutated"
	got.Turns = append(got.Turns, pkg.Turn{Role: pkg.RoleAssistant, Text: "extra"})

	turns, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "original", turns[0].Text)
}
