package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/melune/internal/domain"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "melune.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_EmptyDocuments(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	nb, err := s.LoadNotebook(ctx)
	require.NoError(t, err)
	assert.Empty(t, nb.Entries)

	p, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UserProfile{}, *p)

	c, err := s.LoadCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CyclePhase(""), c.CurrentPhase)
}

func TestStore_NotebookRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	energy := 2
	doc := &domain.NotebookDocument{
		Entries: []domain.NotebookEntry{
			{
				ID:        "b",
				Content:   "fatiguée",
				Type:      domain.EntryTracking,
				Metadata:  domain.EntryMetadata{Phase: domain.PhaseLuteal, Energy: &energy, Symptoms: []string{"fatigue"}},
				AutoTags:  []string{"#tracking", "#luteal", "#symptôme"},
				Timestamp: 1700000000000,
			},
			{ID: "a", Content: "first", Type: domain.EntryPersonal, AutoTags: []string{"#personnel"}, Timestamp: 1600000000000},
		},
		AvailableTags: []string{"#sport"},
	}
	require.NoError(t, s.SaveNotebook(ctx, doc))

	got, err := s.LoadNotebook(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// full-document overwrite
	doc.Entries = doc.Entries[:1]
	require.NoError(t, s.SaveNotebook(ctx, doc))
	got, err = s.LoadNotebook(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)
}

func TestStore_ProfileAndCycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	persona := domain.PersonaClara
	p := &domain.UserProfile{
		JourneyChoice:     domain.JourneyBodyDisconnect,
		AgeRange:          domain.Age26To35,
		AssignedPersona:   &persona,
		PersonaConfidence: 0.85,
	}
	require.NoError(t, s.SaveProfile(ctx, p))
	require.NoError(t, s.SaveCycle(ctx, &domain.CycleState{CurrentPhase: domain.PhaseOvulatory}))

	got, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	c, err := s.LoadCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseOvulatory, c.CurrentPhase)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Contains(t, docs, ProfileDocument)
	assert.Contains(t, docs, CycleDocument)
	assert.NotContains(t, docs, NotebookDocument)
}

func TestStore_Reset(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCycle(ctx, &domain.CycleState{CurrentPhase: domain.PhaseMenstrual}))
	require.NoError(t, s.Reset(ctx))

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
