package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/melune/internal/apperrors"
)

func TestParse(t *testing.T) {
	j, err := ParseJourneyChoice("hiding_nature")
	require.NoError(t, err)
	assert.Equal(t, JourneyHidingNature, j)

	a, err := ParseAgeRange("55+")
	require.NoError(t, err)
	assert.Equal(t, Age55Plus, a)

	p, err := ParsePersona("christine")
	require.NoError(t, err)
	assert.Equal(t, PersonaChristine, p)

	e, err := ParseEntryType("tracking")
	require.NoError(t, err)
	assert.Equal(t, EntryTracking, e)

	c, err := ParseCyclePhase("luteal")
	require.NoError(t, err)
	assert.Equal(t, PhaseLuteal, c)
}

func TestParse_Unknown(t *testing.T) {
	_, err := ParseEntryType("draft")
	assert.ErrorIs(t, err, apperrors.ErrInvalidValue)
	assert.Contains(t, err.Error(), `"draft"`)

	_, err = ParseCyclePhase("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidValue)

	_, err = ParsePersona("Emma")
	assert.ErrorIs(t, err, apperrors.ErrInvalidValue)
}

func TestEnumSizes(t *testing.T) {
	assert.Len(t, JourneyChoices, 3)
	assert.Len(t, AgeRanges, 5)
	assert.Len(t, Personas, 5)
	assert.Len(t, EntryTypes, 3)
	assert.Len(t, CyclePhases, 4)
}

func TestNotebookEntry_Clone(t *testing.T) {
	energy := 3
	e := NotebookEntry{
		ID:       "x",
		AutoTags: []string{"#tracking"},
		Metadata: EntryMetadata{Energy: &energy, Tags: []string{"#a"}, Symptoms: []string{"fatigue"}},
	}

	c := e.Clone()
	c.AutoTags[0] = "#changed"
	c.Metadata.Tags[0] = "#changed"
	c.Metadata.Symptoms[0] = "changed"
	*c.Metadata.Energy = 0

	assert.Equal(t, "#tracking", e.AutoTags[0])
	assert.Equal(t, "#a", e.Metadata.Tags[0])
	assert.Equal(t, "fatigue", e.Metadata.Symptoms[0])
	assert.Equal(t, 3, *e.Metadata.Energy)
	assert.Equal(t, []string{"#tracking", "#a"}, e.AllTags())
}
