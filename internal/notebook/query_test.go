package notebook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/melune/internal/domain"
)

func intPtr(v int) *int { return &v }

func seedSearch(t *testing.T) *Notebook {
	t.Helper()
	n, _, clock := setupNotebook(t)
	ctx := context.Background()

	add := func(content string, typ domain.EntryType, meta domain.EntryMetadata) {
		_, err := n.AddEntry(ctx, content, typ, meta)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	// inserted as entry-1 .. entry-4
	add("RDV gynéco jeudi", domain.EntryPersonal, domain.EntryMetadata{Phase: domain.PhaseLuteal})
	add("Recette de crumble", domain.EntrySaved, domain.EntryMetadata{Phase: domain.PhaseFollicular})
	add("", domain.EntryTracking, domain.EntryMetadata{Phase: domain.PhaseLuteal, Symptoms: []string{"crampes"}})
	add("Balade en forêt", domain.EntryPersonal, domain.EntryMetadata{Tags: []string{"#rdv-nature"}})

	return n
}

func TestSearch_EmptyReturnsAllInOrder(t *testing.T) {
	n := seedSearch(t)

	got := n.Search("", Filters{})
	assert.Equal(t, ids(n.Entries()), ids(got))
	assert.Equal(t, []string{"entry-4", "entry-3", "entry-2", "entry-1"}, ids(got))
}

func TestSearch_QueryIsNotTrimmed(t *testing.T) {
	n := seedSearch(t)

	assert.Empty(t, n.Search("   ", Filters{}))
	assert.Empty(t, n.Search(" rdv", Filters{}))
	assert.Equal(t, []string{"entry-1"}, ids(n.Search(" gynéco", Filters{})))
}

func TestSearch_Query(t *testing.T) {
	n := seedSearch(t)

	// matches content of entry-1 and the manual tag of entry-4
	assert.Equal(t, []string{"entry-4", "entry-1"}, ids(n.Search("rdv", Filters{})))
	assert.Equal(t, []string{"entry-4", "entry-1"}, ids(n.Search("RDV", Filters{})))

	// matches auto tags
	assert.Equal(t, []string{"entry-2"}, ids(n.Search("sauvegardé", Filters{})))
	assert.Equal(t, []string{"entry-3", "entry-1"}, ids(n.Search("#luteal", Filters{})))

	assert.Empty(t, n.Search("introuvable", Filters{}))
}

func TestSearch_Filters(t *testing.T) {
	n := seedSearch(t)

	tests := []struct {
		name     string
		query    string
		filters  Filters
		expected []string
	}{
		{
			name:     "type",
			filters:  Filters{Type: domain.EntryPersonal},
			expected: []string{"entry-4", "entry-1"},
		},
		{
			name:     "phase",
			filters:  Filters{Phase: domain.PhaseLuteal},
			expected: []string{"entry-3", "entry-1"},
		},
		{
			name:     "tags are OR'd",
			filters:  Filters{Tags: []string{"#symptôme", "#recette"}},
			expected: []string{"entry-3", "entry-2"},
		},
		{
			name:     "manual tags count",
			filters:  Filters{Tags: []string{"#rdv-nature"}},
			expected: []string{"entry-4"},
		},
		{
			name:     "categories are AND'd",
			filters:  Filters{Tags: []string{"#symptôme", "#recette"}, Phase: domain.PhaseLuteal},
			expected: []string{"entry-3"},
		},
		{
			name:     "query and filter",
			query:    "rdv",
			filters:  Filters{Phase: domain.PhaseLuteal},
			expected: []string{"entry-1"},
		},
		{
			name:     "no match",
			filters:  Filters{Type: domain.EntrySaved, Phase: domain.PhaseLuteal},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(n.Search(tt.query, tt.filters)))
		})
	}
}

func TestSearch_DoesNotMutate(t *testing.T) {
	n := seedSearch(t)
	before := n.Entries()

	res := n.Search("rdv", Filters{})
	res[0].Content = "changed"

	assert.Equal(t, before, n.Entries())
}

func TestTagStats(t *testing.T) {
	n, _, _ := setupNotebook(t)
	ctx := context.Background()

	_, err := n.AddEntry(ctx, "a", domain.EntryPersonal, domain.EntryMetadata{Tags: []string{"#x"}})
	require.NoError(t, err)
	_, err = n.AddEntry(ctx, "b", domain.EntrySaved, domain.EntryMetadata{Tags: []string{"#x", "#y"}})
	require.NoError(t, err)
	_, err = n.AddEntry(ctx, "c", domain.EntryPersonal, domain.EntryMetadata{})
	require.NoError(t, err)

	// walked most-recent-first: #personnel, #sauvegardé, #x, #y
	assert.Equal(t, []domain.TagCount{
		{Tag: "#personnel", Count: 2},
		{Tag: "#x", Count: 2},
		{Tag: "#sauvegardé", Count: 1},
		{Tag: "#y", Count: 1},
	}, n.TagStats())
}

func TestTagStats_EmptyNotebook(t *testing.T) {
	n, _, _ := setupNotebook(t)

	stats := n.TagStats()
	require.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestTagStats_TopTen(t *testing.T) {
	n, _, _ := setupNotebook(t)
	ctx := context.Background()

	var tags []string
	for _, c := range "abcdefghijkl" {
		tags = append(tags, "#"+string(c))
	}
	_, err := n.AddEntry(ctx, "", domain.EntryPersonal, domain.EntryMetadata{Tags: tags})
	require.NoError(t, err)

	stats := n.TagStats()
	require.Len(t, stats, 10)
	assert.Equal(t, "#personnel", stats[0].Tag)
	assert.Equal(t, "#i", stats[9].Tag)
}

func addTracking(t *testing.T, n *Notebook, clock *fakeClock, energy *int, symptoms ...string) {
	t.Helper()
	_, err := n.AddEntry(context.Background(), "", domain.EntryTracking, domain.EntryMetadata{
		Energy:   energy,
		Symptoms: symptoms,
	})
	require.NoError(t, err)
	clock.Advance(time.Hour)
}

func TestTrends_InsufficientData(t *testing.T) {
	n, _, clock := setupNotebook(t)
	assert.Nil(t, n.Trends())

	addTracking(t, n, clock, intPtr(2))
	_, err := n.AddEntry(context.Background(), "perso", domain.EntryPersonal, domain.EntryMetadata{})
	require.NoError(t, err)

	assert.Nil(t, n.Trends())
}

func TestTrends_EnergyRising(t *testing.T) {
	n, _, clock := setupNotebook(t)

	for _, e := range []int{1, 1, 4, 4} {
		addTracking(t, n, clock, intPtr(e))
	}

	trends := n.Trends()
	require.NotNil(t, trends)
	assert.Equal(t, domain.TrendUp, trends.EnergyTrend)
	assert.Equal(t, 4, trends.EntriesCount)
	require.NotNil(t, trends.AverageEnergy)
	assert.InDelta(t, 2.5, *trends.AverageEnergy, 0.001)
}

func TestTrends_EnergyDirections(t *testing.T) {
	tests := []struct {
		name     string
		energies []*int
		expected domain.EnergyTrend
	}{
		{name: "falling", energies: []*int{intPtr(4), intPtr(3), intPtr(1), intPtr(0)}, expected: domain.TrendDown},
		{name: "small change", energies: []*int{intPtr(2), intPtr(2), intPtr(2), intPtr(3)}, expected: domain.TrendStable},
		{name: "odd count", energies: []*int{intPtr(1), intPtr(3), intPtr(4)}, expected: domain.TrendUp},
		{name: "nulls skipped", energies: []*int{intPtr(0), nil, intPtr(3)}, expected: domain.TrendUp},
		{name: "no energy", energies: []*int{nil, nil}, expected: domain.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _, clock := setupNotebook(t)
			for _, e := range tt.energies {
				addTracking(t, n, clock, e)
			}
			trends := n.Trends()
			require.NotNil(t, trends)
			assert.Equal(t, tt.expected, trends.EnergyTrend)
		})
	}
}

func TestTrends_WindowAndSymptoms(t *testing.T) {
	n, _, clock := setupNotebook(t)

	// falls out of the seven day window
	addTracking(t, n, clock, intPtr(0), "migraine", "migraine")
	clock.Advance(8 * 24 * time.Hour)

	addTracking(t, n, clock, intPtr(2), "fatigue", "crampes")
	addTracking(t, n, clock, intPtr(2), "crampes", "fatigue")
	addTracking(t, n, clock, intPtr(2), "ballonnements")

	trends := n.Trends()
	require.NotNil(t, trends)
	assert.Equal(t, 3, trends.EntriesCount)
	assert.Equal(t, "fatigue", trends.TopSymptom, "ties go to the first symptom seen")
	assert.Equal(t, domain.TrendStable, trends.EnergyTrend)
}
