package notebook

import (
	"sort"
	"strings"
	"time"

	"github.com/pbaille/melune/internal/domain"
)

const (
	maxTagStats  = 10
	trendWindow  = 7 * 24 * time.Hour
	trendEpsilon = 0.5
)

// Filters narrows a search. Zero values mean "not set".
// Tags match when the entry carries any of them; categories are AND'd.
type Filters struct {
	Tags  []string
	Type  domain.EntryType
	Phase domain.CyclePhase
}

func (f Filters) empty() bool {
	return len(f.Tags) == 0 && f.Type == "" && f.Phase == ""
}

func (f Filters) match(e domain.NotebookEntry) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Phase != "" && e.Metadata.Phase != f.Phase {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(e, f.Tags) {
		return false
	}
	return true
}

func hasAnyTag(e domain.NotebookEntry, wanted []string) bool {
	for _, have := range e.AllTags() {
		for _, w := range wanted {
			if have == w {
				return true
			}
		}
	}
	return false
}

// Search returns entries matching the query and filters, in list order.
// The query is a case-insensitive substring of content, manual tags and auto tags.
func (n *Notebook) Search(query string, filters Filters) []domain.NotebookEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	query = strings.ToLower(query)
	if query == "" && filters.empty() {
		return cloneEntries(n.entries)
	}

	out := []domain.NotebookEntry{}
	for _, e := range n.entries {
		if query != "" && !strings.Contains(searchText(e), query) {
			continue
		}
		if !filters.match(e) {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

func searchText(e domain.NotebookEntry) string {
	parts := make([]string, 0, 1+len(e.Metadata.Tags)+len(e.AutoTags))
	parts = append(parts, e.Content)
	parts = append(parts, e.Metadata.Tags...)
	parts = append(parts, e.AutoTags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// TagStats counts every auto and manual tag and returns the ten most used.
// Ties keep the order in which tags were first seen.
func (n *Notebook) TagStats() []domain.TagCount {
	n.mu.RLock()
	defer n.mu.RUnlock()

	index := make(map[string]int)
	stats := []domain.TagCount{}
	for _, e := range n.entries {
		for _, tag := range e.AllTags() {
			if i, ok := index[tag]; ok {
				stats[i].Count++
				continue
			}
			index[tag] = len(stats)
			stats = append(stats, domain.TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	if len(stats) > maxTagStats {
		stats = stats[:maxTagStats]
	}
	return stats
}

// Trends summarises tracking entries from the last seven days.
// It returns nil when fewer than two entries qualify.
func (n *Notebook) Trends() *domain.TrendSummary {
	n.mu.RLock()
	cutoff := n.now().Add(-trendWindow).UnixMilli()
	var recent []domain.NotebookEntry
	for _, e := range n.entries {
		if e.Type == domain.EntryTracking && e.Timestamp >= cutoff {
			recent = append(recent, e)
		}
	}
	n.mu.RUnlock()

	if len(recent) < 2 {
		return nil
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp < recent[j].Timestamp
	})

	var energies []int
	for _, e := range recent {
		if e.Metadata.Energy != nil {
			energies = append(energies, *e.Metadata.Energy)
		}
	}

	summary := &domain.TrendSummary{
		EnergyTrend:  energyTrend(energies),
		TopSymptom:   topSymptom(recent),
		EntriesCount: len(recent),
	}
	if len(energies) > 0 {
		avg := mean(energies)
		summary.AverageEnergy = &avg
	}
	return summary
}

func energyTrend(values []int) domain.EnergyTrend {
	if len(values) < 2 {
		return domain.TrendStable
	}
	mid := len(values) / 2
	first, second := mean(values[:mid]), mean(values[mid:])
	switch {
	case second > first+trendEpsilon:
		return domain.TrendUp
	case second < first-trendEpsilon:
		return domain.TrendDown
	default:
		return domain.TrendStable
	}
}

func topSymptom(entries []domain.NotebookEntry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		for _, s := range e.Metadata.Symptoms {
			if s == "" {
				continue
			}
			if _, ok := counts[s]; !ok {
				order = append(order, s)
			}
			counts[s]++
		}
	}

	best := ""
	for _, s := range order {
		if best == "" || counts[s] > counts[best] {
			best = s
		}
	}
	return best
}

func mean(values []int) float64 {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
