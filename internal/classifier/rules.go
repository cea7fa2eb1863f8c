package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/pbaille/melune/internal/domain"
)

// keywordGroup maps a set of content keywords to a single tag
type keywordGroup struct {
	Tag      string
	Keywords []string
}

var typeTags = map[domain.EntryType]string{
	domain.EntrySaved:    "#sauvegardé",
	domain.EntryPersonal: "#personnel",
	domain.EntryTracking: "#tracking",
}

// Evaluated in order; each group contributes at most one tag.
var keywordGroups = []keywordGroup{
	{Tag: "#recette", Keywords: []string{"recette", "cuisine"}},
	{Tag: "#rdv", Keywords: []string{"rdv", "rendez-vous"}},
	{Tag: "#inspiration", Keywords: []string{"idée", "inspiration"}},
	{Tag: "#objectif", Keywords: []string{"objectif", "but"}},
}

// DefaultTags is the predefined tag vocabulary offered to the user
var DefaultTags = []string{
	"#recette",
	"#rdv",
	"#inspiration",
	"#objectif",
	"#émotion",
	"#symptôme",
	"#énergie",
	"#sommeil",
	"#sport",
	"#travail",
}

// TypeTag returns the structural tag for an entry type. Unknown types are
// tagged with their own name.
func TypeTag(t domain.EntryType) string {
	if tag, ok := typeTags[t]; ok {
		return tag
	}
	return "#" + string(t)
}

// GenerateAutoTags derives the creation-time tags of an entry
func GenerateAutoTags(content string, entryType domain.EntryType, meta domain.EntryMetadata) []string {
	tags := []string{TypeTag(entryType)}

	if meta.Phase != "" {
		tags = append(tags, "#"+string(meta.Phase))
	}

	lower := strings.ToLower(content)
	for _, group := range keywordGroups {
		for _, kw := range group.Keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, group.Tag)
				break
			}
		}
	}

	if meta.Mood == "sad" {
		tags = append(tags, "#émotion")
	}
	if len(meta.Symptoms) > 0 {
		tags = append(tags, "#symptôme")
	}

	return dedupe(tags)
}

// SuggestedTags returns the vocabulary tags loosely matching content.
// A tag matches when its name or its first three letters appear in the text.
func SuggestedTags(content string, vocabulary []string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, tag := range vocabulary {
		name := strings.ToLower(strings.TrimPrefix(tag, "#"))
		if name == "" {
			continue
		}
		if strings.Contains(lower, name) || strings.Contains(lower, prefix(name, 3)) {
			out = append(out, tag)
		}
	}
	return out
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
