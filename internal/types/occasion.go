package types

import (
	"strings"

	a "github.com/petar-dambovaliev/aho-corasick"
)

// Aho-Corasick matchers for occasion detection in free-text lead notes.
var (
	occasionBuilder = a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
	})

	occasionMatcher = occasionBuilder.Build([]string{
		// Honeymoon keywords
		"honeymoon", "newlywed", "newlyweds", "wedding", "bride", "groom",
		// Anniversary keywords
		"anniversary", "anniversaries",
		// Birthday keywords
		"birthday", "bday",
	})

	keywordToOccasion = map[string]Occasion{
		"honeymoon": OccasionHoneymoon, "newlywed": OccasionHoneymoon,
		"newlyweds": OccasionHoneymoon, "wedding": OccasionHoneymoon,
		"bride": OccasionHoneymoon, "groom": OccasionHoneymoon,
		"anniversary": OccasionAnniversary, "anniversaries": OccasionAnniversary,
		"birthday": OccasionBirthday, "bday": OccasionBirthday,
	}
)

// DetectOccasion scans free text for occasion keywords and returns the first
// hit, or OccasionNone. Used to pre-fill the wizard's step-5 occasion from
// lead notes.
func DetectOccasion(text string) Occasion {
	if text == "" {
		return OccasionNone
	}
	matches := occasionMatcher.FindAll(text)
	for _, m := range matches {
		kw := strings.ToLower(text[m.Start():m.End()])
		if occ, ok := keywordToOccasion[kw]; ok {
			return occ
		}
	}
	return OccasionNone
}
