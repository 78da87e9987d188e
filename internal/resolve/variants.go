package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/autolink/internal/model"
)

// Variant labels, in priority order.
const (
	LabelEnglishOriginal = "English (original)"
	LabelEnglishCleaned  = "English (cleaned)"
	LabelRomajiOriginal  = "Romaji (original)"
	LabelRomajiCleaned   = "Romaji (cleaned)"
	LabelJapanese        = "Japanese"
)

// cleanPattern strips season markers: the word "season", "s" followed by
// digits, and bare digit runs.
var cleanPattern = regexp.MustCompile(`(?i)(season|s\d+|\d+)`)

// Variant is one search query derived from a source record's titles.
type Variant struct {
	Label string
	Query string
	// Title is the source title the query was derived from.
	Title string
}

// Cleaned reports whether the query differs from the title it came from.
func (v Variant) Cleaned() bool {
	return v.Query != v.Title
}

// CleanTitle removes season markers from title and trims the result.
func CleanTitle(title string) string {
	return strings.TrimSpace(cleanPattern.ReplaceAllString(title, ""))
}

// Variants returns the search queries for src in priority order. The result
// has at most five entries and is empty when src has no titles.
func Variants(src model.SourceRecord) []Variant {
	var out []Variant

	addPair := func(title, original, cleaned string) {
		out = append(out, Variant{Label: original, Query: title, Title: title})
		if c := CleanTitle(title); c != "" && c != title {
			out = append(out, Variant{Label: cleaned, Query: c, Title: title})
		}
	}

	if src.TitleEnglish != "" {
		addPair(src.TitleEnglish, LabelEnglishOriginal, LabelEnglishCleaned)
	}
	if src.TitleRomaji != "" && src.TitleRomaji != src.TitleEnglish {
		addPair(src.TitleRomaji, LabelRomajiOriginal, LabelRomajiCleaned)
	}
	if src.TitleJapanese != "" && src.TitleJapanese != src.TitleEnglish && src.TitleJapanese != src.TitleRomaji {
		out = append(out, Variant{Label: LabelJapanese, Query: src.TitleJapanese, Title: src.TitleJapanese})
	}
	return out
}
