package services

import (
	"regexp"
	"strings"
	"unicode"
)

// GenericTestTitle is shown when nothing better can be derived from the id.
const GenericTestTitle = "Practice Test"

var uuidLikeID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Exam-domain acronyms that stay fully uppercased when prettifying slugs.
var titleAcronyms = map[string]bool{
	"ssc":   true,
	"upsc":  true,
	"rrb":   true,
	"ntpc":  true,
	"cgl":   true,
	"chsl":  true,
	"ibps":  true,
	"sbi":   true,
	"rbi":   true,
	"cat":   true,
	"gate":  true,
	"neet":  true,
	"jee":   true,
	"ctet":  true,
	"nda":   true,
	"cds":   true,
	"gk":    true,
	"gs":    true,
	"po":    true,
	"mts":   true,
	"je":    true,
	"si":    true,
	"capf":  true,
	"afcat": true,
}

// ResolveTestTitle derives the display title for a test. Precedence: catalog
// entry, then a provided non-generic title, then the prettified test id. Ids
// that are opaque identifiers (UUIDs) fall back to a generic label.
func ResolveTestTitle(catalog TestCatalog, testID, providedTitle string) string {
	if catalog != nil {
		if title, ok := catalog.TitleFor(testID); ok && title != "" {
			return title
		}
	}

	trimmed := strings.TrimSpace(providedTitle)
	if trimmed != "" && !isGenericTitle(trimmed) {
		return trimmed
	}

	return PrettifyTestID(testID)
}

func isGenericTitle(title string) bool {
	lower := strings.ToLower(title)
	return lower == "test" || lower == "mock test" || lower == "untitled" ||
		lower == strings.ToLower(GenericTestTitle)
}

// PrettifyTestID turns a slug like "ssc-cgl-tier1-2024" into
// "SSC CGL Tier 1 2024". Opaque ids produce the generic label.
func PrettifyTestID(testID string) string {
	if testID == "" || uuidLikeID.MatchString(testID) {
		return GenericTestTitle
	}

	raw := strings.FieldsFunc(testID, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})

	var words []string
	for _, token := range raw {
		words = append(words, splitLetterDigit(token)...)
	}
	if len(words) == 0 {
		return GenericTestTitle
	}

	for i, word := range words {
		lower := strings.ToLower(word)
		switch {
		case titleAcronyms[lower]:
			words[i] = strings.ToUpper(lower)
		case isDigits(word):
			words[i] = word
		default:
			words[i] = strings.ToUpper(lower[:1]) + lower[1:]
		}
	}
	return strings.Join(words, " ")
}

// splitLetterDigit breaks "tier1" into ["tier", "1"] so mixed tokens read
// naturally after casing.
func splitLetterDigit(token string) []string {
	var parts []string
	start := 0
	runes := []rune(token)
	for i := 1; i < len(runes); i++ {
		if unicode.IsLetter(runes[i-1]) != unicode.IsLetter(runes[i]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}
	return parts
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
