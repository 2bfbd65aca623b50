package domain

import "strings"

// Canonical country identifiers for the supported study destinations.
const (
	CountryUSA        = "usa"
	CountryUK         = "uk"
	CountryAustralia  = "australia"
	CountrySouthKorea = "south korea"
)

// Countries lists the supported destinations in display order.
var Countries = []string{CountryUSA, CountryUK, CountryAustralia, CountrySouthKorea}

// countryAliases maps lowercase user/dir spellings to canonical identifiers.
var countryAliases = map[string]string{
	"usa":            CountryUSA,
	"us":             CountryUSA,
	"u.s.":           CountryUSA,
	"u.s.a":          CountryUSA,
	"america":        CountryUSA,
	"united states":  CountryUSA,
	"uk":             CountryUK,
	"u.k.":           CountryUK,
	"united kingdom": CountryUK,
	"britain":        CountryUK,
	"england":        CountryUK,
	"australia":      CountryAustralia,
	"aussie":         CountryAustralia,
	"south korea":    CountrySouthKorea,
	"south_korea":    CountrySouthKorea,
	"korea":          CountrySouthKorea,
}

// NormalizeCountry maps a country filter value to its canonical form.
// Matching is case-insensitive and alias-aware; directory-name spellings
// such as "south_korea" normalize the same way. Unknown values are returned
// lowercased so that exact-match filtering still behaves consistently on
// both search paths.
func NormalizeCountry(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ""
	}
	if canonical, ok := countryAliases[key]; ok {
		return canonical
	}
	return key
}

// countryKeywords drives DetectCountry. Multi-word keywords are checked as
// substrings of the lowercased query; visa designators double as signals.
var countryKeywords = map[string][]string{
	CountryUSA:        {"usa", "united states", "america", "american", "u.s.", "f-1", "f1 visa"},
	CountryUK:         {"uk", "united kingdom", "britain", "british", "england", "tier 4", "tier4"},
	CountryAustralia:  {"australia", "australian", "aussie", "subclass 500"},
	CountrySouthKorea: {"south korea", "korea", "korean", "d-2", "d-4"},
}

// DetectCountry guesses the destination a free-text query is about from
// country names and visa-type designators. It reports false when nothing
// matches; callers decide whether to apply the guess as a filter.
func DetectCountry(query string) (string, bool) {
	q := " " + strings.ToLower(query) + " "
	for _, country := range Countries {
		for _, kw := range countryKeywords[country] {
			if strings.Contains(kw, " ") || strings.Contains(kw, "-") || strings.Contains(kw, ".") {
				if strings.Contains(q, kw) {
					return country, true
				}
				continue
			}
			// Single-word keywords match on word boundaries to keep "us"
			// from firing inside words like "campus".
			if containsWord(q, kw) {
				return country, true
			}
		}
	}
	return "", false
}

func containsWord(padded, word string) bool {
	idx := 0
	for {
		i := strings.Index(padded[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := padded[i-1]
		after := padded[i+len(word)]
		if !isWordByte(before) && !isWordByte(after) {
			return true
		}
		idx = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
