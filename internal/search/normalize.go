// Package search implements the free-text matching used by /api/search:
// diacritic-insensitive normalization plus Cyrillic/Latin transliteration so
// a Latin-typed query matches Cyrillic content and vice versa.
package search

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cyrToLat is the fixed transliteration scheme. Digraphs expand to
// multi-character outputs; the soft sign drops entirely.
var cyrToLat = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e",
	'є': "ye", 'ж': "zh", 'з': "z", 'и': "y", 'і': "i", 'ї': "yi", 'й': "i",
	'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ь': "", 'ю': "yu", 'я': "ya", 'ё': "yo",
	'э': "e", 'ы': "y",
}

// stripAccents removes combining marks after NFD decomposition, so "é"
// normalizes to "e".
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, strips diacritics and collapses whitespace runs to
// a single space.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}

// Transliterate maps Cyrillic characters to their Latin scheme, leaving
// everything else untouched. Input is lower-cased first so the table only
// needs lower-case entries.
func Transliterate(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if lat, ok := cyrToLat[r]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MatchQuery reports whether the query matches any of the fields. Both the
// normalized and transliterated forms are checked in both directions. An
// empty query matches everything.
func MatchQuery(query string, fields ...string) bool {
	qn := Normalize(query)
	if qn == "" {
		return true
	}
	qt := Transliterate(qn)
	for _, f := range fields {
		f0 := Normalize(f)
		f1 := Normalize(Transliterate(f))
		if strings.Contains(f0, qn) || strings.Contains(f0, qt) ||
			strings.Contains(f1, qn) || strings.Contains(f1, qt) {
			return true
		}
	}
	return false
}

// MatchPriceBand applies the band filter to a price. A bare integer N means
// price <= N; "N+" means price > N; an empty or malformed band always
// matches so bad input never hides results.
func MatchPriceBand(band string, price int) bool {
	band = strings.TrimSpace(band)
	if band == "" {
		return true
	}
	if strings.HasSuffix(band, "+") {
		floor, err := strconv.Atoi(strings.TrimSuffix(band, "+"))
		if err != nil {
			return true
		}
		return price > floor
	}
	ceil, err := strconv.Atoi(band)
	if err != nil {
		return true
	}
	return price <= ceil
}
