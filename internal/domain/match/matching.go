package match

import "strings"

// diacriticFold covers the latin diacritics that appear in tour player
// names; anything outside the table passes through ToLower untouched.
var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a', 'ą': 'a', 'ă': 'a',
	'ć': 'c', 'č': 'c', 'ç': 'c',
	'ď': 'd', 'đ': 'd',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ě': 'e', 'ę': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ı': 'i',
	'ł': 'l', 'ľ': 'l',
	'ń': 'n', 'ň': 'n', 'ñ': 'n',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o', 'ø': 'o', 'ő': 'o',
	'ř': 'r',
	'ś': 's', 'š': 's', 'ş': 's', 'ș': 's',
	'ť': 't', 'ț': 't',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ů': 'u', 'ű': 'u',
	'ý': 'y',
	'ž': 'z', 'ź': 'z', 'ż': 'z',
}

// NameMatches reports whether a participant name matches a user-typed
// query: case- and diacritic-insensitive, either the whole query as a
// substring or every query token present in the folded name.
func NameMatches(participant, query string) bool {
	name := FoldName(participant)
	q := FoldName(query)
	if name == "" || q == "" {
		return false
	}
	if strings.Contains(name, q) {
		return true
	}
	for _, tok := range strings.Fields(q) {
		if !strings.Contains(name, tok) {
			return false
		}
	}
	return true
}

// FoldName lowercases, strips diacritics, maps name punctuation to spaces
// and collapses whitespace.
func FoldName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if folded, ok := diacriticFold[r]; ok {
			r = folded
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ':
			b.WriteRune(r)
		case r == '-' || r == '\'' || r == '.':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
