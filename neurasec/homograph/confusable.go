package homograph

import "strings"

// confusables maps visually similar code points to their ASCII look-alike.
// This is not exhaustive but covers the confusables most commonly used in
// lookalike domains.
var confusables = map[rune]rune{
	'а': 'a', // Cyrillic а
	'е': 'e', // Cyrillic е
	'о': 'o', // Cyrillic о
	'р': 'p', // Cyrillic р
	'с': 'c', // Cyrillic с
	'ѕ': 's', // Cyrillic ѕ
	'і': 'i', // Cyrillic і
	'ј': 'j', // Cyrillic ј
	'ԛ': 'q', // Cyrillic ԛ
	'у': 'y', // Cyrillic у
	'х': 'x', // Cyrillic х
	'ꙍ': 'w', // Cyrillic ꙍ
	'ⅿ': 'm', // Roman numeral small m
	'ｎ': 'n', // Fullwidth n
	'ɡ': 'g', // Latin small script g
	'ӏ': 'l', // Cyrillic palochka
	'1': 'l', // digit one vs letter l
	'0': 'o', // digit zero vs letter o
	'𝟏': '1', // mathematical bold digit one
	'𝟐': '2', // mathematical bold digit two
	'𝟑': '3', // mathematical bold digit three
	'𝟎': '0', // mathematical bold digit zero
	'ḋ': 'd', // d with dot above
	'ṫ': 't', // t with dot above
	'ċ': 'c', // c with dot above
	'ḃ': 'b', // b with dot above
}

// The table chains in places (𝟏 → 1 → l). Flatten those chains once at
// process start so Normalize stays idempotent.
func init() {
	for from, to := range confusables {
		for {
			next, ok := confusables[to]
			if !ok {
				break
			}
			to = next
		}
		confusables[from] = to
	}
}

// Normalize substitutes confusable code points in domain with their ASCII
// look-alike. Characters absent from the table pass through unchanged. The
// function is pure and idempotent.
func Normalize(domain string) string {
	var b strings.Builder
	b.Grow(len(domain))
	for _, r := range domain {
		if repl, ok := confusables[r]; ok {
			b.WriteRune(repl)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
