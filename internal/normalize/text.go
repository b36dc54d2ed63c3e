// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanTitle applies NFC, turns whitespace runs into one space, drops other
// control and format characters, and trims. Case and script are preserved.
func CleanTitle(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// CleanText is CleanTitle for any free-text field.
func CleanText(s string) string { return CleanTitle(s) }

// trimPunct removes the trailing ISBD punctuation catalogers leave on MARC
// subfields ("Pride and prejudice /", "Austen, Jane,").
func trimPunct(s string) string {
	return strings.TrimRight(CleanText(s), " /:;,.=")
}

// FoldKey returns a comparison key: diacritics removed, case folded,
// punctuation replaced by spaces, whitespace collapsed. It is used for
// matching only and never stored in a record.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Tokens splits FoldKey(s) into words.
func Tokens(s string) []string {
	return strings.Fields(FoldKey(s))
}

// cleanList cleans every entry, drops empties and exact duplicates, and
// always returns a non-nil slice.
func cleanList(in []string, clean func(string) string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = clean(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
