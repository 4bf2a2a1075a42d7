// Package textnorm folds free text into comparable forms for cache keys,
// vocabulary matching and lexical scoring.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, removes diacritics from Latin letters and collapses
// whitespace. Combining marks on other scripts are kept because they carry
// vowel sounds there.
func Fold(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	prevLatin := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			if prevLatin {
				continue
			}
			b.WriteRune(r)
			continue
		}
		prevLatin = unicode.Is(unicode.Latin, r)
		b.WriteRune(unicode.ToLower(r))
	}

	return strings.Join(strings.Fields(norm.NFC.String(b.String())), " ")
}

// Tokens splits folded text into word tokens. Letters, digits and combining
// marks belong to words; everything else separates them.
func Tokens(s string) []string {
	folded := Fold(s)
	if folded == "" {
		return nil
	}
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r))
	})
}

func TokenSet(s string) map[string]struct{} {
	tokens := Tokens(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

// Overlap is the share of query tokens present in text.
func Overlap(query map[string]struct{}, text string) float64 {
	if len(query) == 0 {
		return 0
	}
	doc := TokenSet(text)
	matches := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// Truncate cuts s to at most maxRunes runes, appending an ellipsis when cut.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:maxRunes-1])) + "…"
}

// HasLetters reports whether s contains at least one letter.
func HasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
