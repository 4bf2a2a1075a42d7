// Package langdetect guesses the language of a query from the Unicode
// scripts it uses.
package langdetect

import (
	"strings"
	"unicode"
)

type script struct {
	table *unicode.RangeTable
	lang  string
}

// Order matters only for ties; Latin is last so mixed queries prefer the
// native script.
var scripts = []script{
	{unicode.Devanagari, "hi"},
	{unicode.Telugu, "te"},
	{unicode.Tamil, "ta"},
	{unicode.Kannada, "kn"},
	{unicode.Gujarati, "gu"},
	{unicode.Bengali, "bn"},
	{unicode.Malayalam, "ml"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Latin, "en"},
}

// marathiMarkers are frequent Marathi words that Hindi does not use.
var marathiMarkers = []string{
	"आहे", "आहेत", "किती", "एकूण", "सरासरी", "कोणत्या", "कोणते", "मध्ये", "झाले", "झाली", "नाही", "आणि", "च्या",
}

type Detector struct {
	fallback string
}

// New returns a detector that answers fallback for text without letters.
func New(fallback string) *Detector {
	return &Detector{fallback: fallback}
}

// Detect returns the language code and the share of letters written in its
// script.
func (d *Detector) Detect(text string) (string, float64) {
	counts := make([]int, len(scripts))
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsMark(r) {
			continue
		}
		letters++
		for i, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[i]++
				break
			}
		}
	}
	if letters == 0 {
		return d.fallback, 0
	}

	best := 0
	for i := range counts {
		if counts[i] > counts[best] {
			best = i
		}
	}
	if counts[best] == 0 {
		return "", 0
	}

	lang := scripts[best].lang
	if lang == "hi" && isMarathi(text) {
		lang = "mr"
	}
	return lang, float64(counts[best]) / float64(letters)
}

func isMarathi(text string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r)
	})
	hits := 0
	for _, word := range words {
		for _, marker := range marathiMarkers {
			if word == marker || (len([]rune(marker)) > 2 && strings.HasSuffix(word, marker)) {
				hits++
				break
			}
		}
	}
	return hits > 0
}
