// Package tokenizer turns document and query text into normalised terms.
// Index-time and query-time both go through Tokenize, so any change here
// requires a full reindex.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	arabicFirst = '؀'
	arabicLast  = 'ۿ'
	tatweel     = 'ـ'
)

// IsRTL reports whether text contains any rune from the Arabic block, which
// selects the Arabic normalisation path.
func IsRTL(text string) bool {
	for _, r := range text {
		if r >= arabicFirst && r <= arabicLast {
			return true
		}
	}
	return false
}

// Tokenize returns the ordered terms of text. It never returns nil.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, " ")
	}
	if IsRTL(text) {
		return tokenizeArabic(text)
	}
	return tokenizeLatin(text)
}

func tokenizeLatin(text string) []string {
	fold := cases.Fold()
	words := splitWords(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		term := fold.String(w)
		if _, stop := englishStopwords[term]; stop {
			continue
		}
		if keep(term) {
			out = append(out, term)
		}
	}
	return out
}

func tokenizeArabic(text string) []string {
	fold := cases.Fold()
	words := splitWords(normalizeArabic(text))
	out := make([]string, 0, len(words))
	for _, w := range words {
		term := fold.String(w)
		if !keep(term) {
			continue
		}
		if _, stop := arabicStopwords[term]; stop {
			continue
		}
		out = append(out, term)
	}
	return out
}

// normalizeArabic folds compatibility forms and ligatures, drops diacritics
// and tatweel, and unifies alef and yeh variants.
func normalizeArabic(text string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == tatweel })),
		norm.NFC,
		runes.Map(foldArabicLetter),
	)
	s, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return s
}

func foldArabicLetter(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	}
	return r
}

// splitWords breaks on every rune that is neither a letter nor a digit, which
// also strips punctuation from the resulting words.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// keep drops single-rune and purely numeric terms.
func keep(term string) bool {
	if utf8.RuneCountInString(term) <= 1 {
		return false
	}
	for _, r := range term {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
