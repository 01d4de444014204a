// Package snippet cuts a short, highlighted excerpt of a document around
// the first occurrence of a matched term.
package snippet

import (
	"strings"
	"unicode"
)

const (
	DefaultMaxLength = 200
	// Lead is how many characters of context precede the first match.
	Lead     = 50
	Ellipsis = "..."
	openTag  = "<b>"
	closeTag = "</b>"
)

// Generate returns up to maxLength characters of content starting Lead
// characters before the earliest case-insensitive occurrence of any term,
// with every occurrence inside the window wrapped in <b></b>. Without a
// match it returns a plain prefix. Lengths are counted in runes.
func Generate(content string, terms []string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	text := []rune(content)
	folded := foldRunes(text)
	needles := make([][]rune, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			needles = append(needles, foldRunes([]rune(t)))
		}
	}

	first := -1
	for _, n := range needles {
		if i := indexRunes(folded, n); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	if first < 0 {
		if len(text) <= maxLength {
			return content
		}
		return string(text[:maxLength]) + Ellipsis
	}

	start := max(0, first-Lead)
	end := min(len(text), start+maxLength)

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	highlight(&b, text[start:end], folded[start:end], needles)
	if end < len(text) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// highlight writes window, wrapping the longest needle matching at each
// position. Matches do not overlap.
func highlight(b *strings.Builder, window, folded []rune, needles [][]rune) {
	for i := 0; i < len(window); {
		best := 0
		for _, n := range needles {
			if len(n) > best && hasPrefixRunes(folded[i:], n) {
				best = len(n)
			}
		}
		if best == 0 {
			b.WriteRune(window[i])
			i++
			continue
		}
		b.WriteString(openTag)
		b.WriteString(string(window[i : i+best]))
		b.WriteString(closeTag)
		i += best
	}
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if hasPrefixRunes(haystack[i:], needle) {
			return i
		}
	}
	return -1
}

func hasPrefixRunes(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}
