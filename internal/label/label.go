// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package label splits report paragraphs into a field label and a value and
// compares labels independently of full-width forms, spacing and
// enumeration prefixes.
package label

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FullWidthColon is the colon normalized reports use after a field label.
const FullWidthColon = "："

// enumeration matches list prefixes such as "五、", "(3)", "3." and "3．".
var enumeration = regexp.MustCompile(`^(?:[一二三四五六七八九十百]+[、.．]|[(（]?\d+[)）.．、]|[(（][一二三四五六七八九十]+[)）])\s*`)

// Field is a paragraph split at its first colon.
type Field struct {
	// Label is the text before the colon, or the whole text when there is
	// no colon.
	Label string

	// Colon is the rune offset of the colon, -1 when absent.
	Colon int

	// Ascii reports whether the colon is a half-width ':'.
	Ascii bool
}

// Split finds the field label of text.
func Split(text string) Field {
	for i, r := range []rune(text) {
		switch r {
		case ':':
			return Field{Label: string([]rune(text)[:i]), Colon: i, Ascii: true}
		case '：':
			return Field{Label: string([]rune(text)[:i]), Colon: i}
		}
	}
	return Field{Label: text, Colon: -1}
}

// Fold normalizes s for comparison: NFKC, no whitespace.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// StripEnumeration removes a leading list marker.
func StripEnumeration(s string) string {
	s = strings.TrimSpace(s)
	return enumeration.ReplaceAllString(s, "")
}

// Equal reports whether two labels match after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Contains reports whether label contains phrase after folding.
func Contains(label, phrase string) bool {
	return strings.Contains(Fold(label), Fold(phrase))
}
