// Package isbn extracts canonical ISBN-13 / ISBN-10 values from noisy input.
package isbn

import "strings"

// Clean keeps only digits and the check character X (upper-cased).
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		}
	}
	return b.String()
}

// Digits keeps only ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// As13 returns the ISBN-13 form of raw, or "" when raw does not hold exactly 13 digits.
func As13(raw string) string {
	d := Digits(raw)
	if len(d) != 13 {
		return ""
	}
	return d
}

// As10 returns the ISBN-10 form of raw, or "" when raw is not nine digits
// followed by a digit or X.
func As10(raw string) string {
	c := Clean(raw)
	if len(c) != 10 {
		return ""
	}
	for i := 0; i < 9; i++ {
		if c[i] == 'X' {
			return ""
		}
	}
	return c
}

// Canonical returns the canonical ISBN for a single raw value. ISBN-13 is
// preferred; an empty string means no usable ISBN.
func Canonical(raw string) string {
	return FromFields(raw)
}

// FromFields scans candidate values in priority order. The first ISBN-13
// found wins over any ISBN-10, otherwise the first ISBN-10 is returned.
func FromFields(candidates ...string) string {
	first10 := ""
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if v := As13(c); v != "" {
			return v
		}
		if first10 == "" {
			first10 = As10(c)
		}
	}
	return first10
}

// Split returns the ISBN-13 and ISBN-10 forms derivable from the candidates.
func Split(candidates ...string) (isbn13, isbn10 string) {
	for _, c := range candidates {
		if isbn13 == "" {
			isbn13 = As13(c)
		}
		if isbn10 == "" {
			isbn10 = As10(c)
		}
	}
	return isbn13, isbn10
}
