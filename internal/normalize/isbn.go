// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strings"
)

// isbnLabel matches "ISBN", "ISBN-10:", "ISBN 13" and similar prefixes so
// that the 10 or 13 in the label is not read as digits.
var isbnLabel = regexp.MustCompile(`(?i)\bISBN(?:[- ]?1[03]\b)?\s*:?`)

// NormalizeISBN extracts the first ISBN-like run from s ("0141439513 (pbk.)",
// "ISBN 978-0-14-143951-8") and returns its ISBN-13 form with ok true when
// the check digit validates. ISBN-10 values are converted. When the value
// does not validate, the cleaned digits are returned with ok false; an
// input with no digits yields "".
func NormalizeISBN(s string) (string, bool) {
	digits := isbnDigits(s)
	switch len(digits) {
	case 13:
		if validISBN13(digits) {
			return digits, true
		}
	case 10:
		if validISBN10(digits) {
			return isbn10To13(digits), true
		}
	}
	return digits, false
}

// isbnDigits collects digits (and a trailing X) from the first run of
// digits, hyphens and spaces in s after removing ISBN labels. A space ends
// the run only once a full 10 or 13 digit value has been read.
func isbnDigits(s string) string {
	s = isbnLabel.ReplaceAllString(s, " ")
	var b strings.Builder
	started := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			started = true
			b.WriteRune(r)
		case (r == 'X' || r == 'x') && started:
			b.WriteByte('X')
			return b.String()
		case r == ' ' && started && (b.Len() == 10 || b.Len() >= 13):
			return b.String()
		case (r == '-' || r == ' ') && started:
		default:
			if started {
				return b.String()
			}
		}
	}
	return b.String()
}

func validISBN13(d string) bool {
	if !strings.HasPrefix(d, "978") && !strings.HasPrefix(d, "979") {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := d[i]
		if c < '0' || c > '9' {
			return false
		}
		w := 1
		if i%2 == 1 {
			w = 3
		}
		sum += int(c-'0') * w
	}
	return sum%10 == 0
}

func validISBN10(d string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var v int
		switch c := d[i]; {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func isbn10To13(d string) string {
	body := "978" + d[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		w := 1
		if i%2 == 1 {
			w = 3
		}
		sum += int(body[i]-'0') * w
	}
	return body + string(rune('0'+(10-sum%10)%10))
}

// firstISBN returns the normalized form of the first value that validates,
// falling back to the cleaned first non-empty value.
func firstISBN(values []string) string {
	fallback := ""
	for _, v := range values {
		n, ok := NormalizeISBN(v)
		if ok {
			return n
		}
		if fallback == "" {
			fallback = n
		}
	}
	return fallback
}
