// Package sanitize cleans raw user input before it reaches prompt assembly
// or conversation history.
package sanitize

import (
	"strings"
	"unicode"
)

// Clean sanitizes user-supplied text:
//
//   - normalizes Windows line endings to Unix,
//   - strips control characters other than newline, carriage return and tab,
//   - trims leading and trailing whitespace.
//
// Trimming happens last: stripping a control character can expose new
// trailing whitespace, and Clean must be idempotent. Clean never fails;
// empty input stays empty.
func Clean(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
