package wslscript

import "strings"

// EscapeSingleQuotes escapes a string for inclusion inside a single-quoted
// bash string: every ' becomes '\'' (close quote, escaped quote, reopen).
// No other character is altered; anything else is inert once enclosed in
// single quotes, and filtering it here would corrupt legitimate Windows
// paths.
func EscapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, `'`, `'\''`)
}
