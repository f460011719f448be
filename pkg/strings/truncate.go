// Package strings holds text helpers shared by the API client and the CLI.
package strings

import (
	"strings"
)

const (
	// DefaultCellMaxLen bounds free text shown in a table cell.
	DefaultCellMaxLen = 60

	// DefaultDetailMaxLen bounds server-provided error details kept in an error message.
	DefaultDetailMaxLen = 200

	// MinTruncateLen is the smallest useful maxLen: one character plus "...".
	MinTruncateLen = 4
)

// Truncate collapses all whitespace runs in s into single spaces and cuts
// the result to maxLen runes, ending it with "..." when cut.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
