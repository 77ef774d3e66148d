package core

// escape.go implements the delimiter contract for composite values.
//
// Scalar arrays join with ";", composite-record-list instances join with
// "|", and key/value pairs join with ":". A literal occurrence of any of
// the three characters inside a raw value is percent-escaped before
// embedding so the joined value splits back into exactly the original
// parts.

import "strings"

// Delimiters used when embedding repeated values into a single cell.
const (
	ArrayDelimiter    = ";"
	ItemDelimiter     = "|"
	KeyValueDelimiter = ":"
)

var (
	delimiterEscaper = strings.NewReplacer(
		ArrayDelimiter, "%3B",
		ItemDelimiter, "%7C",
		KeyValueDelimiter, "%3A",
	)
	delimiterRestorer = strings.NewReplacer(
		"%3B", ArrayDelimiter,
		"%7C", ItemDelimiter,
		"%3A", KeyValueDelimiter,
	)
)

// EscapeDelimiters percent-escapes the three delimiter characters in s.
func EscapeDelimiters(s string) string {
	return delimiterEscaper.Replace(s)
}

// RestoreDelimiters is the exact inverse of EscapeDelimiters.
func RestoreDelimiters(s string) string {
	return delimiterRestorer.Replace(s)
}

// JoinEscaped escapes each part and joins with the delimiter.
func JoinEscaped(parts []string, delimiter string) string {
	if len(parts) == 0 {
		return ""
	}
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = EscapeDelimiters(p)
	}
	return strings.Join(escaped, delimiter)
}

// SplitEscaped splits on the delimiter and restores each part.
// An empty input yields no parts.
func SplitEscaped(s, delimiter string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, delimiter)
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = RestoreDelimiters(p)
	}
	return parts
}

// SanitizeMessage strips characters from a failure message that would
// corrupt a CSV export of the error log.
func SanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, ",", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	return strings.TrimSpace(msg)
}
