package table

// cells.go holds the cell- and header-level normalization helpers used
// across the pipeline. Extracted PDF tables arrive with newlines inside
// header cells, full-width punctuation in Chinese spreadsheets, and the
// literal string "nan" where the extractor saw an empty cell.

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanCell trims a cell value and collapses internal whitespace runs.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRun.ReplaceAllString(s, " ")
}

// IsBlank reports whether a cell is empty after trimming, or holds the
// extractor's "nan" placeholder.
func IsBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}

// NormalizeHeader canonicalizes a header cell: full-width characters are
// folded to their narrow forms, newlines and whitespace runs collapse to
// single spaces, and the result is upper-cased.
func NormalizeHeader(s string) string {
	s = width.Narrow.String(norm.NFKC.String(s))
	s = CleanCell(s)
	return strings.ToUpper(s)
}

// NormalizeKey lower-cases and trims a header for case-insensitive
// matching against schema aliases.
func NormalizeKey(s string) string {
	return strings.ToLower(CleanCell(s))
}
