package table

import (
	"regexp"
	"strconv"
	"strings"
)

// numericPattern accepts plain decimals and scientific notation.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var nonNumericChars = regexp.MustCompile(`[^\d.\-]`)

// ParseOptionalNumber coerces a cell to a number without exceptions in
// the control path. It tolerates thousands separators, common currency
// symbols and the accounting negative format "(123.45)". The second
// return value is false when the cell holds no usable number.
func ParseOptionalNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, "¥", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}

	if !numericPattern.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether the cell coerces to a number.
func IsNumeric(s string) bool {
	_, ok := ParseOptionalNumber(s)
	return ok
}

// ExtractNumber pulls the leading numeric run out of a noisy cell
// ("USD 12.50" -> 12.50). Used only for correction suggestions, never
// for validation itself.
func ExtractNumber(s string) (float64, bool) {
	cleaned := nonNumericChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatNumber renders a float the way result workbooks display money:
// two decimal places, no exponent.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
