package features

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidNumeric is returned under FailFast for an absent or unparsable
// numeric field.
var ErrInvalidNumeric = errors.New("features: invalid numeric value")

// ParsePolicy decides what happens to numeric fields that are absent or do
// not parse.
type ParsePolicy string

const (
	// ZeroFill substitutes 0.0 silently.
	ZeroFill ParsePolicy = "zero-fill"
	// FailFast rejects the record.
	FailFast ParsePolicy = "fail-fast"
)

// ParsePolicyFor validates a policy name.
func ParsePolicyFor(name string) (ParsePolicy, error) {
	switch p := ParsePolicy(name); p {
	case ZeroFill, FailFast:
		return p, nil
	case "":
		return ZeroFill, nil
	default:
		return "", fmt.Errorf("features: unknown parse policy %q (want %s or %s)", name, ZeroFill, FailFast)
	}
}

// ParseNumeric parses a decimal float. Surrounding whitespace is ignored,
// inf/nan spellings are accepted and single underscores may separate digits
// ("1_000"). Values too large to represent become ±Inf.
func ParseNumeric(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s, ok := stripDigitSeparators(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumeric, s)
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumeric, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumeric, s)
	}
	return v, nil
}

// stripDigitSeparators drops underscores that sit between two decimal digits.
// Any other underscore makes the value invalid.
func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b = append(b, s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return s, false
		}
	}
	return string(b), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
