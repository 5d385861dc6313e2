package domain

import (
	"fmt"
	"strings"
)

// defaultCountryCode is prepended to national numbers written with a leading
// zero (the common local format in directory records).
const defaultCountryCode = "233"

const (
	minPhoneDigits = 9
	maxPhoneDigits = 15
)

// NormalizePhone converts a directory phone value into E.164-like
// international form, e.g. "024 123 4567" -> "+233241234567". Separator
// characters are dropped; a leading zero is replaced with the default
// country code. Numbers that cannot be normalized are rejected.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: phone is empty", ErrValidation)
	}

	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separator noise, drop
		default:
			return "", fmt.Errorf("%w: phone %q contains invalid character %q", ErrValidation, raw, r)
		}
	}

	number := digits.String()
	if !hasPlus && strings.HasPrefix(number, "00") {
		number = number[2:]
	} else if !hasPlus && strings.HasPrefix(number, "0") {
		number = defaultCountryCode + number[1:]
	}

	if len(number) < minPhoneDigits || len(number) > maxPhoneDigits {
		return "", fmt.Errorf("%w: phone %q has %d digits, want %d-%d", ErrValidation, raw, len(number), minPhoneDigits, maxPhoneDigits)
	}

	return "+" + number, nil
}
