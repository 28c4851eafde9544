// Package rut validates Chilean national identification numbers (RUT).
//
// A RUT is a numeric body followed by a check character derived from the body
// via a weighted modulo-11 checksum. Input may carry dot thousands separators
// and a hyphen before the check character, but punctuation is optional.
//
// Validation is pure and deterministic: the same input always yields the same
// outcome and the same failure reason.
package rut

import (
	"errors"
	"strings"
)

// Failure reasons, distinct so callers can surface the exact cause.
var (
	ErrTooShort           = errors.New("rut too short")
	ErrMalformedFormat    = errors.New("rut malformed: expected 1-8 digits followed by a digit or K")
	ErrCheckDigitMismatch = errors.New("rut check digit mismatch")
)

// Normalize strips dot and hyphen punctuation, returning the compact token of
// body digits plus trailing check character.
func Normalize(raw string) string {
	replacer := strings.NewReplacer(".", "", "-", "")
	return replacer.Replace(raw)
}

// Validate reports whether raw is a well-formed RUT.
//
// It normalizes the input, checks shape (1-8 decimal digits followed by
// exactly one digit or K/k), and verifies the check character against the
// weighted modulo-11 checksum. The check comparison is case-insensitive on K.
func Validate(raw string) error {
	token := Normalize(raw)

	if len(token) < 2 {
		return ErrTooShort
	}
	if !wellShaped(token) {
		return ErrMalformedFormat
	}

	body := token[:len(token)-1]
	claimed := upper(token[len(token)-1])

	if CheckDigit(body) != claimed {
		return ErrCheckDigitMismatch
	}
	return nil
}

// CheckDigit computes the expected check character for a RUT body.
//
// Digits are weighted from least-significant to most-significant with a
// cyclic weight that starts at 2 and wraps back to 2 immediately upon
// reaching 8, so the cycle is 2,3,4,5,6,7,2,3,... The weighted sum modulo 11
// determines the check character: 11 maps to '0', 10 maps to 'K', anything
// else is the decimal digit itself.
func CheckDigit(body string) byte {
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight == 8 {
			weight = 2
		}
	}

	expected := 11 - sum%11
	switch expected {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + expected)
	}
}

// wellShaped reports whether token matches ^\d{1,8}[\dkK]$.
func wellShaped(token string) bool {
	if len(token) < 2 || len(token) > 9 {
		return false
	}
	for i := 0; i < len(token)-1; i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	last := token[len(token)-1]
	return (last >= '0' && last <= '9') || last == 'k' || last == 'K'
}

func upper(c byte) byte {
	if c == 'k' {
		return 'K'
	}
	return c
}
