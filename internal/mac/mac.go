package mac

import (
	"errors"
	"strings"
)

// ErrInvalidMAC indicates input that cannot be interpreted as a hardware address.
var ErrInvalidMAC = errors.New("mac: invalid hardware address")

// Normalize converts a MAC address to canonical form: uppercase hex pairs
// joined by colons (AA:BB:CC:DD:EE:FF).
//
// Every non-hex character is treated as a separator and stripped, so
// colon, hyphen, dot, and space separated inputs in any case all
// normalise, as do bare 12-digit hex strings. What remains must be
// exactly 12 hex digits.
//
// Parameters:
//   - input: Raw MAC address string
//
// Returns:
//   - string: Canonical form
//   - error: ErrInvalidMAC if the input is not a valid 48-bit address
func Normalize(input string) (string, error) {
	var hex strings.Builder
	hex.Grow(12)
	for _, r := range input {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			hex.WriteRune(r)
		case r >= 'a' && r <= 'f':
			hex.WriteRune(r - ('a' - 'A'))
		}
	}

	digits := hex.String()
	if len(digits) != 12 {
		return "", ErrInvalidMAC
	}

	var out strings.Builder
	out.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			out.WriteByte(':')
		}
		out.WriteString(digits[i : i+2])
	}
	return out.String(), nil
}

// IsValid reports whether input can be normalised to a hardware address.
func IsValid(input string) bool {
	_, err := Normalize(input)
	return err == nil
}
