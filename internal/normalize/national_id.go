package normalize

import (
	"errors"
	"strings"
)

// ErrMalformed means the input could not be parsed into a body + check
// character at all (wrong characters, wrong length). Maps to the
// rowvalidate ErrorKind nid.malformed.
var ErrMalformed = errors.New("national id malformed")

// ErrBadCheck means the input parsed into a well-formed body + check
// character, but the check character does not match the computed digit.
// Maps to the rowvalidate ErrorKind nid.bad_check.
var ErrBadCheck = errors.New("national id check digit mismatch")

// NationalID is a parsed, verified national ID: an eight-or-fewer digit
// body plus its computed check character ('0'-'9' or 'K').
type NationalID struct {
	Body  string
	Check byte
}

// String renders the canonical textual form NNNNNNNN-D.
func (n NationalID) String() string {
	return n.Body + "-" + string(n.Check)
}

// ParseNationalID accepts any of "12345678-5", "12.345.678-5", "123456785":
// it strips dots and hyphens, splits the body from the trailing check
// character, and verifies the check digit via the standard modulo-11
// scheme (digits multiplied by the repeating weight sequence 2..7 from the
// rightmost digit, summed, reduced mod 11; 0 maps to '0', 1 maps to 'K',
// otherwise the digit is 11-r).
func ParseNationalID(s string) (NationalID, error) {
	stripped := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)
	stripped = strings.ToUpper(strings.TrimSpace(stripped))

	if len(stripped) < 2 {
		return NationalID{}, ErrMalformed
	}

	body := stripped[:len(stripped)-1]
	check := stripped[len(stripped)-1]

	if body == "" || len(body) > 8 {
		return NationalID{}, ErrMalformed
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return NationalID{}, ErrMalformed
		}
	}
	if !(check >= '0' && check <= '9') && check != 'K' {
		return NationalID{}, ErrMalformed
	}

	computed := checkDigit(body)
	if computed != check {
		return NationalID{}, ErrBadCheck
	}

	return NationalID{Body: body, Check: computed}, nil
}

// checkDigit computes the modulo-11 check character for a numeric body.
func checkDigit(body string) byte {
	weights := []int{2, 3, 4, 5, 6, 7}
	sum := 0
	wi := 0
	for i := len(body) - 1; i >= 0; i-- {
		digit := int(body[i] - '0')
		sum += digit * weights[wi%len(weights)]
		wi++
	}

	r := 11 - (sum % 11)
	switch r {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + r)
	}
}
