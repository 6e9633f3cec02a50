package normalize

import (
	"errors"
	"strings"
)

// ErrEmailMalformed maps to rowvalidate's ErrorKind email.malformed.
var ErrEmailMalformed = errors.New("email malformed")

// ErrPhoneMalformed maps to rowvalidate's ErrorKind phone.malformed.
var ErrPhoneMalformed = errors.New("phone malformed")

// NormalizeEmail folds the address and checks it has the shallow structural
// shape of an email (a non-empty local part before the last '@', a '.'
// somewhere inside the domain part after it, no whitespace). It does not attempt full RFC 5322 validation — the Validator
// only needs to catch the obviously unusable rows and classify the rest by
// domain suffix.
func NormalizeEmail(s string) (string, error) {
	folded := Fold(s)
	if folded == "" || strings.ContainsAny(folded, " \t") {
		return "", ErrEmailMalformed
	}

	at := strings.LastIndexByte(folded, '@')
	if at <= 0 || at == len(folded)-1 {
		return "", ErrEmailMalformed
	}
	local, domain := folded[:at], folded[at+1:]
	if local == "" || !strings.Contains(domain, ".") {
		return "", ErrEmailMalformed
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrEmailMalformed
	}

	return folded, nil
}

// EmailDomainSuffix returns the domain part of an already-normalized email,
// for matching against config's InstitutionEmailSuffixes.
func EmailDomainSuffix(normalizedEmail string) string {
	at := strings.LastIndexByte(normalizedEmail, '@')
	if at < 0 {
		return ""
	}
	return normalizedEmail[at+1:]
}

// IsInstitutionalEmail reports whether the normalized email's domain ends in
// one of the configured institutional suffixes (matched case-insensitively,
// suffix-wise, e.g. "alumnos.uni.edu" matches suffix "uni.edu").
func IsInstitutionalEmail(normalizedEmail string, suffixes []string) bool {
	domain := EmailDomainSuffix(normalizedEmail)
	if domain == "" {
		return false
	}
	for _, suffix := range suffixes {
		folded := Fold(suffix)
		if domain == folded || strings.HasSuffix(domain, "."+folded) {
			return true
		}
	}
	return false
}

// NormalizePhone strips spaces, dashes, dots, and parentheses, keeps a
// single leading '+' if present, and requires at least 8 remaining digits.
func NormalizePhone(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	plus := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')', r == '+':
			continue
		default:
			return "", ErrPhoneMalformed
		}
	}

	digits := b.String()
	if len(digits) < 8 {
		return "", ErrPhoneMalformed
	}

	if plus {
		return "+" + digits, nil
	}
	return digits, nil
}
