// Package rowvalidate implements the C3 Validator: per-row evaluation of a
// schemafit.Mapping'd row against the five canonical fields' rules. A row
// with errors is still accepted into persistence — the tagged ErrorKind set
// is carried alongside it, never used to abort the batch. Grounded on the
// teacher's internal/converter/validator.go (per-row rule evaluation
// producing a Warning list rather than a hard failure).
package rowvalidate

import (
	"strings"

	"github.com/yourorg/eventregistry/internal/normalize"
	"github.com/yourorg/eventregistry/internal/schemafit"
)

// ErrorKind tags a single row-level validation failure, per spec.md §4.3.
type ErrorKind string

const (
	KindNameMissing           ErrorKind = "name.missing"
	KindNameSingleToken       ErrorKind = "name.single_token"
	KindNIDMalformed          ErrorKind = "nid.malformed"
	KindNIDBadCheck           ErrorKind = "nid.bad_check"
	KindEmailMalformed        ErrorKind = "email.malformed"
	KindEmailNonInstitutional ErrorKind = "email.non_institutional"
	KindProgramMissing        ErrorKind = "program.missing"
	KindPhoneMalformed        ErrorKind = "phone.malformed"
)

// Row is the normalized output of validating a single mapped input row. The
// five canonical attributes are set to their normalized form even when an
// ErrorKind was raised for them, so the caller can still persist whatever
// could be salvaged (e.g. a non-institutional but otherwise well-formed
// email is still stored, just tagged).
type Row struct {
	FullName           string
	NationalID         string // canonical "NNNNNNNN-D" form, "" if unparseable
	InstitutionalEmail string
	ProgramOrArea      string
	Phone              string
	Errors             []ErrorKind
}

// Validator evaluates mapped rows against the configured institution email
// suffix list — the only piece of Validator behavior that config.Options
// owns per spec.md §4.3's "Catalog-owned option" note.
type Validator struct {
	InstitutionEmailSuffixes []string
}

// New builds a Validator from the configured institutional suffixes.
func New(institutionEmailSuffixes []string) *Validator {
	return &Validator{InstitutionEmailSuffixes: institutionEmailSuffixes}
}

// ValidateRow runs every field rule against a single mapped raw row and
// returns the normalized Row plus its (possibly empty) ErrorKind set. It
// never returns an error itself — validation failures are data, not
// exceptions.
func (v *Validator) ValidateRow(row []string, mapping schemafit.Mapping) Row {
	out := Row{}

	out.FullName, out.Errors = v.validateFullName(row, mapping, out.Errors)
	out.NationalID, out.Errors = v.validateNationalID(row, mapping, out.Errors)
	out.InstitutionalEmail, out.Errors = v.validateEmail(row, mapping, out.Errors)
	out.ProgramOrArea, out.Errors = v.validateProgram(row, mapping, out.Errors)
	out.Phone, out.Errors = v.validatePhone(row, mapping, out.Errors)

	return out
}

func (v *Validator) validateFullName(row []string, mapping schemafit.Mapping, errs []ErrorKind) (string, []ErrorKind) {
	raw := schemafit.FieldValue(row, mapping, schemafit.FieldFullName)
	normalized := normalize.NormalizeName(raw)

	if normalized == "" {
		return "", append(errs, KindNameMissing)
	}
	tokenCount := 1
	for _, r := range normalized {
		if r == ' ' {
			tokenCount++
		}
	}
	if tokenCount < 2 {
		return normalized, append(errs, KindNameSingleToken)
	}
	return normalized, errs
}

func (v *Validator) validateNationalID(row []string, mapping schemafit.Mapping, errs []ErrorKind) (string, []ErrorKind) {
	raw := schemafit.FieldValue(row, mapping, schemafit.FieldNationalID)

	parsed, err := normalize.ParseNationalID(raw)
	if err == nil {
		return parsed.String(), errs
	}
	if err == normalize.ErrBadCheck {
		return "", append(errs, KindNIDBadCheck)
	}
	return "", append(errs, KindNIDMalformed)
}

func (v *Validator) validateEmail(row []string, mapping schemafit.Mapping, errs []ErrorKind) (string, []ErrorKind) {
	raw := schemafit.FieldValue(row, mapping, schemafit.FieldInstitutionalEmail)

	normalized, err := normalize.NormalizeEmail(raw)
	if err != nil {
		return "", append(errs, KindEmailMalformed)
	}
	if !normalize.IsInstitutionalEmail(normalized, v.InstitutionEmailSuffixes) {
		return normalized, append(errs, KindEmailNonInstitutional)
	}
	return normalized, errs
}

// validateProgram enforces the "non-empty" rule via normalize.NormalizeName
// folding, but returns the operator's raw value rather than the folded one:
// program_or_area has no canonicalization rule in the spec, so normalizing
// it would silently lose the operator's original casing/punctuation.
func (v *Validator) validateProgram(row []string, mapping schemafit.Mapping, errs []ErrorKind) (string, []ErrorKind) {
	raw := schemafit.FieldValue(row, mapping, schemafit.FieldProgramOrArea)

	if normalize.NormalizeName(raw) == "" {
		return "", append(errs, KindProgramMissing)
	}
	return strings.TrimSpace(raw), errs
}

func (v *Validator) validatePhone(row []string, mapping schemafit.Mapping, errs []ErrorKind) (string, []ErrorKind) {
	raw := schemafit.FieldValue(row, mapping, schemafit.FieldPhone)

	normalized, err := normalize.NormalizePhone(raw)
	if err != nil {
		return "", append(errs, KindPhoneMalformed)
	}
	return normalized, errs
}
