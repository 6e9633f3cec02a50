// Package schemafit implements the C2 Schema Fitter: mapping raw CSV header
// labels to the five fixed canonical fields using a weighted alias table
// plus a fuzzy fallback over normalize.Similarity. Grounded on the teacher's
// internal/converter header_resolver.go, fallback_mapper.go, and
// mapping_quality.go, generalized from the teacher's open-ended
// CanonicalField set down to this domain's five required fields.
package schemafit

// CanonicalField is one of the five fixed target fields a raw header can be
// mapped to, or Ignore.
type CanonicalField string

const (
	FieldFullName           CanonicalField = "full_name"
	FieldNationalID         CanonicalField = "national_id"
	FieldInstitutionalEmail CanonicalField = "institutional_email"
	FieldProgramOrArea      CanonicalField = "program_or_area"
	FieldPhone              CanonicalField = "phone"
	FieldIgnore             CanonicalField = "ignore"
)

// RequiredFields lists the canonical fields in their fixed required order.
// Position in this slice is the "required-rank" spec.md's tie-break rule
// refers to: earlier wins ties.
var RequiredFields = []CanonicalField{
	FieldFullName,
	FieldNationalID,
	FieldInstitutionalEmail,
	FieldProgramOrArea,
	FieldPhone,
}

// requiredRank returns the tie-break rank of a canonical field; lower wins.
// Fields outside RequiredFields (there are none besides Ignore) rank last.
func requiredRank(f CanonicalField) int {
	for i, rf := range RequiredFields {
		if rf == f {
			return i
		}
	}
	return len(RequiredFields)
}
