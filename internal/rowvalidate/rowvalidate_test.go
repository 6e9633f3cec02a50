package rowvalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/eventregistry/internal/schemafit"
)

func fixtureMapping() schemafit.Mapping {
	return schemafit.Mapping{
		0: schemafit.FieldFullName,
		1: schemafit.FieldNationalID,
		2: schemafit.FieldInstitutionalEmail,
		3: schemafit.FieldProgramOrArea,
		4: schemafit.FieldPhone,
	}
}

func TestValidateRow_AllValid(t *testing.T) {
	v := New([]string{"uni.edu"})
	row := []string{"Maria Perez", "12345678-5", "maria.perez@alumnos.uni.edu", "Ingenieria Civil", "+56 9 1234 5678"}

	got := v.ValidateRow(row, fixtureMapping())

	assert.Empty(t, got.Errors)
	assert.Equal(t, "maria perez", got.FullName)
	assert.Equal(t, "12345678-5", got.NationalID)
	assert.Equal(t, "maria.perez@alumnos.uni.edu", got.InstitutionalEmail)
	assert.Equal(t, "Ingenieria Civil", got.ProgramOrArea, "program_or_area has no canonicalization rule, so it is stored as the operator entered it")
	assert.Equal(t, "+56912345678", got.Phone)
}

func TestValidateRow_EachFieldTaggedIndependently(t *testing.T) {
	cases := []struct {
		name string
		row  []string
		want ErrorKind
	}{
		{"missing name", []string{"", "12345678-5", "a@uni.edu", "Prog", "12345678"}, KindNameMissing},
		{"single token name", []string{"Maria", "12345678-5", "a@uni.edu", "Prog", "12345678"}, KindNameSingleToken},
		{"malformed national id", []string{"Maria Perez", "abc", "a@uni.edu", "Prog", "12345678"}, KindNIDMalformed},
		{"bad check digit", []string{"Maria Perez", "12345678-9", "a@uni.edu", "Prog", "12345678"}, KindNIDBadCheck},
		{"malformed email", []string{"Maria Perez", "12345678-5", "not-an-email", "Prog", "12345678"}, KindEmailMalformed},
		{"non institutional email", []string{"Maria Perez", "12345678-5", "a@gmail.com", "Prog", "12345678"}, KindEmailNonInstitutional},
		{"missing program", []string{"Maria Perez", "12345678-5", "a@uni.edu", "", "12345678"}, KindProgramMissing},
		{"malformed phone", []string{"Maria Perez", "12345678-5", "a@uni.edu", "Prog", "123"}, KindPhoneMalformed},
	}

	v := New([]string{"uni.edu"})
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := v.ValidateRow(c.row, fixtureMapping())
			assert.Contains(t, got.Errors, c.want)
		})
	}
}

func TestValidateRow_MultipleErrorsAccumulate(t *testing.T) {
	v := New([]string{"uni.edu"})
	row := []string{"", "bad", "bad-email", "", "1"}

	got := v.ValidateRow(row, fixtureMapping())

	assert.Len(t, got.Errors, 5)
	assert.Contains(t, got.Errors, KindNameMissing)
	assert.Contains(t, got.Errors, KindNIDMalformed)
	assert.Contains(t, got.Errors, KindEmailMalformed)
	assert.Contains(t, got.Errors, KindProgramMissing)
	assert.Contains(t, got.Errors, KindPhoneMalformed)
}
