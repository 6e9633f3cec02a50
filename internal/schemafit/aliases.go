package schemafit

import "github.com/yourorg/eventregistry/internal/normalize"

// AliasTable maps a canonical field to the set of accepted raw header labels
// for it. Labels are folded (normalize.Fold) once when New builds the
// Fitter (via newFoldedAliasTable) so exact-match lookups at Fit time are a
// single map probe, the same shape as the teacher's HeaderResolver.headerMap.
type AliasTable map[CanonicalField][]string

// DefaultAliasTable enumerates the Spanish-language header variants this
// domain's CSVs are expected to use, pre-fold comparable. Mirrors the
// teacher's per-template HeaderSynonyms map, scoped to the five fixed
// fields instead of an open schema.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		FieldFullName: {
			"nombre completo", "nombre y apellido", "nombre y apellidos",
			"nombres y apellidos", "alumno", "estudiante", "participante",
			"nombre del participante", "full name", "nombre",
		},
		FieldNationalID: {
			"rut", "r.u.t.", "cedula", "cédula", "numero de documento",
			"número de documento", "documento de identidad", "dni",
			"national id", "id nacional",
		},
		FieldInstitutionalEmail: {
			"correo institucional", "correo electronico institucional",
			"correo electrónico institucional", "email institucional",
			"correo", "correo electronico", "correo electrónico", "email",
			"e-mail", "institutional email",
		},
		FieldProgramOrArea: {
			"programa", "carrera", "area", "área", "programa o area",
			"programa o área", "unidad academica", "unidad académica",
			"facultad", "program", "area of study",
		},
		FieldPhone: {
			"telefono", "teléfono", "celular", "numero de telefono",
			"número de teléfono", "fono", "phone", "phone number",
		},
	}
}

// foldedAliasTable is an AliasTable with every label pre-folded, plus the
// reverse exact-match index used for confidence-100 locking.
type foldedAliasTable struct {
	byField map[CanonicalField][]string
	exact   map[string]CanonicalField
}

func newFoldedAliasTable(table AliasTable) *foldedAliasTable {
	f := &foldedAliasTable{
		byField: make(map[CanonicalField][]string, len(table)),
		exact:   make(map[string]CanonicalField),
	}

	// Iterate RequiredFields first so that, when two fields share an
	// identical alias (a misconfiguration), the earlier-ranked field wins
	// the exact-match slot — consistent with the fuzzy path's tie-break.
	for _, field := range RequiredFields {
		for _, alias := range table[field] {
			folded := normalize.Fold(alias)
			if folded == "" {
				continue
			}
			f.byField[field] = append(f.byField[field], folded)
			if _, exists := f.exact[folded]; !exists {
				f.exact[folded] = field
			}
		}
	}

	return f
}
