package schemafit

import (
	"github.com/yourorg/eventregistry/internal/normalize"
)

// fuzzyThreshold is the minimum similarity score (0..100) for a fuzzy
// proposal to be accepted, per spec.md §4.2 step 2.
const fuzzyThreshold = 85

// Mapping is the Fitter's output: raw header index -> canonical field, for
// every header that was mapped (unmapped headers are simply absent).
type Mapping map[int]CanonicalField

// Proposal is the per-header detail behind a Mapping entry, returned
// alongside it so a caller (or a human operator) can see why a header was
// or wasn't mapped before overriding.
type Proposal struct {
	HeaderIndex int
	Header      string
	Field       CanonicalField // FieldIgnore if nothing qualified
	Confidence  int            // 0..100
}

// Fitter resolves raw CSV headers to canonical fields. It holds no
// per-request state; Fit is a pure function of (headers, its alias table).
type Fitter struct {
	aliases *foldedAliasTable
}

// New builds a Fitter from an alias table, typically config.Options.AliasTable
// merged on top of DefaultAliasTable.
func New(table AliasTable) *Fitter {
	return &Fitter{aliases: newFoldedAliasTable(table)}
}

// Fit implements spec.md §4.2's algorithm: exact fold match locks a mapping
// at confidence 100; remaining headers are scored by fuzzy similarity
// against every alias of every still-unmapped field, and the highest-scoring
// field at or above fuzzyThreshold wins, with required-rank breaking ties.
// The caller may freely override the returned Mapping before ingest — the
// Fitter itself never rejects an incomplete mapping; that is the
// Orchestrator's job.
func (f *Fitter) Fit(headers []string) ([]Proposal, Mapping) {
	proposals := make([]Proposal, len(headers))
	mapping := make(Mapping)
	mappedFields := make(map[CanonicalField]bool)

	foldedHeaders := make([]string, len(headers))
	for i, h := range headers {
		foldedHeaders[i] = normalize.Fold(h)
	}

	// Pass 1: exact fold match, first occurrence per field wins.
	remaining := make([]int, 0, len(headers))
	for i, folded := range foldedHeaders {
		if field, ok := f.aliases.exact[folded]; ok && !mappedFields[field] {
			mapping[i] = field
			mappedFields[field] = true
			proposals[i] = Proposal{HeaderIndex: i, Header: headers[i], Field: field, Confidence: 100}
			continue
		}
		remaining = append(remaining, i)
	}

	// Pass 2: fuzzy fallback for every header not locked in pass 1.
	for _, i := range remaining {
		bestField := FieldIgnore
		bestScore := 0

		for _, field := range RequiredFields {
			if mappedFields[field] {
				continue
			}
			for _, alias := range f.aliases.byField[field] {
				score := normalize.Similarity(foldedHeaders[i], alias)
				if score > bestScore ||
					(score == bestScore && score > 0 && requiredRank(field) < requiredRank(bestField)) {
					bestScore = score
					bestField = field
				}
			}
		}

		if bestScore >= fuzzyThreshold && bestField != FieldIgnore {
			mapping[i] = bestField
			mappedFields[bestField] = true
			proposals[i] = Proposal{HeaderIndex: i, Header: headers[i], Field: bestField, Confidence: bestScore}
		} else {
			proposals[i] = Proposal{HeaderIndex: i, Header: headers[i], Field: FieldIgnore, Confidence: 0}
		}
	}

	return proposals, mapping
}

// MissingRequired returns the required fields absent from mapping, in
// required order — used by the Orchestrator to reject an incomplete
// mapping (spec.md §4.2 step 4: the Fitter itself never rejects).
func MissingRequired(mapping Mapping) []CanonicalField {
	present := make(map[CanonicalField]bool, len(mapping))
	for _, field := range mapping {
		present[field] = true
	}

	var missing []CanonicalField
	for _, field := range RequiredFields {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

// FieldValue extracts a mapped field's raw value from a row, mirroring the
// teacher's HeaderResolver.GetFieldValue.
func FieldValue(row []string, mapping Mapping, field CanonicalField) string {
	for idx, f := range mapping {
		if f == field && idx < len(row) {
			return row[idx]
		}
	}
	return ""
}
