// Package registry implements the C5 Person Registry: identity resolution,
// non-destructive attribute merge, and person merge with tombstone chains.
// The tombstone-chain resolution is the persisted analogue of pantyukhov's
// UnionFind.Find — path compression on read, survivor-as-root on merge —
// applied to a Postgres-backed tree instead of an in-process map.
package registry

import (
	"context"
	"time"
)

// Audience is carried through from the row's originating activity; the
// Registry itself does not interpret it beyond storing it on new Persons.
type Audience string

// Person is the canonical identity record. See spec.md §3 for the
// invariants MergedIntoID, NationalID and CanonicalFullName must uphold;
// Registry enforces them, Store is a dumb persistence layer.
type Person struct {
	ID                 string
	RawFullName        string
	NormalizedFullName string
	CanonicalFullName  string
	NameHistory        []string // prior RawFullName values, for audit only
	NationalID         string   // "" if unknown
	Email              string   // "" if unknown
	Career             string   // "" if unknown
	Phone              string   // "" if unknown
	Audience           Audience
	CreatedAt          time.Time
	MergedIntoID       string // "" unless this row is a tombstone
}

// IsTombstone reports whether this Person has been merged into another.
func (p *Person) IsTombstone() bool { return p.MergedIntoID != "" }

// Store is the persistence seam the Registry depends on. A pgx-backed
// implementation lives in pgstore.go; an in-memory implementation used by
// the package's own tests lives in memstore.go, in the mutex-guarded,
// clone-on-read shape of the teacher's share.Store.
type Store interface {
	GetByID(ctx context.Context, id string) (*Person, error)
	GetByNationalID(ctx context.Context, nationalID string) (*Person, error)
	GetByEmail(ctx context.Context, email string) (*Person, error)
	Create(ctx context.Context, p *Person) error
	Update(ctx context.Context, p *Person) error
	// ListActive returns every non-tombstone Person, for the Duplicate
	// Detector's blocked scan and the Indicators Engine's aggregations.
	ListActive(ctx context.Context) ([]*Person, error)
}

// RegistrationMover is the narrow slice of the Registration Store the
// Registry needs during a merge: enumerate a person's registrations and
// either re-point or drop each one. Defined here (rather than imported from
// internal/registrations) to avoid a import cycle — the registrations
// package implements this interface against its own store.
type RegistrationMover interface {
	ListByPerson(ctx context.Context, personID string) ([]RegistrationRef, error)
	Repoint(ctx context.Context, registrationID, newPersonID string) error
	Drop(ctx context.Context, registrationID string) error
}

// RegistrationRef is the minimal shape Merge needs to decide repoint-or-drop.
type RegistrationRef struct {
	ID         string
	ActivityID string
}

// AuditSink records a before/after snapshot of a merge or attribute edit.
// Implemented by the audit-log writer described in SPEC_FULL.md's
// AuditRecord expansion; a no-op implementation satisfies tests that don't
// care about the trail.
type AuditSink interface {
	RecordMerge(ctx context.Context, survivorBefore, survivorAfter, loserBefore, loserAfter *Person) error
}
