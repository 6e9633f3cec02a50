package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/keylock"
)

// Registry implements Reconcile, attribute merge, and Merge over a Store.
// Merge is serialized via keylock on the lesser of (survivor_id, loser_id)
// (spec.md §4.5), so merge(A, B) and merge(B, A) can never interleave
// regardless of which id a caller names as the survivor, while merges over
// disjoint pairs still run concurrently.
type Registry struct {
	store         Store
	registrations RegistrationMover
	audit         AuditSink
	mergeLocks    *keylock.Locker
}

// New builds a Registry. audit may be nil, in which case merges are not
// recorded (useful for tests that don't exercise the audit trail).
func New(store Store, registrations RegistrationMover, audit AuditSink) *Registry {
	return &Registry{
		store:         store,
		registrations: registrations,
		audit:         audit,
		mergeLocks:    keylock.New(),
	}
}

// ReconcileInput is the normalized attribute set a validated CSV row (or a
// walk-in form) contributes to identity resolution.
type ReconcileInput struct {
	RawFullName        string
	NormalizedFullName string
	NationalID         string // "" if absent/invalid
	Email              string // "" if absent/invalid
	Career             string
	Phone              string
	Audience           Audience
}

// Reconcile implements spec.md §4.5's pseudo-ordered lookup: national_id,
// then email, then create. A found, non-tombstone Person has its missing
// attributes filled in per MergeAttrs before its id is returned. The second
// return value reports whether this call minted a new Person, letting
// callers (e.g. the ingest report's new_persons/existing_persons split)
// distinguish the two paths without a second lookup.
func (r *Registry) Reconcile(ctx context.Context, in ReconcileInput) (string, bool, error) {
	if in.NationalID != "" {
		person, err := r.store.GetByNationalID(ctx, in.NationalID)
		if err != nil {
			return "", false, err
		}
		if person != nil {
			resolved, err := r.resolveTombstoneChain(ctx, person)
			if err != nil {
				return "", false, err
			}
			return resolved.ID, false, r.applyAttrs(ctx, resolved, in)
		}
	}

	if in.Email != "" {
		person, err := r.store.GetByEmail(ctx, in.Email)
		if err != nil {
			return "", false, err
		}
		if person != nil {
			resolved, err := r.resolveTombstoneChain(ctx, person)
			if err != nil {
				return "", false, err
			}
			return resolved.ID, false, r.applyAttrs(ctx, resolved, in)
		}
	}

	person := &Person{
		ID:                 uuid.NewString(),
		RawFullName:        in.RawFullName,
		NormalizedFullName: in.NormalizedFullName,
		CanonicalFullName:  in.NormalizedFullName,
		NationalID:         in.NationalID,
		Email:              in.Email,
		Career:             in.Career,
		Phone:              in.Phone,
		Audience:           in.Audience,
	}
	if err := r.store.Create(ctx, person); err != nil {
		return "", false, err
	}
	return person.ID, true, nil
}

// ReconcilePreview implements spec.md §6's registry.reconcile_preview: the
// same national_id-then-email lookup Reconcile uses, but read-only — no
// Person is created and no attribute is filled in. Returns "" when neither
// lookup matches, letting a walk-in form show the operator whether a row
// would join an existing Person before anything is committed.
func (r *Registry) ReconcilePreview(ctx context.Context, in ReconcileInput) (string, error) {
	if in.NationalID != "" {
		person, err := r.store.GetByNationalID(ctx, in.NationalID)
		if err != nil {
			return "", err
		}
		if person != nil {
			resolved, err := r.resolveTombstoneChain(ctx, person)
			if err != nil {
				return "", err
			}
			return resolved.ID, nil
		}
	}

	if in.Email != "" {
		person, err := r.store.GetByEmail(ctx, in.Email)
		if err != nil {
			return "", err
		}
		if person != nil {
			resolved, err := r.resolveTombstoneChain(ctx, person)
			if err != nil {
				return "", err
			}
			return resolved.ID, nil
		}
	}

	return "", nil
}

// resolveTombstoneChain follows MergedIntoID to the non-tombstone survivor,
// path-compressing every intermediate hop it walks through — the same
// shape as UnionFind.findWithoutLock, applied to Store reads/writes instead
// of an in-memory parent map.
func (r *Registry) resolveTombstoneChain(ctx context.Context, p *Person) (*Person, error) {
	if !p.IsTombstone() {
		return p, nil
	}

	visited := []string{p.ID}
	current := p
	for current.IsTombstone() {
		next, err := r.store.GetByID(ctx, current.MergedIntoID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, coreerr.New(coreerr.KindInvariantViolation, "tombstone points at a missing person: "+current.MergedIntoID)
		}
		visited = append(visited, next.ID)
		current = next
	}

	// Path compression: every tombstone visited now points directly at the
	// survivor, so the next lookup is O(1) instead of re-walking the chain.
	for _, id := range visited[:len(visited)-1] {
		if id == current.ID {
			continue
		}
		stale, err := r.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if stale.MergedIntoID != current.ID {
			stale.MergedIntoID = current.ID
			if err := r.store.Update(ctx, stale); err != nil {
				return nil, err
			}
		}
	}

	return current, nil
}

// applyAttrs runs the non-destructive merge-attrs rule (spec.md §4.5) and
// persists the result if anything changed.
func (r *Registry) applyAttrs(ctx context.Context, existing *Person, in ReconcileInput) error {
	changed := mergeAttrsNonDestructive(existing, in)
	if !changed {
		return nil
	}
	return r.store.Update(ctx, existing)
}

// mergeAttrsNonDestructive fills empty attributes on existing from in,
// never overwriting a non-empty value, and appends to NameHistory when the
// raw name differs. Returns whether existing was mutated.
func mergeAttrsNonDestructive(existing *Person, in ReconcileInput) bool {
	changed := false

	if existing.NationalID == "" && in.NationalID != "" {
		existing.NationalID = in.NationalID
		changed = true
	}
	if existing.Email == "" && in.Email != "" {
		existing.Email = in.Email
		changed = true
	}
	if existing.Career == "" && in.Career != "" {
		existing.Career = in.Career
		changed = true
	}
	if existing.Phone == "" && in.Phone != "" {
		existing.Phone = in.Phone
		changed = true
	}
	if in.RawFullName != "" && in.RawFullName != existing.RawFullName {
		existing.NameHistory = append(existing.NameHistory, in.RawFullName)
		changed = true
	}

	return changed
}

// Merge implements spec.md §4.5's Merge(survivor_id, loser_id,
// canonical_name). Serialized on the lesser of (survivor_id, loser_id).
// The steps (registration moves, survivor update, loser tombstoning, audit)
// are separate Store and RegistrationMover calls without a shared
// transaction: if one fails, Merge returns its error and the steps before
// it stay applied.
func (r *Registry) Merge(ctx context.Context, survivorID, loserID, canonicalName string) error {
	if survivorID == loserID {
		return coreerr.New(coreerr.KindInvariantViolation, "merge survivor and loser must differ")
	}

	unlock := r.mergeLocks.Lock(minID(survivorID, loserID))
	defer unlock()

	survivor, err := r.store.GetByID(ctx, survivorID)
	if err != nil {
		return err
	}
	loser, err := r.store.GetByID(ctx, loserID)
	if err != nil {
		return err
	}
	if survivor == nil || loser == nil {
		return coreerr.New(coreerr.KindInvariantViolation, "merge referenced a missing person")
	}
	if survivor.IsTombstone() || loser.IsTombstone() {
		return coreerr.New(coreerr.KindMergeConflict, "merge survivor or loser is already a tombstone")
	}

	survivorBefore := cloneForAudit(survivor)
	loserBefore := cloneForAudit(loser)

	regs, err := r.registrations.ListByPerson(ctx, loserID)
	if err != nil {
		return err
	}
	survivorRegs, err := r.registrations.ListByPerson(ctx, survivorID)
	if err != nil {
		return err
	}
	survivorActivities := make(map[string]bool, len(survivorRegs))
	for _, reg := range survivorRegs {
		survivorActivities[reg.ActivityID] = true
	}

	for _, reg := range regs {
		if survivorActivities[reg.ActivityID] {
			if err := r.registrations.Drop(ctx, reg.ID); err != nil {
				return err
			}
			continue
		}
		if err := r.registrations.Repoint(ctx, reg.ID, survivorID); err != nil {
			return err
		}
	}

	mergeAttrsNonDestructive(survivor, ReconcileInput{
		RawFullName: loser.RawFullName,
		NationalID:  loser.NationalID,
		Email:       loser.Email,
		Career:      loser.Career,
		Phone:       loser.Phone,
	})
	survivor.CanonicalFullName = canonicalName

	if err := r.store.Update(ctx, survivor); err != nil {
		return err
	}

	loser.MergedIntoID = survivorID
	loser.NationalID = ""
	loser.Email = ""
	loser.Career = ""
	loser.Phone = ""
	loser.CanonicalFullName = ""
	if err := r.store.Update(ctx, loser); err != nil {
		return err
	}

	if r.audit != nil {
		return r.audit.RecordMerge(ctx, survivorBefore, survivor, loserBefore, loser)
	}
	return nil
}

// minID returns the lexicographically lesser of a and b, so a merge lock key
// is the same regardless of which id the caller passes as survivor vs loser.
func minID(a, b string) string {
	if a < b {
		return a
	}
	return b
}

func cloneForAudit(p *Person) *Person {
	clone := *p
	clone.NameHistory = append([]string(nil), p.NameHistory...)
	return &clone
}
