package registrations

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/registry"
)

// RegistrationStore is the C6 component: idempotent insert, audited
// attendance toggles (single and bulk), and the registry.RegistrationMover
// adaptation Merge needs.
type RegistrationStore struct {
	store Store
	audit AuditSink
}

// New builds a RegistrationStore. audit may be nil to skip audit recording.
func New(store Store, audit AuditSink) *RegistrationStore {
	return &RegistrationStore{store: store, audit: audit}
}

// Insert implements idempotent insert by (person_id, activity_id): a
// duplicate returns the existing row rather than erroring or duplicating.
// The second return value reports whether the (person_id, activity_id)
// pair already had a Registration on file — spec.md §8.3's
// within_upload_duplicates counts exactly this signal, not a batch-local
// "have I seen this pair yet" set, so that re-ingesting an entire CSV a
// second time also reports every row as a duplicate.
func (rs *RegistrationStore) Insert(ctx context.Context, personID, activityID string, source Source, extras map[string]string, validationErrors []string) (*Registration, bool, error) {
	existing, err := rs.store.GetByPersonAndActivity(ctx, personID, activityID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	reg := &Registration{
		ID:               uuid.NewString(),
		PersonID:         personID,
		ActivityID:       activityID,
		Source:           source,
		Attended:         AttendanceUnknown,
		Extras:           extras,
		ValidationErrors: validationErrors,
	}
	if err := rs.store.Create(ctx, reg); err != nil {
		return nil, false, err
	}
	return reg, false, nil
}

// ToggleAttendance applies the new value, then records the prior value and
// actor in the audit log (when an audit sink is configured).
func (rs *RegistrationStore) ToggleAttendance(ctx context.Context, registrationID string, newValue Attendance, actor string) (*Registration, error) {
	reg, err := rs.store.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, coreerr.New(coreerr.KindInvariantViolation, "toggle_attendance of unknown registration: "+registrationID)
	}

	prior := reg.Attended
	reg.Attended = newValue
	if err := rs.store.Update(ctx, reg); err != nil {
		return nil, err
	}

	if rs.audit != nil {
		if err := rs.audit.RecordAttendanceToggle(ctx, registrationID, prior, newValue, actor); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BulkToggleAttendance applies newValue to every Registration for activityID
// through ToggleAttendance, one Registration at a time. The toggles do not
// share a transaction: if one fails, the call returns that error and the
// toggles applied before it stay applied.
func (rs *RegistrationStore) BulkToggleAttendance(ctx context.Context, activityID string, newValue Attendance, actor string) ([]*Registration, error) {
	regs, err := rs.store.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	updated := make([]*Registration, 0, len(regs))
	for _, reg := range regs {
		toggled, err := rs.ToggleAttendance(ctx, reg.ID, newValue, actor)
		if err != nil {
			return nil, err
		}
		updated = append(updated, toggled)
	}
	return updated, nil
}

// ListByPerson, Repoint and Drop adapt RegistrationStore to
// registry.RegistrationMover. This package imports registry (for
// RegistrationRef), while registry imports nothing from here, so the
// dependency runs one way and the Registry's caller wires the two together
// through the interface.

// RegistrationRef is an alias for registry.RegistrationRef, not a distinct
// type: RegistrationStore's ListByPerson/Repoint/Drop below satisfy
// registry.RegistrationMover directly, so the two packages must agree on
// the exact same type, not merely an identically-shaped one.
type RegistrationRef = registry.RegistrationRef

func (rs *RegistrationStore) ListByPerson(ctx context.Context, personID string) ([]RegistrationRef, error) {
	regs, err := rs.store.ListByPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	out := make([]RegistrationRef, len(regs))
	for i, r := range regs {
		out[i] = RegistrationRef{ID: r.ID, ActivityID: r.ActivityID}
	}
	return out, nil
}

func (rs *RegistrationStore) Repoint(ctx context.Context, registrationID, newPersonID string) error {
	reg, err := rs.store.GetByID(ctx, registrationID)
	if err != nil {
		return err
	}
	if reg == nil {
		return coreerr.New(coreerr.KindInvariantViolation, "repoint of unknown registration: "+registrationID)
	}
	reg.PersonID = newPersonID
	return rs.store.Update(ctx, reg)
}

func (rs *RegistrationStore) Drop(ctx context.Context, registrationID string) error {
	reg, err := rs.store.GetByID(ctx, registrationID)
	if err != nil {
		return err
	}
	if reg == nil {
		return nil
	}
	return rs.store.Delete(ctx, registrationID)
}
