// Package auditlog implements the audit_log writer SPEC_FULL.md's
// AuditRecord expansion describes: a before/after JSONB snapshot per merge
// and attendance toggle, keyed by entity_kind/entity_id/action. Grounded on
// the teacher's repository query shape (a single INSERT per call, no
// batching) and on pgx's jsonb marshaling idiom already used throughout
// internal/registrations and internal/registry.
package auditlog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/registrations"
	"github.com/yourorg/eventregistry/internal/registry"
)

// PGSink writes audit_log rows. It satisfies both registry.AuditSink and
// registrations.AuditSink, the two entity kinds spec.md's merge and
// attendance-toggle operations audit.
type PGSink struct {
	pool *pgxpool.Pool
}

// New builds a PGSink over pool.
func New(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

var (
	_ registry.AuditSink      = (*PGSink)(nil)
	_ registrations.AuditSink = (*PGSink)(nil)
)

func (s *PGSink) insert(ctx context.Context, entityKind, entityID, action, actor string, before, after any) error {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInvariantViolation, "audit before encode", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInvariantViolation, "audit after encode", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, entity_kind, entity_id, action, actor, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		uuid.NewString(), entityKind, entityID, action, actor, beforeJSON, afterJSON)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "audit insert", err)
	}
	return nil
}

// RecordMerge implements registry.AuditSink for a person merge: one row
// per side of the merge, since survivor and loser each have their own
// before/after snapshot and entity id.
func (s *PGSink) RecordMerge(ctx context.Context, survivorBefore, survivorAfter, loserBefore, loserAfter *registry.Person) error {
	if err := s.insert(ctx, "person", survivorAfter.ID, "merge_survivor", "system", survivorBefore, survivorAfter); err != nil {
		return err
	}
	return s.insert(ctx, "person", loserAfter.ID, "merge_loser", "system", loserBefore, loserAfter)
}

// RecordAttendanceToggle implements registrations.AuditSink.
func (s *PGSink) RecordAttendanceToggle(ctx context.Context, registrationID string, prior, next registrations.Attendance, actor string) error {
	return s.insert(ctx, "registration", registrationID, "toggle_attendance", actor,
		map[string]string{"attended": string(prior)}, map[string]string{"attended": string(next)})
}
