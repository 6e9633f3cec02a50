// Package registrations implements the C6 Registration Store: an
// append-only record of (person, activity, source, attended?) tuples with
// idempotent insert and audited attendance toggles. Grounded on the
// teacher's ActivityRepository for the pgx query shape, and on
// share.Store's mutex + clone-on-read shape for the in-memory test double.
package registrations

import (
	"context"
	"time"
)

// Source identifies how a Registration entered the system.
type Source string

const (
	SourceCSV    Source = "csv"
	SourceWalkIn Source = "walk_in"
)

// Attendance is a Registration's attendance tri-state.
type Attendance string

const (
	AttendanceUnknown Attendance = "unknown"
	AttendanceYes     Attendance = "yes"
	AttendanceNo      Attendance = "no"
)

// Registration is exactly one row per (PersonID, ActivityID) per spec.md §3.
type Registration struct {
	ID               string
	PersonID         string
	ActivityID       string
	Source           Source
	Attended         Attendance
	CreatedAt        time.Time
	ValidationErrors []string          // ErrorKind tags from rowvalidate, as strings
	Extras           map[string]string // unmapped CSV columns, verbatim
}

// Store is the persistence seam for Registrations.
type Store interface {
	// GetByPersonAndActivity returns the existing row, or nil if none.
	GetByPersonAndActivity(ctx context.Context, personID, activityID string) (*Registration, error)
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	Update(ctx context.Context, r *Registration) error
	Delete(ctx context.Context, id string) error
	ListByPerson(ctx context.Context, personID string) ([]*Registration, error)
	ListByActivity(ctx context.Context, activityID string) ([]*Registration, error)
	// ListAll returns every Registration, for the Indicators Engine's
	// dimensional aggregations.
	ListAll(ctx context.Context) ([]*Registration, error)
}

// AuditSink records a toggle_attendance edit for the audit log.
type AuditSink interface {
	RecordAttendanceToggle(ctx context.Context, registrationID string, prior, next Attendance, actor string) error
}
