package registrations

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

// PGStore is the production Store, grounded on the teacher's
// ActivityRepository query shape.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore builds a PGStore over pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const selectColumns = `id, person_id, activity_id, source, attended, created_at, validation_errors, extras`

func (s *PGStore) scanOne(ctx context.Context, query string, args ...any) (*Registration, error) {
	var r Registration
	var extrasJSON []byte

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&r.ID, &r.PersonID, &r.ActivityID, &r.Source, &r.Attended,
		&r.CreatedAt, &r.ValidationErrors, &extrasJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration lookup", err)
	}
	if len(extrasJSON) > 0 {
		if err := json.Unmarshal(extrasJSON, &r.Extras); err != nil {
			return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration extras decode", err)
		}
	}
	return &r, nil
}

func (s *PGStore) GetByPersonAndActivity(ctx context.Context, personID, activityID string) (*Registration, error) {
	return s.scanOne(ctx, `SELECT `+selectColumns+` FROM registrations WHERE person_id = $1 AND activity_id = $2`, personID, activityID)
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Registration, error) {
	return s.scanOne(ctx, `SELECT `+selectColumns+` FROM registrations WHERE id = $1`, id)
}

func (s *PGStore) Create(ctx context.Context, r *Registration) error {
	extrasJSON, err := json.Marshal(r.Extras)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInvariantViolation, "registration extras encode", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO registrations (id, person_id, activity_id, source, attended, created_at, validation_errors, extras)
		VALUES ($1, $2, $3, $4, $5, now(), $6, $7)`,
		r.ID, r.PersonID, r.ActivityID, r.Source, r.Attended, r.ValidationErrors, extrasJSON)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "registration create", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, r *Registration) error {
	extrasJSON, err := json.Marshal(r.Extras)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInvariantViolation, "registration extras encode", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE registrations SET person_id = $2, activity_id = $3, attended = $4,
			validation_errors = $5, extras = $6
		WHERE id = $1`,
		r.ID, r.PersonID, r.ActivityID, r.Attended, r.ValidationErrors, extrasJSON)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "registration update", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "registration delete", err)
	}
	return nil
}

func (s *PGStore) ListByPerson(ctx context.Context, personID string) ([]*Registration, error) {
	return s.listBy(ctx, `SELECT `+selectColumns+` FROM registrations WHERE person_id = $1`, personID)
}

func (s *PGStore) ListByActivity(ctx context.Context, activityID string) ([]*Registration, error) {
	return s.listBy(ctx, `SELECT `+selectColumns+` FROM registrations WHERE activity_id = $1`, activityID)
}

// ListAll returns every Registration, for the Indicators Engine's
// dimensional aggregations. Read with no snapshot isolation beyond
// Postgres's own read-committed default — callers treat concurrent inserts
// the same way any other read-your-writes-eventually query would.
func (s *PGStore) ListAll(ctx context.Context) ([]*Registration, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM registrations`)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration list_all", err)
	}
	defer rows.Close()

	var out []*Registration
	for rows.Next() {
		var r Registration
		var extrasJSON []byte
		if err := rows.Scan(&r.ID, &r.PersonID, &r.ActivityID, &r.Source, &r.Attended,
			&r.CreatedAt, &r.ValidationErrors, &extrasJSON); err != nil {
			return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration list_all scan", err)
		}
		if len(extrasJSON) > 0 {
			if err := json.Unmarshal(extrasJSON, &r.Extras); err != nil {
				return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration extras decode", err)
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PGStore) listBy(ctx context.Context, query, arg string) ([]*Registration, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration list", err)
	}
	defer rows.Close()

	var out []*Registration
	for rows.Next() {
		var r Registration
		var extrasJSON []byte
		if err := rows.Scan(&r.ID, &r.PersonID, &r.ActivityID, &r.Source, &r.Attended,
			&r.CreatedAt, &r.ValidationErrors, &extrasJSON); err != nil {
			return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration list scan", err)
		}
		if len(extrasJSON) > 0 {
			if err := json.Unmarshal(extrasJSON, &r.Extras); err != nil {
				return nil, coreerr.Wrap(coreerr.KindPersistFailed, "registration extras decode", err)
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
