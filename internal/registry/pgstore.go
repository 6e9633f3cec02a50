package registry

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

// PGStore is the production Store, persisting Persons via pgxpool in the
// query shape of the teacher's ActivityRepository.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore builds a PGStore over pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Person, error) {
	return s.scanOne(ctx, `
		SELECT id, raw_full_name, normalized_full_name, canonical_full_name,
		       name_history, national_id, email, career, phone, audience,
		       created_at, merged_into_id
		FROM persons WHERE id = $1`, id)
}

func (s *PGStore) GetByNationalID(ctx context.Context, nationalID string) (*Person, error) {
	return s.scanOne(ctx, `
		SELECT id, raw_full_name, normalized_full_name, canonical_full_name,
		       name_history, national_id, email, career, phone, audience,
		       created_at, merged_into_id
		FROM persons WHERE national_id = $1 AND merged_into_id IS NULL`, nationalID)
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*Person, error) {
	return s.scanOne(ctx, `
		SELECT id, raw_full_name, normalized_full_name, canonical_full_name,
		       name_history, national_id, email, career, phone, audience,
		       created_at, merged_into_id
		FROM persons WHERE email = $1 AND merged_into_id IS NULL`, email)
}

// ListActive returns every non-tombstone Person. Used by the Duplicate
// Detector's blocked scan, so it is read with no lock held — callers must
// tolerate a person created or merged concurrently with the scan being
// reflected in the next run rather than this one.
func (s *PGStore) ListActive(ctx context.Context) ([]*Person, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, raw_full_name, normalized_full_name, canonical_full_name,
		       name_history, national_id, email, career, phone, audience,
		       created_at, merged_into_id
		FROM persons WHERE merged_into_id IS NULL`)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "person list_active query", err)
	}
	defer rows.Close()

	var out []*Person
	for rows.Next() {
		var p Person
		var nationalID, email, career, phone, mergedInto *string
		if err := rows.Scan(
			&p.ID, &p.RawFullName, &p.NormalizedFullName, &p.CanonicalFullName,
			&p.NameHistory, &nationalID, &email, &career, &phone, &p.Audience,
			&p.CreatedAt, &mergedInto,
		); err != nil {
			return nil, coreerr.Wrap(coreerr.KindPersistFailed, "person list_active scan", err)
		}
		p.NationalID = derefOrEmpty(nationalID)
		p.Email = derefOrEmpty(email)
		p.Career = derefOrEmpty(career)
		p.Phone = derefOrEmpty(phone)
		p.MergedIntoID = derefOrEmpty(mergedInto)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PGStore) scanOne(ctx context.Context, query string, arg string) (*Person, error) {
	var p Person
	var nationalID, email, career, phone, mergedInto *string

	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.RawFullName, &p.NormalizedFullName, &p.CanonicalFullName,
		&p.NameHistory, &nationalID, &email, &career, &phone, &p.Audience,
		&p.CreatedAt, &mergedInto,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "person lookup", err)
	}

	p.NationalID = derefOrEmpty(nationalID)
	p.Email = derefOrEmpty(email)
	p.Career = derefOrEmpty(career)
	p.Phone = derefOrEmpty(phone)
	p.MergedIntoID = derefOrEmpty(mergedInto)
	return &p, nil
}

func (s *PGStore) Create(ctx context.Context, p *Person) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persons (id, raw_full_name, normalized_full_name, canonical_full_name,
		                      name_history, national_id, email, career, phone, audience, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`,
		p.ID, p.RawFullName, p.NormalizedFullName, p.CanonicalFullName,
		p.NameHistory, nilIfEmpty(p.NationalID), nilIfEmpty(p.Email),
		nilIfEmpty(p.Career), nilIfEmpty(p.Phone), p.Audience)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "person create", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, p *Person) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE persons SET
			raw_full_name = $2, normalized_full_name = $3, canonical_full_name = $4,
			name_history = $5, national_id = $6, email = $7, career = $8, phone = $9,
			merged_into_id = $10
		WHERE id = $1`,
		p.ID, p.RawFullName, p.NormalizedFullName, p.CanonicalFullName,
		p.NameHistory, nilIfEmpty(p.NationalID), nilIfEmpty(p.Email),
		nilIfEmpty(p.Career), nilIfEmpty(p.Phone), nilIfEmpty(p.MergedIntoID))
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "person update", err)
	}
	return nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
