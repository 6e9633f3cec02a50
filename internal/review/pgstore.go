package review

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

// PGStore is the production Store, grounded on the teacher's
// ActivityRepository query shape. Update enforces optimistic concurrency by
// including version in its WHERE clause and checking rows affected.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore builds a PGStore over pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const reviewColumns = `id, person_a, person_b, similarity, audience, status, version, decided_at, decided_by, created_at, canonical_person_id, canonical_name`

func (s *PGStore) scanOne(ctx context.Context, query string, args ...any) (*Item, error) {
	var item Item
	var decidedBy, canonicalPersonID, canonicalName *string
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&item.ID, &item.PersonA, &item.PersonB, &item.Similarity, &item.Audience,
		&item.Status, &item.Version, &item.DecidedAt, &decidedBy, &item.CreatedAt,
		&canonicalPersonID, &canonicalName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "review item lookup", err)
	}
	if decidedBy != nil {
		item.DecidedBy = *decidedBy
	}
	if canonicalPersonID != nil {
		item.CanonicalPersonID = *canonicalPersonID
	}
	if canonicalName != nil {
		item.CanonicalName = *canonicalName
	}
	return &item, nil
}

func (s *PGStore) Create(ctx context.Context, item *Item) (*Item, error) {
	if existing, err := s.GetByPair(ctx, item.PersonA, item.PersonB); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	created, err := s.scanOne(ctx, `
		INSERT INTO review_items (person_a, person_b, similarity, audience, status, version, created_at)
		VALUES ($1, $2, $3, $4, $5, 1, now())
		RETURNING `+reviewColumns,
		item.PersonA, item.PersonB, item.Similarity, item.Audience, StatusPending)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Item, error) {
	return s.scanOne(ctx, `SELECT `+reviewColumns+` FROM review_items WHERE id = $1`, id)
}

func (s *PGStore) GetByPair(ctx context.Context, personA, personB string) (*Item, error) {
	return s.scanOne(ctx, `SELECT `+reviewColumns+` FROM review_items WHERE person_a = $1 AND person_b = $2`, personA, personB)
}

// Update applies item's mutable fields, guarded by item.Version: the WHERE
// clause only matches the row still carrying that version, and a zero
// RowsAffected means someone else updated it first.
func (s *PGStore) Update(ctx context.Context, item *Item) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE review_items SET status = $3, decided_at = $4, decided_by = $5,
			canonical_person_id = $6, canonical_name = $7, version = version + 1
		WHERE id = $1 AND version = $2`,
		item.ID, item.Version, item.Status, item.DecidedAt, item.DecidedBy,
		nilIfEmpty(item.CanonicalPersonID), nilIfEmpty(item.CanonicalName))
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "review item update", err)
	}
	if tag.RowsAffected() == 0 {
		return coreerr.New(coreerr.KindVersionConflict, "review item was modified concurrently: "+item.ID)
	}
	item.Version++
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List applies filter and returns results ordered (similarity DESC, id ASC)
// per spec.md §4.9's stable pagination contract.
func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_items WHERE similarity >= $1`
	args := []any{filter.MinSimilarity}

	if filter.MaxSimilarity > 0 {
		args = append(args, filter.MaxSimilarity)
		query += ` AND similarity <= $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Audience != "" {
		args = append(args, filter.Audience)
		query += ` AND audience = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY similarity DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "review item list", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		var item Item
		var decidedBy, canonicalPersonID, canonicalName *string
		if err := rows.Scan(
			&item.ID, &item.PersonA, &item.PersonB, &item.Similarity, &item.Audience,
			&item.Status, &item.Version, &item.DecidedAt, &decidedBy, &item.CreatedAt,
			&canonicalPersonID, &canonicalName,
		); err != nil {
			return nil, coreerr.Wrap(coreerr.KindPersistFailed, "review item list scan", err)
		}
		if decidedBy != nil {
			item.DecidedBy = *decidedBy
		}
		if canonicalPersonID != nil {
			item.CanonicalPersonID = *canonicalPersonID
		}
		if canonicalName != nil {
			item.CanonicalName = *canonicalName
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}
