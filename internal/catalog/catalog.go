// Package catalog implements the C4 Catalog: controlled vocabularies
// (strategic_line, activity_name, career) plus their reconciliation
// mappings, persisted via pgxpool the way the teacher's
// internal/repositories package persists activity logs, with an
// LRU-cached resolve path carrying an explicit invalidation hook the way
// pantyukhov's CanonicalSessionGenerator invalidates its identifier cache
// on a stale hit.
package catalog

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/normalize"
)

// Kind is one of the three controlled vocabularies this domain tracks.
type Kind string

const (
	KindStrategicLine Kind = "strategic_line"
	KindActivityName  Kind = "activity_name"
	KindCareer        Kind = "career"
)

// Entry is a single controlled-vocabulary value.
type Entry struct {
	ID     string
	Kind   Kind
	Name   string
	Active bool
}

// resolveCacheSize bounds the resolve-path LRU; entries are small
// (kind+fold -> id), so a generous size costs little memory.
const resolveCacheSize = 4096

// cacheKey is the LRU key: kind plus the folded name being resolved.
type cacheKey struct {
	kind   Kind
	folded string
}

// Catalog is safe for concurrent use; all mutation goes through the pool,
// and the resolve cache is internally synchronized by golang-lru.
type Catalog struct {
	pool  *pgxpool.Pool
	cache *lru.Cache[cacheKey, string]
}

// New constructs a Catalog backed by pool, with its own bounded resolve
// cache.
func New(pool *pgxpool.Pool) (*Catalog, error) {
	cache, err := lru.New[cacheKey, string](resolveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: create resolve cache: %w", err)
	}
	return &Catalog{pool: pool, cache: cache}, nil
}

// List returns every entry of the given kind, active and inactive.
func (c *Catalog) List(ctx context.Context, kind Kind) ([]Entry, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, kind, name, active FROM catalog_entries
		WHERE kind = $1
		ORDER BY name`, kind)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "catalog list query", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.Active); err != nil {
			return nil, coreerr.Wrap(coreerr.KindPersistFailed, "catalog list scan", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Create inserts a new entry, case-insensitive-unique on its folded name
// within the kind. Returns the existing entry's id (not an error) if an
// entry with the same fold already exists, since Create is meant to be
// safe to call repeatedly from an operator workflow.
func (c *Catalog) Create(ctx context.Context, kind Kind, name string) (Entry, error) {
	folded := normalize.Fold(name)
	if folded == "" {
		return Entry{}, coreerr.New(coreerr.KindInvariantViolation, "catalog entry name must not be empty")
	}

	var existing Entry
	err := c.pool.QueryRow(ctx, `
		SELECT id, kind, name, active FROM catalog_entries
		WHERE kind = $1 AND fold(name) = $2`, kind, folded,
	).Scan(&existing.ID, &existing.Kind, &existing.Name, &existing.Active)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, coreerr.Wrap(coreerr.KindPersistFailed, "catalog create lookup", err)
	}

	var created Entry
	err = c.pool.QueryRow(ctx, `
		INSERT INTO catalog_entries (kind, name, active)
		VALUES ($1, $2, true)
		RETURNING id, kind, name, active`, kind, name,
	).Scan(&created.ID, &created.Kind, &created.Name, &created.Active)
	if err != nil {
		return Entry{}, coreerr.Wrap(coreerr.KindPersistFailed, "catalog create insert", err)
	}

	return created, nil
}

// Deactivate hides an entry without deleting it, and invalidates any cached
// resolution that pointed at it — a stale cache entry would otherwise keep
// resolving to an id that List/Resolve should now treat as unknown.
func (c *Catalog) Deactivate(ctx context.Context, id string) error {
	_, err := c.pool.Exec(ctx, `UPDATE catalog_entries SET active = false WHERE id = $1`, id)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "catalog deactivate", err)
	}
	c.invalidateByTargetID(id)
	return nil
}

// Resolve maps (kind, name) to a canonical entry id using, in order: (1) an
// exact fold match against active entries, (2) a ReconciliationMapping
// lookup, (3) "", false for unknown. A successful resolution via either
// path is cached; Deactivate and MapUnknown invalidate what they can affect.
func (c *Catalog) Resolve(ctx context.Context, kind Kind, name string) (id string, ok bool, err error) {
	folded := normalize.Fold(name)
	key := cacheKey{kind: kind, folded: folded}

	if cached, found := c.cache.Get(key); found {
		return cached, true, nil
	}

	var entryID string
	dbErr := c.pool.QueryRow(ctx, `
		SELECT id FROM catalog_entries
		WHERE kind = $1 AND active = true AND fold(name) = $2`, kind, folded,
	).Scan(&entryID)
	if dbErr == nil {
		c.cache.Add(key, entryID)
		return entryID, true, nil
	}
	if !errors.Is(dbErr, pgx.ErrNoRows) {
		return "", false, coreerr.Wrap(coreerr.KindPersistFailed, "catalog resolve entry lookup", dbErr)
	}

	dbErr = c.pool.QueryRow(ctx, `
		SELECT canonical_id FROM reconciliation_mappings
		WHERE kind = $1 AND unknown_value = $2`, kind, folded,
	).Scan(&entryID)
	if dbErr == nil {
		c.cache.Add(key, entryID)
		return entryID, true, nil
	}
	if !errors.Is(dbErr, pgx.ErrNoRows) {
		return "", false, coreerr.Wrap(coreerr.KindPersistFailed, "catalog resolve mapping lookup", dbErr)
	}

	return "", false, nil
}

// MapUnknown upserts a reconciliation mapping so subsequent calls to
// Resolve(kind, unknown) resolve silently to targetID, and invalidates the
// stale cache entry for this exact (kind, unknown) pair if one exists.
func (c *Catalog) MapUnknown(ctx context.Context, kind Kind, unknown, targetID string) error {
	folded := normalize.Fold(unknown)
	_, err := c.pool.Exec(ctx, `
		INSERT INTO reconciliation_mappings (kind, unknown_value, canonical_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, unknown_value) DO UPDATE SET canonical_id = EXCLUDED.canonical_id`,
		kind, folded, targetID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "catalog map_unknown upsert", err)
	}

	c.cache.Remove(cacheKey{kind: kind, folded: folded})
	return nil
}

// invalidateByTargetID drops every cache entry currently resolving to id.
// The LRU cache has no index by value, so this is a linear scan over its
// (bounded) key set — acceptable since Deactivate is an infrequent,
// operator-driven call, not a hot ingest-path operation.
func (c *Catalog) invalidateByTargetID(id string) {
	for _, key := range c.cache.Keys() {
		if cached, ok := c.cache.Peek(key); ok && cached == id {
			c.cache.Remove(key)
		}
	}
}
