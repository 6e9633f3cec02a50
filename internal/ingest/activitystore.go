package ingest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

// MemActivityStore is an in-memory ActivityStore, mutex-guarded with
// clone-on-read, in the shape of the teacher's share.Store.
type MemActivityStore struct {
	mu     sync.RWMutex
	byID   map[string]*Activity
	byName map[string]*Activity // name+"|"+year -> Activity
}

// NewMemActivityStore builds an empty MemActivityStore.
func NewMemActivityStore() *MemActivityStore {
	return &MemActivityStore{
		byID:   make(map[string]*Activity),
		byName: make(map[string]*Activity),
	}
}

func (s *MemActivityStore) GetByNameYear(_ context.Context, name string, year int) (*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byName[nameYearKey(name, year)]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (s *MemActivityStore) GetByID(_ context.Context, id string) (*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (s *MemActivityStore) Create(_ context.Context, a *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *a
	s.byID[a.ID] = &clone
	s.byName[nameYearKey(a.Name, a.Year)] = &clone
	return nil
}

func nameYearKey(name string, year int) string {
	return name + "|" + strconv.Itoa(year)
}

// PGActivityStore is the production ActivityStore, grounded on the
// teacher's ActivityRepository query shape.
type PGActivityStore struct {
	pool *pgxpool.Pool
}

// NewPGActivityStore builds a PGActivityStore over pool.
func NewPGActivityStore(pool *pgxpool.Pool) *PGActivityStore {
	return &PGActivityStore{pool: pool}
}

const activityColumns = `id, name, strategic_line, year, audience`

func (s *PGActivityStore) scanOne(ctx context.Context, query string, args ...any) (*Activity, error) {
	var a Activity
	err := s.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.Name, &a.StrategicLine, &a.Year, &a.Audience)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindPersistFailed, "activity lookup", err)
	}
	return &a, nil
}

func (s *PGActivityStore) GetByNameYear(ctx context.Context, name string, year int) (*Activity, error) {
	return s.scanOne(ctx, `SELECT `+activityColumns+` FROM activities WHERE name = $1 AND year = $2`, name, year)
}

func (s *PGActivityStore) GetByID(ctx context.Context, id string) (*Activity, error) {
	return s.scanOne(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
}

func (s *PGActivityStore) Create(ctx context.Context, a *Activity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activities (id, name, strategic_line, year, audience)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Name, a.StrategicLine, a.Year, a.Audience)
	if err != nil {
		return coreerr.Wrap(coreerr.KindPersistFailed, "activity create", err)
	}
	return nil
}
