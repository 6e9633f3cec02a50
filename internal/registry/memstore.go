package registry

import (
	"context"
	"sync"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

// MemStore is an in-memory Store, guarded by a single RWMutex with
// clone-on-read, in the shape of the teacher's share.Store. It backs this
// package's own tests and can stand in for pgstore.go in any caller that
// doesn't need durability (e.g. a dry-run CLI invocation).
type MemStore struct {
	mu           sync.RWMutex
	byID         map[string]*Person
	byNationalID map[string]string // nationalID -> person id, survivors only
	byEmail      map[string]string // email -> person id, survivors only
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		byID:         make(map[string]*Person),
		byNationalID: make(map[string]string),
		byEmail:      make(map[string]string),
	}
}

func (s *MemStore) GetByID(_ context.Context, id string) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return clonePerson(p), nil
}

func (s *MemStore) GetByNationalID(_ context.Context, nationalID string) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNationalID[nationalID]
	if !ok {
		return nil, nil
	}
	return clonePerson(s.byID[id]), nil
}

func (s *MemStore) GetByEmail(_ context.Context, email string) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return clonePerson(s.byID[id]), nil
}

func (s *MemStore) Create(_ context.Context, p *Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; exists {
		return coreerr.New(coreerr.KindInvariantViolation, "person id already exists: "+p.ID)
	}
	if p.NationalID != "" {
		if _, exists := s.byNationalID[p.NationalID]; exists {
			return coreerr.New(coreerr.KindInvariantViolation, "national_id not unique: "+p.NationalID)
		}
	}

	s.byID[p.ID] = clonePerson(p)
	s.reindexLocked(p)
	return nil
}

func (s *MemStore) Update(_ context.Context, p *Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; !exists {
		return coreerr.New(coreerr.KindInvariantViolation, "update of unknown person: "+p.ID)
	}

	// Drop this person's stale index entries before reindexing, since an
	// attribute (or a tombstoning) may have changed since Create.
	for nid, id := range s.byNationalID {
		if id == p.ID {
			delete(s.byNationalID, nid)
		}
	}
	for email, id := range s.byEmail {
		if id == p.ID {
			delete(s.byEmail, email)
		}
	}

	s.byID[p.ID] = clonePerson(p)
	s.reindexLocked(p)
	return nil
}

func (s *MemStore) ListActive(_ context.Context) ([]*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Person, 0, len(s.byID))
	for _, p := range s.byID {
		if p.IsTombstone() {
			continue
		}
		out = append(out, clonePerson(p))
	}
	return out, nil
}

// reindexLocked adds p's current national_id/email to the lookup indexes,
// skipping tombstones — lookups must never resolve to a merged-away row.
func (s *MemStore) reindexLocked(p *Person) {
	if p.IsTombstone() {
		return
	}
	if p.NationalID != "" {
		s.byNationalID[p.NationalID] = p.ID
	}
	if p.Email != "" {
		s.byEmail[p.Email] = p.ID
	}
}

func clonePerson(p *Person) *Person {
	if p == nil {
		return nil
	}
	clone := *p
	clone.NameHistory = append([]string(nil), p.NameHistory...)
	return &clone
}
