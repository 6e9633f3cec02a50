package review

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yourorg/eventregistry/internal/coreerr"
)

// MemStore is an in-memory Store, mutex-guarded with clone-on-read, in the
// shape of the teacher's share.Store.
type MemStore struct {
	mu     sync.Mutex
	byID   map[string]*Item
	byPair map[[2]string]string // (personA, personB) -> item id
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		byID:   make(map[string]*Item),
		byPair: make(map[[2]string]string),
	}
}

func (s *MemStore) Create(_ context.Context, item *Item) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]string{item.PersonA, item.PersonB}
	if id, exists := s.byPair[key]; exists {
		return cloneItem(s.byID[id]), nil
	}

	item.ID = uuid.NewString()
	s.byID[item.ID] = cloneItem(item)
	s.byPair[key] = item.ID
	return cloneItem(item), nil
}

func (s *MemStore) GetByID(_ context.Context, id string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItem(s.byID[id]), nil
}

func (s *MemStore) GetByPair(_ context.Context, personA, personB string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPair[[2]string{personA, personB}]
	if !ok {
		return nil, nil
	}
	return cloneItem(s.byID[id]), nil
}

func (s *MemStore) Update(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.byID[item.ID]
	if !exists {
		return coreerr.New(coreerr.KindInvariantViolation, "update of unknown review item: "+item.ID)
	}
	if stored.Version != item.Version {
		return coreerr.New(coreerr.KindVersionConflict, "review item was modified concurrently: "+item.ID)
	}

	item.Version++
	s.byID[item.ID] = cloneItem(item)
	return nil
}

func (s *MemStore) List(_ context.Context, filter ListFilter) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Item
	for _, item := range s.byID {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Audience != "" && item.Audience != filter.Audience {
			continue
		}
		if item.Similarity < filter.MinSimilarity {
			continue
		}
		if filter.MaxSimilarity > 0 && item.Similarity > filter.MaxSimilarity {
			continue
		}
		matched = append(matched, cloneItem(item))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Similarity != matched[j].Similarity {
			return matched[i].Similarity > matched[j].Similarity
		}
		return matched[i].ID < matched[j].ID
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], nil
}

func cloneItem(item *Item) *Item {
	if item == nil {
		return nil
	}
	clone := *item
	if item.DecidedAt != nil {
		decidedAt := *item.DecidedAt
		clone.DecidedAt = &decidedAt
	}
	return &clone
}
