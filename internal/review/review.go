// Package review implements the C9 Review Queue: a durable queue of
// identity-merge adjudication items with a pending -> {accepted, rejected,
// skipped} state machine. Accepting an item invokes registry.Registry.Merge;
// the other two transitions never touch the Registry. Grounded on the
// teacher's internal/services status-transition style (guard the current
// state, then persist) and on share.Store's mutex-guarded shape for the
// in-memory test double.
package review

import (
	"context"
	"time"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/registry"
)

// Status is one of ReviewItem's terminal-or-not states, per spec.md §4.9's
// state machine diagram.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusSkipped  Status = "skipped"
)

// IsTerminal reports whether s is one of the state machine's terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusSkipped
}

// Item is a single candidate-duplicate pair awaiting adjudication. PersonA
// and PersonB are stored as an unordered pair (A < B lexicographically) so
// GetByPair lookups are a single equality check regardless of which order the
// Duplicate Detector encountered the pair in.
type Item struct {
	ID         string
	PersonA    string
	PersonB    string
	Similarity int
	Audience   registry.Audience
	Status     Status
	Version    int // optimistic concurrency token, bumped on every Update
	DecidedAt  *time.Time
	DecidedBy  string
	CreatedAt  time.Time
	// CanonicalPersonID and CanonicalName are set only once Status ==
	// StatusAccepted: spec.md §3's ReviewItem invariant that "an accepted
	// item carries the survivor id (canonical_person_id) and the name to
	// stamp into canonical_full_name." Both are "" for pending/rejected/
	// skipped items.
	CanonicalPersonID string
	CanonicalName     string
}

// OtherPerson returns the pair member that isn't canonicalPersonID, and
// false if canonicalPersonID isn't part of the pair at all.
func (it *Item) OtherPerson(canonicalPersonID string) (string, bool) {
	switch canonicalPersonID {
	case it.PersonA:
		return it.PersonB, true
	case it.PersonB:
		return it.PersonA, true
	default:
		return "", false
	}
}

// Pair returns (lesser, greater) so callers always address an unordered
// pair the same way regardless of discovery order.
func Pair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ListFilter narrows Store.List per spec.md §4.9: "filters on status,
// audience, and similarity range, with stable pagination by (similarity
// desc, id asc)".
type ListFilter struct {
	Status        Status            // "" means any
	Audience      registry.Audience // "" means any
	MinSimilarity int
	MaxSimilarity int // 0 means no upper bound
	Offset        int
	Limit         int
}

// Store is the persistence seam for Items.
type Store interface {
	// Create inserts item, unless an item already exists for item's
	// unordered pair (in which case the existing item is returned,
	// unmodified — this is what makes the Duplicate Detector idempotent).
	Create(ctx context.Context, item *Item) (*Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	// GetByPair returns the existing item for the unordered (personA,
	// personB) pair, or nil if none exists yet.
	GetByPair(ctx context.Context, personA, personB string) (*Item, error)
	// Update persists item if item.Version matches the stored version,
	// atomically incrementing it; returns coreerr.KindVersionConflict
	// otherwise.
	Update(ctx context.Context, item *Item) error
	List(ctx context.Context, filter ListFilter) ([]*Item, error)
}

// Queue implements accept/reject/skip over a Store plus a Registry for the
// merge accept triggers.
type Queue struct {
	store Store
	reg   *registry.Registry
}

// New builds a Queue.
func New(store Store, reg *registry.Registry) *Queue {
	return &Queue{store: store, reg: reg}
}

// Enqueue implements the Duplicate Detector's emit step: idempotent insert
// by unordered pair. Returns the existing item without modification if one
// is already on file (pending or terminal) for this pair.
func (q *Queue) Enqueue(ctx context.Context, personA, personB string, similarity int, audience registry.Audience) (*Item, error) {
	lo, hi := Pair(personA, personB)
	existing, err := q.store.GetByPair(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	item := &Item{
		PersonA:    lo,
		PersonB:    hi,
		Similarity: similarity,
		Audience:   audience,
		Status:     StatusPending,
		Version:    1,
	}
	return q.store.Create(ctx, item)
}

// Accept implements spec.md §4.9's accept transition. Re-applying accept to
// an already-terminal item is a no-op that returns the stored item's
// current state — the idempotent-at-the-transport-boundary guarantee the
// spec calls for — rather than an error, so a retried request after a
// successful-but-unacknowledged first attempt doesn't surface as a failure.
func (q *Queue) Accept(ctx context.Context, itemID, canonicalPersonID, canonicalName, decidedBy string) (*Item, error) {
	item, err := q.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, coreerr.New(coreerr.KindInvariantViolation, "accept of unknown review item: "+itemID)
	}
	if item.Status.IsTerminal() {
		return item, nil
	}

	loser, ok := item.OtherPerson(canonicalPersonID)
	if !ok {
		return nil, coreerr.New(coreerr.KindCanonicalNotInPair, "canonical_person_id is not part of the review item's pair")
	}

	if err := q.reg.Merge(ctx, canonicalPersonID, loser, canonicalName); err != nil {
		return nil, err
	}

	item.CanonicalPersonID = canonicalPersonID
	item.CanonicalName = canonicalName
	return q.transition(ctx, item, StatusAccepted, decidedBy)
}

// Reject implements the reject transition: terminal, no Registry call.
func (q *Queue) Reject(ctx context.Context, itemID, decidedBy string) (*Item, error) {
	return q.decideWithoutMerge(ctx, itemID, StatusRejected, decidedBy)
}

// Skip implements the skip transition: terminal, no Registry call. A later
// Duplicate Detector run does not reopen a skipped pair: Enqueue returns any
// existing item for the pair, terminal or not, unchanged.
func (q *Queue) Skip(ctx context.Context, itemID, decidedBy string) (*Item, error) {
	return q.decideWithoutMerge(ctx, itemID, StatusSkipped, decidedBy)
}

func (q *Queue) decideWithoutMerge(ctx context.Context, itemID string, next Status, decidedBy string) (*Item, error) {
	item, err := q.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, coreerr.New(coreerr.KindInvariantViolation, "decide on unknown review item: "+itemID)
	}
	if item.Status.IsTerminal() {
		return item, nil
	}
	return q.transition(ctx, item, next, decidedBy)
}

// transition applies next to item and persists it with optimistic
// concurrency; a version conflict bubbles coreerr.KindVersionConflict so the
// caller can re-read and retry per spec.md §5's "loser observes a conflict
// and re-reads".
func (q *Queue) transition(ctx context.Context, item *Item, next Status, decidedBy string) (*Item, error) {
	now := time.Now().UTC()
	item.Status = next
	item.DecidedAt = &now
	item.DecidedBy = decidedBy

	if err := q.store.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns items matching filter, delegating pagination and ordering to
// Store (pgx: ORDER BY similarity DESC, id ASC LIMIT/OFFSET; MemStore: an
// equivalent in-process sort).
func (q *Queue) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	return q.store.List(ctx, filter)
}
