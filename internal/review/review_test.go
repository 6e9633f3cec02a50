package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/registry"
)

// noopRegistrationMover satisfies registry.RegistrationMover with no
// registrations to move — sufficient for exercising Accept's merge call
// when neither person in the pair has any Registrations yet.
type noopRegistrationMover struct{}

func (noopRegistrationMover) ListByPerson(context.Context, string) ([]registry.RegistrationRef, error) {
	return nil, nil
}
func (noopRegistrationMover) Repoint(context.Context, string, string) error { return nil }
func (noopRegistrationMover) Drop(context.Context, string) error            { return nil }

func newTestQueue(t *testing.T) (*Queue, *registry.MemStore) {
	t.Helper()
	regStore := registry.NewMemStore()
	reg := registry.New(regStore, noopRegistrationMover{}, nil)
	return New(NewMemStore(), reg), regStore
}

func seedPerson(t *testing.T, store *registry.MemStore, id, nationalID string) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &registry.Person{
		ID: id, RawFullName: id, NormalizedFullName: id, CanonicalFullName: id,
		NationalID: nationalID,
	}))
}

func TestEnqueue_IsIdempotentRegardlessOfPairOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "person-a", "person-b", 92, "students")
	require.NoError(t, err)

	second, err := q.Enqueue(ctx, "person-b", "person-a", 92, "students")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestAccept_InvokesMergeAndMarksTerminal(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	seedPerson(t, store, "survivor", "12345678-5")
	seedPerson(t, store, "loser", "")

	item, err := q.Enqueue(ctx, "survivor", "loser", 95, "students")
	require.NoError(t, err)

	decided, err := q.Accept(ctx, item.ID, "survivor", "Canonical Name", "operator-1")
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, decided.Status)
	assert.Equal(t, "operator-1", decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, "survivor", decided.CanonicalPersonID)
	assert.Equal(t, "Canonical Name", decided.CanonicalName)

	loser, err := store.GetByID(ctx, "loser")
	require.NoError(t, err)
	assert.True(t, loser.IsTombstone())
	assert.Equal(t, "survivor", loser.MergedIntoID)
}

func TestAccept_RejectsCanonicalIDOutsidePair(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	seedPerson(t, store, "person-a", "12345678-5")
	seedPerson(t, store, "person-b", "")

	item, err := q.Enqueue(ctx, "person-a", "person-b", 90, "staff")
	require.NoError(t, err)

	_, err = q.Accept(ctx, item.ID, "someone-else", "X", "operator-1")
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.KindCanonicalNotInPair))
}

func TestAccept_ReappliedToTerminalItemIsANoOp(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	seedPerson(t, store, "survivor", "12345678-5")
	seedPerson(t, store, "loser", "")

	item, err := q.Enqueue(ctx, "survivor", "loser", 95, "students")
	require.NoError(t, err)

	first, err := q.Accept(ctx, item.ID, "survivor", "Canonical Name", "operator-1")
	require.NoError(t, err)

	second, err := q.Accept(ctx, item.ID, "survivor", "Different Name", "operator-2")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, "operator-1", second.DecidedBy, "re-applying accept to a terminal item must not re-run the decision")
}

func TestReject_IsTerminalWithoutTouchingRegistry(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	seedPerson(t, store, "person-a", "12345678-5")
	seedPerson(t, store, "person-b", "")

	item, err := q.Enqueue(ctx, "person-a", "person-b", 90, "staff")
	require.NoError(t, err)

	decided, err := q.Reject(ctx, item.ID, "operator-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decided.Status)

	personB, err := store.GetByID(ctx, "person-b")
	require.NoError(t, err)
	assert.False(t, personB.IsTombstone())
}

func TestUpdate_DetectsConcurrentVersionConflict(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	item, err := store.Create(ctx, &Item{PersonA: "a", PersonB: "b", Similarity: 90, Status: StatusPending, Version: 1})
	require.NoError(t, err)

	stale := *item
	require.NoError(t, store.Update(ctx, item)) // bumps the stored version to 2

	err = store.Update(ctx, &stale)
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.KindVersionConflict))
}

func TestList_OrdersBySimilarityDescThenIDAsc(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	_, _ = store.Create(ctx, &Item{PersonA: "a", PersonB: "b", Similarity: 88, Status: StatusPending, Version: 1})
	_, _ = store.Create(ctx, &Item{PersonA: "c", PersonB: "d", Similarity: 95, Status: StatusPending, Version: 1})
	_, _ = store.Create(ctx, &Item{PersonA: "e", PersonB: "f", Similarity: 95, Status: StatusPending, Version: 1})

	items, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 95, items[0].Similarity)
	assert.Equal(t, 95, items[1].Similarity)
	assert.Equal(t, 88, items[2].Similarity)
	assert.True(t, items[0].ID < items[1].ID, "equal-similarity items break ties by id ascending")
}
