package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/eventregistry/internal/registry"
	"github.com/yourorg/eventregistry/internal/review"
)

type noopRegistrationMover struct{}

func (noopRegistrationMover) ListByPerson(context.Context, string) ([]registry.RegistrationRef, error) {
	return nil, nil
}
func (noopRegistrationMover) Repoint(context.Context, string, string) error { return nil }
func (noopRegistrationMover) Drop(context.Context, string) error            { return nil }

func newTestDetector(t *testing.T, threshold int) (*Detector, *registry.MemStore, *review.Queue) {
	t.Helper()
	regStore := registry.NewMemStore()
	reg := registry.New(regStore, noopRegistrationMover{}, nil)
	reviewQueue := review.New(review.NewMemStore(), reg)
	detector := New(Config{
		Persons:     regStore,
		Queue:       reviewQueue,
		Threshold:   threshold,
		Concurrency: 4,
	})
	return detector, regStore, reviewQueue
}

func seed(t *testing.T, store *registry.MemStore, p *registry.Person) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), p))
}

func TestScan_FindsNearDuplicateNamesSharingABlock(t *testing.T) {
	d, store, queue := newTestDetector(t, 80)
	ctx := context.Background()

	seed(t, store, &registry.Person{
		ID: "p1", RawFullName: "Maria Jose Perez Soto", NormalizedFullName: "maria jose perez soto",
		CanonicalFullName: "Maria Jose Perez Soto", Email: "maria.perez@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})
	seed(t, store, &registry.Person{
		ID: "p2", RawFullName: "Maria J Perez Soto", NormalizedFullName: "maria j perez soto",
		CanonicalFullName: "Maria J Perez Soto", Email: "maria.perez2@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})

	summary, err := d.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PersonsScanned)
	assert.GreaterOrEqual(t, summary.ItemsEnqueued, 1)

	item, err := queue.List(ctx, review.ListFilter{})
	require.NoError(t, err)
	require.Len(t, item, 1)
	assert.Equal(t, review.StatusPending, item[0].Status)
}

func TestScan_UnrelatedPersonsShareNoBlockAndAreNeverCompared(t *testing.T) {
	d, store, queue := newTestDetector(t, 80)
	ctx := context.Background()

	seed(t, store, &registry.Person{
		ID: "p1", RawFullName: "Ana Torres Lagos", NormalizedFullName: "ana torres lagos",
		CanonicalFullName: "Ana Torres Lagos", Email: "ana.torres@uni.edu", Career: "Derecho",
		Audience: "students",
	})
	seed(t, store, &registry.Person{
		ID: "p2", RawFullName: "Pedro Gonzalez Rios", NormalizedFullName: "pedro gonzalez rios",
		CanonicalFullName: "Pedro Gonzalez Rios", Email: "pedro.gonzalez@uni.edu", Career: "Medicina",
		Audience: "staff",
	})

	summary, err := d.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PairsEvaluated, "no shared blocking key means the pair is never scored")
	assert.Equal(t, 0, summary.ItemsEnqueued)

	items, err := queue.List(ctx, review.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScan_IsIdempotentAcrossRepeatedRuns(t *testing.T) {
	d, store, queue := newTestDetector(t, 80)
	ctx := context.Background()

	seed(t, store, &registry.Person{
		ID: "p1", RawFullName: "Maria Jose Perez Soto", NormalizedFullName: "maria jose perez soto",
		CanonicalFullName: "Maria Jose Perez Soto", Email: "maria.perez@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})
	seed(t, store, &registry.Person{
		ID: "p2", RawFullName: "Maria J Perez Soto", NormalizedFullName: "maria j perez soto",
		CanonicalFullName: "Maria J Perez Soto", Email: "maria.perez2@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})

	_, err := d.Scan(ctx)
	require.NoError(t, err)

	second, err := d.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.ItemsEnqueued, "re-running must not enqueue a second item for an already-known pair")

	items, err := queue.List(ctx, review.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1, "idempotent: exactly one review item exists for the pair after two scans")
}

func TestScan_RespectsTerminalDecisionOnRescan(t *testing.T) {
	d, store, queue := newTestDetector(t, 80)
	ctx := context.Background()

	seed(t, store, &registry.Person{
		ID: "p1", RawFullName: "Maria Jose Perez Soto", NormalizedFullName: "maria jose perez soto",
		CanonicalFullName: "Maria Jose Perez Soto", Email: "maria.perez@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})
	seed(t, store, &registry.Person{
		ID: "p2", RawFullName: "Maria J Perez Soto", NormalizedFullName: "maria j perez soto",
		CanonicalFullName: "Maria J Perez Soto", Email: "maria.perez2@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})

	_, err := d.Scan(ctx)
	require.NoError(t, err)

	items, err := queue.List(ctx, review.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = queue.Reject(ctx, items[0].ID, "operator-1")
	require.NoError(t, err)

	summary, err := d.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ItemsEnqueued, "a rejected pair must not be re-enqueued by a later scan")

	after, err := queue.List(ctx, review.ListFilter{})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, review.StatusRejected, after[0].Status)
}

func TestScan_ScoreBelowThresholdIsNotEnqueued(t *testing.T) {
	d, store, queue := newTestDetector(t, 95)
	ctx := context.Background()

	seed(t, store, &registry.Person{
		ID: "p1", RawFullName: "Maria Jose Perez Soto", NormalizedFullName: "maria jose perez soto",
		CanonicalFullName: "Maria Jose Perez Soto", Email: "maria.perez@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})
	seed(t, store, &registry.Person{
		ID: "p2", RawFullName: "Maria Fernanda Perez Soto Araya", NormalizedFullName: "maria fernanda perez soto araya",
		CanonicalFullName: "Maria Fernanda Perez Soto Araya", Email: "maria.perez@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})

	summary, err := d.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PairsEvaluated, "shared email-prefix block still forces one comparison")
	assert.Equal(t, 0, summary.ItemsEnqueued)
}

func TestScan_TombstonedPersonsAreExcluded(t *testing.T) {
	d, store, queue := newTestDetector(t, 80)
	ctx := context.Background()

	seed(t, store, &registry.Person{
		ID: "p1", RawFullName: "Maria Jose Perez Soto", NormalizedFullName: "maria jose perez soto",
		CanonicalFullName: "Maria Jose Perez Soto", Email: "maria.perez@uni.edu", Career: "Ingenieria Civil",
		Audience: "students",
	})
	seed(t, store, &registry.Person{
		ID: "p2", RawFullName: "Maria J Perez Soto", NormalizedFullName: "maria j perez soto",
		CanonicalFullName: "Maria J Perez Soto", Email: "maria.perez2@uni.edu", Career: "Ingenieria Civil",
		Audience: "students", MergedIntoID: "p1",
	})

	summary, err := d.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PersonsScanned, "ListActive excludes tombstones")
	assert.Equal(t, 0, summary.ItemsEnqueued)

	items, err := queue.List(ctx, review.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}
