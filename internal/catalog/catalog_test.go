//go:build pgtest

// Integration tests against a real Postgres instance. Run with:
//
//	go test -tags pgtest ./internal/catalog/... -args -dsn=postgres://...
//
// Skipped by default since the core's unit-test suite (go test ./...) must
// not require a live database; pure-logic packages (normalize, schemafit,
// rowvalidate, registry, dedup) carry the bulk of this repo's assertions.
package catalog

import (
	"context"
	"flag"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var dsn = flag.String("dsn", "", "postgres DSN for catalog integration tests")

func connectOrSkip(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if *dsn == "" {
		t.Skip("no -dsn provided")
	}
	pool, err := pgxpool.New(context.Background(), *dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestCatalog_CreateResolveDeactivate(t *testing.T) {
	pool := connectOrSkip(t)
	cat, err := New(pool)
	require.NoError(t, err)

	ctx := context.Background()
	entry, err := cat.Create(ctx, KindCareer, "Ingeniería Civil")
	require.NoError(t, err)

	id, ok, err := cat.Resolve(ctx, KindCareer, "ingenieria civil")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.ID, id)

	require.NoError(t, cat.Deactivate(ctx, entry.ID))

	_, ok, err = cat.Resolve(ctx, KindCareer, "ingenieria civil")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCatalog_MapUnknown(t *testing.T) {
	pool := connectOrSkip(t)
	cat, err := New(pool)
	require.NoError(t, err)

	ctx := context.Background()
	entry, err := cat.Create(ctx, KindStrategicLine, "Vinculación con el Medio")
	require.NoError(t, err)

	require.NoError(t, cat.MapUnknown(ctx, KindStrategicLine, "VcM", entry.ID))

	id, ok, err := cat.Resolve(ctx, KindStrategicLine, "VcM")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.ID, id)
}
