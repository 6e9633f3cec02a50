package ingest

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/eventregistry/internal/catalog"
	"github.com/yourorg/eventregistry/internal/registrations"
	"github.com/yourorg/eventregistry/internal/registry"
	"github.com/yourorg/eventregistry/internal/rowvalidate"
	"github.com/yourorg/eventregistry/internal/schemafit"
)

// fakeActivityStore is an in-memory ActivityStore for pipeline tests.
type fakeActivityStore struct {
	byNameYear map[string]*Activity
	byID       map[string]*Activity
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{byNameYear: make(map[string]*Activity), byID: make(map[string]*Activity)}
}

func (f *fakeActivityStore) key(name string, year int) string {
	return name + "|" + strconv.Itoa(year)
}

func (f *fakeActivityStore) GetByNameYear(_ context.Context, name string, year int) (*Activity, error) {
	return f.byNameYear[f.key(name, year)], nil
}

func (f *fakeActivityStore) GetByID(_ context.Context, id string) (*Activity, error) {
	return f.byID[id], nil
}

func (f *fakeActivityStore) Create(_ context.Context, a *Activity) error {
	f.byNameYear[f.key(a.Name, a.Year)] = a
	f.byID[a.ID] = a
	return nil
}

// fakeResolver is an in-memory Resolver standing in for *catalog.Catalog,
// pre-seeded with whatever (kind, folded name) pairs a test considers
// "known catalog entries" — the orchestrator test suite never touches
// Postgres, the same seam registry/registrations tests use for Store.
type fakeResolver struct {
	known map[catalog.Kind]map[string]string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{known: make(map[catalog.Kind]map[string]string)}
}

func (f *fakeResolver) seed(kind catalog.Kind, name, id string) {
	if f.known[kind] == nil {
		f.known[kind] = make(map[string]string)
	}
	f.known[kind][name] = id
}

func (f *fakeResolver) Resolve(_ context.Context, kind catalog.Kind, name string) (string, bool, error) {
	id, ok := f.known[kind][name]
	return id, ok, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeResolver, *fakeActivityStore) {
	t.Helper()

	resolver := newFakeResolver()
	resolver.seed(catalog.KindActivityName, "taller de bienvenida", "activity-name-1")
	resolver.seed(catalog.KindStrategicLine, "vinculacion", "strategic-line-1")

	activities := newFakeActivityStore()

	regs := registrations.New(registrations.NewMemStore(), nil)
	reg := registry.New(registry.NewMemStore(), regs, nil)

	orch := New(Config{
		Fitter:                  schemafit.New(schemafit.DefaultAliasTable()),
		Validator:               rowvalidate.New([]string{"uni.edu"}),
		Catalog:                 resolver,
		Activities:              activities,
		Registry:                reg,
		Registrations:           regs,
		IngestRowLimit:          1000,
		DefaultEncodingFallback: "windows-1252",
	})
	return orch, resolver, activities
}

const validCSV = "Nombre Completo,RUT,Correo Institucional,Carrera,Telefono\n" +
	"Maria Perez,12345678-5,maria@uni.edu,Ingenieria,+56911112222\n" +
	"Juan Soto,76543210-3,juan@uni.edu,Medicina,+56922223333\n"

func testMeta() ActivityMetadata {
	return ActivityMetadata{
		Name:          "taller de bienvenida",
		StrategicLine: "vinculacion",
		Year:          2026,
		Audience:      AudienceStudents,
	}
}

func TestPreview_ProposesMappingAndSampleWithoutPersisting(t *testing.T) {
	orch, _, activities := newTestOrchestrator(t)

	preview, err := orch.Preview([]byte(validCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Nombre Completo", "RUT", "Correo Institucional", "Carrera", "Telefono"}, preview.Headers)
	assert.Len(t, preview.SampleRows, 2)
	assert.Len(t, preview.ProposedMapping, 5)
	assert.Empty(t, activities.byNameYear, "preview must not create an Activity")
}

func TestCommit_HappyPathPersistsEveryRow(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	report, err := orch.Commit(ctx, []byte(validCSV), nil, testMeta())
	require.NoError(t, err)

	assert.Equal(t, BatchReported, report.State)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 0, report.Invalid)
	assert.Equal(t, 2, report.NewPersons)
	assert.Empty(t, report.ErrorsByKind)
}

func TestCommit_InvalidRowsAreTaggedNotDropped(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	csvData := "Nombre Completo,RUT,Correo Institucional,Carrera,Telefono\n" +
		"SoloUnNombre,12345678-5,maria@uni.edu,Ingenieria,+56911112222\n" +
		"Juan Soto,not-a-rut,juan@gmail.com,,123\n"

	report, err := orch.Commit(ctx, []byte(csvData), nil, testMeta())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Invalid, "rows with ErrorKind tags count as invalid but are still persisted")
	assert.Equal(t, 1, report.ErrorsByKind[string(rowvalidate.KindNameSingleToken)])
	assert.Equal(t, 1, report.ErrorsByKind[string(rowvalidate.KindNIDMalformed)])
	assert.Equal(t, 1, report.ErrorsByKind[string(rowvalidate.KindEmailNonInstitutional)])
	assert.Equal(t, 1, report.ErrorsByKind[string(rowvalidate.KindProgramMissing)])
	assert.Equal(t, 1, report.ErrorsByKind[string(rowvalidate.KindPhoneMalformed)])
}

func TestCommit_WithinUploadDuplicateIsCountedNotDoublePersisted(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	csvData := "Nombre Completo,RUT,Correo Institucional,Carrera,Telefono\n" +
		"Maria Perez,12345678-5,maria@uni.edu,Ingenieria,+56911112222\n" +
		"Maria Perez S.,12345678-5,maria@uni.edu,Ingenieria,+56911112222\n"

	report, err := orch.Commit(ctx, []byte(csvData), nil, testMeta())
	require.NoError(t, err)

	assert.Equal(t, 1, report.NewPersons)
	assert.Equal(t, 1, report.WithinUploadDuplicates)
}

func TestCommit_SecondUploadForSameActivityFindsExistingPerson(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.Commit(ctx, []byte(validCSV), nil, testMeta())
	require.NoError(t, err)

	secondCSV := "Nombre Completo,RUT,Correo Institucional,Carrera,Telefono\n" +
		"Maria Perez,12345678-5,maria@uni.edu,Ingenieria,+56911112222\n"

	report, err := orch.Commit(ctx, []byte(secondCSV), nil, testMeta())
	require.NoError(t, err)

	assert.Equal(t, 0, report.NewPersons)
	assert.Equal(t, 1, report.ExistingPersons)
	assert.Equal(t, 1, report.WithinUploadDuplicates, "re-ingesting the same row hits an already-existing (person, activity) registration, which counts as a duplicate regardless of which upload created it")
	assert.Equal(t, 1, report.Valid)
}

func TestCommit_UnknownActivityNameFailsBeforeAnyRowIsProcessed(t *testing.T) {
	orch, _, activities := newTestOrchestrator(t)
	ctx := context.Background()

	meta := testMeta()
	meta.Name = "evento jamas visto"

	_, err := orch.Commit(ctx, []byte(validCSV), nil, meta)
	assert.Error(t, err)
	assert.Empty(t, activities.byNameYear)
}

func TestCommit_CancellationAbortsWithoutProcessingRemainingRows(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already done before the first row is read

	report, err := orch.Commit(ctx, []byte(validCSV), nil, testMeta())
	require.NoError(t, err)
	assert.Equal(t, BatchAborted, report.State)
}
