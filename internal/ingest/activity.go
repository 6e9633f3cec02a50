package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourorg/eventregistry/internal/catalog"
	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/normalize"
)

// ActivityAudience mirrors catalog.Kind's closed set for the audience
// attribute (spec.md §3: "audience∈{students, staff}").
type ActivityAudience string

const (
	AudienceStudents ActivityAudience = "students"
	AudienceStaff    ActivityAudience = "staff"
)

// Activity is the grain of a single event occurrence. Immutable after
// creation except administrative corrections (out of this core's scope;
// an external collaborator's concern per spec.md §1).
type Activity struct {
	ID            string
	Name          string
	StrategicLine string
	Year          int
	Audience      ActivityAudience
}

// ActivityMetadata is the caller-supplied fixed context for a single
// upload (spec.md §4.7 step d): "the Activity for this upload is fixed by
// caller metadata".
type ActivityMetadata struct {
	Name          string
	StrategicLine string
	Year          int
	Audience      ActivityAudience
}

// ActivityStore persists Activities. Resolution of the name/strategic_line
// strings to Catalog entries happens in ResolveOrCreate, not here.
type ActivityStore interface {
	GetByNameYear(ctx context.Context, name string, year int) (*Activity, error)
	GetByID(ctx context.Context, id string) (*Activity, error)
	Create(ctx context.Context, a *Activity) error
}

// Resolver is the slice of *catalog.Catalog's behavior ResolveOrCreate
// needs. Extracted as an interface so tests can drive the orchestrator
// against an in-memory fake instead of a live Postgres-backed Catalog.
type Resolver interface {
	Resolve(ctx context.Context, kind catalog.Kind, name string) (id string, ok bool, err error)
}

// ResolveOrCreate finds an existing Activity matching (name, year) or
// creates one, reconciling name and strategic_line through the Catalog so
// an unrecognized value surfaces as coreerr.KindActivityUnknown rather than
// silently minting a new catalog entry mid-ingest.
func ResolveOrCreate(ctx context.Context, activities ActivityStore, cat Resolver, meta ActivityMetadata) (*Activity, error) {
	if existing, err := activities.GetByNameYear(ctx, normalize.NormalizeName(meta.Name), meta.Year); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if _, ok, err := cat.Resolve(ctx, catalog.KindActivityName, meta.Name); err != nil {
		return nil, err
	} else if !ok {
		return nil, coreerr.New(coreerr.KindActivityUnknown, "activity name not in catalog: "+meta.Name)
	}
	if _, ok, err := cat.Resolve(ctx, catalog.KindStrategicLine, meta.StrategicLine); err != nil {
		return nil, err
	} else if !ok {
		return nil, coreerr.New(coreerr.KindActivityUnknown, "strategic line not in catalog: "+meta.StrategicLine)
	}

	activity := &Activity{
		ID:            uuid.NewString(),
		Name:          normalize.NormalizeName(meta.Name),
		StrategicLine: normalize.NormalizeName(meta.StrategicLine),
		Year:          meta.Year,
		Audience:      meta.Audience,
	}
	if err := activities.Create(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}
