// Package indicators implements the C10 Indicators Engine: read-only
// dimensional aggregation over Registrations, Activities and Persons.
// Grounded on the teacher's activity_repository.go's GetActivityStats
// (COUNT ... CASE WHEN aggregate shape), generalized from a fixed
// five-column count into an arbitrary dimension-set group-by built in Go
// over the existing Store interfaces rather than a dimension-specific SQL
// query per caller.
package indicators

import (
	"context"
	"sort"
	"strconv"

	"github.com/yourorg/eventregistry/internal/ingest"
	"github.com/yourorg/eventregistry/internal/registrations"
	"github.com/yourorg/eventregistry/internal/registry"
)

// Dimension is one of the three axes spec.md §4.10 allows grouping by.
type Dimension string

const (
	DimensionYear          Dimension = "year"
	DimensionStrategicLine Dimension = "strategic_line"
	DimensionAudience      Dimension = "audience"
)

// Filter narrows the Registrations considered before aggregation.
type Filter struct {
	ActivityID string // "" means every activity
}

// Row is one group's aggregated counts, per spec.md §4.10.
type Row struct {
	Dimensions                map[Dimension]string
	Registrations             int
	Participations            int
	UniquePersonsRegistered   int
	UniquePersonsParticipated int
	ConversionRate            *float64 // nil when Registrations == 0
}

// Engine computes indicator rows from the current (post-merge) state of the
// Registration Store, Activity Store and Person Registry.
type Engine struct {
	registrations registrations.Store
	activities    ingest.ActivityStore
	persons       registry.Store
}

// New builds an Engine over the three stores it aggregates across.
func New(regs registrations.Store, activities ingest.ActivityStore, persons registry.Store) *Engine {
	return &Engine{registrations: regs, activities: activities, persons: persons}
}

// groupKey is the tuple of dimension values a Registration falls under,
// restricted to whichever Dimensions the caller asked to group by.
type groupKey struct {
	year          string
	strategicLine string
	audience      string
}

type aggregate struct {
	dims                map[Dimension]string
	registrations       int
	participations      int
	registeredPersons   map[string]bool
	participatedPersons map[string]bool
}

// Query implements spec.md §4.10: group every Registration matching filter
// by dims, and report registrations/participations/unique-person counts and
// a conversion rate per group. Audience is read from the Person row (the
// spec's explicit invariant), never re-derived from the Activity or any
// free-text program value.
func (e *Engine) Query(ctx context.Context, dims []Dimension, filter Filter) ([]Row, error) {
	regs, err := e.registrations.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	wantYear, wantLine, wantAudience := false, false, false
	for _, d := range dims {
		switch d {
		case DimensionYear:
			wantYear = true
		case DimensionStrategicLine:
			wantLine = true
		case DimensionAudience:
			wantAudience = true
		}
	}

	activityCache := make(map[string]*ingest.Activity)
	personCache := make(map[string]*registry.Person)
	groups := make(map[groupKey]*aggregate)

	for _, reg := range regs {
		if filter.ActivityID != "" && reg.ActivityID != filter.ActivityID {
			continue
		}

		var activity *ingest.Activity
		if wantYear || wantLine {
			activity, err = lookupActivity(ctx, e.activities, activityCache, reg.ActivityID)
			if err != nil {
				return nil, err
			}
			if activity == nil {
				continue // dangling reference; nothing to attribute this row to
			}
		}

		// Person lookup happens unconditionally, not just when audience is a
		// requested dimension: unique-person counts and the
		// non-tombstone filter both need it regardless of grouping.
		person, err := lookupPerson(ctx, e.persons, personCache, reg.PersonID)
		if err != nil {
			return nil, err
		}
		if person == nil || person.IsTombstone() {
			continue // merged away; this registration should have been repointed or dropped
		}

		key := groupKey{}
		dimValues := make(map[Dimension]string, len(dims))
		if wantYear {
			key.year = yearString(activity.Year)
			dimValues[DimensionYear] = key.year
		}
		if wantLine {
			key.strategicLine = activity.StrategicLine
			dimValues[DimensionStrategicLine] = key.strategicLine
		}
		if wantAudience {
			key.audience = string(person.Audience)
			dimValues[DimensionAudience] = key.audience
		}

		agg, ok := groups[key]
		if !ok {
			agg = &aggregate{
				dims:                dimValues,
				registeredPersons:   make(map[string]bool),
				participatedPersons: make(map[string]bool),
			}
			groups[key] = agg
		}

		agg.registrations++
		agg.registeredPersons[person.ID] = true
		if reg.Attended == registrations.AttendanceYes {
			agg.participations++
			agg.participatedPersons[person.ID] = true
		}
	}

	rows := make([]Row, 0, len(groups))
	for _, agg := range groups {
		rows = append(rows, Row{
			Dimensions:                agg.dims,
			Registrations:             agg.registrations,
			Participations:            agg.participations,
			UniquePersonsRegistered:   len(agg.registeredPersons),
			UniquePersonsParticipated: len(agg.participatedPersons),
			ConversionRate:            conversionRate(agg.participations, agg.registrations),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rowSortKey(rows[i]) < rowSortKey(rows[j]) })
	return rows, nil
}

// conversionRate reports participations/registrations rounded to two
// decimals, or nil when registrations is zero (spec.md §4.10: "null when
// registrations = 0").
func conversionRate(participations, total int) *float64 {
	if total == 0 {
		return nil
	}
	rate := float64(participations) / float64(total)
	rounded := float64(int(rate*100+0.5)) / 100
	return &rounded
}

func lookupActivity(ctx context.Context, store ingest.ActivityStore, cache map[string]*ingest.Activity, id string) (*ingest.Activity, error) {
	if a, ok := cache[id]; ok {
		return a, nil
	}
	a, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = a
	return a, nil
}

func lookupPerson(ctx context.Context, store registry.Store, cache map[string]*registry.Person, id string) (*registry.Person, error) {
	if p, ok := cache[id]; ok {
		return p, nil
	}
	p, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = p
	return p, nil
}

func yearString(year int) string {
	return strconv.Itoa(year)
}

// rowSortKey gives Query's output a stable, deterministic order across runs
// regardless of Go's randomized map iteration.
func rowSortKey(r Row) string {
	return r.Dimensions[DimensionYear] + "|" + r.Dimensions[DimensionStrategicLine] + "|" + r.Dimensions[DimensionAudience]
}
