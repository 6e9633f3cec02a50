// Package ingest implements the C7 Ingest Orchestrator: drives a single
// upload through Fit -> Validate -> Normalize -> Reconcile -> Persist and
// emits an UploadReport. Grounded on the teacher's converter pipeline
// (dynamic_mapping.go's per-row iteration shape) for the row loop, and on
// golang.org/x/sync/errgroup-adjacent advisory locking via the keylock
// package for per-activity serialization (spec.md §5).
package ingest

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/yourorg/eventregistry/internal/coreerr"
	"github.com/yourorg/eventregistry/internal/keylock"
	"github.com/yourorg/eventregistry/internal/registrations"
	"github.com/yourorg/eventregistry/internal/registry"
	"github.com/yourorg/eventregistry/internal/rowvalidate"
	"github.com/yourorg/eventregistry/internal/schemafit"
)

// Orchestrator wires every other component together for a single upload.
type Orchestrator struct {
	fitter        *schemafit.Fitter
	validator     *rowvalidate.Validator
	catalog       Resolver
	activities    ActivityStore
	reg           *registry.Registry
	regs          *registrations.RegistrationStore
	rowLimit      int
	fallbackEnc   string
	activityLocks *keylock.Locker
	log           *slog.Logger
}

// Config bundles Orchestrator's dependencies; mirrors the teacher's
// constructor-injection style (NewActivityService(repo, ...)).
type Config struct {
	Fitter                  *schemafit.Fitter
	Validator               *rowvalidate.Validator
	Catalog                 Resolver
	Activities              ActivityStore
	Registry                *registry.Registry
	Registrations           *registrations.RegistrationStore
	IngestRowLimit          int
	DefaultEncodingFallback string
	Logger                  *slog.Logger
}

// New builds an Orchestrator from Config.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fitter:        cfg.Fitter,
		validator:     cfg.Validator,
		catalog:       cfg.Catalog,
		activities:    cfg.Activities,
		reg:           cfg.Registry,
		regs:          cfg.Registrations,
		rowLimit:      cfg.IngestRowLimit,
		fallbackEnc:   cfg.DefaultEncodingFallback,
		activityLocks: keylock.New(),
		log:           logger,
	}
}

// PreviewResult is ingest.preview's output.
type PreviewResult struct {
	Headers          []string
	SampleRows       [][]string
	ProposedMapping  schemafit.Mapping
	HeaderConfidence []schemafit.Proposal
}

const maxSampleRows = 20

// Preview implements ingest.preview: parse, propose a mapping, and return
// an operator-reviewable sample without touching persistence.
func (o *Orchestrator) Preview(data []byte) (*PreviewResult, error) {
	parsed, err := ParseCSV(data, o.fallbackEnc, o.rowLimit)
	if err != nil {
		return nil, err
	}

	proposals, mapping := o.fitter.Fit(parsed.Headers)

	sample := parsed.Rows
	if len(sample) > maxSampleRows {
		sample = sample[:maxSampleRows]
	}

	return &PreviewResult{
		Headers:          parsed.Headers,
		SampleRows:       sample,
		ProposedMapping:  mapping,
		HeaderConfidence: proposals,
	}, nil
}

// Commit implements spec.md §4.7's algorithm end to end for a single
// upload. mapping, if non-nil, overrides the Fitter's proposal (an
// operator override); if nil, the Fitter's own proposal is used.
//
// Failures at parse time abort before any writes (returns an error, no
// UploadReport). Failures mid-row are recorded in the report's
// ErrorsByKind and never abort the batch. The whole call is cancellable
// between rows: if ctx is done after N rows, the first N rows' writes
// stand and the report reflects State == BatchAborted.
func (o *Orchestrator) Commit(ctx context.Context, data []byte, mapping schemafit.Mapping, meta ActivityMetadata) (*UploadReport, error) {
	parsed, err := ParseCSV(data, o.fallbackEnc, o.rowLimit)
	if err != nil {
		return nil, err
	}

	if mapping == nil {
		_, proposed := o.fitter.Fit(parsed.Headers)
		mapping = proposed
	}
	if missing := schemafit.MissingRequired(mapping); len(missing) > 0 {
		return nil, coreerr.New(coreerr.KindMappingIncomplete, "mapping missing required fields")
	}

	activity, err := ResolveOrCreate(ctx, o.activities, o.catalog, meta)
	if err != nil {
		return nil, err
	}

	unlock := o.activityLocks.Lock(activity.ID)
	defer unlock()

	report := &UploadReport{
		BatchID:      uuid.NewString(),
		State:        BatchValidating,
		Total:        len(parsed.Rows),
		ErrorsByKind: make(ErrorBreakdown),
	}

	for i, row := range parsed.Rows {
		select {
		case <-ctx.Done():
			report.State = BatchAborted
			o.log.Warn("ingest aborted", "batch_id", report.BatchID, "at_row", i)
			return report, nil
		default:
		}

		if o.processRow(ctx, parsed.Headers, row, mapping, activity, report) {
			report.Valid++
		} else {
			report.Invalid++
		}
	}

	report.State = BatchReported
	o.log.Info("ingest committed", "batch_id", report.BatchID, "activity_id", activity.ID,
		"total", report.Total, "valid", report.Valid, "invalid", report.Invalid)
	return report, nil
}

// processRow runs one row through validate -> reconcile -> persist,
// updating report in place. It returns whether the row was free of
// ErrorKind tags.
func (o *Orchestrator) processRow(ctx context.Context, headers []string, row []string, mapping schemafit.Mapping, activity *Activity, report *UploadReport) bool {
	extras := unmappedExtras(headers, row, mapping)

	validated := o.validator.ValidateRow(row, mapping)
	for _, kind := range validated.Errors {
		report.ErrorsByKind[string(kind)]++
	}

	personID, created, err := o.reg.Reconcile(ctx, registry.ReconcileInput{
		RawFullName:        schemafit.FieldValue(row, mapping, schemafit.FieldFullName),
		NormalizedFullName: validated.FullName,
		NationalID:         validated.NationalID,
		Email:              validated.InstitutionalEmail,
		Career:             validated.ProgramOrArea,
		Phone:              validated.Phone,
		Audience:           registry.Audience(activity.Audience),
	})
	if err != nil {
		report.ErrorsByKind[string(coreerr.KindPersistFailed)]++
		o.log.Warn("reconcile failed", "activity_id", activity.ID, "error", err)
		return false
	}
	if created {
		report.NewPersons++
	} else {
		report.ExistingPersons++
	}

	errorTags := make([]string, len(validated.Errors))
	for i, e := range validated.Errors {
		errorTags[i] = string(e)
	}

	_, alreadyExisted, err := o.regs.Insert(ctx, personID, activity.ID, registrations.SourceCSV, extras, errorTags)
	if err != nil {
		report.ErrorsByKind[string(coreerr.KindPersistFailed)]++
		o.log.Warn("registration insert failed", "person_id", personID, "activity_id", activity.ID, "error", err)
		return false
	}
	if alreadyExisted {
		report.WithinUploadDuplicates++
	}

	return len(validated.Errors) == 0
}

// unmappedExtras returns every column not claimed by mapping, keyed by its
// original header; the values are stored on the Registration so source data
// the canonical fields don't capture is kept.
func unmappedExtras(headers []string, row []string, mapping schemafit.Mapping) map[string]string {
	extras := make(map[string]string)
	for i, value := range row {
		if _, mapped := mapping[i]; mapped || i >= len(headers) {
			continue
		}
		key := headers[i]
		if key == "" {
			key = "column_" + strconv.Itoa(i)
		}
		extras[key] = value
	}
	return extras
}
