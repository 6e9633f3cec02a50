// Command ingestcli drives one CSV upload end to end: parse, fit, validate,
// reconcile and persist, then print the resulting UploadReport. HTTP
// transport is explicitly out of scope for this core (spec.md §1), so this
// is the whole outer surface: a thin bootstrap wiring config to the pgx
// pool to the Orchestrator, grounded on cmd/server/main.go's bootstrap
// shape (godotenv.Load, slog logging, signal-aware shutdown) but invoking
// the Orchestrator directly against a file argument instead of starting a
// router.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/eventregistry/internal/auditlog"
	"github.com/yourorg/eventregistry/internal/catalog"
	"github.com/yourorg/eventregistry/internal/config"
	"github.com/yourorg/eventregistry/internal/database"
	"github.com/yourorg/eventregistry/internal/dedup"
	"github.com/yourorg/eventregistry/internal/indicators"
	"github.com/yourorg/eventregistry/internal/ingest"
	"github.com/yourorg/eventregistry/internal/registrations"
	"github.com/yourorg/eventregistry/internal/registry"
	"github.com/yourorg/eventregistry/internal/review"
	"github.com/yourorg/eventregistry/internal/rowvalidate"
	"github.com/yourorg/eventregistry/internal/schemafit"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	var (
		activityName = flag.String("activity", "", "activity name (must already be a catalog entry)")
		strategicLn  = flag.String("strategic-line", "", "strategic line (must already be a catalog entry)")
		year         = flag.Int("year", time.Now().Year(), "activity year")
		audience     = flag.String("audience", string(ingest.AudienceStudents), "activity audience: students or staff")
		runDedup     = flag.Bool("dedup", false, "also run the Duplicate Detector after commit")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		slog.Error("usage: ingestcli [flags] <csv-file>")
		os.Exit(1)
	}
	csvPath := flag.Arg(0)

	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.New(cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(pool); err != nil {
		slog.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	cat, err := catalog.New(pool)
	if err != nil {
		slog.Error("catalog init failed", "err", err)
		os.Exit(1)
	}

	audit := auditlog.New(pool)
	personStore := registry.NewPGStore(pool)
	regStore := registrations.NewPGStore(pool)
	regs := registrations.New(regStore, audit)
	reg := registry.New(personStore, regs, audit)
	activities := ingest.NewPGActivityStore(pool)

	aliasTable := schemafit.DefaultAliasTable()
	for field, labels := range cfg.AliasTable {
		aliasTable[schemafit.CanonicalField(field)] = append(aliasTable[schemafit.CanonicalField(field)], labels...)
	}
	fitter := schemafit.New(aliasTable)
	validator := rowvalidate.New(cfg.InstitutionEmailSuffixes)

	orchestrator := ingest.New(ingest.Config{
		Fitter:                  fitter,
		Validator:               validator,
		Catalog:                 cat,
		Activities:              activities,
		Registry:                reg,
		Registrations:           regs,
		IngestRowLimit:          cfg.IngestRowLimit,
		DefaultEncodingFallback: cfg.DefaultEncodingFallback,
		Logger:                  slog.Default(),
	})

	data, err := os.ReadFile(csvPath)
	if err != nil {
		slog.Error("read csv", "path", csvPath, "err", err)
		os.Exit(1)
	}

	meta := ingest.ActivityMetadata{
		Name:          *activityName,
		StrategicLine: *strategicLn,
		Year:          *year,
		Audience:      ingest.ActivityAudience(*audience),
	}

	report, err := orchestrator.Commit(ctx, data, nil, meta)
	if err != nil {
		slog.Error("commit failed", "err", err)
		os.Exit(1)
	}
	printReport(report)

	if *runDedup {
		queue := review.New(review.NewPGStore(pool), reg)
		detector := dedup.New(dedup.Config{
			Persons:        personStore,
			Queue:          queue,
			Threshold:      cfg.ReviewThreshold,
			BlockPrefixLen: cfg.BlockPrefixLen,
		})
		summary, err := detector.Scan(ctx)
		if err != nil {
			slog.Error("duplicate scan failed", "err", err)
			os.Exit(1)
		}
		slog.Info("duplicate scan complete",
			"persons_scanned", summary.PersonsScanned,
			"pairs_evaluated", summary.PairsEvaluated,
			"items_enqueued", summary.ItemsEnqueued)
	}

	engine := indicators.New(regStore, activities, personStore)
	rows, err := engine.Query(ctx, []indicators.Dimension{indicators.DimensionYear, indicators.DimensionStrategicLine, indicators.DimensionAudience}, indicators.Filter{})
	if err != nil {
		slog.Error("indicators query failed", "err", err)
		os.Exit(1)
	}
	printIndicators(rows)
}

func printReport(report *ingest.UploadReport) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		slog.Error("report encode failed", "err", err)
		return
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}

func printIndicators(rows []indicators.Row) {
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		slog.Error("indicators encode failed", "err", err)
		return
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
