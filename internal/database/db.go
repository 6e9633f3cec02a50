// Package database provides the pgxpool.Pool connection and the migration
// list for this module's own tables, grounded on the teacher's
// internal/database/db.go bootstrap shape (pgxpool.New, Ping, a
// name+sql migration slice run in order).
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// New opens a pgxpool.Pool against dsn and verifies connectivity.
func New(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("database connected")
	return pool, nil
}

// RunMigrations creates this module's tables. Every statement is
// idempotent (CREATE TABLE/INDEX IF NOT EXISTS) so RunMigrations is safe to
// call on every process start, matching the teacher's migration style.
func RunMigrations(pool *pgxpool.Pool) error {
	ctx := context.Background()

	migrations := []struct {
		name string
		sql  string
	}{
		{
			// fold() backs catalog.go's "fold(name) = $2" comparisons: the
			// same accent/case-insensitive match normalize.Fold applies in
			// Go, applied at the SQL layer so catalog lookups don't have to
			// pull every row of a kind into the application to compare.
			name: "create_fold_function",
			sql: `CREATE EXTENSION IF NOT EXISTS unaccent;
			CREATE OR REPLACE FUNCTION fold(text) RETURNS text AS $$
				SELECT lower(unaccent($1))
			$$ LANGUAGE sql IMMUTABLE;`,
		},
		{
			name: "create_catalog_entries",
			sql: `CREATE TABLE IF NOT EXISTS catalog_entries (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				kind VARCHAR(32) NOT NULL,
				name VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS idx_catalog_entries_kind_fold ON catalog_entries(kind, fold(name));`,
		},
		{
			name: "create_reconciliation_mappings",
			sql: `CREATE TABLE IF NOT EXISTS reconciliation_mappings (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				kind VARCHAR(32) NOT NULL,
				unknown_value VARCHAR(255) NOT NULL,
				canonical_id UUID NOT NULL REFERENCES catalog_entries(id),
				created_at TIMESTAMPTZ DEFAULT now(),
				UNIQUE (kind, unknown_value)
			);`,
		},
		{
			name: "create_persons",
			sql: `CREATE TABLE IF NOT EXISTS persons (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				raw_full_name VARCHAR(255) NOT NULL,
				normalized_full_name VARCHAR(255) NOT NULL,
				canonical_full_name VARCHAR(255) NOT NULL,
				name_history JSONB,
				national_id VARCHAR(32),
				email VARCHAR(255),
				career VARCHAR(255),
				phone VARCHAR(64),
				audience VARCHAR(32) NOT NULL,
				created_at TIMESTAMPTZ DEFAULT now(),
				merged_into_id UUID REFERENCES persons(id)
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_persons_national_id ON persons(national_id) WHERE merged_into_id IS NULL AND national_id IS NOT NULL AND national_id <> '';
			CREATE INDEX IF NOT EXISTS idx_persons_email ON persons(email) WHERE email IS NOT NULL AND email <> '';
			CREATE INDEX IF NOT EXISTS idx_persons_merged_into ON persons(merged_into_id) WHERE merged_into_id IS NOT NULL;`,
		},
		{
			name: "create_activities",
			sql: `CREATE TABLE IF NOT EXISTS activities (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name VARCHAR(255) NOT NULL,
				strategic_line VARCHAR(255) NOT NULL,
				year INTEGER NOT NULL,
				audience VARCHAR(32) NOT NULL,
				UNIQUE (name, year)
			);
			CREATE INDEX IF NOT EXISTS idx_activities_year ON activities(year);
			CREATE INDEX IF NOT EXISTS idx_activities_strategic_line ON activities(strategic_line);`,
		},
		{
			name: "create_registrations",
			sql: `CREATE TABLE IF NOT EXISTS registrations (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				person_id UUID NOT NULL REFERENCES persons(id),
				activity_id UUID NOT NULL REFERENCES activities(id),
				source VARCHAR(16) NOT NULL,
				attended VARCHAR(16) NOT NULL DEFAULT 'unknown',
				created_at TIMESTAMPTZ DEFAULT now(),
				validation_errors TEXT[],
				extras JSONB,
				UNIQUE (person_id, activity_id)
			);
			CREATE INDEX IF NOT EXISTS idx_registrations_person ON registrations(person_id);
			CREATE INDEX IF NOT EXISTS idx_registrations_activity ON registrations(activity_id);`,
		},
		{
			name: "create_upload_batches",
			sql: `CREATE TABLE IF NOT EXISTS upload_batches (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				activity_id UUID REFERENCES activities(id),
				state VARCHAR(32) NOT NULL,
				total INTEGER NOT NULL DEFAULT 0,
				valid INTEGER NOT NULL DEFAULT 0,
				invalid INTEGER NOT NULL DEFAULT 0,
				new_persons INTEGER NOT NULL DEFAULT 0,
				existing_persons INTEGER NOT NULL DEFAULT 0,
				within_upload_duplicates INTEGER NOT NULL DEFAULT 0,
				errors_by_kind JSONB,
				created_at TIMESTAMPTZ DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS idx_upload_batches_activity ON upload_batches(activity_id);`,
		},
		{
			name: "create_review_items",
			sql: `CREATE TABLE IF NOT EXISTS review_items (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				person_a UUID NOT NULL REFERENCES persons(id),
				person_b UUID NOT NULL REFERENCES persons(id),
				similarity INTEGER NOT NULL,
				audience VARCHAR(32),
				status VARCHAR(16) NOT NULL DEFAULT 'pending',
				version INTEGER NOT NULL DEFAULT 1,
				decided_at TIMESTAMPTZ,
				decided_by VARCHAR(255),
				created_at TIMESTAMPTZ DEFAULT now(),
				canonical_person_id UUID REFERENCES persons(id),
				canonical_name VARCHAR(255),
				UNIQUE (person_a, person_b)
			);
			CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items(status);
			CREATE INDEX IF NOT EXISTS idx_review_items_similarity ON review_items(similarity DESC);`,
		},
		{
			name: "create_audit_log",
			sql: `CREATE TABLE IF NOT EXISTS audit_log (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				entity_kind VARCHAR(32) NOT NULL,
				entity_id UUID NOT NULL,
				action VARCHAR(32) NOT NULL,
				actor VARCHAR(255) NOT NULL,
				before JSONB,
				after JSONB,
				created_at TIMESTAMPTZ DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_kind, entity_id);`,
		},
	}

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		slog.Info("migration applied", "name", m.name)
	}

	return nil
}
