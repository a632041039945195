package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements run in order at startup. All statements are idempotent.
// Points are stored as geometry(Point, 4326) built with (longitude, latitude)
// ordering everywhere; distance math always goes through ::geography.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		phone TEXT,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS authorities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		phone TEXT,
		latitude DOUBLE PRECISION DEFAULT 0,
		longitude DOUBLE PRECISION DEFAULT 0,
		location geometry(Point, 4326) DEFAULT ST_SetSRID(ST_MakePoint(0, 0), 4326),
		department TEXT NOT NULL,
		is_initialized BOOLEAN DEFAULT false,
		created_at TIMESTAMP DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS higherauthorities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		phone TEXT,
		department TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS issues (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		location geometry(Point, 4326) NOT NULL,
		category TEXT,
		department TEXT,
		status TEXT CHECK (status IN ('submitted', 'ongoing', 'resolved', 'rejected')) DEFAULT 'submitted',
		created_at TIMESTAMP DEFAULT now(),
		updated_at TIMESTAMP DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS issues_location_gix ON issues USING GIST (location)`,

	`CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		issue_id UUID REFERENCES issues(id) ON DELETE CASCADE,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		location geometry(Point, 4326) NOT NULL,
		description TEXT,
		is_classified BOOLEAN DEFAULT false,
		updated_at TIMESTAMP DEFAULT now(),
		created_at TIMESTAMP DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS reports_location_gix ON reports USING GIST (location)`,
	`CREATE INDEX IF NOT EXISTS reports_is_classified_idx ON reports(is_classified)`,

	`CREATE TABLE IF NOT EXISTS report_uploads (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		report_id UUID REFERENCES reports(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		embedding vector(512),
		is_fake BOOLEAN DEFAULT false,
		is_spam BOOLEAN DEFAULT false,
		uploaded_at TIMESTAMP DEFAULT now()
	)`,

	// account_kind tags which table account_id points at; the pair replaces
	// the old untyped user_id reference.
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_kind TEXT NOT NULL CHECK (account_kind IN ('citizen', 'authority', 'higher')),
		account_id UUID NOT NULL,
		token TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS refresh_tokens_account_idx ON refresh_tokens(account_kind, account_id)`,
	`CREATE INDEX IF NOT EXISTS refresh_tokens_token_idx ON refresh_tokens(token)`,
}

// Init creates all tables and indexes if they do not exist.
func Init(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}
	return nil
}
