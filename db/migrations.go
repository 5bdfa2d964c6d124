package db

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Up      string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_articles",
		Up: `
			CREATE TABLE IF NOT EXISTS articles (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL,
				folder TEXT NOT NULL,
				url TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				score DOUBLE PRECISION NOT NULL DEFAULT 0,
				is_article BOOLEAN NOT NULL DEFAULT FALSE,
				word_count INTEGER NOT NULL DEFAULT 0,
				extraction_method TEXT NOT NULL DEFAULT '',
				storage_key TEXT NOT NULL,
				verdict JSONB,
				record JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_articles_session ON articles(session_id);
			CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
		`,
	},
	{
		Version: 2,
		Name:    "create_summaries",
		Up: `
			CREATE TABLE IF NOT EXISTS summaries (
				id SERIAL PRIMARY KEY,
				session_id TEXT NOT NULL,
				folder TEXT NOT NULL,
				summary_type TEXT NOT NULL,
				filename TEXT NOT NULL,
				storage_key TEXT NOT NULL,
				summary TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE(session_id, folder, summary_type)
			);
			CREATE INDEX IF NOT EXISTS idx_summaries_session ON summaries(session_id);
		`,
	},
}

// Migrate runs all pending migrations.
func Migrate(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		if m.Version <= currentVersion {
			continue
		}
		if err := runMigration(db, m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func runMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Up); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		m.Version, m.Name,
	); err != nil {
		return err
	}
	return tx.Commit()
}
