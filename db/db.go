// Package db maintains an optional PostgreSQL index over stored sessions so
// articles can be queried without walking object storage. The pipeline runs
// fine without it; every write is best-effort from the caller's view.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/zombar/newsharvest/models"
)

// DB wraps the database connection and provides session index methods.
type DB struct {
	conn *sql.DB
}

// Config contains database configuration.
type Config struct {
	DSN string // PostgreSQL connection string
}

// New creates a database connection and runs migrations.
func New(config Config) (*DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying connection for metrics collection.
func (db *DB) DB() *sql.DB {
	return db.conn
}

// IndexArticle records an accepted article under its session. The full
// record is stored as JSON alongside the queryable columns.
func (db *DB) IndexArticle(ctx context.Context, sessionID, folder, storageKey string, rec *models.ArticleRecord) error {
	verdictJSON, err := json.Marshal(rec.Verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query := `
		INSERT INTO articles (id, session_id, folder, url, title, score, is_article, word_count, extraction_method, storage_key, verdict, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT(id) DO NOTHING
	`
	_, err = db.conn.ExecContext(ctx, query,
		rec.ID, sessionID, folder, rec.URL, rec.Title,
		rec.Verdict.Score, rec.Verdict.IsArticle, rec.WordCount,
		rec.ExtractionMethod, storageKey,
		string(verdictJSON), string(recordJSON), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to index article: %w", err)
	}
	return nil
}

// IndexSummary records a generated summary document.
func (db *DB) IndexSummary(ctx context.Context, sessionID, folder, storageKey string, doc *models.SummaryDoc) error {
	query := `
		INSERT INTO summaries (session_id, folder, summary_type, filename, storage_key, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(session_id, folder, summary_type) DO UPDATE SET
			summary = excluded.summary,
			storage_key = excluded.storage_key,
			created_at = excluded.created_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		sessionID, folder, doc.SummaryType, doc.Filename, storageKey, doc.Summary, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to index summary: %w", err)
	}
	return nil
}

// SessionArticle is one row of the session listing.
type SessionArticle struct {
	ID         string    `json:"id"`
	Folder     string    `json:"folder"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Score      float64   `json:"score"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListSessionArticles returns the indexed articles for one session, newest
// first.
func (db *DB) ListSessionArticles(ctx context.Context, sessionID string) ([]SessionArticle, error) {
	query := `
		SELECT id, folder, url, title, score, storage_key, created_at
		FROM articles
		WHERE session_id = $1
		ORDER BY created_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session articles: %w", err)
	}
	defer rows.Close()

	var out []SessionArticle
	for rows.Next() {
		var a SessionArticle
		if err := rows.Scan(&a.ID, &a.Folder, &a.URL, &a.Title, &a.Score, &a.StorageKey, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// HasURL reports whether a URL was already indexed in any session.
func (db *DB) HasURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE url = $1)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check url: %w", err)
	}
	return exists, nil
}
