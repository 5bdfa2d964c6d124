// Package storage persists session output. A session lays out as:
//
//	<session_id>/<article_folder>/article.json
//	<session_id>/<article_folder>/image.jpg
//	<session_id>/<article_folder>/article_text_summary.json
//	<session_id>/<article_folder>/image_summary.json
//
// Both backends speak the same key space: forward-slash relative paths.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zombar/newsharvest/models"
)

// Well-known object names within an article folder.
const (
	ArticleObject      = "article.json"
	ImageObject        = "image.jpg"
	TextSummaryObject  = "article_text_summary.json"
	ImageSummaryObject = "image_summary.json"
)

// Store is the object storage surface the pipeline needs. Keys are
// forward-slash relative paths rooted at the store.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ArticleKey returns the object key for an article document.
func ArticleKey(sessionID, folder string) string {
	return path.Join(sessionID, folder, ArticleObject)
}

// ImageKey returns the object key for an article's hero image.
func ImageKey(sessionID, folder string) string {
	return path.Join(sessionID, folder, ImageObject)
}

// TextSummaryKey returns the object key for an article's text summary.
func TextSummaryKey(sessionID, folder string) string {
	return path.Join(sessionID, folder, TextSummaryObject)
}

// ImageSummaryKey returns the object key for an article's image caption.
func ImageSummaryKey(sessionID, folder string) string {
	return path.Join(sessionID, folder, ImageSummaryObject)
}

// SaveArticle writes an article record as JSON under its session folder.
func SaveArticle(ctx context.Context, store Store, sessionID, folder string, rec *models.ArticleRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal article: %w", err)
	}
	key := ArticleKey(sessionID, folder)
	if err := store.Put(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// SaveImage writes a normalized image under its session folder.
func SaveImage(ctx context.Context, store Store, sessionID, folder string, img *models.EncodedImage) (string, error) {
	key := ImageKey(sessionID, folder)
	if err := store.Put(ctx, key, img.Data, img.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

// SaveSummary writes a summary document next to its article.
func SaveSummary(ctx context.Context, store Store, sessionID, folder string, doc *models.SummaryDoc) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	var key string
	switch doc.SummaryType {
	case "image":
		key = ImageSummaryKey(sessionID, folder)
	default:
		key = TextSummaryKey(sessionID, folder)
	}
	if err := store.Put(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// LoadArticle reads an article record back from the store.
func LoadArticle(ctx context.Context, store Store, key string) (*models.ArticleRecord, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec models.ArticleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal article %s: %w", key, err)
	}
	return &rec, nil
}

// Local is a filesystem-backed Store rooted at a base directory.
type Local struct {
	basePath string
}

// NewLocal creates a local store, creating the base directory if needed.
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

func (l *Local) fullPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty storage key")
	}
	return filepath.Join(l.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (l *Local) Put(_ context.Context, key string, data []byte, _ string) error {
	full, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	full, err := l.fullPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(l.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
