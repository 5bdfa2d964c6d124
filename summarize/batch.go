package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/zombar/newsharvest/models"
	"github.com/zombar/newsharvest/runstate"
	"github.com/zombar/newsharvest/storage"
)

// textFieldPriority is the order in which JSON fields are tried when
// looking for summarizable text in a stored document.
var textFieldPriority = []string{"text", "content", "article", "body", "document", "data"}

// ImageCaptioner produces a caption for raw image bytes.
type ImageCaptioner interface {
	Caption(ctx context.Context, imageData []byte) (string, error)
}

// SummaryIndexer records written summary documents in the database index.
// *db.DB is the production implementation.
type SummaryIndexer interface {
	IndexSummary(ctx context.Context, sessionID, folder, storageKey string, doc *models.SummaryDoc) error
}

// Batch walks stored session objects and writes a summary document next to
// each article and image. Existing summaries are overwritten.
type Batch struct {
	store      storage.Store
	summarizer *Summarizer
	captioner  ImageCaptioner
	tracker    *runstate.Tracker
	indexer    SummaryIndexer
}

// NewBatch builds a batch runner. captioner may be nil to skip images;
// indexer may be nil to skip database indexing.
func NewBatch(store storage.Store, summarizer *Summarizer, captioner ImageCaptioner, tracker *runstate.Tracker, indexer SummaryIndexer) *Batch {
	if tracker == nil {
		tracker = runstate.New()
	}
	return &Batch{store: store, summarizer: summarizer, captioner: captioner, tracker: tracker, indexer: indexer}
}

// BatchResult reports what one batch run produced.
type BatchResult struct {
	TextSummaries  int `json:"text_summaries"`
	ImageSummaries int `json:"image_summaries"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
}

// Run summarizes every eligible object under prefix, typically a session
// identifier. It keeps going past per-object failures and only returns an
// error when the store itself cannot be listed.
func (b *Batch) Run(ctx context.Context, prefix string) (BatchResult, error) {
	var res BatchResult

	keys, err := b.store.List(ctx, prefix)
	if err != nil {
		return res, fmt.Errorf("list objects: %w", err)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch {
		case strings.HasSuffix(key, "_summary.json"):
			res.Skipped++
		case strings.HasSuffix(key, ".json"):
			if b.summarizeText(ctx, key) {
				res.TextSummaries++
			} else {
				res.Failed++
			}
		case isImageKey(key):
			if b.captioner == nil {
				res.Skipped++
				continue
			}
			if b.summarizeImage(ctx, key) {
				res.ImageSummaries++
			} else {
				res.Failed++
			}
		default:
			res.Skipped++
		}
	}
	return res, nil
}

func (b *Batch) summarizeText(ctx context.Context, key string) bool {
	data, err := b.store.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to read document", "key", key, "error", err)
		b.tracker.Errorf(fmt.Sprintf("read failed: %s", key))
		return false
	}

	text := extractText(data)
	if text == "" {
		slog.Info("no summarizable text in document", "key", key)
		b.tracker.Warningf(fmt.Sprintf("no text field: %s", key))
		return false
	}

	result := b.summarizer.Summarize(ctx, text)
	doc := &models.SummaryDoc{
		Filename:    path.Base(key),
		SummaryType: "text",
		Summary:     result.SummaryText,
	}
	out := textSummaryKey(key)
	if err := b.putDoc(ctx, out, doc); err != nil {
		slog.Warn("failed to write summary", "key", out, "error", err)
		b.tracker.Errorf(fmt.Sprintf("write failed: %s", out))
		return false
	}
	b.indexDoc(ctx, out, doc)
	b.tracker.Successf(fmt.Sprintf("summarized %s (%s)", key, result.Method))
	return true
}

func (b *Batch) summarizeImage(ctx context.Context, key string) bool {
	data, err := b.store.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to read image", "key", key, "error", err)
		b.tracker.Errorf(fmt.Sprintf("read failed: %s", key))
		return false
	}

	caption, err := b.captioner.Caption(ctx, data)
	if err != nil {
		slog.Warn("image captioning failed", "key", key, "error", err)
		b.tracker.Warningf(fmt.Sprintf("caption failed: %s", key))
		return false
	}

	doc := &models.SummaryDoc{
		Filename:    path.Base(key),
		SummaryType: "image",
		Summary:     caption,
	}
	out := imageSummaryKey(key)
	if err := b.putDoc(ctx, out, doc); err != nil {
		slog.Warn("failed to write caption", "key", out, "error", err)
		b.tracker.Errorf(fmt.Sprintf("write failed: %s", out))
		return false
	}
	b.indexDoc(ctx, out, doc)
	b.tracker.Successf(fmt.Sprintf("captioned %s", key))
	return true
}

// indexDoc records the summary in the database index. Keys follow the
// <session>/<folder>/<file> layout; anything shallower is not indexable.
// The stored document is the source of truth, so index failures only warn.
func (b *Batch) indexDoc(ctx context.Context, key string, doc *models.SummaryDoc) {
	if b.indexer == nil {
		return
	}
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return
	}
	if err := b.indexer.IndexSummary(ctx, parts[0], parts[1], key, doc); err != nil {
		slog.Warn("failed to index summary", "key", key, "error", err)
	}
}

func (b *Batch) putDoc(ctx context.Context, key string, doc *models.SummaryDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return b.store.Put(ctx, key, data, "application/json")
}

// extractText pulls the first known text field out of a JSON document. A
// top-level JSON string is summarized as-is.
func extractText(data []byte) string {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return ""
	}
	for _, field := range textFieldPriority {
		raw, ok := asObject[field]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func isImageKey(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// textSummaryKey maps <dir>/<stem>.json to <dir>/<stem>_text_summary.json.
func textSummaryKey(key string) string {
	return strings.TrimSuffix(key, ".json") + "_text_summary.json"
}

// imageSummaryKey maps the canonical image.jpg to image_summary.json and
// any other image to <stem>_image_summary.json.
func imageSummaryKey(key string) string {
	dir := path.Dir(key)
	stem := strings.TrimSuffix(path.Base(key), path.Ext(key))
	if stem == "image" {
		return path.Join(dir, storage.ImageSummaryObject)
	}
	return path.Join(dir, stem+"_image_summary.json")
}
