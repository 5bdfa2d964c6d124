package models

import "time"

// LinkCandidate is a discovered hyperlink awaiting classification. It is
// produced during crawling and consumed once; never persisted.
type LinkCandidate struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
}

// FetchedPage is a raw page snapshot owned by the pipeline run that fetched
// it. It is discarded once extraction and image gathering complete.
type FetchedPage struct {
	URL       string    `json:"url"`
	HTML      string    `json:"html"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ExtractedContent is the output of a successful extraction strategy.
type ExtractedContent struct {
	Title            string `json:"title"`
	BodyText         string `json:"content"`
	Author           string `json:"author,omitempty"`
	PublishedDate    string `json:"date,omitempty"`
	Description      string `json:"description,omitempty"`
	ExtractionMethod string `json:"extraction_method"`
	WordCount        int    `json:"word_count"`
}

// Reason is one signed contribution to an article verdict, recorded so that
// scores can be explained and tuned per signal.
type Reason struct {
	Signal string  `json:"signal"`
	Points float64 `json:"points"`
}

// ArticleVerdict is the authenticity decision for an extracted page.
// Score is always clamped to [0,100]; IsArticle is derived from Score alone.
type ArticleVerdict struct {
	Score     float64  `json:"score"`
	IsArticle bool     `json:"is_article"`
	Reasons   []Reason `json:"reasons"`
}

// ImageSource identifies where an image candidate was gathered from, in
// trust order (earlier sources are more reliable).
type ImageSource int

const (
	SourceStructuredMetadata ImageSource = iota
	SourceFallbackLibrary
	SourceOpenGraph
	SourceTwitterCard
	SourceInlineImg
)

// String returns the wire name for an image source.
func (s ImageSource) String() string {
	switch s {
	case SourceStructuredMetadata:
		return "structured-metadata"
	case SourceFallbackLibrary:
		return "fallback-library"
	case SourceOpenGraph:
		return "og-tag"
	case SourceTwitterCard:
		return "twitter-card"
	case SourceInlineImg:
		return "inline-img"
	default:
		return "unknown"
	}
}

// ImageCandidate is one potential hero image for an article. Width and
// Height are zero when no dimensions were declared or probed yet.
type ImageCandidate struct {
	URL    string      `json:"url"`
	Source ImageSource `json:"source"`
	Width  int         `json:"width,omitempty"`
	Height int         `json:"height,omitempty"`
	Score  float64     `json:"score"`
}

// EncodedImage is a downloaded candidate normalized to a single encoding.
type EncodedImage struct {
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	EXIF        *EXIFData `json:"exif,omitempty"`
}

// EXIFData holds metadata recovered from the original image bytes before
// normalization discards it.
type EXIFData struct {
	DateTime         string  `json:"date_time,omitempty"`
	Make             string  `json:"make,omitempty"`
	Model            string  `json:"model,omitempty"`
	Artist           string  `json:"artist,omitempty"`
	Copyright        string  `json:"copyright,omitempty"`
	ImageDescription string  `json:"image_description,omitempty"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
}

// ArticleRecord is the persisted unit for one accepted article. It is
// created once, after the verdict accepts the page, and never mutated;
// re-runs produce a new record under a new session identity.
type ArticleRecord struct {
	ID               string          `json:"id"`
	URL              string          `json:"url"`
	Title            string          `json:"title"`
	BodyText         string          `json:"content"`
	Author           string          `json:"author,omitempty"`
	PublishedDate    string          `json:"date,omitempty"`
	Description      string          `json:"description,omitempty"`
	ExtractionMethod string          `json:"extraction_method"`
	WordCount        int             `json:"word_count"`
	Verdict          ArticleVerdict  `json:"verdict"`
	Image            *ImageCandidate `json:"image,omitempty"`
	ImageRef         string          `json:"image_ref,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Summarization method tags.
const (
	SummaryMethodModel   = "model-generated"
	SummaryMethodExcerpt = "excerpt-fallback"
)

// SummaryResult is the outcome of summarizing one article body.
type SummaryResult struct {
	SummaryText     string `json:"summary_text"`
	SourceWordCount int    `json:"source_word_count"`
	Method          string `json:"method"`
}

// SummaryDoc is the persisted summary artifact shape, for both text
// summaries and image captions.
type SummaryDoc struct {
	Filename    string `json:"filename"`
	SummaryType string `json:"summary_type"` // "text" or "image"
	Summary     string `json:"summary"`
}
