// Package summarize condenses article bodies with a hierarchical
// map-reduce over a text model, falling back to a plain excerpt when the
// model is unavailable. Summarization never fails: every input produces
// some summary.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/zombar/newsharvest/models"
)

// TextModel produces a summary of at most maxWords words for the given text.
type TextModel interface {
	Summarize(ctx context.Context, text string, maxWords int) (string, error)
}

// Options bounds the hierarchical reduction.
type Options struct {
	// ChunkWords is the maximum chunk size fed to the model in one call.
	ChunkWords int
	// SummaryWords caps intermediate per-chunk summaries.
	SummaryWords int
	// FinalWords caps the final summary.
	FinalWords int
	// ExcerptWords is the fallback excerpt length when the model fails.
	ExcerptWords int
	// MaxInputChars truncates pathological inputs before chunking.
	MaxInputChars int
	// MaxReducePasses bounds recursion when summaries refuse to shrink.
	MaxReducePasses int
}

// DefaultOptions mirror the sizes the summarizer was tuned with.
func DefaultOptions() Options {
	return Options{
		ChunkWords:      900,
		SummaryWords:    220,
		FinalWords:      240,
		ExcerptWords:    60,
		MaxInputChars:   250_000,
		MaxReducePasses: 6,
	}
}

// Summarizer runs the hierarchical summarization over a text model.
type Summarizer struct {
	model TextModel
	opts  Options
}

func New(model TextModel, opts Options) *Summarizer {
	return &Summarizer{model: model, opts: opts}
}

// Summarize condenses text to at most FinalWords words. Short inputs take a
// single model call; long inputs are chunked, each chunk summarized, and the
// concatenated summaries reduced again until one chunk remains. Any model
// error drops to the excerpt fallback.
func (s *Summarizer) Summarize(ctx context.Context, text string) models.SummaryResult {
	normalized := Normalize(text, s.opts.MaxInputChars)
	sourceWords := len(strings.Fields(normalized))
	if normalized == "" {
		return models.SummaryResult{
			SummaryText:     "",
			SourceWordCount: 0,
			Method:          models.SummaryMethodExcerpt,
		}
	}

	summary, err := s.reduce(ctx, normalized, 0)
	if err != nil {
		slog.Warn("model summarization failed, using excerpt", "error", err, "source_words", sourceWords)
		return models.SummaryResult{
			SummaryText:     Excerpt(normalized, s.opts.ExcerptWords),
			SourceWordCount: sourceWords,
			Method:          models.SummaryMethodExcerpt,
		}
	}
	return models.SummaryResult{
		SummaryText:     summary,
		SourceWordCount: sourceWords,
		Method:          models.SummaryMethodModel,
	}
}

func (s *Summarizer) reduce(ctx context.Context, text string, pass int) (string, error) {
	chunks := Chunk(text, s.opts.ChunkWords)
	if len(chunks) <= 1 {
		return s.model.Summarize(ctx, text, s.opts.FinalWords)
	}
	if pass >= s.opts.MaxReducePasses {
		// Summaries stopped shrinking; force a final pass on what we have.
		return s.model.Summarize(ctx, text, s.opts.FinalWords)
	}

	partials := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		partial, err := s.model.Summarize(ctx, chunk, s.opts.SummaryWords)
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d/%d: %w", len(partials)+1, len(chunks), err)
		}
		partials = append(partials, strings.TrimSpace(partial))
	}
	return s.reduce(ctx, strings.Join(partials, " "), pass+1)
}

// Normalize collapses all whitespace runs to single spaces and truncates to
// maxChars. Truncation never splits a word or a multi-byte rune.
func Normalize(text string, maxChars int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if maxChars > 0 && len(collapsed) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
			cut--
		}
		collapsed = collapsed[:cut]
		if i := strings.LastIndexByte(collapsed, ' '); i > 0 {
			collapsed = collapsed[:i]
		}
	}
	return collapsed
}

// Chunk splits text into consecutive pieces of at most chunkWords words.
// The split is lossless: joining the chunks with single spaces reproduces
// the normalized input.
func Chunk(text string, chunkWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if chunkWords <= 0 {
		chunkWords = 1
	}
	chunks := make([]string, 0, (len(words)+chunkWords-1)/chunkWords)
	for start := 0; start < len(words); start += chunkWords {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// Excerpt returns the first maxWords words of text, appending an ellipsis
// when the text was longer.
func Excerpt(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
