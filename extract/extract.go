// Package extract turns fetched pages into article content by running an
// ordered chain of extraction strategies. The chain owns ordering and
// acceptance policy only; the strategies own the actual parsing.
package extract

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/zombar/newsharvest/models"
)

// ErrExtractionFailed is returned when every strategy in the chain falls
// short of the acceptance bar. The page is dropped, not escalated.
var ErrExtractionFailed = errors.New("all extraction strategies failed")

// ImageHints carries image URLs that extraction strategies discover as a
// side effect, so the image pipeline can use them as candidate sources
// without re-running extraction.
type ImageHints struct {
	StructuredMetadataImage string
	FallbackLibraryImage    string
}

// Result is one strategy's output: extracted content plus any image hints
// the strategy surfaced.
type Result struct {
	Content models.ExtractedContent
	Hints   ImageHints
}

// Strategy is a single extraction capability. A strategy that cannot handle
// the page returns an error or empty content; the chain advances either way.
type Strategy interface {
	Name() string
	Extract(page *models.FetchedPage) (Result, error)
}

// Chain tries strategies in declared order and accepts the first result
// meeting the minimum word count. Earlier strategies are more accurate when
// they succeed; later ones are noisier recall backstops and are never
// preferred over an earlier acceptable result.
type Chain struct {
	minWords   int
	strategies []Strategy
}

// NewChain builds a chain with the given acceptance bar and strategy order.
func NewChain(minWords int, strategies ...Strategy) *Chain {
	return &Chain{minWords: minWords, strategies: strategies}
}

// DefaultChain returns the production strategy ordering: readability-style
// structured extraction, then the article-parser library, then the generic
// selector-based extractor.
func DefaultChain(minWords int) *Chain {
	return NewChain(minWords,
		NewReadabilityStrategy(),
		NewGooseStrategy(),
		NewGenericStrategy(),
	)
}

// Extract runs the chain against a fetched page. Image hints from every
// attempted strategy are merged so a failed strategy can still contribute a
// metadata image it found before falling short on content.
func (c *Chain) Extract(page *models.FetchedPage) (models.ExtractedContent, ImageHints, error) {
	var hints ImageHints
	for _, s := range c.strategies {
		res, err := s.Extract(page)
		mergeHints(&hints, res.Hints)
		if err != nil {
			slog.Debug("extraction strategy failed", "strategy", s.Name(), "url", page.URL, "error", err)
			continue
		}
		res.Content.WordCount = len(strings.Fields(res.Content.BodyText))
		if res.Content.WordCount < c.minWords {
			slog.Debug("extraction strategy below word threshold",
				"strategy", s.Name(), "url", page.URL,
				"words", res.Content.WordCount, "min_words", c.minWords)
			continue
		}
		res.Content.ExtractionMethod = s.Name()
		return res.Content, hints, nil
	}
	return models.ExtractedContent{}, hints, ErrExtractionFailed
}

func mergeHints(dst *ImageHints, src ImageHints) {
	if dst.StructuredMetadataImage == "" {
		dst.StructuredMetadataImage = src.StructuredMetadataImage
	}
	if dst.FallbackLibraryImage == "" {
		dst.FallbackLibraryImage = src.FallbackLibraryImage
	}
}
