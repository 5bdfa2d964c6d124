package extract

import (
	"fmt"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/zombar/newsharvest/models"
)

// ReadabilityStrategy extracts content using the readability content model.
// It is the most accurate strategy on well-formed article pages and always
// runs first.
type ReadabilityStrategy struct{}

func NewReadabilityStrategy() *ReadabilityStrategy { return &ReadabilityStrategy{} }

func (s *ReadabilityStrategy) Name() string { return "readability" }

func (s *ReadabilityStrategy) Extract(page *models.FetchedPage) (Result, error) {
	pageURL, err := nurl.Parse(page.URL)
	if err != nil {
		return Result{}, fmt.Errorf("parse page url: %w", err)
	}
	art, err := readability.FromReader(strings.NewReader(page.HTML), pageURL)
	if err != nil {
		return Result{}, fmt.Errorf("readability: %w", err)
	}

	content := models.ExtractedContent{
		Title:       strings.TrimSpace(art.Title),
		BodyText:    strings.TrimSpace(art.TextContent),
		Author:      strings.TrimSpace(art.Byline),
		Description: strings.TrimSpace(art.Excerpt),
	}
	if art.PublishedTime != nil {
		content.PublishedDate = art.PublishedTime.Format("2006-01-02")
	}
	return Result{
		Content: content,
		Hints:   ImageHints{StructuredMetadataImage: art.Image},
	}, nil
}
