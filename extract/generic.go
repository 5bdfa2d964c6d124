package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zombar/newsharvest/models"
)

// Paragraph selectors tried in order of specificity. The bare "p" selector
// is the final recall backstop and picks up navigation junk, which is why
// this strategy runs last.
var contentSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
	"#content p",
	"p",
}

var titleSelectors = []string{
	"h1",
	".article-title",
	".headline",
	".entry-title",
	"title",
}

// GenericStrategy scrapes paragraph text with a fixed selector chain. It is
// the lowest-accuracy strategy and exists only to salvage pages the library
// extractors reject.
type GenericStrategy struct {
	// minParagraphChars filters boilerplate fragments like "Read more".
	minParagraphChars int
}

func NewGenericStrategy() *GenericStrategy {
	return &GenericStrategy{minParagraphChars: 20}
}

func (s *GenericStrategy) Name() string { return "generic" }

func (s *GenericStrategy) Extract(page *models.FetchedPage) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	var paragraphs []string
	for _, selector := range contentSelectors {
		var found []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > s.minParagraphChars {
				found = append(found, text)
			}
		})
		if len(found) >= 3 {
			paragraphs = found
			break
		}
		if len(paragraphs) == 0 {
			paragraphs = found
		}
	}
	if len(paragraphs) == 0 {
		return Result{}, fmt.Errorf("generic: no paragraph content in %s", page.URL)
	}

	var title string
	for _, selector := range titleSelectors {
		title = strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			break
		}
	}

	var hints ImageHints
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		hints.StructuredMetadataImage = strings.TrimSpace(og)
	}
	description, _ := doc.Find(`meta[name="description"]`).Attr("content")

	return Result{
		Content: models.ExtractedContent{
			Title:       title,
			BodyText:    strings.Join(paragraphs, "\n\n"),
			Description: strings.TrimSpace(description),
		},
		Hints: hints,
	}, nil
}
