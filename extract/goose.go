package extract

import (
	"fmt"
	"strings"

	goose "github.com/advancedlogic/GoOse"

	"github.com/zombar/newsharvest/models"
)

// GooseStrategy extracts content with the GoOse article parser. It handles
// some page layouts readability rejects, so it runs second.
type GooseStrategy struct{}

func NewGooseStrategy() *GooseStrategy { return &GooseStrategy{} }

func (s *GooseStrategy) Name() string { return "goose" }

func (s *GooseStrategy) Extract(page *models.FetchedPage) (Result, error) {
	g := goose.New()
	art, err := g.ExtractFromRawHTML(page.HTML, page.URL)
	if err != nil {
		return Result{}, fmt.Errorf("goose: %w", err)
	}
	if art == nil {
		return Result{}, fmt.Errorf("goose: no article for %s", page.URL)
	}

	content := models.ExtractedContent{
		Title:       strings.TrimSpace(art.Title),
		BodyText:    strings.TrimSpace(art.CleanedText),
		Description: strings.TrimSpace(art.MetaDescription),
	}
	if art.PublishDate != nil {
		content.PublishedDate = art.PublishDate.Format("2006-01-02")
	}
	return Result{
		Content: content,
		Hints:   ImageHints{FallbackLibraryImage: art.TopImage},
	}, nil
}
